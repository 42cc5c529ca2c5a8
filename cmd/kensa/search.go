package main

import (
	"strings"

	"github.com/hyperjump/kensa/internal/cli"
	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/models"
	"github.com/spf13/cobra"
)

func (a *app) searchCmd() *cobra.Command {
	var (
		keywordOnly bool
		hybrid      bool
		limit       int
		format      string
	)
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the index",
		Long:  "Ranks indexed chunks against a query by cosine similarity (default), Bleve keyword lookup (--keyword) or a fusion of both (--hybrid).",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cli.ParseFormat(format)
			if err != nil {
				return errs.E(errs.Configuration, "search", err)
			}
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			req := &models.RetrieveRequest{
				Query:   strings.Join(args, " "),
				Limit:   limit,
				Keyword: keywordOnly,
				Hybrid:  hybrid,
			}
			if err := req.Validate(cfg.TopK, 0); err != nil {
				return errs.E(errs.Retrieval, "search", err)
			}

			emb, err := a.embedder(cfg)
			if err != nil {
				return err
			}
			defer emb.Close()
			ret, closeRet, err := openRetriever(cfg, emb, logger)
			if err != nil {
				return err
			}
			defer closeRet()

			results, err := ret.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			return cli.WriteSearchResults(a.stdout, cli.SearchOutput{
				Query:   req.Query,
				Mode:    searchMode(req),
				Results: results,
			}, out)
		},
	}
	cmd.Flags().BoolVarP(&keywordOnly, "keyword", "k", false, "use keyword search only")
	cmd.Flags().BoolVar(&hybrid, "hybrid", false, "fuse keyword and semantic scores")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default top_k)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

func searchMode(req *models.RetrieveRequest) string {
	switch {
	case req.Keyword:
		return "keyword"
	case req.Hybrid:
		return "hybrid"
	default:
		return "semantic"
	}
}
