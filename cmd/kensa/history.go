package main

import (
	"github.com/hyperjump/kensa/internal/cli"
	"github.com/hyperjump/kensa/internal/config"
	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/models"
	"github.com/hyperjump/kensa/internal/storage"
	"github.com/spf13/cobra"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		limit, offset int
		format        string
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded review runs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cli.ParseFormat(format)
			if err != nil {
				return errs.E(errs.Configuration, "history", err)
			}
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if !config.Enabled(cfg.Storage.HistoryPath) {
				return errs.Errorf(errs.Configuration, "history", "review history is disabled (storage.history_path: off)")
			}

			hist, err := storage.NewSQLiteStorage(cfg.Storage.HistoryPath)
			if err != nil {
				return errs.E(errs.Configuration, "open history", err)
			}
			defer hist.Close()
			ctx := cmd.Context()

			if len(args) == 1 {
				run, err := hist.GetRun(ctx, args[0])
				if err != nil {
					return errs.E(errs.Configuration, "history", err)
				}
				return cli.WriteHistory(a.stdout, []*models.ReviewRun{run}, 1, out)
			}
			runs, err := hist.ListRuns(ctx, offset, limit)
			if err != nil {
				return err
			}
			total, err := hist.CountRuns(ctx)
			if err != nil {
				return err
			}
			return cli.WriteHistory(a.stdout, runs, total, out)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}
