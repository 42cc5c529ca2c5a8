package main

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/kensa/internal/cli"
	"github.com/hyperjump/kensa/internal/config"
	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/gate"
	"github.com/hyperjump/kensa/internal/gitctx"
	"github.com/hyperjump/kensa/internal/models"
	"github.com/hyperjump/kensa/internal/review"
	"github.com/hyperjump/kensa/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) reviewCmd() *cobra.Command {
	var (
		format    string
		noHistory bool
	)
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review the staged change and gate the commit",
		Long:  "Retrieves the indexed code most related to the staged diff, asks the review model for findings and exits 1 when a finding's severity is in block_on or no valid review was obtained.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cli.ParseFormat(format)
			if err != nil {
				return errs.E(errs.Configuration, "review", err)
			}
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()

			diff, err := a.stagedDiff(ctx, cfg.Root)
			if err != nil {
				return errs.E(errs.Configuration, "read staged diff", err)
			}
			if strings.TrimSpace(diff) == "" {
				fmt.Fprintln(a.stdout, "nothing to review")
				return nil
			}

			if files, err := gitctx.ChangedFiles(diff); err == nil {
				logger.Info("reviewing staged change", zap.Strings("files", files))
			}

			rep, err := a.review(ctx, cfg, diff, logger, !noHistory)
			if err != nil {
				return err
			}
			if err := cli.WriteReview(a.stdout, rep, out); err != nil {
				return err
			}
			if rep.Decision == models.Block {
				a.exitCode = ExitBlock
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this run in the review history")
	return cmd
}

// review runs retrieval, prompt assembly, the model call and gating for diff.
func (a *app) review(ctx context.Context, cfg *config.Config, diff string, logger *zap.Logger, record bool) (*cli.ReviewReport, error) {
	rc := cfg.Review()

	emb, err := a.embedder(cfg)
	if err != nil {
		return nil, err
	}
	defer emb.Close()

	ret, closeRet, err := openRetriever(cfg, emb, logger)
	if err != nil {
		return nil, err
	}
	defer closeRet()

	query, _ := review.Truncate(diff, rc.MaxDiffChars)
	chunks, err := ret.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	prompt := review.Assemble(chunks, diff, review.Options{
		BudgetChars:  rc.MaxPromptChars,
		MaxDiffChars: rc.MaxDiffChars,
	})
	logger.Debug("prompt assembled",
		zap.Int("retrieved", len(chunks)),
		zap.Int("context_chunks", prompt.ContextChunks),
		zap.Bool("diff_truncated", prompt.DiffTruncated))

	gen, err := a.newGenerator(rc.ReviewModel)
	if err != nil {
		return nil, err
	}
	opts := append([]review.Option{review.WithLogger(logger)}, a.reviewOpts...)
	res, ok := review.NewReviewer(gen, rc.MaxAttempts, opts...).Review(ctx, prompt)
	if !ok {
		logger.Warn("no valid review obtained", zap.Int("attempts", rc.MaxAttempts))
	}
	if res != nil {
		markAnchored(res, diff, logger)
	}

	decision := gate.Decide(res, rc.BlockOn)
	rep := cli.NewReviewReport(res, decision, gate.Offending(res, rc.BlockOn))
	rep.ContextChunks = prompt.ContextChunks
	rep.DiffTruncated = prompt.DiffTruncated

	if record && config.Enabled(cfg.Storage.HistoryPath) {
		run := &models.ReviewRun{
			ID:            uuid.NewString(),
			CreatedAt:     a.now(),
			ReviewModel:   gen.Model(),
			EmbedModel:    ret.Index().EmbedModel,
			Decision:      decision,
			NoResult:      res == nil,
			Counts:        rep.Counts,
			ContextChunks: prompt.ContextChunks,
			DiffChars:     utf8.RuneCountInString(diff),
		}
		if res != nil {
			run.Findings = res.Inline
			run.General = res.General
		}
		if err := recordRun(ctx, cfg.Storage.HistoryPath, run); err != nil {
			logger.Warn("failed to record review run", zap.Error(err))
		} else {
			rep.RunID = run.ID
		}
	}
	return rep, nil
}

// markAnchored flags each inline finding whose line is not in the diff's new-file lines.
func markAnchored(res *models.Result, diff string, logger *zap.Logger) {
	lines, err := gitctx.AddedLines(diff)
	if err != nil {
		logger.Warn("cannot parse diff for anchoring", zap.Error(err))
		return
	}
	for i := range res.Inline {
		anchored := gitctx.Anchored(lines, res.Inline[i].File, res.Inline[i].Line)
		res.Inline[i].Anchored = &anchored
	}
}

func recordRun(ctx context.Context, path string, run *models.ReviewRun) error {
	hist, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return err
	}
	defer hist.Close()
	return hist.RecordRun(ctx, run)
}
