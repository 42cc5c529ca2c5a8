// Package main is the kensa CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/kensa/internal/config"
	"github.com/hyperjump/kensa/internal/embedding"
	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/gitctx"
	"github.com/hyperjump/kensa/internal/providers"
	"github.com/hyperjump/kensa/internal/review"
	"github.com/hyperjump/kensa/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// Exit codes.
const (
	ExitOK    = 0
	ExitBlock = 1
)

// defaultConfigNames are tried in order when --config is not given.
var defaultConfigNames = []string{"kensa.yaml", "kensa.yml", "kensa.json"}

func main() {
	_ = godotenv.Load(".env.local")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newApp(os.Stdout, os.Stderr).run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// app holds CLI state and the collaborators tests replace.
type app struct {
	stdout, stderr io.Writer

	configPath string
	debug      bool
	exitCode   int

	newEmbedder  func(modelID string) (embedding.Embedder, error)
	newGenerator func(modelID string) (providers.Generator, error)
	stagedDiff   func(ctx context.Context, dir string) (string, error)
	reviewOpts   []review.Option
	now          func() time.Time
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:       stdout,
		stderr:       stderr,
		newEmbedder:  embedding.New,
		newGenerator: providers.New,
		stagedDiff:   gitctx.Staged,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// run executes the CLI and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(a.stderr, diagnostic(err))
		return ExitBlock
	}
	return a.exitCode
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kensa",
		Short:         "Commit-time code review with retrieved codebase context",
		Long:          "kensa indexes a codebase into embedding chunks, retrieves the chunks relevant to a staged change, asks a model for a structured review and gates the commit on the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default kensa.yaml or kensa.json in the working directory)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.buildCmd(),
		a.reviewCmd(),
		a.searchCmd(),
		a.statusCmd(),
		a.watchCmd(),
		a.serveCmd(),
		a.historyCmd(),
		a.hookCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print kensa version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "kensa version %s\n", version)
		},
	}
}

// diagnostic renders an error as a one-line message for stderr.
func diagnostic(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return "kensa: " + e.Error()
	}
	return "kensa: error: " + err.Error()
}

// loadConfig loads the --config file, or the first default config name present in the working
// directory. With neither, built-in defaults rooted at the working directory are used.
func (a *app) loadConfig() (*config.Config, string, error) {
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return nil, "", err
		}
		return cfg, a.configPath, nil
	}
	for _, name := range defaultConfigNames {
		if _, err := os.Stat(name); err == nil {
			cfg, err := config.Load(name)
			if err != nil {
				return nil, "", err
			}
			return cfg, name, nil
		}
	}
	cfg, err := config.Parse(nil)
	if err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// setup loads config and builds the logger shared by every command.
func (a *app) setup() (*config.Config, *zap.Logger, error) {
	cfg, path, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	debug := cfg.Debug || a.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, nil, errs.E(errs.Configuration, "create logger", err)
	}
	if path != "" {
		abs, _ := filepath.Abs(path)
		logger.Debug("config loaded", zap.String("config_path", abs), zap.Bool("debug", debug))
	} else {
		logger.Debug("no config file found; using defaults")
	}
	return cfg, logger, nil
}

// embedder returns the configured embedding model behind an LRU cache.
func (a *app) embedder(cfg *config.Config) (embedding.Embedder, error) {
	emb, err := a.newEmbedder(cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	return embedding.NewCachedEmbedder(emb, cfg.EmbedCacheSize), nil
}
