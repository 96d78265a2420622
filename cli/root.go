// Package cli is the restaurant-finder command line: the API server, the
// interactive terminal client and one-shot client commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"restaurant-finder/client"
	"restaurant-finder/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// env carries what PersistentPreRunE prepared for the subcommands.
type env struct {
	configPath string
	verbose    bool
	raw        bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "restaurant-finder",
		Short: "Search restaurants, keep favorites and share comments",
		Long: `restaurant-finder serves the restaurant search API and ships a terminal
client for it.

Run "restaurant-finder serve" to start the API, then "restaurant-finder tui"
for the interactive client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load(e.configPath)
			if err != nil {
				return err
			}
			e.cfg = cfg

			logger, err := newLogger(cfg.Logging.Level, e.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			e.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "restaurant-finder.yaml", "Path to the YAML config file")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(e),
		newCreateMigrationCmd(),
		newConfigCmd(e),
		newTUICmd(e),
		newSearchCmd(e),
		newLoginCmd(e),
		newRegisterCmd(e),
		newLogoutCmd(e),
		newPasswdCmd(e),
		newFavoritesCmd(e),
		newCommentsCmd(e),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newLogger builds the client-side zap logger. Output goes to stderr so it
// never mixes with rendered results.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}

	lvl := zapcore.WarnLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// newApp opens the client state layer against the configured API and
// restores any saved session.
func (e *env) newApp(ctx context.Context) (*client.App, error) {
	if err := e.cfg.ValidateClient(); err != nil {
		return nil, err
	}
	api := client.NewAPI(e.cfg.Client.APIBaseURL, e.cfg.ClientTimeout())
	app := client.NewApp(api, client.NewFileStorage(e.cfg.Client.StateFile), e.logger)
	if err := app.Start(ctx); err != nil {
		// a broken state file should not block signing in again
		e.logger.Warn("Failed to restore session", zap.Error(err))
	}
	return app, nil
}
