package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blurifier/internal/platform/config"
	"blurifier/internal/platform/logger"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "blurifier",
		Short:         "Content-addressed redaction service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newServeCommand(opts),
		newWorkerCommand(opts),
		newSweepCommand(opts),
		newBackfillCommand(opts),
		newMigrateCommand(opts),
	)
	return cmd
}

// bootstrap loads configuration and assembles every component the command
// may need.
func bootstrap(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	return newApp(ctx, cfg, logger.New(cfg.Log))
}
