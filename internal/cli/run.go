package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/filecrawler/internal/server"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigFlags
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan the watch directory on a fixed period until stopped",
		Long: `Start the crawler. Each tick first resumes any runs left behind by a
crash, then ingests every file found in the watch directory.

Example:
  filecrawler run --config ./filecrawler.yaml
  filecrawler run --watch ./in --success-dir ./ok --fail-dir ./fail --wal-dir ./wal --db ./entries.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawler(opts, cmd)
		},
	}
	opts.ConfigFlags.register(cmd)

	return cmd
}

func runCrawler(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions, &opts.ConfigFlags, cmd)
	if err != nil {
		return err
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s every %s. Press Ctrl-C to stop.\n", cfg.WatchDir, cfg.Period)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.scheduler.Run(gctx)
	})
	if cfg.MetricsAddr != "" {
		srv := server.New(cfg.MetricsAddr, a.registry, logger)
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				cancel()
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "crawler stopped with error", err)
	}

	logger.Info("crawler stopped gracefully")
	return nil
}
