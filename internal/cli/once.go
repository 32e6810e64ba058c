package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/filecrawler/internal/scheduler"
)

// OnceOptions holds flags for the once command.
type OnceOptions struct {
	*RootOptions
	ConfigFlags
}

// TickSummary is the output of the once command.
type TickSummary struct {
	Tick       string `json:"tick"`
	Resumed    int    `json:"resumed"`
	Abandoned  int    `json:"abandoned"`
	Deferred   int    `json:"deferred"`
	Locked     int    `json:"locked"`
	Dispatched int    `json:"dispatched"`
	DurationMS int64  `json:"duration_ms"`
}

func (s TickSummary) String() string {
	return fmt.Sprintf("tick %s: resumed=%d abandoned=%d deferred=%d locked=%d dispatched=%d",
		s.Tick, s.Resumed, s.Abandoned, s.Deferred, s.Locked, s.Dispatched)
}

func newTickSummary(r scheduler.TickResult) TickSummary {
	return TickSummary{
		Tick:       r.Token,
		Resumed:    r.Resumed,
		Abandoned:  r.Abandoned,
		Deferred:   r.Deferred,
		Locked:     r.Locked,
		Dispatched: r.Dispatched,
		DurationMS: r.Duration.Milliseconds(),
	}
}

// NewOnceCommand creates the once command.
func NewOnceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OnceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single restore and scan tick, then exit",
		Long: `Run exactly one tick: resume interrupted runs, ingest every file
currently in the watch directory, wait for all of them, and exit.

Example:
  filecrawler once --config ./filecrawler.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(opts, cmd)
		},
	}
	opts.ConfigFlags.register(cmd)

	return cmd
}

func runOnce(opts *OnceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions, &opts.ConfigFlags, cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return formatter.Success(newTickSummary(a.scheduler.Tick(ctx)))
}
