package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/filecrawler/internal/wal"
)

// PendingOptions holds flags for the pending command.
type PendingOptions struct {
	*RootOptions
	WALDir string
}

// PendingLog describes one WAL file awaiting recovery.
type PendingLog struct {
	WAL     string `json:"wal"`
	Phase   string `json:"phase,omitempty"`
	Command string `json:"command,omitempty"`
	ID      int64  `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PendingList is the output of the pending command.
type PendingList []PendingLog

func (l PendingList) String() string {
	if len(l) == 0 {
		return "no pending wal files"
	}
	var b strings.Builder
	for i, p := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		if p.Error != "" {
			fmt.Fprintf(&b, "%s\tunreadable: %s", p.WAL, p.Error)
			continue
		}
		fmt.Fprintf(&b, "%s\t%s %s %d %s", p.WAL, p.Phase, p.Command, p.ID, p.Path)
	}
	return b.String()
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PendingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List write-ahead logs left by interrupted runs",
		Long: `List every WAL file in the WAL directory with its last record. These
are the runs the next tick will try to resume.

Example:
  filecrawler pending --wal-dir ./wal
  filecrawler pending --config ./filecrawler.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.WALDir, "wal-dir", "", "directory holding per-file write-ahead logs")

	return cmd
}

func runPending(opts *PendingOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.Verbose, cmd.ErrOrStderr())

	cfg, err := readConfig(opts.RootOptions, nil, cmd)
	if err != nil {
		return err
	}
	dir := cfg.WALDir
	if cmd.Flags().Changed("wal-dir") {
		dir = opts.WALDir
	}
	if dir == "" {
		return NewExitError(ExitCommandError, "wal directory not set: use --wal-dir or wal_dir in --config")
	}

	store, err := wal.New(dir, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open wal directory", err)
	}
	files, err := store.ListPending()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list wal directory", err)
	}
	formatter.VerboseLog("Found %d pending wal file(s) in %s", len(files), dir)

	list := make(PendingList, 0, len(files))
	for _, f := range files {
		entry := PendingLog{WAL: filepath.Base(f)}
		rec, err := wal.ReadLastRecord(f)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Phase = string(rec.Phase)
			entry.Command = rec.Command
			entry.ID = rec.ID
			entry.Path = rec.Path
		}
		list = append(list, entry)
	}

	return formatter.Success(list)
}
