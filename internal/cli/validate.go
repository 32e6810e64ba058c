package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/filecrawler/internal/analyzer"
	"github.com/roach88/filecrawler/internal/entry"
)

// Error codes for the validate command (E001-E009)
const (
	ErrCodeSchemaLoad = "E001" // schema could not be compiled
	ErrCodeAnalysis   = "E002" // analysis failed without a specific code
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Schema string
}

// ValidationResult is the output of a successful validate.
type ValidationResult struct {
	Valid        bool   `json:"valid"`
	File         string `json:"file"`
	Content      string `json:"content"`
	CreationDate string `json:"creation_date"`
}

func (r ValidationResult) String() string {
	return r.File + ": valid entry created " + r.CreationDate
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a file would be accepted, without ingesting it",
		Long: `Parse one file exactly as the crawler would and report whether it is a
valid entry. Nothing is written and the file is not moved.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE schema file defining #Entry")

	return cmd
}

func runValidate(opts *ValidateOptions, file string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := readConfig(opts.RootOptions, nil, cmd)
	if err != nil {
		return err
	}
	schema := cfg.Schema
	if cmd.Flags().Changed("schema") {
		schema = opts.Schema
	}

	parser, err := analyzer.NewFromFile(schema)
	if err != nil {
		_ = formatter.Error(ErrCodeSchemaLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load entry schema", err)
	}
	formatter.VerboseLog("Validating %s", file)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := parser.Analyze(ctx, file, 0)
	if err != nil {
		code := ErrCodeAnalysis
		var ae *analyzer.AnalysisError
		if errors.As(err, &ae) {
			code = ae.Code
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "file rejected", err)
	}

	return formatter.Success(ValidationResult{
		Valid:        true,
		File:         file,
		Content:      e.Content,
		CreationDate: e.CreationDate.Format(entry.DateLayout),
	})
}
