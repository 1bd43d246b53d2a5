package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benarmston/sequel/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ModelSummary is one model's entry in the validate command's payload.
type ModelSummary struct {
	Name            string `json:"name"`
	Table           string `json:"table"`
	PrimaryKey      string `json:"primary_key"`
	ColumnCount     int    `json:"column_count"`
	UseTransactions bool   `json:"use_transactions"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <models-dir>",
		Short: "Validate CUE model definitions",
		Long: `Load and compile every model definition from a directory of CUE files,
reporting each model's table binding or the first compile error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	specs, err := schema.LoadDir(dir)
	if err != nil {
		var ce *schema.CompileError
		if errors.As(err, &ce) {
			_ = formatter.Error(ErrCodeCompile, ce.Error(), nil)
			return WrapExitError(ExitFailure, "model validation failed", err)
		}
		return outputCommandError(formatter, ErrCodeNotFound, err.Error())
	}

	summaries := make([]ModelSummary, len(specs))
	for i, s := range specs {
		formatter.VerboseLog("Compiled model %s (table %s)", s.Name, s.Table)
		summaries[i] = ModelSummary{
			Name:            s.Name,
			Table:           s.Table,
			PrimaryKey:      s.PrimaryKey,
			ColumnCount:     len(s.Columns),
			UseTransactions: s.UseTransactions,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	fmt.Fprintf(formatter.Writer, "✓ Validated %d model(s)\n\n", len(summaries))
	for _, m := range summaries {
		tx := "transactional"
		if !m.UseTransactions {
			tx = "non-transactional"
		}
		fmt.Fprintf(formatter.Writer, "  %s: table %s, pk %s, %d column(s), %s\n",
			m.Name, m.Table, m.PrimaryKey, m.ColumnCount, tx)
	}
	return nil
}
