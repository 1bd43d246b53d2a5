package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benarmston/sequel/internal/dialect"
	"github.com/benarmston/sequel/internal/exprir"
	"github.com/benarmston/sequel/internal/sqlgen"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Dialect string
	Negate  bool
	Invert  bool
}

// FilterDoc is the YAML document accepted by the compile command: either a
// condition map under "where" or a raw fragment with positional or named
// bindings.
type FilterDoc struct {
	Where map[string]any `yaml:"where,omitempty"`
	Raw   string         `yaml:"raw,omitempty"`
	Args  []any          `yaml:"args,omitempty"`
	Named map[string]any `yaml:"named,omitempty"`
}

// CompileResult is the compile command's success payload.
type CompileResult struct {
	Dialect string `json:"dialect"`
	SQL     string `json:"sql"`
	Params  []any  `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <filter.yaml>",
		Short: "Compile a filter spec to parameterized SQL",
		Long: `Compile a YAML filter spec to SQL text and an ordered parameter list.

The spec is either a condition map:

    where:
      category: tools
      price: [10, 20, 30]

or a raw fragment with bindings:

    raw: "price > :min"
    named:
      min: 10

Values are always bound as parameters, never interpolated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "sqlite", "target dialect (sqlite|postgres|mysql)")
	cmd.Flags().BoolVar(&opts.Negate, "negate", false, "negate each condition pair, keeping the AND")
	cmd.Flags().BoolVar(&opts.Invert, "invert", false, "invert the whole predicate (De Morgan)")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Negate && opts.Invert {
		return outputCommandError(formatter, ErrCodeGeneric, "--negate and --invert are mutually exclusive")
	}

	d, err := dialectByName(opts.Dialect)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("reading filter file: %v", err))
	}

	spec, err := parseFilterDoc(data)
	if err != nil {
		return outputCommandError(formatter, ErrCodeParseFailed, err.Error())
	}

	formatter.VerboseLog("Compiling for dialect %s", d.Name)

	compiler := sqlgen.New(d)
	var sql string
	var params []any
	switch {
	case opts.Negate:
		sql, params, err = compiler.CompileNegatedFilter(spec)
	case opts.Invert:
		sql, params, err = compiler.CompileInvertedFilter(spec)
	default:
		sql, params, err = compiler.CompileFilter(spec)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeCompile, err.Error(), nil)
		return WrapExitError(ExitFailure, "compilation failed", err)
	}

	result := &CompileResult{Dialect: d.Name, SQL: sql, Params: params}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "SQL:    %s\n", result.SQL)
	fmt.Fprintf(formatter.Writer, "Params: %v\n", result.Params)
	return nil
}

// parseFilterDoc parses the filter YAML and converts it to a compiler spec.
func parseFilterDoc(data []byte) (any, error) {
	var doc FilterDoc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hasWhere := len(doc.Where) > 0
	hasRaw := doc.Raw != ""
	switch {
	case hasWhere && hasRaw:
		return nil, fmt.Errorf("where and raw are mutually exclusive")
	case hasRaw:
		return exprir.RawFilter{SQL: doc.Raw, Args: doc.Args, Named: doc.Named}, nil
	case hasWhere:
		return exprir.Cond(doc.Where), nil
	default:
		return nil, fmt.Errorf("filter spec needs a where map or a raw fragment")
	}
}

func dialectByName(name string) (dialect.Config, error) {
	switch name {
	case "sqlite":
		return dialect.SQLite(), nil
	case "postgres":
		return dialect.Postgres(), nil
	case "mysql":
		return dialect.MySQL(), nil
	default:
		return dialect.Config{}, fmt.Errorf("unknown dialect %q: must be sqlite, postgres, or mysql", name)
	}
}

// outputCommandError reports a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
