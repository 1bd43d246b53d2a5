package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benarmston/sequel/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	ShowTrace bool
}

// ScenarioResult is the test command's per-scenario payload.
type ScenarioResult struct {
	Scenario string   `json:"scenario"`
	Passed   bool     `json:"passed"`
	Trace    []string `json:"trace"`
	Errors   []string `json:"errors,omitempty"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario.yaml>...",
		Short: "Run lifecycle conformance scenarios",
		Long: `Execute scenario files against a fresh in-memory database, checking each
step's outcome against its expectation. Exits non-zero when any scenario
fails.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ShowTrace, "trace", false, "print the full execution trace")

	return cmd
}

func runTest(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var results []ScenarioResult
	failures := 0
	for _, path := range paths {
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return outputCommandError(formatter, ErrCodeParseFailed, err.Error())
		}

		formatter.VerboseLog("Running scenario %s", scenario.Name)
		result, err := harness.Run(scenario)
		if err != nil {
			return outputCommandError(formatter, ErrCodeScenario, fmt.Sprintf("scenario %s: %v", scenario.Name, err))
		}

		if !result.Passed() {
			failures++
		}
		results = append(results, ScenarioResult{
			Scenario: result.Scenario,
			Passed:   result.Passed(),
			Trace:    result.Trace,
			Errors:   result.Errors,
		})
	}

	if formatter.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			mark := "✓"
			if !r.Passed {
				mark = "✗"
			}
			fmt.Fprintf(formatter.Writer, "%s %s\n", mark, r.Scenario)
			if opts.ShowTrace {
				for _, line := range r.Trace {
					fmt.Fprintf(formatter.Writer, "    %s\n", line)
				}
			}
			for _, e := range r.Errors {
				fmt.Fprintf(formatter.Writer, "    %s\n", e)
			}
		}
		fmt.Fprintf(formatter.Writer, "\n%d scenario(s), %d failure(s)\n", len(results), failures)
	}

	if failures > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failures))
	}
	return nil
}
