package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the canonical golden text: one header line,
// then the trace, then any expectation mismatches.
func Snapshot(result *Result) []byte {
	var b strings.Builder
	b.WriteString("scenario: " + result.Scenario + "\n")
	for _, line := range result.Trace {
		b.WriteString(line + "\n")
	}
	for _, e := range result.Errors {
		b.WriteString("error: " + e + "\n")
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its trace snapshot with the
// golden file named after the scenario. Test failure (via goldie) occurs if
// the trace doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(result))
	return nil
}
