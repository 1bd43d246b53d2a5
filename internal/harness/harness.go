// Package harness runs lifecycle conformance scenarios.
//
// A scenario declares a model, a stack of hook layers, and a sequence of
// persistence operations with expected outcomes. The harness executes the
// sequence against a fresh in-memory database, recording every hook
// invocation, transaction boundary, and executed statement into a trace.
// Traces are deterministic (fixed primary-key generation, sorted value
// application), which makes them suitable for golden comparison.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/benarmston/sequel/internal/dialect"
	"github.com/benarmston/sequel/internal/exprir"
	"github.com/benarmston/sequel/internal/lifecycle"
	"github.com/benarmston/sequel/internal/schema"
	"github.com/benarmston/sequel/internal/sqlgen"
	"github.com/benarmston/sequel/internal/store"
)

// Result carries the trace and any expectation mismatches from one scenario
// execution.
type Result struct {
	Scenario string
	Trace    []string
	Errors   []string
}

// Passed reports whether every step matched its expected outcome.
func (r *Result) Passed() bool { return len(r.Errors) == 0 }

func (r *Result) addTrace(format string, args ...any) {
	r.Trace = append(r.Trace, fmt.Sprintf(format, args...))
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Harness executes one scenario.
type Harness struct {
	store  *store.Store
	runner *lifecycle.Runner
	spec   *schema.ModelSpec
	result *Result
	logger *slog.Logger

	// rec is the scenario's current record: the one created by the most
	// recent create step.
	rec *lifecycle.Record
}

// Run executes a scenario and returns its result.
//
// Each scenario runs in a fresh in-memory database for isolation. Primary
// keys come from a fixed generator (rec_1, rec_2, ...) so traces are
// reproducible.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	spec := scenario.Model.ModelSpec()
	cols := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = c.Name
	}
	ctx := context.Background()
	if _, err := st.Exec(ctx, store.CreateTableSQL(spec.Table, cols, spec.PrimaryKey), nil); err != nil {
		return nil, fmt.Errorf("failed to create scenario table: %w", err)
	}

	result := &Result{Scenario: scenario.Name}

	hooks := lifecycle.NewRegistry()
	for _, layerDef := range scenario.Layers {
		layer := hooks.Layer(layerDef.Name)
		for _, hookDef := range layerDef.Hooks {
			layer.On(lifecycle.Stage(hookDef.Stage), recordingHook(result, layerDef.Name, hookDef))
		}
	}

	tokens := make([]string, len(scenario.Steps))
	for i := range tokens {
		tokens[i] = fmt.Sprintf("rec_%d", i+1)
	}

	exec := &tracingExecutor{inner: st, result: result}
	runner := lifecycle.New(exec, sqlgen.New(dialect.SQLite()), hooks,
		lifecycle.WithIDGenerator(lifecycle.NewFixedGenerator(tokens...)),
		lifecycle.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	h := &Harness{
		store:  st,
		runner: runner,
		spec:   spec,
		result: result,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for i, step := range scenario.Steps {
		status, err := h.executeStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		result.addTrace("step %d %s: %s", i+1, step.Op, status)

		expected := step.Expect
		if expected == "" {
			expected = "success"
		}
		if status != expected {
			result.addError("step %d %s: expected %s, got %s", i+1, step.Op, expected, status)
		}
	}

	if err := h.appendFinalState(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// executeStep runs one step and reports its outcome status. Errors are
// harness failures (misconfigured scenario), not operation outcomes.
func (h *Harness) executeStep(ctx context.Context, step Step) (string, error) {
	switch step.Op {
	case OpCreate:
		h.rec = lifecycle.NewRecord(h.spec, step.Values)
		out := h.runner.Save(ctx, h.rec, lifecycle.SaveOptions{SkipValidation: step.SkipValidation})
		return outcomeStatus(out), nil

	case OpUpdate:
		if h.rec == nil {
			return "", fmt.Errorf("update step without a preceding create")
		}
		for _, k := range sortedKeys(step.Values) {
			h.rec.Set(k, step.Values[k])
		}
		out := h.runner.Save(ctx, h.rec, lifecycle.SaveOptions{SkipValidation: step.SkipValidation})
		return outcomeStatus(out), nil

	case OpDestroy:
		if h.rec == nil {
			return "", fmt.Errorf("destroy step without a preceding create")
		}
		return outcomeStatus(h.runner.Destroy(ctx, h.rec)), nil

	case OpValidate:
		if h.rec == nil {
			return "", fmt.Errorf("validate step without a preceding create")
		}
		return outcomeStatus(h.runner.Validate(ctx, h.rec)), nil

	case OpRawInsert:
		_, err := h.runner.RawInsert(ctx, h.spec.Table, pairsOf(step.Values))
		return rawStatus(err), nil

	case OpRawUpdate:
		_, err := h.runner.RawUpdate(ctx, h.spec.Table, pairsOf(step.Values), exprir.Cond(step.Where))
		return rawStatus(err), nil

	case OpRawDelete:
		_, err := h.runner.RawDelete(ctx, h.spec.Table, exprir.Cond(step.Where))
		return rawStatus(err), nil

	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
}

// appendFinalState queries the scenario table and appends its rows to the
// trace, ordered by primary key.
func (h *Harness) appendFinalState(ctx context.Context) error {
	quoted := make([]string, len(h.spec.Columns))
	for i, c := range h.spec.Columns {
		quoted[i] = `"` + c.Name + `"`
	}
	query := "SELECT "
	for i, q := range quoted {
		if i > 0 {
			query += ", "
		}
		query += q
	}
	query += ` FROM "` + h.spec.Table + `" ORDER BY "` + h.spec.PrimaryKey + `"`

	rows, err := h.store.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query final state: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		values := make([]any, len(h.spec.Columns))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan final state row: %w", err)
		}
		line := "row"
		for i, c := range h.spec.Columns {
			line += fmt.Sprintf(" %s=%v", c.Name, values[i])
		}
		h.result.addTrace("%s", line)
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	h.result.addTrace("final rows: %d", count)
	return nil
}

// recordingHook builds a hook that records its invocation, then proceeds,
// halts, or fails per its definition.
func recordingHook(result *Result, layer string, def HookDef) lifecycle.Hook {
	return func(ctx context.Context, rec *lifecycle.Record) (lifecycle.HookOutcome, error) {
		result.addTrace("hook %s.%s", layer, def.Stage)
		if def.Fail != "" {
			return lifecycle.Proceed, fmt.Errorf("%s", def.Fail)
		}
		if def.Halt {
			return lifecycle.Halt, nil
		}
		return lifecycle.Proceed, nil
	}
}

func outcomeStatus(out lifecycle.Outcome) string {
	return out.Status.String()
}

func rawStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}

// pairsOf converts a values map to pairs in sorted column order, for
// deterministic statement text.
func pairsOf(values map[string]any) exprir.Pairs {
	pairs := make(exprir.Pairs, 0, len(values))
	for _, k := range sortedKeys(values) {
		pairs = append(pairs, exprir.Pair{Column: k, Value: values[k]})
	}
	return pairs
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// tracingExecutor wraps the store, recording every statement and transaction
// boundary into the result trace.
type tracingExecutor struct {
	inner  lifecycle.Executor
	result *Result
}

func (e *tracingExecutor) Exec(ctx context.Context, sql string, params []any) (int64, error) {
	e.result.addTrace("exec %s %v", sql, params)
	return e.inner.Exec(ctx, sql, params)
}

func (e *tracingExecutor) Begin(ctx context.Context) (lifecycle.Tx, error) {
	tx, err := e.inner.Begin(ctx)
	if err != nil {
		return nil, err
	}
	e.result.addTrace("begin")
	return &tracingTx{inner: tx, result: e.result}, nil
}

type tracingTx struct {
	inner  lifecycle.Tx
	result *Result
}

func (t *tracingTx) Exec(ctx context.Context, sql string, params []any) (int64, error) {
	t.result.addTrace("exec %s %v", sql, params)
	return t.inner.Exec(ctx, sql, params)
}

func (t *tracingTx) Commit() error {
	t.result.addTrace("commit")
	return t.inner.Commit()
}

func (t *tracingTx) Rollback() error {
	t.result.addTrace("rollback")
	return t.inner.Rollback()
}
