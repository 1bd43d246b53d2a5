package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benarmston/sequel/internal/dialect"
	"github.com/benarmston/sequel/internal/exprir"
	"github.com/benarmston/sequel/internal/lifecycle"
	"github.com/benarmston/sequel/internal/schema"
	"github.com/benarmston/sequel/internal/sqlgen"
	"github.com/benarmston/sequel/internal/testutil"
)

func itemSpec() *schema.ModelSpec {
	return &schema.ModelSpec{
		Name:       "item",
		Table:      "items",
		PrimaryKey: "id",
		Columns: []schema.ColumnSpec{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "price", Type: "int"},
		},
		UseTransactions: true,
	}
}

func newRunner(exec lifecycle.Executor, hooks *lifecycle.Registry, opts ...lifecycle.Option) *lifecycle.Runner {
	compiler := sqlgen.New(dialect.SQLite())
	opts = append([]lifecycle.Option{
		lifecycle.WithIDGenerator(lifecycle.NewFixedGenerator("itm_1", "itm_2")),
	}, opts...)
	return lifecycle.New(exec, compiler, hooks, opts...)
}

func registerAll(trace *testutil.HookTrace, l *lifecycle.Layer, prefix string) {
	stages := []lifecycle.Stage{
		lifecycle.StageBeforeValidation,
		lifecycle.StageAfterValidation,
		lifecycle.StageBeforeSave,
		lifecycle.StageAfterSave,
		lifecycle.StageBeforeCreate,
		lifecycle.StageAfterCreate,
		lifecycle.StageBeforeUpdate,
		lifecycle.StageAfterUpdate,
		lifecycle.StageBeforeDestroy,
		lifecycle.StageAfterDestroy,
	}
	for _, s := range stages {
		l.On(s, trace.Hook(prefix+string(s)))
	}
}

func TestSave_CreateRunsStagesInOrder(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	registerAll(trace, hooks.Layer("base"), "")

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Succeeded(), "outcome: %+v", out)

	assert.Equal(t, []string{
		"before_validation",
		"after_validation",
		"before_save",
		"before_create",
		"after_create",
		"after_save",
	}, trace.Events())

	require.Len(t, exec.Statements, 1)
	assert.Equal(t, `INSERT INTO "items" ("id", "name") VALUES (?, ?)`, exec.Statements[0].SQL)
	assert.Equal(t, []any{"itm_1", "Widget"}, exec.Statements[0].Params)
	assert.True(t, exec.Statements[0].InTx)
	assert.Equal(t, 1, exec.Begun)
	assert.Equal(t, 1, exec.Committed)
	assert.Equal(t, 0, exec.RolledBack)
	assert.Equal(t, lifecycle.StatePersisted, rec.State())
}

func TestSave_GeneratedPrimaryKeyIsSetOnRecord(t *testing.T) {
	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, nil)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Succeeded())
	assert.Equal(t, "itm_1", rec.PrimaryKey())
}

func TestSave_ExplicitPrimaryKeyIsNotOverwritten(t *testing.T) {
	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, nil)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"id": "given", "name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Succeeded())
	assert.Equal(t, "given", rec.PrimaryKey())
	assert.Equal(t, []any{"given", "Widget"}, exec.Statements[0].Params)
}

func TestSave_UpdateRunsStagesInOrder(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	registerAll(trace, hooks.Layer("base"), "")

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks)
	rec := lifecycle.LoadRecord(itemSpec(), map[string]any{"id": "itm_9", "name": "Widget"})
	rec.Set("name", "Widget II")

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Succeeded(), "outcome: %+v", out)

	assert.Equal(t, []string{
		"before_validation",
		"after_validation",
		"before_save",
		"before_update",
		"after_update",
		"after_save",
	}, trace.Events())

	require.Len(t, exec.Statements, 1)
	assert.Equal(t, `UPDATE "items" SET "name" = ? WHERE ("id" = ?)`, exec.Statements[0].SQL)
	assert.Equal(t, []any{"Widget II", "itm_9"}, exec.Statements[0].Params)
}

func TestSave_UpdateWithNoChangesIsNoOp(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	hooks.Layer("base").
		On(lifecycle.StageBeforeUpdate, trace.Hook("before_update")).
		On(lifecycle.StageAfterUpdate, trace.Hook("after_update"))

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks)
	rec := lifecycle.LoadRecord(itemSpec(), map[string]any{"id": "itm_9", "name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Succeeded())

	// Hooks still run; no statement is issued.
	assert.Equal(t, []string{"before_update", "after_update"}, trace.Events())
	assert.Empty(t, exec.Statements)
	assert.Equal(t, 1, exec.Committed)
}

func TestSave_HaltInBeforeCreateAborts(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	hooks.Layer("base").
		On(lifecycle.StageBeforeSave, trace.Hook("before_save")).
		On(lifecycle.StageBeforeCreate, trace.HaltingHook("before_create")).
		On(lifecycle.StageAfterCreate, trace.Hook("after_create")).
		On(lifecycle.StageAfterSave, trace.Hook("after_save"))

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Aborted())
	assert.NoError(t, out.Err)

	assert.Equal(t, []string{"before_save", "before_create"}, trace.Events())
	assert.Empty(t, exec.Statements)
	assert.Equal(t, 1, exec.RolledBack)
	assert.Equal(t, 0, exec.Committed)
	assert.Equal(t, lifecycle.StateNew, rec.State())
}

func TestSave_HookErrorFails(t *testing.T) {
	trace := testutil.NewHookTrace()
	hookErr := errors.New("boom")
	hooks := lifecycle.NewRegistry()
	hooks.Layer("audit").On(lifecycle.StageBeforeSave, trace.FailingHook("before_save", hookErr))

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Failed())

	var he *lifecycle.HookError
	require.ErrorAs(t, out.Err, &he)
	assert.Equal(t, lifecycle.StageBeforeSave, he.Stage)
	assert.Equal(t, "audit", he.Layer)
	assert.ErrorIs(t, out.Err, hookErr)

	assert.Empty(t, exec.Statements)
	assert.Equal(t, 1, exec.RolledBack)
}

func TestSave_AbortedAndFailedAreDistinguishable(t *testing.T) {
	exec := testutil.NewFakeExecutor()

	halting := lifecycle.NewRegistry()
	halting.Layer("base").On(lifecycle.StageBeforeSave, testutil.NewHookTrace().HaltingHook("h"))
	out := newRunner(exec, halting).Save(context.Background(),
		lifecycle.NewRecord(itemSpec(), map[string]any{"name": "w"}), lifecycle.SaveOptions{})
	assert.Equal(t, lifecycle.StatusAborted, out.Status)
	assert.NoError(t, out.Err)

	failing := lifecycle.NewRegistry()
	failing.Layer("base").On(lifecycle.StageBeforeSave, testutil.NewHookTrace().FailingHook("f", errors.New("x")))
	out = newRunner(exec, failing).Save(context.Background(),
		lifecycle.NewRecord(itemSpec(), map[string]any{"name": "w"}), lifecycle.SaveOptions{})
	assert.Equal(t, lifecycle.StatusFailed, out.Status)
	assert.Error(t, out.Err)
}

func TestSave_LayeredHookOrdering(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	hooks.Layer("base").
		On(lifecycle.StageBeforeSave, trace.Hook("base.before_save")).
		On(lifecycle.StageAfterSave, trace.Hook("base.after_save"))
	hooks.Layer("ext").
		On(lifecycle.StageBeforeSave, trace.Hook("ext.before_save")).
		On(lifecycle.StageAfterSave, trace.Hook("ext.after_save"))

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Succeeded())

	// Before-hooks: newest layer first. After-hooks: oldest layer first.
	assert.Equal(t, []string{
		"ext.before_save",
		"base.before_save",
		"base.after_save",
		"ext.after_save",
	}, trace.Events())
}

func TestSave_ValidatorFailureIsValidationError(t *testing.T) {
	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, nil, lifecycle.WithValidator(
		func(ctx context.Context, rec *lifecycle.Record) error {
			if _, ok := rec.Get("name"); !ok {
				return errors.New("name is required")
			}
			return nil
		}))
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"price": 10})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Failed())
	assert.True(t, lifecycle.IsValidationError(out.Err))

	// Validation runs before any transaction is opened.
	assert.Equal(t, 0, exec.Begun)
	assert.Empty(t, exec.Statements)
	assert.Equal(t, lifecycle.StateNew, rec.State())
}

func TestSave_SkipValidation(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	hooks.Layer("base").On(lifecycle.StageBeforeValidation, trace.Hook("before_validation"))

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks, lifecycle.WithValidator(
		func(ctx context.Context, rec *lifecycle.Record) error {
			return errors.New("always fails")
		}))
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{SkipValidation: true})
	require.True(t, out.Succeeded())
	assert.Empty(t, trace.Events())
	require.Len(t, exec.Statements, 1)
}

func TestSave_ExecutorFailureRollsBack(t *testing.T) {
	exec := testutil.NewFakeExecutor()
	exec.FailOn = "INSERT"
	r := newRunner(exec, nil)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Failed())
	assert.True(t, lifecycle.IsExecutorError(out.Err))
	assert.Equal(t, 1, exec.RolledBack)
	assert.Equal(t, 0, exec.Committed)
}

func TestSave_WithoutTransactions(t *testing.T) {
	spec := itemSpec()
	spec.UseTransactions = false

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, nil)
	rec := lifecycle.NewRecord(spec, map[string]any{"name": "Widget"})

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Succeeded())
	assert.Equal(t, 0, exec.Begun)
	require.Len(t, exec.Statements, 1)
	assert.False(t, exec.Statements[0].InTx)
}

func TestSave_DestroyedRecordIsRejected(t *testing.T) {
	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, nil)
	rec := lifecycle.LoadRecord(itemSpec(), map[string]any{"id": "itm_9"})

	out := r.Destroy(context.Background(), rec)
	require.True(t, out.Succeeded())

	out = r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Failed())
}

func TestSave_UpdateWithoutPrimaryKeyFails(t *testing.T) {
	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, nil)
	rec := lifecycle.LoadRecord(itemSpec(), map[string]any{"name": "Widget"})
	rec.Set("name", "Widget II")

	out := r.Save(context.Background(), rec, lifecycle.SaveOptions{})
	require.True(t, out.Failed())
	assert.Empty(t, exec.Statements)
	assert.Equal(t, 1, exec.RolledBack)
}

func TestDestroy_RunsStagesInOrder(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	registerAll(trace, hooks.Layer("base"), "")

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks)
	rec := lifecycle.LoadRecord(itemSpec(), map[string]any{"id": "itm_9", "name": "Widget"})

	out := r.Destroy(context.Background(), rec)
	require.True(t, out.Succeeded())

	assert.Equal(t, []string{"before_destroy", "after_destroy"}, trace.Events())
	require.Len(t, exec.Statements, 1)
	assert.Equal(t, `DELETE FROM "items" WHERE ("id" = ?)`, exec.Statements[0].SQL)
	assert.Equal(t, []any{"itm_9"}, exec.Statements[0].Params)
	assert.Equal(t, lifecycle.StateDestroyed, rec.State())
}

func TestDestroy_HaltAborts(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	hooks.Layer("base").On(lifecycle.StageBeforeDestroy, trace.HaltingHook("before_destroy"))

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks)
	rec := lifecycle.LoadRecord(itemSpec(), map[string]any{"id": "itm_9"})

	out := r.Destroy(context.Background(), rec)
	require.True(t, out.Aborted())
	assert.Empty(t, exec.Statements)
	assert.Equal(t, lifecycle.StatePersisted, rec.State())
}

func TestDestroy_NewRecordIsRejected(t *testing.T) {
	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, nil)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Destroy(context.Background(), rec)
	require.True(t, out.Failed())
	assert.Empty(t, exec.Statements)
}

func TestValidate_Standalone(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	hooks.Layer("base").
		On(lifecycle.StageBeforeValidation, trace.Hook("before_validation")).
		On(lifecycle.StageAfterValidation, trace.Hook("after_validation"))

	r := newRunner(testutil.NewFakeExecutor(), hooks)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Validate(context.Background(), rec)
	require.True(t, out.Succeeded())
	assert.Equal(t, []string{"before_validation", "after_validation"}, trace.Events())
}

func TestValidate_HaltInBeforeValidationAborts(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	hooks.Layer("base").On(lifecycle.StageBeforeValidation, trace.HaltingHook("before_validation"))

	r := newRunner(testutil.NewFakeExecutor(), hooks, lifecycle.WithValidator(
		func(ctx context.Context, rec *lifecycle.Record) error {
			t.Fatal("validator must not run after a halt")
			return nil
		}))
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	out := r.Validate(context.Background(), rec)
	require.True(t, out.Aborted())
}

func TestValidate_PreservesValidationErrorDetail(t *testing.T) {
	r := newRunner(testutil.NewFakeExecutor(), nil, lifecycle.WithValidator(
		func(ctx context.Context, rec *lifecycle.Record) error {
			return &lifecycle.ValidationError{Failures: []string{"name is required", "price must be positive"}}
		}))
	rec := lifecycle.NewRecord(itemSpec(), nil)

	out := r.Validate(context.Background(), rec)
	require.True(t, out.Failed())

	var ve *lifecycle.ValidationError
	require.ErrorAs(t, out.Err, &ve)
	assert.Equal(t, []string{"name is required", "price must be positive"}, ve.Failures)
}

func TestRunAfterInitialize_IgnoresHalt(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	hooks.Layer("base").On(lifecycle.StageAfterInitialize, trace.HaltingHook("base.init"))
	hooks.Layer("ext").On(lifecycle.StageAfterInitialize, trace.Hook("ext.init"))

	r := newRunner(testutil.NewFakeExecutor(), hooks)
	rec := lifecycle.NewRecord(itemSpec(), map[string]any{"name": "Widget"})

	err := r.RunAfterInitialize(context.Background(), rec)
	require.NoError(t, err)
	// Application order, and the halt from the first hook does not stop the
	// second.
	assert.Equal(t, []string{"base.init", "ext.init"}, trace.Events())
}

func TestRawOperationsBypassHooks(t *testing.T) {
	trace := testutil.NewHookTrace()
	hooks := lifecycle.NewRegistry()
	registerAll(trace, hooks.Layer("base"), "")

	exec := testutil.NewFakeExecutor()
	r := newRunner(exec, hooks)
	ctx := context.Background()

	_, err := r.RawInsert(ctx, "items", exprir.Pairs{{Column: "id", Value: "x"}, {Column: "name", Value: "n"}})
	require.NoError(t, err)
	_, err = r.RawUpdate(ctx, "items", exprir.Pairs{{Column: "name", Value: "m"}}, exprir.Cond{"id": "x"})
	require.NoError(t, err)
	_, err = r.RawDelete(ctx, "items", exprir.Cond{"id": "x"})
	require.NoError(t, err)

	assert.Empty(t, trace.Events())
	assert.Equal(t, 0, exec.Begun)
	assert.Equal(t, []string{
		`INSERT INTO "items" ("id", "name") VALUES (?, ?)`,
		`UPDATE "items" SET "name" = ? WHERE ("id" = ?)`,
		`DELETE FROM "items" WHERE ("id" = ?)`,
	}, exec.SQLLog())
}

func TestRawDelete_ExecutorFailure(t *testing.T) {
	exec := testutil.NewFakeExecutor()
	exec.FailOn = "DELETE"
	r := newRunner(exec, nil)

	_, err := r.RawDelete(context.Background(), "items", exprir.Cond{"id": "x"})
	require.Error(t, err)
	assert.True(t, lifecycle.IsExecutorError(err))
}
