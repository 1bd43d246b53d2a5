// Package lifecycle sequences persistence hooks around create, update, and
// destroy operations.
//
// One save or destroy invocation walks a fixed stage order: validation,
// before_save, before_create or before_update (chosen once at entry from
// the record's persistence state), the executor call, then the matching
// after-stages in reverse nesting order. Any before-hook may halt the
// operation; a halt performs no mutation, rolls back the operation's
// transaction, and reports a non-error Aborted outcome. Errors from hooks
// or the executor roll back and report Failed - callers can always tell
// the two apart.
//
// The package holds no cross-record locking: concurrent saves of the same
// logical row rely on the database's transaction isolation.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benarmston/sequel/internal/exprir"
	"github.com/benarmston/sequel/internal/sqlgen"
)

// Executor runs compiled SQL against a database. Implemented by the
// sqlite-backed store and by test fakes.
type Executor interface {
	// Exec runs a statement and reports rows affected.
	Exec(ctx context.Context, sql string, params []any) (int64, error)
	// Begin opens a transaction scope.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a transaction scope. Every exit path of a lifecycle operation
// either commits or rolls back.
type Tx interface {
	Exec(ctx context.Context, sql string, params []any) (int64, error)
	Commit() error
	Rollback() error
}

// Validator checks a record's business rules during the validation stage.
// A returned error becomes a ValidationError in a Failed outcome.
type Validator func(ctx context.Context, rec *Record) error

// Runner drives lifecycle operations for records.
type Runner struct {
	exec      Executor
	compiler  *sqlgen.Compiler
	hooks     *Registry
	validator Validator
	idGen     IDGenerator
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithValidator sets the validation-stage check.
func WithValidator(v Validator) Option {
	return func(r *Runner) { r.validator = v }
}

// WithIDGenerator sets the primary-key generator for new records.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) { r.idGen = g }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a Runner. A nil hooks registry behaves as an empty one.
func New(exec Executor, compiler *sqlgen.Compiler, hooks *Registry, opts ...Option) *Runner {
	if hooks == nil {
		hooks = NewRegistry()
	}
	r := &Runner{
		exec:     exec,
		compiler: compiler,
		hooks:    hooks,
		idGen:    UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveOptions controls a single Save invocation.
type SaveOptions struct {
	// SkipValidation skips the Validating stage entirely, including its
	// before/after hooks.
	SkipValidation bool
}

// Save persists a record: INSERT of all set fields for a new record,
// UPDATE of changed fields for a persisted one. The create/update branch
// is decided once at entry and does not change mid-operation.
func (r *Runner) Save(ctx context.Context, rec *Record, opts SaveOptions) Outcome {
	if rec.state == StateDestroyed {
		return failed(fmt.Errorf("cannot save a destroyed record"))
	}

	// Validation runs before any transaction is opened; its hooks are not
	// part of the transactional hook sequence.
	if !opts.SkipValidation {
		if out := r.Validate(ctx, rec); !out.Succeeded() {
			return out
		}
	}

	creating := rec.state == StateNew

	op, err := r.beginOp(ctx, rec)
	if err != nil {
		return failed(err)
	}

	if out, done := r.runBefore(ctx, op, rec, StageBeforeSave); done {
		return out
	}
	branchBefore, branchAfter := StageBeforeUpdate, StageAfterUpdate
	if creating {
		branchBefore, branchAfter = StageBeforeCreate, StageAfterCreate
	}
	if out, done := r.runBefore(ctx, op, rec, branchBefore); done {
		return out
	}

	if creating {
		if err := r.executeInsert(ctx, op, rec); err != nil {
			return op.fail(err)
		}
		rec.state = StatePersisted
	} else {
		if err := r.executeUpdate(ctx, op, rec); err != nil {
			return op.fail(err)
		}
	}

	if err := r.runAfter(ctx, rec, branchAfter); err != nil {
		return op.fail(err)
	}
	if err := r.runAfter(ctx, rec, StageAfterSave); err != nil {
		return op.fail(err)
	}

	if err := op.commit(); err != nil {
		return failed(err)
	}
	rec.clearChanged()
	return succeeded()
}

// Destroy deletes a persisted record's row, running the destroy hook pair
// around the DELETE.
func (r *Runner) Destroy(ctx context.Context, rec *Record) Outcome {
	if rec.state != StatePersisted {
		return failed(fmt.Errorf("cannot destroy a %s record", rec.state))
	}

	op, err := r.beginOp(ctx, rec)
	if err != nil {
		return failed(err)
	}

	if out, done := r.runBefore(ctx, op, rec, StageBeforeDestroy); done {
		return out
	}

	if err := r.executeDelete(ctx, op, rec); err != nil {
		return op.fail(err)
	}
	rec.state = StateDestroyed

	if err := r.runAfter(ctx, rec, StageAfterDestroy); err != nil {
		return op.fail(err)
	}

	if err := op.commit(); err != nil {
		return failed(err)
	}
	return succeeded()
}

// Validate runs the validation stage standalone: before_validation hooks,
// the validator, then after_validation hooks. Usable outside a save.
func (r *Runner) Validate(ctx context.Context, rec *Record) Outcome {
	for _, h := range r.hooks.before(StageBeforeValidation) {
		out, err := h.fn(ctx, rec)
		if err != nil {
			return failed(&HookError{Stage: StageBeforeValidation, Layer: h.layer, Err: err})
		}
		if out == Halt {
			return aborted()
		}
	}

	if r.validator != nil {
		if err := r.validator(ctx, rec); err != nil {
			if IsValidationError(err) {
				return failed(err)
			}
			return failed(&ValidationError{Failures: []string{err.Error()}})
		}
	}

	if err := r.runAfter(ctx, rec, StageAfterValidation); err != nil {
		return failed(err)
	}
	return succeeded()
}

// RunAfterInitialize invokes after_initialize hooks in application order.
// The stage is informational: Halt is ignored, errors propagate.
func (r *Runner) RunAfterInitialize(ctx context.Context, rec *Record) error {
	return r.runAfter(ctx, rec, StageAfterInitialize)
}

// RawInsert inserts a row directly, bypassing hooks and the implicit
// transaction decision.
func (r *Runner) RawInsert(ctx context.Context, table string, row exprir.Pairs) (int64, error) {
	sql, params, err := r.compiler.CompileInsert(table, row)
	if err != nil {
		return 0, err
	}
	return r.execDirect(ctx, "insert", sql, params)
}

// RawUpdate updates rows directly, bypassing hooks.
func (r *Runner) RawUpdate(ctx context.Context, table string, set exprir.Pairs, where any) (int64, error) {
	sql, params, err := r.compiler.CompileUpdate(table, set, where)
	if err != nil {
		return 0, err
	}
	return r.execDirect(ctx, "update", sql, params)
}

// RawDelete deletes rows directly, bypassing hooks. Never invokes
// before_destroy or after_destroy.
func (r *Runner) RawDelete(ctx context.Context, table string, where any) (int64, error) {
	sql, params, err := r.compiler.CompileDelete(table, where)
	if err != nil {
		return 0, err
	}
	return r.execDirect(ctx, "delete", sql, params)
}

// operation carries the per-invocation transaction scope. The
// use_transactions flag is read exactly once, when the operation begins.
type operation struct {
	runner *Runner
	tx     Tx
}

func (r *Runner) beginOp(ctx context.Context, rec *Record) (*operation, error) {
	op := &operation{runner: r}
	if rec.spec.UseTransactions {
		tx, err := r.exec.Begin(ctx)
		if err != nil {
			return nil, &ExecutorError{Op: "begin", Err: err}
		}
		op.tx = tx
	}
	return op, nil
}

func (o *operation) exec(ctx context.Context, verb, sql string, params []any) (int64, error) {
	o.runner.logger.DebugContext(ctx, "executing statement", "sql", sql, "params", len(params))
	var n int64
	var err error
	if o.tx != nil {
		n, err = o.tx.Exec(ctx, sql, params)
	} else {
		n, err = o.runner.exec.Exec(ctx, sql, params)
	}
	if err != nil {
		return 0, &ExecutorError{Op: verb, Err: err}
	}
	return n, nil
}

// fail rolls back and reports a Failed outcome.
func (o *operation) fail(err error) Outcome {
	o.rollback()
	return failed(err)
}

// halt rolls back and reports the non-error Aborted outcome.
func (o *operation) halt() Outcome {
	o.rollback()
	return aborted()
}

func (o *operation) rollback() {
	if o.tx == nil {
		return
	}
	if err := o.tx.Rollback(); err != nil {
		o.runner.logger.Warn("rollback failed", "error", err)
	}
	o.tx = nil
}

func (o *operation) commit() error {
	if o.tx == nil {
		return nil
	}
	if err := o.tx.Commit(); err != nil {
		return &ExecutorError{Op: "commit", Err: err}
	}
	o.tx = nil
	return nil
}

// runBefore invokes a before-stage. The second return is true when the
// operation is finished (halted or failed) and the outcome should be
// returned as-is.
func (r *Runner) runBefore(ctx context.Context, op *operation, rec *Record, stage Stage) (Outcome, bool) {
	for _, h := range r.hooks.before(stage) {
		out, err := h.fn(ctx, rec)
		if err != nil {
			return op.fail(&HookError{Stage: stage, Layer: h.layer, Err: err}), true
		}
		if out == Halt {
			return op.halt(), true
		}
	}
	return Outcome{}, false
}

// runAfter invokes an after-stage. After-hooks cannot halt; errors
// propagate.
func (r *Runner) runAfter(ctx context.Context, rec *Record, stage Stage) error {
	for _, h := range r.hooks.after(stage) {
		if _, err := h.fn(ctx, rec); err != nil {
			return &HookError{Stage: stage, Layer: h.layer, Err: err}
		}
	}
	return nil
}

// executeInsert generates a missing primary key, then INSERTs all set
// fields.
func (r *Runner) executeInsert(ctx context.Context, op *operation, rec *Record) error {
	if rec.PrimaryKey() == nil && r.idGen != nil {
		rec.Set(rec.spec.PrimaryKey, r.idGen.Generate())
	}
	pairs := rec.setPairs()
	if len(pairs) == 0 {
		return fmt.Errorf("record has no set fields to insert")
	}
	sql, params, err := r.compiler.CompileInsert(rec.spec.Table, pairs)
	if err != nil {
		return err
	}
	_, err = op.exec(ctx, "insert", sql, params)
	return err
}

// executeUpdate UPDATEs the changed fields, filtered by the record's
// identity condition. No changed fields is a no-op, not an error.
func (r *Runner) executeUpdate(ctx context.Context, op *operation, rec *Record) error {
	pairs := rec.setPairs()
	if len(pairs) == 0 {
		return nil
	}
	if rec.PrimaryKey() == nil {
		return fmt.Errorf("record has no primary key value")
	}
	sql, params, err := r.compiler.CompileUpdate(rec.spec.Table, pairs, rec.identityCond())
	if err != nil {
		return err
	}
	_, err = op.exec(ctx, "update", sql, params)
	return err
}

func (r *Runner) executeDelete(ctx context.Context, op *operation, rec *Record) error {
	if rec.PrimaryKey() == nil {
		return fmt.Errorf("record has no primary key value")
	}
	sql, params, err := r.compiler.CompileDelete(rec.spec.Table, rec.identityCond())
	if err != nil {
		return err
	}
	_, err = op.exec(ctx, "delete", sql, params)
	return err
}

func (r *Runner) execDirect(ctx context.Context, verb, sql string, params []any) (int64, error) {
	r.logger.DebugContext(ctx, "executing statement", "sql", sql, "params", len(params))
	n, err := r.exec.Exec(ctx, sql, params)
	if err != nil {
		return 0, &ExecutorError{Op: verb, Err: err}
	}
	return n, nil
}
