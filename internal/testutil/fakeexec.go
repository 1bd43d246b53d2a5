package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/benarmston/sequel/internal/lifecycle"
)

// Statement is one executed statement captured by the fake executor.
type Statement struct {
	SQL    string
	Params []any
	InTx   bool
}

// FakeExecutor implements lifecycle.Executor in memory, recording every
// statement and transaction boundary. FailOn makes any statement whose SQL
// contains the substring fail, for exercising rollback paths.
type FakeExecutor struct {
	mu         sync.Mutex
	Statements []Statement
	Begun      int
	Committed  int
	RolledBack int
	FailOn     string
}

// NewFakeExecutor creates an empty fake executor.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{}
}

// Exec records the statement. Implements lifecycle.Executor.
func (f *FakeExecutor) Exec(ctx context.Context, sql string, params []any) (int64, error) {
	return f.record(sql, params, false)
}

// Begin opens a recording transaction scope. Implements lifecycle.Executor.
func (f *FakeExecutor) Begin(ctx context.Context) (lifecycle.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Begun++
	return &fakeTx{exec: f}, nil
}

// SQLLog returns the SQL text of every recorded statement, in order.
func (f *FakeExecutor) SQLLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Statements))
	for i, s := range f.Statements {
		out[i] = s.SQL
	}
	return out
}

func (f *FakeExecutor) record(sql string, params []any, inTx bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailOn != "" && strings.Contains(sql, f.FailOn) {
		return 0, fmt.Errorf("forced failure on %q", f.FailOn)
	}
	f.Statements = append(f.Statements, Statement{SQL: sql, Params: params, InTx: inTx})
	return 1, nil
}

type fakeTx struct {
	exec *FakeExecutor
	done bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, params []any) (int64, error) {
	return t.exec.record(sql, params, true)
}

func (t *fakeTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.exec.mu.Lock()
	defer t.exec.mu.Unlock()
	t.exec.Committed++
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	t.exec.mu.Lock()
	defer t.exec.mu.Unlock()
	t.exec.RolledBack++
	return nil
}
