// Package testutil provides deterministic helpers for lifecycle tests:
// a hook trace recorder and a fake executor.
package testutil

import (
	"context"
	"sync"

	"github.com/benarmston/sequel/internal/lifecycle"
)

// HookTrace records hook invocations in order, for asserting on lifecycle
// sequencing.
type HookTrace struct {
	mu     sync.Mutex
	events []string
}

// NewHookTrace creates an empty trace.
func NewHookTrace() *HookTrace {
	return &HookTrace{}
}

// Append records an event.
func (t *HookTrace) Append(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

// Events returns a copy of the recorded events.
func (t *HookTrace) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.events))
	copy(out, t.events)
	return out
}

// Hook returns a recording hook that proceeds.
func (t *HookTrace) Hook(label string) lifecycle.Hook {
	return func(ctx context.Context, rec *lifecycle.Record) (lifecycle.HookOutcome, error) {
		t.Append(label)
		return lifecycle.Proceed, nil
	}
}

// HaltingHook returns a recording hook that halts.
func (t *HookTrace) HaltingHook(label string) lifecycle.Hook {
	return func(ctx context.Context, rec *lifecycle.Record) (lifecycle.HookOutcome, error) {
		t.Append(label)
		return lifecycle.Halt, nil
	}
}

// FailingHook returns a recording hook that errors.
func (t *HookTrace) FailingHook(label string, err error) lifecycle.Hook {
	return func(ctx context.Context, rec *lifecycle.Record) (lifecycle.HookOutcome, error) {
		t.Append(label)
		return lifecycle.Proceed, err
	}
}
