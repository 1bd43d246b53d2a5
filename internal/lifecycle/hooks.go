package lifecycle

import "context"

// Stage names a lifecycle hook point.
type Stage string

const (
	StageAfterInitialize  Stage = "after_initialize"
	StageBeforeValidation Stage = "before_validation"
	StageAfterValidation  Stage = "after_validation"
	StageBeforeSave       Stage = "before_save"
	StageAfterSave        Stage = "after_save"
	StageBeforeCreate     Stage = "before_create"
	StageAfterCreate      Stage = "after_create"
	StageBeforeUpdate     Stage = "before_update"
	StageAfterUpdate      Stage = "after_update"
	StageBeforeDestroy    Stage = "before_destroy"
	StageAfterDestroy     Stage = "after_destroy"
)

// HookOutcome is the result of invoking a hook: continue the operation or
// abort it.
type HookOutcome int

const (
	// Proceed continues the operation.
	Proceed HookOutcome = iota
	// Halt aborts the operation without error. Only honored from before-
	// hooks; after-hooks and after_initialize cannot halt.
	Halt
)

// Hook is a lifecycle callback. Returning Halt from a before-stage aborts
// the operation with an Aborted outcome; returning an error fails it.
type Hook func(ctx context.Context, rec *Record) (HookOutcome, error)

// Layer is one source of hook registrations: a base model definition or an
// extension applied on top of it. Hooks registered on the same layer run in
// registration order.
type Layer struct {
	name  string
	hooks map[Stage][]Hook
}

// Name returns the layer's name.
func (l *Layer) Name() string { return l.name }

// On registers a hook for a stage. Returns the layer for chaining.
func (l *Layer) On(stage Stage, h Hook) *Layer {
	l.hooks[stage] = append(l.hooks[stage], h)
	return l
}

// Registry holds hook registrations from an ordered sequence of layers.
//
// Invocation order is fixed by composition: before-hooks run in reverse
// order of layer application (most-recently-applied layer first, base-most
// layer last); after-hooks run in application order (base-most first,
// most-recently-applied last). The invariant holds for any number of
// layers.
type Registry struct {
	layers []*Layer
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Layer appends a new layer and returns it for hook registration. The
// first layer added is the base; later layers are extensions applied on
// top of it.
func (r *Registry) Layer(name string) *Layer {
	l := &Layer{name: name, hooks: make(map[Stage][]Hook)}
	r.layers = append(r.layers, l)
	return l
}

// boundHook pairs a hook with the layer that registered it, for error
// attribution.
type boundHook struct {
	layer string
	fn    Hook
}

// before collects hooks for a before-stage: newest layer first.
func (r *Registry) before(stage Stage) []boundHook {
	var hooks []boundHook
	for i := len(r.layers) - 1; i >= 0; i-- {
		l := r.layers[i]
		for _, h := range l.hooks[stage] {
			hooks = append(hooks, boundHook{layer: l.name, fn: h})
		}
	}
	return hooks
}

// after collects hooks for an after-stage: oldest layer first.
func (r *Registry) after(stage Stage) []boundHook {
	var hooks []boundHook
	for _, l := range r.layers {
		for _, h := range l.hooks[stage] {
			hooks = append(hooks, boundHook{layer: l.name, fn: h})
		}
	}
	return hooks
}
