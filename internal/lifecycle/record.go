package lifecycle

import (
	"sort"

	"github.com/benarmston/sequel/internal/exprir"
	"github.com/benarmston/sequel/internal/schema"
)

// State is a record's persistence state.
type State int

const (
	// StateNew marks a record that has never been inserted.
	StateNew State = iota
	// StatePersisted marks a record bound to an existing row.
	StatePersisted
	// StateDestroyed marks a record whose row has been deleted.
	StateDestroyed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StatePersisted:
		return "persisted"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Record is an entity bound to a table row. The lifecycle runner reads and
// writes its column values and persistence state; the caller owns it.
//
// Records are not safe for concurrent mutation; the runner operates on one
// record at a time.
type Record struct {
	spec    *schema.ModelSpec
	values  map[string]any
	changed map[string]struct{}
	state   State
}

// NewRecord creates an unpersisted record. Every supplied column counts as
// set, so a subsequent create inserts all of them.
func NewRecord(spec *schema.ModelSpec, values map[string]any) *Record {
	r := &Record{
		spec:    spec,
		values:  make(map[string]any, len(values)),
		changed: make(map[string]struct{}, len(values)),
		state:   StateNew,
	}
	for k, v := range values {
		r.values[k] = v
		r.changed[k] = struct{}{}
	}
	return r
}

// LoadRecord creates a record bound to an existing row. No column counts as
// changed until Set is called.
func LoadRecord(spec *schema.ModelSpec, values map[string]any) *Record {
	r := &Record{
		spec:    spec,
		values:  make(map[string]any, len(values)),
		changed: make(map[string]struct{}),
		state:   StatePersisted,
	}
	for k, v := range values {
		r.values[k] = v
	}
	return r
}

// Spec returns the record's model spec.
func (r *Record) Spec() *schema.ModelSpec { return r.spec }

// State returns the record's persistence state.
func (r *Record) State() State { return r.state }

// Set assigns a column value and marks it changed.
func (r *Record) Set(column string, value any) {
	r.values[column] = value
	r.changed[column] = struct{}{}
}

// Get returns a column value.
func (r *Record) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// PrimaryKey returns the value of the primary-key column, nil when unset.
func (r *Record) PrimaryKey() any {
	return r.values[r.spec.PrimaryKey]
}

// ChangedColumns returns the changed column names, sorted for deterministic
// SQL generation.
func (r *Record) ChangedColumns() []string {
	cols := make([]string, 0, len(r.changed))
	for c := range r.changed {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// setPairs snapshots the changed columns as ordered pairs for statement
// compilation.
func (r *Record) setPairs() exprir.Pairs {
	cols := r.ChangedColumns()
	pairs := make(exprir.Pairs, 0, len(cols))
	for _, c := range cols {
		pairs = append(pairs, exprir.Pair{Column: c, Value: r.values[c]})
	}
	return pairs
}

// identityCond is the primary-key filter identifying the record's row.
func (r *Record) identityCond() exprir.Cond {
	return exprir.Cond{r.spec.PrimaryKey: r.values[r.spec.PrimaryKey]}
}

// clearChanged resets change tracking after a successful write.
func (r *Record) clearChanged() {
	r.changed = make(map[string]struct{})
}
