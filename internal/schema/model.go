// Package schema compiles CUE model definitions into ModelSpecs.
//
// A model definition declares the table a record type is bound to, its
// primary key, its columns, and whether persistence operations wrap their
// hook sequence in a transaction:
//
//	model: Item: {
//		table:       "items"
//		primary_key: "id"
//		columns: {
//			id:    "string"
//			name:  "string"
//			price: "int"
//		}
//		use_transactions: true
//	}
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"
)

// ColumnSpec describes one column of a model's table.
type ColumnSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ModelSpec is the compiled form of a CUE model definition.
type ModelSpec struct {
	// Name is the model's label in the CUE file.
	Name string `json:"name"`

	// Table is the bound table name.
	Table string `json:"table"`

	// PrimaryKey is the identity column. Required.
	PrimaryKey string `json:"primary_key"`

	// Columns lists the table's columns in CUE declaration order.
	Columns []ColumnSpec `json:"columns"`

	// UseTransactions controls whether save/destroy wrap their hook
	// sequence in a transaction. Read once at operation start.
	UseTransactions bool `json:"use_transactions"`
}

// Column returns the spec for a named column, or false if unknown.
func (m *ModelSpec) Column(name string) (ColumnSpec, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// CompileError represents a model definition compilation error with source
// position information.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// columnTypes are the scalar types a column may declare.
var columnTypes = map[string]bool{
	"string":  true,
	"int":     true,
	"float":   true,
	"decimal": true,
	"bool":    true,
	"time":    true,
	"bytes":   true,
}

// CompileModel parses a CUE value into a ModelSpec. The value should be the
// model struct itself, e.g. the result of looking up "model.Item".
func CompileModel(v cue.Value) (*ModelSpec, error) {
	if err := v.Err(); err != nil {
		return nil, &CompileError{Field: "model", Message: err.Error(), Pos: v.Pos()}
	}

	spec := &ModelSpec{}

	// Model name comes from the struct label (the path selector).
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	table, err := requiredString(v, "table")
	if err != nil {
		return nil, err
	}
	spec.Table = table

	pk, err := requiredString(v, "primary_key")
	if err != nil {
		return nil, err
	}
	spec.PrimaryKey = pk

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{Field: "columns", Message: "columns is required", Pos: v.Pos()}
	}
	iter, err2 := colsVal.Fields()
	if err2 != nil {
		return nil, &CompileError{Field: "columns", Message: err2.Error(), Pos: colsVal.Pos()}
	}
	for iter.Next() {
		name := iter.Label()
		typ, err2 := iter.Value().String()
		if err2 != nil {
			return nil, &CompileError{Field: "columns." + name, Message: "column type must be a string", Pos: iter.Value().Pos()}
		}
		if !columnTypes[typ] {
			return nil, &CompileError{Field: "columns." + name, Message: fmt.Sprintf("unknown column type %q", typ), Pos: iter.Value().Pos()}
		}
		spec.Columns = append(spec.Columns, ColumnSpec{Name: name, Type: typ})
	}
	if len(spec.Columns) == 0 {
		return nil, &CompileError{Field: "columns", Message: "at least one column is required", Pos: colsVal.Pos()}
	}

	if _, ok := spec.Column(spec.PrimaryKey); !ok {
		return nil, &CompileError{
			Field:   "primary_key",
			Message: fmt.Sprintf("primary key %q is not a declared column", spec.PrimaryKey),
			Pos:     v.Pos(),
		}
	}

	// use_transactions defaults to true when omitted.
	spec.UseTransactions = true
	txVal := v.LookupPath(cue.ParsePath("use_transactions"))
	if txVal.Exists() {
		b, err2 := txVal.Bool()
		if err2 != nil {
			return nil, &CompileError{Field: "use_transactions", Message: "must be a boolean", Pos: txVal.Pos()}
		}
		spec.UseTransactions = b
	}

	return spec, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	if s == "" {
		return "", &CompileError{Field: field, Message: field + " must not be empty", Pos: fv.Pos()}
	}
	return s, nil
}
