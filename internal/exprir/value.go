package exprir

import (
	"fmt"
	"time"
)

// Value is a sealed interface representing the scalar types that may appear
// as bound parameters or literals in an expression tree. Only the types in
// this package implement it, which keeps the compiler's type switches
// exhaustive.
type Value interface {
	sqlValue() // Sealed - only these types implement it
}

// Null represents SQL NULL.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) sqlValue() {}

// String represents a text value.
type String string

func (String) sqlValue() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) sqlValue() {}

// Float represents a double-precision value.
type Float float64

func (Float) sqlValue() {}

// Decimal represents an exact numeric value carried as its textual form.
// The database parses it; the compiler never does arithmetic on it.
type Decimal string

func (Decimal) sqlValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) sqlValue() {}

// Time represents a date/time value.
type Time time.Time

func (Time) sqlValue() {}

// Bytes represents a binary blob value.
type Bytes []byte

func (Bytes) sqlValue() {}

// Regexp represents a regular-expression pattern. When used as the
// right-hand side of LIKE or ILIKE the compiler switches to the dialect's
// regex-match operator instead of LIKE.
type Regexp struct {
	Pattern         string
	CaseInsensitive bool
}

func (Regexp) sqlValue() {}

// invalid marks a scalar that could not be converted to a Value. It is
// produced by Lit for unsupported Go types and surfaces as an
// InvalidExpression error at compile time, never silently.
type invalid struct {
	reason string
}

func (invalid) sqlValue() {}

// ValueOf converts a native Go scalar to a Value.
//
// Accepted types: nil, Value (passthrough), string, bool, all signed and
// unsigned integer types, float32/float64, time.Time, []byte.
// Anything else is an error - callers that need an unconverted fragment
// must use Raw explicitly.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("uint64 value %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case time.Time:
		return Time(val), nil
	case []byte:
		return Bytes(val), nil
	default:
		return nil, fmt.Errorf("unsupported scalar type %T", v)
	}
}

// Param converts a Value to the native Go type expected by database/sql
// drivers. Regexp values bind their pattern text; the surrounding operator
// is the compiler's concern.
func Param(v Value) (any, error) {
	switch val := v.(type) {
	case Null:
		return nil, nil
	case String:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Float:
		return float64(val), nil
	case Decimal:
		return string(val), nil
	case Bool:
		return bool(val), nil
	case Time:
		return time.Time(val), nil
	case Bytes:
		return []byte(val), nil
	case Regexp:
		return val.Pattern, nil
	case invalid:
		return nil, fmt.Errorf("invalid literal: %s", val.reason)
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}
