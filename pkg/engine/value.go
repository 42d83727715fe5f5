// Package engine is the sole mutator of documents: a closed operation set,
// a configurable validation pipeline, transactions with savepoints, named
// snapshots, and the state-hash/version bookkeeping that follows every
// successful mutation (spec §4.3).
package engine

import (
	"fmt"

	"github.com/kittclouds/ucp/internal/blockid"
)

// ValueKind is the closed set of shapes a dynamically-typed Value can take,
// the untagged literal used throughout Edit/Link/WHERE-clause values
// (spec §4.3.1, ported from the Value enum in the UCL grammar).
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueNumber
	ValueString
	ValueArray
	ValueObject
	ValueBlockRef
)

// Value is a dynamically-typed literal used by Edit operations and WHERE
// clauses. Exactly one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number float64
	String string
	Array  []Value
	Object map[string]Value
	Ref    blockid.BlockId
}

func Null() Value                  { return Value{Kind: ValueNull} }
func Bool(b bool) Value            { return Value{Kind: ValueBool, Bool: b} }
func Number(n float64) Value       { return Value{Kind: ValueNumber, Number: n} }
func String(s string) Value        { return Value{Kind: ValueString, String: s} }
func Array(v []Value) Value        { return Value{Kind: ValueArray, Array: v} }
func Object(m map[string]Value) Value { return Value{Kind: ValueObject, Object: m} }
func BlockRef(id blockid.BlockId) Value { return Value{Kind: ValueBlockRef, Ref: id} }

// ToAny converts a Value into a plain Go value suitable for JSON encoding
// or generic comparisons.
func (v Value) ToAny() any {
	switch v.Kind {
	case ValueNull:
		return nil
	case ValueBool:
		return v.Bool
	case ValueNumber:
		return v.Number
	case ValueString:
		return v.String
	case ValueArray:
		out := make([]any, len(v.Array))
		for i, e := range v.Array {
			out[i] = e.ToAny()
		}
		return out
	case ValueObject:
		out := make(map[string]any, len(v.Object))
		for k, e := range v.Object {
			out[k] = e.ToAny()
		}
		return out
	case ValueBlockRef:
		return map[string]any{"$ref": v.Ref.String()}
	default:
		return nil
	}
}

// FromAny lifts a plain Go value (as produced by encoding/json.Unmarshal
// into `any`) into a Value.
func FromAny(a any) (Value, error) {
	switch t := a.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Number(float64(t)), nil
	case string:
		return String(t), nil
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return Array(out), nil
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, err
			}
			out[k] = v
		}
		return Object(out), nil
	default:
		return Value{}, fmt.Errorf("engine: cannot lift %T into Value", a)
	}
}

// IsNumeric reports whether v can serve as the operand of a numeric
// operator (Increment/Decrement and numeric Set).
func (v Value) IsNumeric() bool {
	return v.Kind == ValueNumber
}
