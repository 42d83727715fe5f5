package engine

import "fmt"

// Operator is the closed set of mutation operators an Edit can apply to the
// value addressed by its path (spec §4.3.1).
type Operator string

const (
	OpSet       Operator = "Set"
	OpAppend    Operator = "Append"
	OpRemove    Operator = "Remove"
	OpIncrement Operator = "Increment"
	OpDecrement Operator = "Decrement"
)

// ApplyOperator computes the new value at a path given its current value,
// the operator, and the operand supplied by the Edit.
func ApplyOperator(current any, op Operator, operand Value) (any, error) {
	switch op {
	case OpSet:
		return operand.ToAny(), nil
	case OpAppend:
		return applyAppend(current, operand)
	case OpRemove:
		return applyRemove(current, operand)
	case OpIncrement:
		return applyArithmetic(current, operand, 1)
	case OpDecrement:
		return applyArithmetic(current, operand, -1)
	default:
		return nil, fmt.Errorf("engine: unknown operator %q", op)
	}
}

func applyAppend(current any, operand Value) (any, error) {
	switch c := current.(type) {
	case string:
		s, ok := asString(operand)
		if !ok {
			return nil, fmt.Errorf("engine: Append onto string requires a string operand")
		}
		return c + s, nil
	case []any:
		return append(c, operand.ToAny()), nil
	case nil:
		return append([]any{}, operand.ToAny()), nil
	default:
		return nil, fmt.Errorf("engine: Append unsupported on %T", current)
	}
}

func applyRemove(current any, operand Value) (any, error) {
	switch c := current.(type) {
	case []any:
		target := operand.ToAny()
		out := make([]any, 0, len(c))
		for _, e := range c {
			if !valuesEqual(e, target) {
				out = append(out, e)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("engine: Remove unsupported on %T", current)
	}
}

func applyArithmetic(current any, operand Value, sign float64) (any, error) {
	n, ok := asNumber(current)
	if !ok {
		return nil, fmt.Errorf("engine: Increment/Decrement requires a numeric target, got %T", current)
	}
	delta := 1.0
	if operand.IsNumeric() {
		delta = operand.Number
	}
	return n + sign*delta, nil
}

func asString(v Value) (string, bool) {
	if v.Kind == ValueString {
		return v.String, true
	}
	return "", false
}

func asNumber(v any) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}

func valuesEqual(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af == bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		return ab == bb
	}
	return a == nil && b == nil
}
