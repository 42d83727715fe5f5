package engine

import (
	"fmt"
	"regexp"
	"strings"
)

// ComparisonOp is the closed set of relational operators usable in a
// Condition's Comparison variant (spec §4.4.1).
type ComparisonOp string

const (
	CmpEq ComparisonOp = "Eq"
	CmpNe ComparisonOp = "Ne"
	CmpGt ComparisonOp = "Gt"
	CmpGe ComparisonOp = "Ge"
	CmpLt ComparisonOp = "Lt"
	CmpLe ComparisonOp = "Le"
)

// ConditionKind is the closed set of WHERE-clause predicate shapes.
type ConditionKind int

const (
	CondComparison ConditionKind = iota
	CondContains
	CondStartsWith
	CondEndsWith
	CondMatches
	CondExists
	CondIsNull
	CondAnd
	CondOr
	CondNot
)

// Condition is a WHERE-clause predicate, evaluated against a dynamic value
// tree rooted at a block (spec §4.3.1, §4.4.2).
type Condition struct {
	Kind ConditionKind

	Path Path
	Op   ComparisonOp
	Value Value

	Prefix string
	Suffix string
	Regex  string

	Left  *Condition
	Right *Condition
}

// Eval evaluates c against root (typically a block rendered via
// Value.ToAny or an equivalent map[string]any tree).
func Eval(root any, c Condition) (bool, error) {
	switch c.Kind {
	case CondComparison:
		return evalComparison(root, c)
	case CondContains:
		return evalContains(root, c)
	case CondStartsWith:
		v, err := Get(root, c.Path)
		if err != nil {
			return false, nil
		}
		s, ok := v.(string)
		return ok && strings.HasPrefix(s, c.Prefix), nil
	case CondEndsWith:
		v, err := Get(root, c.Path)
		if err != nil {
			return false, nil
		}
		s, ok := v.(string)
		return ok && strings.HasSuffix(s, c.Suffix), nil
	case CondMatches:
		v, err := Get(root, c.Path)
		if err != nil {
			return false, nil
		}
		s, ok := v.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp.Compile(c.Regex)
		if err != nil {
			return false, fmt.Errorf("engine: invalid MATCHES regex %q: %w", c.Regex, err)
		}
		return re.MatchString(s), nil
	case CondExists:
		_, err := Get(root, c.Path)
		return err == nil, nil
	case CondIsNull:
		v, err := Get(root, c.Path)
		if err != nil {
			return true, nil
		}
		return v == nil, nil
	case CondAnd:
		l, err := Eval(root, *c.Left)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return Eval(root, *c.Right)
	case CondOr:
		l, err := Eval(root, *c.Left)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return Eval(root, *c.Right)
	case CondNot:
		v, err := Eval(root, *c.Left)
		if err != nil {
			return false, err
		}
		return !v, nil
	default:
		return false, fmt.Errorf("engine: unknown condition kind %v", c.Kind)
	}
}

func evalComparison(root any, c Condition) (bool, error) {
	v, err := Get(root, c.Path)
	if err != nil {
		return false, nil
	}
	target := c.Value.ToAny()

	if vn, ok := v.(float64); ok {
		if tn, ok := target.(float64); ok {
			return compareNumbers(vn, tn, c.Op), nil
		}
	}
	if vs, ok := v.(string); ok {
		if ts, ok := target.(string); ok {
			return compareStrings(vs, ts, c.Op), nil
		}
	}
	switch c.Op {
	case CmpEq:
		return valuesEqual(v, target), nil
	case CmpNe:
		return !valuesEqual(v, target), nil
	default:
		return false, fmt.Errorf("engine: comparison %s not defined for %T vs %T", c.Op, v, target)
	}
}

func compareNumbers(a, b float64, op ComparisonOp) bool {
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpGt:
		return a > b
	case CmpGe:
		return a >= b
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	default:
		return false
	}
}

func compareStrings(a, b string, op ComparisonOp) bool {
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpGt:
		return a > b
	case CmpGe:
		return a >= b
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	default:
		return false
	}
}

func evalContains(root any, c Condition) (bool, error) {
	v, err := Get(root, c.Path)
	if err != nil {
		return false, nil
	}
	target := c.Value.ToAny()
	switch vv := v.(type) {
	case string:
		ts, ok := target.(string)
		return ok && strings.Contains(vv, ts), nil
	case []any:
		for _, e := range vv {
			if valuesEqual(e, target) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}
