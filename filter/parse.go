package filter

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// ErrInvalidFilter is returned for filter documents that cannot be turned into an [Expr]
var ErrInvalidFilter = errors.New("docfs: invalid filter")

// ParseJSON decodes a JSON filter object and parses it
func ParseJSON(data []byte) (Expr, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return Parse(m)
}

// Parse converts the object form of a filter into an [Expr].
//
// Logical keys ($and, $or, $not) and field predicates found in the same object are
// combined with AND. An empty object matches every document.
func Parse(m map[string]any) (Expr, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conj := make([]Expr, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		switch k {
		case KeyAnd, KeyOr:
			subs, err := parseList(k, v)
			if err != nil {
				return nil, err
			}
			if k == KeyAnd {
				conj = append(conj, And{Exprs: subs})
			} else {
				conj = append(conj, Or{Exprs: subs})
			}
		case KeyNot:
			sm, ok := asObject(v)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects an object, got %T", ErrInvalidFilter, k, v)
			}
			sub, err := Parse(sm)
			if err != nil {
				return nil, err
			}
			conj = append(conj, Not{Expr: sub})
		default:
			if strings.HasPrefix(k, "$") {
				return nil, fmt.Errorf("%w: unknown logical operator %q", ErrInvalidFilter, k)
			}
			fp, err := parseField(k, v)
			if err != nil {
				return nil, err
			}
			conj = append(conj, fp)
		}
	}

	if len(conj) == 1 {
		return conj[0], nil
	}
	return And{Exprs: conj}, nil
}

func parseList(key string, v any) ([]Expr, error) {
	items, ok := toSlice(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects an array, got %T", ErrInvalidFilter, key, v)
	}
	subs := make([]Expr, 0, len(items))
	for i, item := range items {
		sm, ok := asObject(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be an object, got %T", ErrInvalidFilter, key, i, item)
		}
		sub, err := Parse(sm)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// parseField treats an object made only of operator keys as an operator set; any
// other value is an equality literal.
func parseField(field string, v any) (FieldPredicate, error) {
	m, ok := asObject(v)
	if !ok || len(m) == 0 {
		return Eq(field, v), nil
	}

	opKeys := 0
	for k := range m {
		if strings.HasPrefix(k, "$") {
			opKeys++
		}
	}
	switch {
	case opKeys == 0:
		return Eq(field, v), nil
	case opKeys != len(m):
		return FieldPredicate{}, fmt.Errorf("%w: field %q mixes operators and plain keys", ErrInvalidFilter, field)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]Cond, 0, len(keys))
	for _, k := range keys {
		op, ok := LookupOp(k)
		if !ok {
			return FieldPredicate{}, fmt.Errorf("%w: unknown operator %q on field %q", ErrInvalidFilter, k, field)
		}
		c, err := newCond(op, m[k])
		if err != nil {
			return FieldPredicate{}, fmt.Errorf("%w: field %q: %w", ErrInvalidFilter, field, err)
		}
		conds = append(conds, c)
	}
	return Where(field, conds...), nil
}

// newCond checks operand shapes up front so evaluation never has to
func newCond(op Op, v any) (Cond, error) {
	switch op {
	case OpIn, OpNotIn:
		vals, ok := toSlice(v)
		if !ok {
			return Cond{}, fmt.Errorf("%s expects an array, got %T", op, v)
		}
		return Cond{Op: op, Value: vals}, nil
	case OpExists:
		b, ok := v.(bool)
		if !ok {
			return Cond{}, fmt.Errorf("%s expects a boolean, got %T", op, v)
		}
		return Exists(b), nil
	case OpRegex:
		switch p := v.(type) {
		case string:
			return Regex(p)
		case *regexp.Regexp:
			return Cond{Op: op, Value: p.String(), re: p}, nil
		default:
			return Cond{}, fmt.Errorf("%s expects a string pattern, got %T", op, v)
		}
	case OpArraySize:
		f, ok := toFloat(v)
		if !ok || f < 0 || f != float64(int(f)) {
			return Cond{}, fmt.Errorf("%s expects a non-negative integer, got %v", op, v)
		}
		return ArraySize(int(f)), nil
	default:
		return Cond{Op: op, Value: v}, nil
	}
}
