package filter

import (
	"regexp"
	"strings"
)

// Match reports whether doc satisfies e. A nil expression matches everything.
// Documents that are not JSON objects have no fields, so field predicates see every
// field as absent.
func Match(e Expr, doc any) bool {
	switch x := e.(type) {
	case nil:
		return true
	case And:
		for _, sub := range x.Exprs {
			if !Match(sub, doc) {
				return false
			}
		}
		return true
	case Or:
		for _, sub := range x.Exprs {
			if Match(sub, doc) {
				return true
			}
		}
		return false
	case Not:
		return !Match(x.Expr, doc)
	case FieldPredicate:
		return matchField(x, doc)
	case *And:
		return x != nil && Match(*x, doc)
	case *Or:
		return x != nil && Match(*x, doc)
	case *Not:
		return x != nil && Match(*x, doc)
	case *FieldPredicate:
		return x != nil && Match(*x, doc)
	default:
		return false
	}
}

func matchField(fp FieldPredicate, doc any) bool {
	val, present := lookup(doc, fp.Field)
	for _, c := range fp.Conds {
		if !c.holds(val, present) {
			return false
		}
	}
	return true
}

// lookup finds field in doc; a literal key wins over dotted traversal
func lookup(doc any, field string) (any, bool) {
	m, ok := asObject(doc)
	if !ok {
		return nil, false
	}
	if v, ok := m[field]; ok {
		return v, true
	}
	if !strings.Contains(field, ".") {
		return nil, false
	}

	var cur any = m
	for _, part := range strings.Split(field, ".") {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// holds evaluates one operator. Absent fields behave like null except for $exists.
func (c Cond) holds(val any, present bool) bool {
	switch c.Op {
	case OpEquals:
		return equal(val, c.Value)
	case OpNotEquals:
		return !equal(val, c.Value)
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return c.ordered(val)
	case OpIn:
		return in(val, c.Value)
	case OpNotIn:
		return !in(val, c.Value)
	case OpExists:
		want, _ := c.Value.(bool)
		return (present && val != nil) == want
	case OpRegex:
		s, ok := val.(string)
		if !ok {
			return false
		}
		re := c.re
		if re == nil {
			pattern, _ := c.Value.(string)
			var err error
			if re, err = regexp.Compile(pattern); err != nil {
				return false
			}
		}
		return re.MatchString(s)
	case OpArraySize:
		arr, ok := toSlice(val)
		if !ok {
			return false
		}
		n, ok := toFloat(c.Value)
		return ok && float64(len(arr)) == n
	default:
		return false
	}
}

func (c Cond) ordered(val any) bool {
	if c.Value == nil {
		return true
	}
	if val == nil {
		return false
	}
	r, ok := compare(val, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpGreaterThan:
		return r > 0
	case OpGreaterThanOrEqual:
		return r >= 0
	case OpLessThan:
		return r < 0
	default:
		return r <= 0
	}
}

// in tests membership of val (or, for array fields, any of its elements) in operand
func in(val, operand any) bool {
	set, ok := toSlice(operand)
	if !ok {
		return false
	}
	if arr, ok := toSlice(val); ok {
		for _, elem := range arr {
			if contains(set, elem) {
				return true
			}
		}
		return false
	}
	return contains(set, val)
}

func contains(set []any, v any) bool {
	for _, s := range set {
		if equal(s, v) {
			return true
		}
	}
	return false
}
