// Package filter evaluates MongoDB-style query expressions against decoded JSON documents.
//
// An expression is a small tagged-variant tree:
//
//	FieldPredicate{Field, Conds}   // every Cond must hold for the field
//	And{Exprs} / Or{Exprs}        // logical composition
//	Not{Expr}
//
// Expressions are usually parsed from the familiar object form
//
//	{"age": {"$greaterThan": 27}, "$or": [{"role": "admin"}, {"tags": {"$in": ["ops"]}}]}
//
// with [Parse], or built directly in Go with the helpers in this file.
package filter

import (
	"regexp"
)

// Op names a field-level operator
type Op string

const (
	OpEquals             Op = "$equals"
	OpNotEquals          Op = "$notEquals"
	OpGreaterThan        Op = "$greaterThan"
	OpGreaterThanOrEqual Op = "$greaterThanOrEqual"
	OpLessThan           Op = "$lessThan"
	OpLessThanOrEqual    Op = "$lessThanOrEqual"
	OpIn                 Op = "$in"
	OpNotIn              Op = "$notIn"
	OpExists             Op = "$exists"
	OpRegex              Op = "$regex"
	OpArraySize          Op = "$arraySize"
)

// Document-level logical keys
const (
	KeyAnd = "$and"
	KeyOr  = "$or"
	KeyNot = "$not"
)

// aliases accepts the short MongoDB spellings as well
var aliases = map[string]Op{
	"$eq":   OpEquals,
	"$ne":   OpNotEquals,
	"$gt":   OpGreaterThan,
	"$gte":  OpGreaterThanOrEqual,
	"$lt":   OpLessThan,
	"$lte":  OpLessThanOrEqual,
	"$nin":  OpNotIn,
	"$size": OpArraySize,
}

var knownOps = map[Op]struct{}{
	OpEquals: {}, OpNotEquals: {},
	OpGreaterThan: {}, OpGreaterThanOrEqual: {}, OpLessThan: {}, OpLessThanOrEqual: {},
	OpIn: {}, OpNotIn: {}, OpExists: {}, OpRegex: {}, OpArraySize: {},
}

// LookupOp resolves an operator key, including aliases
func LookupOp(key string) (Op, bool) {
	if op, ok := aliases[key]; ok {
		return op, true
	}
	op := Op(key)
	_, ok := knownOps[op]
	return op, ok
}

// Expr is a node of a filter expression tree. The set of implementations is closed:
// [FieldPredicate], [And], [Or] and [Not].
type Expr interface {
	isExpr()
}

// FieldPredicate requires every Cond to hold for the named field.
// Field names containing dots reach into nested objects when no literal key matches.
type FieldPredicate struct {
	Field string
	Conds []Cond
}

// Cond is a single operator applied to a field
type Cond struct {
	Op    Op
	Value any

	re *regexp.Regexp // compiled form of a $regex operand
}

// And matches when all Exprs match; an empty And matches everything
type And struct {
	Exprs []Expr
}

// Or matches when at least one Expr matches; an empty Or matches nothing
type Or struct {
	Exprs []Expr
}

// Not inverts Expr
type Not struct {
	Expr Expr
}

func (FieldPredicate) isExpr() {}
func (And) isExpr()            {}
func (Or) isExpr()             {}
func (Not) isExpr()            {}

// Where builds a field predicate from conditions
func Where(field string, conds ...Cond) FieldPredicate {
	return FieldPredicate{Field: field, Conds: conds}
}

// Eq is shorthand for Where(field, Equals(v))
func Eq(field string, v any) FieldPredicate {
	return Where(field, Equals(v))
}

func AllOf(exprs ...Expr) And { return And{Exprs: exprs} }
func AnyOf(exprs ...Expr) Or  { return Or{Exprs: exprs} }
func Negate(e Expr) Not       { return Not{Expr: e} }

func Equals(v any) Cond             { return Cond{Op: OpEquals, Value: v} }
func NotEquals(v any) Cond          { return Cond{Op: OpNotEquals, Value: v} }
func GreaterThan(v any) Cond        { return Cond{Op: OpGreaterThan, Value: v} }
func GreaterThanOrEqual(v any) Cond { return Cond{Op: OpGreaterThanOrEqual, Value: v} }
func LessThan(v any) Cond           { return Cond{Op: OpLessThan, Value: v} }
func LessThanOrEqual(v any) Cond    { return Cond{Op: OpLessThanOrEqual, Value: v} }
func In(vals ...any) Cond           { return Cond{Op: OpIn, Value: vals} }
func NotIn(vals ...any) Cond        { return Cond{Op: OpNotIn, Value: vals} }
func Exists(want bool) Cond         { return Cond{Op: OpExists, Value: want} }
func ArraySize(n int) Cond          { return Cond{Op: OpArraySize, Value: n} }

// Regex compiles pattern once; invalid patterns are reported here rather than at match time
func Regex(pattern string) (Cond, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Cond{}, err
	}
	return Cond{Op: OpRegex, Value: pattern, re: re}, nil
}

// MustRegex is [Regex] that panics on an invalid pattern, for static patterns
func MustRegex(pattern string) Cond {
	c, err := Regex(pattern)
	if err != nil {
		panic(err)
	}
	return c
}
