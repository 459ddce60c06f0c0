package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FieldShorthandIsEquality(t *testing.T) {
	t.Parallel()

	expr, err := Parse(map[string]any{"name": "Alice"})
	require.NoError(t, err)

	assert.Equal(t, Eq("name", "Alice"), expr)
}

func TestParse_ObjectLiteralIsEquality(t *testing.T) {
	t.Parallel()

	literal := map[string]any{"city": "Berlin"}
	expr, err := Parse(map[string]any{"address": literal})
	require.NoError(t, err)

	assert.Equal(t, Eq("address", literal), expr)
	assert.True(t, Match(expr, map[string]any{"address": map[string]any{"city": "Berlin"}}))
}

func TestParse_OperatorSetAndAliases(t *testing.T) {
	t.Parallel()

	expr, err := Parse(map[string]any{
		"age": map[string]any{"$gt": 20, "$lessThanOrEqual": 40},
	})
	require.NoError(t, err)

	fp, ok := expr.(FieldPredicate)
	require.True(t, ok, "single field must parse to a bare predicate, got %T", expr)
	assert.Equal(t, "age", fp.Field)
	assert.ElementsMatch(t, []Op{OpGreaterThan, OpLessThanOrEqual}, []Op{fp.Conds[0].Op, fp.Conds[1].Op})
}

func TestParse_LogicalWithSiblingFields(t *testing.T) {
	t.Parallel()

	expr, err := Parse(map[string]any{
		"$or":    []any{map[string]any{"role": "admin"}, map[string]any{"role": "ops"}},
		"active": true,
	})
	require.NoError(t, err)

	and, ok := expr.(And)
	require.True(t, ok, "logical key plus fields must combine with AND, got %T", expr)
	assert.Len(t, and.Exprs, 2)

	assert.True(t, Match(expr, map[string]any{"role": "ops", "active": true}))
	assert.False(t, Match(expr, map[string]any{"role": "ops", "active": false}), "sibling field must not be dropped")
	assert.False(t, Match(expr, map[string]any{"role": "dev", "active": true}))
}

func TestParse_Nested(t *testing.T) {
	t.Parallel()

	expr, err := ParseJSON([]byte(`{
		"$and": [
			{"age": {"$greaterThanOrEqual": 18}},
			{"$not": {"status": "banned"}},
			{"$or": [{"tags": {"$in": ["a"]}}, {"tags": {"$arraySize": 0}}]}
		]
	}`))
	require.NoError(t, err)

	assert.True(t, Match(expr, map[string]any{"age": float64(20), "status": "ok", "tags": []any{"a", "b"}}))
	assert.True(t, Match(expr, map[string]any{"age": float64(20), "tags": []any{}}))
	assert.False(t, Match(expr, map[string]any{"age": float64(20), "status": "banned", "tags": []any{"a"}}))
	assert.False(t, Match(expr, map[string]any{"age": float64(17), "tags": []any{"a"}}))
}

func TestParse_EmptyObjectMatchesAll(t *testing.T) {
	t.Parallel()

	expr, err := Parse(map[string]any{})
	require.NoError(t, err)
	assert.True(t, Match(expr, map[string]any{"x": 1}))
}

func TestParse_EmptyLogicalArrays(t *testing.T) {
	t.Parallel()

	and, err := Parse(map[string]any{"$and": []any{}})
	require.NoError(t, err)
	assert.True(t, Match(and, map[string]any{}))

	or, err := Parse(map[string]any{"$or": []any{}})
	require.NoError(t, err)
	assert.False(t, Match(or, map[string]any{}))
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   map[string]any
	}{
		{"unknown logical key", map[string]any{"$nor": []any{}}},
		{"and not array", map[string]any{"$and": map[string]any{"a": 1}}},
		{"or item not object", map[string]any{"$or": []any{"x"}}},
		{"not not object", map[string]any{"$not": []any{}}},
		{"unknown field operator", map[string]any{"a": map[string]any{"$between": []any{1, 2}}}},
		{"mixed operator and plain keys", map[string]any{"a": map[string]any{"$equals": 1, "b": 2}}},
		{"in operand not array", map[string]any{"a": map[string]any{"$in": "x"}}},
		{"exists operand not bool", map[string]any{"a": map[string]any{"$exists": 1}}},
		{"regex does not compile", map[string]any{"a": map[string]any{"$regex": "("}}},
		{"regex operand not string", map[string]any{"a": map[string]any{"$regex": 5}}},
		{"arraySize negative", map[string]any{"a": map[string]any{"$arraySize": -1}}},
		{"arraySize fractional", map[string]any{"a": map[string]any{"$arraySize": 1.5}}},
		{"nested error surfaces", map[string]any{"$and": []any{map[string]any{"$not": "x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestParseJSON_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseJSON([]byte(`{"a":`))
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
