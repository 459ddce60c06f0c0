package validators

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brettbedarf/docfs/config"
	"github.com/brettbedarf/docfs/store"
)

type user struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age" validate:"gte=0,lte=150"`
}

func TestRequired(t *testing.T) {
	t.Parallel()
	v := Required("name", "email")

	tests := []struct {
		desc    string
		doc     any
		wantErr bool
	}{
		{"all present", map[string]any{"name": "a", "email": "b"}, false},
		{"one missing", map[string]any{"name": "a"}, true},
		{"null counts as missing", map[string]any{"name": "a", "email": nil}, true},
		{"not an object", []any{"name"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()
			out, err := v.Validate(tt.doc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.doc, out)
		})
	}
}

func TestKinds(t *testing.T) {
	t.Parallel()
	v, err := Kinds(map[string]string{"name": KindString, "age": KindNumber, "tags": KindArray})
	require.NoError(t, err)

	_, err = v.Validate(map[string]any{"name": "a", "age": float64(3), "tags": []any{}})
	assert.NoError(t, err)

	_, err = v.Validate(map[string]any{"name": "a"})
	assert.NoError(t, err, "absent fields pass")

	_, err = v.Validate(map[string]any{"age": "3"})
	assert.ErrorContains(t, err, "age")

	_, err = Kinds(map[string]string{"x": "date"})
	assert.Error(t, err)
}

func TestStruct(t *testing.T) {
	t.Parallel()
	v := Struct[user]()

	doc := map[string]any{"name": "Alice", "email": "alice@example.com", "age": float64(30)}
	out, err := v.Validate(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, out, "document passes through unchanged")

	_, err = v.Validate(map[string]any{"name": "Bob", "email": "not-an-email"})
	require.Error(t, err)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "email", verrs[0].Field())

	_, err = v.Validate(map[string]any{"name": "Bob", "email": "b@example.com", "age": "old"})
	assert.Error(t, err, "type mismatch fails decoding")
}

func TestAll(t *testing.T) {
	t.Parallel()
	kinds, err := Kinds(map[string]string{"name": KindString})
	require.NoError(t, err)
	v := All(Required("name"), kinds)

	_, err = v.Validate(map[string]any{"name": "x"})
	assert.NoError(t, err)
	_, err = v.Validate(map[string]any{})
	assert.Error(t, err)
	_, err = v.Validate(map[string]any{"name": 1})
	assert.Error(t, err)
}

func TestRegistryWithStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := NewRegistry()
	r.Register("users", Struct[user]())

	cfg := config.NewDefaultConfig()
	cfg.BasePath = t.TempDir()
	s, err := store.New(cfg, store.WithValidators(r))
	require.NoError(t, err)

	err = s.Write(ctx, "users", "1", map[string]any{"name": "Alice"})
	assert.ErrorIs(t, err, store.ErrValidation)

	require.NoError(t, s.Write(ctx, "users", "1", map[string]any{"name": "Alice", "email": "a@example.com"}))
	require.NoError(t, s.Write(ctx, "posts", "1", map[string]any{"anything": true}), "collections without a validator accept anything")
}
