package validators

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/brettbedarf/docfs/store"
)

type BuiltInValidatorType = string

const (
	RequiredValidatorType BuiltInValidatorType = "required"
	KindsValidatorType    BuiltInValidatorType = "kinds"
)

// Kind names accepted by [Kinds]
const (
	KindString = "string"
	KindNumber = "number"
	KindBool   = "bool"
	KindObject = "object"
	KindArray  = "array"
	KindNull   = "null"
)

// RegisterBuiltins registers all built-in validator factories by default
// or only the specific ones if keys are provided
func RegisterBuiltins(types ...BuiltInValidatorType) {
	if len(types) == 0 {
		types = append(types, RequiredValidatorType, KindsValidatorType)
	}

	for _, key := range types {
		switch key {
		case RequiredValidatorType:
			RegisterFactory(RequiredValidatorType, func(raw []byte) (store.Validator, error) {
				var cfg struct {
					Fields []string `json:"fields"`
				}
				if err := json.Unmarshal(raw, &cfg); err != nil {
					return nil, err
				}
				if len(cfg.Fields) == 0 {
					return nil, errors.New("required validator needs fields")
				}
				return Required(cfg.Fields...), nil
			})
		case KindsValidatorType:
			RegisterFactory(KindsValidatorType, func(raw []byte) (store.Validator, error) {
				var cfg struct {
					Fields map[string]string `json:"fields"`
				}
				if err := json.Unmarshal(raw, &cfg); err != nil {
					return nil, err
				}
				return Kinds(cfg.Fields)
			})
		}
	}
}

func asObject(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
	return m, nil
}

// Required accepts objects that carry every named field with a non-null value
func Required(fields ...string) store.Validator {
	return store.ValidatorFunc(func(v any) (any, error) {
		m, err := asObject(v)
		if err != nil {
			return nil, err
		}
		var missing []string
		for _, f := range fields {
			if val, ok := m[f]; !ok || val == nil {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
		}
		return v, nil
	})
}

// Kinds accepts objects whose listed fields, when present, hold the named JSON kind.
// Absent fields pass; combine with [Required] to demand them.
func Kinds(kinds map[string]string) (store.Validator, error) {
	for field, kind := range kinds {
		switch kind {
		case KindString, KindNumber, KindBool, KindObject, KindArray, KindNull:
		default:
			return nil, fmt.Errorf("unknown kind %q for field %q", kind, field)
		}
	}
	return store.ValidatorFunc(func(v any) (any, error) {
		m, err := asObject(v)
		if err != nil {
			return nil, err
		}
		for field, kind := range kinds {
			val, ok := m[field]
			if !ok {
				continue
			}
			if got := kindOf(val); got != kind {
				return nil, fmt.Errorf("field %q: expected %s, got %s", field, kind, got)
			}
		}
		return v, nil
	}), nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case bool:
		return KindBool
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	default:
		return fmt.Sprintf("%T", v)
	}
}

var (
	structValidate     *validator.Validate
	structValidateOnce sync.Once
)

func structValidator() *validator.Validate {
	structValidateOnce.Do(func() {
		structValidate = validator.New(validator.WithRequiredStructEnabled())
		// report JSON field names instead of Go field names
		structValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structValidate
}

// All chains validators, feeding each one's output into the next
func All(vs ...store.Validator) store.Validator {
	return store.ValidatorFunc(func(v any) (any, error) {
		var err error
		for _, val := range vs {
			if v, err = val.Validate(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	})
}

// Struct checks documents against the `validate` tags of T. The document is decoded
// into a T through its JSON form, so T's json tags decide field mapping.
// The document itself is passed through unchanged.
func Struct[T any]() store.Validator {
	return store.ValidatorFunc(func(v any) (any, error) {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var target T
		if err := json.Unmarshal(raw, &target); err != nil {
			return nil, fmt.Errorf("decode into %T: %w", target, err)
		}
		if err := structValidator().Struct(&target); err != nil {
			return nil, err
		}
		return v, nil
	})
}
