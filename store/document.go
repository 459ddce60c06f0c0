package store

// Validator checks a decoded document and returns the value that should be stored
// (or handed back to a reader). Implementations report schema mismatches as errors;
// the store wraps them with [ErrValidation].
type Validator interface {
	Validate(v any) (any, error)
}

// ValidatorFunc adapts a plain function to [Validator]
type ValidatorFunc func(v any) (any, error)

func (f ValidatorFunc) Validate(v any) (any, error) {
	return f(v)
}

// ValidatorLookup supplies the default validator of a collection.
// See the validators package for the registry implementation.
type ValidatorLookup interface {
	Lookup(collection string) (Validator, bool)
}

// Entry pairs a document with its id inside a collection
type Entry struct {
	ID   string `json:"id" yaml:"id"`
	Data any    `json:"data" yaml:"data"`
}
