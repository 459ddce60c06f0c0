package validators

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/puzpuzpuz/xsync/v4"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/docfs/store"
)

// Factory builds a validator from the raw JSON of its schema entry
type Factory func(raw []byte) (store.Validator, error)

var factories = xsync.NewMap[string, Factory]()

// RegisterFactory ties a factory to a "type" key. Call it for each validator type
// during app init; see [RegisterBuiltins] for the shipped ones.
func RegisterFactory(validatorType string, f Factory) {
	factories.Store(validatorType, f)
}

// FromJSON picks the right factory based on the "type" field of raw.
// All expected types should be registered with [RegisterFactory] first.
func FromJSON(raw []byte) (store.Validator, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	f, ok := factories.Load(meta.Type)
	if !ok {
		return nil, fmt.Errorf("no validator factory for %q", meta.Type)
	}
	return f(raw)
}

// Registry maps collections to their default validator.
// It implements [store.ValidatorLookup].
type Registry struct {
	validators *xsync.Map[string, store.Validator]
}

func NewRegistry() *Registry {
	return &Registry{validators: xsync.NewMap[string, store.Validator]()}
}

// Register sets the validator of collection. The first registration wins; later ones
// for the same collection are ignored and reported by a false return.
func (r *Registry) Register(collection string, v store.Validator) bool {
	_, loaded := r.validators.LoadOrStore(collection, v)
	return !loaded
}

// Unregister removes the validator of collection, if any
func (r *Registry) Unregister(collection string) {
	r.validators.Delete(collection)
}

// Lookup returns the validator registered for collection
func (r *Registry) Lookup(collection string) (store.Validator, bool) {
	return r.validators.Load(collection)
}

// Collections lists the collections with a registered validator
func (r *Registry) Collections() []string {
	var names []string
	r.validators.Range(func(k string, _ store.Validator) bool {
		names = append(names, k)
		return true
	})
	return names
}

// LoadFile builds a registry from a YAML (.yaml, .yml) or JSON (.json) file mapping
// collection names to validator entries, e.g.
//
//	users:
//	  type: required
//	  fields: [name, email]
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]map[string]any
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validator file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validator file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown validator file extension: %s", path)
	}

	r := NewRegistry()
	for collection, entry := range entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("validator for %q: %w", collection, err)
		}
		v, err := FromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("validator for %q: %w", collection, err)
		}
		r.Register(collection, v)
	}
	return r, nil
}
