package store

import (
	"github.com/brettbedarf/docfs/internal/util"
	"github.com/brettbedarf/docfs/metrics"
)

// Option configures a [Store] at construction
type Option func(*Store)

// WithValidators sets the lookup used for collections written without an explicit validator
func WithValidators(lookup ValidatorLookup) Option {
	return func(s *Store) {
		s.validators = lookup
	}
}

// WithMetrics records store and lock activity on m
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Store) {
		s.metrics = m
		s.locks.metrics = m
	}
}

// WithLogger replaces the store's component logger
func WithLogger(l util.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// CallOption tunes a single store call
type CallOption func(*callOptions)

type callOptions struct {
	validator Validator
}

// WithValidator validates this call with v instead of the collection's registered validator
func WithValidator(v Validator) CallOption {
	return func(o *callOptions) {
		o.validator = v
	}
}

func newCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
