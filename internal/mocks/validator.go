package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockValidator implements store.Validator for testing across packages
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(v any) (any, error) {
	args := m.Called(v)

	// Handle function return types (for transforming validators)
	if fn, ok := args.Get(0).(func(any) any); ok {
		return fn(v), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0), args.Error(1)
}
