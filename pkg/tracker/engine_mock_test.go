package tracker

import (
	"github.com/stretchr/testify/mock"

	"github.com/walteh/emmetls/pkg/engine"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Validate(text string, cfg *engine.Config) (*engine.Validation, error) {
	args := m.Called(text, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.Validation), args.Error(1)
}

func (m *MockEngine) Expand(text string, cfg *engine.Config) (string, error) {
	args := m.Called(text, cfg)
	return args.String(0), args.Error(1)
}

func (m *MockEngine) Extract(line string, pos int, opts engine.ExtractOptions) (*engine.Extracted, bool) {
	args := m.Called(line, pos, opts)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*engine.Extracted), args.Bool(1)
}
