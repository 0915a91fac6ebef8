// File: internal/autofix/mocks_test.go
package autofix

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/suture/api/schemas"
)

// MockBackend is a mock implementation of ReasoningBackend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) AnalyzeFailure(ctx context.Context, data schemas.SanitizedTestData) (*schemas.AnalysisResult, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.AnalysisResult), args.Error(1)
}

func (m *MockBackend) VerifyFix(ctx context.Context, data schemas.SanitizedTestData, code string) (*FixReview, error) {
	args := m.Called(ctx, data, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FixReview), args.Error(1)
}

// MockRunner is a mock implementation of TestRunner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, file string) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

// MockCommitter is a mock implementation of Committer.
type MockCommitter struct {
	mock.Mock
}

func (m *MockCommitter) Commit(ctx context.Context, file, message string) (string, error) {
	args := m.Called(ctx, file, message)
	return args.String(0), args.Error(1)
}
