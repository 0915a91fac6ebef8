// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Healer() config.HealerConfig {
	args := m.Called()
	return args.Get(0).(config.HealerConfig)
}

func (m *MockConfig) RateLimit() config.RateLimitConfig {
	args := m.Called()
	return args.Get(0).(config.RateLimitConfig)
}

func (m *MockConfig) Security() config.SecurityConfig {
	args := m.Called()
	return args.Get(0).(config.SecurityConfig)
}

func (m *MockConfig) Backup() config.BackupConfig {
	args := m.Called()
	return args.Get(0).(config.BackupConfig)
}

func (m *MockConfig) Audit() config.AuditConfig {
	args := m.Called()
	return args.Get(0).(config.AuditConfig)
}

func (m *MockConfig) Runner() config.RunnerConfig {
	args := m.Called()
	return args.Get(0).(config.RunnerConfig)
}

func (m *MockConfig) LLM() config.LLMModelConfig {
	args := m.Called()
	return args.Get(0).(config.LLMModelConfig)
}

func (m *MockConfig) Git() config.GitConfig {
	args := m.Called()
	return args.Get(0).(config.GitConfig)
}

// --- Setters ---

func (m *MockConfig) SetHealerDryRun(b bool)        { m.Called(b) }
func (m *MockConfig) SetHealerMaxRetries(n int)     { m.Called(n) }
func (m *MockConfig) SetHealerResultsPath(p string) { m.Called(p) }
func (m *MockConfig) SetHealerProjectRoot(p string) { m.Called(p) }
func (m *MockConfig) SetHealerReviewFixes(b bool)   { m.Called(b) }
func (m *MockConfig) SetGitCommitFixes(b bool)      { m.Called(b) }

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface. Name only helps tell
// tiers apart in assertions.
type MockLLMClient struct {
	mock.Mock
	Name string
}

// Generate provides a mock function for LLM calls. A done context wins over
// any configured return.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// -- Session Runner Mock --

// MockSessionRunner mocks a healing session.
type MockSessionRunner struct {
	mock.Mock
}

func (m *MockSessionRunner) Run(ctx context.Context, failures []schemas.TestFailure) schemas.SessionSummary {
	args := m.Called(ctx, failures)
	return args.Get(0).(schemas.SessionSummary)
}
