// File: internal/mocks/mocks_test.go
package mocks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/config"
	"github.com/xkilldash9x/suture/internal/mocks"
)

var (
	_ config.Interface  = (*mocks.MockConfig)(nil)
	_ schemas.LLMClient = (*mocks.MockLLMClient)(nil)
)

func TestMockLLMClient_CancelledContextSkipsExpectations(t *testing.T) {
	m := new(mocks.MockLLMClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, schemas.GenerationRequest{})

	assert.ErrorIs(t, err, context.Canceled)
	m.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}
