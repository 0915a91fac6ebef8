// File: internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/suture/api/schemas"
	"github.com/xkilldash9x/suture/internal/config"
)

// NewClient creates the tiered client described by cfg. Fast requests use
// cfg.FastModel when it is set and cfg.Model otherwise.
func NewClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		powerful, err := NewGeminiClient(ctx, cfg, cfg.Model, logger)
		if err != nil {
			return nil, err
		}
		fastModel := cfg.FastModel
		if fastModel == "" {
			fastModel = cfg.Model
		}
		fast, err := NewGeminiClient(ctx, cfg, fastModel, logger)
		if err != nil {
			return nil, err
		}
		return NewLLMRouter(logger, fast, powerful)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s]", cfg.Provider, config.ProviderGemini)
	}
}
