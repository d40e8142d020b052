package llm

import (
	"context"
	"fmt"

	"github.com/scholarloop/scholarloop/internal/logger"
)

// NewProvider creates a Provider from configuration, wrapped with retry and
// call recording: caller -> retry -> logging -> base.
// It returns *ErrNotConfigured when no usable provider is configured, which
// callers treat as "serve deterministic fallbacks where possible".
func NewProvider(ctx context.Context, cfg Config, recorder CallRecorder, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, &ErrNotConfigured{Provider: cfg.Provider, Reason: "unknown provider"}
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, recorder, log)
	return WithRetry(logged, cfg.Retry, log), nil
}
