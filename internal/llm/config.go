package llm

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all model provider configuration.
type Config struct {
	// Provider selects which provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock".
	// Empty means no model is configured.
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Retry      RetryConfig      `yaml:"retry"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"` // Default: "claude-haiku"
	BaseURL string `yaml:"base_url"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"` // Default: "gpt-4o-mini"
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"` // Default: "https://openrouter.ai/api/v1"
	// SiteURL and AppName are sent as OpenRouter attribution headers.
	SiteURL string `yaml:"site_url"`
	AppName string `yaml:"app_name"` // Default: "scholarloop"
}

// RetryConfig configures retry behavior for rate limits and transient failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// DefaultConfig returns a Config with no provider selected and the default
// model names and retry schedule.
func DefaultConfig() Config {
	return Config{
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-001"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
	}
}

// ApplyEnv overrides cfg with SCHOLARLOOP_* environment variables.
func ApplyEnv(cfg *Config) {
	setString(&cfg.Provider, "SCHOLARLOOP_LLM_PROVIDER")

	setString(&cfg.Anthropic.APIKey, "SCHOLARLOOP_ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "SCHOLARLOOP_ANTHROPIC_MODEL")
	setString(&cfg.Anthropic.BaseURL, "SCHOLARLOOP_ANTHROPIC_BASE_URL")

	setString(&cfg.OpenAI.APIKey, "SCHOLARLOOP_OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "SCHOLARLOOP_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "SCHOLARLOOP_OPENAI_BASE_URL")

	setString(&cfg.Gemini.APIKey, "SCHOLARLOOP_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "SCHOLARLOOP_GEMINI_MODEL")

	setString(&cfg.OpenRouter.APIKey, "SCHOLARLOOP_OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.Model, "SCHOLARLOOP_OPENROUTER_MODEL")
	setString(&cfg.OpenRouter.SiteURL, "SCHOLARLOOP_OPENROUTER_SITE_URL")

	if v, err := strconv.Atoi(os.Getenv("SCHOLARLOOP_LLM_MAX_ATTEMPTS")); err == nil && v > 0 {
		cfg.Retry.MaxAttempts = v
	}
	if d, err := time.ParseDuration(os.Getenv("SCHOLARLOOP_LLM_INITIAL_WAIT")); err == nil {
		cfg.Retry.InitialWait = d
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DiscoverConfig checks standard API key env vars in priority order
// (Gemini, OpenAI, Anthropic, OpenRouter) and fills in the first provider
// whose key is found. It reports false when none is set.
func DiscoverConfig(cfg *Config) bool {
	if k := os.Getenv("GEMINI_API_KEY"); !IsPlaceholderKey(k) {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return true
	}
	if k := os.Getenv("OPENAI_API_KEY"); !IsPlaceholderKey(k) {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); !IsPlaceholderKey(k) {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); !IsPlaceholderKey(k) {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return true
	}
	return false
}

// Validate checks that the selected provider has a usable API key. It
// returns *ErrNotConfigured when it does not.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case "":
		return &ErrNotConfigured{Reason: "no provider selected"}
	case "anthropic":
		key = c.Anthropic.APIKey
	case "openai":
		key = c.OpenAI.APIKey
	case "gemini":
		key = c.Gemini.APIKey
	case "openrouter":
		key = c.OpenRouter.APIKey
	case "mock":
		return nil
	default:
		return &ErrNotConfigured{Provider: c.Provider, Reason: "unknown provider"}
	}
	if IsPlaceholderKey(key) {
		return &ErrNotConfigured{
			Provider: c.Provider,
			Reason:   "SCHOLARLOOP_" + strings.ToUpper(c.Provider) + "_API_KEY is missing or a placeholder",
		}
	}
	return nil
}

var (
	placeholderExact    = []string{"changeme", "replace-me", "todo", "none", "null"}
	placeholderContains = []string{"your-api-key", "your_api_key", "xxxx"}
)

// IsPlaceholderKey reports whether key is empty or an obvious template value.
func IsPlaceholderKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return true
	}
	if strings.HasPrefix(k, "<") && strings.HasSuffix(k, ">") {
		return true
	}
	for _, p := range placeholderExact {
		if k == p {
			return true
		}
	}
	for _, p := range placeholderContains {
		if strings.Contains(k, p) {
			return true
		}
	}
	return false
}
