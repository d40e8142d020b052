package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for model interaction.
// Consumers call Generate with a Request and receive structured JSON.
type Provider interface {
	// Generate sends a prompt to the model and returns a structured response.
	// When the request carries a Schema the response Content has already
	// been normalized and validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the static instruction segment. It is identical for every
	// call of one operation, which makes it eligible for provider-side
	// prompt caching.
	System string

	// CacheSystem asks providers that support prompt caching to cache the
	// System segment.
	CacheSystem bool

	// Messages carries the dynamic, per-student content. Every pipeline
	// operation sends exactly one user message.
	Messages []Message

	// Schema is the output contract. It is attached at invocation time and
	// never interpolated into the prompt text.
	Schema *Schema

	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies this schema (tool name for Anthropic, schema name for
	// OpenAI). Kebab-case, e.g. "learning-profile".
	Name string

	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any

	// EmptyArrays lists dotted paths of arrays that may be omitted by the
	// model and are normalized to [] before validation. A "*" segment
	// matches every element of an array or every value of an object.
	EmptyArrays []string

	// Strict enables provider-side strict mode. Only valid when every
	// property in Definition is required.
	Strict bool
}

// Response holds the model's output.
type Response struct {
	// Content is the generated output. With a Schema this is the validated
	// JSON object; without one it is the raw text wrapped as a JSON string.
	Content json.RawMessage

	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens       int
	OutputTokens      int
	TotalTokens       int
	CachedInputTokens int
}
