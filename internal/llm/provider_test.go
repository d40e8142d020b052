package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMockProvider_ReturnsCanedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Content)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}
	if resp1.StopReason != "end" {
		t.Fatalf("expected stop reason 'end', got %q", resp1.StopReason)
	}

	resp2, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp2.Content) != `{"b":2}` {
		t.Fatalf("expected {\"b\":2}, got %s", resp2.Content)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error from empty queue")
	}
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T", err)
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{}`)},
	)

	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}
	_, _ = mock.Generate(context.Background(), req)

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	if mock.Calls[0].System != "sys" {
		t.Fatalf("expected system 'sys', got %q", mock.Calls[0].System)
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: 0}},
	)

	_, err := mock.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T", err)
	}
}

func TestMockProvider_RoutesBySchema(t *testing.T) {
	quiz := &Schema{Name: "quiz", Definition: map[string]any{"type": "object"}}
	grade := &Schema{Name: "quiz-grade", Definition: map[string]any{"type": "object"}}

	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"from":"queue"}`)})
	mock.Respond("quiz-grade", MockResponse{Content: json.RawMessage(`{"from":"grade"}`)})

	resp, err := mock.Generate(context.Background(), Request{Schema: quiz})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"from":"queue"}` {
		t.Fatalf("quiz got %s", resp.Content)
	}
	resp, err = mock.Generate(context.Background(), Request{Schema: grade})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"from":"grade"}` {
		t.Fatalf("quiz-grade got %s", resp.Content)
	}
	if mock.Pending() != 0 {
		t.Fatalf("pending = %d", mock.Pending())
	}
	if n := len(mock.CallsFor("quiz-grade")); n != 1 {
		t.Fatalf("quiz-grade calls = %d", n)
	}
	if _, err := mock.Generate(context.Background(), Request{Schema: grade}); err == nil {
		t.Fatal("expected drained route and queue to fail")
	}
}

func TestMockProvider_ModelID(t *testing.T) {
	mock := NewMockProvider()
	if mock.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", mock.ModelID())
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}

	ctx = WithPurpose(ctx, "question-gen")
	if p := PurposeFrom(ctx); p != "question-gen" {
		t.Fatalf("expected 'question-gen', got %q", p)
	}
}

func TestMockProvider_ValidatesAgainstSchema(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"name":"Ada"}`)})
	_, err := mock.Generate(context.Background(), Request{Schema: testSchema()})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestAttemptContext(t *testing.T) {
	if got := AttemptFrom(context.Background()); got != 1 {
		t.Fatalf("default attempt = %d, want 1", got)
	}
	if got := AttemptFrom(withAttempt(context.Background(), 3)); got != 3 {
		t.Fatalf("attempt = %d, want 3", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"no provider", Config{}, true},
		{"anthropic without key", Config{Provider: "anthropic"}, true},
		{"anthropic with key", Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "sk-ant-test"}}, false},
		{"openai placeholder key", Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "your-api-key"}}, true},
		{"openai with key", Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-test"}}, false},
		{"gemini template key", Config{Provider: "gemini", Gemini: GeminiConfig{APIKey: "<GEMINI_KEY>"}}, true},
		{"mock needs no key", Config{Provider: "mock"}, false},
		{"unknown provider", Config{Provider: "unknown"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var nc *ErrNotConfigured
				if !errors.As(err, &nc) {
					t.Fatalf("expected ErrNotConfigured, got %T", err)
				}
			}
		})
	}
}

func TestNewProvider_Unconfigured(t *testing.T) {
	_, err := NewProvider(context.Background(), DefaultConfig(), nil, nil)
	var nc *ErrNotConfigured
	if !errors.As(err, &nc) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDiscoverConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "changeme")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-real")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg := DefaultConfig()
	if !DiscoverConfig(&cfg) {
		t.Fatal("expected a provider to be discovered")
	}
	if cfg.Provider != "anthropic" || cfg.Anthropic.APIKey != "sk-ant-real" {
		t.Fatalf("discovered %q with key %q", cfg.Provider, cfg.Anthropic.APIKey)
	}
}

type recordingSink struct {
	calls []CallRecord
}

func (r *recordingSink) RecordLLMCall(_ context.Context, rec CallRecord) error {
	r.calls = append(r.calls, rec)
	return nil
}

func TestLoggingProvider_RecordsEachCall(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"ok":true}`), Usage: Usage{InputTokens: 1000, OutputTokens: 500}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	sink := &recordingSink{}
	p := WithLogging(mock, sink, nil)
	ctx := WithPurpose(context.Background(), "roadmap")

	if _, err := p.Generate(ctx, Request{System: "static", Messages: []Message{{Role: RoleUser, Content: "dynamic"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("expected error on second call")
	}

	if len(sink.calls) != 2 {
		t.Fatalf("expected 2 records, got %d", len(sink.calls))
	}
	first, second := sink.calls[0], sink.calls[1]
	if first.Provider != "mock" || first.Purpose != "roadmap" || !first.Success || first.InputTokens != 1000 {
		t.Errorf("unexpected first record: %+v", first)
	}
	if second.Success || second.ErrorKind != "transient" {
		t.Errorf("unexpected second record: %+v", second)
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("google/gemini-2.0-flash-001")
	if c == nil {
		t.Fatal("expected OpenRouter id to resolve")
	}
	if got := c.Cost(1_000_000, 1_000_000); got != 0.5 {
		t.Fatalf("cost = %v, want 0.5", got)
	}
	if LookupCost("unknown-model") != nil {
		t.Fatal("expected nil for unknown model")
	}
}
