package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/logger"
)

// CallRecord is one model attempt as persisted by a CallRecorder.
type CallRecord struct {
	Provider     string
	Model        string
	Purpose      string
	Attempt      int
	LatencyMs    int64
	Success      bool
	ErrorKind    string
	ErrorMessage string
	InputTokens  int
	OutputTokens int
	CachedTokens int
	CostUSD      float64
	RequestBody  string
	ResponseBody string
}

// CallRecorder persists call records.
type CallRecorder interface {
	RecordLLMCall(ctx context.Context, rec CallRecord) error
}

// LoggingProvider is a decorator that records every model attempt.
type LoggingProvider struct {
	inner    Provider
	name     string
	recorder CallRecorder
	log      *logger.Logger
}

// WithLogging wraps a Provider with call recording. log may be nil.
func WithLogging(p Provider, recorder CallRecorder, log *logger.Logger) Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &LoggingProvider{inner: p, name: providerName(p), recorder: recorder, log: log.With("component", "llm.calls")}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	rec := CallRecord{
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		Attempt:     AttemptFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		rec.InputTokens = resp.Usage.InputTokens
		rec.OutputTokens = resp.Usage.OutputTokens
		rec.CachedTokens = resp.Usage.CachedInputTokens
		if resp.Model != "" {
			rec.Model = resp.Model
		}
		rec.ResponseBody = string(resp.Content)
		if c := LookupCost(rec.Model); c != nil {
			rec.CostUSD = c.Cost(rec.InputTokens, rec.OutputTokens)
		}
	}
	if err != nil {
		rec.ErrorKind = string(apierr.KindOf(err))
		rec.ErrorMessage = err.Error()
	}

	l.log.Debug("model call",
		"purpose", rec.Purpose,
		"attempt", rec.Attempt,
		"model", rec.Model,
		"latency_ms", rec.LatencyMs,
		"input_tokens", rec.InputTokens,
		"output_tokens", rec.OutputTokens,
		"success", rec.Success,
	)

	// A failed write never fails the request.
	if l.recorder != nil {
		if logErr := l.recorder.RecordLLMCall(ctx, rec); logErr != nil {
			l.log.Warn("failed to record model call", "error", logErr)
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func providerName(p Provider) string {
	switch p.(type) {
	case *AnthropicProvider:
		return "anthropic"
	case *OpenAIProvider:
		return "openai"
	case *GeminiProvider:
		return "gemini"
	case *OpenRouterProvider:
		return "openrouter"
	case *MockProvider:
		return "mock"
	}
	return "unknown"
}

// serializeRequest builds a readable representation of the request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(def)
			b.WriteString("\n")
		}
	}

	return b.String()
}
