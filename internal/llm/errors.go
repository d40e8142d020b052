package llm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/scholarloop/scholarloop/internal/apierr"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error     { return e.Err }
func (e *ErrRateLimit) Kind() apierr.Kind { return apierr.KindRateLimit }
func (e *ErrRateLimit) Remediation() string {
	return "the model provider is throttling requests; check API quota and billing, then retry later"
}

// ErrInvalidResponse indicates the model returned content that does not
// conform to the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid model response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error     { return e.Err }
func (e *ErrInvalidResponse) Kind() apierr.Kind { return apierr.KindSchema }
func (e *ErrInvalidResponse) Remediation() string {
	return "model output did not match the expected structure; check the prompt and schema for drift"
}

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model provider unavailable: %v", e.Err)
	}
	return "model provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error     { return e.Err }
func (e *ErrProviderUnavailable) Kind() apierr.Kind { return apierr.KindTransient }
func (e *ErrProviderUnavailable) Remediation() string {
	return "the model provider is unreachable; check network connectivity and provider status"
}

// ErrMaxTokensExceeded indicates the response was truncated because it
// hit the MaxTokens limit. A truncated document can never satisfy the
// schema, so it is classified with schema failures.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "model response truncated: max tokens exceeded"
}

func (e *ErrMaxTokensExceeded) Kind() apierr.Kind { return apierr.KindSchema }
func (e *ErrMaxTokensExceeded) Remediation() string {
	return "raise the output token budget for this operation"
}

// ErrNotConfigured indicates that no usable model is configured: the key is
// missing, is a placeholder, or was rejected by the provider.
type ErrNotConfigured struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ErrNotConfigured) Error() string {
	msg := "model provider not configured"
	if e.Provider != "" {
		msg = fmt.Sprintf("model provider %q not configured", e.Provider)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ErrNotConfigured) Unwrap() error     { return e.Err }
func (e *ErrNotConfigured) Kind() apierr.Kind { return apierr.KindConfig }
func (e *ErrNotConfigured) Remediation() string {
	return "set SCHOLARLOOP_LLM_PROVIDER and the matching API key; check the key, quota and billing"
}
