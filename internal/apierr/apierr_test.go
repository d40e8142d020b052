package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"classified", NotFound("student", 7), KindNotFound},
		{"wrapped", fmt.Errorf("load: %w", Invalid("bad age %d", 3)), KindInvalidInput},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTransient},
		{"plain", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := HTTPStatus(KindEntitlement); got != http.StatusPaymentRequired {
		t.Errorf("entitlement status = %d", got)
	}
	if got := HTTPStatus(KindDataMissing); got != http.StatusConflict {
		t.Errorf("data missing status = %d", got)
	}
	if got := HTTPStatus(Kind("unknown")); got != http.StatusInternalServerError {
		t.Errorf("unknown status = %d", got)
	}
}

func TestRemediationOf(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(KindConfig, "set the API key", errors.New("missing key")))
	if got := RemediationOf(err); got != "set the API key" {
		t.Errorf("RemediationOf() = %q", got)
	}
	if got := RemediationOf(errors.New("x")); got != "" {
		t.Errorf("RemediationOf(plain) = %q, want empty", got)
	}
}
