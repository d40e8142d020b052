package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]any{"api_key", "sk-live", "input_tokens", 12, "refresh_token", "abc", "dangling"})
	want := []any{"api_key", "[REDACTED]", "input_tokens", 12, "refresh_token", "[REDACTED]", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kv[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNopLoggerWith(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "k", "v")
}
