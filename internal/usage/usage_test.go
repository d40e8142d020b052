package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/store/storetest"
)

func TestRecord(t *testing.T) {
	tests := []struct {
		name          string
		outcome       Outcome
		countFailures bool
		wantWritten   bool
	}{
		{"generated", Generated, false, true},
		{"failed not counted", Failed, false, false},
		{"failed counted", Failed, true, true},
		{"cache hit", CacheHit, true, false},
		{"unconfigured fallback", Unconfigured, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storetest.Open(t)
			l := New(s.Usage, tt.countFailures, storetest.Logger(t))
			user := uuid.New()

			got := l.Record(context.Background(), user, "profile", tt.outcome, map[string]any{"student_id": "s1"})
			if got != tt.wantWritten {
				t.Fatalf("Record() = %v, want %v", got, tt.wantWritten)
			}

			n, err := s.Usage.CountSince(dbctx.New(context.Background()), user, "ai.", time.Now().Add(-time.Hour))
			if err != nil {
				t.Fatalf("CountSince: %v", err)
			}
			want := int64(0)
			if tt.wantWritten {
				want = 1
			}
			if n != want {
				t.Errorf("events = %d, want %d", n, want)
			}
		})
	}
}

func TestRecord_EventType(t *testing.T) {
	s := storetest.Open(t)
	l := New(s.Usage, false, storetest.Logger(t))
	user := uuid.New()

	l.Record(context.Background(), user, "roadmap", Generated, nil)

	events, err := s.Usage.ListByUser(dbctx.New(context.Background()), user, time.Now().Add(-time.Hour))
	if err != nil || len(events) != 1 {
		t.Fatalf("ListByUser = %v, %v", events, err)
	}
	if events[0].EventType != "ai.roadmap" {
		t.Errorf("event type = %q, want ai.roadmap", events[0].EventType)
	}
}
