package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/store"
	"github.com/scholarloop/scholarloop/internal/store/storetest"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newGate(t *testing.T, cfg Config) (*Gate, *store.Store) {
	t.Helper()
	s := storetest.Open(t)
	g := NewGate(s.Subscriptions, s.Usage, cfg, storetest.Logger(t))
	g.now = func() time.Time { return fixedNow }
	return g, s
}

func subscribe(t *testing.T, s *store.Store, account uuid.UUID, typ, status string, trialEnds *time.Time) {
	t.Helper()
	err := s.Subscriptions.Upsert(dbctx.New(context.Background()), &store.Subscription{
		AccountID: account, Type: typ, Status: status, TrialEndsAt: trialEnds,
	})
	require.NoError(t, err)
}

func spend(t *testing.T, s *store.Store, user uuid.UUID, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := s.Usage.Append(dbctx.New(context.Background()), &store.UsageEvent{
			UserID: user, EventType: "ai.profile", CreatedAt: at,
		})
		require.NoError(t, err)
	}
}

func reasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func TestCheck_SubscriptionStates(t *testing.T) {
	future := fixedNow.Add(48 * time.Hour)
	past := fixedNow.Add(-time.Hour)

	tests := []struct {
		name     string
		typ      string
		status   string
		trialEnd *time.Time
		want     Reason
	}{
		{"active monthly", store.SubscriptionMonthly, "active", nil, ""},
		{"pending yearly", store.SubscriptionYearly, "pending", nil, ""},
		{"cancelled monthly", store.SubscriptionMonthly, "cancelled", nil, ReasonSubscriptionInactive},
		{"live trial", store.SubscriptionTrial, "active", &future, ""},
		{"expired trial", store.SubscriptionTrial, "active", &past, ReasonTrialExpired},
		{"trial without end", store.SubscriptionTrial, "active", nil, ReasonTrialExpired},
		{"orphan ignores status", store.SubscriptionOrphan, "cancelled", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, s := newGate(t, DefaultConfig())
			account := uuid.New()
			subscribe(t, s, account, tt.typ, tt.status, tt.trialEnd)

			err := g.Check(context.Background(), Request{UserID: uuid.New(), AccountID: account, Feature: FeatureAI})
			if got := reasonOf(err); got != tt.want {
				t.Errorf("reason = %q (err %v), want %q", got, err, tt.want)
			}
			if tt.want != "" && apierr.KindOf(err) != apierr.KindEntitlement {
				t.Errorf("kind = %q, want entitlement", apierr.KindOf(err))
			}
		})
	}
}

func TestCheck_NoSubscription(t *testing.T) {
	g, _ := newGate(t, DefaultConfig())
	err := g.Check(context.Background(), Request{UserID: uuid.New(), AccountID: uuid.New(), Feature: FeatureAI})
	assert.Equal(t, ReasonSubscriptionRequired, reasonOf(err))
}

func TestCheck_QuotaIsTrailingWindow(t *testing.T) {
	g, s := newGate(t, Config{DailyLimit: 3, TrialDailyLimit: 3})
	account, user := uuid.New(), uuid.New()
	subscribe(t, s, account, store.SubscriptionMonthly, "active", nil)
	req := Request{UserID: user, AccountID: account, Feature: FeatureAI}

	spend(t, s, user, 5, fixedNow.Add(-25*time.Hour))
	spend(t, s, user, 2, fixedNow.Add(-time.Hour))
	require.NoError(t, g.Check(context.Background(), req), "events older than 24h must not count")

	spend(t, s, user, 1, fixedNow.Add(-time.Minute))
	err := g.Check(context.Background(), req)
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, ReasonQuotaExceeded, e.Reason)
	assert.Equal(t, 3, e.Limit)
	assert.EqualValues(t, 3, e.Used)
}

func TestCheck_CostCountsAgainstQuota(t *testing.T) {
	g, s := newGate(t, Config{DailyLimit: 5, TrialDailyLimit: 5})
	account, user := uuid.New(), uuid.New()
	subscribe(t, s, account, store.SubscriptionMonthly, "active", nil)
	spend(t, s, user, 3, fixedNow.Add(-time.Hour))

	ok := Request{UserID: user, AccountID: account, Feature: FeatureAI, Cost: 2}
	assert.NoError(t, g.Check(context.Background(), ok))

	tooMuch := Request{UserID: user, AccountID: account, Feature: FeatureAI, Cost: 3}
	assert.Equal(t, ReasonQuotaExceeded, reasonOf(g.Check(context.Background(), tooMuch)))
}

func TestCheck_TrialUsesLowerLimit(t *testing.T) {
	g, s := newGate(t, Config{DailyLimit: 50, TrialDailyLimit: 2})
	account, user := uuid.New(), uuid.New()
	ends := fixedNow.Add(time.Hour)
	subscribe(t, s, account, store.SubscriptionTrial, "active", &ends)
	spend(t, s, user, 2, fixedNow.Add(-time.Hour))

	err := g.Check(context.Background(), Request{UserID: user, AccountID: account, Feature: FeatureAI})
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 2, e.Limit)
}

func TestCheck_ReadSkipsQuota(t *testing.T) {
	g, s := newGate(t, Config{DailyLimit: 1, TrialDailyLimit: 1})
	account, user := uuid.New(), uuid.New()
	subscribe(t, s, account, store.SubscriptionMonthly, "active", nil)
	spend(t, s, user, 4, fixedNow.Add(-time.Hour))

	assert.NoError(t, g.Check(context.Background(), Request{UserID: user, AccountID: account, Feature: FeatureRead}))
}
