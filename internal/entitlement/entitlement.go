// Package entitlement checks subscriptions and the daily model-call quota
// before any external call is made.
package entitlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/logger"
	"github.com/scholarloop/scholarloop/internal/store"
)

// Features.
const (
	FeatureAI   = "ai"
	FeatureRead = "read"
)

// EventPrefix is the usage event family counted against the quota.
const EventPrefix = "ai."

// Window is the trailing quota window.
const Window = 24 * time.Hour

// Reason says why access was denied.
type Reason string

const (
	ReasonSubscriptionRequired Reason = "subscription_required"
	ReasonTrialExpired         Reason = "trial_expired"
	ReasonSubscriptionInactive Reason = "subscription_inactive"
	ReasonQuotaExceeded        Reason = "quota_exceeded"
)

// Error is returned by Gate.Check when access is denied.
type Error struct {
	Reason Reason
	Limit  int
	Used   int64
}

func (e *Error) Error() string {
	if e.Reason == ReasonQuotaExceeded {
		return fmt.Sprintf("daily AI limit reached (%d of %d used)", e.Used, e.Limit)
	}
	return "access denied: " + strings.ReplaceAll(string(e.Reason), "_", " ")
}

func (e *Error) Kind() apierr.Kind { return apierr.KindEntitlement }

func (e *Error) Remediation() string {
	switch e.Reason {
	case ReasonSubscriptionRequired:
		return "start a trial or subscribe to use this feature"
	case ReasonTrialExpired:
		return "the trial has ended; choose a plan to continue"
	case ReasonSubscriptionInactive:
		return "the subscription is not active; update billing details"
	case ReasonQuotaExceeded:
		return "the daily limit resets 24 hours after the oldest counted request"
	}
	return ""
}

// Config holds the quota limits.
type Config struct {
	DailyLimit      int `yaml:"daily_limit"`
	TrialDailyLimit int `yaml:"trial_daily_limit"`
}

func DefaultConfig() Config {
	return Config{DailyLimit: 50, TrialDailyLimit: 25}
}

// Request describes one attempted use of a feature.
type Request struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
	Feature   string
	// Cost is the number of quota units the call will consume; zero is
	// treated as one.
	Cost int
}

// Gate enforces subscription state and the trailing-window quota.
type Gate struct {
	subs  store.SubscriptionRepo
	usage store.UsageRepo
	cfg   Config
	log   *logger.Logger
	now   func() time.Time
}

func NewGate(subs store.SubscriptionRepo, usage store.UsageRepo, cfg Config, log *logger.Logger) *Gate {
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = DefaultConfig().DailyLimit
	}
	if cfg.TrialDailyLimit <= 0 {
		cfg.TrialDailyLimit = DefaultConfig().TrialDailyLimit
	}
	return &Gate{
		subs:  subs,
		usage: usage,
		cfg:   cfg,
		log:   log.With("component", "entitlement"),
		now:   time.Now,
	}
}

// Check returns nil when the request may proceed, an *Error when it is
// denied, or a storage error.
func (g *Gate) Check(ctx context.Context, req Request) error {
	dbc := dbctx.New(ctx)
	now := g.now().UTC()

	sub, err := g.subs.GetByAccount(dbc, req.AccountID)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	limit, denied := g.limitFor(sub, now)
	if denied != nil {
		g.log.Info("access denied", "account_id", req.AccountID, "feature", req.Feature, "reason", denied.Reason)
		return denied
	}

	if req.Feature == FeatureRead {
		return nil
	}

	cost := req.Cost
	if cost <= 0 {
		cost = 1
	}
	used, err := g.usage.CountSince(dbc, req.UserID, EventPrefix, now.Add(-Window))
	if err != nil {
		return fmt.Errorf("count usage: %w", err)
	}
	if used+int64(cost) > int64(limit) {
		g.log.Info("quota exceeded", "user_id", req.UserID, "used", used, "limit", limit)
		return &Error{Reason: ReasonQuotaExceeded, Limit: limit, Used: used}
	}
	return nil
}

// limitFor validates the subscription and returns the quota that applies.
func (g *Gate) limitFor(sub *store.Subscription, now time.Time) (int, *Error) {
	if sub == nil {
		return 0, &Error{Reason: ReasonSubscriptionRequired}
	}
	switch sub.Type {
	case store.SubscriptionOrphan:
		return g.cfg.DailyLimit, nil
	case store.SubscriptionTrial:
		if sub.TrialEndsAt == nil || !sub.TrialEndsAt.After(now) {
			return 0, &Error{Reason: ReasonTrialExpired}
		}
		return min(g.cfg.DailyLimit, g.cfg.TrialDailyLimit), nil
	}
	switch strings.ToLower(sub.Status) {
	case "active", "pending":
		return g.cfg.DailyLimit, nil
	}
	return 0, &Error{Reason: ReasonSubscriptionInactive}
}
