// Package usage appends the usage events the entitlement quota counts.
package usage

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/entitlement"
	"github.com/scholarloop/scholarloop/internal/logger"
	"github.com/scholarloop/scholarloop/internal/store"
)

// Outcome describes how an operation was served.
type Outcome int

const (
	// Generated means the model produced the artifact.
	Generated Outcome = iota
	// Failed means the model was called and the call failed.
	Failed
	// CacheHit means the guard reused a stored artifact.
	CacheHit
	// Unconfigured means fallback content was served without a model call.
	Unconfigured
)

// Logger records model invocations against the acting user.
type Logger struct {
	repo          store.UsageRepo
	countFailures bool
	log           *logger.Logger
}

// New returns a Logger. When countFailures is set, failed invocations also
// consume quota.
func New(repo store.UsageRepo, countFailures bool, log *logger.Logger) *Logger {
	return &Logger{repo: repo, countFailures: countFailures, log: log.With("component", "usage")}
}

// Record appends an "ai.<operation>" event when the outcome costs quota.
// It reports whether an event was written. Write errors are logged and
// swallowed; a missed usage row must not fail a completed generation.
func (l *Logger) Record(ctx context.Context, userID uuid.UUID, operation string, outcome Outcome, data map[string]any) bool {
	switch outcome {
	case Generated:
	case Failed:
		if !l.countFailures {
			return false
		}
	default:
		return false
	}

	ev := &store.UsageEvent{
		UserID:    userID,
		EventType: entitlement.EventPrefix + operation,
	}
	if len(data) > 0 {
		if outcome == Failed {
			data["failed"] = true
		}
		if raw, err := json.Marshal(data); err == nil {
			ev.Data = datatypes.JSON(raw)
		}
	} else if outcome == Failed {
		ev.Data = datatypes.JSON(`{"failed":true}`)
	}

	if err := l.repo.Append(dbctx.New(context.WithoutCancel(ctx)), ev); err != nil {
		l.log.Warn("failed to record usage", "user_id", userID, "operation", operation, "error", err)
		return false
	}
	return true
}
