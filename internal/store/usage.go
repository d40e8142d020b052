package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/llm"
	"github.com/scholarloop/scholarloop/internal/logger"
)

type UsageRepo interface {
	Append(dbc dbctx.Context, ev *UsageEvent) error
	// CountSince counts a user's events whose type starts with prefix and
	// that were created at or after since.
	CountSince(dbc dbctx.Context, userID uuid.UUID, prefix string, since time.Time) (int64, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*UsageEvent, error)
}

type usageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUsageRepo(db *gorm.DB, baseLog *logger.Logger) UsageRepo {
	return &usageRepo{db: db, log: baseLog.With("repo", "UsageRepo")}
}

func (r *usageRepo) Append(dbc dbctx.Context, ev *UsageEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return dbc.DB(r.db).Create(ev).Error
}

func (r *usageRepo) CountSince(dbc dbctx.Context, userID uuid.UUID, prefix string, since time.Time) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&UsageEvent{}).
		Where("user_id = ? AND event_type LIKE ? AND created_at >= ?", userID, prefix+"%", since.UTC()).
		Count(&n).Error
	return n, err
}

func (r *usageRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*UsageEvent, error) {
	var out []*UsageEvent
	err := dbc.DB(r.db).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Purpose string    // exact purpose match
	From    time.Time // created_at >= From
}

// UsageStats aggregates model calls by a grouping key.
type UsageStats struct {
	Key          string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	CachedTokens int
	CostUSD      float64
	AvgLatencyMs int64
}

type LLMCallRepo interface {
	llm.CallRecorder
	List(dbc dbctx.Context, opts QueryOpts) ([]*LLMCallEvent, error)
	Get(dbc dbctx.Context, id uint) (*LLMCallEvent, error)
	// Count returns the number of recorded attempts matching opts.
	Count(dbc dbctx.Context, opts QueryOpts) (int64, error)
	StatsByPurpose(dbc dbctx.Context, opts QueryOpts) ([]UsageStats, error)
	StatsByModel(dbc dbctx.Context, opts QueryOpts) ([]UsageStats, error)
}

type llmCallRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLLMCallRepo(db *gorm.DB, baseLog *logger.Logger) LLMCallRepo {
	return &llmCallRepo{db: db, log: baseLog.With("repo", "LLMCallRepo")}
}

// RecordLLMCall implements llm.CallRecorder. It always writes outside any
// caller transaction.
func (r *llmCallRepo) RecordLLMCall(ctx context.Context, rec llm.CallRecord) error {
	row := &LLMCallEvent{
		Provider:     rec.Provider,
		Model:        rec.Model,
		Purpose:      rec.Purpose,
		Attempt:      rec.Attempt,
		LatencyMs:    rec.LatencyMs,
		Success:      rec.Success,
		ErrorKind:    rec.ErrorKind,
		ErrorMessage: rec.ErrorMessage,
		InputTokens:  rec.InputTokens,
		OutputTokens: rec.OutputTokens,
		CachedTokens: rec.CachedTokens,
		CostUSD:      rec.CostUSD,
		RequestBody:  rec.RequestBody,
		ResponseBody: rec.ResponseBody,
		CreatedAt:    time.Now().UTC(),
	}
	// The row is written even if the request context was cancelled.
	return r.db.WithContext(context.WithoutCancel(ctx)).Create(row).Error
}

func (r *llmCallRepo) filtered(dbc dbctx.Context, opts QueryOpts) *gorm.DB {
	q := dbc.DB(r.db).Model(&LLMCallEvent{})
	if opts.Purpose != "" {
		q = q.Where("purpose = ?", opts.Purpose)
	}
	if !opts.From.IsZero() {
		q = q.Where("created_at >= ?", opts.From.UTC())
	}
	return q
}

func (r *llmCallRepo) List(dbc dbctx.Context, opts QueryOpts) ([]*LLMCallEvent, error) {
	var out []*LLMCallEvent
	q := r.filtered(dbc, opts).Order("id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *llmCallRepo) Get(dbc dbctx.Context, id uint) (*LLMCallEvent, error) {
	var row LLMCallEvent
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *llmCallRepo) Count(dbc dbctx.Context, opts QueryOpts) (int64, error) {
	var n int64
	err := r.filtered(dbc, opts).Count(&n).Error
	return n, err
}

func (r *llmCallRepo) StatsByPurpose(dbc dbctx.Context, opts QueryOpts) ([]UsageStats, error) {
	return r.stats(dbc, opts, "purpose")
}

func (r *llmCallRepo) StatsByModel(dbc dbctx.Context, opts QueryOpts) ([]UsageStats, error) {
	return r.stats(dbc, opts, "model")
}

func (r *llmCallRepo) stats(dbc dbctx.Context, opts QueryOpts, column string) ([]UsageStats, error) {
	var rows []struct {
		GroupKey     string
		Calls        int
		Failures     int
		InputTokens  int
		OutputTokens int
		CachedTokens int
		CostUSD      float64
		AvgLatency   float64
	}
	err := r.filtered(dbc, opts).
		Select(column + " AS group_key, COUNT(*) AS calls, " +
			"SUM(CASE WHEN success THEN 0 ELSE 1 END) AS failures, " +
			"COALESCE(SUM(input_tokens), 0) AS input_tokens, " +
			"COALESCE(SUM(output_tokens), 0) AS output_tokens, " +
			"COALESCE(SUM(cached_tokens), 0) AS cached_tokens, " +
			"COALESCE(SUM(cost_usd), 0) AS cost_usd, " +
			"COALESCE(AVG(latency_ms), 0) AS avg_latency").
		Group(column).
		Order(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]UsageStats, len(rows))
	for i, row := range rows {
		out[i] = UsageStats{
			Key:          row.GroupKey,
			Calls:        row.Calls,
			Failures:     row.Failures,
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
			CachedTokens: row.CachedTokens,
			CostUSD:      row.CostUSD,
			AvgLatencyMs: int64(row.AvgLatency),
		}
	}
	return out, nil
}
