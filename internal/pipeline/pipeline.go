// Package pipeline orchestrates the content-generation operations: it checks
// entitlement, consults the regeneration guard, calls the model, falls back
// to deterministic content, persists the result and records usage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/content"
	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/entitlement"
	"github.com/scholarloop/scholarloop/internal/fallback"
	"github.com/scholarloop/scholarloop/internal/guard"
	"github.com/scholarloop/scholarloop/internal/keylock"
	"github.com/scholarloop/scholarloop/internal/llm"
	"github.com/scholarloop/scholarloop/internal/logger"
	"github.com/scholarloop/scholarloop/internal/memory"
	"github.com/scholarloop/scholarloop/internal/prompt"
	"github.com/scholarloop/scholarloop/internal/store"
	"github.com/scholarloop/scholarloop/internal/usage"
)

// GeneratedByFallback marks rows built from the fallback bank.
const GeneratedByFallback = "fallback"

// Config tunes the orchestrator.
type Config struct {
	// Timeout bounds one operation end to end.
	Timeout time.Duration `yaml:"timeout"`
	// CompleteOnDisconnect keeps generating and persisting after the
	// caller's context is cancelled.
	CompleteOnDisconnect bool `yaml:"complete_on_disconnect"`
	// WorksheetQuestions is used when a worksheet request names no count.
	WorksheetQuestions int `yaml:"worksheet_questions"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:              90 * time.Second,
		CompleteOnDisconnect: true,
		WorksheetQuestions:   10,
	}
}

// Scope identifies who is acting. Every operation takes one explicitly.
type Scope struct {
	ActorID   uuid.UUID
	AccountID uuid.UUID
	// Force regenerates guarded artifacts even when their inputs are
	// unchanged.
	Force bool
}

// DataMissingError rejects an operation whose prerequisites do not exist
// yet. It is returned before any model call.
type DataMissingError struct {
	Operation string
	Missing   string
}

func (e *DataMissingError) Error() string {
	return fmt.Sprintf("%s needs %s first", e.Operation, e.Missing)
}

func (e *DataMissingError) Kind() apierr.Kind { return apierr.KindDataMissing }

func (e *DataMissingError) Remediation() string {
	return "complete the missing step, then retry"
}

// Deps are the collaborators of a Pipeline. Store and Gate are required;
// everything else has a default.
type Deps struct {
	Store *store.Store
	Gate  *entitlement.Gate
	// Provider is nil when no model is configured; ProviderErr then says
	// why and is used as the fallback reason.
	Provider    llm.Provider
	ProviderErr error
	Usage       *usage.Logger
	Memory      *memory.Updater
	Guard       guard.Cache
	Locker      keylock.Locker
	Bank        *fallback.Bank
	Tracer      trace.Tracer
	Log         *logger.Logger
}

// Pipeline runs the inbound operations.
type Pipeline struct {
	store       *store.Store
	gate        *entitlement.Gate
	provider    llm.Provider
	providerErr error
	usage       *usage.Logger
	memory      *memory.Updater
	guard       guard.Cache
	locker      keylock.Locker
	bank        *fallback.Bank
	tracer      trace.Tracer
	validate    *validator.Validate
	flight      singleflight.Group
	cfg         Config
	log         *logger.Logger
}

func New(deps Deps, cfg Config) *Pipeline {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.WorksheetQuestions <= 0 {
		cfg.WorksheetQuestions = def.WorksheetQuestions
	}

	p := &Pipeline{
		store:       deps.Store,
		gate:        deps.Gate,
		provider:    deps.Provider,
		providerErr: deps.ProviderErr,
		usage:       deps.Usage,
		memory:      deps.Memory,
		guard:       deps.Guard,
		locker:      deps.Locker,
		bank:        deps.Bank,
		tracer:      deps.Tracer,
		validate:    validator.New(),
		cfg:         cfg,
		log:         log.With("component", "pipeline"),
	}
	if p.provider == nil && p.providerErr == nil {
		p.providerErr = &llm.ErrNotConfigured{Reason: "no provider selected"}
	}
	if p.usage == nil {
		p.usage = usage.New(deps.Store.Usage, false, log)
	}
	if p.memory == nil {
		p.memory = memory.NewUpdater(deps.Store.LearningMemory, deps.Store.BehavioralMemory, log)
	}
	if p.guard == nil {
		p.guard = guard.NewStoreCache(deps.Store.Profiles, deps.Store.Roadmaps)
	}
	if p.locker == nil {
		p.locker = keylock.NewMemoryLocker()
	}
	if p.bank == nil {
		p.bank = fallback.NewBank()
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer("github.com/scholarloop/scholarloop/internal/pipeline")
	}
	return p
}

// begin detaches ctx from caller cancellation when configured, applies the
// operation timeout and opens a span.
func (p *Pipeline) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	if p.cfg.CompleteOnDisconnect {
		ctx = context.WithoutCancel(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	ctx, span := p.tracer.Start(ctx, "pipeline."+op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, string(apierr.KindOf(*errp)))
		}
		span.End()
		cancel()
	}
}

// admit runs the entitlement gate. It is the first step of every operation.
func (p *Pipeline) admit(ctx context.Context, scope Scope, feature string) error {
	if scope.ActorID == uuid.Nil || scope.AccountID == uuid.Nil {
		return apierr.Forbidden("no acting user")
	}
	return p.gate.Check(ctx, entitlement.Request{
		UserID:    scope.ActorID,
		AccountID: scope.AccountID,
		Feature:   feature,
	})
}

// student loads a student and checks that the scope's account owns it.
func (p *Pipeline) student(ctx context.Context, scope Scope, id uuid.UUID) (*store.Student, error) {
	st, err := p.store.Students.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if st == nil {
		return nil, apierr.NotFound("student", id)
	}
	if st.AccountID != scope.AccountID {
		return nil, apierr.Forbidden("student %s belongs to another account", id)
	}
	return st, nil
}

func (p *Pipeline) subject(ctx context.Context, id uuid.UUID) (*store.Subject, error) {
	subj, err := p.store.Subjects.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}
	if subj == nil {
		return nil, apierr.NotFound("subject", id)
	}
	return subj, nil
}

// check validates a request struct against its validate tags.
func (p *Pipeline) check(in any) error {
	if err := p.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return apierr.Invalid("%s failed %q validation", f.Field(), f.Tag())
		}
		return apierr.Invalid("%v", err)
	}
	return nil
}

// modelID names the generator recorded on persisted rows.
func (p *Pipeline) modelID() string {
	if p.provider == nil {
		return GeneratedByFallback
	}
	return p.provider.ModelID()
}

// generate runs one model call for op and decodes the result into T,
// applying T's semantic checks. Usage is recorded for the acting user.
func generate[T any](ctx context.Context, p *Pipeline, scope Scope, pr prompt.Prompt, kind content.Kind) (T, error) {
	var zero T
	op := string(pr.Operation)
	if p.provider == nil {
		p.usage.Record(ctx, scope.ActorID, op, usage.Unconfigured, nil)
		return zero, p.providerErr
	}

	ctx = llm.WithPurpose(ctx, op)
	ctx, span := p.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("operation", op),
		attribute.String("prompt.cache_key", pr.CacheKey),
	))
	defer span.End()

	resp, err := p.provider.Generate(ctx, pr.Request(content.SchemaFor(kind)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apierr.KindOf(err)))
		outcome := usage.Failed
		if apierr.KindOf(err) == apierr.KindConfig {
			outcome = usage.Unconfigured
		}
		p.usage.Record(ctx, scope.ActorID, op, outcome, nil)
		return zero, fmt.Errorf("%s generation: %w", op, err)
	}
	span.SetAttributes(
		attribute.Int("tokens.input", resp.Usage.InputTokens),
		attribute.Int("tokens.output", resp.Usage.OutputTokens),
		attribute.Int("tokens.cached", resp.Usage.CachedInputTokens),
	)

	doc, err := content.Parse[T](resp.Content, kind)
	if err != nil {
		span.RecordError(err)
		p.usage.Record(ctx, scope.ActorID, op, usage.Failed, nil)
		return zero, fmt.Errorf("%s generation: %w", op, err)
	}
	p.usage.Record(ctx, scope.ActorID, op, usage.Generated, nil)
	return doc, nil
}

// fallbackReason classifies err and logs the fallback.
func (p *Pipeline) fallbackReason(op prompt.Operation, err error) fallback.Reason {
	reason := fallback.ReasonFor(err)
	p.log.Warn("serving fallback content",
		"operation", op, "fallback_reason", reason, "kind", apierr.KindOf(err), "error", err)
	return reason
}

// checkAnswers rejects answers for unknown questions and duplicates.
func checkAnswers(qs []content.Question, answers []content.Answer) error {
	known := make(map[string]bool, len(qs))
	for _, q := range qs {
		known[q.ID] = true
	}
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		if !known[a.QuestionID] {
			return apierr.Invalid("answer for unknown question %q", a.QuestionID)
		}
		if seen[a.QuestionID] {
			return apierr.Invalid("duplicate answer for question %q", a.QuestionID)
		}
		seen[a.QuestionID] = true
	}
	return nil
}

// commitGrade runs write in one transaction. With a student it holds that
// student's memory lock, so every grading path updates learning memory one
// at a time, and reruns the transaction once when a version check loses.
func (p *Pipeline) commitGrade(ctx context.Context, studentID *uuid.UUID, write func(tdb dbctx.Context) error) error {
	if studentID != nil {
		unlock, err := p.locker.Lock(ctx, "memory:"+studentID.String())
		if err != nil {
			return fmt.Errorf("lock learning memory: %w", err)
		}
		defer unlock()
	}
	dbc := dbctx.New(ctx)
	return store.RetryConflict(func() error {
		return p.store.Transaction(func(tx *gorm.DB) error {
			return write(dbc.WithTx(tx))
		})
	})
}

// conflict maps a lost state transition to a conflict error.
func conflict(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrConflict) {
		return apierr.Conflict(format, args...)
	}
	return err
}
