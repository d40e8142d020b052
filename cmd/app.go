package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/scholarloop/scholarloop/internal/config"
	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/entitlement"
	"github.com/scholarloop/scholarloop/internal/guard"
	"github.com/scholarloop/scholarloop/internal/keylock"
	"github.com/scholarloop/scholarloop/internal/llm"
	"github.com/scholarloop/scholarloop/internal/logger"
	"github.com/scholarloop/scholarloop/internal/pipeline"
	"github.com/scholarloop/scholarloop/internal/store"
	"github.com/scholarloop/scholarloop/internal/usage"
)

// env is what every command needs: configuration, a logger and the store.
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	store *store.Store
}

// openEnv loads configuration, applies the persistent flags and opens the
// store. Callers must call close.
func openEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.DSN = p
	}
	if m, _ := cmd.Flags().GetString("log-mode"); m != "" {
		cfg.Log.Mode = m
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	st, err := store.Open(cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{cfg: cfg, log: log, store: st}, nil
}

func (e *env) close() {
	e.store.Close()
	e.log.Sync()
}

// buildPipeline wires the model provider, the quota gate and, when redis
// is configured, the shared guard cache and locks.
func (e *env) buildPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	deps := pipeline.Deps{
		Store: e.store,
		Gate:  entitlement.NewGate(e.store.Subscriptions, e.store.Usage, e.cfg.Entitlement, e.log),
		Usage: usage.New(e.store.Usage, e.cfg.Usage.CountFailures, e.log),
		Log:   e.log,
	}

	provider, err := llm.NewProvider(ctx, e.cfg.LLM, e.store.LLMCalls, e.log)
	if err != nil {
		e.log.Warn("LLM provider not configured; generation falls back where it can", "error", err)
		deps.ProviderErr = err
	} else {
		deps.Provider = provider
	}

	cleanup := func() {}
	if rc := e.cfg.Redis; rc.Addr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", rc.Addr, err)
		}
		deps.Guard = guard.Tiered{
			guard.NewRedisCache(rdb, rc.Prefix+"guard:", rc.GuardTTL),
			guard.NewStoreCache(e.store.Profiles, e.store.Roadmaps),
		}
		deps.Locker = keylock.NewRedisLocker(rdb, rc.Prefix+"lock:", rc.LockTTL)
		cleanup = func() { rdb.Close() }
		e.log.Info("redis guard cache and locks enabled", "addr", rc.Addr)
	}

	return pipeline.New(deps, e.cfg.Pipeline), cleanup, nil
}

// scopeFor resolves the acting user given with --user.
func (e *env) scopeFor(cmd *cobra.Command) (pipeline.Scope, error) {
	raw, _ := cmd.Flags().GetString("user")
	userID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return pipeline.Scope{}, fmt.Errorf("invalid --user %q: %w", raw, err)
	}
	accountID, err := e.store.Accounts.ResolveOwner(dbctx.New(cmd.Context()), userID)
	if err != nil {
		return pipeline.Scope{}, fmt.Errorf("resolve user: %w", err)
	}
	if accountID == uuid.Nil {
		return pipeline.Scope{}, fmt.Errorf("user %s not found", userID)
	}
	force, _ := cmd.Flags().GetBool("force")
	return pipeline.Scope{ActorID: userID, AccountID: accountID, Force: force}, nil
}

// subjectByName matches a catalog subject by ID or case-insensitive name.
func subjectByName(ctx context.Context, st *store.Store, ref string) (*store.Subject, error) {
	subjects, err := st.Subjects.List(dbctx.New(ctx))
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	for _, s := range subjects {
		if s.ID.String() == ref || strings.EqualFold(s.Name, ref) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("subject %q not in catalog", ref)
}
