package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/store"
)

// Artifact names the derived documents the guard protects.
type Artifact string

const (
	ArtifactProfile Artifact = "profile"
	ArtifactRoadmap Artifact = "roadmap"
)

// Entry is what a cache knows about the current artifact of a student.
type Entry struct {
	Hash    string `json:"hash"`
	Version int    `json:"version"`
}

// Cache looks up the hash an artifact was last built from. Lookup returns
// ok=false when the cache has no entry.
type Cache interface {
	Lookup(ctx context.Context, a Artifact, studentID uuid.UUID) (Entry, bool, error)
	Store(ctx context.Context, a Artifact, studentID uuid.UUID, e Entry) error
}

// StoreCache reads the data_hash column of the persisted artifact row. The
// row itself is written by the pipeline, so Store is a no-op.
type StoreCache struct {
	profiles store.ProfileRepo
	roadmaps store.RoadmapRepo
}

func NewStoreCache(profiles store.ProfileRepo, roadmaps store.RoadmapRepo) *StoreCache {
	return &StoreCache{profiles: profiles, roadmaps: roadmaps}
}

func (c *StoreCache) Lookup(ctx context.Context, a Artifact, studentID uuid.UUID) (Entry, bool, error) {
	dbc := dbctx.New(ctx)
	switch a {
	case ArtifactProfile:
		row, err := c.profiles.GetByStudent(dbc, studentID)
		if err != nil || row == nil {
			return Entry{}, false, err
		}
		return Entry{Hash: row.DataHash, Version: row.Version}, true, nil
	case ArtifactRoadmap:
		row, err := c.roadmaps.GetByStudent(dbc, studentID)
		if err != nil || row == nil {
			return Entry{}, false, err
		}
		return Entry{Hash: row.DataHash, Version: row.Version}, true, nil
	}
	return Entry{}, false, fmt.Errorf("unknown artifact %q", a)
}

func (c *StoreCache) Store(context.Context, Artifact, uuid.UUID, Entry) error { return nil }

// RedisCache keeps entries in redis as JSON with a TTL, so that several
// instances share guard decisions without a database round trip.
type RedisCache struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache returns a cache over rdb. A zero ttl keeps entries forever.
func NewRedisCache(rdb goredis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "scholarloop:guard"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(a Artifact, studentID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, a, studentID)
}

func (c *RedisCache) Lookup(ctx context.Context, a Artifact, studentID uuid.UUID) (Entry, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(a, studentID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode guard entry: %w", err)
	}
	return e, true, nil
}

func (c *RedisCache) Store(ctx context.Context, a Artifact, studentID uuid.UUID, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(a, studentID), raw, c.ttl).Err()
}

// MemoryCache is an in-process cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func memKey(a Artifact, studentID uuid.UUID) string {
	return string(a) + ":" + studentID.String()
}

func (c *MemoryCache) Lookup(_ context.Context, a Artifact, studentID uuid.UUID) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[memKey(a, studentID)]
	return e, ok, nil
}

func (c *MemoryCache) Store(_ context.Context, a Artifact, studentID uuid.UUID, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[memKey(a, studentID)] = e
	return nil
}

// Tiered reads through its caches in order, back-filling faster tiers on a
// hit further down, and writes to every tier. The last tier should be the
// authoritative one (usually a StoreCache).
type Tiered []Cache

func (t Tiered) Lookup(ctx context.Context, a Artifact, studentID uuid.UUID) (Entry, bool, error) {
	for i, c := range t {
		e, ok, err := c.Lookup(ctx, a, studentID)
		if err != nil {
			return Entry{}, false, err
		}
		if !ok {
			continue
		}
		for _, faster := range t[:i] {
			_ = faster.Store(ctx, a, studentID, e)
		}
		return e, true, nil
	}
	return Entry{}, false, nil
}

func (t Tiered) Store(ctx context.Context, a Artifact, studentID uuid.UUID, e Entry) error {
	var errs []error
	for _, c := range t {
		if err := c.Store(ctx, a, studentID, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
