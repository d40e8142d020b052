package guard

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/datatypes"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/store"
	"github.com/scholarloop/scholarloop/internal/store/storetest"
)

func sampleInputs() Inputs {
	return Inputs{
		Assessments: []AssessmentInput{
			{ID: "b", Subject: "Science", NormalizedScore: 70, Strengths: []string{"Plants"}},
			{ID: "a", Subject: "Mathematics", NormalizedScore: 53, Strengths: []string{"subtraction"}, Weaknesses: []string{"addition", "fractions"}},
		},
		Age:       9,
		Religion:  "Muslim",
		Interests: []string{"space", "Dinosaurs"},
		Mastery: []MasteryInput{
			{Subject: "Mathematics", Concept: "subtraction", Level: 80},
			{Subject: "Mathematics", Concept: "addition", Level: 40},
		},
	}
}

func TestHash_IgnoresOrderingAndCase(t *testing.T) {
	in := sampleInputs()
	shuffled := sampleInputs()
	shuffled.Assessments[0], shuffled.Assessments[1] = shuffled.Assessments[1], shuffled.Assessments[0]
	shuffled.Assessments[0].Weaknesses = []string{"fractions", "Addition"}
	shuffled.Interests = []string{"dinosaurs", "space"}
	shuffled.Mastery[0], shuffled.Mastery[1] = shuffled.Mastery[1], shuffled.Mastery[0]
	shuffled.Religion = " muslim "

	if Hash(in) != Hash(shuffled) {
		t.Fatal("hash depends on input ordering")
	}
	if len(Hash(in)) != 64 {
		t.Errorf("hash length = %d, want 64", len(Hash(in)))
	}
}

func TestHash_ChangesWithEvidence(t *testing.T) {
	base := Hash(sampleInputs())

	tests := []struct {
		name   string
		mutate func(*Inputs)
	}{
		{"new assessment", func(in *Inputs) {
			in.Assessments = append(in.Assessments, AssessmentInput{ID: "c", Subject: "English", NormalizedScore: 90})
		}},
		{"score", func(in *Inputs) { in.Assessments[1].NormalizedScore = 54 }},
		{"age", func(in *Inputs) { in.Age = 10 }},
		{"interest", func(in *Inputs) { in.Interests = append(in.Interests, "music") }},
		{"mastery", func(in *Inputs) { in.Mastery[1].Level = 55 }},
		{"extra", func(in *Inputs) { in.Extra = map[string]string{"profile": "abc"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleInputs()
			tt.mutate(&in)
			if Hash(in) == base {
				t.Errorf("hash unchanged after %s changed", tt.name)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		stored, current string
		force           bool
		want            Decision
	}{
		{"", "h", false, Decision{true, ReasonMissing}},
		{"", "h", true, Decision{true, ReasonMissing}},
		{"h", "h", true, Decision{true, ReasonForced}},
		{"h", "g", false, Decision{true, ReasonInputsChanged}},
		{"h", "h", false, Decision{false, ReasonUnchanged}},
	}
	for _, tt := range tests {
		if got := Decide(tt.stored, tt.current, tt.force); got != tt.want {
			t.Errorf("Decide(%q, %q, %v) = %+v, want %+v", tt.stored, tt.current, tt.force, got, tt.want)
		}
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	sid := uuid.New()

	if _, ok, _ := c.Lookup(ctx, ArtifactProfile, sid); ok {
		t.Fatal("empty cache reported a hit")
	}
	if err := c.Store(ctx, ArtifactProfile, sid, Entry{Hash: "h", Version: 2}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	e, ok, err := c.Lookup(ctx, ArtifactProfile, sid)
	if err != nil || !ok || e.Hash != "h" || e.Version != 2 {
		t.Fatalf("Lookup = %+v, %v, %v", e, ok, err)
	}
	if _, ok, _ := c.Lookup(ctx, ArtifactRoadmap, sid); ok {
		t.Error("artifacts share cache entries")
	}
}

func TestStoreCacheReadsRowHash(t *testing.T) {
	s := storetest.Open(t)
	ctx := context.Background()
	sid := uuid.New()
	c := NewStoreCache(s.Profiles, s.Roadmaps)

	if _, ok, err := c.Lookup(ctx, ArtifactProfile, sid); ok || err != nil {
		t.Fatalf("Lookup before save = %v, %v", ok, err)
	}

	row := &store.LearningProfile{StudentID: sid, Payload: datatypes.JSON(`{}`), DataHash: "abc"}
	if err := s.Profiles.Save(dbctx.New(ctx), row, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	e, ok, err := c.Lookup(ctx, ArtifactProfile, sid)
	if err != nil || !ok || e.Hash != "abc" || e.Version != 1 {
		t.Fatalf("Lookup = %+v, %v, %v", e, ok, err)
	}
}

func TestTiered_BackfillsFasterTier(t *testing.T) {
	ctx := context.Background()
	sid := uuid.New()
	fast, slow := NewMemoryCache(), NewMemoryCache()
	_ = slow.Store(ctx, ArtifactRoadmap, sid, Entry{Hash: "r1", Version: 1})

	tiers := Tiered{fast, slow}
	e, ok, err := tiers.Lookup(ctx, ArtifactRoadmap, sid)
	if err != nil || !ok || e.Hash != "r1" {
		t.Fatalf("Lookup = %+v, %v, %v", e, ok, err)
	}
	if got, ok, _ := fast.Lookup(ctx, ArtifactRoadmap, sid); !ok || got.Hash != "r1" {
		t.Error("fast tier was not back-filled")
	}

	if err := tiers.Store(ctx, ArtifactRoadmap, sid, Entry{Hash: "r2", Version: 2}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if got, _, _ := slow.Lookup(ctx, ArtifactRoadmap, sid); got.Hash != "r2" {
		t.Errorf("slow tier hash = %q, want r2", got.Hash)
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	c := NewRedisCache(rdb, "scholarloop:test:"+uuid.NewString(), time.Minute)
	sid := uuid.New()

	if _, ok, err := c.Lookup(ctx, ArtifactProfile, sid); ok || err != nil {
		t.Fatalf("Lookup on empty key = %v, %v", ok, err)
	}
	if err := c.Store(ctx, ArtifactProfile, sid, Entry{Hash: "h", Version: 3}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	e, ok, err := c.Lookup(ctx, ArtifactProfile, sid)
	if err != nil || !ok || e.Version != 3 {
		t.Fatalf("Lookup = %+v, %v, %v", e, ok, err)
	}
}
