package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/content"
	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/entitlement"
	"github.com/scholarloop/scholarloop/internal/guard"
	"github.com/scholarloop/scholarloop/internal/llm"
	"github.com/scholarloop/scholarloop/internal/prompt"
	"github.com/scholarloop/scholarloop/internal/store"
)

// GenerateRoadmap returns the student's curriculum plan. The profile is
// refreshed first, so a roadmap always reflects the current profile.
func (p *Pipeline) GenerateRoadmap(ctx context.Context, scope Scope, studentID uuid.UUID) (_ *Artifact[content.Roadmap], err error) {
	ctx, end := p.begin(ctx, "GenerateRoadmap", attribute.String("student_id", studentID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureAI); err != nil {
		return nil, err
	}
	st, err := p.student(ctx, scope, studentID)
	if err != nil {
		return nil, err
	}

	// Profile lock before roadmap lock, never the other way round.
	profile, err := p.refreshProfile(ctx, scope, st)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("roadmap:%s:%t", st.ID, scope.Force)
	v, err, _ := p.flight.Do(key, func() (any, error) {
		unlock, err := p.locker.Lock(ctx, "roadmap:"+st.ID.String())
		if err != nil {
			return nil, fmt.Errorf("lock roadmap: %w", err)
		}
		defer unlock()
		return p.roadmapLocked(ctx, scope, st, profile)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Artifact[content.Roadmap]), nil
}

func (p *Pipeline) roadmapLocked(ctx context.Context, scope Scope, st *store.Student, profile *Artifact[content.Profile]) (*Artifact[content.Roadmap], error) {
	dbc := dbctx.New(ctx)

	catalog, err := p.store.Subjects.List(dbc)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	names := make([]string, 0, len(catalog))
	for _, s := range catalog {
		names = append(names, s.Name)
	}
	subjects := prompt.SelectRoadmapSubjects(names, st.Age, st.Religion)
	if len(subjects) == 0 {
		return nil, &DataMissingError{Operation: "roadmap", Missing: "at least one catalog subject"}
	}

	hash := guard.Hash(guard.Inputs{
		Age:       st.Age,
		Religion:  st.Religion,
		Interests: decodeStrings(st.Interests),
		Extra: map[string]string{
			"profile":  profile.DataHash,
			"subjects": strings.Join(subjects, "|"),
		},
	})

	entry, _, err := p.guard.Lookup(ctx, guard.ArtifactRoadmap, st.ID)
	if err != nil {
		return nil, fmt.Errorf("guard lookup: %w", err)
	}
	decision := guard.Decide(entry.Hash, hash, scope.Force)

	existing, err := p.store.Roadmaps.GetByStudent(dbc, st.ID)
	if err != nil {
		return nil, fmt.Errorf("load roadmap: %w", err)
	}
	if !decision.Regenerate && existing != nil {
		doc, err := content.Open[content.Roadmap](existing.Payload, content.KindRoadmap)
		if err != nil {
			return nil, fmt.Errorf("decode stored roadmap: %w", err)
		}
		return roadmapArtifact(existing, doc, false, decision.Reason), nil
	}
	if existing == nil && !decision.Regenerate {
		decision = guard.Decision{Regenerate: true, Reason: guard.ReasonMissing}
	}

	doc, err := generate[content.Roadmap](ctx, p, scope, prompt.Roadmap(prompt.RoadmapInput{
		Student:  promptStudent(st),
		Profile:  profile.Doc,
		Subjects: subjects,
	}), content.KindRoadmap)
	if err != nil {
		return nil, err
	}
	if err := checkRoadmapSubjects(doc, subjects); err != nil {
		return nil, err
	}
	payload, err := content.Wrap(content.KindRoadmap, doc)
	if err != nil {
		return nil, err
	}

	row := &store.Roadmap{
		StudentID:   st.ID,
		Payload:     datatypes.JSON(payload),
		DataHash:    hash,
		GeneratedBy: p.modelID(),
	}
	err = store.RetryConflict(func() error {
		return p.store.Transaction(func(tx *gorm.DB) error {
			tdb := dbc.WithTx(tx)
			current, err := p.store.Roadmaps.GetByStudent(tdb, st.ID)
			if err != nil {
				return err
			}
			expected := 0
			if current != nil {
				expected = current.Version
				row.ID = current.ID
			}
			return p.store.Roadmaps.Save(tdb, row, expected)
		})
	})
	if err != nil {
		return nil, conflict(fmt.Errorf("save roadmap: %w", err), "roadmap of student %s changed concurrently", st.ID)
	}
	if err := p.guard.Store(ctx, guard.ArtifactRoadmap, st.ID, guard.Entry{Hash: hash, Version: row.Version}); err != nil {
		p.log.Warn("guard store failed", "artifact", guard.ArtifactRoadmap, "error", err)
	}

	p.log.Info("roadmap generated",
		"student_id", st.ID, "version", row.Version, "reason", decision.Reason, "subjects", len(doc.Subjects))
	return roadmapArtifact(row, doc, true, decision.Reason), nil
}

// checkRoadmapSubjects rejects plans for subjects that were not requested.
func checkRoadmapSubjects(doc content.Roadmap, requested []string) error {
	allowed := make(map[string]bool, len(requested))
	for _, s := range requested {
		allowed[strings.ToLower(strings.TrimSpace(s))] = true
	}
	for _, s := range doc.Subjects {
		if !allowed[strings.ToLower(strings.TrimSpace(s.Subject))] {
			return fmt.Errorf("roadmap generation: %w", &llm.ErrInvalidResponse{
				Err: fmt.Errorf("subject %q was not requested", s.Subject),
			})
		}
	}
	return nil
}

func roadmapArtifact(row *store.Roadmap, doc content.Roadmap, regenerated bool, reason guard.Reason) *Artifact[content.Roadmap] {
	return &Artifact[content.Roadmap]{
		Doc:         doc,
		StudentID:   row.StudentID,
		DataHash:    row.DataHash,
		Version:     row.Version,
		GeneratedBy: row.GeneratedBy,
		UpdatedAt:   row.LastUpdated,
		Regenerated: regenerated,
		Reason:      reason,
	}
}

// GetRoadmap returns the stored roadmap without generating one.
func (p *Pipeline) GetRoadmap(ctx context.Context, scope Scope, studentID uuid.UUID) (_ *Artifact[content.Roadmap], err error) {
	ctx, end := p.begin(ctx, "GetRoadmap", attribute.String("student_id", studentID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureRead); err != nil {
		return nil, err
	}
	if _, err := p.student(ctx, scope, studentID); err != nil {
		return nil, err
	}
	row, err := p.store.Roadmaps.GetByStudent(dbctx.New(ctx), studentID)
	if err != nil {
		return nil, fmt.Errorf("load roadmap: %w", err)
	}
	if row == nil {
		return nil, apierr.NotFound("roadmap of student", studentID)
	}
	doc, err := content.Open[content.Roadmap](row.Payload, content.KindRoadmap)
	if err != nil {
		return nil, fmt.Errorf("decode stored roadmap: %w", err)
	}
	return roadmapArtifact(row, doc, false, guard.ReasonUnchanged), nil
}
