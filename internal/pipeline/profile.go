package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/content"
	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/entitlement"
	"github.com/scholarloop/scholarloop/internal/guard"
	"github.com/scholarloop/scholarloop/internal/prompt"
	"github.com/scholarloop/scholarloop/internal/store"
)

// Artifact is a guarded document together with its bookkeeping.
type Artifact[T any] struct {
	Doc         T
	StudentID   uuid.UUID
	DataHash    string
	Version     int
	GeneratedBy string
	UpdatedAt   time.Time
	// Regenerated is false when the stored document was reused.
	Regenerated bool
	Reason      guard.Reason
}

// evidence is everything the profile is derived from.
type evidence struct {
	inputs      guard.Inputs
	assessments []prompt.Evidence
	mastery     []prompt.Mastery
}

// GenerateProfile returns the student's learning profile, regenerating it
// only when the evidence changed or scope.Force is set.
func (p *Pipeline) GenerateProfile(ctx context.Context, scope Scope, studentID uuid.UUID) (_ *Artifact[content.Profile], err error) {
	ctx, end := p.begin(ctx, "GenerateProfile", attribute.String("student_id", studentID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureAI); err != nil {
		return nil, err
	}
	st, err := p.student(ctx, scope, studentID)
	if err != nil {
		return nil, err
	}
	return p.refreshProfile(ctx, scope, st)
}

// refreshProfile coalesces concurrent identical requests, then runs the
// guarded generation under the student's profile lock.
func (p *Pipeline) refreshProfile(ctx context.Context, scope Scope, st *store.Student) (*Artifact[content.Profile], error) {
	key := fmt.Sprintf("profile:%s:%t", st.ID, scope.Force)
	v, err, shared := p.flight.Do(key, func() (any, error) {
		unlock, err := p.locker.Lock(ctx, "profile:"+st.ID.String())
		if err != nil {
			return nil, fmt.Errorf("lock profile: %w", err)
		}
		defer unlock()
		return p.profileLocked(ctx, scope, st)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.log.Debug("profile request coalesced", "student_id", st.ID)
	}
	return v.(*Artifact[content.Profile]), nil
}

func (p *Pipeline) profileLocked(ctx context.Context, scope Scope, st *store.Student) (*Artifact[content.Profile], error) {
	dbc := dbctx.New(ctx)

	ev, err := p.gatherEvidence(ctx, st)
	if err != nil {
		return nil, err
	}
	if len(ev.assessments) == 0 {
		return nil, &DataMissingError{Operation: "profile", Missing: "a completed assessment"}
	}
	hash := guard.Hash(ev.inputs)

	entry, _, err := p.guard.Lookup(ctx, guard.ArtifactProfile, st.ID)
	if err != nil {
		return nil, fmt.Errorf("guard lookup: %w", err)
	}
	decision := guard.Decide(entry.Hash, hash, scope.Force)

	existing, err := p.store.Profiles.GetByStudent(dbc, st.ID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !decision.Regenerate && existing != nil {
		doc, err := content.Open[content.Profile](existing.Payload, content.KindProfile)
		if err != nil {
			return nil, fmt.Errorf("decode stored profile: %w", err)
		}
		p.log.Debug("profile unchanged", "student_id", st.ID, "version", existing.Version)
		return profileArtifact(existing, doc, false, decision.Reason), nil
	}
	if existing == nil && !decision.Regenerate {
		// The cache outlived the row.
		decision = guard.Decision{Regenerate: true, Reason: guard.ReasonMissing}
	}

	in := prompt.ProfileInput{
		Student:     promptStudent(st),
		Assessments: ev.assessments,
		Mastery:     ev.mastery,
	}
	if existing != nil {
		if prev, err := content.Open[content.Profile](existing.Payload, content.KindProfile); err == nil {
			in.Previous = &prev
		}
	}

	doc, err := generate[content.Profile](ctx, p, scope, prompt.Profile(in), content.KindProfile)
	if err != nil {
		return nil, err
	}
	payload, err := content.Wrap(content.KindProfile, doc)
	if err != nil {
		return nil, err
	}

	row := &store.LearningProfile{
		StudentID:     st.ID,
		Payload:       datatypes.JSON(payload),
		LearningSpeed: doc.LearningSpeed,
		AttentionSpan: doc.AttentionSpan,
		ContentStyle:  doc.ContentStyle,
		DataHash:      hash,
		GeneratedBy:   p.modelID(),
	}
	err = store.RetryConflict(func() error {
		return p.store.Transaction(func(tx *gorm.DB) error {
			tdb := dbc.WithTx(tx)
			current, err := p.store.Profiles.GetByStudent(tdb, st.ID)
			if err != nil {
				return err
			}
			expected := 0
			if current != nil {
				expected = current.Version
				row.ID = current.ID
			}
			row.GeneratedAt = time.Now().UTC()
			if err := p.store.Profiles.Save(tdb, row, expected); err != nil {
				return err
			}
			return p.memory.ObserveBehavior(tdb, st.ID, doc.AttentionSpan, doc.ContentStyle)
		})
	})
	if err != nil {
		return nil, conflict(fmt.Errorf("save profile: %w", err), "profile of student %s changed concurrently", st.ID)
	}
	if err := p.guard.Store(ctx, guard.ArtifactProfile, st.ID, guard.Entry{Hash: hash, Version: row.Version}); err != nil {
		p.log.Warn("guard store failed", "artifact", guard.ArtifactProfile, "error", err)
	}

	p.log.Info("profile generated",
		"student_id", st.ID, "version", row.Version, "reason", decision.Reason, "assessments", len(ev.assessments))
	return profileArtifact(row, doc, true, decision.Reason), nil
}

func profileArtifact(row *store.LearningProfile, doc content.Profile, regenerated bool, reason guard.Reason) *Artifact[content.Profile] {
	return &Artifact[content.Profile]{
		Doc:         doc,
		StudentID:   row.StudentID,
		DataHash:    row.DataHash,
		Version:     row.Version,
		GeneratedBy: row.GeneratedBy,
		UpdatedAt:   row.GeneratedAt,
		Regenerated: regenerated,
		Reason:      reason,
	}
}

// GetProfile returns the stored profile without generating one.
func (p *Pipeline) GetProfile(ctx context.Context, scope Scope, studentID uuid.UUID) (_ *Artifact[content.Profile], err error) {
	ctx, end := p.begin(ctx, "GetProfile", attribute.String("student_id", studentID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureRead); err != nil {
		return nil, err
	}
	if _, err := p.student(ctx, scope, studentID); err != nil {
		return nil, err
	}
	row, err := p.store.Profiles.GetByStudent(dbctx.New(ctx), studentID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if row == nil {
		return nil, apierr.NotFound("profile of student", studentID)
	}
	doc, err := content.Open[content.Profile](row.Payload, content.KindProfile)
	if err != nil {
		return nil, fmt.Errorf("decode stored profile: %w", err)
	}
	return profileArtifact(row, doc, false, guard.ReasonUnchanged), nil
}

// gatherEvidence loads completed assessments with their results, subject
// names and learning memory.
func (p *Pipeline) gatherEvidence(ctx context.Context, st *store.Student) (evidence, error) {
	dbc := dbctx.New(ctx)
	var ev evidence

	done, err := p.store.Assessments.ListCompleted(dbc, st.ID)
	if err != nil {
		return ev, fmt.Errorf("list assessments: %w", err)
	}
	results, err := p.store.Results.ListByStudent(dbc, st.ID)
	if err != nil {
		return ev, fmt.Errorf("list results: %w", err)
	}
	memories, err := p.store.LearningMemory.ListByStudent(dbc, st.ID)
	if err != nil {
		return ev, fmt.Errorf("list memory: %w", err)
	}

	subjectIDs := make([]uuid.UUID, 0, len(done)+len(memories))
	for _, a := range done {
		subjectIDs = append(subjectIDs, a.SubjectID)
	}
	for _, m := range memories {
		subjectIDs = append(subjectIDs, m.SubjectID)
	}
	names, err := p.subjectNames(ctx, subjectIDs)
	if err != nil {
		return ev, err
	}

	byAssessment := make(map[uuid.UUID]*store.AssessmentResult, len(results))
	for _, r := range results {
		byAssessment[r.AssessmentID] = r
	}

	ev.inputs = guard.Inputs{
		Age:       st.Age,
		Religion:  st.Religion,
		Interests: decodeStrings(st.Interests),
	}
	for _, a := range done {
		res := byAssessment[a.ID]
		if res == nil {
			continue
		}
		strengths, weaknesses := decodeStrings(res.Strengths), decodeStrings(res.Weaknesses)
		ev.inputs.Assessments = append(ev.inputs.Assessments, guard.AssessmentInput{
			ID:              a.ID.String(),
			Subject:         names[a.SubjectID],
			NormalizedScore: res.NormalizedScore,
			Strengths:       strengths,
			Weaknesses:      weaknesses,
		})
		ev.assessments = append(ev.assessments, prompt.Evidence{
			Subject:         names[a.SubjectID],
			Kind:            a.Kind,
			NormalizedScore: res.NormalizedScore,
			Strengths:       strengths,
			Weaknesses:      weaknesses,
			Summary:         res.Summary,
		})
	}
	for _, m := range memories {
		ev.inputs.Mastery = append(ev.inputs.Mastery, guard.MasteryInput{
			Subject: names[m.SubjectID], Concept: m.Concept, Level: m.MasteryLevel,
		})
		ev.mastery = append(ev.mastery, prompt.Mastery{
			Subject: names[m.SubjectID], Concept: m.Concept, Level: m.MasteryLevel,
		})
	}
	return ev, nil
}

func (p *Pipeline) subjectNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	uniq := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	subjects, err := p.store.Subjects.GetByIDs(dbctx.New(ctx), uniq)
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	out := make(map[uuid.UUID]string, len(subjects))
	for _, s := range subjects {
		out[s.ID] = s.Name
	}
	return out, nil
}

func promptStudent(st *store.Student) prompt.Student {
	return prompt.Student{
		Name:      st.Name,
		Age:       st.Age,
		Religion:  st.Religion,
		Interests: decodeStrings(st.Interests),
	}
}

// decodeStrings reads a JSON string list; anything else yields nil.
func decodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// encodeJSON marshals v for a JSON column.
func encodeJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
