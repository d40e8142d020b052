// Package memory maintains the longitudinal learning and behavioral memory
// of a student from graded work.
package memory

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/scholarloop/scholarloop/internal/content"
	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/logger"
	"github.com/scholarloop/scholarloop/internal/store"
)

const (
	// StrengthLevel and WeaknessLevel are the observed levels for concepts
	// named by a grade without per-question evidence.
	StrengthLevel = 80
	WeaknessLevel = 30

	// MinWeight is the floor of the weight given to a new observation.
	MinWeight = 0.3

	// MaxEvidence caps the evidence entries kept per concept.
	MaxEvidence = 20
)

// EvidenceEntry is one observation appended to a learning memory row.
type EvidenceEntry struct {
	Source   string          `json:"source"`
	SourceID string          `json:"source_id,omitempty"`
	Observed int             `json:"observed"`
	Note     string          `json:"note,omitempty"`
	Errors   []ErrorCategory `json:"errors,omitempty"`
	At       time.Time       `json:"at"`
}

// Blend folds an observed level into the current one. The weight of the
// observation is 1/(n+1), floored at MinWeight, where n is the number of
// observations already folded in.
func Blend(level, evidenceCount, observed int) int {
	alpha := math.Max(MinWeight, 1/float64(evidenceCount+1))
	v := float64(level)*(1-alpha) + float64(observed)*alpha
	return clamp(int(math.Round(v)), 0, 100)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// Observation is one graded piece of work for a subject.
type Observation struct {
	StudentID uuid.UUID
	SubjectID uuid.UUID
	// Source names what was graded, e.g. "assessment" or "quiz".
	Source    string
	SourceID  string
	Questions []content.Question
	Grade     content.AssessmentGrade
}

// conceptObservation is the observed level of one concept.
type conceptObservation struct {
	level  int
	note   string
	errors []ErrorCategory
}

// observe derives per-concept levels. Concepts with tagged questions use
// their accuracy adjusted for error categories; the remaining named
// strengths and weaknesses use the fixed levels.
func observe(obs Observation) map[string]conceptObservation {
	out := make(map[string]conceptObservation)

	tallies := content.ConceptTallies(obs.Questions, obs.Grade.GradedAnswers)
	if len(tallies) > 0 {
		skillOf := make(map[string]string, len(obs.Questions))
		for _, q := range obs.Questions {
			skillOf[q.ID] = content.NormalizeAnswer(q.SkillTested)
		}
		misses := make(map[string][]ErrorCategory)
		for _, ga := range obs.Grade.GradedAnswers {
			if ga.IsCorrect {
				continue
			}
			if c := skillOf[ga.QuestionID]; c != "" {
				misses[c] = append(misses[c], CategorizeError(ga.Feedback))
			}
		}
		for c, t := range tallies {
			out[c] = conceptObservation{
				level:  MasteryScore(t.Correct, t.Total, misses[c]),
				note:   fmt.Sprintf("%d of %d correct", t.Correct, t.Total),
				errors: misses[c],
			}
		}
	}

	named := func(list []content.ConceptEvidence, level int, fallbackNote string) {
		for _, ev := range list {
			c := content.NormalizeAnswer(ev.Concept)
			if c == "" {
				continue
			}
			if _, ok := out[c]; ok {
				continue
			}
			note := ev.Evidence
			if note == "" {
				note = fallbackNote
			}
			out[c] = conceptObservation{level: level, note: note}
		}
	}
	named(obs.Grade.Strengths, StrengthLevel, "Strength observed")
	named(obs.Grade.Weaknesses, WeaknessLevel, "Needs practice")
	return out
}

// Updater writes learning and behavioral memory.
type Updater struct {
	learning store.LearningMemoryRepo
	behavior store.BehavioralMemoryRepo
	log      *logger.Logger
	now      func() time.Time
}

func NewUpdater(learning store.LearningMemoryRepo, behavior store.BehavioralMemoryRepo, log *logger.Logger) *Updater {
	return &Updater{
		learning: learning,
		behavior: behavior,
		log:      log.With("component", "memory"),
		now:      time.Now,
	}
}

// Apply blends every concept observed in obs into learning memory. Pass a
// transactional dbc to commit it together with the grade. Each row is
// written against the version it was read at, so a concurrent writer makes
// Apply fail with store.ErrConflict instead of dropping evidence; callers
// rerun the whole transaction (store.RetryConflict).
func (u *Updater) Apply(dbc dbctx.Context, obs Observation) ([]*store.LearningMemory, error) {
	observed := observe(obs)
	concepts := make([]string, 0, len(observed))
	for c := range observed {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)

	now := u.now().UTC()
	out := make([]*store.LearningMemory, 0, len(concepts))
	for _, c := range concepts {
		o := observed[c]
		row, err := u.learning.Get(dbc, obs.StudentID, obs.SubjectID, c)
		if err != nil {
			return nil, fmt.Errorf("load memory %q: %w", c, err)
		}
		if row == nil {
			row = &store.LearningMemory{StudentID: obs.StudentID, SubjectID: obs.SubjectID, Concept: c}
		}

		var evidence []EvidenceEntry
		if len(row.Evidence) > 0 {
			if err := json.Unmarshal(row.Evidence, &evidence); err != nil {
				u.log.Warn("discarding unreadable evidence", "concept", c, "error", err)
				evidence = nil
			}
		}
		evidence = append(evidence, EvidenceEntry{
			Source:   obs.Source,
			SourceID: obs.SourceID,
			Observed: o.level,
			Note:     o.note,
			Errors:   o.errors,
			At:       now,
		})
		if len(evidence) > MaxEvidence {
			evidence = evidence[len(evidence)-MaxEvidence:]
		}
		raw, err := json.Marshal(evidence)
		if err != nil {
			return nil, fmt.Errorf("encode evidence: %w", err)
		}

		row.MasteryLevel = Blend(row.MasteryLevel, row.EvidenceCount, o.level)
		row.EvidenceCount++
		row.Evidence = datatypes.JSON(raw)
		if err := u.learning.Save(dbc, row); err != nil {
			return nil, fmt.Errorf("upsert memory %q: %w", c, err)
		}
		out = append(out, row)
	}

	u.log.Debug("learning memory updated",
		"student_id", obs.StudentID, "subject_id", obs.SubjectID, "source", obs.Source, "concepts", len(out))
	return out, nil
}

// ObserveBehavior merges inferred behavior signals into the student's
// behavioral memory. Empty signals leave stored values untouched; when both
// are empty nothing is written.
func (u *Updater) ObserveBehavior(dbc dbctx.Context, studentID uuid.UUID, attentionPattern, learningStyle string) error {
	attentionPattern = strings.TrimSpace(attentionPattern)
	learningStyle = strings.TrimSpace(learningStyle)
	if attentionPattern == "" && learningStyle == "" {
		return nil
	}

	row, err := u.behavior.Get(dbc, studentID)
	if err != nil {
		return fmt.Errorf("load behavioral memory: %w", err)
	}
	if row == nil {
		row = &store.BehavioralMemory{StudentID: studentID}
	}
	if attentionPattern != "" {
		row.AttentionPattern = attentionPattern
	}
	if learningStyle != "" {
		row.LearningStyle = learningStyle
	}
	row.LastObserved = u.now().UTC()
	return u.behavior.Upsert(dbc, row)
}
