package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/entitlement"
	"github.com/scholarloop/scholarloop/internal/memory"
	"github.com/scholarloop/scholarloop/internal/store"
)

type ConceptMastery struct {
	Concept       string    `json:"concept"`
	Level         int       `json:"level"`
	Band          string    `json:"band"`
	EvidenceCount int       `json:"evidence_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SubjectMemory struct {
	SubjectID    uuid.UUID        `json:"subject_id"`
	Subject      string           `json:"subject"`
	AverageLevel int              `json:"average_level"`
	Concepts     []ConceptMastery `json:"concepts"`
}

// MemorySummary is a read-only view of what the student's memory holds.
type MemorySummary struct {
	StudentID        uuid.UUID       `json:"student_id"`
	Subjects         []SubjectMemory `json:"subjects"`
	Strengths        []string        `json:"strengths"`
	NeedsSupport     []string        `json:"needs_support"`
	LearningStyle    string          `json:"learning_style,omitempty"`
	AttentionPattern string          `json:"attention_pattern,omitempty"`
}

// GetMemorySummary groups the student's learning memory by subject and
// lists the concepts in the advance and needs-support bands. It never
// calls the model.
func (p *Pipeline) GetMemorySummary(ctx context.Context, scope Scope, studentID uuid.UUID) (_ *MemorySummary, err error) {
	ctx, end := p.begin(ctx, "GetMemorySummary", attribute.String("student_id", studentID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureRead); err != nil {
		return nil, err
	}
	if _, err := p.student(ctx, scope, studentID); err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	rows, err := p.store.LearningMemory.ListByStudent(dbc, studentID)
	if err != nil {
		return nil, fmt.Errorf("list memory: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.SubjectID)
	}
	names, err := p.subjectNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := &MemorySummary{
		StudentID:    studentID,
		Subjects:     summarizeSubjects(rows, names),
		Strengths:    []string{},
		NeedsSupport: []string{},
	}
	for _, s := range out.Subjects {
		for _, c := range s.Concepts {
			label := s.Subject + ": " + c.Concept
			switch c.Band {
			case "advance":
				out.Strengths = append(out.Strengths, label)
			case "needs_support":
				out.NeedsSupport = append(out.NeedsSupport, label)
			}
		}
	}

	beh, err := p.store.BehavioralMemory.Get(dbc, studentID)
	if err != nil {
		return nil, fmt.Errorf("load behavioral memory: %w", err)
	}
	if beh != nil {
		out.LearningStyle = beh.LearningStyle
		out.AttentionPattern = beh.AttentionPattern
	}
	return out, nil
}

// summarizeSubjects orders subjects by name and concepts weakest first.
func summarizeSubjects(rows []*store.LearningMemory, names map[uuid.UUID]string) []SubjectMemory {
	bySubject := make(map[uuid.UUID]*SubjectMemory)
	var order []uuid.UUID
	for _, m := range rows {
		s, ok := bySubject[m.SubjectID]
		if !ok {
			s = &SubjectMemory{SubjectID: m.SubjectID, Subject: names[m.SubjectID]}
			bySubject[m.SubjectID] = s
			order = append(order, m.SubjectID)
		}
		s.Concepts = append(s.Concepts, ConceptMastery{
			Concept:       m.Concept,
			Level:         m.MasteryLevel,
			Band:          memory.Band(m.MasteryLevel),
			EvidenceCount: m.EvidenceCount,
			UpdatedAt:     m.UpdatedAt,
		})
	}

	out := make([]SubjectMemory, 0, len(order))
	for _, id := range order {
		s := bySubject[id]
		sort.SliceStable(s.Concepts, func(i, j int) bool {
			if s.Concepts[i].Level != s.Concepts[j].Level {
				return s.Concepts[i].Level < s.Concepts[j].Level
			}
			return s.Concepts[i].Concept < s.Concepts[j].Concept
		})
		sum := 0
		for _, c := range s.Concepts {
			sum += c.Level
		}
		s.AverageLevel = int(float64(sum)/float64(len(s.Concepts)) + 0.5)
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out
}
