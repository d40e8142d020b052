package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/content"
	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/entitlement"
	"github.com/scholarloop/scholarloop/internal/fallback"
	"github.com/scholarloop/scholarloop/internal/memory"
	"github.com/scholarloop/scholarloop/internal/prompt"
	"github.com/scholarloop/scholarloop/internal/store"
)

// Assessment kinds.
const (
	AssessmentBaseline   = "baseline"
	AssessmentProgress   = "progress"
	AssessmentCheckpoint = "checkpoint"
)

type StartAssessmentInput struct {
	StudentID  uuid.UUID `json:"student_id" validate:"required"`
	SubjectID  uuid.UUID `json:"subject_id" validate:"required"`
	Kind       string    `json:"kind" validate:"omitempty,oneof=baseline progress checkpoint"`
	Difficulty string    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// StartedAssessment is a pending assessment with its questions.
type StartedAssessment struct {
	ID             uuid.UUID
	StudentID      uuid.UUID
	SubjectID      uuid.UUID
	Subject        string
	Kind           string
	Difficulty     string
	Questions      []content.Question
	MaxScore       float64
	GeneratedBy    string
	FallbackReason fallback.Reason
}

// StartAssessment creates an assessment and populates its questions from
// the model, or from the fallback bank when the model is unavailable.
func (p *Pipeline) StartAssessment(ctx context.Context, scope Scope, in StartAssessmentInput) (_ *StartedAssessment, err error) {
	ctx, end := p.begin(ctx, "StartAssessment",
		attribute.String("student_id", in.StudentID.String()),
		attribute.String("subject_id", in.SubjectID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureAI); err != nil {
		return nil, err
	}
	if err := p.check(in); err != nil {
		return nil, err
	}
	if in.Kind == "" {
		in.Kind = AssessmentBaseline
	}
	st, err := p.student(ctx, scope, in.StudentID)
	if err != nil {
		return nil, err
	}
	subj, err := p.subject(ctx, in.SubjectID)
	if err != nil {
		return nil, err
	}
	mastery, err := p.subjectMastery(ctx, st.ID, subj)
	if err != nil {
		return nil, err
	}

	pr := prompt.AssessmentQuestions(prompt.AssessmentQuestionsInput{
		Student:    promptStudent(st),
		Subject:    subj.Name,
		Kind:       in.Kind,
		Difficulty: in.Difficulty,
		Mastery:    mastery,
	})
	generatedBy := p.modelID()
	var reason fallback.Reason
	set, genErr := generate[content.AssessmentQuestions](ctx, p, scope, pr, content.KindAssessmentQuestions)
	if genErr != nil {
		reason = p.fallbackReason(pr.Operation, genErr)
		set = p.bank.Questions(subj.Name)
		generatedBy = GeneratedByFallback
	}

	payload, err := content.Wrap(content.KindAssessmentQuestions, set)
	if err != nil {
		return nil, err
	}
	row := &store.Assessment{
		StudentID:      st.ID,
		SubjectID:      subj.ID,
		Kind:           in.Kind,
		Difficulty:     in.Difficulty,
		Questions:      datatypes.JSON(payload),
		GeneratedBy:    generatedBy,
		FallbackReason: string(reason),
	}
	if err := p.store.Assessments.Create(dbctx.New(ctx), row); err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}

	p.log.Info("assessment started",
		"assessment_id", row.ID, "student_id", st.ID, "subject", subj.Name,
		"questions", len(set.Questions), "generated_by", generatedBy, "fallback_reason", reason)
	return &StartedAssessment{
		ID:             row.ID,
		StudentID:      st.ID,
		SubjectID:      subj.ID,
		Subject:        subj.Name,
		Kind:           row.Kind,
		Difficulty:     row.Difficulty,
		Questions:      set.Questions,
		MaxScore:       content.MaxPoints(set.Questions),
		GeneratedBy:    generatedBy,
		FallbackReason: reason,
	}, nil
}

type SubmitAssessmentInput struct {
	AssessmentID uuid.UUID        `json:"assessment_id" validate:"required"`
	Answers      []content.Answer `json:"answers" validate:"required,min=1,dive"`
}

// AssessmentOutcome is the graded result of a submitted assessment.
type AssessmentOutcome struct {
	AssessmentID    uuid.UUID
	RawScore        float64
	MaxScore        float64
	NormalizedScore int
	Grade           content.AssessmentGrade
	GradedBy        string
	FallbackReason  fallback.Reason
	// Memory holds the learning memory rows touched by this grade.
	Memory []*store.LearningMemory
}

// SubmitAssessment grades a pending assessment and, in one transaction,
// completes it, writes its result and updates learning memory.
func (p *Pipeline) SubmitAssessment(ctx context.Context, scope Scope, in SubmitAssessmentInput) (_ *AssessmentOutcome, err error) {
	ctx, end := p.begin(ctx, "SubmitAssessment", attribute.String("assessment_id", in.AssessmentID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureAI); err != nil {
		return nil, err
	}
	if err := p.check(in); err != nil {
		return nil, err
	}

	unlock, err := p.locker.Lock(ctx, "assessment:"+in.AssessmentID.String())
	if err != nil {
		return nil, fmt.Errorf("lock assessment: %w", err)
	}
	defer unlock()

	dbc := dbctx.New(ctx)
	a, err := p.store.Assessments.GetByID(dbc, in.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if a == nil {
		return nil, apierr.NotFound("assessment", in.AssessmentID)
	}
	st, err := p.student(ctx, scope, a.StudentID)
	if err != nil {
		return nil, err
	}
	if a.Status != store.StatusPending {
		return nil, apierr.Conflict("assessment %s is already %s", a.ID, a.Status)
	}
	subj, err := p.subject(ctx, a.SubjectID)
	if err != nil {
		return nil, err
	}
	set, err := content.Open[content.AssessmentQuestions](a.Questions, content.KindAssessmentQuestions)
	if err != nil {
		return nil, fmt.Errorf("decode assessment questions: %w", err)
	}
	if err := checkAnswers(set.Questions, in.Answers); err != nil {
		return nil, err
	}

	pr := prompt.AssessmentGrade(prompt.GradeInput{
		Student:   promptStudent(st),
		Subject:   subj.Name,
		Questions: set.Questions,
		Answers:   in.Answers,
	})
	gradedBy := p.modelID()
	var reason fallback.Reason
	grade, gradeErr := generate[content.AssessmentGrade](ctx, p, scope, pr, content.KindAssessmentGrade)
	if gradeErr == nil {
		gradeErr = content.CheckGradedAnswers(set.Questions, grade.GradedAnswers)
	}
	if gradeErr != nil {
		reason = p.fallbackReason(pr.Operation, gradeErr)
		grade = p.bank.Grade(set.Questions, in.Answers)
		gradedBy = GeneratedByFallback
	}

	// The score is always recomputed from the verdicts and point weights.
	raw, total := content.Score(set.Questions, grade.GradedAnswers)
	grade.RawScore = raw
	normalized := content.NormalizedScore(raw, total)

	result := &store.AssessmentResult{
		AssessmentID:    a.ID,
		StudentID:       a.StudentID,
		SubjectID:       a.SubjectID,
		RawScore:        raw,
		MaxScore:        total,
		NormalizedScore: normalized,
		Strengths:       encodeJSON(conceptNames(grade.Strengths)),
		Weaknesses:      encodeJSON(conceptNames(grade.Weaknesses)),
		Summary:         grade.Summary,
		GradedBy:        gradedBy,
		FallbackReason:  string(reason),
	}
	var touched []*store.LearningMemory
	err = p.commitGrade(ctx, &a.StudentID, func(tdb dbctx.Context) error {
		if err := p.store.Assessments.MarkCompleted(tdb, a.ID, encodeJSON(in.Answers)); err != nil {
			return err
		}
		if err := p.store.Results.Upsert(tdb, result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		rows, err := p.memory.Apply(tdb, memory.Observation{
			StudentID: a.StudentID,
			SubjectID: a.SubjectID,
			Source:    "assessment",
			SourceID:  a.ID.String(),
			Questions: set.Questions,
			Grade:     grade,
		})
		if err != nil {
			return err
		}
		touched = rows
		return p.memory.ObserveBehavior(tdb, a.StudentID, "", grade.LearningStyle)
	})
	if err != nil {
		return nil, conflict(fmt.Errorf("complete assessment: %w", err), "assessment %s was already submitted", a.ID)
	}

	p.log.Info("assessment graded",
		"assessment_id", a.ID, "student_id", a.StudentID, "raw_score", raw, "max_score", total,
		"normalized_score", normalized, "graded_by", gradedBy, "fallback_reason", reason)
	return &AssessmentOutcome{
		AssessmentID:    a.ID,
		RawScore:        raw,
		MaxScore:        total,
		NormalizedScore: normalized,
		Grade:           grade,
		GradedBy:        gradedBy,
		FallbackReason:  reason,
		Memory:          touched,
	}, nil
}

// subjectMastery returns the student's learning memory for one subject.
func (p *Pipeline) subjectMastery(ctx context.Context, studentID uuid.UUID, subj *store.Subject) ([]prompt.Mastery, error) {
	rows, err := p.store.LearningMemory.ListByStudent(dbctx.New(ctx), studentID)
	if err != nil {
		return nil, fmt.Errorf("list memory: %w", err)
	}
	var out []prompt.Mastery
	for _, m := range rows {
		if m.SubjectID == subj.ID {
			out = append(out, prompt.Mastery{Subject: subj.Name, Concept: m.Concept, Level: m.MasteryLevel})
		}
	}
	return out, nil
}

func conceptNames(list []content.ConceptEvidence) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Concept)
	}
	return out
}
