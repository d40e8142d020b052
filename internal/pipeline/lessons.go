package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

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

const (
	// maxWeakConcepts bounds the concepts a quiz focuses on.
	maxWeakConcepts = 5
	// recentQuizzes is how many earlier quiz titles are passed to the
	// model to avoid repeats.
	recentQuizzes = 5
)

type WorksheetInput struct {
	SubjectID    uuid.UUID  `json:"subject_id" validate:"required"`
	AgeGroup     string     `json:"age_group" validate:"required,oneof=4-5 6-7 8-9 10-11 12-13"`
	Difficulty   string     `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Topic        string     `json:"topic" validate:"max=200"`
	NumQuestions int        `json:"num_questions" validate:"omitempty,min=1,max=30"`
	StudentID    *uuid.UUID `json:"student_id"`
}

// Generated is a persisted worksheet or quiz.
type Generated[T any] struct {
	ID             uuid.UUID
	Kind           string
	StudentID      *uuid.UUID
	SubjectID      *uuid.UUID
	Subject        string
	Doc            T
	MaxScore       float64
	GeneratedBy    string
	FallbackReason fallback.Reason
	CreatedAt      time.Time
}

// GenerateWorksheet creates a printable worksheet. Worksheets have no
// fallback; a failed generation is returned to the caller.
func (p *Pipeline) GenerateWorksheet(ctx context.Context, scope Scope, in WorksheetInput) (_ *Generated[content.Worksheet], err error) {
	ctx, end := p.begin(ctx, "GenerateWorksheet", attribute.String("subject_id", in.SubjectID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureAI); err != nil {
		return nil, err
	}
	if err := p.check(in); err != nil {
		return nil, err
	}
	if in.NumQuestions == 0 {
		in.NumQuestions = p.cfg.WorksheetQuestions
	}
	subj, err := p.subject(ctx, in.SubjectID)
	if err != nil {
		return nil, err
	}

	var level string
	if in.StudentID != nil {
		if _, err := p.student(ctx, scope, *in.StudentID); err != nil {
			return nil, err
		}
		if level, err = p.studentLevel(ctx, *in.StudentID, subj.Name); err != nil {
			return nil, err
		}
	}

	doc, err := generate[content.Worksheet](ctx, p, scope, prompt.Worksheet(prompt.WorksheetInput{
		Subject:      subj.Name,
		AgeGroup:     in.AgeGroup,
		Difficulty:   in.Difficulty,
		Topic:        in.Topic,
		NumQuestions: in.NumQuestions,
		StudentLevel: level,
	}), content.KindWorksheet)
	if err != nil {
		return nil, err
	}
	payload, err := content.Wrap(content.KindWorksheet, doc)
	if err != nil {
		return nil, err
	}

	row := &store.GeneratedContent{
		AccountID:   scope.AccountID,
		StudentID:   in.StudentID,
		SubjectID:   &subj.ID,
		Kind:        store.ContentWorksheet,
		Payload:     datatypes.JSON(payload),
		MaxScore:    content.MaxPoints(doc.Questions),
		GeneratedBy: p.modelID(),
	}
	if err := p.store.Content.Create(dbctx.New(ctx), row); err != nil {
		return nil, fmt.Errorf("save worksheet: %w", err)
	}
	p.log.Info("worksheet generated", "content_id", row.ID, "subject", subj.Name, "questions", len(doc.Questions))
	return &Generated[content.Worksheet]{
		ID:          row.ID,
		Kind:        row.Kind,
		StudentID:   row.StudentID,
		SubjectID:   row.SubjectID,
		Subject:     subj.Name,
		Doc:         doc,
		MaxScore:    row.MaxScore,
		GeneratedBy: row.GeneratedBy,
		CreatedAt:   row.CreatedAt,
	}, nil
}

// studentLevel reads the profile's level estimate for a subject.
func (p *Pipeline) studentLevel(ctx context.Context, studentID uuid.UUID, subject string) (string, error) {
	row, err := p.store.Profiles.GetByStudent(dbctx.New(ctx), studentID)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}
	if row == nil {
		return "", nil
	}
	doc, err := content.Open[content.Profile](row.Payload, content.KindProfile)
	if err != nil {
		p.log.Warn("ignoring unreadable profile", "student_id", studentID, "error", err)
		return "", nil
	}
	for _, l := range doc.AcademicLevels {
		if content.NormalizeAnswer(l.Subject) == content.NormalizeAnswer(subject) {
			return l.Level, nil
		}
	}
	return "", nil
}

type QuizInput struct {
	StudentID uuid.UUID  `json:"student_id" validate:"required"`
	SubjectID *uuid.UUID `json:"subject_id"`
}

// GenerateQuiz builds an adaptive quiz focused on the student's weakest
// concepts. Without a subject, the subject with the lowest average mastery
// is used.
func (p *Pipeline) GenerateQuiz(ctx context.Context, scope Scope, in QuizInput) (_ *Generated[content.Quiz], err error) {
	ctx, end := p.begin(ctx, "GenerateQuiz", attribute.String("student_id", in.StudentID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureAI); err != nil {
		return nil, err
	}
	if err := p.check(in); err != nil {
		return nil, err
	}
	st, err := p.student(ctx, scope, in.StudentID)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	memories, err := p.store.LearningMemory.ListByStudent(dbc, st.ID)
	if err != nil {
		return nil, fmt.Errorf("list memory: %w", err)
	}

	var subj *store.Subject
	if in.SubjectID != nil {
		if subj, err = p.subject(ctx, *in.SubjectID); err != nil {
			return nil, err
		}
	} else if subj, err = p.weakestSubject(ctx, memories); err != nil {
		return nil, err
	}

	weak := weakConcepts(memories, subj.ID)
	recent, err := p.store.Content.ListRecent(dbc, st.ID, store.ContentQuiz, recentQuizzes)
	if err != nil {
		return nil, fmt.Errorf("list recent quizzes: %w", err)
	}
	var topics []string
	for _, r := range recent {
		if q, err := content.Open[content.Quiz](r.Payload, content.KindQuiz); err == nil && q.Title != "" {
			topics = append(topics, q.Title)
		}
	}

	pr := prompt.Quiz(prompt.QuizInput{
		Student:      promptStudent(st),
		Subject:      subj.Name,
		WeakConcepts: weak,
		RecentTopics: topics,
	})
	generatedBy := p.modelID()
	var reason fallback.Reason
	quiz, genErr := generate[content.Quiz](ctx, p, scope, pr, content.KindQuiz)
	if genErr != nil {
		reason = p.fallbackReason(pr.Operation, genErr)
		quiz = p.bank.Quiz(subj.Name, weak)
		generatedBy = GeneratedByFallback
	}
	payload, err := content.Wrap(content.KindQuiz, quiz)
	if err != nil {
		return nil, err
	}

	row := &store.GeneratedContent{
		AccountID:      scope.AccountID,
		StudentID:      &st.ID,
		SubjectID:      &subj.ID,
		Kind:           store.ContentQuiz,
		Payload:        datatypes.JSON(payload),
		MaxScore:       quiz.MaxScore(),
		GeneratedBy:    generatedBy,
		FallbackReason: string(reason),
	}
	if err := p.store.Content.Create(dbc, row); err != nil {
		return nil, fmt.Errorf("save quiz: %w", err)
	}
	p.log.Info("quiz generated",
		"content_id", row.ID, "student_id", st.ID, "subject", subj.Name,
		"weak_concepts", len(weak), "generated_by", generatedBy, "fallback_reason", reason)
	return &Generated[content.Quiz]{
		ID:             row.ID,
		Kind:           row.Kind,
		StudentID:      row.StudentID,
		SubjectID:      row.SubjectID,
		Subject:        subj.Name,
		Doc:            quiz,
		MaxScore:       row.MaxScore,
		GeneratedBy:    generatedBy,
		FallbackReason: reason,
		CreatedAt:      row.CreatedAt,
	}, nil
}

// weakestSubject picks the catalog subject with the lowest average mastery.
// Subjects without memory are skipped; with no memory at all the first
// catalog subject is used.
func (p *Pipeline) weakestSubject(ctx context.Context, memories []*store.LearningMemory) (*store.Subject, error) {
	catalog, err := p.store.Subjects.List(dbctx.New(ctx))
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	if len(catalog) == 0 {
		return nil, &DataMissingError{Operation: "quiz", Missing: "at least one catalog subject"}
	}

	sum := make(map[uuid.UUID]int)
	count := make(map[uuid.UUID]int)
	for _, m := range memories {
		sum[m.SubjectID] += m.MasteryLevel
		count[m.SubjectID]++
	}
	best, bestAvg := catalog[0], -1.0
	for _, s := range catalog {
		n := count[s.ID]
		if n == 0 {
			continue
		}
		avg := float64(sum[s.ID]) / float64(n)
		if bestAvg < 0 || avg < bestAvg {
			best, bestAvg = s, avg
		}
	}
	return best, nil
}

// weakConcepts returns the concepts below the support threshold, weakest
// first.
func weakConcepts(memories []*store.LearningMemory, subjectID uuid.UUID) []string {
	var rows []*store.LearningMemory
	for _, m := range memories {
		if m.SubjectID == subjectID && m.MasteryLevel < memory.NeedsSupportThreshold {
			rows = append(rows, m)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].MasteryLevel != rows[j].MasteryLevel {
			return rows[i].MasteryLevel < rows[j].MasteryLevel
		}
		return rows[i].Concept < rows[j].Concept
	})
	if len(rows) > maxWeakConcepts {
		rows = rows[:maxWeakConcepts]
	}
	out := make([]string, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.Concept)
	}
	return out
}

type GradeQuizInput struct {
	QuizID  uuid.UUID        `json:"quiz_id" validate:"required"`
	Answers []content.Answer `json:"answers" validate:"required,min=1,dive"`
}

// QuizOutcome is the graded result of a quiz attempt.
type QuizOutcome struct {
	QuizID          uuid.UUID
	Score           float64
	MaxScore        float64
	NormalizedScore int
	Grade           content.QuizGrade
	GradedBy        string
	FallbackReason  fallback.Reason
}

// GradeQuiz grades a quiz once and folds the result into learning memory.
func (p *Pipeline) GradeQuiz(ctx context.Context, scope Scope, in GradeQuizInput) (_ *QuizOutcome, err error) {
	ctx, end := p.begin(ctx, "GradeQuiz", attribute.String("quiz_id", in.QuizID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureAI); err != nil {
		return nil, err
	}
	if err := p.check(in); err != nil {
		return nil, err
	}

	unlock, err := p.locker.Lock(ctx, "quiz:"+in.QuizID.String())
	if err != nil {
		return nil, fmt.Errorf("lock quiz: %w", err)
	}
	defer unlock()

	dbc := dbctx.New(ctx)
	row, err := p.store.Content.GetByID(dbc, in.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}
	if row == nil || row.Kind != store.ContentQuiz {
		return nil, apierr.NotFound("quiz", in.QuizID)
	}
	if row.AccountID != scope.AccountID {
		return nil, apierr.Forbidden("quiz %s belongs to another account", row.ID)
	}
	if row.CompletedAt != nil {
		return nil, apierr.Conflict("quiz %s was already graded", row.ID)
	}
	quiz, err := content.Open[content.Quiz](row.Payload, content.KindQuiz)
	if err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}
	if err := checkAnswers(quiz.Questions, in.Answers); err != nil {
		return nil, err
	}

	var st prompt.Student
	if row.StudentID != nil {
		s, err := p.student(ctx, scope, *row.StudentID)
		if err != nil {
			return nil, err
		}
		st = promptStudent(s)
	}
	pr := prompt.QuizGrade(prompt.GradeInput{
		Student:   st,
		Title:     quiz.Title,
		Questions: quiz.Questions,
		Answers:   in.Answers,
	})
	gradedBy := p.modelID()
	var reason fallback.Reason
	grade, gradeErr := generate[content.QuizGrade](ctx, p, scope, pr, content.KindQuizGrade)
	if gradeErr == nil {
		gradeErr = content.CheckGradedAnswers(quiz.Questions, grade.GradedAnswers)
	}
	if gradeErr != nil {
		reason = p.fallbackReason(pr.Operation, gradeErr)
		grade = p.bank.GradeQuiz(quiz, in.Answers)
		gradedBy = GeneratedByFallback
	}
	score, total := content.Score(quiz.Questions, grade.GradedAnswers)
	grade.Score = score

	gradeJSON, err := content.Wrap(content.KindQuizGrade, grade)
	if err != nil {
		return nil, err
	}
	err = p.commitGrade(ctx, row.StudentID, func(tdb dbctx.Context) error {
		if err := p.store.Content.Complete(tdb, row.ID, encodeJSON(in.Answers), datatypes.JSON(gradeJSON), score); err != nil {
			return err
		}
		if row.StudentID == nil || row.SubjectID == nil {
			return nil
		}
		_, err := p.memory.Apply(tdb, memory.Observation{
			StudentID: *row.StudentID,
			SubjectID: *row.SubjectID,
			Source:    "quiz",
			SourceID:  row.ID.String(),
			Questions: quiz.Questions,
			Grade:     content.AssessmentGrade{RawScore: score, GradedAnswers: grade.GradedAnswers},
		})
		return err
	})
	if err != nil {
		return nil, conflict(fmt.Errorf("complete quiz: %w", err), "quiz %s was already graded", row.ID)
	}

	p.log.Info("quiz graded",
		"content_id", row.ID, "score", score, "max_score", total, "graded_by", gradedBy, "fallback_reason", reason)
	return &QuizOutcome{
		QuizID:          row.ID,
		Score:           score,
		MaxScore:        total,
		NormalizedScore: content.NormalizedScore(score, total),
		Grade:           grade,
		GradedBy:        gradedBy,
		FallbackReason:  reason,
	}, nil
}

type GradeWorksheetInput struct {
	WorksheetID uuid.UUID        `json:"worksheet_id" validate:"required"`
	Answers     []content.Answer `json:"answers" validate:"required,min=1,dive"`
	// StudentID names who completed an unassigned worksheet so the result
	// reaches their learning memory.
	StudentID *uuid.UUID `json:"student_id"`
}

// WorksheetOutcome is the graded result of a worksheet submission.
type WorksheetOutcome struct {
	WorksheetID     uuid.UUID
	StudentID       *uuid.UUID
	Score           float64
	MaxScore        float64
	NormalizedScore int
	Grade           content.WorksheetGrade
	GradedBy        string
	FallbackReason  fallback.Reason
}

// GradeWorksheet grades a completed worksheet once and folds the result
// into the student's learning memory.
func (p *Pipeline) GradeWorksheet(ctx context.Context, scope Scope, in GradeWorksheetInput) (_ *WorksheetOutcome, err error) {
	ctx, end := p.begin(ctx, "GradeWorksheet", attribute.String("worksheet_id", in.WorksheetID.String()))
	defer end(&err)

	if err := p.admit(ctx, scope, entitlement.FeatureAI); err != nil {
		return nil, err
	}
	if err := p.check(in); err != nil {
		return nil, err
	}

	unlock, err := p.locker.Lock(ctx, "worksheet:"+in.WorksheetID.String())
	if err != nil {
		return nil, fmt.Errorf("lock worksheet: %w", err)
	}
	defer unlock()

	dbc := dbctx.New(ctx)
	row, err := p.store.Content.GetByID(dbc, in.WorksheetID)
	if err != nil {
		return nil, fmt.Errorf("load worksheet: %w", err)
	}
	if row == nil || row.Kind != store.ContentWorksheet {
		return nil, apierr.NotFound("worksheet", in.WorksheetID)
	}
	if row.AccountID != scope.AccountID {
		return nil, apierr.Forbidden("worksheet %s belongs to another account", row.ID)
	}
	if row.CompletedAt != nil {
		return nil, apierr.Conflict("worksheet %s was already graded", row.ID)
	}
	studentID := row.StudentID
	if studentID == nil {
		studentID = in.StudentID
	} else if in.StudentID != nil && *in.StudentID != *studentID {
		return nil, apierr.Invalid("worksheet %s is assigned to another student", row.ID)
	}
	ws, err := content.Open[content.Worksheet](row.Payload, content.KindWorksheet)
	if err != nil {
		return nil, fmt.Errorf("decode worksheet: %w", err)
	}
	if err := checkAnswers(ws.Questions, in.Answers); err != nil {
		return nil, err
	}

	var st prompt.Student
	if studentID != nil {
		s, err := p.student(ctx, scope, *studentID)
		if err != nil {
			return nil, err
		}
		st = promptStudent(s)
	}
	var subject string
	if row.SubjectID != nil {
		subj, err := p.subject(ctx, *row.SubjectID)
		if err != nil {
			return nil, err
		}
		subject = subj.Name
	}
	pr := prompt.WorksheetGrade(prompt.GradeInput{
		Student:   st,
		Subject:   subject,
		Title:     ws.Title,
		Questions: ws.Questions,
		Answers:   in.Answers,
	})
	gradedBy := p.modelID()
	var reason fallback.Reason
	grade, gradeErr := generate[content.WorksheetGrade](ctx, p, scope, pr, content.KindWorksheetGrade)
	if gradeErr == nil {
		gradeErr = content.CheckGradedAnswers(ws.Questions, grade.GradedAnswers)
	}
	if gradeErr != nil {
		reason = p.fallbackReason(pr.Operation, gradeErr)
		grade = p.bank.GradeWorksheet(ws, in.Answers)
		gradedBy = GeneratedByFallback
	}
	score, total := content.Score(ws.Questions, grade.GradedAnswers)
	grade.Score = score

	gradeJSON, err := content.Wrap(content.KindWorksheetGrade, grade)
	if err != nil {
		return nil, err
	}
	err = p.commitGrade(ctx, studentID, func(tdb dbctx.Context) error {
		if err := p.store.Content.Complete(tdb, row.ID, encodeJSON(in.Answers), datatypes.JSON(gradeJSON), score); err != nil {
			return err
		}
		if studentID == nil || row.SubjectID == nil {
			return nil
		}
		_, err := p.memory.Apply(tdb, memory.Observation{
			StudentID: *studentID,
			SubjectID: *row.SubjectID,
			Source:    "worksheet",
			SourceID:  row.ID.String(),
			Questions: ws.Questions,
			Grade:     content.AssessmentGrade{RawScore: score, GradedAnswers: grade.GradedAnswers},
		})
		return err
	})
	if err != nil {
		return nil, conflict(fmt.Errorf("complete worksheet: %w", err), "worksheet %s was already graded", row.ID)
	}

	p.log.Info("worksheet graded",
		"content_id", row.ID, "score", score, "max_score", total, "graded_by", gradedBy, "fallback_reason", reason)
	return &WorksheetOutcome{
		WorksheetID:     row.ID,
		StudentID:       studentID,
		Score:           score,
		MaxScore:        total,
		NormalizedScore: content.NormalizedScore(score, total),
		Grade:           grade,
		GradedBy:        gradedBy,
		FallbackReason:  reason,
	}, nil
}
