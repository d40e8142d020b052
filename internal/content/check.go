package content

import (
	"fmt"
	"strings"
)

// checker is implemented by payloads with rules a JSON schema cannot
// express (cross-references, uniqueness).
type checker interface {
	check() error
}

// ValidationError describes why a document failed a semantic check.
type ValidationError struct {
	Check   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("check %q: %s", e.Check, e.Message)
}

func invalid(check, format string, args ...any) error {
	return &ValidationError{Check: check, Message: fmt.Sprintf(format, args...)}
}

// checkQuestions enforces unique IDs and well-formed answers.
func checkQuestions(qs []Question) error {
	seen := make(map[string]bool, len(qs))
	for _, q := range qs {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			return invalid("question-id", "question %q has an empty id", q.Question)
		}
		if seen[id] {
			return invalid("question-id", "duplicate question id %q", id)
		}
		seen[id] = true

		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return invalid("correct-answer", "question %s has no correct answer", id)
		}

		switch q.Type {
		case QuestionMultipleChoice:
			if len(q.Options) < 2 {
				return invalid("options", "multiple choice question %s has %d options", id, len(q.Options))
			}
			found := false
			for _, o := range q.Options {
				if NormalizeAnswer(o) == NormalizeAnswer(q.CorrectAnswer) {
					found = true
					break
				}
			}
			if !found {
				return invalid("options", "correct answer of %s is not among its options", id)
			}
		case QuestionTrueFalse:
			if _, ok := parseBool(q.CorrectAnswer); !ok {
				return invalid("correct-answer", "true/false question %s has answer %q", id, q.CorrectAnswer)
			}
		}
	}
	return nil
}

func (a *AssessmentQuestions) check() error {
	return checkQuestions(a.Questions)
}

func (q *Quiz) check() error {
	return checkQuestions(q.Questions)
}

func (w *Worksheet) check() error {
	if err := checkQuestions(w.Questions); err != nil {
		return err
	}
	ids := make(map[string]bool, len(w.Questions))
	for _, q := range w.Questions {
		ids[q.ID] = true
	}
	keyed := make(map[string]bool, len(w.AnswerKey))
	for _, k := range w.AnswerKey {
		if !ids[k.QuestionID] {
			return invalid("answer-key", "answer key references unknown question %q", k.QuestionID)
		}
		keyed[k.QuestionID] = true
	}
	for id := range ids {
		if !keyed[id] {
			return invalid("answer-key", "question %s has no answer key entry", id)
		}
	}
	for _, e := range w.Explanations {
		if !ids[e.QuestionID] {
			return invalid("explanations", "explanation references unknown question %q", e.QuestionID)
		}
	}
	return nil
}

func (r *Roadmap) check() error {
	seen := make(map[string]bool, len(r.Subjects))
	for _, s := range r.Subjects {
		key := strings.ToLower(strings.TrimSpace(s.Subject))
		if seen[key] {
			return invalid("roadmap-subjects", "subject %q planned twice", s.Subject)
		}
		seen[key] = true
	}
	return nil
}

func (p *Profile) check() error {
	seen := make(map[string]bool, len(p.AcademicLevels))
	for _, l := range p.AcademicLevels {
		key := strings.ToLower(strings.TrimSpace(l.Subject))
		if seen[key] {
			return invalid("academic-levels", "subject %q assessed twice", l.Subject)
		}
		seen[key] = true
	}
	return nil
}

// CheckGradedAnswers verifies that graded answers only reference questions
// of the graded set.
func CheckGradedAnswers(qs []Question, graded []GradedAnswer) error {
	ids := make(map[string]bool, len(qs))
	for _, q := range qs {
		ids[q.ID] = true
	}
	for _, g := range graded {
		if !ids[g.QuestionID] {
			return invalid("graded-answers", "grade references unknown question %q", g.QuestionID)
		}
	}
	return nil
}
