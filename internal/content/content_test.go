package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/scholarloop/scholarloop/internal/llm"
)

func mathQuestions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Type:          QuestionText,
			Question:      fmt.Sprintf("What is %d + 1?", i),
			CorrectAnswer: fmt.Sprint(i + 1),
			Points:        1,
			SkillTested:   "addition",
		}
	}
	return qs
}

func TestIsCorrect(t *testing.T) {
	mc := Question{
		Type:          QuestionMultipleChoice,
		Options:       []string{"3", "4", "5", "6"},
		CorrectAnswer: "4",
	}
	subtraction := Question{
		Type:          QuestionMultipleChoice,
		Options:       []string{"3", "4", "5", "14"},
		CorrectAnswer: "4",
	}
	letters := Question{
		Type:          QuestionMultipleChoice,
		Options:       []string{"b", "a", "c", "d"},
		CorrectAnswer: "a",
	}
	keyedByLabel := Question{
		Type:          QuestionMultipleChoice,
		Options:       []string{"cat", "dog", "fish"},
		CorrectAnswer: "C",
	}
	tf := Question{Type: QuestionTrueFalse, CorrectAnswer: "True"}
	text := Question{Type: QuestionText, CorrectAnswer: "Seven"}
	num := Question{Type: QuestionFillBlank, CorrectAnswer: "7"}

	tests := []struct {
		name   string
		q      Question
		answer string
		want   bool
	}{
		{"mc text", mc, "4", true},
		{"mc letter", mc, "B", true},
		{"mc index", mc, "2", true},
		{"mc wrong letter", mc, "a", false},
		{"mc letter out of range", mc, "z", false},
		{"numeric option text beats index", subtraction, "4", true},
		{"numeric option index still works", subtraction, "2", true},
		{"numeric option 14 is wrong", subtraction, "14", false},
		{"letter option text beats label", letters, "a", true},
		{"letter option text wrong", letters, "b", false},
		{"key given as label", keyedByLabel, "fish", true},
		{"key given as label, answered by label", keyedByLabel, "c", true},
		{"key given as label, wrong", keyedByLabel, "dog", false},
		{"tf synonym", tf, "yes", true},
		{"tf wrong", tf, "false", false},
		{"tf garbage", tf, "maybe", false},
		{"text case", text, "  seven ", true},
		{"numeric leading zero", num, "07", true},
		{"numeric decimal", num, "7.0", true},
		{"empty", text, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCorrect(tc.q, tc.answer); got != tc.want {
				t.Errorf("IsCorrect(%q) = %v, want %v", tc.answer, got, tc.want)
			}
		})
	}
}

func TestNormalizedScore(t *testing.T) {
	tests := []struct {
		raw, total float64
		want       int
	}{
		{8, 15, 53},
		{15, 15, 100},
		{0, 15, 0},
		{1, 3, 33},
		{2, 3, 67},
		{5, 0, 0},
		{20, 15, 100},
	}
	for _, tc := range tests {
		if got := NormalizedScore(tc.raw, tc.total); got != tc.want {
			t.Errorf("NormalizedScore(%v, %v) = %d, want %d", tc.raw, tc.total, got, tc.want)
		}
	}
}

func TestScore_WeightedPoints(t *testing.T) {
	qs := []Question{
		{ID: "q1", Points: 3},
		{ID: "q2", Points: 2},
		{ID: "q3"},
	}
	graded := []GradedAnswer{
		{QuestionID: "q1", IsCorrect: true},
		{QuestionID: "q2", IsCorrect: false},
		{QuestionID: "q3", IsCorrect: true},
	}
	raw, total := Score(qs, graded)
	if raw != 4 || total != 6 {
		t.Errorf("Score = %v/%v, want 4/6", raw, total)
	}
	if got := MaxPoints(qs); got != 6 {
		t.Errorf("MaxPoints = %v, want 6", got)
	}
}

func TestConceptTallies(t *testing.T) {
	qs := mathQuestions(3)
	qs[2].SkillTested = "Subtraction"
	graded := []GradedAnswer{
		{QuestionID: "q1", IsCorrect: true},
		{QuestionID: "q2", IsCorrect: false},
		{QuestionID: "q3", IsCorrect: true},
		{QuestionID: "unknown", IsCorrect: true},
	}
	got := ConceptTallies(qs, graded)
	if got["addition"] != (Tally{Correct: 1, Total: 2}) {
		t.Errorf("addition = %+v", got["addition"])
	}
	if got["subtraction"] != (Tally{Correct: 1, Total: 1}) {
		t.Errorf("subtraction = %+v", got["subtraction"])
	}
	if got["addition"].Accuracy() != 50 {
		t.Errorf("accuracy = %d, want 50", got["addition"].Accuracy())
	}
}

func TestParse_NormalizesOptionalArrays(t *testing.T) {
	raw := json.RawMessage(`{
		"raw_score": 3,
		"graded_answers": [{"question_id":"q1","is_correct":true,"feedback":"Nice"}],
		"summary": "Good start"
	}`)
	grade, err := Parse[AssessmentGrade](raw, KindAssessmentGrade)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if grade.Strengths == nil || grade.Weaknesses == nil {
		t.Errorf("strengths/weaknesses not normalized: %+v", grade)
	}
}

func TestParse_SemanticChecks(t *testing.T) {
	qs := mathQuestions(5)
	qs[4].ID = "q1"
	raw, _ := json.Marshal(AssessmentQuestions{Questions: qs})

	_, err := Parse[AssessmentQuestions](raw, KindAssessmentQuestions)
	var inv *llm.ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want *llm.ErrInvalidResponse", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Check != "question-id" {
		t.Errorf("err = %v, want question-id ValidationError", err)
	}
}

func TestParse_MultipleChoiceMustContainAnswer(t *testing.T) {
	qs := mathQuestions(5)
	qs[0].Type = QuestionMultipleChoice
	qs[0].Options = []string{"2", "3"}
	qs[0].CorrectAnswer = "9"
	raw, _ := json.Marshal(AssessmentQuestions{Questions: qs})

	_, err := Parse[AssessmentQuestions](raw, KindAssessmentQuestions)
	if err == nil || !strings.Contains(err.Error(), "not among its options") {
		t.Fatalf("err = %v, want options failure", err)
	}
}

func TestWorksheetCheck_AnswerKeyCoverage(t *testing.T) {
	w := Worksheet{
		Title:     "Addition",
		Questions: mathQuestions(2),
		AnswerKey: []AnswerKeyEntry{{QuestionID: "q1", Answer: "1"}},
	}
	if err := w.check(); err == nil || !strings.Contains(err.Error(), "q2") {
		t.Fatalf("check() = %v, want missing answer key for q2", err)
	}
	w.AnswerKey = append(w.AnswerKey, AnswerKeyEntry{QuestionID: "q2", Answer: "2"})
	if err := w.check(); err != nil {
		t.Fatalf("check() = %v", err)
	}
	w.Explanations = []Explanation{{QuestionID: "q9"}}
	if err := w.check(); err == nil {
		t.Fatal("expected explanation referencing unknown question to fail")
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	profile := Profile{
		AcademicLevels: []SubjectLevel{{Subject: "Mathematics", Level: "developing", Confidence: 70, Evidence: []string{}}},
		LearningSpeed:  "average",
		AttentionSpan:  "medium",
	}
	raw, err := Wrap(KindProfile, profile)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	got, err := Open[Profile](raw, KindProfile)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.AcademicLevels[0].Subject != "Mathematics" || got.Gaps == nil {
		t.Errorf("Open = %+v", got)
	}

	if _, err := Open[Roadmap](raw, KindRoadmap); err == nil {
		t.Error("Open with the wrong kind should fail")
	}
}

func TestEnvelope_RejectsNewerVersion(t *testing.T) {
	raw := []byte(`{"kind":"quiz","version":99,"payload":{}}`)
	if _, err := Open[Quiz](raw, KindQuiz); err == nil {
		t.Fatal("expected version error")
	}
}

func TestEnvelope_InvalidPayloadIsSchemaKind(t *testing.T) {
	raw := []byte(`{"kind":"roadmap","version":1,"payload":{"subjects":[]}}`)
	_, err := Open[Roadmap](raw, KindRoadmap)
	var inv *llm.ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want *llm.ErrInvalidResponse", err)
	}
}

func TestWrap_UnknownKind(t *testing.T) {
	if _, err := Wrap(Kind("lesson"), struct{}{}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestCheckGradedAnswers(t *testing.T) {
	qs := mathQuestions(2)
	if err := CheckGradedAnswers(qs, []GradedAnswer{{QuestionID: "q1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckGradedAnswers(qs, []GradedAnswer{{QuestionID: "q7"}}); err == nil {
		t.Fatal("expected unknown question error")
	}
}
