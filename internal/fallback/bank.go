// Package fallback provides deterministic, pre-authored content used when
// the model is unconfigured or fails at runtime.
package fallback

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/content"
)

// QuestionCount is the size of every diagnostic set.
const QuestionCount = 8

// QuizSize is the number of questions in a fallback quiz.
const QuizSize = 5

// openAnswer marks free-response questions where any non-empty answer counts.
const openAnswer = "*"

// Set keys.
const (
	SetMath       = "math"
	SetScience    = "science"
	SetEnglish    = "english"
	SetLifeSkills = "life-skills"
	SetGeneral    = "general"
)

// Reason records why fallback content was used.
type Reason string

const (
	ReasonUnconfigured Reason = "unconfigured"
	ReasonRuntimeError Reason = "runtime_error"
)

// ReasonFor classifies the error that triggered a fallback.
func ReasonFor(err error) Reason {
	if apierr.KindOf(err) == apierr.KindConfig {
		return ReasonUnconfigured
	}
	return ReasonRuntimeError
}

// Ordered so that "life skills" is tried before the generic science words.
// Multi-word keywords must match consecutive words of the subject.
var keywords = []struct {
	set   string
	words []string
}{
	{SetMath, []string{"math", "arithmetic", "number", "numeracy", "algebra", "geometry"}},
	{SetEnglish, []string{"english", "reading", "writing", "language", "phonics", "literacy"}},
	{SetLifeSkills, []string{"life skill", "lifeskill", "habit", "values"}},
	{SetScience, []string{"science", "physics", "chemistry", "biology", "nature"}},
}

// otherLanguages are language subjects the English set must not serve.
var otherLanguages = map[string]bool{
	"arabic": true, "bengali": true, "chinese": true, "french": true, "german": true,
	"hindi": true, "italian": true, "japanese": true, "korean": true, "latin": true,
	"mandarin": true, "portuguese": true, "russian": true, "spanish": true, "urdu": true,
}

// SetFor picks the set key for a subject name. Keywords match whole words,
// allowing a suffix ("math" matches "Maths" and "Mathematics").
func SetFor(subject string) string {
	words := strings.FieldsFunc(strings.ToLower(subject), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if otherLanguages[w] {
			return SetGeneral
		}
	}
	for _, k := range keywords {
		for _, kw := range k.words {
			if matchWords(words, strings.Fields(kw)) {
				return k.set
			}
		}
	}
	return SetGeneral
}

func matchWords(words, kw []string) bool {
	for i := 0; i+len(kw) <= len(words); i++ {
		ok := true
		for j, w := range kw {
			if !strings.HasPrefix(words[i+j], w) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// Bank serves deterministic question sets and grades against them.
type Bank struct {
	sets map[string][]content.Question
}

// NewBank returns a bank loaded with the built-in sets.
func NewBank() *Bank {
	return &Bank{sets: seedSets}
}

// Questions returns a copy of the diagnostic set for subject.
func (b *Bank) Questions(subject string) content.AssessmentQuestions {
	return content.AssessmentQuestions{Questions: cloneQuestions(b.sets[SetFor(subject)])}
}

// Quiz builds a short multiple-choice/true-false quiz for subject,
// preferring questions that exercise the given weak concepts.
func (b *Bank) Quiz(subject string, weak []string) content.Quiz {
	focus := make(map[string]bool, len(weak))
	for _, w := range weak {
		focus[content.NormalizeAnswer(w)] = true
	}

	var picked, rest []content.Question
	for _, q := range b.sets[SetFor(subject)] {
		if q.Type != content.QuestionMultipleChoice && q.Type != content.QuestionTrueFalse {
			continue
		}
		if focus[content.NormalizeAnswer(q.SkillTested)] {
			picked = append(picked, q)
		} else {
			rest = append(rest, q)
		}
	}
	picked = append(picked, rest...)
	if len(picked) > QuizSize {
		picked = picked[:QuizSize]
	}

	qs := cloneQuestions(picked)
	for i := range qs {
		qs[i].ID = fmt.Sprintf("q%d", i+1)
	}
	return content.Quiz{
		Title:     fmt.Sprintf("%s practice quiz", strings.TrimSpace(subject)),
		Questions: qs,
	}
}

// Grade scores an assessment deterministically. Concepts answered at 70%
// or better become strengths; the rest become weaknesses.
func (b *Bank) Grade(qs []content.Question, answers []content.Answer) content.AssessmentGrade {
	graded := gradeAnswers(qs, answers)
	raw, total := content.Score(qs, graded)

	tallies := content.ConceptTallies(qs, graded)
	concepts := make([]string, 0, len(tallies))
	for c := range tallies {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)

	grade := content.AssessmentGrade{
		RawScore:      raw,
		GradedAnswers: graded,
		Strengths:     []content.ConceptEvidence{},
		Weaknesses:    []content.ConceptEvidence{},
	}
	for _, c := range concepts {
		t := tallies[c]
		ev := content.ConceptEvidence{
			Concept:  c,
			Evidence: fmt.Sprintf("%d of %d correct", t.Correct, t.Total),
		}
		if t.Accuracy() >= 70 {
			grade.Strengths = append(grade.Strengths, ev)
		} else {
			grade.Weaknesses = append(grade.Weaknesses, ev)
		}
	}
	grade.Summary = fmt.Sprintf("Scored %g out of %g (%d%%). %s",
		raw, total, content.NormalizedScore(raw, total), summaryTail(grade))
	return grade
}

// GradeQuiz scores a quiz attempt deterministically.
func (b *Bank) GradeQuiz(quiz content.Quiz, answers []content.Answer) content.QuizGrade {
	graded := gradeAnswers(quiz.Questions, answers)
	raw, total := content.Score(quiz.Questions, graded)
	pct := content.NormalizedScore(raw, total)

	g := content.QuizGrade{
		Score:         raw,
		GradedAnswers: graded,
	}
	switch {
	case pct >= 80:
		g.OverallFeedback = fmt.Sprintf("Excellent work: %d%% correct. You are ready for harder questions.", pct)
		g.Encouragement = "Keep it up!"
	case pct >= 50:
		g.OverallFeedback = fmt.Sprintf("Good effort: %d%% correct. Review the questions you missed.", pct)
		g.Encouragement = "You are getting there!"
	default:
		g.OverallFeedback = fmt.Sprintf("You got %d%% correct. Let's practice these ideas again together.", pct)
		g.Encouragement = "Every mistake is a chance to learn!"
	}
	return g
}

// GradeWorksheet scores a worksheet submission deterministically. Questions
// without an inline correct answer are marked against the answer key.
func (b *Bank) GradeWorksheet(ws content.Worksheet, answers []content.Answer) content.WorksheetGrade {
	key := make(map[string]string, len(ws.AnswerKey))
	for _, k := range ws.AnswerKey {
		key[k.QuestionID] = k.Answer
	}
	qs := cloneQuestions(ws.Questions)
	for i := range qs {
		if strings.TrimSpace(qs[i].CorrectAnswer) == "" {
			qs[i].CorrectAnswer = key[qs[i].ID]
		}
	}

	graded := gradeAnswers(qs, answers)
	raw, total := content.Score(qs, graded)
	g := content.WorksheetGrade{
		Score:          raw,
		GradedAnswers:  graded,
		Strengths:      []string{},
		AreasToImprove: []string{},
	}
	tallies := content.ConceptTallies(qs, graded)
	concepts := make([]string, 0, len(tallies))
	for c := range tallies {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)
	for _, c := range concepts {
		if tallies[c].Accuracy() >= 70 {
			g.Strengths = append(g.Strengths, c)
		} else {
			g.AreasToImprove = append(g.AreasToImprove, c)
		}
	}

	pct := content.NormalizedScore(raw, total)
	g.OverallFeedback = fmt.Sprintf("Scored %g out of %g (%d%%).", raw, total, pct)
	if len(g.AreasToImprove) > 0 {
		g.OverallFeedback += " Practice next: " + strings.Join(g.AreasToImprove, ", ") + "."
	} else {
		g.OverallFeedback += " Every concept on this worksheet was handled well."
	}
	return g
}

func gradeAnswers(qs []content.Question, answers []content.Answer) []content.GradedAnswer {
	byID := make(map[string]string, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a.Answer
	}
	out := make([]content.GradedAnswer, 0, len(qs))
	for _, q := range qs {
		ans := byID[q.ID]
		var ok bool
		if q.CorrectAnswer == openAnswer {
			ok = strings.TrimSpace(ans) != ""
		} else {
			ok = content.IsCorrect(q, ans)
		}
		fb := "Correct, well done!"
		switch {
		case strings.TrimSpace(ans) == "":
			fb = "No answer given. Give it a try next time!"
		case !ok:
			fb = fmt.Sprintf("Not quite. The answer is %s.", q.CorrectAnswer)
		}
		out = append(out, content.GradedAnswer{QuestionID: q.ID, IsCorrect: ok, Feedback: fb})
	}
	return out
}

func summaryTail(g content.AssessmentGrade) string {
	names := func(ev []content.ConceptEvidence) string {
		parts := make([]string, len(ev))
		for i, e := range ev {
			parts[i] = e.Concept
		}
		return strings.Join(parts, ", ")
	}
	switch {
	case len(g.Weaknesses) == 0:
		return "Strong across every concept tested."
	case len(g.Strengths) == 0:
		return "Needs practice with " + names(g.Weaknesses) + "."
	}
	return "Strong in " + names(g.Strengths) + "; needs practice with " + names(g.Weaknesses) + "."
}

func cloneQuestions(qs []content.Question) []content.Question {
	out := make([]content.Question, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
