package content

import (
	"math"
	"strconv"
	"strings"
)

// NormalizeAnswer lower-cases, trims and collapses internal whitespace.
func NormalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func parseBool(s string) (bool, bool) {
	switch NormalizeAnswer(s) {
	case "true", "t", "yes", "y", "benar":
		return true, true
	case "false", "f", "no", "n", "salah":
		return false, true
	}
	return false, false
}

// IsCorrect checks a submitted answer against a question.
//
// Multiple choice accepts the option text, a letter (a-d) or a 1-based
// index. Option text always wins over a label, so "4" among options
// 3, 4, 5, 14 means the option "4" and not the fourth option.
// True/false accepts common synonyms. Numeric answers compare by value so
// "07" matches "7".
func IsCorrect(q Question, answer string) bool {
	got := NormalizeAnswer(answer)
	if got == "" {
		return false
	}
	want := NormalizeAnswer(q.CorrectAnswer)

	switch q.Type {
	case QuestionMultipleChoice:
		return resolveOption(q.Options, got) == resolveOption(q.Options, want)
	case QuestionTrueFalse:
		g, ok1 := parseBool(got)
		w, ok2 := parseBool(want)
		return ok1 && ok2 && g == w
	}

	if got == want {
		return true
	}
	gf, err1 := strconv.ParseFloat(got, 64)
	wf, err2 := strconv.ParseFloat(want, 64)
	return err1 == nil && err2 == nil && gf == wf
}

// resolveOption maps an answer to the normalized text of the option it
// names. Unmatched answers are returned unchanged.
func resolveOption(options []string, answer string) string {
	for _, opt := range options {
		if NormalizeAnswer(opt) == answer {
			return answer
		}
	}
	if opt, ok := optionByLabel(options, answer); ok {
		return NormalizeAnswer(opt)
	}
	return answer
}

func optionByLabel(options []string, label string) (string, bool) {
	if len(label) == 1 && label[0] >= 'a' && label[0] <= 'z' {
		i := int(label[0] - 'a')
		if i < len(options) {
			return options[i], true
		}
		return "", false
	}
	if n, err := strconv.Atoi(label); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], true
	}
	return "", false
}

func points(q Question) float64 {
	if q.Points <= 0 {
		return 1
	}
	return float64(q.Points)
}

// MaxPoints sums question weights; unweighted questions count as one.
func MaxPoints(qs []Question) float64 {
	var total float64
	for _, q := range qs {
		total += points(q)
	}
	return total
}

// Score totals the weights of correctly graded questions.
func Score(qs []Question, graded []GradedAnswer) (raw, total float64) {
	correct := make(map[string]bool, len(graded))
	for _, g := range graded {
		if g.IsCorrect {
			correct[g.QuestionID] = true
		}
	}
	for _, q := range qs {
		w := points(q)
		total += w
		if correct[q.ID] {
			raw += w
		}
	}
	return raw, total
}

// NormalizedScore maps raw/total to 0-100, rounded half away from zero.
func NormalizedScore(raw, total float64) int {
	if total <= 0 {
		return 0
	}
	n := int(math.Round(raw / total * 100))
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	}
	return n
}

// Tally counts correct answers for one concept.
type Tally struct {
	Correct int
	Total   int
}

// Accuracy returns the percentage correct, 0 when nothing was answered.
func (t Tally) Accuracy() int {
	if t.Total == 0 {
		return 0
	}
	return int(math.Round(float64(t.Correct) / float64(t.Total) * 100))
}

// ConceptTallies groups graded answers by the question's skill_tested.
// Questions without a skill are skipped.
func ConceptTallies(qs []Question, graded []GradedAnswer) map[string]Tally {
	byID := make(map[string]Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	out := make(map[string]Tally)
	for _, g := range graded {
		q, ok := byID[g.QuestionID]
		if !ok {
			continue
		}
		concept := NormalizeAnswer(q.SkillTested)
		if concept == "" {
			continue
		}
		t := out[concept]
		t.Total++
		if g.IsCorrect {
			t.Correct++
		}
		out[concept] = t
	}
	return out
}
