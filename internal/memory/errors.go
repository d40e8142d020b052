package memory

import "strings"

// ErrorCategory classifies a wrong answer from its grading feedback.
type ErrorCategory string

const (
	ErrorConceptual ErrorCategory = "conceptual_misunderstanding"
	ErrorProcedural ErrorCategory = "procedural_error"
	ErrorAttention  ErrorCategory = "attention_lapse"
	ErrorLanguage   ErrorCategory = "language_barrier"
)

// Mastery bands.
const (
	AdvanceThreshold      = 80
	NeedsSupportThreshold = 60
)

var errorRules = []struct {
	category ErrorCategory
	words    []string
}{
	{ErrorConceptual, []string{" misunderstand", "confus", "concept", "think that"}},
	{ErrorProcedural, []string{"step", "procedure", "calculation", "forgot to"}},
	{ErrorAttention, []string{"attention", "careless", "silly", "read"}},
	{ErrorLanguage, []string{"language", "word", "vocabulary"}},
}

// CategorizeError maps feedback on a wrong answer to an error category.
// Rules are checked in order; unmatched feedback is conceptual.
func CategorizeError(feedback string) ErrorCategory {
	f := strings.ToLower(feedback)
	for _, r := range errorRules {
		for _, w := range r.words {
			if strings.Contains(f, w) {
				return r.category
			}
		}
	}
	return ErrorConceptual
}

// MasteryScore is accuracy as a percentage, lowered by two points per
// language barrier and one per attention lapse, clamped to 0–100.
func MasteryScore(correct, total int, categories []ErrorCategory) int {
	if total <= 0 {
		return 0
	}
	base := int(float64(correct)/float64(total)*100 + 0.5)
	for _, c := range categories {
		switch c {
		case ErrorLanguage:
			base -= 2
		case ErrorAttention:
			base--
		}
	}
	return clamp(base, 0, 100)
}

// Band names where a mastery level sits.
func Band(level int) string {
	switch {
	case level >= AdvanceThreshold:
		return "advance"
	case level >= NeedsSupportThreshold:
		return "developing"
	}
	return "needs_support"
}
