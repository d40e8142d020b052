// Package prompt composes model requests from a static, per-operation
// instruction segment and a dynamic, per-student segment.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/scholarloop/scholarloop/internal/llm"
)

// Operation identifies a pipeline call type. It doubles as the llm purpose
// label and the usage event suffix.
type Operation string

const (
	OpAssessmentQuestions Operation = "assessment_questions"
	OpAssessmentGrade     Operation = "assessment_grade"
	OpProfile             Operation = "profile"
	OpRoadmap             Operation = "roadmap"
	OpWorksheet           Operation = "worksheet"
	OpQuiz                Operation = "quiz"
	OpQuizGrade           Operation = "quiz_grade"
	OpWorksheetGrade      Operation = "worksheet_grade"
)

// Budgets caps output tokens per operation.
var Budgets = map[Operation]int{
	OpAssessmentQuestions: 1500,
	OpAssessmentGrade:     800,
	OpProfile:             1500,
	OpRoadmap:             2000,
	OpWorksheet:           1200,
	OpQuiz:                1000,
	OpQuizGrade:           800,
	OpWorksheetGrade:      1200,
}

var temperatures = map[Operation]float64{
	OpAssessmentGrade: 0.2,
	OpQuizGrade:       0.2,
	OpWorksheetGrade:  0.2,
	OpProfile:         0.3,
	OpRoadmap:         0.4,
}

const defaultTemperature = 0.7

// Prompt is a composed request before the output contract is attached.
type Prompt struct {
	Operation Operation
	Static    string
	Dynamic   string
	// CacheKey identifies the static segment; equal keys mean the provider
	// can reuse its cached prefix.
	CacheKey string
}

func compose(op Operation, dynamic string) Prompt {
	static := systemPrompts[op]
	sum := sha256.Sum256([]byte(static))
	return Prompt{
		Operation: op,
		Static:    static,
		Dynamic:   dynamic,
		CacheKey:  hex.EncodeToString(sum[:])[:16],
	}
}

// Request attaches the output contract and token budget. The static
// segment goes into the system slot and is marked cacheable.
func (p Prompt) Request(schema *llm.Schema) llm.Request {
	temp, ok := temperatures[p.Operation]
	if !ok {
		temp = defaultTemperature
	}
	return llm.Request{
		System:      p.Static,
		CacheSystem: true,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: p.Dynamic}},
		Schema:      schema,
		MaxTokens:   Budgets[p.Operation],
		Temperature: temp,
	}
}
