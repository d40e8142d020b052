package content

import (
	"encoding/json"
	"fmt"

	"github.com/scholarloop/scholarloop/internal/llm"
)

// Kind tags the payload carried by an Envelope.
type Kind string

const (
	KindAssessmentQuestions Kind = "assessment_questions"
	KindAssessmentGrade     Kind = "assessment_grade"
	KindProfile             Kind = "profile"
	KindRoadmap             Kind = "roadmap"
	KindWorksheet           Kind = "worksheet"
	KindQuiz                Kind = "quiz"
	KindQuizGrade           Kind = "quiz_grade"
	KindWorksheetGrade      Kind = "worksheet_grade"
)

// EnvelopeVersion is written into every new envelope.
const EnvelopeVersion = 1

// Envelope is the stored form of every generated document. The kind tag
// selects the schema the payload is validated against when read back.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

var schemas = map[Kind]*llm.Schema{
	KindAssessmentQuestions: AssessmentQuestionsSchema,
	KindAssessmentGrade:     AssessmentGradeSchema,
	KindProfile:             ProfileSchema,
	KindRoadmap:             RoadmapSchema,
	KindWorksheet:           WorksheetSchema,
	KindQuiz:                QuizSchema,
	KindQuizGrade:           QuizGradeSchema,
	KindWorksheetGrade:      WorksheetGradeSchema,
}

// SchemaFor returns the output contract for kind.
func SchemaFor(kind Kind) *llm.Schema {
	return schemas[kind]
}

// Wrap encodes payload into an envelope of the given kind.
func Wrap(kind Kind, payload any) ([]byte, error) {
	if _, ok := schemas[kind]; !ok {
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Kind: kind, Version: EnvelopeVersion, Payload: body})
}

// Open decodes a stored envelope, checks its tag, and validates the payload
// against the kind's schema and semantic checks.
func Open[T any](raw []byte, want Kind) (T, error) {
	var zero T
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, &llm.ErrInvalidResponse{Content: raw, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if env.Kind != want {
		return zero, &llm.ErrInvalidResponse{Content: raw, Err: fmt.Errorf("envelope kind %q, want %q", env.Kind, want)}
	}
	if env.Version > EnvelopeVersion {
		return zero, &llm.ErrInvalidResponse{Content: raw, Err: fmt.Errorf("envelope version %d is newer than supported %d", env.Version, EnvelopeVersion)}
	}
	return Parse[T](env.Payload, want)
}

// Parse validates raw against the kind's schema, decodes it into T and
// runs T's semantic checks.
func Parse[T any](raw json.RawMessage, kind Kind) (T, error) {
	var out T
	schema := SchemaFor(kind)
	if schema == nil {
		return out, fmt.Errorf("unknown content kind %q", kind)
	}
	normalized, err := llm.Validate(schema, raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(normalized, &out); err != nil {
		return out, &llm.ErrInvalidResponse{Content: raw, Err: fmt.Errorf("decode %s: %w", kind, err)}
	}
	if c, ok := any(&out).(checker); ok {
		if verr := c.check(); verr != nil {
			return out, &llm.ErrInvalidResponse{Content: raw, Err: verr}
		}
	}
	return out, nil
}
