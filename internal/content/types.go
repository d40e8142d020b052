// Package content defines the typed documents the pipeline generates,
// their output contracts, and the tagged envelope they are stored in.
package content

// QuestionType enumerates the question formats the generators may emit.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionText           QuestionType = "text"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionFillBlank      QuestionType = "fill_blank"
)

// Question is shared by assessments, worksheets and quizzes.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
	SkillTested   string       `json:"skill_tested,omitempty"`
	Hint          string       `json:"hint,omitempty"`
}

// Answer is one submitted response.
type Answer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

// AssessmentQuestions is a generated diagnostic question set.
type AssessmentQuestions struct {
	Questions []Question `json:"questions"`
}

// GradedAnswer is the verdict for one submitted answer.
type GradedAnswer struct {
	QuestionID string `json:"question_id"`
	IsCorrect  bool   `json:"is_correct"`
	Feedback   string `json:"feedback"`
}

// ConceptEvidence names a concept and, optionally, what showed it.
type ConceptEvidence struct {
	Concept  string `json:"concept"`
	Evidence string `json:"evidence,omitempty"`
}

// AssessmentGrade is the grading outcome of a submitted assessment.
type AssessmentGrade struct {
	RawScore      float64           `json:"raw_score"`
	GradedAnswers []GradedAnswer    `json:"graded_answers"`
	Strengths     []ConceptEvidence `json:"strengths"`
	Weaknesses    []ConceptEvidence `json:"weaknesses"`
	Summary       string            `json:"summary"`
	LearningStyle string            `json:"learning_style,omitempty"`
}

// SubjectLevel is the profile's estimate for one subject.
type SubjectLevel struct {
	Subject    string   `json:"subject"`
	Level      string   `json:"level"`
	Confidence int      `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

type InterestSignal struct {
	Topic string `json:"topic"`
	Score int    `json:"score"`
}

type Strength struct {
	Area     string `json:"area"`
	Evidence string `json:"evidence"`
}

type Gap struct {
	Area     string `json:"area"`
	Priority string `json:"priority"`
	Evidence string `json:"evidence"`
}

// Profile is the durable academic profile of a student.
type Profile struct {
	AcademicLevels  []SubjectLevel   `json:"academic_levels"`
	LearningSpeed   string           `json:"learning_speed"`
	AttentionSpan   string           `json:"attention_span"`
	InterestSignals []InterestSignal `json:"interest_signals"`
	Strengths       []Strength       `json:"strengths"`
	Gaps            []Gap            `json:"gaps"`
	ContentStyle    string           `json:"recommended_content_style,omitempty"`
	Summary         string           `json:"summary,omitempty"`
}

// RoadmapSubject is the plan for one subject.
type RoadmapSubject struct {
	Subject               string   `json:"subject"`
	EntryLevel            string   `json:"entry_level"`
	WeeklyLessons         int      `json:"weekly_lessons"`
	TeachingStyle         string   `json:"teaching_style"`
	DifficultyProgression []string `json:"difficulty_progression"`
	AdaptationStrategy    string   `json:"ai_adaptation_strategy"`
	MasteryTimelineWeeks  int      `json:"mastery_timeline_weeks"`
}

// Roadmap is a multi-subject curriculum plan.
type Roadmap struct {
	Subjects []RoadmapSubject `json:"subjects"`
	Summary  string           `json:"summary,omitempty"`
}

type AnswerKeyEntry struct {
	QuestionID  string `json:"question_id"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
}

type Explanation struct {
	QuestionID string   `json:"question_id"`
	StepByStep []string `json:"step_by_step"`
	Concept    string   `json:"concept"`
	Tips       []string `json:"tips"`
}

// Worksheet is a printable practice sheet with answer key.
type Worksheet struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Questions    []Question       `json:"questions"`
	AnswerKey    []AnswerKeyEntry `json:"answer_key"`
	Explanations []Explanation    `json:"explanations"`
}

// Quiz is a short adaptive quiz.
type Quiz struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// MaxScore is the sum of question points.
func (q Quiz) MaxScore() float64 {
	return MaxPoints(q.Questions)
}

// QuizGrade is the grading outcome of a quiz attempt.
type QuizGrade struct {
	Score           float64        `json:"score"`
	GradedAnswers   []GradedAnswer `json:"graded_answers"`
	OverallFeedback string         `json:"overall_feedback"`
	Encouragement   string         `json:"encouragement"`
}

// WorksheetGrade is the grading outcome of a completed worksheet.
type WorksheetGrade struct {
	Score           float64        `json:"score"`
	GradedAnswers   []GradedAnswer `json:"graded_answers"`
	OverallFeedback string         `json:"overall_feedback"`
	Strengths       []string       `json:"strengths"`
	AreasToImprove  []string       `json:"areas_to_improve"`
}
