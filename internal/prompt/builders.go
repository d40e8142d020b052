package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scholarloop/scholarloop/internal/content"
)

// Student is the per-student context shared by every builder.
type Student struct {
	Name      string
	Age       int
	Religion  string
	Interests []string
}

// Mastery is one longitudinal concept level.
type Mastery struct {
	Subject string
	Concept string
	Level   int
}

// Evidence summarizes one completed assessment.
type Evidence struct {
	Subject         string
	Kind            string
	NormalizedScore int
	Strengths       []string
	Weaknesses      []string
	Summary         string
}

type AssessmentQuestionsInput struct {
	Student    Student
	Subject    string
	Kind       string
	Difficulty string
	Mastery    []Mastery
}

type GradeInput struct {
	Student   Student
	Subject   string
	Title     string
	Questions []content.Question
	Answers   []content.Answer
}

type ProfileInput struct {
	Student     Student
	Assessments []Evidence
	Mastery     []Mastery
	Previous    *content.Profile
}

type RoadmapInput struct {
	Student  Student
	Profile  content.Profile
	Subjects []string
}

type WorksheetInput struct {
	Subject      string
	AgeGroup     string
	Difficulty   string
	Topic        string
	NumQuestions int
	StudentLevel string
}

type QuizInput struct {
	Student      Student
	Subject      string
	WeakConcepts []string
	RecentTopics []string
}

var ageGroupDescriptions = map[string]string{
	"4-5":   "preschool/kindergarten level, very simple concepts, basic recognition",
	"6-7":   "early elementary, beginning reading and basic math, simple sentences",
	"8-9":   "elementary level, more complex reading, basic arithmetic",
	"10-11": "upper elementary, paragraph writing, multi-step math",
	"12-13": "middle school level, critical thinking, longer responses",
}

var difficultyDescriptions = map[string]string{
	"easy":   "straightforward questions, clear instructions, foundational concepts",
	"medium": "moderate challenge, some application required",
	"hard":   "challenging questions that require deeper thinking",
}

func writeStudent(b *strings.Builder, s Student) {
	if s.Name != "" {
		fmt.Fprintf(b, "Student: %s\n", s.Name)
	}
	fmt.Fprintf(b, "Age: %d (age group %s)\n", s.Age, AgeGroupFor(s.Age))
	if len(s.Interests) > 0 {
		interests := append([]string(nil), s.Interests...)
		sort.Strings(interests)
		fmt.Fprintf(b, "Interests: %s\n", strings.Join(interests, ", "))
	}
}

func writeMastery(b *strings.Builder, ms []Mastery) {
	b.WriteString("\nPrior mastery:\n")
	if len(ms) == 0 {
		b.WriteString("None recorded\n")
		return
	}
	sorted := append([]Mastery(nil), ms...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Subject != sorted[j].Subject {
			return sorted[i].Subject < sorted[j].Subject
		}
		return sorted[i].Concept < sorted[j].Concept
	})
	for _, m := range sorted {
		fmt.Fprintf(b, "- %s / %s: %d/100\n", m.Subject, m.Concept, m.Level)
	}
}

// AssessmentQuestions builds the diagnostic question prompt.
func AssessmentQuestions(in AssessmentQuestionsInput) Prompt {
	var b strings.Builder
	writeStudent(&b, in.Student)
	fmt.Fprintf(&b, "Subject: %s\n", in.Subject)
	if in.Kind != "" {
		fmt.Fprintf(&b, "Assessment kind: %s\n", in.Kind)
	}
	if in.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s (%s)\n", in.Difficulty, difficultyDescriptions[in.Difficulty])
	}
	writeMastery(&b, in.Mastery)
	b.WriteString("\nWrite between 8 and 12 questions.")
	return compose(OpAssessmentQuestions, b.String())
}

func gradeMessage(in GradeInput) string {
	var b strings.Builder
	writeStudent(&b, in.Student)
	fmt.Fprintf(&b, "Subject: %s\n", in.Subject)
	if in.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", in.Title)
	}

	answers := make(map[string]string, len(in.Answers))
	for _, a := range in.Answers {
		answers[a.QuestionID] = a.Answer
	}
	b.WriteString("\nQuestions and answers:\n")
	for _, q := range in.Questions {
		given := answers[q.ID]
		if strings.TrimSpace(given) == "" {
			given = "(no answer)"
		}
		fmt.Fprintf(&b, "\n[%s] (%d points, concept: %s) %s\n", q.ID, q.Points, q.SkillTested, q.Question)
		if len(q.Options) > 0 {
			fmt.Fprintf(&b, "Options: %s\n", strings.Join(q.Options, " | "))
		}
		fmt.Fprintf(&b, "Correct answer: %s\n", q.CorrectAnswer)
		fmt.Fprintf(&b, "Student's answer: %s\n", given)
	}
	return b.String()
}

// AssessmentGrade builds the assessment grading prompt.
func AssessmentGrade(in GradeInput) Prompt {
	return compose(OpAssessmentGrade, gradeMessage(in))
}

// QuizGrade builds the quiz grading prompt.
func QuizGrade(in GradeInput) Prompt {
	return compose(OpQuizGrade, gradeMessage(in))
}

// WorksheetGrade builds the worksheet grading prompt.
func WorksheetGrade(in GradeInput) Prompt {
	return compose(OpWorksheetGrade, gradeMessage(in))
}

// Profile builds the learning profile prompt.
func Profile(in ProfileInput) Prompt {
	var b strings.Builder
	writeStudent(&b, in.Student)

	b.WriteString("\nCompleted assessments:\n")
	for _, a := range in.Assessments {
		fmt.Fprintf(&b, "- %s", a.Subject)
		if a.Kind != "" {
			fmt.Fprintf(&b, " (%s)", a.Kind)
		}
		fmt.Fprintf(&b, ": %d/100\n", a.NormalizedScore)
		if len(a.Strengths) > 0 {
			fmt.Fprintf(&b, "  strengths: %s\n", strings.Join(a.Strengths, ", "))
		}
		if len(a.Weaknesses) > 0 {
			fmt.Fprintf(&b, "  weaknesses: %s\n", strings.Join(a.Weaknesses, ", "))
		}
		if a.Summary != "" {
			fmt.Fprintf(&b, "  summary: %s\n", a.Summary)
		}
	}
	writeMastery(&b, in.Mastery)

	if p := in.Previous; p != nil {
		b.WriteString("\nPrevious profile:\n")
		fmt.Fprintf(&b, "Learning speed: %s, attention span: %s\n", p.LearningSpeed, p.AttentionSpan)
		for _, l := range p.AcademicLevels {
			fmt.Fprintf(&b, "- %s: %s (confidence %d)\n", l.Subject, l.Level, l.Confidence)
		}
		if p.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", p.Summary)
		}
	}
	return compose(OpProfile, b.String())
}

// Roadmap builds the curriculum roadmap prompt. Subjects should already be
// filtered with SelectRoadmapSubjects.
func Roadmap(in RoadmapInput) Prompt {
	var b strings.Builder
	writeStudent(&b, in.Student)
	fmt.Fprintf(&b, "Age band: %s\n", AgeBand(in.Student.Age))

	p := in.Profile
	b.WriteString("\nLearning profile:\n")
	fmt.Fprintf(&b, "Learning speed: %s\nAttention span: %s\n", p.LearningSpeed, p.AttentionSpan)
	style := p.ContentStyle
	if style == "" {
		style = "balanced"
	}
	fmt.Fprintf(&b, "Recommended content style: %s\n", style)
	for _, l := range p.AcademicLevels {
		fmt.Fprintf(&b, "- %s: %s\n", l.Subject, l.Level)
	}
	for _, g := range p.Gaps {
		fmt.Fprintf(&b, "Gap (%s priority): %s\n", g.Priority, g.Area)
	}
	for _, s := range p.InterestSignals {
		fmt.Fprintf(&b, "Interest: %s (%d)\n", s.Topic, s.Score)
	}

	fmt.Fprintf(&b, "\nSubject list: %s\n", strings.Join(in.Subjects, ", "))
	return compose(OpRoadmap, b.String())
}

// Worksheet builds the worksheet prompt.
func Worksheet(in WorksheetInput) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", in.Subject)
	fmt.Fprintf(&b, "Age group: %s years old (%s)\n", in.AgeGroup, ageGroupDescriptions[in.AgeGroup])
	fmt.Fprintf(&b, "Difficulty: %s (%s)\n", in.Difficulty, difficultyDescriptions[in.Difficulty])
	if in.Topic != "" {
		fmt.Fprintf(&b, "Specific topic: %s\n", in.Topic)
	}
	if in.StudentLevel != "" {
		fmt.Fprintf(&b, "Student's current level: %s\n", in.StudentLevel)
	}
	fmt.Fprintf(&b, "Number of questions: %d\n", in.NumQuestions)
	return compose(OpWorksheet, b.String())
}

// Quiz builds the adaptive quiz prompt.
func Quiz(in QuizInput) Prompt {
	var b strings.Builder
	writeStudent(&b, in.Student)
	fmt.Fprintf(&b, "Subject: %s\n", in.Subject)
	if len(in.WeakConcepts) > 0 {
		fmt.Fprintf(&b, "Weak concepts: %s\n", strings.Join(in.WeakConcepts, ", "))
	}
	if len(in.RecentTopics) > 0 {
		fmt.Fprintf(&b, "Recent topics studied: %s\n", strings.Join(in.RecentTopics, ", "))
	}
	b.WriteString("Create exactly 5 questions.")
	return compose(OpQuiz, b.String())
}
