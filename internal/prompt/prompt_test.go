package prompt

import (
	"reflect"
	"strings"
	"testing"

	"github.com/scholarloop/scholarloop/internal/content"
)

func TestStaticSegmentIsSharedAcrossStudents(t *testing.T) {
	a := Quiz(QuizInput{Student: Student{Name: "Ali", Age: 8}, Subject: "Mathematics"})
	b := Quiz(QuizInput{Student: Student{Name: "Mia", Age: 12}, Subject: "Science", WeakConcepts: []string{"forces"}})

	if a.Static != b.Static || a.CacheKey != b.CacheKey {
		t.Fatal("static segment must not depend on student data")
	}
	if a.Dynamic == b.Dynamic {
		t.Fatal("dynamic segment should differ between students")
	}
	if len(a.CacheKey) != 16 {
		t.Errorf("CacheKey length = %d, want 16", len(a.CacheKey))
	}
	if !strings.Contains(b.Dynamic, "forces") || strings.Contains(b.Static, "forces") {
		t.Error("student data belongs in the dynamic segment only")
	}
}

func TestEveryOperationHasStaticSegmentAndBudget(t *testing.T) {
	ops := []Operation{OpAssessmentQuestions, OpAssessmentGrade, OpProfile, OpRoadmap, OpWorksheet, OpQuiz, OpQuizGrade, OpWorksheetGrade}
	keys := map[string]Operation{}
	for _, op := range ops {
		if systemPrompts[op] == "" {
			t.Errorf("%s has no static segment", op)
		}
		if Budgets[op] == 0 {
			t.Errorf("%s has no token budget", op)
		}
		key := compose(op, "").CacheKey
		if prev, ok := keys[key]; ok && systemPrompts[prev] != systemPrompts[op] {
			t.Errorf("cache key collision between %s and %s", prev, op)
		}
		keys[key] = op
	}
}

func TestRequest_AttachesContractOutsideText(t *testing.T) {
	p := Worksheet(WorksheetInput{Subject: "English", AgeGroup: "8-9", Difficulty: "easy", NumQuestions: 10})
	req := p.Request(content.WorksheetSchema)

	if req.Schema != content.WorksheetSchema {
		t.Fatal("schema not attached")
	}
	if !req.CacheSystem || req.System != p.Static {
		t.Error("static segment should be the cacheable system prompt")
	}
	if req.MaxTokens != Budgets[OpWorksheet] {
		t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, Budgets[OpWorksheet])
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != p.Dynamic {
		t.Fatalf("messages = %+v", req.Messages)
	}
	for _, s := range []string{req.System, req.Messages[0].Content} {
		if strings.Contains(s, "additionalProperties") || strings.Contains(s, `"type"`) {
			t.Error("schema contract leaked into prompt text")
		}
	}
}

func TestDynamicSegmentIsDeterministic(t *testing.T) {
	in := ProfileInput{
		Student: Student{Name: "Ali", Age: 9, Interests: []string{"space", "animals"}},
		Mastery: []Mastery{
			{Subject: "Mathematics", Concept: "subtraction", Level: 40},
			{Subject: "Mathematics", Concept: "addition", Level: 80},
		},
	}
	first := Profile(in).Dynamic

	in.Student.Interests = []string{"animals", "space"}
	in.Mastery[0], in.Mastery[1] = in.Mastery[1], in.Mastery[0]
	if Profile(in).Dynamic != first {
		t.Fatal("input order changed the dynamic segment")
	}
}

func TestGradePromptMarksMissingAnswers(t *testing.T) {
	p := AssessmentGrade(GradeInput{
		Subject:   "Mathematics",
		Questions: []content.Question{{ID: "q1", Question: "2+2?", CorrectAnswer: "4", Points: 1}},
	})
	if !strings.Contains(p.Dynamic, "(no answer)") {
		t.Errorf("dynamic = %q", p.Dynamic)
	}
}

func TestAgeBand(t *testing.T) {
	tests := []struct {
		age  int
		want string
	}{
		{4, BandEarly}, {7, BandEarly}, {8, BandUpper}, {13, BandUpper}, {3, BandUpper},
	}
	for _, tc := range tests {
		if got := AgeBand(tc.age); got != tc.want {
			t.Errorf("AgeBand(%d) = %q, want %q", tc.age, got, tc.want)
		}
	}
}

func TestAgeGroupFor(t *testing.T) {
	for age, want := range map[int]string{4: "4-5", 6: "6-7", 9: "8-9", 10: "10-11", 13: "12-13", 16: "12-13"} {
		if got := AgeGroupFor(age); got != want {
			t.Errorf("AgeGroupFor(%d) = %q, want %q", age, got, want)
		}
		if !ValidAgeGroup(AgeGroupFor(age)) {
			t.Errorf("AgeGroupFor(%d) is not a valid group", age)
		}
	}
	if ValidAgeGroup("14-15") {
		t.Error("14-15 should be invalid")
	}
}

func TestSelectRoadmapSubjects(t *testing.T) {
	catalog := []string{"Mathematics", "Islamic Studies", "English", "Robotics", "Art & Creativity", "Physics"}

	tests := []struct {
		name     string
		age      int
		religion string
		want     []string
	}{
		{"young non-muslim", 6, "non_muslim", []string{"Mathematics", "English", "Art & Creativity"}},
		{"young muslim", 5, "muslim", []string{"Mathematics", "English", "Art & Creativity", "Islamic Studies"}},
		{"older muslim", 10, "Muslim", []string{"Mathematics", "English", "Art & Creativity", "Islamic Studies", "Robotics", "Physics"}},
		{"older non-muslim", 12, "", []string{"Mathematics", "English", "Art & Creativity", "Robotics", "Physics"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectRoadmapSubjects(catalog, tc.age, tc.religion)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
