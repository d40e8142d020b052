package content

import "github.com/scholarloop/scholarloop/internal/llm"

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func enum(values ...any) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func intRange(min, max int, desc string) map[string]any {
	return map[string]any{"type": "integer", "minimum": min, "maximum": max, "description": desc}
}

func arrayOf(items map[string]any, desc string) map[string]any {
	return map[string]any{"type": "array", "items": items, "description": desc}
}

func object(props map[string]any, required ...any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func questionSchema(types ...any) map[string]any {
	return object(map[string]any{
		"id":             str("Stable identifier, e.g. q1"),
		"type":           enum(types...),
		"question":       str("Question text, age-appropriate"),
		"options":        arrayOf(map[string]any{"type": "string"}, "Choices for multiple_choice; empty otherwise"),
		"correct_answer": str("Exact correct answer; for multiple_choice one of the options"),
		"points":         intRange(1, 5, "Weight of this question"),
		"skill_tested":   str("Concept this question measures, lower-case, e.g. addition"),
		"hint":           str("Optional hint"),
	}, "id", "type", "question", "correct_answer", "points")
}

var gradedAnswerSchema = object(map[string]any{
	"question_id": str("ID of the graded question"),
	"is_correct":  map[string]any{"type": "boolean"},
	"feedback":    str("One encouraging sentence about this answer"),
}, "question_id", "is_correct", "feedback")

var conceptEvidenceSchema = object(map[string]any{
	"concept":  str("Concept name, lower-case"),
	"evidence": str("What in the answers showed this"),
}, "concept")

// AssessmentQuestionsSchema is the contract for diagnostic question generation.
var AssessmentQuestionsSchema = &llm.Schema{
	Name:        "assessment-questions",
	Description: "Diagnostic assessment questions for one subject",
	Definition: object(map[string]any{
		"questions": map[string]any{
			"type":     "array",
			"items":    questionSchema("multiple_choice", "text", "true_false", "fill_blank"),
			"minItems": 5,
			"maxItems": 15,
		},
	}, "questions"),
	EmptyArrays: []string{"questions.*.options"},
}

// AssessmentGradeSchema is the contract for grading a diagnostic assessment.
var AssessmentGradeSchema = &llm.Schema{
	Name:        "assessment-grade",
	Description: "Grading of a diagnostic assessment with concept-level strengths and weaknesses",
	Definition: object(map[string]any{
		"raw_score":      map[string]any{"type": "number", "minimum": 0},
		"graded_answers": arrayOf(gradedAnswerSchema, "One entry per question"),
		"strengths":      arrayOf(conceptEvidenceSchema, "Concepts the student has mastered"),
		"weaknesses":     arrayOf(conceptEvidenceSchema, "Concepts that need work"),
		"summary":        str("Two to three sentence summary for the parent"),
		"learning_style": enum("visual", "auditory", "kinesthetic", "reading_writing"),
	}, "raw_score", "graded_answers", "strengths", "weaknesses", "summary"),
	EmptyArrays: []string{"strengths", "weaknesses"},
}

// ProfileSchema is the contract for learning profile generation.
var ProfileSchema = &llm.Schema{
	Name:        "learning-profile",
	Description: "Durable academic profile built from assessment evidence",
	Definition: object(map[string]any{
		"academic_levels": arrayOf(object(map[string]any{
			"subject":    str("Subject name from the catalog"),
			"level":      enum("beginner", "developing", "proficient", "advanced"),
			"confidence": intRange(0, 100, "Confidence in this estimate"),
			"evidence":   arrayOf(map[string]any{"type": "string"}, "Observations supporting the level"),
		}, "subject", "level", "confidence", "evidence"), "One entry per assessed subject"),
		"learning_speed": enum("slow", "average", "fast"),
		"attention_span": enum("short", "medium", "long"),
		"interest_signals": arrayOf(object(map[string]any{
			"topic": str("Topic of interest"),
			"score": intRange(0, 100, "Strength of the signal"),
		}, "topic", "score"), "Observed interests"),
		"strengths": arrayOf(object(map[string]any{
			"area":     str("Area of strength"),
			"evidence": str("Supporting evidence"),
		}, "area", "evidence"), "Strengths"),
		"gaps": arrayOf(object(map[string]any{
			"area":     str("Area needing work"),
			"priority": enum("low", "medium", "high"),
			"evidence": str("Supporting evidence"),
		}, "area", "priority", "evidence"), "Learning gaps"),
		"recommended_content_style": str("Content style that suits this student"),
		"summary":                   str("Short narrative summary"),
	}, "academic_levels", "learning_speed", "attention_span", "interest_signals", "strengths", "gaps"),
	EmptyArrays: []string{"academic_levels.*.evidence", "interest_signals", "strengths", "gaps"},
}

// RoadmapSchema is the contract for curriculum roadmap generation.
var RoadmapSchema = &llm.Schema{
	Name:        "curriculum-roadmap",
	Description: "Multi-subject curriculum roadmap",
	Definition: object(map[string]any{
		"subjects": map[string]any{
			"type": "array",
			"items": object(map[string]any{
				"subject":                str("Subject name, exactly as listed in the request"),
				"entry_level":            str("Where the student starts"),
				"weekly_lessons":         intRange(1, 10, "Lessons per week"),
				"teaching_style":         str("How to teach this student this subject"),
				"difficulty_progression": arrayOf(map[string]any{"type": "string"}, "Ordered milestones"),
				"ai_adaptation_strategy": str("How content should adapt as mastery changes"),
				"mastery_timeline_weeks": intRange(1, 52, "Weeks to reach mastery"),
			}, "subject", "entry_level", "weekly_lessons", "teaching_style", "difficulty_progression",
				"ai_adaptation_strategy", "mastery_timeline_weeks"),
			"minItems": 1,
		},
		"summary": str("Overall plan summary"),
	}, "subjects"),
	EmptyArrays: []string{"subjects.*.difficulty_progression"},
}

// WorksheetSchema is the contract for worksheet generation.
var WorksheetSchema = &llm.Schema{
	Name:        "worksheet",
	Description: "Practice worksheet with answer key and step-by-step explanations",
	Definition: object(map[string]any{
		"title":       str("Worksheet title"),
		"description": str("One sentence description"),
		"questions": map[string]any{
			"type":     "array",
			"items":    questionSchema("multiple_choice", "text", "true_false", "fill_blank"),
			"minItems": 1,
			"maxItems": 30,
		},
		"answer_key": arrayOf(object(map[string]any{
			"question_id": str("Question ID"),
			"answer":      str("Correct answer"),
			"explanation": str("Why it is correct"),
		}, "question_id", "answer", "explanation"), "One entry per question"),
		"explanations": arrayOf(object(map[string]any{
			"question_id":  str("Question ID"),
			"step_by_step": arrayOf(map[string]any{"type": "string"}, "Solution steps"),
			"concept":      str("Concept practiced"),
			"tips":         arrayOf(map[string]any{"type": "string"}, "Tips for the student"),
		}, "question_id", "step_by_step", "concept", "tips"), "Step-by-step explanations"),
	}, "title", "description", "questions", "answer_key", "explanations"),
	EmptyArrays: []string{"questions.*.options", "explanations", "explanations.*.tips"},
}

// QuizSchema is the contract for quiz generation.
var QuizSchema = &llm.Schema{
	Name:        "quiz",
	Description: "Short adaptive quiz",
	Definition: object(map[string]any{
		"title": str("Quiz title"),
		"questions": map[string]any{
			"type":     "array",
			"items":    questionSchema("multiple_choice", "true_false"),
			"minItems": 3,
			"maxItems": 10,
		},
	}, "title", "questions"),
	EmptyArrays: []string{"questions.*.options"},
}

// QuizGradeSchema is the contract for quiz grading.
var QuizGradeSchema = &llm.Schema{
	Name:        "quiz-grade",
	Description: "Graded quiz attempt with feedback",
	Definition: object(map[string]any{
		"score":            map[string]any{"type": "number", "minimum": 0},
		"graded_answers":   arrayOf(gradedAnswerSchema, "One entry per question"),
		"overall_feedback": str("Two sentences of feedback"),
		"encouragement":    str("One encouraging sentence"),
	}, "score", "graded_answers", "overall_feedback", "encouragement"),
}

// WorksheetGradeSchema is the contract for worksheet grading.
var WorksheetGradeSchema = &llm.Schema{
	Name:        "worksheet-grade",
	Description: "Graded worksheet submission with feedback for the parent",
	Definition: object(map[string]any{
		"score":            map[string]any{"type": "number", "minimum": 0},
		"graded_answers":   arrayOf(gradedAnswerSchema, "One entry per question"),
		"overall_feedback": str("Two or three sentences of feedback"),
		"strengths":        arrayOf(map[string]any{"type": "string"}, "Concepts answered well"),
		"areas_to_improve": arrayOf(map[string]any{"type": "string"}, "Concepts to practice next"),
	}, "score", "graded_answers", "overall_feedback", "strengths", "areas_to_improve"),
	EmptyArrays: []string{"strengths", "areas_to_improve"},
}
