package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-flash-lite", "gemini-2.5-flash-lite"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, resolveModel(tt.input, geminiModels), tt.input)
	}
}

func TestBuildGeminiSchema_Worksheet(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 30,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":   map[string]any{"type": "string", "enum": []any{"multiple_choice", "short_answer"}},
						"points": map[string]any{"type": "integer", "minimum": 1, "maximum": 10.0},
						"hint":   map[string]any{"type": []any{"string", "null"}},
					},
					"required": []any{"type", "points", "hint"},
				},
			},
		},
		"required": []any{"title", "questions"},
	}

	schema := buildGeminiSchema(def)

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"title", "questions"}, schema.PropertyOrdering)

	qs := schema.Properties["questions"]
	require.NotNil(t, qs)
	assert.Equal(t, genai.TypeArray, qs.Type)
	require.NotNil(t, qs.MinItems)
	require.NotNil(t, qs.MaxItems)
	assert.EqualValues(t, 1, *qs.MinItems)
	assert.EqualValues(t, 30, *qs.MaxItems)

	item := qs.Items
	require.NotNil(t, item)
	assert.Len(t, item.Properties["type"].Enum, 2)
	points := item.Properties["points"]
	require.NotNil(t, points.Minimum)
	require.NotNil(t, points.Maximum)
	assert.Equal(t, 1.0, *points.Minimum)
	assert.Equal(t, 10.0, *points.Maximum)

	hint := item.Properties["hint"]
	assert.Equal(t, genai.TypeString, hint.Type)
	require.NotNil(t, hint.Nullable)
	assert.True(t, *hint.Nullable)
}

func TestBuildGeminiSchema_NoOrderingWithoutRequired(t *testing.T) {
	schema := buildGeminiSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "boolean"}},
	})
	assert.Nil(t, schema.PropertyOrdering)
	assert.Nil(t, schema.Required)
	assert.Equal(t, genai.TypeBoolean, schema.Properties["a"].Type)
}

func TestGeminiBlockReason(t *testing.T) {
	tests := []struct {
		name   string
		result *genai.GenerateContentResponse
		want   string
	}{
		{"clean stop", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: "STOP"}}}, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"safety", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: "SAFETY"}}}, "safety"},
		{"blocked prompt", &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: "PROHIBITED_CONTENT"}}, "prompt prohibited_content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geminiBlockReason(tt.result))
		})
	}
}

func TestMapGeminiStopReason(t *testing.T) {
	truncated := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: "MAX_TOKENS"}}}
	assert.Equal(t, "max_tokens", mapGeminiStopReason(truncated))
	assert.Equal(t, "end", mapGeminiStopReason(&genai.GenerateContentResponse{}))
}
