package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/scholarloop/scholarloop/internal/apierr"
)

func testSchema() *Schema {
	return &Schema{
		Name:        "test-student",
		Description: "A test object",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":  map[string]any{"type": "string"},
				"age":   map[string]any{"type": "integer", "minimum": 4, "maximum": 13},
				"level": map[string]any{"type": "string", "enum": []any{"slow", "average", "fast"}},
			},
			"required": []any{"name", "age"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"name":"Alice","age":10,"level":"fast"}`, false},
		{"without optional", `{"name":"Bob","age":8}`, false},
		{"missing required", `{"name":"Charlie"}`, true},
		{"wrong type", `{"name":"Dave","age":"ten"}`, true},
		{"out of range", `{"name":"Eve","age":30}`, true},
		{"invalid enum", `{"name":"Finn","age":9,"level":"warp"}`, true},
		{"malformed", `{"name":`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateResponse(testSchema(), json.RawMessage(tt.raw))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				return
			}
			var invErr *ErrInvalidResponse
			if !errors.As(err, &invErr) {
				t.Fatalf("expected ErrInvalidResponse, got: %T (%v)", err, err)
			}
			if apierr.KindOf(err) != apierr.KindSchema {
				t.Fatalf("kind = %q, want schema", apierr.KindOf(err))
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	out, err := validateResponse(nil, json.RawMessage(`anything`))
	if err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
	if string(out) != "anything" {
		t.Fatalf("content changed: %s", out)
	}
}

func TestValidateResponse_NormalizesEmptyArrays(t *testing.T) {
	schema := &Schema{
		Name: "test-normalize",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"strengths": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"subjects": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":     map[string]any{"type": "string"},
							"evidence": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						},
						"required": []any{"name", "evidence"},
					},
				},
			},
			"required": []any{"strengths", "subjects"},
		},
		EmptyArrays: []string{"strengths", "subjects.*.evidence"},
	}

	out, err := validateResponse(schema, json.RawMessage(`{"strengths":null,"subjects":[{"name":"Math"},{"name":"Art","evidence":["drew"]}]}`))
	if err != nil {
		t.Fatalf("expected normalization to satisfy schema, got: %v", err)
	}

	var got struct {
		Strengths []string `json:"strengths"`
		Subjects  []struct {
			Name     string   `json:"name"`
			Evidence []string `json:"evidence"`
		} `json:"subjects"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Strengths == nil || len(got.Strengths) != 0 {
		t.Errorf("strengths = %#v, want empty slice", got.Strengths)
	}
	if got.Subjects[0].Evidence == nil || len(got.Subjects[1].Evidence) != 1 {
		t.Errorf("evidence not normalized: %+v", got.Subjects)
	}

	// A missing required object is still reported.
	if _, err := validateResponse(schema, json.RawMessage(`{"strengths":[]}`)); err == nil {
		t.Fatal("expected missing subjects to fail validation")
	}
}
