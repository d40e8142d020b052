package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/scholarloop/scholarloop/internal/content"
	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/entitlement"
	"github.com/scholarloop/scholarloop/internal/llm"
	"github.com/scholarloop/scholarloop/internal/pipeline"
	"github.com/scholarloop/scholarloop/internal/store"
	"github.com/scholarloop/scholarloop/internal/store/storetest"
)

type testEnv struct {
	srv     *Server
	s       *store.Store
	userID  uuid.UUID
	student *store.Student
	math    *store.Subject
}

func newTestEnv(t *testing.T, gate entitlement.Config) *testEnv {
	t.Helper()
	s := storetest.Open(t)
	log := storetest.Logger(t)
	dbc := dbctx.New(context.Background())

	acct := &store.Account{Email: uuid.NewString() + "@example.com", Name: "Parent"}
	require.NoError(t, s.Accounts.Create(dbc, acct))
	user := &store.User{AccountID: acct.ID, Role: "parent"}
	require.NoError(t, s.Accounts.CreateUser(dbc, user))
	require.NoError(t, s.Subscriptions.Upsert(dbc, &store.Subscription{
		AccountID: acct.ID, Type: store.SubscriptionMonthly, Status: "active",
	}))
	require.NoError(t, s.Subjects.EnsureDefaults(dbc))
	st := &store.Student{AccountID: acct.ID, Name: "Sara", Age: 8}
	require.NoError(t, s.Students.Create(dbc, st))

	subjects, err := s.Subjects.List(dbc)
	require.NoError(t, err)
	var math *store.Subject
	for _, subj := range subjects {
		if subj.Name == "Mathematics" {
			math = subj
		}
	}
	require.NotNil(t, math)

	if gate.DailyLimit == 0 {
		gate = entitlement.DefaultConfig()
	}
	p := pipeline.New(pipeline.Deps{
		Store:       s,
		Gate:        entitlement.NewGate(s.Subscriptions, s.Usage, gate, log),
		ProviderErr: &llm.ErrNotConfigured{Reason: "no API key"},
		Log:         log,
	}, pipeline.Config{})

	return &testEnv{
		srv:     New(Config{Mode: gin.TestMode}, p, s, log),
		s:       s,
		userID:  user.ID,
		student: st,
		math:    math,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, user string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(headerUserID, user)
	}
	w := httptest.NewRecorder()
	e.srv.Engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t, entitlement.Config{})
	w := e.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestRequireUser(t *testing.T) {
	e := newTestEnv(t, entitlement.Config{})
	tests := []struct {
		name string
		user string
	}{
		{"missing header", ""},
		{"not a uuid", "abc"},
		{"unknown user", uuid.NewString()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodGet, "/api/v1/students/"+e.student.ID.String()+"/profile", nil, tt.user)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			env := decode[ErrorEnvelope](t, w)
			assert.Equal(t, "unauthorized", env.Error.Code)
		})
	}
}

func TestAssessmentRoundTrip_HidesAnswers(t *testing.T) {
	e := newTestEnv(t, entitlement.Config{})
	user := e.userID.String()

	w := e.do(t, http.MethodPost, "/api/v1/assessments", map[string]any{
		"student_id": e.student.ID, "subject_id": e.math.ID,
	}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "correct_answer")

	type startedView struct {
		ID             uuid.UUID        `json:"id"`
		GeneratedBy    string           `json:"generated_by"`
		FallbackReason string           `json:"fallback_reason"`
		Questions      []map[string]any `json:"questions"`
	}
	started := decode[startedView](t, w)
	assert.Equal(t, pipeline.GeneratedByFallback, started.GeneratedBy)
	assert.Equal(t, "unconfigured", started.FallbackReason)
	require.NotEmpty(t, started.Questions)

	row, err := e.s.Assessments.GetByID(dbctx.New(context.Background()), started.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	doc, err := content.Open[content.AssessmentQuestions](row.Questions, content.KindAssessmentQuestions)
	require.NoError(t, err)

	answers := make([]content.Answer, 0, len(doc.Questions))
	for _, q := range doc.Questions {
		answers = append(answers, content.Answer{QuestionID: q.ID, Answer: q.CorrectAnswer})
	}
	path := "/api/v1/assessments/" + started.ID.String() + "/submit"
	w = e.do(t, http.MethodPost, path, map[string]any{"answers": answers}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[map[string]any](t, w)
	assert.EqualValues(t, 100, out["normalized_score"])

	w = e.do(t, http.MethodPost, path, map[string]any{"answers": answers}, user)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decode[ErrorEnvelope](t, w).Error.Code)
}

func TestErrorEnvelope(t *testing.T) {
	e := newTestEnv(t, entitlement.Config{})
	user := e.userID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name: "bad path id", method: http.MethodGet,
			path: "/api/v1/students/nope/profile", status: http.StatusBadRequest, code: "invalid_input",
		},
		{
			name: "profile not generated", method: http.MethodGet,
			path: "/api/v1/students/" + e.student.ID.String() + "/profile", status: http.StatusNotFound, code: "not_found",
		},
		{
			name: "profile without assessment", method: http.MethodPost,
			path: "/api/v1/students/" + e.student.ID.String() + "/profile", status: http.StatusConflict, code: "data_missing",
		},
		{
			name: "foreign student", method: http.MethodPost,
			path: "/api/v1/students/" + uuid.NewString() + "/roadmap", status: http.StatusNotFound, code: "not_found",
		},
		{
			name: "worksheet without model", method: http.MethodPost, path: "/api/v1/worksheets",
			body:   map[string]any{"subject_id": e.math.ID, "age_group": "8-9", "difficulty": "easy"},
			status: http.StatusServiceUnavailable, code: "config",
		},
		{
			name: "worksheet bad age group", method: http.MethodPost, path: "/api/v1/worksheets",
			body:   map[string]any{"subject_id": e.math.ID, "age_group": "3", "difficulty": "easy"},
			status: http.StatusBadRequest, code: "invalid_input",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, tt.method, tt.path, tt.body, user)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			env := decode[ErrorEnvelope](t, w)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}

func TestQuotaExceededIs429(t *testing.T) {
	e := newTestEnv(t, entitlement.Config{DailyLimit: 1, TrialDailyLimit: 1})
	dbc := dbctx.New(context.Background())
	require.NoError(t, e.s.Usage.Append(dbc, &store.UsageEvent{UserID: e.userID, EventType: "ai.quiz"}))

	w := e.do(t, http.MethodPost, "/api/v1/students/"+e.student.ID.String()+"/quizzes", nil, e.userID.String())
	require.Equal(t, http.StatusTooManyRequests, w.Code, w.Body.String())
	env := decode[ErrorEnvelope](t, w)
	assert.Equal(t, "quota_exceeded", env.Error.Code)
	assert.NotEmpty(t, env.Error.Remediation)
}

func TestQuizRoundTrip(t *testing.T) {
	e := newTestEnv(t, entitlement.Config{})
	user := e.userID.String()

	w := e.do(t, http.MethodPost, "/api/v1/students/"+e.student.ID.String()+"/quizzes",
		map[string]any{"subject_id": e.math.ID}, user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "correct_answer")

	quiz := decode[struct {
		ID        uuid.UUID      `json:"id"`
		Questions []questionView `json:"questions"`
	}](t, w)
	require.NotEmpty(t, quiz.Questions)

	answers := make([]content.Answer, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		answers = append(answers, content.Answer{QuestionID: q.ID, Answer: "no idea"})
	}
	w = e.do(t, http.MethodPost, "/api/v1/quizzes/"+quiz.ID.String()+"/grade", map[string]any{"answers": answers}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[map[string]any](t, w)
	assert.EqualValues(t, 0, out["normalized_score"])
	assert.Equal(t, pipeline.GeneratedByFallback, out["graded_by"])
}

func TestWorksheetGradeAndMemorySummary(t *testing.T) {
	e := newTestEnv(t, entitlement.Config{})
	user := e.userID.String()
	dbc := dbctx.New(context.Background())

	payload, err := content.Wrap(content.KindWorksheet, content.Worksheet{
		Title:       "Number bonds",
		Description: "Bonds to ten.",
		Questions: []content.Question{
			{ID: "q1", Type: content.QuestionFillBlank, Question: "7 + ___ = 10", CorrectAnswer: "3", Points: 1, SkillTested: "number bonds"},
			{ID: "q2", Type: content.QuestionFillBlank, Question: "4 + ___ = 10", CorrectAnswer: "6", Points: 1, SkillTested: "number bonds"},
		},
		AnswerKey: []content.AnswerKeyEntry{
			{QuestionID: "q1", Answer: "3", Explanation: "7 and 3 make 10."},
			{QuestionID: "q2", Answer: "6", Explanation: "4 and 6 make 10."},
		},
		Explanations: []content.Explanation{},
	})
	require.NoError(t, err)
	row := &store.GeneratedContent{
		AccountID:   e.student.AccountID,
		SubjectID:   &e.math.ID,
		Kind:        store.ContentWorksheet,
		Payload:     datatypes.JSON(payload),
		MaxScore:    2,
		GeneratedBy: "mock",
	}
	require.NoError(t, e.s.Content.Create(dbc, row))

	w := e.do(t, http.MethodPost, "/api/v1/worksheets/"+row.ID.String()+"/grade", map[string]any{
		"student_id": e.student.ID,
		"answers":    []content.Answer{{QuestionID: "q1", Answer: "3"}, {QuestionID: "q2", Answer: "5"}},
	}, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[map[string]any](t, w)
	assert.EqualValues(t, 50, out["normalized_score"])
	assert.Equal(t, pipeline.GeneratedByFallback, out["graded_by"])
	assert.Equal(t, e.student.ID.String(), out["student_id"])

	w = e.do(t, http.MethodPost, "/api/v1/worksheets/"+row.ID.String()+"/grade", map[string]any{
		"answers": []content.Answer{{QuestionID: "q1", Answer: "3"}},
	}, user)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/students/"+e.student.ID.String()+"/memory", nil, user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sum := decode[pipeline.MemorySummary](t, w)
	require.Len(t, sum.Subjects, 1)
	assert.Equal(t, "Mathematics", sum.Subjects[0].Subject)
	require.Len(t, sum.Subjects[0].Concepts, 1)
	assert.Equal(t, "number bonds", sum.Subjects[0].Concepts[0].Concept)
	assert.Equal(t, 1, sum.Subjects[0].Concepts[0].EvidenceCount)
}
