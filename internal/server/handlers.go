package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/content"
	"github.com/scholarloop/scholarloop/internal/pipeline"
)

// questionView hides the answer from the student.
type questionView struct {
	ID       string               `json:"id"`
	Type     content.QuestionType `json:"type"`
	Question string               `json:"question"`
	Options  []string             `json:"options"`
	Points   int                  `json:"points"`
	Hint     string               `json:"hint,omitempty"`
}

func questionViews(qs []content.Question) []questionView {
	out := make([]questionView, 0, len(qs))
	for _, q := range qs {
		opts := q.Options
		if opts == nil {
			opts = []string{}
		}
		out = append(out, questionView{
			ID: q.ID, Type: q.Type, Question: q.Question, Options: opts, Points: q.Points, Hint: q.Hint,
		})
	}
	return out
}

type artifactView[T any] struct {
	StudentID   uuid.UUID `json:"student_id"`
	Version     int       `json:"version"`
	DataHash    string    `json:"data_hash"`
	GeneratedBy string    `json:"generated_by"`
	UpdatedAt   time.Time `json:"updated_at"`
	Regenerated bool      `json:"regenerated"`
	Reason      string    `json:"reason"`
	Document    T         `json:"document"`
}

func newArtifactView[T any](a *pipeline.Artifact[T]) artifactView[T] {
	return artifactView[T]{
		StudentID:   a.StudentID,
		Version:     a.Version,
		DataHash:    a.DataHash,
		GeneratedBy: a.GeneratedBy,
		UpdatedAt:   a.UpdatedAt,
		Regenerated: a.Regenerated,
		Reason:      string(a.Reason),
		Document:    a.Doc,
	}
}

func (s *Server) scope(c *gin.Context) (pipeline.Scope, bool) {
	scope, ok := scopeFrom(c)
	if !ok {
		respondError(c, apierr.Forbidden("no acting user"))
		return scope, false
	}
	if v := c.Query("force"); v != "" {
		scope.Force, _ = strconv.ParseBool(v)
	}
	return scope, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		respondError(c, apierr.Invalid("invalid %s %q", name, c.Param(name)))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apierr.Invalid("invalid request body: %v", err))
		return false
	}
	return true
}

// POST /api/v1/students/:id/profile
func (s *Server) generateProfile(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := s.pipeline.GenerateProfile(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, newArtifactView(a))
}

// GET /api/v1/students/:id/profile
func (s *Server) getProfile(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := s.pipeline.GetProfile(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, newArtifactView(a))
}

// POST /api/v1/students/:id/roadmap
func (s *Server) generateRoadmap(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := s.pipeline.GenerateRoadmap(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, newArtifactView(a))
}

// GET /api/v1/students/:id/roadmap
func (s *Server) getRoadmap(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := s.pipeline.GetRoadmap(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, newArtifactView(a))
}

// POST /api/v1/worksheets
func (s *Server) generateWorksheet(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	var in pipeline.WorksheetInput
	if !bindJSON(c, &in) {
		return
	}
	w, err := s.pipeline.GenerateWorksheet(c.Request.Context(), scope, in)
	if err != nil {
		respondError(c, err)
		return
	}
	// Worksheets are printed for a parent, so the answer key is included.
	respondCreated(c, gin.H{
		"id":           w.ID,
		"subject":      w.Subject,
		"max_score":    w.MaxScore,
		"generated_by": w.GeneratedBy,
		"worksheet":    w.Doc,
	})
}

// POST /api/v1/assessments
func (s *Server) startAssessment(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	var in pipeline.StartAssessmentInput
	if !bindJSON(c, &in) {
		return
	}
	a, err := s.pipeline.StartAssessment(c.Request.Context(), scope, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{
		"id":              a.ID,
		"student_id":      a.StudentID,
		"subject_id":      a.SubjectID,
		"subject":         a.Subject,
		"kind":            a.Kind,
		"difficulty":      a.Difficulty,
		"max_score":       a.MaxScore,
		"generated_by":    a.GeneratedBy,
		"fallback_reason": a.FallbackReason,
		"questions":       questionViews(a.Questions),
	})
}

type answersRequest struct {
	Answers []content.Answer `json:"answers"`
}

// POST /api/v1/assessments/:id/submit
func (s *Server) submitAssessment(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req answersRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := s.pipeline.SubmitAssessment(c.Request.Context(), scope, pipeline.SubmitAssessmentInput{
		AssessmentID: id,
		Answers:      req.Answers,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"assessment_id":    out.AssessmentID,
		"raw_score":        out.RawScore,
		"max_score":        out.MaxScore,
		"normalized_score": out.NormalizedScore,
		"graded_by":        out.GradedBy,
		"fallback_reason":  out.FallbackReason,
		"grade":            out.Grade,
	})
}

type quizRequest struct {
	SubjectID *uuid.UUID `json:"subject_id"`
}

// POST /api/v1/students/:id/quizzes
func (s *Server) generateQuiz(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req quizRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	q, err := s.pipeline.GenerateQuiz(c.Request.Context(), scope, pipeline.QuizInput{
		StudentID: id,
		SubjectID: req.SubjectID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{
		"id":              q.ID,
		"subject_id":      q.SubjectID,
		"subject":         q.Subject,
		"title":           q.Doc.Title,
		"max_score":       q.MaxScore,
		"generated_by":    q.GeneratedBy,
		"fallback_reason": q.FallbackReason,
		"questions":       questionViews(q.Doc.Questions),
	})
}

// POST /api/v1/quizzes/:id/grade
func (s *Server) gradeQuiz(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req answersRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := s.pipeline.GradeQuiz(c.Request.Context(), scope, pipeline.GradeQuizInput{
		QuizID:  id,
		Answers: req.Answers,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"quiz_id":          out.QuizID,
		"score":            out.Score,
		"max_score":        out.MaxScore,
		"normalized_score": out.NormalizedScore,
		"graded_by":        out.GradedBy,
		"fallback_reason":  out.FallbackReason,
		"grade":            out.Grade,
	})
}

type worksheetAnswersRequest struct {
	Answers   []content.Answer `json:"answers"`
	StudentID *uuid.UUID       `json:"student_id"`
}

// POST /api/v1/worksheets/:id/grade
func (s *Server) gradeWorksheet(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req worksheetAnswersRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := s.pipeline.GradeWorksheet(c.Request.Context(), scope, pipeline.GradeWorksheetInput{
		WorksheetID: id,
		Answers:     req.Answers,
		StudentID:   req.StudentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"worksheet_id":     out.WorksheetID,
		"student_id":       out.StudentID,
		"score":            out.Score,
		"max_score":        out.MaxScore,
		"normalized_score": out.NormalizedScore,
		"graded_by":        out.GradedBy,
		"fallback_reason":  out.FallbackReason,
		"grade":            out.Grade,
	})
}

// GET /api/v1/students/:id/memory
func (s *Server) getMemorySummary(c *gin.Context) {
	scope, ok := s.scope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sum, err := s.pipeline.GetMemorySummary(c.Request.Context(), scope, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, sum)
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	respondOK(c, gin.H{"status": "ok"})
}
