package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/logger"
)

type AssessmentRepo interface {
	Create(dbc dbctx.Context, a *Assessment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*Assessment, error)
	// MarkCompleted moves a pending assessment to completed. It returns
	// ErrConflict if the assessment is not pending.
	MarkCompleted(dbc dbctx.Context, id uuid.UUID, answers datatypes.JSON) error
	ListCompleted(dbc dbctx.Context, studentID uuid.UUID) ([]*Assessment, error)
}

type assessmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentRepo {
	return &assessmentRepo{db: db, log: baseLog.With("repo", "AssessmentRepo")}
}

func (r *assessmentRepo) Create(dbc dbctx.Context, a *Assessment) error {
	now := time.Now().UTC()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return dbc.DB(r.db).Create(a).Error
}

func (r *assessmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*Assessment, error) {
	var row Assessment
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *assessmentRepo) MarkCompleted(dbc dbctx.Context, id uuid.UUID, answers datatypes.JSON) error {
	now := time.Now().UTC()
	res := dbc.DB(r.db).Model(&Assessment{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]any{
			"status":       StatusCompleted,
			"answers":      answers,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *assessmentRepo) ListCompleted(dbc dbctx.Context, studentID uuid.UUID) ([]*Assessment, error) {
	var out []*Assessment
	err := dbc.DB(r.db).
		Where("student_id = ? AND status = ?", studentID, StatusCompleted).
		Order("completed_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type ResultRepo interface {
	// Upsert writes the result keyed by assessment.
	Upsert(dbc dbctx.Context, res *AssessmentResult) error
	GetByAssessment(dbc dbctx.Context, assessmentID uuid.UUID) (*AssessmentResult, error)
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*AssessmentResult, error)
}

type resultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResultRepo(db *gorm.DB, baseLog *logger.Logger) ResultRepo {
	return &resultRepo{db: db, log: baseLog.With("repo", "ResultRepo")}
}

func (r *resultRepo) Upsert(dbc dbctx.Context, res *AssessmentResult) error {
	now := time.Now().UTC()
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assessment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"raw_score", "max_score", "normalized_score", "strengths", "weaknesses",
				"summary", "graded_by", "fallback_reason", "updated_at",
			}),
		}).
		Create(res).Error
}

func (r *resultRepo) GetByAssessment(dbc dbctx.Context, assessmentID uuid.UUID) (*AssessmentResult, error) {
	var row AssessmentResult
	if err := dbc.DB(r.db).Where("assessment_id = ?", assessmentID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *resultRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*AssessmentResult, error) {
	var out []*AssessmentResult
	if err := dbc.DB(r.db).Where("student_id = ?", studentID).Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
