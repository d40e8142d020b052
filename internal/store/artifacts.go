package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/logger"
)

type ProfileRepo interface {
	GetByStudent(dbc dbctx.Context, studentID uuid.UUID) (*LearningProfile, error)
	// Save writes p if the stored version still equals expectedVersion
	// (0 means no row yet). On success p.Version is the new version; a
	// lost race returns ErrConflict.
	Save(dbc dbctx.Context, p *LearningProfile, expectedVersion int) error
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) GetByStudent(dbc dbctx.Context, studentID uuid.UUID) (*LearningProfile, error) {
	var row LearningProfile
	if err := dbc.DB(r.db).Where("student_id = ?", studentID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *profileRepo) Save(dbc dbctx.Context, p *LearningProfile, expectedVersion int) error {
	now := time.Now().UTC()
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = now
	}
	if expectedVersion == 0 {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.Version = 1
		p.CreatedAt = now
		err := dbc.DB(r.db).Create(p).Error
		if IsUniqueViolation(err) {
			r.log.Debug("profile insert lost race", "student_id", p.StudentID)
			return ErrConflict
		}
		return err
	}

	res := dbc.DB(r.db).Model(&LearningProfile{}).
		Where("student_id = ? AND version = ?", p.StudentID, expectedVersion).
		Updates(map[string]any{
			"payload":        p.Payload,
			"learning_speed": p.LearningSpeed,
			"attention_span": p.AttentionSpan,
			"content_style":  p.ContentStyle,
			"data_hash":      p.DataHash,
			"generated_by":   p.GeneratedBy,
			"generated_at":   p.GeneratedAt,
			"version":        expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Debug("profile update lost race", "student_id", p.StudentID, "expected_version", expectedVersion)
		return ErrConflict
	}
	p.Version = expectedVersion + 1
	return nil
}

type RoadmapRepo interface {
	GetByStudent(dbc dbctx.Context, studentID uuid.UUID) (*Roadmap, error)
	// Save follows the same optimistic protocol as ProfileRepo.Save.
	Save(dbc dbctx.Context, rm *Roadmap, expectedVersion int) error
}

type roadmapRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoadmapRepo(db *gorm.DB, baseLog *logger.Logger) RoadmapRepo {
	return &roadmapRepo{db: db, log: baseLog.With("repo", "RoadmapRepo")}
}

func (r *roadmapRepo) GetByStudent(dbc dbctx.Context, studentID uuid.UUID) (*Roadmap, error) {
	var row Roadmap
	if err := dbc.DB(r.db).Where("student_id = ?", studentID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *roadmapRepo) Save(dbc dbctx.Context, rm *Roadmap, expectedVersion int) error {
	now := time.Now().UTC()
	rm.LastUpdated = now
	if expectedVersion == 0 {
		if rm.ID == uuid.Nil {
			rm.ID = uuid.New()
		}
		rm.Version = 1
		rm.CreatedAt = now
		err := dbc.DB(r.db).Create(rm).Error
		if IsUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	res := dbc.DB(r.db).Model(&Roadmap{}).
		Where("student_id = ? AND version = ?", rm.StudentID, expectedVersion).
		Updates(map[string]any{
			"payload":      rm.Payload,
			"data_hash":    rm.DataHash,
			"generated_by": rm.GeneratedBy,
			"last_updated": now,
			"version":      expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	rm.Version = expectedVersion + 1
	return nil
}

type ContentRepo interface {
	Create(dbc dbctx.Context, c *GeneratedContent) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*GeneratedContent, error)
	// ListRecent returns a student's newest content of one kind.
	ListRecent(dbc dbctx.Context, studentID uuid.UUID, kind string, limit int) ([]*GeneratedContent, error)
	// Complete records a graded attempt once. It returns ErrConflict if
	// the content was already completed.
	Complete(dbc dbctx.Context, id uuid.UUID, answers, grade datatypes.JSON, score float64) error
}

type contentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return &contentRepo{db: db, log: baseLog.With("repo", "ContentRepo")}
}

func (r *contentRepo) Create(dbc dbctx.Context, c *GeneratedContent) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now().UTC()
	return dbc.DB(r.db).Create(c).Error
}

func (r *contentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*GeneratedContent, error) {
	var row GeneratedContent
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *contentRepo) ListRecent(dbc dbctx.Context, studentID uuid.UUID, kind string, limit int) ([]*GeneratedContent, error) {
	var out []*GeneratedContent
	q := dbc.DB(r.db).Where("student_id = ? AND kind = ?", studentID, kind).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentRepo) Complete(dbc dbctx.Context, id uuid.UUID, answers, grade datatypes.JSON, score float64) error {
	res := dbc.DB(r.db).Model(&GeneratedContent{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]any{
			"answers":      answers,
			"grade":        grade,
			"score":        score,
			"completed_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
