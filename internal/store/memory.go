package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/logger"
)

type LearningMemoryRepo interface {
	Get(dbc dbctx.Context, studentID, subjectID uuid.UUID, concept string) (*LearningMemory, error)
	// Save writes the row keyed by (student, subject, concept) if its
	// version still equals m.Version, inserting when m.Version is 0. A lost
	// race returns ErrConflict and leaves m unchanged.
	Save(dbc dbctx.Context, m *LearningMemory) error
	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*LearningMemory, error)
}

type learningMemoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningMemoryRepo(db *gorm.DB, baseLog *logger.Logger) LearningMemoryRepo {
	return &learningMemoryRepo{db: db, log: baseLog.With("repo", "LearningMemoryRepo")}
}

func (r *learningMemoryRepo) Get(dbc dbctx.Context, studentID, subjectID uuid.UUID, concept string) (*LearningMemory, error) {
	var row LearningMemory
	err := dbc.DB(r.db).
		Where("student_id = ? AND subject_id = ? AND concept = ?", studentID, subjectID, concept).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *learningMemoryRepo) Save(dbc dbctx.Context, m *LearningMemory) error {
	now := time.Now().UTC()
	if m.Version == 0 {
		row := *m
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		row.Version = 1
		row.CreatedAt = now
		row.UpdatedAt = now
		err := dbc.DB(r.db).Create(&row).Error
		if IsUniqueViolation(err) {
			r.log.Debug("memory insert lost race", "student_id", m.StudentID, "concept", m.Concept)
			return ErrConflict
		}
		if err != nil {
			return err
		}
		*m = row
		return nil
	}

	res := dbc.DB(r.db).Model(&LearningMemory{}).
		Where("id = ? AND version = ?", m.ID, m.Version).
		Updates(map[string]any{
			"mastery_level":  m.MasteryLevel,
			"evidence_count": m.EvidenceCount,
			"evidence":       m.Evidence,
			"version":        m.Version + 1,
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Debug("memory update lost race", "student_id", m.StudentID, "concept", m.Concept, "expected_version", m.Version)
		return ErrConflict
	}
	m.Version++
	m.UpdatedAt = now
	return nil
}

func (r *learningMemoryRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*LearningMemory, error) {
	var out []*LearningMemory
	err := dbc.DB(r.db).
		Where("student_id = ?", studentID).
		Order("subject_id ASC, concept ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type BehavioralMemoryRepo interface {
	Get(dbc dbctx.Context, studentID uuid.UUID) (*BehavioralMemory, error)
	Upsert(dbc dbctx.Context, m *BehavioralMemory) error
}

type behavioralMemoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBehavioralMemoryRepo(db *gorm.DB, baseLog *logger.Logger) BehavioralMemoryRepo {
	return &behavioralMemoryRepo{db: db, log: baseLog.With("repo", "BehavioralMemoryRepo")}
}

func (r *behavioralMemoryRepo) Get(dbc dbctx.Context, studentID uuid.UUID) (*BehavioralMemory, error) {
	var row BehavioralMemory
	if err := dbc.DB(r.db).Where("student_id = ?", studentID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *behavioralMemoryRepo) Upsert(dbc dbctx.Context, m *BehavioralMemory) error {
	now := time.Now().UTC()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.LastObserved.IsZero() {
		m.LastObserved = now
	}
	m.UpdatedAt = now
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"attention_pattern", "learning_style", "last_observed", "updated_at",
			}),
		}).
		Create(m).Error
}
