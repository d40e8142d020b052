package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/logger"
)

// DefaultSubjects seeds an empty catalog.
var DefaultSubjects = []Subject{
	{Name: "Mathematics", Description: "Core math skills", DisplayOrder: 1},
	{Name: "Science", Description: "Hands-on science exploration", DisplayOrder: 2},
	{Name: "English", Description: "Reading, writing, and language", DisplayOrder: 3},
	{Name: "Social Studies", Description: "People, places, and history", DisplayOrder: 4},
	{Name: "Art & Creativity", Description: "Creative thinking and expression", DisplayOrder: 5},
	{Name: "Life Skills", Description: "Habits, values, and daily skills", DisplayOrder: 6},
	{Name: "Physical Education", Description: "Movement, fitness, and wellness", DisplayOrder: 7},
	{Name: "Financial Literacy", Description: "Money basics and smart choices", DisplayOrder: 8},
	{Name: "Islamic Studies", Description: "Faith, Quran, and character", DisplayOrder: 9},
	{Name: "Computational Thinking", Description: "Logic, patterns, and coding basics", DisplayOrder: 10},
	{Name: "Environmental Science", Description: "Ecosystems and sustainability", DisplayOrder: 11},
}

type SubjectRepo interface {
	List(dbc dbctx.Context) ([]*Subject, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*Subject, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*Subject, error)
	// EnsureDefaults inserts any missing DefaultSubjects by name.
	EnsureDefaults(dbc dbctx.Context) error
}

type subjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	return &subjectRepo{db: db, log: baseLog.With("repo", "SubjectRepo")}
}

func (r *subjectRepo) List(dbc dbctx.Context) ([]*Subject, error) {
	var out []*Subject
	if err := dbc.DB(r.db).Order("display_order ASC, name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subjectRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*Subject, error) {
	var row Subject
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *subjectRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*Subject, error) {
	var out []*Subject
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subjectRepo) EnsureDefaults(dbc dbctx.Context) error {
	now := time.Now().UTC()
	rows := make([]*Subject, len(DefaultSubjects))
	for i, s := range DefaultSubjects {
		s.ID = uuid.New()
		s.CreatedAt = now
		rows[i] = &s
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error
}

type StudentRepo interface {
	Create(dbc dbctx.Context, student *Student) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*Student, error)
	ListByAccount(dbc dbctx.Context, accountID uuid.UUID) ([]*Student, error)
}

type studentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger) StudentRepo {
	return &studentRepo{db: db, log: baseLog.With("repo", "StudentRepo")}
}

func (r *studentRepo) Create(dbc dbctx.Context, student *Student) error {
	now := time.Now().UTC()
	if student.ID == uuid.Nil {
		student.ID = uuid.New()
	}
	student.CreatedAt, student.UpdatedAt = now, now
	return dbc.DB(r.db).Create(student).Error
}

func (r *studentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*Student, error) {
	var row Student
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *studentRepo) ListByAccount(dbc dbctx.Context, accountID uuid.UUID) ([]*Student, error) {
	var out []*Student
	if err := dbc.DB(r.db).Where("account_id = ?", accountID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
