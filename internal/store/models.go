package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Assessment statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Subscription types.
const (
	SubscriptionTrial   = "trial"
	SubscriptionMonthly = "monthly"
	SubscriptionYearly  = "yearly"
	SubscriptionOrphan  = "orphan"
)

// Generated content kinds.
const (
	ContentWorksheet = "worksheet"
	ContentQuiz      = "quiz"
)

type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// User is an acting identity. Parents and admins own their account;
// students log in under their parent's account.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	Role      string    `gorm:"not null" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

type Subscription struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`
	Type        string     `gorm:"not null" json:"type"`
	Status      string     `gorm:"not null" json:"status"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

type Subject struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"not null;uniqueIndex" json:"name"`
	Description  string    `json:"description"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

type Student struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
	Name        string         `gorm:"not null" json:"name"`
	Age         int            `gorm:"not null" json:"age"`
	Religion    string         `json:"religion"`
	Interests   datatypes.JSON `json:"interests"`
	Preferences datatypes.JSON `json:"preferences"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

// Assessment is one diagnostic attempt. Questions holds a content
// envelope; Answers the submitted answer list.
type Assessment struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"student_id"`
	SubjectID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"subject_id"`
	Kind           string         `gorm:"not null" json:"kind"`
	Difficulty     string         `json:"difficulty"`
	Status         string         `gorm:"not null;index" json:"status"`
	Questions      datatypes.JSON `json:"questions"`
	Answers        datatypes.JSON `json:"answers,omitempty"`
	GeneratedBy    string         `json:"generated_by"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

// AssessmentResult exists only for completed assessments.
type AssessmentResult struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AssessmentID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"assessment_id"`
	StudentID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"student_id"`
	SubjectID       uuid.UUID      `gorm:"type:uuid;not null" json:"subject_id"`
	RawScore        float64        `gorm:"not null" json:"raw_score"`
	MaxScore        float64        `gorm:"not null" json:"max_score"`
	NormalizedScore int            `gorm:"not null" json:"normalized_score"`
	Strengths       datatypes.JSON `json:"strengths"`
	Weaknesses      datatypes.JSON `json:"weaknesses"`
	Summary         string         `json:"summary"`
	GradedBy        string         `json:"graded_by"`
	FallbackReason  string         `json:"fallback_reason,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

// LearningMemory is the longitudinal mastery of one concept.
type LearningMemory struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_learning_memory_key" json:"student_id"`
	SubjectID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_learning_memory_key" json:"subject_id"`
	Concept       string         `gorm:"not null;uniqueIndex:idx_learning_memory_key" json:"concept"`
	MasteryLevel  int            `gorm:"not null" json:"mastery_level"`
	EvidenceCount int            `gorm:"not null;default:0" json:"evidence_count"`
	Evidence      datatypes.JSON `json:"evidence"`
	Version       int            `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

type BehavioralMemory struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	AttentionPattern string    `json:"attention_pattern,omitempty"`
	LearningStyle    string    `json:"learning_style,omitempty"`
	LastObserved     time.Time `gorm:"not null" json:"last_observed"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

// LearningProfile is the current profile of a student. Version increments
// on every write.
type LearningProfile struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	Payload       datatypes.JSON `gorm:"not null" json:"payload"`
	LearningSpeed string         `json:"learning_speed"`
	AttentionSpan string         `json:"attention_span"`
	ContentStyle  string         `json:"content_style,omitempty"`
	DataHash      string         `gorm:"not null" json:"data_hash"`
	Version       int            `gorm:"not null" json:"version"`
	GeneratedBy   string         `json:"generated_by"`
	GeneratedAt   time.Time      `gorm:"not null" json:"generated_at"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

// Roadmap is the current curriculum plan of a student.
type Roadmap struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"student_id"`
	Payload     datatypes.JSON `gorm:"not null" json:"payload"`
	DataHash    string         `gorm:"not null" json:"data_hash"`
	Version     int            `gorm:"not null" json:"version"`
	GeneratedBy string         `json:"generated_by"`
	LastUpdated time.Time      `gorm:"not null" json:"last_updated"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

// GeneratedContent stores worksheets and quizzes as generated.
type GeneratedContent struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
	StudentID      *uuid.UUID     `gorm:"type:uuid;index" json:"student_id,omitempty"`
	SubjectID      *uuid.UUID     `gorm:"type:uuid" json:"subject_id,omitempty"`
	Kind           string         `gorm:"not null;index" json:"kind"`
	Payload        datatypes.JSON `gorm:"not null" json:"payload"`
	Answers        datatypes.JSON `json:"answers,omitempty"`
	Grade          datatypes.JSON `json:"grade,omitempty"`
	Score          *float64       `json:"score,omitempty"`
	MaxScore       float64        `json:"max_score"`
	GeneratedBy    string         `json:"generated_by"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

// UsageEvent is append-only.
type UsageEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_usage_user_time" json:"user_id"`
	EventType string         `gorm:"not null;index" json:"event_type"`
	Data      datatypes.JSON `json:"data,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index:idx_usage_user_time" json:"created_at"`
}

// LLMCallEvent records one model attempt.
type LLMCallEvent struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider     string    `gorm:"not null" json:"provider"`
	Model        string    `gorm:"not null;index" json:"model"`
	Purpose      string    `gorm:"not null;index" json:"purpose"`
	Attempt      int       `gorm:"not null" json:"attempt"`
	LatencyMs    int64     `json:"latency_ms"`
	Success      bool      `json:"success"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CachedTokens int       `json:"cached_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	RequestBody  string    `json:"request_body,omitempty"`
	ResponseBody string    `json:"response_body,omitempty"`
	CreatedAt    time.Time `gorm:"not null;index" json:"created_at"`
}

func allModels() []any {
	return []any{
		&Account{},
		&User{},
		&Subscription{},
		&Subject{},
		&Student{},
		&Assessment{},
		&AssessmentResult{},
		&LearningMemory{},
		&BehavioralMemory{},
		&LearningProfile{},
		&Roadmap{},
		&GeneratedContent{},
		&UsageEvent{},
		&LLMCallEvent{},
	}
}
