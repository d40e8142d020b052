// Package store persists pipeline state with gorm on SQLite or Postgres.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/scholarloop/scholarloop/internal/logger"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Config selects the database.
type Config struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string `yaml:"driver"`
	// DSN is a file path or SQLite URI for sqlite, a connection string for
	// postgres.
	DSN string `yaml:"dsn"`
	// Debug logs every SQL statement.
	Debug bool `yaml:"debug"`
}

// ErrConflict is returned when an optimistic write loses a race or a state
// transition was already applied.
var ErrConflict = errors.New("store: write conflict")

// Store holds the gorm handle and provides access to repositories.
type Store struct {
	db    *gorm.DB
	sqlDB *sql.DB
	log   *logger.Logger

	Accounts         AccountRepo
	Subscriptions    SubscriptionRepo
	Subjects         SubjectRepo
	Students         StudentRepo
	Assessments      AssessmentRepo
	Results          ResultRepo
	LearningMemory   LearningMemoryRepo
	BehavioralMemory BehavioralMemoryRepo
	Profiles         ProfileRepo
	Roadmaps         RoadmapRepo
	Content          ContentRepo
	Usage            UsageRepo
	LLMCalls         LLMCallRepo
}

// Open connects to the configured database and runs auto-migration.
func Open(cfg Config, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	}
	if cfg.Debug {
		gcfg.Logger = gormLogger.Default.LogMode(gormLogger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		db, err = openSQLite(cfg.DSN, gcfg)
	case "postgres", "postgresql":
		db, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}

	s := New(db, log)
	s.sqlDB = sqlDB
	if err := s.AutoMigrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New wires repositories over an existing gorm handle.
func New(db *gorm.DB, log *logger.Logger) *Store {
	s := &Store{db: db, log: log.With("component", "store")}
	s.Accounts = NewAccountRepo(db, log)
	s.Subscriptions = NewSubscriptionRepo(db, log)
	s.Subjects = NewSubjectRepo(db, log)
	s.Students = NewStudentRepo(db, log)
	s.Assessments = NewAssessmentRepo(db, log)
	s.Results = NewResultRepo(db, log)
	s.LearningMemory = NewLearningMemoryRepo(db, log)
	s.BehavioralMemory = NewBehavioralMemoryRepo(db, log)
	s.Profiles = NewProfileRepo(db, log)
	s.Roadmaps = NewRoadmapRepo(db, log)
	s.Content = NewContentRepo(db, log)
	s.Usage = NewUsageRepo(db, log)
	s.LLMCalls = NewLLMCallRepo(db, log)
	return s
}

// AutoMigrate creates or updates every table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// DB returns the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Transaction runs fn inside a database transaction.
func (s *Store) Transaction(fn func(tx *gorm.DB) error) error {
	return s.db.Transaction(fn)
}

func openSQLite(dsn string, gcfg *gorm.Config) (*gorm.DB, error) {
	if dsn == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return nil, err
		}
		dsn = p
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection also keeps in-memory
	// databases alive and pragmas applied.
	sqlDB.SetMaxOpenConns(1)
	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return gorm.Open(&sqlite.Dialector{DriverName: "sqlite", Conn: sqlDB}, gcfg)
}

// applyPragmas configures SQLite for a small single-node deployment.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. SCHOLARLOOP_DB environment variable
// 2. $XDG_DATA_HOME/scholarloop/scholarloop.db
// 3. ~/.local/share/scholarloop/scholarloop.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("SCHOLARLOOP_DB"); p != "" {
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "scholarloop", "scholarloop.db")
	return p, ensureDir(p)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// IsUniqueViolation reports whether err is a unique constraint failure on
// either backend.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// RetryConflict runs fn and retries it once if it fails with ErrConflict
// or a unique violation.
func RetryConflict(fn func() error) error {
	err := fn()
	if errors.Is(err, ErrConflict) || IsUniqueViolation(err) {
		err = fn()
	}
	return err
}
