// Package storetest opens throwaway databases for tests.
package storetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/scholarloop/scholarloop/internal/logger"
	"github.com/scholarloop/scholarloop/internal/store"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

// Logger returns a shared test logger.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// Open returns a migrated in-memory SQLite store private to the test.
func Open(tb testing.TB) *store.Store {
	tb.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := store.Open(store.Config{Driver: "sqlite", DSN: dsn}, Logger(tb))
	if err != nil {
		tb.Fatalf("open test store: %v", err)
	}
	tb.Cleanup(func() { s.Close() })
	return s
}
