// Package testutil provides utilities for testing
package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/johnrirwin/socialfeed/internal/database"
)

// TestDB wraps a migrated test database connection
type TestDB struct {
	*database.DB
	t *testing.T
}

func testConfig() database.Config {
	cfg := database.DefaultConfig()
	cfg.Host = getEnvOrDefault("DB_HOST", cfg.Host)
	cfg.User = getEnvOrDefault("DB_USER", "test")
	cfg.Password = getEnvOrDefault("DB_PASSWORD", "test")
	cfg.Database = getEnvOrDefault("DB_NAME", "socialfeed_test")
	cfg.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.SSLMode)
	if v := os.Getenv("DB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// NewTestDB connects to the test database and applies migrations.
// It skips the test if no database is reachable.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := database.New(testConfig())
	if err != nil {
		t.Skipf("Skipping test: unable to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		t.Skipf("Skipping test: migrations failed: %v", err)
	}

	tdb := &TestDB{DB: db, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close closes the test database connection
func (tdb *TestDB) Close() {
	if err := tdb.DB.Close(); err != nil {
		tdb.t.Errorf("Failed to close test database: %v", err)
	}
}

// Cleanup removes all test data from tables
func (tdb *TestDB) Cleanup(ctx context.Context) {
	tdb.t.Helper()

	for _, table := range []string{"client_sessions"} {
		if _, err := tdb.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			tdb.t.Logf("Warning: failed to cleanup table %s: %v", table, err)
		}
	}
}

// MustExec executes a query and fails the test on error
func (tdb *TestDB) MustExec(ctx context.Context, query string, args ...interface{}) {
	tdb.t.Helper()
	if _, err := tdb.ExecContext(ctx, query, args...); err != nil {
		tdb.t.Fatalf("Failed to execute query: %v\nQuery: %s", err, query)
	}
}
