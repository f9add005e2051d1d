package database

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestDatabaseURLEnv names the variable holding a disposable test database DSN.
const TestDatabaseURLEnv = "PARLAY_EDGE_TEST_DATABASE_URL"

// SetupTestDB connects to the database named by PARLAY_EDGE_TEST_DATABASE_URL and
// applies the schema. The test is skipped when the variable is unset.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv(TestDatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping database integration test", TestDatabaseURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Connect(ctx, dsn, 4, 0)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		if _, err := db.pool.Exec(cleanupCtx, "TRUNCATE recommendation_runs CASCADE"); err != nil {
			t.Logf("warning: failed to truncate test tables: %v", err)
		}
		db.Close()
	})

	return db
}
