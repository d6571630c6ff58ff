// Package dbtest opens migrated throwaway databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/tasktimer/internal/database"
	"github.com/gurkanbulca/tasktimer/internal/logging"
)

// Open returns a migrated sqlite database living in the test's temp dir.
// It is closed when the test finishes.
func Open(t testing.TB) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "tasktimer.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}
