package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/kalend/internal/db"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConcurrentTestDB creates a file-backed SQLite database in a temp directory.
// Unlike :memory:, a file-backed DB shares state across all connections in the
// pool, which is required to test real concurrent access with WAL mode.
func newConcurrentTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "concurrent_test.db")
	database, err := db.OpenDB(dbPath)
	require.NoError(t, err, "failed to create concurrent test database")
	t.Cleanup(func() { database.Close() })
	return database
}

// TestConcurrentAccess_RedundantRefreshes simulates several token refreshes
// for the same user racing each other. Every write must succeed and the
// stored row must equal exactly one of the writes.
func TestConcurrentAccess_RedundantRefreshes(t *testing.T) {
	database := newConcurrentTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteCredentialRepo(database)

	require.NoError(t, repo.Upsert(ctx, testutil.NewTestCredential("dana")))

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	written := make(map[string]bool, writers)
	for i := 0; i < writers; i++ {
		tok := fmt.Sprintf("access-%d", i)
		written[tok] = true
		exp := time.Date(2025, 6, 10, 13, i, 0, 0, time.UTC)
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.UpdateTokens(ctx, "dana", domain.ProviderGoogle, tok, "", &exp)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := repo.Get(ctx, "dana", domain.ProviderGoogle)
	require.NoError(t, err)
	assert.True(t, written[got.AccessToken], "stored token %q must be one of the writes", got.AccessToken)
	assert.Equal(t, "refresh-dana", got.RefreshToken)
}

// TestConcurrentAccess_ReadDuringWrite verifies readers see either the old
// or the new token while a writer rotates it, never an error.
func TestConcurrentAccess_ReadDuringWrite(t *testing.T) {
	database := newConcurrentTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteCredentialRepo(database)

	require.NoError(t, repo.Upsert(ctx, testutil.NewTestCredential("erin")))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_ = repo.UpdateTokens(ctx, "erin", domain.ProviderGoogle, fmt.Sprintf("a%d", i), "", nil)
		}
	}()

	readErrs := make(chan error, 40)
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := repo.Get(ctx, "erin", domain.ProviderGoogle); err != nil {
					readErrs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(readErrs)

	for err := range readErrs {
		t.Errorf("read failed: %v", err)
	}
}
