package history

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/passgap/internal/config"
	"github.com/JonMunkholm/passgap/internal/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSQLite opens a named shared in-memory database. The name comes from
// t.Name() so tests stay isolated.
func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", url.PathEscape(t.Name()))
	store, err := openSQLite(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func makeRun(created time.Time, missing int) core.ComparisonRun {
	return core.ComparisonRun{
		ID:        uuid.NewString(),
		SessionID: "session-1",
		Strict:    missing%2 == 0,
		SourceA:   10,
		SourceB:   8,
		Missing:   missing,
		IPAddress: "198.51.100.7",
		CreatedAt: created,
	}
}

func TestSQLiteStore_RecordAndRecent(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)

	older := makeRun(base, 3)
	newer := makeRun(base.Add(time.Minute), 4)
	require.NoError(t, store.Record(ctx, older))
	require.NoError(t, store.Record(ctx, newer))

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, newer, runs[0])
	assert.Equal(t, older, runs[1])
}

func TestSQLiteStore_RecentLimit(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, makeRun(base.Add(time.Duration(i)*time.Hour), i)))
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 4, runs[0].Missing)
	assert.Equal(t, 3, runs[1].Missing)

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSQLiteStore_RecentEmpty(t *testing.T) {
	store := setupSQLite(t)

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestSQLiteStore_Prune(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, makeRun(now.AddDate(0, 0, -100), 1)))
	require.NoError(t, store.Record(ctx, makeRun(now.AddDate(0, 0, -91), 2)))
	keep := makeRun(now.AddDate(0, 0, -10), 3)
	require.NoError(t, store.Record(ctx, keep))

	deleted, err := store.Prune(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, keep.ID, runs[0].ID)
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()

	run := makeRun(time.Now().UTC().Truncate(time.Millisecond), 1)
	require.NoError(t, store.Record(ctx, run))
	assert.Error(t, store.Record(ctx, run))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		store, err := Open(ctx, config.HistoryConfig{})
		require.NoError(t, err)
		assert.Nil(t, store)
	})

	t.Run("sqlite file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.db")
		store, err := Open(ctx, config.HistoryConfig{SQLitePath: path})
		require.NoError(t, err)
		require.NotNil(t, store)
		defer store.Close()

		assert.Equal(t, config.DriverSQLite, store.Driver())
		require.NoError(t, store.Record(ctx, makeRun(time.Now().UTC().Truncate(time.Millisecond), 1)))

		// Reopening applies no new migrations and sees the row.
		require.NoError(t, store.Close())
		again, err := Open(ctx, config.HistoryConfig{SQLitePath: path})
		require.NoError(t, err)
		defer again.Close()

		runs, err := again.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultRecentLimit, clampLimit(0))
	assert.Equal(t, DefaultRecentLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, MaxRecentLimit, clampLimit(MaxRecentLimit+1))
}

func TestService_RecordsToSQLite(t *testing.T) {
	store := setupSQLite(t)
	svc := core.NewService(core.ServiceConfig{}, store)
	ctx := core.ContextWithIPAddress(context.Background(), "192.0.2.1")
	id := svc.NewSession()

	_, err := svc.LoadSlot(ctx, id, core.SlotA, "a.csv", strings.NewReader("title,url,username\nA,a.com,u\nB,b.com,u\n"))
	require.NoError(t, err)
	_, err = svc.LoadSlot(ctx, id, core.SlotB, "b.csv", strings.NewReader("title,url,username\nA,a.com,u\n"))
	require.NoError(t, err)

	cmp, err := svc.Compare(ctx, id, false)
	require.NoError(t, err)

	runs, err := svc.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, cmp.RunID, runs[0].ID)
	assert.Equal(t, 1, runs[0].Missing)
	assert.Equal(t, "192.0.2.1", runs[0].IPAddress)
}
