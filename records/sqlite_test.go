package records

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveRecord_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecord(ctx, "dQw4w9WgXcQ", "First", "one"))
	first, err := s.GetRecord(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, "one", first.Summary)
	assert.False(t, first.ProcessedAt.IsZero())

	require.NoError(t, s.SaveRecord(ctx, "dQw4w9WgXcQ", "Second", "two"))
	second, err := s.GetRecord(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Second", second.Title)
	assert.Equal(t, "two", second.Summary)
	assert.Equal(t, first.ProcessedAt, second.ProcessedAt)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM source_records`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetRecord_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRecord(context.Background(), "missing0000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveInteraction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveInteraction(ctx, "42", "dQw4w9WgXcQ", "what?", "this.", ""))
	require.NoError(t, s.SaveInteraction(ctx, "43", "dQw4w9WgXcQ", "why?", "because.", "hindi"))
	require.NoError(t, s.SaveInteraction(ctx, "42", "other000000", "who?", "me.", "english"))

	got, err := s.Interactions(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "42", got[0].CallerID)
	assert.Equal(t, DefaultLanguage, got[0].Language)
	assert.Equal(t, "hindi", got[1].Language)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Len(t, got[0].ID, 26)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRecord(ctx, "dQw4w9WgXcQ", "T", "S"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	r, err := s.GetRecord(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "T", r.Title)
}
