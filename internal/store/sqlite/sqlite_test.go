package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openrecap/recapd/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "recapd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Get(ctx, "tab-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetCaseID(ctx, "tab-1", "531591"))
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", map[string]string{
		"034031424910": "123456",
		"034031424911": "123456",
	}))
	require.NoError(t, s.SetPDFBlob(ctx, "tab-1", []byte("%PDF-1.")))

	state, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	require.Equal(t, "531591", state.CaseID)
	require.Equal(t, []byte("%PDF-1."), state.PDFBlob)
	require.Equal(t, map[string]string{
		"034031424910": "123456",
		"034031424911": "123456",
	}, state.DocsToCases)
}

func TestStore_MergeTwiceSameMapping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)
	docs := map[string]string{"034031424910": "123456"}

	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", docs))
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", docs))

	state, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	require.Equal(t, docs, state.DocsToCases)
}

func TestStore_MergeNeverDropsKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", map[string]string{"a": "1"}))
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", map[string]string{"b": "2"}))
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", map[string]string{"a": "9"}))

	state, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "9", "b": "2"}, state.DocsToCases)
}

func TestStore_TabsAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", map[string]string{"a": "1"}))
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-2", map[string]string{"b": "2"}))
	require.NoError(t, s.Remove(ctx, "tab-1"))

	_, err := s.Get(ctx, "tab-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	state, err := s.Get(ctx, "tab-2")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"b": "2"}, state.DocsToCases)
}
