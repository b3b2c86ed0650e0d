package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openrecap/recapd/internal/store"
)

func TestStore_GetMissingTab(t *testing.T) {
	t.Parallel()

	s := New(time.Minute)
	_, err := s.Get(context.Background(), "tab-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_MergeIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(time.Minute)
	docs := map[string]string{"034031424910": "123456", "034031424911": "123456"}

	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", docs))
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", docs))

	state, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	require.Equal(t, docs, state.DocsToCases)
}

func TestStore_MergePreservesExistingKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(time.Minute)
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", map[string]string{"a": "1"}))
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", map[string]string{"b": "2"}))

	state, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, state.DocsToCases)
}

func TestStore_CaseIDAndBlobSurviveMerges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(time.Minute)
	require.NoError(t, s.SetCaseID(ctx, "tab-1", "531591"))
	require.NoError(t, s.SetPDFBlob(ctx, "tab-1", []byte("%PDF-1.")))
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", map[string]string{"a": "1"}))

	state, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	require.Equal(t, "531591", state.CaseID)
	require.Equal(t, []byte("%PDF-1."), state.PDFBlob)
	require.Equal(t, map[string]string{"a": "1"}, state.DocsToCases)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(time.Minute)
	require.NoError(t, s.MergeDocsToCases(ctx, "tab-1", map[string]string{"a": "1"}))

	state, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	state.DocsToCases["b"] = "2"

	fresh, err := s.Get(ctx, "tab-1")
	require.NoError(t, err)
	require.NotContains(t, fresh.DocsToCases, "b")
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(time.Minute)
	require.NoError(t, s.SetCaseID(ctx, "tab-1", "531591"))
	require.NoError(t, s.Remove(ctx, "tab-1"))

	_, err := s.Get(ctx, "tab-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}
