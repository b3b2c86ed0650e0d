package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeDocs_GrowsAndSupersedes(t *testing.T) {
	t.Parallel()

	dst, changed := MergeDocs(nil, map[string]string{"034031424910": "123456"})
	require.True(t, changed)
	require.Equal(t, map[string]string{"034031424910": "123456"}, dst)

	// Duplicate-safe: same input again is a no-op.
	dst, changed = MergeDocs(dst, map[string]string{"034031424910": "123456"})
	require.False(t, changed)

	// New keys merge in; existing keys survive.
	dst, changed = MergeDocs(dst, map[string]string{"034031424911": "123456"})
	require.True(t, changed)
	require.Len(t, dst, 2)

	// A later page may explicitly supersede a value.
	dst, changed = MergeDocs(dst, map[string]string{"034031424910": "654321"})
	require.True(t, changed)
	require.Equal(t, "654321", dst["034031424910"])
}

func TestMergeDocs_SkipsEmptyIdentifiers(t *testing.T) {
	t.Parallel()

	dst, changed := MergeDocs(nil, map[string]string{"": "123", "doc": ""})
	require.False(t, changed)
	require.Empty(t, dst)
}

func TestTabStateClone_Independent(t *testing.T) {
	t.Parallel()

	orig := TabState{
		CaseID:      "531591",
		DocsToCases: map[string]string{"a": "1"},
		PDFBlob:     []byte{1, 2, 3},
	}
	clone := orig.Clone()
	clone.DocsToCases["b"] = "2"
	clone.PDFBlob[0] = 9

	require.NotContains(t, orig.DocsToCases, "b")
	require.Equal(t, byte(1), orig.PDFBlob[0])
}
