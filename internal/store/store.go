// Package store declares the per-tab persistence contract the delegate
// consumes. Implementations live in subpackages; this package must not
// import drivers or concrete clients.
package store

import (
	"context"
	"errors"
)

// ErrNotFound signals that no state exists for the requested tab.
var ErrNotFound = errors.New("tab state not found")

// TabState is the persisted state for one browser tab. DocsToCases only ever
// grows within a tab session; merges never drop existing keys.
type TabState struct {
	CaseID      string
	DocsToCases map[string]string
	PDFBlob     []byte
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (s TabState) Clone() TabState {
	out := TabState{CaseID: s.CaseID}
	if s.DocsToCases != nil {
		out.DocsToCases = make(map[string]string, len(s.DocsToCases))
		for k, v := range s.DocsToCases {
			out.DocsToCases[k] = v
		}
	}
	if s.PDFBlob != nil {
		out.PDFBlob = append([]byte(nil), s.PDFBlob...)
	}
	return out
}

// TabStore persists per-tab state across pages of one browsing session.
//
// MergeDocsToCases must be read-modify-write atomic relative to other
// same-tab callers: implementations read the latest persisted mapping under
// lock before writing, never overwrite with a stale snapshot.
type TabStore interface {
	Get(ctx context.Context, tabID string) (TabState, error)
	SetCaseID(ctx context.Context, tabID, caseID string) error
	MergeDocsToCases(ctx context.Context, tabID string, docs map[string]string) error
	SetPDFBlob(ctx context.Context, tabID string, blob []byte) error
	Remove(ctx context.Context, tabID string) error
}

// MergeDocs folds src into dst and reports whether anything changed. A later
// page may supersede an existing entry; absent keys are never dropped.
func MergeDocs(dst, src map[string]string) (map[string]string, bool) {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	changed := false
	for docID, caseID := range src {
		if docID == "" || caseID == "" {
			continue
		}
		if prev, ok := dst[docID]; !ok || prev != caseID {
			dst[docID] = caseID
			changed = true
		}
	}
	return dst, changed
}
