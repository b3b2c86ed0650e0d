// Package memory implements the tab store on an in-process TTL cache. Tab
// state is session-scoped, so entries expire on their own once a tab goes
// quiet.
package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/openrecap/recapd/internal/store"
)

const (
	defaultTTL      = 12 * time.Hour
	cleanupInterval = 30 * time.Minute
)

// Store is a TabStore backed by go-cache.
type Store struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// New builds a Store. A non-positive ttl falls back to the default.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{cache: gocache.New(ttl, cleanupInterval)}
}

// Get returns a copy of the tab's state, or ErrNotFound.
func (s *Store) Get(_ context.Context, tabID string) (store.TabState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(tabID)
}

func (s *Store) get(tabID string) (store.TabState, error) {
	val, found := s.cache.Get(tabID)
	if !found {
		return store.TabState{}, store.ErrNotFound
	}
	return val.(store.TabState).Clone(), nil
}

// SetCaseID records the tab's current case id.
func (s *Store) SetCaseID(_ context.Context, tabID, caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, _ := s.get(tabID)
	state.CaseID = caseID
	s.cache.SetDefault(tabID, state)
	return nil
}

// MergeDocsToCases folds docs into the tab's mapping. The read happens under
// the same lock as the write, so concurrent same-tab merges cannot clobber
// each other.
func (s *Store) MergeDocsToCases(_ context.Context, tabID string, docs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, _ := s.get(tabID)
	merged, changed := store.MergeDocs(state.DocsToCases, docs)
	if !changed && state.DocsToCases != nil {
		return nil
	}
	state.DocsToCases = merged
	s.cache.SetDefault(tabID, state)
	return nil
}

// SetPDFBlob stages captured document bytes for the tab.
func (s *Store) SetPDFBlob(_ context.Context, tabID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, _ := s.get(tabID)
	state.PDFBlob = append([]byte(nil), blob...)
	s.cache.SetDefault(tabID, state)
	return nil
}

// Remove clears the tab's state.
func (s *Store) Remove(_ context.Context, tabID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(tabID)
	return nil
}
