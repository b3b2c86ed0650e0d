// Package delegate implements the per-page synchronization orchestrator. A
// Delegate owns one PageContext for the lifetime of one page view, drives
// idempotent synchronization with the remote archive, and rewrites the page
// to present the outcome.
//
// Ambient browser state (history, cookies, the message channel) is modeled
// as injected capability ports with page-load lifetime; there are no global
// singletons here.
package delegate

import (
	"context"

	"github.com/openrecap/recapd/internal/archive"
	"github.com/openrecap/recapd/internal/capture"
	"github.com/openrecap/recapd/internal/progress"
	"github.com/openrecap/recapd/internal/store"
	"go.uber.org/zap"
)

// Archive is the remote public-archive capability. Remote failures must not
// escape handlers: callers treat an error like a negative/empty result.
type Archive interface {
	DocketAvailability(ctx context.Context, court, caseID string) (archive.DocketAvailability, error)
	DocumentAvailability(ctx context.Context, court, caseID string, docIDs []string) (archive.DocumentAvailability, error)
	UploadDocket(ctx context.Context, court, caseID, markup string) (bool, error)
	UploadAttachmentMenu(ctx context.Context, court, caseID, markup string) (bool, error)
	UploadDocument(ctx context.Context, court, caseID string, doc archive.DocumentUpload) (bool, error)
	DownloadURL(absolutePath string) string
	StorageURL(filepathLocal string) string
}

// Notifier shows the upload toast and reports whether the user confirmed it.
type Notifier interface {
	ShowUpload(ctx context.Context, message string) (bool, error)
}

// CookieJar reports whether the user holds an active PACER session.
type CookieJar interface {
	HasActiveSession() bool
}

// CaseLookup resolves a case id for a document id when neither the page nor
// the link index knows it, possibly via a remote round trip.
type CaseLookup interface {
	CaseIDForDoc(ctx context.Context, tabID, docID string) (string, error)
}

// PageState is the session-navigation state for one rendered page. Uploaded
// is the per-page-instance dedup marker; it resets on full navigation.
type PageState struct {
	Uploaded bool   `json:"uploaded"`
	Content  string `json:"content,omitempty"`
}

// History is the navigation-history port scoped to one page load.
type History interface {
	// State returns the current page state. Handlers must call this
	// immediately before an upload, not only at entry; an await may have
	// let another handler set the marker in between.
	State() PageState
	Replace(PageState)
	Push(PageState)
}

// Options are the user-facing toggles consulted by the handlers.
type Options struct {
	RecapEnabled         bool
	IAStyleFilenames     bool
	LawyerStyleFilenames bool
	ExternalPDF          bool
}

// Ports bundles every capability a Delegate consumes. Fetcher is optional;
// without it the capture pipeline cannot converge HTML payloads to the
// document behind them.
type Ports struct {
	Archive    Archive
	Tabs       store.TabStore
	Notifier   Notifier
	History    History
	Cookies    CookieJar
	CaseLookup CaseLookup
	Fetcher    capture.Fetcher
	Events     progress.Emitter
	Logger     *zap.Logger
}

func (p *Ports) normalize() {
	if p.Events == nil {
		p.Events = progress.NopEmitter{}
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
}

// MemoryHistory is an in-process History for tests and for API callers that
// round-trip the state in requests.
type MemoryHistory struct {
	current PageState
	stack   []PageState
}

// NewMemoryHistory seeds a MemoryHistory with the page's incoming state.
func NewMemoryHistory(initial PageState) *MemoryHistory {
	return &MemoryHistory{current: initial}
}

// State implements History.
func (h *MemoryHistory) State() PageState { return h.current }

// Replace implements History.
func (h *MemoryHistory) Replace(s PageState) { h.current = s }

// Push implements History.
func (h *MemoryHistory) Push(s PageState) {
	h.stack = append(h.stack, h.current)
	h.current = s
}

// Pop restores the previously pushed state, mirroring a back-navigation.
// The second return is false when the stack is empty.
func (h *MemoryHistory) Pop() (PageState, bool) {
	if len(h.stack) == 0 {
		return PageState{}, false
	}
	prev := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]
	h.current = prev
	return prev, true
}

// StaticCookies is a CookieJar with a fixed answer, fed from the API request.
type StaticCookies bool

// HasActiveSession implements CookieJar.
func (c StaticCookies) HasActiveSession() bool { return bool(c) }
