package delegate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openrecap/recapd/internal/metrics"
	"github.com/openrecap/recapd/internal/pacer"
	"github.com/openrecap/recapd/internal/page"
	"github.com/openrecap/recapd/internal/progress"
	"github.com/openrecap/recapd/internal/store"
	"go.uber.org/zap"
)

// Params carries everything needed to build a Delegate for one page view.
type Params struct {
	TabID   string
	URL     string
	HTML    string
	Options Options

	// Overrides for identifiers normally derived from the URL and markup.
	// Empty means "derive".
	Court  string
	CaseID string
	DocID  string
}

// Delegate orchestrates one page view. Fields fixed at construction never
// change afterwards; a new navigation gets a new Delegate.
type Delegate struct {
	pageID  uuid.UUID
	tabID   string
	url     *url.URL
	kind    pacer.PageKind
	court   string
	caseID  string
	docID   string
	rawHTML string

	doc        *page.Document
	links      []page.Link
	restricted bool
	opts       Options
	ports      Ports

	capture *CapturePipeline
	log     *zap.Logger
}

// Result is the outcome of a full Run, shaped for the API layer.
type Result struct {
	PageID     uuid.UUID      `json:"page_id"`
	Kind       pacer.PageKind `json:"kind"`
	Court      string         `json:"court,omitempty"`
	CaseID     string         `json:"case_id,omitempty"`
	DocID      string         `json:"doc_id,omitempty"`
	Restricted bool           `json:"restricted"`
	Actions    []page.Action  `json:"actions"`
	HTML       string         `json:"html"`
	State      PageState      `json:"history_state"`
	FormID     string         `json:"form_id,omitempty"`
}

// New classifies the page, derives court/case/document identifiers, parses
// the markup, and runs restriction detection. It performs no I/O beyond the
// tab store read used to recover a case id remembered from an earlier page.
func New(ctx context.Context, params Params, ports Ports) (*Delegate, error) {
	if params.URL == "" {
		return nil, errors.New("delegate: empty page url")
	}
	u, err := url.Parse(params.URL)
	if err != nil {
		return nil, fmt.Errorf("delegate: parse page url: %w", err)
	}
	doc, err := page.Parse(params.HTML)
	if err != nil {
		return nil, fmt.Errorf("delegate: parse page markup: %w", err)
	}
	ports.normalize()

	d := &Delegate{
		pageID:  uuid.New(),
		tabID:   params.TabID,
		url:     u,
		rawHTML: params.HTML,
		doc:     doc,
		links:   doc.Links(),
		opts:    params.Options,
		ports:   ports,
	}
	d.log = ports.Logger.With(
		zap.String("page_id", d.pageID.String()),
		zap.String("tab_id", d.tabID),
	)

	pathWithQuery := u.Path
	if u.RawQuery != "" {
		pathWithQuery += "?" + u.RawQuery
	}
	d.kind = pacer.Classify(pathWithQuery)
	// Attachment menus live on single-document URLs; only the markup tells
	// them apart.
	if d.kind == pacer.KindSingleDocument && doc.HasAttachmentControls() {
		d.kind = pacer.KindAttachmentMenu
	}

	d.court = params.Court
	if d.court == "" {
		d.court = pacer.CourtFromHost(u.Host)
	}

	d.caseID = params.CaseID
	if d.caseID == "" {
		d.caseID = pacer.CaseIDFromQuery(pathWithQuery)
	}
	if d.caseID == "" && d.tabID != "" && ports.Tabs != nil {
		if state, err := ports.Tabs.Get(ctx, d.tabID); err == nil {
			d.caseID = state.CaseID
		} else if !errors.Is(err, store.ErrNotFound) {
			d.log.Warn("tab state read failed", zap.Error(err))
		}
	}

	d.docID = params.DocID
	if d.docID == "" {
		d.docID = pacer.DocumentIDFromURL(u.Path)
	}

	d.restricted = doc.DetectRestriction()
	if d.restricted {
		metrics.ObserveRestrictedPage()
		d.log.Info("restricted document detected",
			zap.String("court", d.court),
			zap.String("doc_id", d.docID))
	}
	return d, nil
}

// Kind returns the page classification decided at construction.
func (d *Delegate) Kind() pacer.PageKind { return d.kind }

// Restricted reports whether the page carries a sealed-document marker.
func (d *Delegate) Restricted() bool { return d.restricted }

// Court returns the court identifier derived from the page host.
func (d *Delegate) Court() string { return d.court }

// CaseID returns the case id resolved at construction, if any.
func (d *Delegate) CaseID() string { return d.caseID }

// DocID returns the document id from the page's own URL, if any.
func (d *Delegate) DocID() string { return d.docID }

// Capture returns the capture pipeline armed by HandleSingleDocumentView,
// or nil when the page is not a viewable single document.
func (d *Delegate) Capture() *CapturePipeline { return d.capture }

// Run drives every handler applicable to the page kind and returns the
// rewritten page. Remote and port failures inside handlers degrade to
// no-ops; only a markup serialization failure is surfaced.
func (d *Delegate) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	metrics.ObservePage(string(d.kind))
	d.emit(progress.StagePageStart, "")
	d.emit(progress.StagePageClassified, string(d.kind))

	d.FindAndStoreDocIDs(ctx)

	switch d.kind {
	case pacer.KindDocketQuery:
		d.HandleDocketQuery(ctx)
	case pacer.KindDocketDisplay, pacer.KindHistoryDocketDisplay:
		d.HandleDocketDisplay(ctx)
	case pacer.KindAttachmentMenu:
		d.HandleAttachmentMenu(ctx)
	case pacer.KindSingleDocument:
		d.HandleSingleDocumentCheck(ctx)
		d.HandleSingleDocumentView(ctx)
	}

	if d.kind != pacer.KindUnknown {
		d.AttachAvailableLinks(ctx)
	}

	html, err := d.doc.HTML()
	if err != nil {
		return Result{}, fmt.Errorf("delegate: serialize page: %w", err)
	}

	res := Result{
		PageID:     d.pageID,
		Kind:       d.kind,
		Court:      d.court,
		CaseID:     d.caseID,
		DocID:      d.docID,
		Restricted: d.restricted,
		Actions:    d.doc.Actions(),
		HTML:       html,
	}
	if d.ports.History != nil {
		res.State = d.ports.History.State()
	}
	if d.capture != nil {
		res.FormID = d.capture.FormID().String()
	}
	d.emitDur(progress.StagePageDone, "", time.Since(start))
	return res, nil
}

func (d *Delegate) emit(stage progress.Stage, note string) {
	d.emitDur(stage, note, 0)
}

func (d *Delegate) emitDur(stage progress.Stage, note string, dur time.Duration) {
	d.ports.Events.Emit(progress.Event{
		PageID: d.pageID,
		TabID:  d.tabID,
		TS:     time.Now().UTC(),
		Stage:  stage,
		Kind:   string(d.kind),
		Court:  d.court,
		Dur:    dur,
		Note:   note,
	})
}

// uploadMessage builds the toast text shown after a successful upload.
func (d *Delegate) uploadMessage(what string) string {
	var b strings.Builder
	b.WriteString("This ")
	b.WriteString(what)
	b.WriteString(" was uploaded to the public archive.")
	return b.String()
}

func (d *Delegate) notifyUpload(ctx context.Context, what string) {
	if d.ports.Notifier == nil {
		return
	}
	if _, err := d.ports.Notifier.ShowUpload(ctx, d.uploadMessage(what)); err != nil {
		d.log.Warn("upload notification failed", zap.Error(err))
	}
}
