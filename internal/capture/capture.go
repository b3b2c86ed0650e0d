// Package capture implements the document-view capture pipeline: an explicit
// state machine that receives the intercepted form submission payload over
// the page message channel, renders an in-page viewer for it, and dispatches
// the captured document to the archive.
package capture

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/openrecap/recapd/internal/metrics"
	"go.uber.org/zap"
)

// State names one stage of the capture pipeline. Transitions are linear;
// UploadAcked and UploadSkipped are terminal, and a raw replacement (no
// viewer placeholder in an HTML payload) terminates without an upload.
type State string

// Pipeline states.
const (
	StateIdle                  State = "idle"
	StateScriptInjected        State = "script_injected"
	StateSubmissionIntercepted State = "submission_intercepted"
	StatePDFReceived           State = "pdf_received"
	StateHTMLReceived          State = "html_received"
	StateViewerRendered        State = "viewer_rendered"
	StateUploadDispatched      State = "upload_dispatched"
	StateUploadAcked           State = "upload_acked"
	StateUploadSkipped         State = "upload_skipped"
)

// Message is one payload delivered over the page message channel.
type Message struct {
	FormID      string
	Origin      string
	ContentType string
	Body        []byte
}

// Payload is the captured document handed to the uploader.
type Payload struct {
	ContentType string
	Body        []byte
}

// Validation and state errors returned by OnMessage. Transition never
// happens on a rejected message.
var (
	ErrFormMismatch   = errors.New("capture: message form id does not match")
	ErrOriginMismatch = errors.New("capture: message origin does not match")
	ErrTerminal       = errors.New("capture: pipeline already terminal")
)

// Uploader sends the captured document to the archive. A false result means
// the archive declined the upload; that is an outcome, not an error.
type Uploader interface {
	Upload(ctx context.Context, p Payload) (bool, error)
}

// Notifier shows the upload toast after an acknowledged upload.
type Notifier interface {
	ShowUpload(ctx context.Context, message string) (bool, error)
}

// ObjectURLs mints transient references for captured bytes so the viewer
// iframe has something to point at.
type ObjectURLs interface {
	Create(body []byte, contentType string) (string, error)
}

// History receives the pre-viewer markup so back-navigation restores the
// confirmation page.
type History interface {
	PushMarkup(prior string)
}

// Fetcher retrieves the document behind an embedded viewer URL, converging
// HTML payloads with the PDF path. Optional; without it HTML payloads render
// as-is and skip the upload.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (body []byte, contentType string, err error)
}

// Config wires a Pipeline. FormID and Origin are the validation keys for
// incoming messages; PriorMarkup is the page as it stood when the script was
// injected.
type Config struct {
	FormID      uuid.UUID
	Origin      string
	PriorMarkup string
	Restricted  bool

	Uploader Uploader
	Notifier Notifier
	Objects  ObjectURLs
	History  History
	Fetcher  Fetcher

	// OverrideSubmit disables resubmission of the purchase form while the
	// payload is processed; the returned restore reinstates the original
	// handler.
	OverrideSubmit func() (restore func(), ok bool)
	// OnTransition observes every state change, for progress events.
	OnTransition func(State)

	Logger *zap.Logger
}

// Result reports the outcome of one processed message.
type Result struct {
	State State
	// HTML is the replacement page markup, empty when the page is unchanged.
	HTML string
	// ObjectURL references the captured bytes when a viewer was rendered.
	ObjectURL string
	// Uploaded is true only for an acknowledged archive upload.
	Uploaded bool
}

var viewerPlaceholderRe = regexp.MustCompile(`(?i)<iframe[^>]*src=["']([^"']*)["'][^>]*>`)

// Pipeline is the capture state machine for one page instance. Safe for one
// message at a time; concurrent messages serialize on the internal lock.
type Pipeline struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	state   State
	restore func()
}

// New builds a Pipeline in the script-injected state.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	p := &Pipeline{
		cfg:   cfg,
		log:   cfg.Logger.With(zap.String("form_id", cfg.FormID.String())),
		state: StateIdle,
	}
	p.transition(StateScriptInjected)
	return p
}

// FormID returns the validation key injected into the page script.
func (p *Pipeline) FormID() uuid.UUID { return p.cfg.FormID }

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// OnMessage validates and processes one message from the page. Messages with
// a wrong form id or origin are rejected without a state change. The
// pipeline accepts exactly one payload; later messages get ErrTerminal.
func (p *Pipeline) OnMessage(ctx context.Context, msg Message) (Result, error) {
	if msg.FormID != p.cfg.FormID.String() {
		return Result{}, ErrFormMismatch
	}
	if msg.Origin != p.cfg.Origin {
		return Result{}, ErrOriginMismatch
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateScriptInjected {
		return Result{State: p.state}, ErrTerminal
	}
	p.transition(StateSubmissionIntercepted)
	if p.cfg.OverrideSubmit != nil {
		if restore, ok := p.cfg.OverrideSubmit(); ok {
			p.restore = restore
		}
	}
	defer p.restoreSubmit()

	if isPDF(msg.ContentType) {
		p.transition(StatePDFReceived)
		return p.renderAndUpload(ctx, Payload{ContentType: msg.ContentType, Body: msg.Body})
	}
	p.transition(StateHTMLReceived)
	return p.handleHTML(ctx, msg.Body)
}

// handleHTML converges an HTML payload with the PDF path when the payload
// embeds a viewer placeholder and a Fetcher is available; otherwise the
// payload replaces the page wholesale and the capture ends without upload.
func (p *Pipeline) handleHTML(ctx context.Context, body []byte) (Result, error) {
	markup := string(body)
	m := viewerPlaceholderRe.FindStringSubmatch(markup)
	if m == nil {
		p.transition(StateUploadSkipped)
		return Result{State: p.state, HTML: markup}, nil
	}
	if p.cfg.Fetcher == nil {
		p.transition(StateUploadSkipped)
		return Result{State: p.state, HTML: markup}, nil
	}
	docBody, contentType, err := p.cfg.Fetcher.Fetch(ctx, m[1])
	if err != nil || !isPDF(contentType) {
		if err != nil {
			p.log.Warn("embedded document fetch failed", zap.Error(err))
		}
		p.transition(StateUploadSkipped)
		return Result{State: p.state, HTML: markup}, nil
	}
	p.transition(StatePDFReceived)
	return p.renderAndUpload(ctx, Payload{ContentType: contentType, Body: docBody})
}

// renderAndUpload synthesizes the viewer for a PDF payload, pushes the prior
// markup to history, and dispatches the upload. Viewer rendering and upload
// dispatch are independent: a restricted page still gets its viewer.
func (p *Pipeline) renderAndUpload(ctx context.Context, payload Payload) (Result, error) {
	res := Result{}
	objectURL, err := p.cfg.Objects.Create(payload.Body, payload.ContentType)
	if err != nil {
		p.log.Warn("object url creation failed", zap.Error(err))
	} else {
		res.ObjectURL = objectURL
		res.HTML = viewerMarkup(objectURL)
		if p.cfg.History != nil {
			p.cfg.History.PushMarkup(p.cfg.PriorMarkup)
		}
		p.transition(StateViewerRendered)
	}

	if p.cfg.Restricted {
		p.transition(StateUploadSkipped)
		res.State = p.state
		return res, nil
	}
	p.transition(StateUploadDispatched)
	ok, err := p.cfg.Uploader.Upload(ctx, payload)
	if err != nil {
		p.log.Warn("document upload failed", zap.Error(err))
		p.transition(StateUploadSkipped)
		res.State = p.state
		return res, nil
	}
	if !ok {
		p.transition(StateUploadSkipped)
		res.State = p.state
		return res, nil
	}
	p.transition(StateUploadAcked)
	res.Uploaded = true
	if p.cfg.Notifier != nil {
		if _, err := p.cfg.Notifier.ShowUpload(ctx, "This document was uploaded to the public archive."); err != nil {
			p.log.Warn("upload notification failed", zap.Error(err))
		}
	}
	res.State = p.state
	return res, nil
}

func (p *Pipeline) transition(next State) {
	p.state = next
	metrics.ObserveCaptureStage(string(next))
	if p.cfg.OnTransition != nil {
		p.cfg.OnTransition(next)
	}
}

func (p *Pipeline) restoreSubmit() {
	if p.restore != nil {
		p.restore()
		p.restore = nil
	}
}

func isPDF(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "application/pdf")
}

func viewerMarkup(objectURL string) string {
	return fmt.Sprintf(
		`<html><body style="margin:0"><iframe class="recap-viewer" src=%q style="border:0;width:100%%;height:100%%"></iframe></body></html>`,
		objectURL,
	)
}
