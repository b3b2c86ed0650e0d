package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/require"
)

func pdfBytes(t *testing.T) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Arial", "", 12)
	doc.Cell(40, 10, "Exhibit A")
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

type fakeUploader struct {
	ok    bool
	err   error
	calls int
	got   Payload
}

func (f *fakeUploader) Upload(_ context.Context, p Payload) (bool, error) {
	f.calls++
	f.got = p
	return f.ok, f.err
}

type fakeNotifier struct {
	calls    int
	messages []string
}

func (f *fakeNotifier) ShowUpload(_ context.Context, msg string) (bool, error) {
	f.calls++
	f.messages = append(f.messages, msg)
	return true, nil
}

type fakeObjects struct {
	url string
	err error
}

func (f *fakeObjects) Create(_ []byte, _ string) (string, error) {
	return f.url, f.err
}

type fakeHistory struct {
	pushed []string
}

func (f *fakeHistory) PushMarkup(prior string) {
	f.pushed = append(f.pushed, prior)
}

type fakeFetcher struct {
	body        []byte
	contentType string
	err         error
	gotURL      string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	f.gotURL = url
	return f.body, f.contentType, f.err
}

type harness struct {
	pipeline *Pipeline
	uploader *fakeUploader
	notifier *fakeNotifier
	history  *fakeHistory
	formID   uuid.UUID
	overrode int
	restored int
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		uploader: &fakeUploader{ok: true},
		notifier: &fakeNotifier{},
		history:  &fakeHistory{},
		formID:   uuid.New(),
	}
	cfg := Config{
		FormID:      h.formID,
		Origin:      "https://ecf.canb.uscourts.gov",
		PriorMarkup: "<html><body>confirmation</body></html>",
		Uploader:    h.uploader,
		Notifier:    h.notifier,
		Objects:     &fakeObjects{url: "/v1/tabs/7/document"},
		History:     h.history,
		OverrideSubmit: func() (func(), bool) {
			h.overrode++
			return func() { h.restored++ }, true
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.pipeline = New(cfg)
	return h
}

func (h *harness) message(contentType string, body []byte) Message {
	return Message{
		FormID:      h.formID.String(),
		Origin:      "https://ecf.canb.uscourts.gov",
		ContentType: contentType,
		Body:        body,
	}
}

func TestNew_StartsScriptInjected(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	require.Equal(t, StateScriptInjected, h.pipeline.State())
}

func TestOnMessage_RejectsWrongFormID(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	msg := h.message("application/pdf", pdfBytes(t))
	msg.FormID = uuid.NewString()

	_, err := h.pipeline.OnMessage(context.Background(), msg)
	require.ErrorIs(t, err, ErrFormMismatch)
	require.Equal(t, StateScriptInjected, h.pipeline.State())
	require.Zero(t, h.uploader.calls)
}

func TestOnMessage_RejectsWrongOrigin(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	msg := h.message("application/pdf", pdfBytes(t))
	msg.Origin = "https://evil.example.com"

	_, err := h.pipeline.OnMessage(context.Background(), msg)
	require.ErrorIs(t, err, ErrOriginMismatch)
	require.Equal(t, StateScriptInjected, h.pipeline.State())
	require.Zero(t, h.uploader.calls)
}

func TestPDFPayload_RendersViewerAndUploads(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	body := pdfBytes(t)

	res, err := h.pipeline.OnMessage(context.Background(), h.message("application/pdf", body))
	require.NoError(t, err)
	require.Equal(t, StateUploadAcked, res.State)
	require.True(t, res.Uploaded)
	require.Contains(t, res.HTML, `iframe`)
	require.Contains(t, res.HTML, "/v1/tabs/7/document")
	require.Equal(t, "/v1/tabs/7/document", res.ObjectURL)
	require.Equal(t, []string{"<html><body>confirmation</body></html>"}, h.history.pushed)
	require.Equal(t, 1, h.uploader.calls)
	require.Equal(t, body, h.uploader.got.Body)
	require.Equal(t, 1, h.notifier.calls)
	require.Equal(t, 1, h.overrode)
	require.Equal(t, 1, h.restored)
}

func TestPDFPayload_RestrictedRendersViewerWithoutUpload(t *testing.T) {
	t.Parallel()
	h := newHarness(t, func(cfg *Config) { cfg.Restricted = true })

	res, err := h.pipeline.OnMessage(context.Background(), h.message("application/pdf", pdfBytes(t)))
	require.NoError(t, err)
	require.Equal(t, StateUploadSkipped, res.State)
	require.False(t, res.Uploaded)
	require.Contains(t, res.HTML, "iframe")
	require.Zero(t, h.uploader.calls)
	require.Zero(t, h.notifier.calls)
}

func TestPDFPayload_RejectedUploadSkipsNotification(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.uploader.ok = false

	res, err := h.pipeline.OnMessage(context.Background(), h.message("application/pdf", pdfBytes(t)))
	require.NoError(t, err)
	require.Equal(t, StateUploadSkipped, res.State)
	require.False(t, res.Uploaded)
	require.Equal(t, 1, h.uploader.calls)
	require.Zero(t, h.notifier.calls)
}

func TestPDFPayload_UploadErrorIsNotFatal(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.uploader.ok = false
	h.uploader.err = errors.New("boom")

	res, err := h.pipeline.OnMessage(context.Background(), h.message("application/pdf", pdfBytes(t)))
	require.NoError(t, err)
	require.Equal(t, StateUploadSkipped, res.State)
	require.Contains(t, res.HTML, "iframe")
}

func TestHTMLPayload_NoPlaceholderReplacesPageRaw(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	markup := "<html><body>Receipt: $0.50</body></html>"

	res, err := h.pipeline.OnMessage(context.Background(), h.message("text/html", []byte(markup)))
	require.NoError(t, err)
	require.Equal(t, StateUploadSkipped, res.State)
	require.Equal(t, markup, res.HTML)
	require.Empty(t, h.history.pushed)
	require.Zero(t, h.uploader.calls)
}

func TestHTMLPayload_PlaceholderConvergesToPDF(t *testing.T) {
	t.Parallel()
	body := []byte("%PDF-1.4 fake")
	fetcher := &fakeFetcher{body: body, contentType: "application/pdf"}
	h := newHarness(t, func(cfg *Config) { cfg.Fetcher = fetcher })
	markup := `<html><body><iframe src="/cgi-bin/show_temp.pl?file=1"></iframe></body></html>`

	res, err := h.pipeline.OnMessage(context.Background(), h.message("text/html", []byte(markup)))
	require.NoError(t, err)
	require.Equal(t, StateUploadAcked, res.State)
	require.True(t, res.Uploaded)
	require.Equal(t, "/cgi-bin/show_temp.pl?file=1", fetcher.gotURL)
	require.Equal(t, body, h.uploader.got.Body)
	require.Len(t, h.history.pushed, 1)
}

func TestHTMLPayload_FetchFailureFallsBackToRaw(t *testing.T) {
	t.Parallel()
	fetcher := &fakeFetcher{err: errors.New("timeout")}
	h := newHarness(t, func(cfg *Config) { cfg.Fetcher = fetcher })
	markup := `<html><body><iframe src="/cgi-bin/show_temp.pl?file=1"></iframe></body></html>`

	res, err := h.pipeline.OnMessage(context.Background(), h.message("text/html", []byte(markup)))
	require.NoError(t, err)
	require.Equal(t, StateUploadSkipped, res.State)
	require.Equal(t, markup, res.HTML)
	require.Zero(t, h.uploader.calls)
}

func TestOnMessage_SecondPayloadIsTerminal(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	_, err := h.pipeline.OnMessage(context.Background(), h.message("application/pdf", pdfBytes(t)))
	require.NoError(t, err)

	_, err = h.pipeline.OnMessage(context.Background(), h.message("application/pdf", pdfBytes(t)))
	require.ErrorIs(t, err, ErrTerminal)
	require.Equal(t, 1, h.uploader.calls)
}

func TestTransitionsAreObserved(t *testing.T) {
	t.Parallel()
	var seen []State
	h := newHarness(t, func(cfg *Config) {
		cfg.OnTransition = func(s State) { seen = append(seen, s) }
	})

	_, err := h.pipeline.OnMessage(context.Background(), h.message("application/pdf", pdfBytes(t)))
	require.NoError(t, err)
	require.Equal(t, []State{
		StateScriptInjected,
		StateSubmissionIntercepted,
		StatePDFReceived,
		StateViewerRendered,
		StateUploadDispatched,
		StateUploadAcked,
	}, seen)
}
