package delegate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/openrecap/recapd/internal/archive"
	"github.com/openrecap/recapd/internal/capture"
	"github.com/openrecap/recapd/internal/progress"
	"github.com/openrecap/recapd/internal/store"
)

// CapturePipeline is the armed capture state machine for a viewable single
// document page.
type CapturePipeline = capture.Pipeline

// newCapturePipeline wires a capture pipeline to this delegate's ports: the
// tab store holds the captured bytes, the archive receives the upload, and
// transitions surface as progress events.
func newCapturePipeline(d *Delegate) *CapturePipeline {
	return capture.New(capture.Config{
		FormID:      uuid.New(),
		Origin:      d.url.Scheme + "://" + d.url.Host,
		PriorMarkup: d.rawHTML,
		Restricted:  d.restricted,
		Uploader:    captureUploader{d: d},
		Notifier:    d.ports.Notifier,
		Objects:     tabObjectURLs{d: d},
		History:     captureHistory{d: d},
		Fetcher:     d.ports.Fetcher,
		OverrideSubmit: func() (func(), bool) {
			return d.doc.OverrideOnSubmit("")
		},
		OnTransition: func(s capture.State) {
			d.emit(progress.StageCapture, string(s))
		},
		Logger: d.log,
	})
}

// captureUploader resolves the case id for the captured document and sends
// it to the archive. Resolution order: the page's own case id, the tab's
// link index, then the external lookup.
type captureUploader struct {
	d *Delegate
}

func (u captureUploader) Upload(ctx context.Context, p capture.Payload) (bool, error) {
	d := u.d
	if d.docID == "" {
		return false, errors.New("no document id for captured payload")
	}
	caseID := d.caseID
	if caseID == "" && d.ports.Tabs != nil && d.tabID != "" {
		if state, err := d.ports.Tabs.Get(ctx, d.tabID); err == nil {
			caseID = state.DocsToCases[d.docID]
		} else if !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
	}
	if caseID == "" && d.ports.CaseLookup != nil {
		looked, err := d.ports.CaseLookup.CaseIDForDoc(ctx, d.tabID, d.docID)
		if err != nil {
			return false, err
		}
		caseID = looked
	}
	if caseID == "" {
		return false, errors.New("no case id for captured document")
	}
	return d.ports.Archive.UploadDocument(ctx, d.court, caseID, archive.DocumentUpload{
		DocID:    d.docID,
		Filename: d.documentFilename(caseID),
		Body:     p.Body,
	})
}

// tabObjectURLs persists captured bytes in the tab state and returns the
// serving path for the viewer iframe.
type tabObjectURLs struct {
	d *Delegate
}

func (o tabObjectURLs) Create(body []byte, _ string) (string, error) {
	d := o.d
	if d.ports.Tabs != nil && d.tabID != "" {
		if err := d.ports.Tabs.SetPDFBlob(context.Background(), d.tabID, body); err != nil {
			return "", err
		}
	}
	return "/v1/tabs/" + d.tabID + "/document", nil
}

// captureHistory pushes the pre-viewer markup so back-navigation restores
// the confirmation page.
type captureHistory struct {
	d *Delegate
}

func (h captureHistory) PushMarkup(prior string) {
	if h.d.ports.History == nil {
		return
	}
	h.d.ports.History.Push(PageState{Content: prior})
}

// documentFilename names the uploaded file per the user's style option.
func (d *Delegate) documentFilename(caseID string) string {
	if d.opts.LawyerStyleFilenames {
		return fmt.Sprintf("%s_%s_%s.pdf", d.court, caseID, d.docID)
	}
	return fmt.Sprintf("gov.uscourts.%s.%s.%s.pdf", d.court, caseID, d.docID)
}
