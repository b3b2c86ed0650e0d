package delegate

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/openrecap/recapd/internal/metrics"
	"github.com/openrecap/recapd/internal/pacer"
	"github.com/openrecap/recapd/internal/page"
	"github.com/openrecap/recapd/internal/progress"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Handlers degrade to a no-op on any unmet precondition or remote failure.
// Nothing here is fatal to the page: the user must always see the ordinary
// PACER content whatever the archive is doing.

// HandleDocketQuery annotates the docket report query form with archive
// availability for the queried case: a banner linking the archived copy and,
// when a last-filing date is known, the autofill button carrying it.
func (d *Delegate) HandleDocketQuery(ctx context.Context) {
	if d.kind != pacer.KindDocketQuery {
		return
	}
	if d.ports.Cookies == nil || !d.ports.Cookies.HasActiveSession() {
		return
	}
	if d.court == "" || d.caseID == "" {
		return
	}

	metrics.ObserveAvailabilityCheck("docket")
	avail, err := d.ports.Archive.DocketAvailability(ctx, d.court, d.caseID)
	if err != nil {
		d.log.Warn("docket availability check failed", zap.Error(err))
		return
	}
	if avail.Count < 1 || len(avail.Results) == 0 {
		return
	}
	result := avail.Results[0]
	d.doc.InsertBanner(page.Banner{
		Text:     "Docket as of " + result.DateModified + " is available in the public archive.",
		LinkHref: d.ports.Archive.DownloadURL(result.AbsoluteURL),
		LinkText: "View archived docket",
	})
	if result.DateLastFiling != nil {
		if dateFrom, ok := pacer.FormatAutofillDate(*result.DateLastFiling); ok {
			d.doc.InsertAutofillButton(dateFrom)
		}
	}
}

// HandleDocketDisplay uploads a rendered docket report (live or from the
// history query) exactly once per page instance. The alert entry point is
// rendered whenever the upload preconditions hold, independent of whether an
// upload actually happens.
func (d *Delegate) HandleDocketDisplay(ctx context.Context) {
	if d.kind != pacer.KindDocketDisplay && d.kind != pacer.KindHistoryDocketDisplay {
		return
	}
	if !d.opts.RecapEnabled {
		return
	}
	if d.court == "" || d.caseID == "" {
		return
	}
	if d.doc.IsInterstitial() {
		return
	}

	d.doc.InsertAlertButton(d.alertHref())

	if d.restricted {
		d.emit(progress.StageUploadSkipped, "restricted")
		return
	}
	if d.uploaded() {
		d.emit(progress.StageUploadSkipped, "already uploaded")
		return
	}

	start := time.Now()
	d.emit(progress.StageUploadStart, "docket")
	// The marker may have been set while an earlier handler awaited a
	// remote call; read it again at the last possible moment.
	if d.uploaded() {
		d.emit(progress.StageUploadSkipped, "already uploaded")
		return
	}
	ok, err := d.ports.Archive.UploadDocket(ctx, d.court, d.caseID, d.rawHTML)
	if err != nil {
		metrics.ObserveUpload("docket", "error")
		d.emit(progress.StageUploadSkipped, "upload error")
		d.log.Warn("docket upload failed", zap.Error(err))
		return
	}
	if !ok {
		metrics.ObserveUpload("docket", "rejected")
		d.emit(progress.StageUploadSkipped, "rejected")
		return
	}
	metrics.ObserveUpload("docket", "accepted")
	d.markUploaded()
	d.notifyUpload(ctx, "docket")
	d.doc.InsertCreateAlertButton(d.alertHref())
	d.emitDur(progress.StageUploadDone, "docket", time.Since(start))
}

// HandleAttachmentMenu uploads the attachment menu markup once per page
// instance.
func (d *Delegate) HandleAttachmentMenu(ctx context.Context) {
	if d.kind != pacer.KindAttachmentMenu {
		return
	}
	if !d.opts.RecapEnabled {
		return
	}
	if d.court == "" || d.caseID == "" {
		return
	}
	if d.restricted {
		d.emit(progress.StageUploadSkipped, "restricted")
		return
	}
	if d.uploaded() {
		d.emit(progress.StageUploadSkipped, "already uploaded")
		return
	}

	start := time.Now()
	d.emit(progress.StageUploadStart, "attachment menu")
	if d.uploaded() {
		d.emit(progress.StageUploadSkipped, "already uploaded")
		return
	}
	ok, err := d.ports.Archive.UploadAttachmentMenu(ctx, d.court, d.caseID, d.rawHTML)
	if err != nil {
		metrics.ObserveUpload("attachment_menu", "error")
		d.emit(progress.StageUploadSkipped, "upload error")
		d.log.Warn("attachment menu upload failed", zap.Error(err))
		return
	}
	if !ok {
		metrics.ObserveUpload("attachment_menu", "rejected")
		d.emit(progress.StageUploadSkipped, "rejected")
		return
	}
	metrics.ObserveUpload("attachment_menu", "accepted")
	d.markUploaded()
	d.notifyUpload(ctx, "attachment menu")
	d.emitDur(progress.StageUploadDone, "attachment menu", time.Since(start))
}

// HandleSingleDocumentCheck asks the archive whether the document behind the
// confirmation page is already available for free, and banners the page when
// it is.
func (d *Delegate) HandleSingleDocumentCheck(ctx context.Context) {
	if d.kind != pacer.KindSingleDocument || !d.doc.HasViewDocumentButton() {
		return
	}
	if d.docID == "" || d.court == "" {
		return
	}

	metrics.ObserveAvailabilityCheck("document")
	avail, err := d.ports.Archive.DocumentAvailability(ctx, d.court, d.caseID, []string{d.docID})
	if err != nil {
		d.log.Warn("document availability check failed", zap.Error(err))
		return
	}
	for _, result := range avail.Results {
		if result.PacerDocID.String() != d.docID || result.FilepathLocal == "" {
			continue
		}
		d.doc.InsertBanner(page.Banner{
			Text:     "This document is available for free in the public archive.",
			LinkHref: d.ports.Archive.StorageURL(result.FilepathLocal),
			LinkText: "View document",
		})
		return
	}
}

// HandleSingleDocumentView arms the capture pipeline for the document
// purchase flow: it injects the interception script keyed on a fresh form id
// and registers the pipeline that will receive the intercepted payload.
func (d *Delegate) HandleSingleDocumentView(ctx context.Context) {
	if d.kind != pacer.KindSingleDocument || !d.doc.HasViewDocumentButton() {
		return
	}
	if !d.opts.RecapEnabled {
		return
	}
	d.capture = newCapturePipeline(d)
	d.doc.InjectCaptureScript(d.capture.FormID().String())
}

// FindAndStoreDocIDs walks the page links, extracts document-to-case
// associations, and merges them into the tab's link index. Extraction rules
// apply in order per link: a pre-attached doc id attribute, then the doc1
// href digits; the case id comes from a goDLS call on the link, then the
// page's own case id, then the external lookup. Links yielding no doc id are
// skipped silently.
func (d *Delegate) FindAndStoreDocIDs(ctx context.Context) {
	if d.ports.Cookies == nil || !d.ports.Cookies.HasActiveSession() {
		return
	}
	if d.tabID == "" || d.ports.Tabs == nil {
		return
	}

	docs := make(map[string]string)
	if d.docID != "" && d.caseID != "" {
		docs[d.docID] = d.caseID
	}
	for _, link := range d.links {
		if pacer.IsClaimsRegisterLink(link.Href) {
			continue
		}
		docID := link.DocID
		if docID == "" {
			docID = pacer.DocumentIDFromURL(link.Href)
		}
		if docID == "" {
			continue
		}
		caseID := caseIDFromLinkCall(link)
		if caseID == "" {
			caseID = d.caseID
		}
		if caseID == "" && d.ports.CaseLookup != nil {
			looked, err := d.ports.CaseLookup.CaseIDForDoc(ctx, d.tabID, docID)
			if err != nil {
				d.log.Debug("case lookup failed",
					zap.String("doc_id", docID), zap.Error(err))
			} else {
				caseID = looked
			}
		}
		if caseID == "" {
			continue
		}
		docs[docID] = caseID
	}
	if len(docs) == 0 {
		return
	}

	if err := d.ports.Tabs.MergeDocsToCases(ctx, d.tabID, docs); err != nil {
		d.log.Warn("link index merge failed", zap.Error(err))
		return
	}
	if d.caseID != "" {
		if err := d.ports.Tabs.SetCaseID(ctx, d.tabID, d.caseID); err != nil {
			d.log.Warn("tab case id write failed", zap.Error(err))
		}
	}
}

// AttachAvailableLinks decorates every document link already held by the
// archive with an inline availability link. No remote call is made when the
// page has no document links.
func (d *Delegate) AttachAvailableLinks(ctx context.Context) {
	if d.court == "" {
		return
	}
	type docLink struct {
		id   string
		link page.Link
	}
	var docLinks []docLink
	for _, link := range d.links {
		id := link.DocID
		if id == "" {
			id = pacer.DocumentIDFromURL(link.Href)
		}
		if id != "" {
			docLinks = append(docLinks, docLink{id: id, link: link})
		}
	}
	if len(docLinks) == 0 {
		return
	}

	ids := lo.Uniq(lo.Map(docLinks, func(dl docLink, _ int) string { return dl.id }))
	metrics.ObserveAvailabilityCheck("links")
	avail, err := d.ports.Archive.DocumentAvailability(ctx, d.court, d.caseID, ids)
	if err != nil {
		d.log.Warn("link availability check failed", zap.Error(err))
		return
	}
	available := make(map[string]string, len(avail.Results))
	for _, result := range avail.Results {
		if result.FilepathLocal != "" {
			available[result.PacerDocID.String()] = result.FilepathLocal
		}
	}
	for _, dl := range docLinks {
		if path, ok := available[dl.id]; ok {
			d.doc.InsertInlineLink(dl.link, d.ports.Archive.StorageURL(path))
		}
	}
}

func (d *Delegate) uploaded() bool {
	return d.ports.History != nil && d.ports.History.State().Uploaded
}

func (d *Delegate) markUploaded() {
	if d.ports.History == nil {
		return
	}
	state := d.ports.History.State()
	state.Uploaded = true
	d.ports.History.Replace(state)
}

// alertHref points the alert buttons at the archive's alert creation page
// for this case.
func (d *Delegate) alertHref() string {
	q := url.Values{}
	q.Set("pacer_case_id", d.caseID)
	q.Set("court_id", d.court)
	return d.ports.Archive.DownloadURL("/alert/docket/new/?" + q.Encode())
}

// caseIDFromLinkCall pulls the case id out of a goDLS invocation attached to
// the link, checking the onclick attribute first and then javascript: hrefs.
func caseIDFromLinkCall(link page.Link) string {
	if args, ok := pacer.ParseGoDLS(link.OnClick); ok {
		return args.DeCaseID
	}
	if call, found := strings.CutPrefix(link.Href, "javascript:"); found {
		if args, ok := pacer.ParseGoDLS(call); ok {
			return args.DeCaseID
		}
	}
	return ""
}
