package page

import "fmt"

// Action records one DOM affordance for API consumers, mirroring the
// mutation applied to the markup.
type Action struct {
	Type string            `json:"type"`
	Text string            `json:"text,omitempty"`
	Href string            `json:"href,omitempty"`
	Data map[string]string `json:"data,omitempty"`
}

// Action types produced by the mutators below.
const (
	ActionBanner        = "banner"
	ActionAdvisory      = "advisory"
	ActionAutofill      = "autofill_button"
	ActionAlertButton   = "alert_button"
	ActionCreateAlert   = "create_alert_button"
	ActionInlineLink    = "inline_link"
	ActionCaptureScript = "capture_script"
)

// Banner describes the archive-availability banner.
type Banner struct {
	Text     string
	LinkHref string
	LinkText string
}

// InsertBanner places the recap-banner element at the top of the body.
// Replacement is replace-if-present: a banner inserted by an earlier handler
// run is removed first, so the operation is idempotent.
func (d *Document) InsertBanner(b Banner) {
	d.doc.Find(".recap-banner").Remove()
	markup := fmt.Sprintf(
		`<div class="recap-banner"><span>%s</span> <a href="%s">%s</a></div>`,
		escape(b.Text), escape(b.LinkHref), escape(b.LinkText),
	)
	d.body().PrependHtml(markup)
	d.record(Action{Type: ActionBanner, Text: b.Text, Href: b.LinkHref})
}

// InsertAdvisory adds the restriction advisory paragraph once.
func (d *Document) InsertAdvisory(text string) {
	if d.doc.Find(".recap-advisory").Length() > 0 {
		return
	}
	d.body().PrependHtml(fmt.Sprintf(`<p class="recap-advisory">%s</p>`, escape(text)))
	d.record(Action{Type: ActionAdvisory, Text: text})
}

// InsertAutofillButton adds the recap-filing-button carrying the date the
// next docket query should start from. Callers must omit the call entirely
// when no last-filing date is known.
func (d *Document) InsertAutofillButton(dateFrom string) {
	if d.doc.Find(".recap-filing-button").Length() > 0 {
		return
	}
	markup := fmt.Sprintf(
		`<button class="recap-filing-button" data-date-from="%s">Update docket as of %s</button>`,
		escape(dateFrom), escape(dateFrom),
	)
	d.body().PrependHtml(markup)
	d.record(Action{Type: ActionAutofill, Data: map[string]string{"date_from": dateFrom}})
}

// InsertAlertButton adds the docket-alert entry point button once.
func (d *Document) InsertAlertButton(href string) {
	d.insertIdentifiedButton("recap-alert-button", ActionAlertButton, "Create Alert", href)
}

// InsertCreateAlertButton adds the post-upload create-alert control once.
func (d *Document) InsertCreateAlertButton(href string) {
	d.insertIdentifiedButton("create-alert-button", ActionCreateAlert, "Create an alert for this case", href)
}

func (d *Document) insertIdentifiedButton(id, actionType, text, href string) {
	if d.doc.Find("#"+id).Length() > 0 {
		return
	}
	markup := fmt.Sprintf(`<a id="%s" href="%s"><button>%s</button></a>`,
		escape(id), escape(href), escape(text))
	d.body().AppendHtml(markup)
	d.record(Action{Type: actionType, Text: text, Href: href})
}

// InsertInlineLink places the recap-inline indicator immediately after the
// given anchor, once per anchor.
func (d *Document) InsertInlineLink(link Link, href string) {
	if link.sel == nil {
		return
	}
	if link.sel.Next().HasClass("recap-inline") {
		return
	}
	link.sel.AfterHtml(fmt.Sprintf(`<a class="recap-inline" href="%s">Available on RECAP</a>`, escape(href)))
	d.record(Action{Type: ActionInlineLink, Href: href})
}

// InjectCaptureScript appends the isolated page script that intercepts the
// document-view form submission and reports back over the message channel.
// One script per page.
func (d *Document) InjectCaptureScript(formID string) {
	if d.doc.Find("script.recap-capture").Length() > 0 {
		return
	}
	markup := fmt.Sprintf(`<script class="recap-capture" data-form-id="%s"></script>`, escape(formID))
	d.body().AppendHtml(markup)
	d.record(Action{Type: ActionCaptureScript, Data: map[string]string{"form_id": formID}})
}

// OverrideOnSubmit swaps the form's onsubmit attribute for the
// multi-submission bypass and returns a restore function that reinstates the
// original value.
func (d *Document) OverrideOnSubmit(formID string) (restore func(), ok bool) {
	form := d.doc.Find("form").First()
	if formID != "" {
		if byID := d.doc.Find("form#" + formID); byID.Length() > 0 {
			form = byID
		}
	}
	if form.Length() == 0 {
		return nil, false
	}
	original, had := form.Attr("onsubmit")
	form.SetAttr("onsubmit", "history.forward(); return false;")
	return func() {
		if had {
			form.SetAttr("onsubmit", original)
		} else {
			form.RemoveAttr("onsubmit")
		}
	}, true
}

func (d *Document) record(a Action) {
	d.actions = append(d.actions, a)
}
