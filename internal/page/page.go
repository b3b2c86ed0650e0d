// Package page wraps a rendered PACER document and provides the read checks
// and DOM mutations the delegate performs. Parsing happens once per page
// snapshot; every mutator is idempotent so a re-run of a handler cannot
// duplicate an affordance.
package page

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is an anchor-like element on the page. DocID carries the pre-attached
// document-id data attribute when the page already annotated the link.
type Link struct {
	Href    string
	DocID   string
	OnClick string

	sel *goquery.Selection
}

// Document is a parsed PACER page plus the record of affordances inserted
// into it.
type Document struct {
	doc     *goquery.Document
	actions []Action
}

// Parse builds a Document from raw markup.
func Parse(markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Links returns the page's anchors in document order.
func (d *Document) Links() []Link {
	var links []Link
	d.doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		docID, _ := sel.Attr("data-pacer_doc_id")
		onClick, _ := sel.Attr("onclick")
		links = append(links, Link{Href: href, DocID: docID, OnClick: onClick, sel: sel})
	})
	return links
}

// HasViewDocumentButton reports whether the page carries the "View Document"
// form control that marks single-document pages.
func (d *Document) HasViewDocumentButton() bool {
	return d.doc.Find(`input[value="View Document"]`).Length() > 0
}

// HasAttachmentControls reports whether the main-content container holds the
// "Download All" / "View All" pair that marks an attachment menu.
func (d *Document) HasAttachmentControls() bool {
	main := d.doc.Find("#cmecfMainContent")
	if main.Length() == 0 {
		return false
	}
	return main.Find(`input[value="Download All"]`).Length() > 0 &&
		main.Find(`input[value="View All"]`).Length() > 0
}

// IsInterstitial reports whether the page is a confirmation step rather than
// final docket content, signalled by a same-named radio pair for the
// date-range field.
func (d *Document) IsInterstitial() bool {
	return d.doc.Find(`input[type="radio"][name="date_from"]`).Length() >= 2
}

// DetectRestriction scans rendered text for sealed/restricted markers. Both
// rules are gated on the View Document control: a docket page may legitimately
// mention "SEALED" in an entry description. A positive result inserts the
// visible advisory as a side effect.
func (d *Document) DetectRestriction() bool {
	if !d.HasViewDocumentButton() {
		return false
	}
	restricted := false
	d.doc.Find("td").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), "Warning!") {
			restricted = true
			return false
		}
		return true
	})
	if !restricted {
		d.doc.Find("b").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if strings.Contains(sel.Text(), "SEALED") {
				restricted = true
				return false
			}
			return true
		})
	}
	if restricted {
		d.InsertAdvisory("This document is restricted and will not be uploaded to the public archive.")
	}
	return restricted
}

// HTML serializes the (possibly mutated) document.
func (d *Document) HTML() (string, error) {
	out, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("serialize page: %w", err)
	}
	return out, nil
}

// Actions returns the affordances inserted so far, in insertion order.
func (d *Document) Actions() []Action {
	return d.actions
}

func (d *Document) body() *goquery.Selection {
	return d.doc.Find("body").First()
}

func escape(s string) string {
	return html.EscapeString(s)
}
