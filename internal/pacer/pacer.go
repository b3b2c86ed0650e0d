// Package pacer classifies PACER URLs and extracts the identifiers embedded
// in them. Everything here is a pure function over URL strings; DOM-dependent
// refinements (attachment menus, the View Document control) live with the
// delegate.
package pacer

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// PageKind tags the recognized PACER page shapes.
type PageKind string

// Recognized page kinds. Unknown is a terminal no-op state for every handler.
const (
	KindUnknown              PageKind = "unknown"
	KindDocketQuery          PageKind = "docket_query"
	KindDocketDisplay        PageKind = "docket_display"
	KindHistoryDocketDisplay PageKind = "history_docket_display"
	KindAttachmentMenu       PageKind = "attachment_menu"
	KindSingleDocument       PageKind = "single_document"
)

var (
	docketReportRe  = regexp.MustCompile(`^/cgi-bin/DktRpt\.pl(\?.*)?$`)
	historyQueryRe  = regexp.MustCompile(`^/cgi-bin/HistDocQry\.pl(\?.*)?$`)
	singleDocRe     = regexp.MustCompile(`/doc1/(\d+)`)
	caseIDQueryRe   = regexp.MustCompile(`^\d+$`)
	courtHostRe     = regexp.MustCompile(`^ecf\.([a-z0-9]+)\.uscourts\.gov$`)
	showDocRe       = regexp.MustCompile(`/cgi-bin/show_doc\.pl`)
	claimsQueryKeys = []string{"claim_id", "claim_num"}
)

// Classify maps a PACER path to its page kind. Single-document paths cover
// both the download-confirmation page and the attachment menu; callers
// refine between them (and between check and view) from page content.
func Classify(path string) PageKind {
	switch {
	case historyQueryRe.MatchString(path):
		return KindHistoryDocketDisplay
	case docketReportRe.MatchString(path):
		if IsDocketQueryPath(path) {
			return KindDocketQuery
		}
		return KindDocketDisplay
	case singleDocRe.MatchString(path):
		return KindSingleDocument
	default:
		return KindUnknown
	}
}

// IsDocketQueryPath reports whether path is the docket report query form: a
// DktRpt.pl URL whose query string is a bare case number. Result pages carry
// an opaque session token instead.
func IsDocketQueryPath(path string) bool {
	if !docketReportRe.MatchString(path) {
		return false
	}
	_, query, found := strings.Cut(path, "?")
	return found && caseIDQueryRe.MatchString(query)
}

// IsDocketDisplayPath reports whether path is a docket report result page,
// live or historical.
func IsDocketDisplayPath(path string) bool {
	kind := Classify(path)
	return kind == KindDocketDisplay || kind == KindHistoryDocketDisplay
}

// IsSingleDocumentPath reports whether path belongs to the /doc1/ family.
func IsSingleDocumentPath(path string) bool {
	return singleDocRe.MatchString(path)
}

// CourtFromHost extracts the jurisdiction code from an ECF hostname, e.g.
// "ecf.canb.uscourts.gov" yields "canb". Unrecognized hosts yield "".
func CourtFromHost(host string) string {
	m := courtHostRe.FindStringSubmatch(strings.ToLower(host))
	if m == nil {
		return ""
	}
	return m[1]
}

// CaseIDFromQuery returns the case id embedded in a docket query path, or ""
// when the path is not a docket query.
func CaseIDFromQuery(path string) string {
	if !IsDocketQueryPath(path) {
		return ""
	}
	_, query, _ := strings.Cut(path, "?")
	return query
}

// DocumentIDFromURL returns the digits of a doc1-shaped href, or "" for
// every other link shape. Claims-register and show_doc links are explicitly
// not document-bearing even though they carry numeric parameters.
func DocumentIDFromURL(href string) string {
	if showDocRe.MatchString(href) {
		return ""
	}
	m := singleDocRe.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsClaimsRegisterLink reports whether href is a claims-register document
// link, which must be skipped by identifier extraction.
func IsClaimsRegisterLink(href string) bool {
	if !showDocRe.MatchString(href) {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	q := u.Query()
	for _, key := range claimsQueryKeys {
		if q.Has(key) {
			return true
		}
	}
	return false
}

// FormatAutofillDate converts the archive's ISO date ("2006-01-02") into the
// MM/DD/YYYY form PACER date inputs expect. The second return is false when
// the input does not parse; callers must then omit the autofill control.
func FormatAutofillDate(iso string) (string, bool) {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return "", false
	}
	return t.Format("01/02/2006"), true
}
