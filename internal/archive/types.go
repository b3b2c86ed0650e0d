// Package archive implements the remote public-archive capability over its
// REST API: availability checks for dockets and documents, and the three
// upload operations.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DocketAvailability is the availability-check result for one docket. A
// Count of zero means no archive copy, not an error.
type DocketAvailability struct {
	Count   int            `json:"count"`
	Results []DocketResult `json:"results"`
}

// DocketResult is one archived docket entry.
type DocketResult struct {
	AbsoluteURL    string  `json:"absolute_url"`
	DateModified   string  `json:"date_modified"`
	DateLastFiling *string `json:"date_last_filing"`
}

// DocumentAvailability is the availability-check result for a set of
// document ids.
type DocumentAvailability struct {
	Results []DocumentResult `json:"results"`
}

// DocumentResult is one archived document entry. An empty FilepathLocal
// means the archive has metadata but no stored copy.
type DocumentResult struct {
	PacerDocID    FlexID `json:"pacer_doc_id"`
	FilepathLocal string `json:"filepath_local"`
}

// DocumentUpload carries one captured document to the archive.
type DocumentUpload struct {
	DocID            string
	DocNumber        string
	AttachmentNumber string
	ACMSID           string
	// Filename is the multipart filename; "document.pdf" when empty.
	Filename string
	Body     []byte
}

// FlexID decodes identifier fields the archive serves inconsistently as
// either a JSON string or number.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id string: %w", err)
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

// String returns the identifier text.
func (f FlexID) String() string {
	return string(f)
}
