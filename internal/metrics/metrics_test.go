package metrics

import (
	"testing"
	"time"
)

// TestObserveBeforeInit ensures the observe helpers are safe no-ops when
// Init has not run.
func TestObserveBeforeInit(t *testing.T) {
	ObservePage("docket_query")
	ObserveUpload("docket", "accepted")
	ObserveAvailabilityCheck("document")
	ObserveCaptureStage("viewer_rendered")
	ObserveRestrictedPage()
	ObserveHTTPRequest("POST", "/v1/pages", 5*time.Millisecond)
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	ObservePage("docket_query")
	ObserveUpload("docket", "rejected")
}
