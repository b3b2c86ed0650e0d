// Package progress defines the lifecycle events emitted while the delegate
// processes a page, and the hub that fans them out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported stages.
const (
	StagePageStart      Stage = "PAGE_START"
	StagePageClassified Stage = "PAGE_CLASSIFIED"
	StagePageDone       Stage = "PAGE_DONE"
	StageUploadStart    Stage = "UPLOAD_START"
	StageUploadDone     Stage = "UPLOAD_DONE"
	StageUploadSkipped  Stage = "UPLOAD_SKIPPED"
	StageCapture        Stage = "CAPTURE"
)

// Event captures a single milestone of page processing.
type Event struct {
	// PageID uniquely identifies one page instance.
	PageID uuid.UUID
	// TabID scopes the event to a browsing tab.
	TabID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Kind is the classified page kind, set from PAGE_CLASSIFIED onward.
	Kind string
	// Court optionally scopes the event to a jurisdiction.
	Court string
	// Dur captures latency for upload and page completions.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.PageID == uuid.Nil {
		return errors.New("page id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StagePageStart, StagePageDone:
	case StagePageClassified:
		if e.Kind == "" {
			return errors.New("classification requires kind")
		}
	case StageUploadStart, StageUploadDone, StageUploadSkipped:
		if e.Kind == "" {
			return errors.New("upload stages require kind")
		}
	case StageCapture:
		if e.Note == "" {
			return errors.New("capture stage requires the state note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
