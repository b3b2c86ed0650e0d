package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openrecap/recapd/internal/capture"
	"github.com/openrecap/recapd/internal/delegate"
	"github.com/openrecap/recapd/internal/store"
)

type pageRequest struct {
	TabID         string             `json:"tab_id"`
	URL           string             `json:"url"`
	HTML          string             `json:"html"`
	SessionCookie bool               `json:"session_cookie"`
	HistoryState  delegate.PageState `json:"history_state"`
}

type messageRequest struct {
	FormID      string `json:"form_id"`
	Origin      string `json:"origin"`
	ContentType string `json:"content_type"`
	// Body carries the captured payload, base64-encoded in JSON.
	Body []byte `json:"body"`
}

type messageResponse struct {
	State        capture.State      `json:"state"`
	HTML         string             `json:"html,omitempty"`
	ObjectURL    string             `json:"object_url,omitempty"`
	Uploaded     bool               `json:"uploaded"`
	HistoryState delegate.PageState `json:"history_state"`
}

// pageEntry pairs an armed capture pipeline with the history that outlives
// the page request, so a later message can push the pre-viewer markup.
type pageEntry struct {
	pipeline *delegate.CapturePipeline
	history  *delegate.MemoryHistory
}

func (s *Server) processPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.TabID == "" || req.URL == "" {
		writeError(w, http.StatusBadRequest, "tab_id and url are required")
		return
	}

	history := delegate.NewMemoryHistory(req.HistoryState)
	ports := delegate.Ports{
		Archive:    s.deps.Archive,
		Tabs:       s.deps.Tabs,
		History:    history,
		Cookies:    delegate.StaticCookies(req.SessionCookie),
		CaseLookup: s.deps.CaseLookup,
		Fetcher:    s.deps.Fetcher,
		Events:     s.deps.Events,
		Logger:     s.log,
	}
	// A nil *notifier.Log must stay a nil port, not a non-nil interface
	// wrapping a nil receiver.
	if s.deps.Notifier != nil {
		ports.Notifier = s.deps.Notifier
	}
	d, err := delegate.New(r.Context(), delegate.Params{
		TabID: req.TabID,
		URL:   req.URL,
		HTML:  req.HTML,
		Options: delegate.Options{
			RecapEnabled:         s.cfg.Options.RecapEnabled,
			IAStyleFilenames:     s.cfg.Options.IAStyleFilenames,
			LawyerStyleFilenames: s.cfg.Options.LawyerStyleFilenames,
			ExternalPDF:          s.cfg.Options.ExternalPDF,
		},
	}, ports)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := d.Run(r.Context())
	if err != nil {
		s.log.Error("page processing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "page processing failed")
		return
	}
	if p := d.Capture(); p != nil {
		s.pipelines.SetDefault(res.PageID.String(), pageEntry{pipeline: p, history: history})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) pageMessage(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "page_id")
	if _, err := uuid.Parse(pageID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid page id")
		return
	}
	val, found := s.pipelines.Get(pageID)
	if !found {
		writeError(w, http.StatusNotFound, "no capture armed for page")
		return
	}
	entry := val.(pageEntry)

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := entry.pipeline.OnMessage(r.Context(), capture.Message{
		FormID:      req.FormID,
		Origin:      req.Origin,
		ContentType: req.ContentType,
		Body:        req.Body,
	})
	switch {
	case errors.Is(err, capture.ErrFormMismatch), errors.Is(err, capture.ErrOriginMismatch):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, capture.ErrTerminal):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.log.Error("capture message failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "capture failed")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		State:        res.State,
		HTML:         res.HTML,
		ObjectURL:    res.ObjectURL,
		Uploaded:     res.Uploaded,
		HistoryState: entry.history.State(),
	})
}

func (s *Server) tabDocument(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tab_id")
	state, err := s.deps.Tabs.Get(r.Context(), tabID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tab not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "tab store read failed")
		return
	}
	if len(state.PDFBlob) == 0 {
		writeError(w, http.StatusNotFound, "no document captured for tab")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(state.PDFBlob); err != nil {
		s.log.Warn("document write failed", zap.Error(err))
	}
}

func (s *Server) removeTab(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tab_id")
	if err := s.deps.Tabs.Remove(r.Context(), tabID); err != nil {
		writeError(w, http.StatusInternalServerError, "tab store remove failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	if s.deps.Notifier == nil {
		writeJSON(w, http.StatusOK, map[string]any{"notifications": []any{}})
		return
	}
	recent := s.deps.Notifier.ForTab(r.URL.Query().Get("tab_id"))
	writeJSON(w, http.StatusOK, map[string]any{"notifications": recent})
}
