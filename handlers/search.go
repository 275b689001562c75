package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"oriontv/models"
	"oriontv/services/search"
)

type searchService interface {
	StartSearch(req search.SearchRequest) string
	CancelActiveSearch()
	SelectCandidate(sourceKey string) error
	ReportPlaybackFailure(sourceKey string, episodeIndex int, reason string) (*models.SearchResult, error)
	Snapshot() search.Snapshot
	Settled() <-chan struct{}
}

var _ searchService = (*search.Service)(nil)

// resumeLookup resolves the last-played source for a title so a resumed
// search can take the preferred-source fast path without the client
// knowing the source key.
type resumeLookup interface {
	LastPlayedSource(title string) (sourceKey, videoID string, ok bool)
}

type SearchHandler struct {
	service searchService
	resume  resumeLookup
}

func NewSearchHandler(svc searchService, resume resumeLookup) *SearchHandler {
	return &SearchHandler{service: svc, resume: resume}
}

type startSearchRequest struct {
	Query           string `json:"query"`
	PreferredSource string `json:"preferredSource,omitempty"`
	VideoID         string `json:"videoId,omitempty"`
	Resume          bool   `json:"resume,omitempty"`
}

// Start begins a new search, superseding any in-flight one. With
// ?wait=true the response is delayed until the session settles (bounded
// by a 30s guard), which is convenient for non-interactive clients.
func (h *SearchHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeJSONError(w, "query is required", http.StatusBadRequest)
		return
	}

	if req.Resume && req.PreferredSource == "" && h.resume != nil {
		if sourceKey, videoID, ok := h.resume.LastPlayedSource(req.Query); ok {
			req.PreferredSource = sourceKey
			if req.VideoID == "" {
				req.VideoID = videoID
			}
		}
	}

	sessionID := h.service.StartSearch(search.SearchRequest{
		Query:           req.Query,
		PreferredSource: req.PreferredSource,
		VideoID:         req.VideoID,
	})

	if strings.EqualFold(r.URL.Query().Get("wait"), "true") {
		select {
		case <-h.service.Settled():
		case <-r.Context().Done():
		case <-time.After(30 * time.Second):
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"sessionId": sessionID,
		"state":     h.service.Snapshot(),
	})
}

func (h *SearchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.service.CancelActiveSearch()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
}

func (h *SearchHandler) State(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.Snapshot())
}

type selectRequest struct {
	SourceKey string `json:"sourceKey"`
}

func (h *SearchHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.SelectCandidate(req.SourceKey); err != nil {
		switch {
		case errors.Is(err, search.ErrNoActiveSession):
			writeJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, search.ErrUnknownSource):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		default:
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.Snapshot())
}

type failoverRequest struct {
	SourceKey    string `json:"sourceKey"`
	EpisodeIndex int    `json:"episodeIndex"`
	Reason       string `json:"reason,omitempty"`
}

// Failover reports a mid-playback failure and responds with the best
// replacement source, or an exhaustion payload when none remains.
func (h *SearchHandler) Failover(w http.ResponseWriter, r *http.Request) {
	var req failoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourceKey == "" {
		writeJSONError(w, "sourceKey is required", http.StatusBadRequest)
		return
	}

	replacement, err := h.service.ReportPlaybackFailure(req.SourceKey, req.EpisodeIndex, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrNoActiveSession):
			writeJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, search.ErrFailoverExhausted):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{"exhausted": true, "error": err.Error()})
		default:
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(replacement)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
