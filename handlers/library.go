package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"oriontv/models"
	"oriontv/services/store"
)

type libraryService interface {
	IsFavorited(sourceKey, videoID string) bool
	ToggleFavorite(fav models.Favorite) (bool, error)
	ListFavorites() []models.Favorite
	SavePlayRecord(rec models.PlayRecord) error
	PlayRecords() []models.PlayRecord
}

var _ libraryService = (*store.Service)(nil)

// LibraryHandler exposes favorites and playback history.
type LibraryHandler struct {
	store libraryService
}

func NewLibraryHandler(storeSvc libraryService) *LibraryHandler {
	return &LibraryHandler{store: storeSvc}
}

func (h *LibraryHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.store.ListFavorites())
}

func (h *LibraryHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var fav models.Favorite
	if err := json.NewDecoder(r.Body).Decode(&fav); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(fav.SourceKey) == "" || strings.TrimSpace(fav.VideoID) == "" {
		writeJSONError(w, "source and videoId are required", http.StatusBadRequest)
		return
	}
	favorited, err := h.store.ToggleFavorite(fav)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"favorited": favorited})
}

func (h *LibraryHandler) History(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.store.PlayRecords())
}

func (h *LibraryHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	var rec models.PlayRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(rec.SourceKey) == "" || strings.TrimSpace(rec.VideoID) == "" {
		writeJSONError(w, "source and videoId are required", http.StatusBadRequest)
		return
	}
	if err := h.store.SavePlayRecord(rec); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
