package api

import (
	"net/http"

	"oriontv/handlers"

	"github.com/gorilla/mux"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	searchHandler *handlers.SearchHandler,
	libraryHandler *handlers.LibraryHandler,
	settingsHandler *handlers.SettingsHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Search session
	api.HandleFunc("/search/start", searchHandler.Start).Methods(http.MethodPost)
	api.HandleFunc("/search/start", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/search/cancel", searchHandler.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/search/cancel", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/search/state", searchHandler.State).Methods(http.MethodGet)
	api.HandleFunc("/search/state", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/search/select", searchHandler.Select).Methods(http.MethodPost)
	api.HandleFunc("/search/select", handleOptions).Methods(http.MethodOptions)

	// Mid-playback failover
	api.HandleFunc("/playback/failover", searchHandler.Failover).Methods(http.MethodPost)
	api.HandleFunc("/playback/failover", handleOptions).Methods(http.MethodOptions)

	// Favorites and play history
	api.HandleFunc("/favorites", libraryHandler.ListFavorites).Methods(http.MethodGet)
	api.HandleFunc("/favorites", libraryHandler.ToggleFavorite).Methods(http.MethodPost)
	api.HandleFunc("/favorites", handleOptions).Methods(http.MethodOptions)
	api.HandleFunc("/history", libraryHandler.History).Methods(http.MethodGet)
	api.HandleFunc("/history", libraryHandler.SaveProgress).Methods(http.MethodPost)
	api.HandleFunc("/history", handleOptions).Methods(http.MethodOptions)

	// Settings
	api.HandleFunc("/settings", settingsHandler.GetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", settingsHandler.UpdateSettings).Methods(http.MethodPut)
	api.HandleFunc("/settings", handleOptions).Methods(http.MethodOptions)
}
