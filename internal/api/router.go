package api

import (
	"quantum-collab/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

func SetupRoutes(h *Handler, logger zerolog.Logger) *mux.Router {
	r := mux.NewRouter()

	// Middleware runs in order: tracing, recovery, CORS
	r.Use(middleware.Tracing(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORSMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Session endpoints
	api.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	api.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}/end", h.EndSession).Methods("POST")
	api.HandleFunc("/sessions/{id}/participants", h.ListParticipants).Methods("GET")
	api.HandleFunc("/sessions/{id}/suggestions", h.GetSuggestions).Methods("GET")

	// Document endpoints
	api.HandleFunc("/projects/{id}/document", h.GetDocument).Methods("GET")

	api.HandleFunc("/health", h.Health).Methods("GET")

	// WebSocket routes
	r.HandleFunc("/ws/collaboration", h.HandleCollaborationWebSocket)

	return r
}
