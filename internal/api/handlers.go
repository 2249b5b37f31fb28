package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"quantum-collab/internal/models"
	"quantum-collab/internal/repository"
	"quantum-collab/internal/services/collaboration"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Handler handles HTTP requests
type Handler struct {
	collab  CollaborationService
	archive SessionArchive
	ws      ConnectionHandler
	logger  zerolog.Logger
}

func NewHandler(collab CollaborationService, ws ConnectionHandler, logger zerolog.Logger) *Handler {
	return &Handler{
		collab: collab,
		ws:     ws,
		logger: logger,
	}
}

// SetSessionArchive enables lookups of persisted sessions
func (h *Handler) SetSessionArchive(archive SessionArchive) {
	h.archive = archive
}

type createSessionRequest struct {
	HostUserID string            `json:"hostUserId"`
	ProjectID  string            `json:"projectId"`
	Metadata   map[string]string `json:"metadata"`
}

type sessionResponse struct {
	models.CollabSession
	ParticipantCount int `json:"participantCount"`
}

// Session handlers

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.HostUserID = strings.TrimSpace(req.HostUserID)
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if req.HostUserID == "" || req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "hostUserId and projectId are required")
		return
	}

	session := h.collab.CreateSession(r.Context(), req.HostUserID, req.ProjectID, req.Metadata)
	writeJSON(w, http.StatusCreated, sessionResponse{CollabSession: session})
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	active := h.collab.ActiveSessions()

	sessions := make([]sessionResponse, 0, len(active))
	for _, s := range active {
		sessions = append(sessions, sessionResponse{
			CollabSession:    s,
			ParticipantCount: h.collab.ParticipantCount(s.ID),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if session, ok := h.collab.Session(id); ok {
		writeJSON(w, http.StatusOK, sessionResponse{
			CollabSession:    session,
			ParticipantCount: h.collab.ParticipantCount(id),
		})
		return
	}

	if h.archive != nil {
		session, err := h.archive.GetSession(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, sessionResponse{CollabSession: *session})
			return
		case !errors.Is(err, repository.ErrNotFound):
			h.logger.Error().Err(err).Str("session_id", id).Msg("session archive lookup failed")
			writeError(w, http.StatusInternalServerError, "failed to load session")
			return
		}
	}

	writeError(w, http.StatusNotFound, "session not found")
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	session, err := h.collab.EndSession(r.Context(), id)
	if errors.Is(err, collaboration.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{CollabSession: session})
}

func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.collab.Session(id); !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	participants := h.collab.ParticipantsOf(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":    id,
		"participants": participants,
		"count":        len(participants),
	})
}

func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.collab.Session(id); !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":   id,
		"suggestions": h.collab.GenerateSuggestions(id),
	})
}

// Document handlers

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snapshot, err := h.collab.Snapshot(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", id).Msg("document load failed")
		writeError(w, http.StatusInternalServerError, "failed to load document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"projectId": id,
		"content":   snapshot.Content,
		"version":   snapshot.Version,
	})
}

// WebSocket

func (h *Handler) HandleCollaborationWebSocket(w http.ResponseWriter, r *http.Request) {
	h.ws.HandleConnection(w, r)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
