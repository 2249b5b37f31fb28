package api

import (
	"context"
	"net/http"

	"quantum-collab/internal/models"
)

/*
Consumer-driven interfaces: the api package declares only the methods its
handlers call. The collaboration hub and the gorm session repository
satisfy them without knowing this package exists, and tests swap in fakes.
*/

// CollaborationService is what handlers need from the hub
type CollaborationService interface {
	CreateSession(ctx context.Context, hostUserID, projectID string, metadata map[string]string) models.CollabSession
	Session(sessionID string) (models.CollabSession, bool)
	ActiveSessions() []models.CollabSession
	EndSession(ctx context.Context, sessionID string) (models.CollabSession, error)
	ParticipantsOf(sessionID string) []models.Participant
	ParticipantCount(sessionID string) int
	GenerateSuggestions(sessionID string) []models.Suggestion
	Snapshot(ctx context.Context, projectID string) (models.DocumentSnapshot, error)
}

// SessionArchive answers lookups for sessions the hub no longer holds,
// such as ones ended before the last restart
type SessionArchive interface {
	GetSession(ctx context.Context, id string) (*models.CollabSession, error)
}

// ConnectionHandler upgrades websocket requests
type ConnectionHandler interface {
	HandleConnection(w http.ResponseWriter, r *http.Request)
}
