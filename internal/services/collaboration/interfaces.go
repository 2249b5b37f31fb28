package collaboration

import (
	"context"

	"quantum-collab/internal/models"
)

// The hub declares what it needs from its collaborators; implementations
// live in repository and pubsub and never import this package.

// SessionStore persists the session directory. GetSession wraps
// repository.ErrNotFound for ids it has never stored.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.CollabSession) error
	GetSession(ctx context.Context, id string) (*models.CollabSession, error)
	ListActiveSessions(ctx context.Context) ([]*models.CollabSession, error)
}

// DocumentRepository snapshots document state. LoadDocument returns
// (nil, nil) for a project that was never saved.
type DocumentRepository interface {
	LoadDocument(ctx context.Context, projectID string) (*models.DocumentState, error)
	SaveDocument(ctx context.Context, projectID string, snapshot models.DocumentSnapshot, edits []models.Edit) error
}

// EventSink receives session lifecycle and chat events for consumers
// outside the hub (notifications, analytics). Publish is called while
// handling client traffic and must return without waiting on I/O.
type EventSink interface {
	Publish(ctx context.Context, sessionID string, event any) error
}
