package collaboration

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"quantum-collab/internal/models"
)

// Directory tracks logical sessions independently of live sockets
type Directory struct {
	sessions map[string]*models.CollabSession
	mu       sync.RWMutex
	now      func() time.Time
}

func NewDirectory(now func() time.Time) *Directory {
	if now == nil {
		now = time.Now
	}
	return &Directory{
		sessions: make(map[string]*models.CollabSession),
		now:      now,
	}
}

// Create registers a new active session
func (d *Directory) Create(hostUserID, projectID string, metadata map[string]string) models.CollabSession {
	session := models.NewCollabSession(hostUserID, projectID, metadata, d.now())

	d.mu.Lock()
	d.sessions[session.ID] = session
	d.mu.Unlock()

	return *session
}

// Put installs a session loaded from storage; existing entries win
func (d *Directory) Put(session models.CollabSession) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[session.ID]; ok {
		return false
	}
	d.sessions[session.ID] = &session
	return true
}

// Ensure returns the session with the given id, registering it as active
// with hostUserID as host if the directory has never seen it. The bool is
// true when the session was created by this call.
func (d *Directory) Ensure(sessionID, hostUserID, projectID string) (models.CollabSession, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if session, ok := d.sessions[sessionID]; ok {
		if !session.IsActive() {
			return *session, false, fmt.Errorf("%w: %s", ErrSessionEnded, sessionID)
		}
		return *session, false, nil
	}

	session := &models.CollabSession{
		ID:         sessionID,
		ProjectID:  projectID,
		HostUserID: hostUserID,
		Status:     models.SessionActive,
		StartedAt:  d.now(),
	}
	d.sessions[sessionID] = session
	return *session, true, nil
}

// Get returns a copy of the session
func (d *Directory) Get(sessionID string) (models.CollabSession, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	session, ok := d.sessions[sessionID]
	if !ok {
		return models.CollabSession{}, false
	}
	return *session, true
}

// MarkEnded flips an active session to ended. The bool reports whether
// this call changed anything.
func (d *Directory) MarkEnded(sessionID string) (models.CollabSession, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, ok := d.sessions[sessionID]
	if !ok {
		return models.CollabSession{}, false, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if !session.IsActive() {
		return *session, false, nil
	}

	endedAt := d.now()
	session.Status = models.SessionEnded
	session.EndedAt = &endedAt
	return *session, true, nil
}

// Active returns active sessions, oldest first
func (d *Directory) Active() []models.CollabSession {
	d.mu.RLock()
	defer d.mu.RUnlock()

	active := make([]models.CollabSession, 0)
	for _, session := range d.sessions {
		if session.IsActive() {
			active = append(active, *session)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].StartedAt.Equal(active[j].StartedAt) {
			return active[i].ID < active[j].ID
		}
		return active[i].StartedAt.Before(active[j].StartedAt)
	})
	return active
}
