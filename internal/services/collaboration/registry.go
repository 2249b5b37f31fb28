package collaboration

import (
	"sort"
	"sync"
	"time"

	"quantum-collab/internal/models"

	"github.com/segmentio/ksuid"
)

// Transport is the outbound half of a live client attachment.
// Send must not block: it enqueues or fails.
type Transport interface {
	Send(payload []byte) error
	IsOpen() bool
	Close(code int, reason string) error
}

// Connection is one live client attachment, owned by the Registry.
// Presence fields are guarded by the registry lock.
type Connection struct {
	ID          string
	UserID      string
	UserName    string
	SessionID   string
	ProjectID   string
	ConnectedAt time.Time

	transport    Transport
	cursor       *models.CursorPosition
	isTyping     bool
	lastActivity time.Time
}

func (c *Connection) user() models.UserInfo {
	return models.UserInfo{ID: c.UserID, Name: c.UserName}
}

// Registry tracks live connections and their presence state
type Registry struct {
	conns map[string]*Connection
	mu    sync.RWMutex
	now   func() time.Time
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		conns: make(map[string]*Connection),
		now:   now,
	}
}

func (r *Registry) add(userID, userName, sessionID, projectID string, t Transport) *Connection {
	now := r.now()
	conn := &Connection{
		ID:           ksuid.New().String(),
		UserID:       userID,
		UserName:     userName,
		SessionID:    sessionID,
		ProjectID:    projectID,
		ConnectedAt:  now,
		transport:    t,
		lastActivity: now,
	}

	r.mu.Lock()
	r.conns[conn.ID] = conn
	r.mu.Unlock()

	return conn
}

// remove deletes the connection and reports whether it was typing
func (r *Registry) remove(connectionID string) (conn *Connection, wasTyping bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok = r.conns[connectionID]
	if !ok {
		return nil, false, false
	}
	delete(r.conns, connectionID)
	return conn, conn.isTyping, true
}

// removeSession deletes every connection in the session and returns them
func (r *Registry) removeSession(sessionID string) []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Connection
	for id, conn := range r.conns {
		if conn.SessionID == sessionID {
			delete(r.conns, id)
			removed = append(removed, conn)
		}
	}
	return removed
}

// Get returns the connection with the given id
func (r *Registry) Get(connectionID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connectionID]
	return conn, ok
}

// inSession returns the connections of a session, oldest first
func (r *Registry) inSession(sessionID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []*Connection
	for _, conn := range r.conns {
		if conn.SessionID == sessionID {
			conns = append(conns, conn)
		}
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].ID < conns[j].ID })
	return conns
}

// findUser returns the first connection of userID in the session
func (r *Registry) findUser(sessionID, userID string) (*Connection, bool) {
	for _, conn := range r.inSession(sessionID) {
		if conn.UserID == userID {
			return conn, true
		}
	}
	return nil, false
}

// ParticipantsOf returns the presence summary of every live connection in the session
func (r *Registry) ParticipantsOf(sessionID string) []models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participants := make([]models.Participant, 0)
	for _, conn := range r.conns {
		if conn.SessionID != sessionID {
			continue
		}
		p := models.Participant{
			ConnectionID: conn.ID,
			UserID:       conn.UserID,
			UserName:     conn.UserName,
			IsTyping:     conn.isTyping,
			LastActivity: conn.lastActivity,
		}
		if conn.cursor != nil {
			cursor := *conn.cursor
			p.Cursor = &cursor
		}
		participants = append(participants, p)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ConnectionID < participants[j].ConnectionID
	})
	return participants
}

// Count returns the number of live connections in the session
func (r *Registry) Count(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, conn := range r.conns {
		if conn.SessionID == sessionID {
			n++
		}
	}
	return n
}

// Len returns the number of live connections across all sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Touch stamps the connection's last activity
func (r *Registry) Touch(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[connectionID]; ok {
		conn.lastActivity = r.now()
	}
}

// SetCursor records the connection's cursor position
func (r *Registry) SetCursor(connectionID string, cursor models.CursorPosition) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[connectionID]
	if !ok {
		return false
	}
	conn.cursor = &cursor
	return true
}

// SetTyping updates the typing flag and reports whether it changed
func (r *Registry) SetTyping(connectionID string, typing bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[connectionID]
	if !ok || conn.isTyping == typing {
		return false
	}
	conn.isTyping = typing
	return true
}

// all returns every live connection
func (r *Registry) all() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}
