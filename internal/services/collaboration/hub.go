package collaboration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quantum-collab/internal/models"
	"quantum-collab/internal/repository"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

/*
Hub is the single coordinator of the collaboration core. It is built once
at process start and owns the registry, the session directory, the
document store and the broadcaster; the websocket handler and the HTTP
API talk to it by reference.

Locking: each component guards its own state. lifecycleMu additionally
serialises admission against EndSession so a client cannot slip into a
session while it is being torn down. A per-project sequence lock orders
edit application and its broadcast against admission, so a joining client
sees its join snapshot first and then exactly the edits after it.

Persistence: a project is written back only after it was hydrated from the
document repository. A failed load leaves no in-memory document behind and
fails the caller, so an empty buffer can never overwrite a stored one.
*/

// AdmitRequest carries the identity and context of a connecting client
type AdmitRequest struct {
	UserID    string
	UserName  string
	SessionID string
	ProjectID string
}

func (r AdmitRequest) validate() error {
	for _, f := range []struct{ name, value string }{
		{"userId", r.UserID},
		{"userName", r.UserName},
		{"sessionId", r.SessionID},
		{"projectId", r.ProjectID},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingParameter, f.name)
		}
	}
	return nil
}

type Hub struct {
	registry    *Registry
	directory   *Directory
	documents   *DocumentStore
	broadcaster *Broadcaster
	handlers    map[models.MessageType]handlerFunc

	sessionStore SessionStore
	docRepo      DocumentRepository
	sink         EventSink

	// last version written to docRepo, per hydrated project
	persisted   map[string]int
	persistMu   sync.Mutex
	flushMu     sync.Mutex
	lifecycleMu sync.RWMutex

	sequence   map[string]*sync.Mutex
	sequenceMu sync.Mutex

	snapshotInterval time.Duration
	logger           zerolog.Logger
	now              func() time.Time

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub creates a hub. A nil clock means time.Now.
func NewHub(logger zerolog.Logger, now func() time.Time) *Hub {
	if now == nil {
		now = time.Now
	}
	registry := NewRegistry(now)
	h := &Hub{
		registry:         registry,
		directory:        NewDirectory(now),
		documents:        NewDocumentStore(),
		broadcaster:      NewBroadcaster(registry, logger),
		persisted:        make(map[string]int),
		sequence:         make(map[string]*sync.Mutex),
		snapshotInterval: 30 * time.Second,
		logger:           logger,
		now:              now,
		done:             make(chan struct{}),
	}
	h.handlers = h.routes()
	return h
}

// SetSessionStore mirrors the session directory to store
func (h *Hub) SetSessionStore(store SessionStore) {
	h.sessionStore = store
}

// SetDocumentRepository enables document hydration and snapshotting
func (h *Hub) SetDocumentRepository(repo DocumentRepository) {
	h.docRepo = repo
}

// SetEventSink forwards lifecycle events to sink
func (h *Hub) SetEventSink(sink EventSink) {
	h.sink = sink
}

// SetSnapshotInterval changes how often documents are persisted
func (h *Hub) SetSnapshotInterval(d time.Duration) {
	if d > 0 {
		h.snapshotInterval = d
	}
}

// Documents exposes the document store
func (h *Hub) Documents() *DocumentStore {
	return h.documents
}

// Restore reloads active sessions from the session store
func (h *Hub) Restore(ctx context.Context) error {
	if h.sessionStore == nil {
		return nil
	}

	sessions, err := h.sessionStore.ListActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore sessions: %w", err)
	}

	restored := 0
	for _, s := range sessions {
		if h.directory.Put(*s) {
			restored++
		}
	}
	h.logger.Info().Int("sessions", restored).Msg("restored active sessions")
	return nil
}

// Start runs the snapshot loop when a document repository is configured
func (h *Hub) Start() {
	if h.docRepo == nil {
		h.logger.Info().Msg("collaboration hub started (in-memory documents)")
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.snapshotLoop()
	}()
	h.logger.Info().Dur("interval", h.snapshotInterval).Msg("collaboration hub started")
}

func (h *Hub) snapshotLoop() {
	ticker := time.NewTicker(h.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.snapshotInterval)
			if err := h.FlushSnapshots(ctx); err != nil {
				h.logger.Warn().Err(err).Msg("snapshot flush incomplete")
			}
			cancel()
		}
	}
}

// FlushSnapshots writes every document that changed since its last save
func (h *Hub) FlushSnapshots(ctx context.Context) error {
	if h.docRepo == nil {
		return nil
	}

	h.flushMu.Lock()
	defer h.flushMu.Unlock()

	var firstErr error
	for _, projectID := range h.documents.Projects() {
		h.persistMu.Lock()
		since, hydrated := h.persisted[projectID]
		h.persistMu.Unlock()
		if !hydrated {
			h.logger.Warn().Str("project_id", projectID).Msg("skipping snapshot of document that was never loaded")
			continue
		}

		snapshot, edits := h.documents.EditsSince(projectID, since)
		if len(edits) == 0 {
			continue
		}

		if err := h.docRepo.SaveDocument(ctx, projectID, snapshot, edits); err != nil {
			h.logger.Error().Err(err).Str("project_id", projectID).Msg("failed to save document snapshot")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		h.persistMu.Lock()
		h.persisted[projectID] = snapshot.Version
		h.persistMu.Unlock()
	}
	return firstErr
}

// hydrate loads a persisted document the first time a project is touched.
// On error no in-memory state is created for the project.
func (h *Hub) hydrate(ctx context.Context, projectID string) error {
	if h.docRepo == nil || h.documents.Has(projectID) {
		return nil
	}

	state, err := h.docRepo.LoadDocument(ctx, projectID)
	if err != nil {
		return fmt.Errorf("%w: load document %s: %v", ErrStorageUnavailable, projectID, err)
	}
	if state == nil {
		state = &models.DocumentState{ProjectID: projectID}
	}
	state.ProjectID = projectID

	h.persistMu.Lock()
	defer h.persistMu.Unlock()

	seeded, err := h.documents.Seed(*state)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if seeded {
		h.persisted[projectID] = state.Version
	}
	return nil
}

// recall installs a stored session the directory does not hold yet, so an
// ended session stays ended across restarts
func (h *Hub) recall(ctx context.Context, sessionID string) error {
	if h.sessionStore == nil {
		return nil
	}
	if _, ok := h.directory.Get(sessionID); ok {
		return nil
	}

	stored, err := h.sessionStore.GetSession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: lookup session %s: %v", ErrStorageUnavailable, sessionID, err)
	}
	h.directory.Put(*stored)
	return nil
}

// projectLock returns the sequence lock of a project
func (h *Hub) projectLock(projectID string) *sync.Mutex {
	h.sequenceMu.Lock()
	defer h.sequenceMu.Unlock()

	mu, ok := h.sequence[projectID]
	if !ok {
		mu = &sync.Mutex{}
		h.sequence[projectID] = mu
	}
	return mu
}

// Admit registers a new connection, sends it the join snapshot and
// announces it to the rest of the session.
func (h *Hub) Admit(ctx context.Context, req AdmitRequest, transport Transport) (*Connection, *models.JoinSnapshot, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}

	if err := h.recall(ctx, req.SessionID); err != nil {
		return nil, nil, err
	}
	if err := h.hydrate(ctx, req.ProjectID); err != nil {
		return nil, nil, err
	}

	seq := h.projectLock(req.ProjectID)
	seq.Lock()

	h.lifecycleMu.RLock()
	session, created, err := h.directory.Ensure(req.SessionID, req.UserID, req.ProjectID)
	if err != nil {
		h.lifecycleMu.RUnlock()
		seq.Unlock()
		return nil, nil, err
	}
	conn := h.registry.add(req.UserID, req.UserName, req.SessionID, req.ProjectID, transport)
	h.lifecycleMu.RUnlock()

	snapshot := &models.JoinSnapshot{
		ConnectionID: conn.ID,
		Session:      session,
		Participants: h.registry.ParticipantsOf(req.SessionID),
		Document:     h.documents.Snapshot(req.ProjectID),
	}
	h.broadcaster.Unicast(conn, sessionJoinedEvent{Type: models.EventSessionJoined, JoinSnapshot: *snapshot})
	seq.Unlock()

	if created {
		h.persistSession(ctx, session)
		h.publish(session.ID, sessionStartedEvent{Type: models.EventSessionStarted, Session: session})
	}

	joined := presenceEvent{
		Type:             models.EventUserJoined,
		SessionID:        conn.SessionID,
		User:             conn.user(),
		ParticipantCount: len(snapshot.Participants),
		Timestamp:        conn.ConnectedAt,
	}
	h.broadcaster.Broadcast(conn.SessionID, joined, conn.ID)
	h.publish(conn.SessionID, joined)

	h.logger.Info().
		Str("connection_id", conn.ID).
		Str("session_id", conn.SessionID).
		Str("project_id", conn.ProjectID).
		Str("user_id", conn.UserID).
		Int("participants", len(snapshot.Participants)).
		Msg("participant joined")

	return conn, snapshot, nil
}

// Remove drops a connection. It is idempotent and reports whether the
// connection was still registered.
func (h *Hub) Remove(connectionID string) bool {
	conn, wasTyping, ok := h.registry.remove(connectionID)
	if !ok {
		return false
	}

	now := h.now()
	if wasTyping {
		h.broadcaster.Broadcast(conn.SessionID, userEvent{
			Type:      models.EventTypingStopped,
			User:      conn.user(),
			Timestamp: now,
		}, "")
	}

	left := presenceEvent{
		Type:             models.EventUserLeft,
		SessionID:        conn.SessionID,
		User:             conn.user(),
		ParticipantCount: h.registry.Count(conn.SessionID),
		Timestamp:        now,
	}
	h.broadcaster.Broadcast(conn.SessionID, left, "")
	h.publish(conn.SessionID, left)

	h.logger.Info().
		Str("connection_id", conn.ID).
		Str("session_id", conn.SessionID).
		Str("user_id", conn.UserID).
		Int("remaining", left.ParticipantCount).
		Msg("participant left")

	return true
}

// ParticipantsOf returns presence summaries for the session's live connections
func (h *Hub) ParticipantsOf(sessionID string) []models.Participant {
	return h.registry.ParticipantsOf(sessionID)
}

// ParticipantCount is the number of live connections in the session
func (h *Hub) ParticipantCount(sessionID string) int {
	return h.registry.Count(sessionID)
}

// CreateSession starts a new active session
func (h *Hub) CreateSession(ctx context.Context, hostUserID, projectID string, metadata map[string]string) models.CollabSession {
	session := h.directory.Create(hostUserID, projectID, metadata)
	h.persistSession(ctx, session)
	h.publish(session.ID, sessionStartedEvent{Type: models.EventSessionStarted, Session: session})

	h.logger.Info().
		Str("session_id", session.ID).
		Str("project_id", projectID).
		Str("host_user_id", hostUserID).
		Msg("session created")
	return session
}

// Session looks up a session by id
func (h *Hub) Session(sessionID string) (models.CollabSession, bool) {
	return h.directory.Get(sessionID)
}

// ActiveSessions lists sessions that have not ended
func (h *Hub) ActiveSessions() []models.CollabSession {
	return h.directory.Active()
}

// EndSession marks the session ended, notifies every live participant
// with session_ended and then closes their sockets. Ending an ended
// session is a no-op.
func (h *Hub) EndSession(ctx context.Context, sessionID string) (models.CollabSession, error) {
	if err := h.recall(ctx, sessionID); err != nil {
		return models.CollabSession{}, err
	}

	h.lifecycleMu.Lock()
	session, changed, err := h.directory.MarkEnded(sessionID)
	if err != nil || !changed {
		h.lifecycleMu.Unlock()
		return session, err
	}
	conns := h.registry.removeSession(sessionID)
	h.lifecycleMu.Unlock()

	ended := sessionEndedEvent{
		Type:      models.EventSessionEnded,
		SessionID: sessionID,
		Reason:    "ended_by_host",
		EndedAt:   session.EndedAt,
	}
	for _, conn := range conns {
		h.broadcaster.Unicast(conn, ended)
		if conn.transport != nil {
			if err := conn.transport.Close(websocket.CloseNormalClosure, "session ended"); err != nil {
				h.logger.Debug().Err(err).Str("connection_id", conn.ID).Msg("close after session end")
			}
		}
	}

	h.persistSession(ctx, session)
	h.publish(sessionID, ended)

	h.logger.Info().
		Str("session_id", sessionID).
		Int("closed_connections", len(conns)).
		Msg("session ended")
	return session, nil
}

// GenerateSuggestions evaluates the advisory rules against the session's
// current participants
func (h *Hub) GenerateSuggestions(sessionID string) []models.Suggestion {
	return GenerateSuggestions(h.registry.ParticipantsOf(sessionID), h.now())
}

// Snapshot returns a project's document content and version
func (h *Hub) Snapshot(ctx context.Context, projectID string) (models.DocumentSnapshot, error) {
	if err := h.hydrate(ctx, projectID); err != nil {
		return models.DocumentSnapshot{}, err
	}
	return h.documents.Snapshot(projectID), nil
}

// Shutdown stops background work, flushes documents and closes every socket
func (h *Hub) Shutdown(ctx context.Context) {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()

	if err := h.FlushSnapshots(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("final snapshot flush incomplete")
	}

	conns := h.registry.all()
	for _, conn := range conns {
		h.registry.remove(conn.ID)
		if conn.transport != nil {
			_ = conn.transport.Close(websocket.CloseGoingAway, "server shutting down")
		}
	}
	h.logger.Info().Int("closed_connections", len(conns)).Msg("collaboration hub stopped")
}

// persistSession is synchronous so a create and a quick end cannot be
// written out of order. Failures are logged; the directory stays authoritative.
func (h *Hub) persistSession(ctx context.Context, session models.CollabSession) {
	if h.sessionStore == nil {
		return
	}
	if err := h.sessionStore.SaveSession(ctx, &session); err != nil {
		h.logger.Error().Err(err).Str("session_id", session.ID).Msg("failed to persist session")
	}
}

// publish hands event to the sink inline; the sink must not block
func (h *Hub) publish(sessionID string, event any) {
	if h.sink == nil {
		return
	}
	if err := h.sink.Publish(context.Background(), sessionID, event); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to publish event")
	}
}
