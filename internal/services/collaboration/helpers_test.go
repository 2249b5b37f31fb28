package collaboration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"quantum-collab/internal/models"
	"quantum-collab/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu          sync.Mutex
	frames      [][]byte
	closed      bool
	closeCode   int
	closeReason string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{}
}

func (f *fakeTransport) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrTransportClosed
	}
	f.frames = append(f.frames, payload)
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeTransport) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.closeCode = code
	f.closeReason = reason
	return nil
}

// events decodes every frame received so far
func (f *fakeTransport) events(t *testing.T) []map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(f.frames))
	for _, frame := range f.frames {
		var event map[string]interface{}
		require.NoError(t, json.Unmarshal(frame, &event))
		out = append(out, event)
	}
	return out
}

func (f *fakeTransport) ofType(t *testing.T, eventType models.MessageType) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, event := range f.events(t) {
		if event["type"] == string(eventType) {
			out = append(out, event)
		}
	}
	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publishedEvent struct {
	sessionID string
	event     any
}

type fakeSink struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (s *fakeSink) Publish(_ context.Context, sessionID string, event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, publishedEvent{sessionID: sessionID, event: event})
	return nil
}

func (s *fakeSink) types() []models.MessageType {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.MessageType
	for _, e := range s.events {
		data, _ := json.Marshal(e.event)
		var env envelope
		_ = json.Unmarshal(data, &env)
		out = append(out, env.Type)
	}
	return out
}

type fakeSessionStore struct {
	mu     sync.Mutex
	saved  []models.CollabSession
	active []*models.CollabSession
	getErr error
}

func (s *fakeSessionStore) SaveSession(_ context.Context, session *models.CollabSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, *session)
	return nil
}

// GetSession returns the last saved version of a session, then restored ones
func (s *fakeSessionStore) GetSession(_ context.Context, id string) (*models.CollabSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].ID == id {
			session := s.saved[i]
			return &session, nil
		}
	}
	for _, session := range s.active {
		if session.ID == id {
			return session, nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
}

func (s *fakeSessionStore) ListActiveSessions(context.Context) ([]*models.CollabSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []*models.CollabSession
	for _, session := range s.active {
		active = append(active, session)
	}
	return active, nil
}

func (s *fakeSessionStore) last() models.CollabSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[len(s.saved)-1]
}

type savedDocument struct {
	projectID string
	snapshot  models.DocumentSnapshot
	edits     []models.Edit
}

type fakeDocumentRepo struct {
	mu     sync.Mutex
	stored map[string]*models.DocumentState
	saves  []savedDocument
	loads  int
	// failLoads makes the next n LoadDocument calls fail
	failLoads int
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{stored: make(map[string]*models.DocumentState)}
}

func (r *fakeDocumentRepo) LoadDocument(_ context.Context, projectID string) (*models.DocumentState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.failLoads > 0 {
		r.failLoads--
		return nil, fmt.Errorf("load %s: connection reset", projectID)
	}
	return r.stored[projectID], nil
}

func (r *fakeDocumentRepo) SaveDocument(_ context.Context, projectID string, snapshot models.DocumentSnapshot, edits []models.Edit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, savedDocument{projectID: projectID, snapshot: snapshot, edits: edits})
	return nil
}

func newTestHub(t *testing.T) (*Hub, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewHub(zerolog.Nop(), clock.Now), clock
}

func join(t *testing.T, hub *Hub, userID, sessionID, projectID string) (*Connection, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport()
	conn, _, err := hub.Admit(context.Background(), AdmitRequest{
		UserID:    userID,
		UserName:  "name-" + userID,
		SessionID: sessionID,
		ProjectID: projectID,
	}, transport)
	require.NoError(t, err)
	return conn, transport
}

func snapshotOf(t *testing.T, hub *Hub, projectID string) models.DocumentSnapshot {
	t.Helper()
	snapshot, err := hub.Snapshot(context.Background(), projectID)
	require.NoError(t, err)
	return snapshot
}

func send(t *testing.T, hub *Hub, conn *Connection, msg map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	hub.Dispatch(context.Background(), conn, raw)
}
