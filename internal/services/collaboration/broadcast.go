package collaboration

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Broadcaster delivers events to live connections. Delivery is
// fire-and-forget: closed or full transports are skipped, never retried.
type Broadcaster struct {
	registry *Registry
	logger   zerolog.Logger
}

func NewBroadcaster(registry *Registry, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger,
	}
}

func (b *Broadcaster) encode(event any) ([]byte, bool) {
	if raw, ok := event.([]byte); ok {
		return raw, true
	}
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to encode event")
		return nil, false
	}
	return data, true
}

func (b *Broadcaster) deliver(conn *Connection, data []byte) {
	if conn.transport == nil || !conn.transport.IsOpen() {
		return
	}
	if err := conn.transport.Send(data); err != nil {
		b.logger.Debug().Err(err).
			Str("connection_id", conn.ID).
			Msg("dropped outbound message")
	}
}

// Unicast sends event to one connection if its transport is open
func (b *Broadcaster) Unicast(conn *Connection, event any) bool {
	if conn == nil || conn.transport == nil || !conn.transport.IsOpen() {
		return false
	}
	data, ok := b.encode(event)
	if !ok {
		return false
	}
	b.deliver(conn, data)
	return true
}

// Broadcast sends event to every open connection in the session except
// excludeConnectionID and returns the number of deliveries attempted
func (b *Broadcaster) Broadcast(sessionID string, event any, excludeConnectionID string) int {
	data, ok := b.encode(event)
	if !ok {
		return 0
	}

	attempted := 0
	for _, conn := range b.registry.inSession(sessionID) {
		if excludeConnectionID != "" && conn.ID == excludeConnectionID {
			continue
		}
		if conn.transport == nil || !conn.transport.IsOpen() {
			continue
		}
		b.deliver(conn, data)
		attempted++
	}
	return attempted
}

// SendToUser relays event to userID's connection in the session.
// It returns false when the user is not connected there.
func (b *Broadcaster) SendToUser(sessionID, userID string, event any) bool {
	conn, ok := b.registry.findUser(sessionID, userID)
	if !ok {
		return false
	}
	return b.Unicast(conn, event)
}
