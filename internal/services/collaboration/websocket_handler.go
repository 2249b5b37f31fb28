package collaboration

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"quantum-collab/internal/config"
	"quantum-collab/internal/middleware"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

/*
Each socket gets two goroutines: readPump feeds inbound frames to the hub
one at a time, writePump drains the buffered send channel. Close marks the
transport closed and closes the channel; writePump flushes what is queued
and then sends the close frame, so a final notice like session_ended
always reaches the client before the close.
*/

// wsTransport adapts a gorilla websocket connection to Transport
type wsTransport struct {
	conn *websocket.Conn
	send chan []byte
	cfg  config.HubConfig

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

func newWSTransport(conn *websocket.Conn, cfg config.HubConfig) *wsTransport {
	return &wsTransport{
		conn:      conn,
		send:      make(chan []byte, cfg.SendBuffer),
		cfg:       cfg,
		closeCode: websocket.CloseNormalClosure,
	}
}

func (t *wsTransport) Send(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTransportClosed
	}
	select {
	case t.send <- payload:
		return nil
	default:
		// a client that cannot keep up is dropped; readPump then removes it
		t.closeLocked(websocket.CloseTryAgainLater, "send buffer full")
		return ErrSendBufferFull
	}
}

func (t *wsTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

func (t *wsTransport) Close(code int, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked(code, reason)
	return nil
}

// closeLocked marks the transport closed. Caller holds mu.
func (t *wsTransport) closeLocked(code int, reason string) {
	if t.closed {
		return
	}
	t.closed = true
	t.closeCode = code
	t.closeReason = reason
	close(t.send)
}

func (t *wsTransport) closeFrame() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return websocket.FormatCloseMessage(t.closeCode, t.closeReason)
}

// writePump writes queued frames and keeps the connection alive with pings
func (t *wsTransport) writePump() {
	ticker := time.NewTicker(t.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case message, ok := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteWait))
			if !ok {
				t.conn.WriteMessage(websocket.CloseMessage, t.closeFrame())
				return
			}
			if err := t.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WebSocketHandler upgrades HTTP requests into hub connections
type WebSocketHandler struct {
	hub      *Hub
	cfg      config.HubConfig
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWebSocketHandler(hub *Hub, cfg config.HubConfig, logger zerolog.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = true
	}

	return &WebSocketHandler{
		hub:    hub,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
	}
}

// HandleConnection serves /ws/collaboration?userId&userName&sessionId&projectId
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := AdmitRequest{
		UserID:    query.Get("userId"),
		UserName:  query.Get("userName"),
		SessionID: query.Get("sessionId"),
		ProjectID: query.Get("projectId"),
	}

	ctx, span := middleware.StartSpan(r.Context(), "WebSocket.Connect",
		attribute.String("session.id", req.SessionID),
		attribute.String("project.id", req.ProjectID),
		attribute.String("user.id", req.UserID),
	)
	defer span.End()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		middleware.AddSpanError(ctx, err)
		return
	}

	// Admission failures close with 1008 before any hub state exists.
	// Validation runs after the upgrade so the client sees a close code
	// rather than a bare HTTP error.
	if err := req.validate(); err != nil {
		h.reject(ctx, conn, err)
		return
	}

	transport := newWSTransport(conn, h.cfg)
	connCtx := context.WithoutCancel(ctx)

	// writePump must be running before Admit queues session_joined
	go transport.writePump()

	client, _, err := h.hub.Admit(connCtx, req, transport)
	if err != nil {
		code, reason := websocket.ClosePolicyViolation, err.Error()
		if errors.Is(err, ErrStorageUnavailable) {
			// storage errors can outgrow a close frame's 123 byte reason
			code, reason = websocket.CloseInternalServerErr, ErrStorageUnavailable.Error()
		}
		transport.Close(code, reason)
		middleware.AddSpanError(ctx, err)
		h.logger.Info().Err(err).Str("session_id", req.SessionID).Msg("admission rejected")
		return
	}

	go h.readPump(connCtx, conn, transport, client)
}

func (h *WebSocketHandler) reject(ctx context.Context, conn *websocket.Conn, err error) {
	middleware.AddSpanError(ctx, err)
	h.logger.Info().Err(err).Msg("admission rejected")

	deadline := time.Now().Add(h.cfg.WriteWait)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), deadline)
	conn.Close()
}

// readPump feeds inbound frames to the hub until the socket closes, then
// removes the connection before returning.
func (h *WebSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, transport *wsTransport, client *Connection) {
	defer func() {
		h.hub.Remove(client.ID)
		transport.Close(websocket.CloseNormalClosure, "")
	}()

	conn.SetReadLimit(h.cfg.MaxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Warn().Err(err).Str("connection_id", client.ID).Msg("websocket read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		h.hub.Dispatch(ctx, client, message)
	}
}
