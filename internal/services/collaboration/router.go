package collaboration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quantum-collab/internal/middleware"
	"quantum-collab/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

type handlerFunc func(ctx context.Context, conn *Connection, raw []byte) error

type envelope struct {
	Type models.MessageType `json:"type"`
}

type codeEditMessage struct {
	Operation models.EditOperation `json:"operation"`
	Position  int                  `json:"position"`
	Content   string               `json:"content"`
	Version   *int                 `json:"version"`
}

type cursorMoveMessage struct {
	Cursor *models.CursorPosition `json:"cursor"`
}

type chatMessage struct {
	Content     string              `json:"content"`
	MessageType string              `json:"messageType"`
	Attachments []models.Attachment `json:"attachments"`
}

type dataMessage struct {
	Data json.RawMessage `json:"data"`
}

func (h *Hub) routes() map[models.MessageType]handlerFunc {
	return map[models.MessageType]handlerFunc{
		models.MessageCodeEdit:          h.handleCodeEdit,
		models.MessageCursorMove:        h.handleCursorMove,
		models.MessageTypingStart:       h.typingHandler(true),
		models.MessageTypingStop:        h.typingHandler(false),
		models.MessageVoiceOffer:        h.handleRelay,
		models.MessageVoiceAnswer:       h.handleRelay,
		models.MessageVoiceICECandidate: h.handleRelay,
		models.MessageScreenShareStart:  h.presenceHandler(models.EventScreenShareStarted),
		models.MessageScreenShareStop:   h.presenceHandler(models.EventScreenShareStopped),
		models.MessageChat:              h.handleChat,
		models.MessageWhiteboardDraw:    h.dataRelayHandler(models.EventWhiteboardUpdated),
		models.MessageCircuitEdit:       h.dataRelayHandler(models.EventCircuitUpdated),
	}
}

// Dispatch decodes one inbound frame from conn and runs its handler.
// It never panics and never reports errors to the sender: malformed and
// unknown messages are logged and dropped, the connection stays up.
func (h *Hub) Dispatch(ctx context.Context, conn *Connection, raw []byte) {
	if _, live := h.registry.Get(conn.ID); !live {
		return
	}
	h.registry.Touch(conn.ID)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Warn().Err(err).
			Str("connection_id", conn.ID).
			Int("size", len(raw)).
			Msg("malformed message")
		return
	}

	ctx, span := middleware.StartSpan(ctx, "Collaboration.Dispatch",
		attribute.String("session.id", conn.SessionID),
		attribute.String("connection.id", conn.ID),
		attribute.String("message.type", string(env.Type)),
		attribute.Int("message.size", len(raw)),
	)
	defer span.End()

	handler, ok := h.handlers[env.Type]
	if !ok {
		h.logger.Debug().
			Str("connection_id", conn.ID).
			Str("type", string(env.Type)).
			Msg("ignoring unknown message type")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in %s handler: %v", env.Type, r)
			middleware.AddSpanError(ctx, err)
			h.logger.Error().Err(err).Str("connection_id", conn.ID).Msg("handler panic recovered")
		}
	}()

	if err := handler(ctx, conn, raw); err != nil {
		middleware.AddSpanError(ctx, err)
		h.logger.Warn().Err(err).
			Str("connection_id", conn.ID).
			Str("type", string(env.Type)).
			Msg("message handling failed")
	}
}

func (h *Hub) handleCodeEdit(ctx context.Context, conn *Connection, raw []byte) error {
	var msg codeEditMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode code_edit: %w", err)
	}

	// held until the result is broadcast so admissions see a consistent order
	seq := h.projectLock(conn.ProjectID)
	seq.Lock()
	defer seq.Unlock()

	current := h.documents.Snapshot(conn.ProjectID).Version
	if msg.Version == nil {
		h.broadcaster.Unicast(conn, editRejectedEvent{
			Type:    models.EventEditRejected,
			Reason:  "version is required",
			Version: current,
		})
		return fmt.Errorf("%w: version", ErrMissingParameter)
	}

	edit := models.Edit{
		Operation: msg.Operation,
		Position:  msg.Position,
		Content:   msg.Content,
		AuthorID:  conn.UserID,
		Timestamp: h.now(),
	}

	newVersion, err := h.documents.TryApplyEdit(conn.ProjectID, edit, *msg.Version)
	if err != nil {
		var syncErr *SyncRequiredError
		if errors.As(err, &syncErr) {
			h.broadcaster.Unicast(conn, syncRequiredEvent{
				Type:           models.EventSyncRequired,
				CurrentVersion: syncErr.CurrentVersion,
				CurrentState:   syncErr.State,
			})
			middleware.AddSpanEvent(ctx, "sync_required",
				attribute.Int("client.version", *msg.Version),
				attribute.Int("document.version", syncErr.CurrentVersion),
			)
			return nil
		}

		h.broadcaster.Unicast(conn, editRejectedEvent{
			Type:    models.EventEditRejected,
			Reason:  err.Error(),
			Version: newVersion,
		})
		return err
	}

	h.broadcaster.Broadcast(conn.SessionID, editAppliedEvent{
		Type:       models.EventCodeEditApplied,
		Edit:       edit,
		Author:     conn.user(),
		NewVersion: newVersion,
	}, conn.ID)
	return nil
}

func (h *Hub) handleCursorMove(ctx context.Context, conn *Connection, raw []byte) error {
	var msg cursorMoveMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode cursor_move: %w", err)
	}
	if msg.Cursor == nil {
		return fmt.Errorf("%w: cursor", ErrMissingParameter)
	}

	if !h.registry.SetCursor(conn.ID, *msg.Cursor) {
		return nil
	}
	h.broadcaster.Broadcast(conn.SessionID, cursorMovedEvent{
		Type:   models.EventCursorMoved,
		User:   conn.user(),
		Cursor: *msg.Cursor,
	}, conn.ID)
	return nil
}

func (h *Hub) typingHandler(typing bool) handlerFunc {
	event := models.EventTypingStopped
	if typing {
		event = models.EventTypingStarted
	}
	return func(ctx context.Context, conn *Connection, raw []byte) error {
		if !h.registry.SetTyping(conn.ID, typing) {
			return nil
		}
		h.broadcaster.Broadcast(conn.SessionID, userEvent{
			Type:      event,
			User:      conn.user(),
			Timestamp: h.now(),
		}, conn.ID)
		return nil
	}
}

// handleRelay forwards WebRTC signaling to targetUserId in the same
// session. The frame is passed through untouched apart from the sender
// tags; an absent target means the message is dropped.
func (h *Hub) handleRelay(ctx context.Context, conn *Connection, raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("decode relay: %w", err)
	}

	var target string
	if rawTarget, ok := fields["targetUserId"]; ok {
		if err := json.Unmarshal(rawTarget, &target); err != nil {
			return fmt.Errorf("decode targetUserId: %w", err)
		}
	}
	if target == "" {
		return fmt.Errorf("%w: targetUserId", ErrMissingParameter)
	}

	fromID, _ := json.Marshal(conn.UserID)
	fromName, _ := json.Marshal(conn.UserName)
	fields["fromUserId"] = fromID
	fields["fromUserName"] = fromName

	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode relay: %w", err)
	}

	if !h.broadcaster.SendToUser(conn.SessionID, target, payload) {
		h.logger.Debug().
			Str("session_id", conn.SessionID).
			Str("target_user_id", target).
			Msg("relay target not connected, dropping")
	}
	return nil
}

func (h *Hub) presenceHandler(event models.MessageType) handlerFunc {
	return func(ctx context.Context, conn *Connection, raw []byte) error {
		h.broadcaster.Broadcast(conn.SessionID, userEvent{
			Type:      event,
			User:      conn.user(),
			Timestamp: h.now(),
		}, conn.ID)
		return nil
	}
}

func (h *Hub) handleChat(ctx context.Context, conn *Connection, raw []byte) error {
	var msg chatMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode chat_message: %w", err)
	}

	chat := models.NewChatMessage(conn.SessionID, conn.UserID, conn.UserName,
		msg.Content, msg.MessageType, msg.Attachments, h.now())
	event := chatEvent{Type: models.EventChatReceived, Message: chat}

	// the sender is included so its own UI sees the delivery
	h.broadcaster.Broadcast(conn.SessionID, event, "")
	h.publish(conn.SessionID, event)
	return nil
}

// dataRelayHandler rebroadcasts the opaque "data" payload; the hub keeps
// no whiteboard or circuit state of its own.
func (h *Hub) dataRelayHandler(event models.MessageType) handlerFunc {
	return func(ctx context.Context, conn *Connection, raw []byte) error {
		var msg dataMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		h.broadcaster.Broadcast(conn.SessionID, relayPayloadEvent{
			Type: event,
			User: conn.user(),
			Data: msg.Data,
		}, conn.ID)
		return nil
	}
}
