package collaboration

import (
	"encoding/json"
	"time"

	"quantum-collab/internal/models"
)

// Outbound event payloads. Field names follow the dashboard client's
// camelCase convention.

type sessionJoinedEvent struct {
	Type models.MessageType `json:"type"`
	models.JoinSnapshot
}

type presenceEvent struct {
	Type             models.MessageType `json:"type"`
	SessionID        string             `json:"sessionId"`
	User             models.UserInfo    `json:"user"`
	ParticipantCount int                `json:"participantCount"`
	Timestamp        time.Time          `json:"timestamp"`
}

type userEvent struct {
	Type      models.MessageType `json:"type"`
	User      models.UserInfo    `json:"user"`
	Timestamp time.Time          `json:"timestamp"`
}

type editAppliedEvent struct {
	Type       models.MessageType `json:"type"`
	Edit       models.Edit        `json:"edit"`
	Author     models.UserInfo    `json:"author"`
	NewVersion int                `json:"newVersion"`
}

type syncRequiredEvent struct {
	Type           models.MessageType      `json:"type"`
	CurrentVersion int                     `json:"currentVersion"`
	CurrentState   models.DocumentSnapshot `json:"currentState"`
}

type editRejectedEvent struct {
	Type    models.MessageType `json:"type"`
	Reason  string             `json:"reason"`
	Version int                `json:"version"`
}

type cursorMovedEvent struct {
	Type   models.MessageType    `json:"type"`
	User   models.UserInfo       `json:"user"`
	Cursor models.CursorPosition `json:"cursor"`
}

type chatEvent struct {
	Type    models.MessageType  `json:"type"`
	Message *models.ChatMessage `json:"message"`
}

type relayPayloadEvent struct {
	Type models.MessageType `json:"type"`
	User models.UserInfo    `json:"user"`
	Data json.RawMessage    `json:"data,omitempty"`
}

type sessionEndedEvent struct {
	Type      models.MessageType `json:"type"`
	SessionID string             `json:"sessionId"`
	Reason    string             `json:"reason"`
	EndedAt   *time.Time         `json:"endedAt,omitempty"`
}

type sessionStartedEvent struct {
	Type    models.MessageType   `json:"type"`
	Session models.CollabSession `json:"session"`
}
