package models

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is a file or link shared in chat
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// ChatMessage is a session-scoped chat line. It is broadcast and then
// forgotten; persistence is up to whoever consumes the event stream.
type ChatMessage struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"sessionId"`
	UserID      string       `json:"userId"`
	UserName    string       `json:"userName"`
	Content     string       `json:"content"`
	Type        string       `json:"messageType"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// NewChatMessage stamps a chat message with a fresh id. Empty types default to "text".
func NewChatMessage(sessionID, userID, userName, content, msgType string, attachments []Attachment, now time.Time) *ChatMessage {
	if msgType == "" {
		msgType = "text"
	}
	return &ChatMessage{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		UserID:      userID,
		UserName:    userName,
		Content:     content,
		Type:        msgType,
		Attachments: attachments,
		Timestamp:   now,
	}
}
