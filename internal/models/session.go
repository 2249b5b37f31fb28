package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a collaboration session
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// CollabSession is a logical collaboration room scoped to a project.
// It outlives any individual connection: a session with zero live
// participants is still active until it is ended explicitly.
type CollabSession struct {
	ID         string            `json:"id" gorm:"type:char(27);primaryKey"`
	ProjectID  string            `json:"projectId" gorm:"type:varchar(128);not null;index"`
	HostUserID string            `json:"hostUserId" gorm:"type:varchar(128);not null"`
	Status     SessionStatus     `json:"status" gorm:"type:varchar(16);not null;index"`
	Metadata   map[string]string `json:"metadata,omitempty" gorm:"serializer:json;type:jsonb"`
	StartedAt  time.Time         `json:"startedAt"`
	EndedAt    *time.Time        `json:"endedAt,omitempty"`
}

// BeforeCreate hook generates KSUID before inserting
func (s *CollabSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = ksuid.New().String()
	}
	return nil
}

// TableName override
func (CollabSession) TableName() string {
	return "collab_sessions"
}

// IsActive reports whether the session still accepts participants
func (s *CollabSession) IsActive() bool {
	return s.Status == SessionActive
}

// NewCollabSession creates an active session with a fresh KSUID
func NewCollabSession(hostUserID, projectID string, metadata map[string]string, now time.Time) *CollabSession {
	return &CollabSession{
		ID:         ksuid.New().String(),
		ProjectID:  projectID,
		HostUserID: hostUserID,
		Status:     SessionActive,
		Metadata:   metadata,
		StartedAt:  now,
	}
}

// CursorPosition represents where a user's cursor is in the document
type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Participant is the presence summary of one live connection
type Participant struct {
	ConnectionID string          `json:"connectionId"`
	UserID       string          `json:"userId"`
	UserName     string          `json:"userName"`
	Cursor       *CursorPosition `json:"cursor,omitempty"`
	IsTyping     bool            `json:"isTyping"`
	LastActivity time.Time       `json:"lastActivity"`
}

// UserInfo identifies the author of an event
type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JoinSnapshot is what a newly admitted client receives
type JoinSnapshot struct {
	ConnectionID string           `json:"connectionId"`
	Session      CollabSession    `json:"session"`
	Participants []Participant    `json:"participants"`
	Document     DocumentSnapshot `json:"document"`
}
