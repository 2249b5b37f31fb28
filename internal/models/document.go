package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// EditOperation is the kind of change carried by an Edit
type EditOperation string

const (
	EditInsert  EditOperation = "insert"
	EditDelete  EditOperation = "delete"
	EditReplace EditOperation = "replace"
)

// Edit is one applied change to a project document.
// Position is an absolute rune offset into the document content.
type Edit struct {
	Operation EditOperation `json:"operation"`
	Position  int           `json:"position"`
	Content   string        `json:"content"`
	AuthorID  string        `json:"authorId"`
	Timestamp time.Time     `json:"timestamp"`
}

// DocumentState is the shared buffer of a project.
// Version always equals len(Edits).
type DocumentState struct {
	ProjectID string `json:"projectId"`
	Content   string `json:"content"`
	Version   int    `json:"version"`
	Edits     []Edit `json:"edits"`
}

// DocumentSnapshot is the read-only view sent to clients
type DocumentSnapshot struct {
	Content string `json:"content"`
	Version int    `json:"version"`
}

// DocumentRecord persists the latest content of a project document
type DocumentRecord struct {
	ProjectID string    `gorm:"type:varchar(128);primaryKey"`
	Content   string    `gorm:"type:text;not null"`
	Version   int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName override
func (DocumentRecord) TableName() string {
	return "document_snapshots"
}

// EditRecord persists one entry of a document's edit log
type EditRecord struct {
	ID        string    `gorm:"type:char(27);primaryKey"`
	ProjectID string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_project_version"`
	Version   int       `gorm:"not null;uniqueIndex:idx_project_version"` // version produced by this edit
	Operation string    `gorm:"type:varchar(16);not null"`
	Position  int       `gorm:"not null"`
	Content   string    `gorm:"type:text"`
	AuthorID  string    `gorm:"type:varchar(128)"`
	CreatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates KSUID
func (e *EditRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = ksuid.New().String()
	}
	return nil
}

// TableName override
func (EditRecord) TableName() string {
	return "document_edits"
}

// ToEdit converts a stored record back into an Edit
func (e *EditRecord) ToEdit() Edit {
	return Edit{
		Operation: EditOperation(e.Operation),
		Position:  e.Position,
		Content:   e.Content,
		AuthorID:  e.AuthorID,
		Timestamp: e.CreatedAt,
	}
}
