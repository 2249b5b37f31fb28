package repository

import (
	"context"
	"errors"
	"fmt"

	"quantum-collab/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned for lookups of rows that do not exist
var ErrNotFound = errors.New("record not found")

// SessionRepositoryImpl persists the session directory
type SessionRepositoryImpl struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) *SessionRepositoryImpl {
	return &SessionRepositoryImpl{db: db}
}

// SaveSession inserts or updates a session row
// Learning: Save() upserts on the primary key
func (r *SessionRepositoryImpl) SaveSession(ctx context.Context, session *models.CollabSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// GetSession retrieves a session by id
func (r *SessionRepositoryImpl) GetSession(ctx context.Context, id string) (*models.CollabSession, error) {
	var session models.CollabSession

	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// ListActiveSessions returns active sessions, oldest first
func (r *SessionRepositoryImpl) ListActiveSessions(ctx context.Context) ([]*models.CollabSession, error) {
	var sessions []*models.CollabSession

	err := r.db.WithContext(ctx).
		Where("status = ?", models.SessionActive).
		Order("started_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}

	return sessions, nil
}
