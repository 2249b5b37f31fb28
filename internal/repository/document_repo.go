package repository

import (
	"context"
	"errors"
	"fmt"

	"quantum-collab/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRepositoryImpl snapshots project documents and their edit log
type DocumentRepositoryImpl struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
// Returns concrete type - "Accept interfaces, return structs"
func NewDocumentRepository(db *gorm.DB) *DocumentRepositoryImpl {
	return &DocumentRepositoryImpl{db: db}
}

// LoadDocument rebuilds a project's state from its snapshot and edit log.
// A project that was never saved yields (nil, nil).
func (r *DocumentRepositoryImpl) LoadDocument(ctx context.Context, projectID string) (*models.DocumentState, error) {
	var record models.DocumentRecord
	err := r.db.WithContext(ctx).First(&record, "project_id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", projectID, err)
	}

	var records []*models.EditRecord
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND version <= ?", projectID, record.Version).
		Order("version ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load edits for %s: %w", projectID, err)
	}

	edits := make([]models.Edit, 0, len(records))
	for _, rec := range records {
		edits = append(edits, rec.ToEdit())
	}

	return &models.DocumentState{
		ProjectID: projectID,
		Content:   record.Content,
		Version:   record.Version,
		Edits:     edits,
	}, nil
}

// SaveDocument upserts the snapshot and appends edits, which must be the
// last len(edits) edits leading up to snapshot.Version
func (r *DocumentRepositoryImpl) SaveDocument(ctx context.Context, projectID string, snapshot models.DocumentSnapshot, edits []models.Edit) error {
	first := snapshot.Version - len(edits) + 1
	if first < 1 {
		return fmt.Errorf("save %s: %d edits cannot lead to version %d", projectID, len(edits), snapshot.Version)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(edits) > 0 {
			records := make([]*models.EditRecord, 0, len(edits))
			for i, edit := range edits {
				records = append(records, &models.EditRecord{
					ProjectID: projectID,
					Version:   first + i,
					Operation: string(edit.Operation),
					Position:  edit.Position,
					Content:   edit.Content,
					AuthorID:  edit.AuthorID,
					CreatedAt: edit.Timestamp,
				})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error; err != nil {
				return fmt.Errorf("failed to append edits: %w", err)
			}
		}

		record := &models.DocumentRecord{
			ProjectID: projectID,
			Content:   snapshot.Content,
			Version:   snapshot.Version,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "version", "updated_at"}),
		}).Create(record).Error; err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	})
}
