package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yoockh/screencopilot/internal/models"
)

type SnapshotRepository interface {
	Insert(ctx context.Context, s *models.Snapshot) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Snapshot, error)
}

type snapshotRepo struct {
	db *gorm.DB
}

func NewSnapshotRepo(db *gorm.DB) SnapshotRepository {
	return &snapshotRepo{db: db}
}

func (r *snapshotRepo) Insert(ctx context.Context, s *models.Snapshot) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *snapshotRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Snapshot
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("captured_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
