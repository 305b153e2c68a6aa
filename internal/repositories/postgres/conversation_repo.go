package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yoockh/screencopilot/internal/models"
)

type ConversationRepo interface {
	Insert(ctx context.Context, log *models.ConversationLog) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ConversationLog, error)
	// Nearest returns the session's rows closest to vec by cosine distance.
	Nearest(ctx context.Context, sessionID string, vec pgvector.Vector, k int) ([]models.ConversationLog, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) Insert(ctx context.Context, log *models.ConversationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListBySession returns rows oldest first.
func (r *conversationRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ConversationLog, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []models.ConversationLog
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) Nearest(ctx context.Context, sessionID string, vec pgvector.Vector, k int) ([]models.ConversationLog, error) {
	if k <= 0 {
		k = 5
	}

	var rows []models.ConversationLog
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND embedding IS NOT NULL", sessionID).
		Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []any{vec}}}).
		Limit(k).
		Find(&rows).Error
	return rows, err
}
