package services

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/yoockh/screencopilot/internal/models"
	pgrepo "github.com/yoockh/screencopilot/internal/repositories/postgres"
	"github.com/yoockh/screencopilot/internal/utils"
)

type ConversationService interface {
	Append(ctx context.Context, sessionID, role, kind, content string) (*models.ConversationLog, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ConversationLog, error)
	Search(ctx context.Context, sessionID, query string, k int) ([]models.ConversationLog, error)
}

type conversationService struct {
	convos   pgrepo.ConversationRepo
	embedder Embedder
}

// NewConversationService embeds rows with embedder, or with HashEmbedder when
// it is nil.
func NewConversationService(convos pgrepo.ConversationRepo, embedder Embedder) ConversationService {
	if embedder == nil {
		embedder = HashEmbedder{}
	}
	return &conversationService{convos: convos, embedder: embedder}
}

func (s *conversationService) Append(ctx context.Context, sessionID, role, kind, content string) (*models.ConversationLog, error) {
	const op = "ConversationService.Append"

	if sessionID == "" || role == "" || content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id, role, and content are required", nil)
	}

	md, _ := json.Marshal(map[string]any{"chars": utf8.RuneCountInString(content)})
	row := &models.ConversationLog{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Kind:      kind,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  datatypes.JSON(md),
	}
	// A row that cannot be embedded is still journaled; search skips it.
	if emb, err := s.embedder.Embed(ctx, content); err == nil && emb != nil {
		v := pgvector.NewVector(emb)
		row.Embedding = &v
	}

	if err := s.convos.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert conversation log", err)
	}
	return row, nil
}

func (s *conversationService) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ConversationLog, error) {
	const op = "ConversationService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	rows, err := s.convos.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list conversations", err)
	}
	return rows, nil
}

func (s *conversationService) Search(ctx context.Context, sessionID, query string, k int) ([]models.ConversationLog, error) {
	const op = "ConversationService.Search"

	if sessionID == "" || query == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and q are required", nil)
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to embed query", err)
	}
	if emb == nil {
		return []models.ConversationLog{}, nil
	}

	rows, err := s.convos.Nearest(ctx, sessionID, pgvector.NewVector(emb), k)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to search conversations", err)
	}
	return rows, nil
}
