package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/screencopilot/internal/models"
	mongorepo "github.com/yoockh/screencopilot/internal/repositories/mongo"
	"github.com/yoockh/screencopilot/internal/utils"
)

type SessionService interface {
	Start(ctx context.Context, room, identity string) (string, error)
	Get(ctx context.Context, sessionID string) (*models.WorkerSession, error)
	End(ctx context.Context, sessionID string) error
}

type sessionService struct {
	sessions mongorepo.SessionRepository
	now      func() time.Time
}

func NewSessionService(sessions mongorepo.SessionRepository) SessionService {
	return &sessionService{sessions: sessions, now: time.Now}
}

func (s *sessionService) Start(ctx context.Context, room, identity string) (string, error) {
	const op = "SessionService.Start"

	if room == "" || identity == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "room and identity are required", nil)
	}

	session := &models.WorkerSession{
		SessionID: uuid.NewString(),
		Room:      room,
		Identity:  identity,
		Status:    models.SessionActive,
		CreatedAt: s.now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to create session", err)
	}
	return session.SessionID, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.WorkerSession, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *sessionService) End(ctx context.Context, sessionID string) error {
	const op = "SessionService.End"

	ss, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if ss.Status == models.SessionEnded {
		return nil
	}

	now := s.now().UTC()
	dur := int64(now.Sub(ss.CreatedAt).Seconds())
	if dur < 0 {
		dur = 0
	}

	if err := s.sessions.End(ctx, sessionID, now, dur); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to end session", err)
	}
	return nil
}
