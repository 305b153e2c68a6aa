package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/screencopilot/internal/copilot"
	"github.com/yoockh/screencopilot/internal/models"
	pgrepo "github.com/yoockh/screencopilot/internal/repositories/postgres"
	"github.com/yoockh/screencopilot/internal/storage"
	"github.com/yoockh/screencopilot/internal/utils"
)

type SnapshotService interface {
	Archive(ctx context.Context, sessionID string, jpeg []byte, derived copilot.Sections) (*models.Snapshot, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Snapshot, error)
}

type snapshotService struct {
	repo     pgrepo.SnapshotRepository
	uploader storage.Uploader
}

func NewSnapshotService(repo pgrepo.SnapshotRepository, uploader storage.Uploader) SnapshotService {
	return &snapshotService{repo: repo, uploader: uploader}
}

func (s *snapshotService) Archive(ctx context.Context, sessionID string, jpeg []byte, derived copilot.Sections) (*models.Snapshot, error) {
	const op = "SnapshotService.Archive"

	if sessionID == "" || len(jpeg) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and image are required", nil)
	}
	if s.uploader == nil {
		return nil, utils.E(utils.CodeInternal, op, "uploader is not configured", utils.ErrNotConfigured)
	}

	digest := utils.Digest(jpeg)
	objectName := "snapshots/" + sessionID + "/" + digest + ".jpg"
	storedPath, err := s.uploader.Upload(ctx, objectName, "image/jpeg", bytes.NewReader(jpeg))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to upload snapshot", err)
	}

	row := &models.Snapshot{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Digest:      digest,
		ObjectPath:  storedPath,
		SizeBytes:   len(jpeg),
		Summary:     derived.Summary,
		KeyItems:    derived.KeyItems,
		Suggestions: derived.Suggestions,
		CapturedAt:  time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to persist snapshot metadata", err)
	}
	return row, nil
}

func (s *snapshotService) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.Snapshot, error) {
	const op = "SnapshotService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	rows, err := s.repo.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list snapshots", err)
	}
	return rows, nil
}

// SnapshotArchiver adapts SnapshotService to the copilot's fire-and-forget
// archive hook.
type SnapshotArchiver struct {
	snapshots SnapshotService
	log       logrus.FieldLogger
	wg        sync.WaitGroup
}

func NewSnapshotArchiver(snapshots SnapshotService, log logrus.FieldLogger) *SnapshotArchiver {
	return &SnapshotArchiver{snapshots: snapshots, log: log}
}

func (a *SnapshotArchiver) ArchiveSnapshot(ctx context.Context, sessionID, imageB64 string, derived copilot.Sections) {
	if i := strings.Index(imageB64, ","); i >= 0 && strings.HasPrefix(imageB64, "data:") {
		imageB64 = imageB64[i+1:]
	}
	jpeg, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		a.log.WithField("error", err).Warn("snapshot not archived: bad base64")
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		row, err := a.snapshots.Archive(wctx, sessionID, jpeg, derived)
		if err != nil {
			a.log.WithFields(logrus.Fields{"session_id": sessionID, "error": err}).Warn("snapshot not archived")
			return
		}
		a.log.WithFields(logrus.Fields{"session_id": sessionID, "path": row.ObjectPath}).Debug("snapshot archived")
	}()
}

// Wait blocks until pending uploads finish.
func (a *SnapshotArchiver) Wait() { a.wg.Wait() }
