package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const journalWriteTimeout = 5 * time.Second

// Journal appends session exchanges in the background so the copilot never
// waits on the database. Failed writes are logged and dropped.
type Journal struct {
	convos ConversationService
	log    logrus.FieldLogger
	wg     sync.WaitGroup
}

func NewJournal(convos ConversationService, log logrus.FieldLogger) *Journal {
	return &Journal{convos: convos, log: log}
}

func (j *Journal) Record(ctx context.Context, sessionID, role, kind, content string) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
		defer cancel()
		if _, err := j.convos.Append(wctx, sessionID, role, kind, content); err != nil {
			j.log.WithFields(logrus.Fields{"session_id": sessionID, "kind": kind, "error": err}).Warn("journal write failed")
		}
	}()
}

// Wait blocks until pending writes finish.
func (j *Journal) Wait() { j.wg.Wait() }
