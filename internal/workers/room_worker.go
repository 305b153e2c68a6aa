package workers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yoockh/screencopilot/internal/copilot"
	"github.com/yoockh/screencopilot/internal/metrics"
	"github.com/yoockh/screencopilot/internal/protocol"
)

const (
	DefaultMaxInFlight = 8
	sessionEndTimeout  = 5 * time.Second
)

// ControlRoom is the worker's view of a room's control channel.
type ControlRoom interface {
	copilot.Sender
	Name() string
	Listen(ctx context.Context, fn func(payload []byte)) error
}

// SessionRecorder persists the lifetime of a worker session.
type SessionRecorder interface {
	Start(ctx context.Context, room, identity string) (sessionID string, err error)
	End(ctx context.Context, sessionID string) error
}

// RoomWorker joins one room and serves it until ctx is cancelled or the
// control channel closes.
type RoomWorker struct {
	Room     ControlRoom
	Identity string
	Caps     copilot.Capabilities
	Settings copilot.Settings

	// Optional.
	Sessions    SessionRecorder
	Journal     copilot.Journal
	Archiver    copilot.Archiver
	Audio       AudioSource
	STT         copilot.Transcriber
	Metrics     *metrics.Metrics
	Logger      logrus.FieldLogger
	Clock       copilot.Clock
	MaxInFlight int
	AudioFlush  time.Duration
	AudioBytes  int
}

func (w *RoomWorker) Run(ctx context.Context) error {
	if w.Room == nil || w.Caps == nil {
		return errors.New("RoomWorker missing dependency: Room/Caps must be set")
	}
	if w.Logger == nil {
		w.Logger = logrus.StandardLogger()
	}
	if w.MaxInFlight <= 0 {
		w.MaxInFlight = DefaultMaxInFlight
	}

	sessionID := w.startSession(ctx)
	log := w.Logger.WithFields(logrus.Fields{
		"room":       w.Room.Name(),
		"identity":   w.Identity,
		"session_id": sessionID,
	})
	defer w.endSession(sessionID, log)

	session := copilot.NewSession(sessionID, w.Settings, copilot.Deps{
		Caps:     w.Caps,
		Sender:   w.Room,
		Clock:    w.Clock,
		Logger:   log,
		Metrics:  w.Metrics,
		Journal:  w.Journal,
		Archiver: w.Archiver,
	})

	if err := w.Room.Send(ctx, protocol.WorkerOnline{Identity: w.Identity}); err != nil {
		log.WithField("error", err).Warn("worker_online not delivered")
	}
	log.Info("worker joined room")

	g, gctx := errgroup.WithContext(ctx)
	// Audio only lives as long as the control channel.
	audioCtx, stopAudio := context.WithCancel(gctx)
	defer stopAudio()

	g.Go(func() error {
		defer stopAudio()
		return w.serveControl(gctx, session)
	})

	if w.Audio != nil && w.STT != nil {
		g.Go(func() error {
			aw := &AudioWorker{
				Source:     w.Audio,
				STT:        w.STT,
				Sink:       session,
				Clock:      w.Clock,
				Metrics:    w.Metrics,
				Logger:     log.WithField("loop", "audio"),
				FlushEvery: w.AudioFlush,
				FlushBytes: w.AudioBytes,
			}
			return aw.Run(audioCtx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("worker left room")
	return err
}

// serveControl runs handlers concurrently, at most MaxInFlight at a time.
// When the limit is reached the listener blocks, which backs up the
// subscription instead of growing an unbounded queue.
func (w *RoomWorker) serveControl(ctx context.Context, session *copilot.Session) error {
	var handlers errgroup.Group
	handlers.SetLimit(w.MaxInFlight)

	err := w.Room.Listen(ctx, func(payload []byte) {
		handlers.Go(func() error {
			w.Metrics.HandlerStarted()
			defer w.Metrics.HandlerFinished()
			session.Handle(ctx, payload)
			return nil
		})
	})
	_ = handlers.Wait()
	return err
}

func (w *RoomWorker) startSession(ctx context.Context) string {
	if w.Sessions == nil {
		return uuid.NewString()
	}
	id, err := w.Sessions.Start(ctx, w.Room.Name(), w.Identity)
	if err != nil {
		w.Logger.WithField("error", err).Warn("session record not created")
		return uuid.NewString()
	}
	return id
}

func (w *RoomWorker) endSession(sessionID string, log logrus.FieldLogger) {
	if w.Sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sessionEndTimeout)
	defer cancel()
	if err := w.Sessions.End(ctx, sessionID); err != nil {
		log.WithField("error", err).Warn("session record not closed")
	}
}
