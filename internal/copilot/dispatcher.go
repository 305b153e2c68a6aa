package copilot

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/yoockh/screencopilot/internal/protocol"
)

const (
	msgNoOCRYet = "No OCR yet. Enable Auto context or click Extract Text for a high-res capture."
	msgNoAnswer = "No answer."
)

// Handle decodes one raw control message and dispatches it. Malformed
// messages are logged and dropped without a reply.
func (s *Session) Handle(ctx context.Context, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		s.metrics.IncMalformed()
		s.log.WithField("error", err).Debug("dropping malformed message")
		return
	}
	s.Dispatch(ctx, msg)
}

// Dispatch routes a decoded message. Replies for one message are sent in the
// order they are produced; replies to different messages are not ordered.
func (s *Session) Dispatch(ctx context.Context, msg protocol.Inbound) {
	s.metrics.IncInbound(msg.MessageType())
	s.log.WithField("type", msg.MessageType()).Debug("inbound")

	switch m := msg.(type) {
	case protocol.ClientOnline:
		s.send(ctx, protocol.WorkerAck{Hello: true})

	case protocol.Ping:
		s.send(ctx, protocol.Pong{TS: s.nowMilli()})

	case protocol.IntentExplainError:
		s.explainError(ctx)

	case protocol.IntentCompareScreens:
		text, err := s.summarizer.ChangeSinceLastPair(ctx)
		if err != nil {
			text = s.capabilityFailed("diff", errPrefix, err)
		}
		s.send(ctx, protocol.StructuredAnswer{Text: text})

	case protocol.IntentSummarizeSession:
		ocrLen, _ := s.history.Lens()
		text, err := s.summarizer.RollingContext(ctx, RollupWindow(ocrLen))
		if err != nil {
			text = s.capabilityFailed("rollup", errPrefix, err)
		}
		s.send(ctx, protocol.StructuredAnswer{Text: text})

	case protocol.UserQuery:
		s.answerQuery(ctx, m.Text)

	case protocol.StartTaskTrackError:
		minutes := DefaultTaskMinutes
		if m.Minutes != nil {
			minutes = *m.Minutes
		}
		task, err := s.tasks.Start(minutes, m.Pattern)
		if err != nil {
			s.send(ctx, protocol.StructuredAnswer{Text: errPrefix + " " + err.Error()})
			return
		}
		s.send(ctx, protocol.TaskAck{ID: task.ID, Kind: task.Kind, Until: task.Until.UnixMilli()})

	case protocol.CancelTask:
		status := protocol.TaskNotFound
		if s.tasks.Cancel(m.ID) {
			status = protocol.TaskCancelled
			s.metrics.IncTaskResolution(status)
		}
		s.send(ctx, protocol.TaskDone{ID: m.ID, Status: status})

	case protocol.DescribeScene:
		s.send(ctx, protocol.RequestSnapshot{})

	case protocol.WhatChanged:
		var (
			text string
			err  error
		)
		if m.SinceMs != nil && *m.SinceMs > 0 {
			text, err = s.summarizer.ChangeSince(ctx, sinceWindow(*m.SinceMs))
		} else {
			text, err = s.summarizer.ChangeSinceLastPair(ctx)
		}
		if err != nil {
			text = s.capabilityFailed("diff", errPrefix, err)
		}
		s.send(ctx, protocol.ChangeSummary{Text: text})

	case protocol.SnapshotThumbnail:
		s.IngestThumbnail(ctx, m)

	case protocol.SnapshotHires:
		s.IngestHires(ctx, m)
	}
}

// maxSinceMs is the largest window, in milliseconds, a time.Duration holds.
const maxSinceMs = float64(math.MaxInt64 / int64(time.Millisecond))

func sinceWindow(ms float64) time.Duration {
	if ms >= maxSinceMs {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func (s *Session) explainError(ctx context.Context) {
	last := s.history.LatestOCR(1)
	if len(last) == 0 {
		s.send(ctx, protocol.StructuredAnswer{Text: msgNoOCRYet})
		return
	}
	sec, err := s.caps.ExplainError(ctx, last[0].Text)
	if err != nil {
		s.send(ctx, protocol.StructuredAnswer{Text: s.capabilityFailed("explain_error", errPrefix, err)})
		return
	}
	s.send(ctx, protocol.StructuredAnswer{Text: RenderSections(sec)})
}

// answerQuery answers a free-form question about the current screen. When
// the cached frame is missing or stale the peer is first asked for a hi-res
// capture; the answer then goes ahead on history alone.
func (s *Session) answerQuery(ctx context.Context, question string) {
	if s.journal != nil {
		s.journal.Record(ctx, s.ID, "user", protocol.TypeUserQuery, question)
	}

	frame, fresh := s.frame.Fresh(s.clock.Now(), s.settings.FrameStaleAfter)
	if !fresh {
		s.send(ctx, protocol.RequestSnapshotHires{Reason: ReasonUserQueryStale})
	}

	prompt := QuestionPrompt(
		ScreenContext(s.history.VisualHistory(), s.history.OCRHistory(), s.audio.Latest(screenContextAudio)),
		question,
	)
	answer, err := s.caps.ChatAnswer(ctx, prompt, frame)
	if err != nil {
		s.send(ctx, protocol.StructuredAnswer{Text: s.capabilityFailed("chat", errPrefix, err)})
		return
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		answer = msgNoAnswer
	}
	s.send(ctx, protocol.StructuredAnswer{Text: answer})
}
