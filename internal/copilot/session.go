// Package copilot is the screen copilot's per-session engine: bounded
// histories of what was seen on screen, the ingest duty cycle, change and
// context summaries, watch tasks, and dispatch of control messages.
package copilot

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/screencopilot/internal/metrics"
	"github.com/yoockh/screencopilot/internal/protocol"
	"github.com/yoockh/screencopilot/internal/utils"
)

// Settings tunes one session. Zero fields take the defaults.
type Settings struct {
	HistoryMax         int
	VisionEveryDefault int
	VisionEveryStream  int
	ContextEvery       int
	OCRTimeout         time.Duration
	FrameStaleAfter    time.Duration
	AudioSnippetMax    int
}

func DefaultSettings() Settings {
	return Settings{
		HistoryMax:         DefaultHistoryMax,
		VisionEveryDefault: 10,
		VisionEveryStream:  3,
		ContextEvery:       5,
		OCRTimeout:         4 * time.Second,
		FrameStaleAfter:    DefaultFrameStaleAfter,
		AudioSnippetMax:    DefaultAudioSnippetMax,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.HistoryMax <= 0 {
		s.HistoryMax = d.HistoryMax
	}
	if s.VisionEveryDefault <= 0 {
		s.VisionEveryDefault = d.VisionEveryDefault
	}
	if s.VisionEveryStream <= 0 {
		s.VisionEveryStream = d.VisionEveryStream
	}
	if s.ContextEvery <= 0 {
		s.ContextEvery = d.ContextEvery
	}
	if s.OCRTimeout <= 0 {
		s.OCRTimeout = d.OCRTimeout
	}
	if s.FrameStaleAfter <= 0 {
		s.FrameStaleAfter = d.FrameStaleAfter
	}
	if s.AudioSnippetMax <= 0 {
		s.AudioSnippetMax = d.AudioSnippetMax
	}
	return s
}

// Sender delivers outbound control messages to the room.
type Sender interface {
	Send(ctx context.Context, msg protocol.Outbound) error
}

// Journal records user-visible exchanges. Implementations must not block for
// long; failures are theirs to log.
type Journal interface {
	Record(ctx context.Context, sessionID, role, kind, content string)
}

// Archiver keeps hi-res snapshots together with what was derived from them.
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, sessionID, imageB64 string, derived Sections)
}

type Deps struct {
	Caps     Capabilities
	Sender   Sender
	Clock    Clock
	Logger   logrus.FieldLogger
	Metrics  *metrics.Metrics
	Journal  Journal
	Archiver Archiver
}

// Session is all mutable state of one worker-to-room session. It is created
// when the worker joins and dropped when it leaves; nothing outlives it.
type Session struct {
	ID string

	settings Settings
	caps     Capabilities
	sender   Sender
	clock    Clock
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	journal  Journal
	archiver Archiver

	history    *History
	frame      FrameCache
	audio      *AudioSnippets
	tasks      *Scheduler
	summarizer *Summarizer
}

func NewSession(id string, settings Settings, deps Deps) *Session {
	settings = settings.withDefaults()
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	history := NewHistory(settings.HistoryMax, clock)
	return &Session{
		ID:         id,
		settings:   settings,
		caps:       deps.Caps,
		sender:     deps.Sender,
		clock:      clock,
		log:        log.WithField("session_id", id),
		metrics:    deps.Metrics,
		journal:    deps.Journal,
		archiver:   deps.Archiver,
		history:    history,
		audio:      NewAudioSnippets(settings.AudioSnippetMax),
		tasks:      NewScheduler(clock),
		summarizer: NewSummarizer(deps.Caps, history, clock),
	}
}

func (s *Session) History() *History { return s.history }

func (s *Session) Tasks() *Scheduler { return s.tasks }

func (s *Session) Audio() *AudioSnippets { return s.audio }

// RecordAudioTranscript stores a transcript of shared screen audio as context
// and relays it to the room. Blank text is ignored.
func (s *Session) RecordAudioTranscript(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.audio.Push(text, s.clock.Now())
	s.send(ctx, protocol.ScreenAudioTranscript{Text: text})
}

func (s *Session) send(ctx context.Context, msg protocol.Outbound) {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.log.WithFields(logrus.Fields{"type": msg.MessageType(), "error": err}).Warn("send failed")
		return
	}
	if s.journal == nil {
		return
	}
	switch m := msg.(type) {
	case protocol.StructuredAnswer:
		s.journal.Record(ctx, s.ID, "assistant", m.MessageType(), m.Text)
	case protocol.ChangeSummary:
		s.journal.Record(ctx, s.ID, "assistant", m.MessageType(), m.Text)
	case protocol.ContextUpdate:
		s.journal.Record(ctx, s.ID, "assistant", m.MessageType(), m.Text)
	}
}

// capabilityFailed logs a provider failure and renders it for the user with
// the provider's own error text.
func (s *Session) capabilityFailed(capability, prefix string, err error) string {
	s.log.WithFields(logrus.Fields{"capability": capability, "error": err}).Warn("capability failed")
	return prefix + " " + utils.Cause(err).Error()
}

func (s *Session) nowMilli() int64 { return s.clock.Now().UnixMilli() }
