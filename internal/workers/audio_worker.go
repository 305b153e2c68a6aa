package workers

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/screencopilot/internal/copilot"
	"github.com/yoockh/screencopilot/internal/metrics"
	"github.com/yoockh/screencopilot/internal/transport"
)

const (
	DefaultAudioFlushEvery = 3 * time.Second
	DefaultAudioFlushBytes = 96000
	DefaultSampleRate      = 48000

	readRetryDelay = 500 * time.Millisecond
)

// AudioSource yields PCM frames from every track in the room. The end of one
// track is reported as io.EOF together with that track's Source and Name.
type AudioSource interface {
	Next(ctx context.Context) (transport.AudioFrame, error)
}

// TranscriptSink receives cleaned transcripts of shared screen audio.
type TranscriptSink interface {
	RecordAudioTranscript(ctx context.Context, text string)
}

// AudioWorker turns the room's screen audio into short transcripts. Only
// screen/tab audio is used; microphone frames are dropped. Screen shares may
// stop and start again many times during one session, so the worker runs
// until ctx is cancelled.
type AudioWorker struct {
	Source     AudioSource
	STT        copilot.Transcriber
	Sink       TranscriptSink
	Clock      copilot.Clock
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger
	FlushEvery time.Duration
	FlushBytes int
	SampleRate int
}

func (w *AudioWorker) Run(ctx context.Context) error {
	if w.Source == nil || w.STT == nil || w.Sink == nil {
		return errors.New("AudioWorker missing dependency: Source/STT/Sink must be set")
	}
	if w.FlushEvery <= 0 {
		w.FlushEvery = DefaultAudioFlushEvery
	}
	if w.FlushBytes <= 0 {
		w.FlushBytes = DefaultAudioFlushBytes
	}
	if w.SampleRate <= 0 {
		w.SampleRate = DefaultSampleRate
	}
	if w.Clock == nil {
		w.Clock = copilot.SystemClock{}
	}
	if w.Logger == nil {
		w.Logger = logrus.StandardLogger()
	}

	var buf []byte
	lastFlush := w.Clock.Now()

	for {
		frame, err := w.Source.Next(ctx)
		if ctx.Err() != nil {
			return nil
		}
		screen := copilot.LooksLikeScreenAudio(frame.Source, frame.Name)

		if errors.Is(err, io.EOF) {
			if !screen {
				continue
			}
			if len(buf) > 0 {
				w.flush(ctx, buf)
				buf = nil
			}
			lastFlush = w.Clock.Now()
			w.Logger.WithFields(logrus.Fields{"source": frame.Source, "track": frame.Name}).Info("screen audio track ended")
			continue
		}
		if err != nil {
			w.Logger.WithField("error", err).Warn("audio read failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}
			continue
		}
		if !screen {
			continue
		}

		buf = append(buf, frame.PCM...)
		now := w.Clock.Now()
		if now.Sub(lastFlush) > w.FlushEvery || len(buf) > w.FlushBytes {
			pcm := buf
			buf = nil
			lastFlush = now
			w.flush(ctx, pcm)
		}
	}
}

// flush never fails the loop; STT problems are logged and dropped.
func (w *AudioWorker) flush(ctx context.Context, pcm []byte) {
	text, err := w.STT.TranscribeAudio(ctx, EncodeWAV(pcm, w.SampleRate, 1))
	if err != nil {
		w.Metrics.IncAudioFlush("error")
		w.Logger.WithFields(logrus.Fields{"bytes": len(pcm), "error": err}).Warn("audio transcription failed")
		return
	}
	if text == "" {
		w.Metrics.IncAudioFlush("empty")
		return
	}
	w.Metrics.IncAudioFlush("ok")
	w.Sink.RecordAudioTranscript(ctx, text)
}
