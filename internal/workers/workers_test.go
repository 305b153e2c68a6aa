package workers

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/screencopilot/internal/copilot"
	"github.com/yoockh/screencopilot/internal/logger"
	"github.com/yoockh/screencopilot/internal/protocol"
	"github.com/yoockh/screencopilot/internal/transport"
)

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
	// step is added after every read.
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type audioStep struct {
	frame transport.AudioFrame
	err   error
}

// scriptedSource replays steps, then calls drained and blocks until ctx is
// done, the way a live room stream idles between shares.
type scriptedSource struct {
	steps   []audioStep
	drained func()
}

func (s *scriptedSource) Next(ctx context.Context) (transport.AudioFrame, error) {
	if len(s.steps) == 0 {
		if s.drained != nil {
			s.drained()
		}
		<-ctx.Done()
		return transport.AudioFrame{}, ctx.Err()
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st.frame, st.err
}

func frames(fs ...transport.AudioFrame) []audioStep {
	out := make([]audioStep, len(fs))
	for i, f := range fs {
		out[i] = audioStep{frame: f}
	}
	return out
}

func trackEnd(source string) audioStep {
	return audioStep{frame: transport.AudioFrame{Source: source}, err: io.EOF}
}

// runDrained runs w over steps and stops it once every step was consumed.
func runDrained(t *testing.T, w *AudioWorker, steps []audioStep) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Source = &scriptedSource{steps: steps, drained: cancel}
	require.NoError(t, w.Run(ctx))
}

type fakeSTT struct {
	mu    sync.Mutex
	text  string
	err   error
	sizes []int
}

func (f *fakeSTT) TranscribeAudio(_ context.Context, wav []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes = append(f.sizes, len(wav)-wavHeaderSize)
	return f.text, f.err
}

type sinkRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (s *sinkRecorder) RecordAudioTranscript(_ context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func screenFrame(n int) transport.AudioFrame {
	return transport.AudioFrame{Source: "screen_share_audio", PCM: make([]byte, n)}
}

func TestEncodeWAVHeader(t *testing.T) {
	t.Parallel()

	pcm := []byte{1, 2, 3, 4}
	wav := EncodeWAV(pcm, 48000, 1)

	require.Len(t, wav, wavHeaderSize+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:]))
	assert.Equal(t, "WAVEfmt ", string(wav[8:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[24:]))
	assert.Equal(t, uint32(96000), binary.LittleEndian.Uint32(wav[28:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:]))
	assert.Equal(t, pcm, wav[wavHeaderSize:])
}

func TestAudioWorkerFlushesOnSize(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{text: "welcome back to the stream"}
	sink := &sinkRecorder{}
	w := &AudioWorker{
		STT:    stt,
		Sink:   sink,
		Clock:  &steppingClock{now: time.Unix(0, 0)},
		Logger: logger.Discard(),
	}

	steps := frames(screenFrame(50000), screenFrame(50000), screenFrame(1000))
	runDrained(t, w, append(steps, trackEnd("screen_share_audio")))

	assert.Equal(t, []int{100000, 1000}, stt.sizes)
	assert.Equal(t, []string{"welcome back to the stream", "welcome back to the stream"}, sink.texts)
}

func TestAudioWorkerFlushesOnElapsedTime(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{text: "hi"}
	w := &AudioWorker{
		STT:    stt,
		Sink:   &sinkRecorder{},
		Clock:  &steppingClock{now: time.Unix(0, 0), step: 2 * time.Second},
		Logger: logger.Discard(),
	}

	steps := frames(screenFrame(10), screenFrame(10), screenFrame(10))
	runDrained(t, w, append(steps, trackEnd("screen_share_audio")))

	// Reads at t=2s and t=4s: only the second is more than 3s after start.
	// The last frame is flushed when its track ends.
	assert.Equal(t, []int{20, 10}, stt.sizes)
}

func TestAudioWorkerKeepsPartialBufferUntilCancelled(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{text: "x"}
	w := &AudioWorker{
		STT:    stt,
		Sink:   &sinkRecorder{},
		Clock:  &steppingClock{now: time.Unix(0, 0)},
		Logger: logger.Discard(),
	}

	runDrained(t, w, frames(screenFrame(10)))
	assert.Empty(t, stt.sizes)
}

func TestAudioWorkerIgnoresMicrophone(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{text: "x"}
	w := &AudioWorker{
		STT:    stt,
		Sink:   &sinkRecorder{},
		Clock:  &steppingClock{now: time.Unix(0, 0)},
		Logger: logger.Discard(),
	}

	steps := frames(
		transport.AudioFrame{Source: "microphone", PCM: make([]byte, 200000)},
		transport.AudioFrame{Source: "microphone", Name: "USB headset", PCM: make([]byte, 200000)},
	)
	runDrained(t, w, append(steps, trackEnd("microphone")))
	assert.Empty(t, stt.sizes)
}

func TestAudioWorkerMatchesScreenTrackByName(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{text: "tab audio"}
	w := &AudioWorker{
		STT:    stt,
		Sink:   &sinkRecorder{},
		Clock:  &steppingClock{now: time.Unix(0, 0)},
		Logger: logger.Discard(),
	}

	runDrained(t, w, frames(transport.AudioFrame{Source: "unknown", Name: "screen-audio", PCM: make([]byte, 100000)}))
	assert.Equal(t, []int{100000}, stt.sizes)
}

func TestAudioWorkerSurvivesTrackEnds(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{text: "hello"}
	sink := &sinkRecorder{}
	w := &AudioWorker{
		STT:    stt,
		Sink:   sink,
		Clock:  &steppingClock{now: time.Unix(0, 0)},
		Logger: logger.Discard(),
	}

	steps := []audioStep{
		trackEnd("microphone"),
		{frame: screenFrame(10)},
		trackEnd("screen_share_audio"),
		// The viewer reloads and shares again.
		{frame: screenFrame(100000)},
	}
	runDrained(t, w, steps)

	assert.Equal(t, []int{10, 100000}, stt.sizes)
	assert.Equal(t, []string{"hello", "hello"}, sink.texts)
}

func TestAudioWorkerMicrophoneEndKeepsScreenBuffer(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{text: "hello"}
	w := &AudioWorker{
		STT:    stt,
		Sink:   &sinkRecorder{},
		Clock:  &steppingClock{now: time.Unix(0, 0)},
		Logger: logger.Discard(),
	}

	steps := []audioStep{
		{frame: screenFrame(40000)},
		trackEnd("microphone"),
		{frame: screenFrame(60000)},
	}
	runDrained(t, w, steps)

	assert.Equal(t, []int{100000}, stt.sizes)
}

func TestAudioWorkerSwallowsTranscriptionErrors(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{err: errors.New("speech quota")}
	sink := &sinkRecorder{}
	w := &AudioWorker{
		STT:    stt,
		Sink:   sink,
		Clock:  &steppingClock{now: time.Unix(0, 0)},
		Logger: logger.Discard(),
	}

	runDrained(t, w, frames(screenFrame(100000), screenFrame(100000)))
	assert.Len(t, stt.sizes, 2)
	assert.Empty(t, sink.texts)
}

func TestAudioWorkerStopsOnCancelledRead(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &AudioWorker{
		Source: &scriptedSource{steps: []audioStep{{err: context.Canceled}}},
		STT:    &fakeSTT{},
		Sink:   &sinkRecorder{},
		Logger: logger.Discard(),
	}
	assert.NoError(t, w.Run(ctx))
}

type fakeRoom struct {
	mu      sync.Mutex
	inbound [][]byte
	sent    []protocol.Outbound
}

func (r *fakeRoom) Name() string { return "demo" }

func (r *fakeRoom) Send(_ context.Context, msg protocol.Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *fakeRoom) Listen(_ context.Context, fn func([]byte)) error {
	for _, p := range r.inbound {
		fn(p)
	}
	return nil
}

func (r *fakeRoom) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, m := range r.sent {
		out[i] = m.MessageType()
	}
	return out
}

type nopCaps struct{}

func (nopCaps) OCR(context.Context, string) (string, error) { return "", nil }
func (nopCaps) VisionUnderstand(context.Context, string) (copilot.Sections, error) {
	return copilot.Sections{}, nil
}
func (nopCaps) DescribeStructuredFromOCR(context.Context, string) (copilot.Sections, error) {
	return copilot.Sections{}, nil
}
func (nopCaps) ChatAnswer(context.Context, string, string) (string, error) { return "", nil }
func (nopCaps) DiffOCRPair(context.Context, copilot.OCREntry, copilot.OCREntry) (copilot.Sections, error) {
	return copilot.Sections{}, nil
}
func (nopCaps) DiffVisualPair(context.Context, copilot.VisualEntry, copilot.VisualEntry) (string, error) {
	return "", nil
}
func (nopCaps) RollupOCR(context.Context, []copilot.OCREntry) (copilot.Sections, error) {
	return copilot.Sections{}, nil
}
func (nopCaps) RollupVisual(context.Context, []copilot.VisualEntry) (string, error) { return "", nil }
func (nopCaps) ExplainError(context.Context, string) (copilot.Sections, error) {
	return copilot.Sections{}, nil
}

type recordingSessions struct {
	started  []string
	ended    []string
	startErr error
}

func (s *recordingSessions) Start(_ context.Context, room, identity string) (string, error) {
	if s.startErr != nil {
		return "", s.startErr
	}
	s.started = append(s.started, room+"/"+identity)
	return "sess-1", nil
}

func (s *recordingSessions) End(_ context.Context, id string) error {
	s.ended = append(s.ended, id)
	return nil
}

func TestRoomWorkerAnnouncesAndServes(t *testing.T) {
	t.Parallel()

	room := &fakeRoom{inbound: [][]byte{
		[]byte(`{"type":"client_online"}`),
		[]byte(`not json`),
		[]byte(`{"type":"ping"}`),
	}}
	sessions := &recordingSessions{}
	w := &RoomWorker{
		Room:        room,
		Identity:    "copilot-worker",
		Caps:        nopCaps{},
		Sessions:    sessions,
		Logger:      logger.Discard(),
		MaxInFlight: 1,
	}

	require.NoError(t, w.Run(context.Background()))

	types := room.types()
	require.NotEmpty(t, types)
	assert.Equal(t, protocol.TypeWorkerOnline, types[0])
	assert.ElementsMatch(t, []string{protocol.TypeWorkerOnline, protocol.TypeWorkerAck, protocol.TypePong}, types)
	assert.Equal(t, []string{"demo/copilot-worker"}, sessions.started)
	assert.Equal(t, []string{"sess-1"}, sessions.ended)
}

func TestRoomWorkerSurvivesSessionRecordFailure(t *testing.T) {
	t.Parallel()

	sessions := &recordingSessions{startErr: errors.New("mongo down")}
	w := &RoomWorker{
		Room:     &fakeRoom{},
		Identity: "copilot-worker",
		Caps:     nopCaps{},
		Sessions: sessions,
		Logger:   logger.Discard(),
	}

	require.NoError(t, w.Run(context.Background()))
	require.Len(t, sessions.ended, 1)
	assert.NotEmpty(t, sessions.ended[0])
}

func TestRoomWorkerRequiresRoomAndCaps(t *testing.T) {
	t.Parallel()
	assert.Error(t, (&RoomWorker{}).Run(context.Background()))
}

func TestRoomWorkerStopsAudioWhenControlCloses(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{text: "hello"}
	w := &RoomWorker{
		Room:     &fakeRoom{},
		Identity: "copilot-worker",
		Caps:     nopCaps{},
		Audio:    &scriptedSource{steps: frames(screenFrame(100000))},
		STT:      stt,
		Logger:   logger.Discard(),
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after the control channel closed")
	}
}
