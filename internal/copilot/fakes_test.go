package copilot

import (
	"context"
	"sync"
	"time"

	"github.com/yoockh/screencopilot/internal/logger"
	"github.com/yoockh/screencopilot/internal/protocol"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fixedClock { return &fixedClock{now: epoch} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeCaps struct {
	mu    sync.Mutex
	calls map[string]int

	ocrText  string
	ocrErr   error
	ocrDelay time.Duration

	vision     Sections
	visionErr  error
	structured Sections

	chat      string
	chatErr   error
	lastImage string
	lastChat  string

	diffOCR    Sections
	diffErr    error
	diffVisual string
	ocrPairs   [][2]OCREntry

	rollupOCR    Sections
	rollupErr    error
	rollupVisual string

	explain    Sections
	explainErr error
}

func (f *fakeCaps) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeCaps) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCaps) OCR(ctx context.Context, _ string) (string, error) {
	f.record("ocr")
	if f.ocrDelay > 0 {
		select {
		case <-time.After(f.ocrDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.ocrText, f.ocrErr
}

func (f *fakeCaps) VisionUnderstand(context.Context, string) (Sections, error) {
	f.record("vision")
	return f.vision, f.visionErr
}

func (f *fakeCaps) DescribeStructuredFromOCR(context.Context, string) (Sections, error) {
	f.record("structured")
	return f.structured, nil
}

func (f *fakeCaps) ChatAnswer(_ context.Context, prompt, image string) (string, error) {
	f.record("chat")
	f.mu.Lock()
	f.lastChat, f.lastImage = prompt, image
	f.mu.Unlock()
	return f.chat, f.chatErr
}

func (f *fakeCaps) DiffOCRPair(_ context.Context, prev, curr OCREntry) (Sections, error) {
	f.record("diff_ocr")
	f.mu.Lock()
	f.ocrPairs = append(f.ocrPairs, [2]OCREntry{prev, curr})
	f.mu.Unlock()
	return f.diffOCR, f.diffErr
}

func (f *fakeCaps) DiffVisualPair(context.Context, VisualEntry, VisualEntry) (string, error) {
	f.record("diff_visual")
	return f.diffVisual, nil
}

func (f *fakeCaps) RollupOCR(context.Context, []OCREntry) (Sections, error) {
	f.record("rollup_ocr")
	return f.rollupOCR, f.rollupErr
}

func (f *fakeCaps) RollupVisual(context.Context, []VisualEntry) (string, error) {
	f.record("rollup_visual")
	return f.rollupVisual, nil
}

func (f *fakeCaps) ExplainError(context.Context, string) (Sections, error) {
	f.record("explain")
	return f.explain, f.explainErr
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []protocol.Outbound
}

func (r *recordingSender) Send(_ context.Context, msg protocol.Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingSender) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.MessageType())
	}
	return out
}

func (r *recordingSender) last() protocol.Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return nil
	}
	return r.msgs[len(r.msgs)-1]
}

func (r *recordingSender) reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

type recordingJournal struct {
	mu      sync.Mutex
	entries []string
}

func (j *recordingJournal) Record(_ context.Context, _, role, kind, content string) {
	j.mu.Lock()
	j.entries = append(j.entries, role+"/"+kind+"/"+content)
	j.mu.Unlock()
}

type testSession struct {
	*Session
	caps   *fakeCaps
	sender *recordingSender
	clock  *fixedClock
}

func newTestSession(caps *fakeCaps) testSession {
	if caps == nil {
		caps = &fakeCaps{}
	}
	sender := &recordingSender{}
	clock := newClock()
	s := NewSession("s-1", DefaultSettings(), Deps{
		Caps:   caps,
		Sender: sender,
		Clock:  clock,
		Logger: logger.Discard(),
	})
	return testSession{Session: s, caps: caps, sender: sender, clock: clock}
}
