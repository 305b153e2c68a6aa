package copilot

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	msgNotEnoughContext = "Not enough context yet to compute changes."
	msgNoContextYet     = "No context yet."

	minPairEntries   = 2
	minRollupEntries = 5
	maxVisualRollup  = 10
)

// Capabilities is the set of model-backed operations the worker consumes.
// Implementations may be slow and may fail; OCR returns an empty string
// rather than an error when no text is found.
type Capabilities interface {
	OCR(ctx context.Context, imageB64 string) (string, error)
	VisionUnderstand(ctx context.Context, imageB64 string) (Sections, error)
	DescribeStructuredFromOCR(ctx context.Context, text string) (Sections, error)
	// ChatAnswer answers prompt, looking at imageB64 when it is non-empty.
	ChatAnswer(ctx context.Context, prompt, imageB64 string) (string, error)
	DiffOCRPair(ctx context.Context, prev, curr OCREntry) (Sections, error)
	DiffVisualPair(ctx context.Context, prev, curr VisualEntry) (string, error)
	RollupOCR(ctx context.Context, entries []OCREntry) (Sections, error)
	RollupVisual(ctx context.Context, entries []VisualEntry) (string, error)
	ExplainError(ctx context.Context, ocrText string) (Sections, error)
}

// Transcriber turns a WAV clip into text.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, wav []byte) (string, error)
}

// RollupWindow is the number of OCR entries a rolling summary looks at for a
// history of length ocrLen: at least 10, at most 20.
func RollupWindow(ocrLen int) int {
	return min(max(10, ocrLen), 20)
}

// Summarizer answers "what changed" and "what has been going on" from the
// session histories. OCR evidence always takes priority over visual evidence.
type Summarizer struct {
	caps    Capabilities
	history *History
	clock   Clock
}

func NewSummarizer(caps Capabilities, history *History, clock Clock) *Summarizer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Summarizer{caps: caps, history: history, clock: clock}
}

// ChangeSinceLastPair diffs the two newest OCR entries, or the two newest
// visual entries when OCR is too thin. No provider is called when neither
// history has a pair.
func (s *Summarizer) ChangeSinceLastPair(ctx context.Context) (string, error) {
	if ocr := s.history.LatestOCR(minPairEntries); len(ocr) == minPairEntries {
		sec, err := s.caps.DiffOCRPair(ctx, ocr[0], ocr[1])
		if err != nil {
			return "", err
		}
		return RenderSections(sec), nil
	}
	if vis := s.history.LatestVisual(minPairEntries); len(vis) == minPairEntries {
		return s.caps.DiffVisualPair(ctx, vis[0], vis[1])
	}
	return msgNotEnoughContext, nil
}

// ChangeSince diffs the earliest and latest entries captured within window.
// Windows shorter than one second are widened to one second.
func (s *Summarizer) ChangeSince(ctx context.Context, window time.Duration) (string, error) {
	cutoff := s.clock.Now().Add(-max(time.Second, window))

	var ocr []OCREntry
	for _, e := range s.history.OCRHistory() {
		if !e.Timestamp.Before(cutoff) {
			ocr = append(ocr, e)
		}
	}
	if len(ocr) >= minPairEntries {
		sec, err := s.caps.DiffOCRPair(ctx, ocr[0], ocr[len(ocr)-1])
		if err != nil {
			return "", err
		}
		return RenderSections(sec), nil
	}

	var vis []VisualEntry
	for _, e := range s.history.VisualHistory() {
		if !e.Timestamp.Before(cutoff) {
			vis = append(vis, e)
		}
	}
	if len(vis) >= minPairEntries {
		return s.caps.DiffVisualPair(ctx, vis[0], vis[len(vis)-1])
	}

	secs := int64(math.Round(window.Seconds()))
	return fmt.Sprintf("Not enough context since the last %ds. Try enabling Auto context or wait a bit.", secs), nil
}

// RollingContext summarizes the newest n OCR entries when there are enough of
// them, otherwise up to the newest 10 visual entries.
func (s *Summarizer) RollingContext(ctx context.Context, n int) (string, error) {
	if n <= 0 {
		ocrLen, _ := s.history.Lens()
		n = RollupWindow(ocrLen)
	}

	if entries := s.history.LatestOCR(n); len(entries) >= min(minRollupEntries, n) {
		sec, err := s.caps.RollupOCR(ctx, entries)
		if err != nil {
			return "", err
		}
		return RenderSections(sec), nil
	}

	vis := s.history.LatestVisual(min(maxVisualRollup, n))
	if len(vis) == 0 {
		return msgNoContextYet, nil
	}
	return s.caps.RollupVisual(ctx, vis)
}
