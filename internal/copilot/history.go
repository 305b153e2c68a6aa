package copilot

import (
	"sync"
	"time"
)

// DefaultHistoryMax keeps roughly two minutes of context at a 3s ingest cadence.
const DefaultHistoryMax = 40

// OCREntry is one non-empty OCR reading of the screen.
type OCREntry struct {
	Timestamp time.Time
	Text      string
}

// VisualEntry is the outcome of one vision pass.
type VisualEntry struct {
	Timestamp time.Time
	Summary   string
	KeyItems  []string
}

// History holds the bounded OCR and visual histories of one session together
// with the last ingested frame hash and the ingest counter. Every mutation
// happens under one lock; readers get copies in chronological order.
type History struct {
	mu    sync.RWMutex
	max   int
	clock Clock

	ocr    []OCREntry
	visual []VisualEntry

	lastHash      string
	ingestCounter int64
}

func NewHistory(max int, clock Clock) *History {
	if max <= 0 {
		max = DefaultHistoryMax
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &History{max: max, clock: clock}
}

// PushOCR appends text stamped with the current time, evicting the oldest
// entries beyond capacity.
func (h *History) PushOCR(text string) OCREntry {
	e := OCREntry{Timestamp: h.clock.Now(), Text: text}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.ocr = append(h.ocr, e)
	if over := len(h.ocr) - h.max; over > 0 {
		h.ocr = append([]OCREntry(nil), h.ocr[over:]...)
	}
	return e
}

// PushVisual appends a vision result stamped with the current time.
func (h *History) PushVisual(summary string, keyItems []string) VisualEntry {
	e := VisualEntry{
		Timestamp: h.clock.Now(),
		Summary:   summary,
		KeyItems:  append([]string{}, keyItems...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.visual = append(h.visual, e)
	if over := len(h.visual) - h.max; over > 0 {
		h.visual = append([]VisualEntry(nil), h.visual[over:]...)
	}
	return e
}

// LatestOCR returns up to k of the newest OCR entries, oldest first.
func (h *History) LatestOCR(k int) []OCREntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lastN(h.ocr, k)
}

// LatestVisual returns up to k of the newest visual entries, oldest first.
func (h *History) LatestVisual(k int) []VisualEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lastN(h.visual, k)
}

func (h *History) OCRHistory() []OCREntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]OCREntry(nil), h.ocr...)
}

func (h *History) VisualHistory() []VisualEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]VisualEntry(nil), h.visual...)
}

// Lens reports the current OCR and visual history lengths under one read lock.
func (h *History) Lens() (ocr, visual int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ocr), len(h.visual)
}

// LastHash returns the hash of the last ingest-only frame whose OCR succeeded.
func (h *History) LastHash() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastHash, h.lastHash != ""
}

func (h *History) SetLastHash(hash string) {
	h.mu.Lock()
	h.lastHash = hash
	h.mu.Unlock()
}

// BumpIngestCounter increments the ingest counter and returns the new value.
// Each caller observes a distinct value, so cadence checks never double-fire.
func (h *History) BumpIngestCounter() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ingestCounter++
	return h.ingestCounter
}

func (h *History) IngestCounter() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ingestCounter
}

func (h *History) ResetIngestCounter() {
	h.mu.Lock()
	h.ingestCounter = 0
	h.mu.Unlock()
}

func lastN[T any](xs []T, k int) []T {
	if k <= 0 {
		return nil
	}
	if k > len(xs) {
		k = len(xs)
	}
	return append([]T(nil), xs[len(xs)-k:]...)
}
