package copilot

import (
	"sync"
	"time"
)

const (
	DefaultFrameStaleAfter = 6 * time.Second
	DefaultAudioSnippetMax = 25
)

// FrameCache keeps the single most recent screenshot (base64 JPEG).
type FrameCache struct {
	mu  sync.RWMutex
	b64 string
	at  time.Time
}

func (f *FrameCache) Store(b64 string, at time.Time) {
	f.mu.Lock()
	f.b64, f.at = b64, at
	f.mu.Unlock()
}

// Fresh returns the cached frame if one exists and is no older than staleAfter.
func (f *FrameCache) Fresh(now time.Time, staleAfter time.Duration) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.b64 == "" || now.Sub(f.at) > staleAfter {
		return "", false
	}
	return f.b64, true
}

// AudioSnippet is one transcript fragment of shared tab/window audio.
type AudioSnippet struct {
	Timestamp time.Time
	Text      string
}

// AudioSnippets is a bounded FIFO of transcript fragments. It lives only as
// long as the session and is used as low-confidence context.
type AudioSnippets struct {
	mu    sync.RWMutex
	max   int
	items []AudioSnippet
}

func NewAudioSnippets(max int) *AudioSnippets {
	if max <= 0 {
		max = DefaultAudioSnippetMax
	}
	return &AudioSnippets{max: max}
}

func (a *AudioSnippets) Push(text string, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, AudioSnippet{Timestamp: at, Text: text})
	if over := len(a.items) - a.max; over > 0 {
		a.items = append([]AudioSnippet(nil), a.items[over:]...)
	}
}

// Latest returns up to k of the newest snippets, oldest first.
func (a *AudioSnippets) Latest(k int) []AudioSnippet {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return lastN(a.items, k)
}

func (a *AudioSnippets) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}
