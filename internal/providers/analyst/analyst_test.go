package analyst

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/screencopilot/internal/cache"
	"github.com/yoockh/screencopilot/internal/copilot"
	"github.com/yoockh/screencopilot/internal/logger"
	"github.com/yoockh/screencopilot/internal/metrics"
	"github.com/yoockh/screencopilot/internal/providers/llm"
	"github.com/yoockh/screencopilot/internal/utils"
)

type scriptedLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []llm.Request
}

func (s *scriptedLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return s.reply, s.err
}

func (s *scriptedLLM) StreamAnswer(context.Context, string) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error)
	close(out)
	close(errs)
	return out, errs
}

func (s *scriptedLLM) Close() error { return nil }

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

func newAnalyst(p llm.Provider, c cache.Cache) *Analyst {
	return New(p, Options{
		OCRCache: c,
		Metrics:  metrics.MustNew(prometheus.NewRegistry()),
		Logger:   logger.Discard(),
	})
}

var jpegB64 = base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0, 0x01})

func TestOCRCachesNonEmptyResults(t *testing.T) {
	t.Parallel()

	p := &scriptedLLM{reply: "  main.go:12 undefined: foo \n"}
	a := newAnalyst(p, cache.NewLRUCache(8))

	first, err := a.OCR(context.Background(), jpegB64)
	require.NoError(t, err)
	second, err := a.OCR(context.Background(), jpegB64)
	require.NoError(t, err)

	assert.Equal(t, "main.go:12 undefined: foo", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls())
	require.Len(t, p.reqs, 1)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xe0, 0x01}, p.reqs[0].ImageJPEG)
}

func TestOCRDoesNotCacheEmptyText(t *testing.T) {
	t.Parallel()

	p := &scriptedLLM{reply: "   "}
	c := cache.NewLRUCache(8)
	a := newAnalyst(p, c)

	for i := 0; i < 2; i++ {
		text, err := a.OCR(context.Background(), jpegB64)
		require.NoError(t, err)
		assert.Empty(t, text)
	}
	assert.Equal(t, 2, p.calls())
	assert.Zero(t, c.Len())
}

func TestOCRAcceptsDataURL(t *testing.T) {
	t.Parallel()

	p := &scriptedLLM{reply: "hello"}
	a := newAnalyst(p, nil)

	text, err := a.OCR(context.Background(), "data:image/jpeg;base64,"+jpegB64)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestOCRRejectsBadBase64(t *testing.T) {
	t.Parallel()

	a := newAnalyst(&scriptedLLM{}, nil)
	_, err := a.OCR(context.Background(), "%%%")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestCapabilityFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	a := newAnalyst(&scriptedLLM{err: errors.New("quota exceeded")}, nil)
	_, err := a.ExplainError(context.Background(), "panic: boom")
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
	assert.Equal(t, "quota exceeded", utils.Cause(err).Error())
}

func TestVisionUnderstandFlattensPayload(t *testing.T) {
	t.Parallel()

	p := &scriptedLLM{reply: `{
		"scene": "Twitch stream of a shooter",
		"notableElements": ["HUD with ammo", ""],
		"uiRegions": ["right live chat"],
		"counts": ["32.5K viewers"],
		"suggestions": ["Ask me to summarize the chat"]
	}`}
	a := newAnalyst(p, nil)

	got, err := a.VisionUnderstand(context.Background(), jpegB64)
	require.NoError(t, err)
	assert.Equal(t, "Twitch stream of a shooter", got.Summary)
	assert.Equal(t, []string{"HUD with ammo", "right live chat", "32.5K viewers"}, got.KeyItems)
	assert.Equal(t, []string{"Ask me to summarize the chat"}, got.Suggestions)
	assert.True(t, p.reqs[0].JSON)
}

func TestVisionUnderstandFallsBackOnGarbage(t *testing.T) {
	t.Parallel()

	a := newAnalyst(&scriptedLLM{reply: "I cannot see anything"}, nil)
	got, err := a.VisionUnderstand(context.Background(), jpegB64)
	require.NoError(t, err)
	assert.Equal(t, "A screen is visible.", got.Summary)
	assert.Empty(t, got.KeyItems)
}

func TestParseSectionsRepairsBrokenJSON(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		raw  string
		want copilot.Sections
	}{
		"trailing comma": {
			raw:  `{"summary": "Build failed", "keyItems": ["main.go:12",], "suggestions": []}`,
			want: copilot.Sections{Summary: "Build failed", KeyItems: []string{"main.go:12"}, Suggestions: []string{}},
		},
		"fenced": {
			raw:  "```json\n{\"summary\": \"Tests pass\", \"keyItems\": [], \"suggestions\": [\"Commit\"]}\n```",
			want: copilot.Sections{Summary: "Tests pass", KeyItems: []string{}, Suggestions: []string{"Commit"}},
		},
		"wrong types": {
			raw:  `{"summary": 3, "keyItems": "one", "suggestions": [1, "two"]}`,
			want: copilot.Sections{Summary: "fallback", KeyItems: []string{}, Suggestions: []string{"two"}},
		},
		"empty": {
			raw:  "",
			want: copilot.Sections{Summary: "fallback", KeyItems: []string{}, Suggestions: []string{}},
		},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, parseSections(tc.raw, "fallback"))
		})
	}
}

func TestDiffOCRPairIncludesLineChanges(t *testing.T) {
	t.Parallel()

	p := &scriptedLLM{reply: `{"summary": "A new error appeared"}`}
	a := newAnalyst(p, nil)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := a.DiffOCRPair(context.Background(),
		copilot.OCREntry{Timestamp: at, Text: "build ok\nbranch main"},
		copilot.OCREntry{Timestamp: at.Add(time.Second), Text: "build failed\nbranch main"},
	)
	require.NoError(t, err)
	assert.Equal(t, "A new error appeared", got.Summary)

	prompt := p.reqs[0].Prompt
	assert.Contains(t, prompt, "Previous (12:00:00)")
	assert.Contains(t, prompt, "Current (12:00:01)")
	assert.Contains(t, prompt, "- build ok")
	assert.Contains(t, prompt, "+ build failed")
	assert.NotContains(t, prompt, "+ branch main")
}

func TestLineDiffSkipsIdenticalText(t *testing.T) {
	t.Parallel()
	assert.Empty(t, lineDiff("same\ntext", "same\ntext"))
}

func TestTextCapabilitiesUseFallbacks(t *testing.T) {
	t.Parallel()

	a := newAnalyst(&scriptedLLM{reply: "  "}, nil)
	ctx := context.Background()

	diff, err := a.DiffVisualPair(ctx, copilot.VisualEntry{}, copilot.VisualEntry{})
	require.NoError(t, err)
	assert.Equal(t, "(no visual change summary)", diff)

	roll, err := a.RollupVisual(ctx, []copilot.VisualEntry{{Summary: "editor"}})
	require.NoError(t, err)
	assert.Equal(t, "(no summary)", roll)

	sec, err := a.RollupOCR(ctx, []copilot.OCREntry{{Text: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "Summary ready.", sec.Summary)
}

func TestChatAnswerAttachesFrameWhenPresent(t *testing.T) {
	t.Parallel()

	p := &scriptedLLM{reply: " It is a terminal. "}
	a := newAnalyst(p, nil)

	got, err := a.ChatAnswer(context.Background(), "what is this?", jpegB64)
	require.NoError(t, err)
	assert.Equal(t, "It is a terminal.", got)
	assert.NotEmpty(t, p.reqs[0].ImageJPEG)

	_, err = a.ChatAnswer(context.Background(), "and now?", "")
	require.NoError(t, err)
	assert.Empty(t, p.reqs[1].ImageJPEG)
}
