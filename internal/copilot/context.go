package copilot

import (
	"fmt"
	"strings"
	"time"
)

const (
	screenContextVisual = 6
	screenContextOCR    = 6
	screenContextAudio  = 6
	ocrQuoteLimit       = 800
)

// ScreenContext gathers the newest visual, OCR and audio evidence into the
// prompt preamble used for free-form questions. Visual evidence is presented
// as the most trusted, audio as the least.
func ScreenContext(visual []VisualEntry, ocr []OCREntry, audio []AudioSnippet) string {
	visual = tail(visual, screenContextVisual)
	ocr = tail(ocr, screenContextOCR)
	audio = tail(audio, screenContextAudio)

	var b strings.Builder
	b.WriteString("You are a copilot that answers questions about what is on the user's screen.\n\n")

	b.WriteString("Context - Visual (highest trust):\n")
	if len(visual) == 0 {
		b.WriteString("(no recent visual summaries)\n")
	}
	for _, v := range visual {
		fmt.Fprintf(&b, "- [%s] %s\n", clockTime(v.Timestamp), v.Summary)
		for _, k := range v.KeyItems {
			fmt.Fprintf(&b, "  • %s\n", k)
		}
	}

	b.WriteString("\nContext - OCR (may be partial or noisy):\n")
	if len(ocr) == 0 {
		b.WriteString("(no recent OCR text)\n")
	}
	for i, o := range ocr {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- [%s]\n%s\n", clockTime(o.Timestamp), truncateRunes(strings.TrimSpace(o.Text), ocrQuoteLimit))
	}

	b.WriteString("\nContext - Audio from the shared tab/video (low confidence, short clips):\n")
	if len(audio) == 0 {
		b.WriteString("(no recent audio transcripts)\n")
	}
	for _, a := range audio {
		fmt.Fprintf(&b, "- [%s] %s\n", clockTime(a.Timestamp), a.Text)
	}

	b.WriteString(`
Instructions:
- Prefer visual descriptions when identifying UI, items, products, buttons.
- Use OCR to quote exact labels only when readable.
- Use AUDIO to understand what the video / speaker is talking about right now.
- If the question cannot be answered from the above, say what is missing and suggest a next step.
- Be concise and actionable.`)
	return b.String()
}

// QuestionPrompt appends the user's question to a screen context.
func QuestionPrompt(screenContext, question string) string {
	return screenContext + "\n\nUser question: " + question
}

func clockTime(t time.Time) string { return t.Format("15:04:05") }

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func tail[T any](xs []T, k int) []T {
	if len(xs) <= k {
		return xs
	}
	return xs[len(xs)-k:]
}
