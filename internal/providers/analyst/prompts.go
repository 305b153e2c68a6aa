package analyst

import (
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/yoockh/screencopilot/internal/copilot"
)

const (
	ocrSystem = "Extract the clearly readable text on this screen capture, line by line. " +
		"Return only the text. No commentary, no guesses; skip anything blurry."
	ocrPrompt = "Plain text OCR, no commentary:"

	visionSystem = `You analyze a live screen capture. It may be a browser tab, a livestream, a shop cart,
a code editor, a document, a dashboard or a game.

Return strict JSON with keys:
scene: string             what is mainly happening; name the site, app or game when it is obvious
notableElements: string[] important visible elements (HUD, chat sidebar full of emotes, webcam overlay, cart items)
uiRegions: string[]       layout regions you can clearly see (left nav, center feed, right live chat)
counts: string[]          numbers you can read with confidence (32.5K viewers, cart has 5 items, ammo 13)
suggestions: string[]     short follow-up prompts for the user (Ask me to summarize the chat)

Be specific and honest. If small text is unreadable say so, but still describe layout and content.`
	visionPrompt = "Describe this screenshot and fill the JSON keys precisely."

	structuredSystem = `You get raw OCR text from a screen capture.
Summarize what the text suggests is happening, list notable strings (titles, labels, stats,
usernames, chat lines, totals, warnings) and give short next steps or questions.
Return strict JSON with keys summary (string), keyItems (string[]), suggestions (string[]).
Be concise. If the text looks like chat, include a few interesting lines in keyItems.`

	chatSystem = "You are a screen-aware copilot. Answer the question about the CURRENT screen precisely and concisely, " +
		"using layout, UI elements, visible text and recent audio. If the answer is not visible, say what is missing " +
		"and what the user could do next."

	diffOCRSystem = `You detect changes between two OCR readings of the same screen.
Return JSON with keys summary (string), keyItems (short strings), suggestions (short strings).
Focus on what visibly changed: sections added or removed, new errors, numbers, filenames, branch names, status text.`

	diffVisualSystem = "You summarize what changed between two visual descriptions of a screen for the user. " +
		"Mention scene changes, overlays appearing or disappearing, UI changes (player controls, chat, banners) " +
		"and salient actions. At most 6 bullets."

	rollupOCRSystem = `You write a short, user-facing digest of recent screen OCR.
Return JSON with keys summary (string), keyItems (string[]), suggestions (string[]). Keep it concise.`

	rollupVisualSystem = "Write a concise rolling summary over recent screenshots. Highlight scene changes, " +
		"overlays, UI elements and what the user is likely doing. Use 4 to 10 bullets."

	explainSystem = `You explain build and runtime errors concisely.
Return JSON with summary (string), keyItems (concrete findings such as filenames, line numbers,
error codes) and suggestions (next steps).`

	maxDiffLines = 40
)

func stamp(t time.Time) string { return t.Format("15:04:05") }

func ocrPairPrompt(prev, curr copilot.OCREntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Previous (%s):\n%s\n\nCurrent (%s):\n%s", stamp(prev.Timestamp), prev.Text, stamp(curr.Timestamp), curr.Text)
	if d := lineDiff(prev.Text, curr.Text); d != "" {
		b.WriteString("\n\nLine changes:\n")
		b.WriteString(d)
	}
	return b.String()
}

// lineDiff lists added and removed lines between two OCR readings, capped at
// maxDiffLines. Unchanged lines are left out.
func lineDiff(prev, curr string) string {
	if prev == curr {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(prev, curr)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []string
	for _, d := range diffs {
		var sign string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			sign = "+ "
		case diffmatchpatch.DiffDelete:
			sign = "- "
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			out = append(out, sign+line)
		}
	}
	if len(out) > maxDiffLines {
		out = append(out[:maxDiffLines], fmt.Sprintf("(%d more)", len(out)-maxDiffLines))
	}
	return strings.Join(out, "\n")
}

func visualPairPrompt(prev, curr copilot.VisualEntry) string {
	return fmt.Sprintf("Previous (%s):\nSummary: %s\nKey items: %s\n\nCurrent (%s):\nSummary: %s\nKey items: %s",
		stamp(prev.Timestamp), prev.Summary, strings.Join(prev.KeyItems, "; "),
		stamp(curr.Timestamp), curr.Summary, strings.Join(curr.KeyItems, "; "))
}

func ocrBundle(entries []copilot.OCREntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("[%s]\n%s", stamp(e.Timestamp), e.Text)
	}
	return strings.Join(parts, "\n---\n")
}

func visualBundle(entries []copilot.VisualEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		s := fmt.Sprintf("[%s]\n%s", stamp(e.Timestamp), e.Summary)
		if len(e.KeyItems) > 0 {
			s += "\n- " + strings.Join(e.KeyItems, "\n- ")
		}
		parts[i] = s
	}
	return strings.Join(parts, "\n---\n")
}
