package copilot

import (
	"regexp"
	"strings"
)

var (
	errorSignals     = regexp.MustCompile(`(?i)(Exception|Error:|Traceback|at\s+\w+\s+\(|BUILD FAILED|Compilation failed|TypeError|ReferenceError|Stack trace)`)
	streamIndicators = regexp.MustCompile(`(?i)stream|video player|live|twitch|chat overlay|overlay|youtube`)
)

// HasErrorSignals reports whether OCR text looks like an error, exception or
// stack trace.
func HasErrorSignals(text string) bool {
	return errorSignals.MatchString(text)
}

// LikelyStream reports whether any visual key item suggests video or
// livestream content, which warrants a denser vision cadence.
func LikelyStream(keyItems []string) bool {
	for _, k := range keyItems {
		if streamIndicators.MatchString(k) {
			return true
		}
	}
	return false
}

// LooksLikeScreenAudio filters audio tracks down to shared screen/tab audio;
// microphones are ignored.
func LooksLikeScreenAudio(source, name string) bool {
	return strings.Contains(strings.ToLower(source), "screen") ||
		strings.Contains(strings.ToLower(name), "screen")
}

// IngestPlan is the per-ingest duty-cycle decision.
type IngestPlan struct {
	Vision bool
	Rollup bool
}

// PlanIngest decides which periodic passes run for ingest number counter.
// Vision runs every visionStream ingests when the last visual entry looks like
// a stream and every visionDefault otherwise; the rolling context summary runs
// every contextEvery ingests. Both may fire on the same ingest.
func PlanIngest(counter int64, lastVisualKeyItems []string, visionDefault, visionStream, contextEvery int) IngestPlan {
	every := visionDefault
	if LikelyStream(lastVisualKeyItems) {
		every = visionStream
	}
	return IngestPlan{
		Vision: every > 0 && counter%int64(every) == 0,
		Rollup: contextEvery > 0 && counter%int64(contextEvery) == 0,
	}
}
