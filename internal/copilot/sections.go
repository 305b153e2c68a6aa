package copilot

import "strings"

// FallbackSummary stands in for a missing summary in merged or rendered sections.
const FallbackSummary = "Here's what I can see."

// Sections is the unit of derived knowledge about the screen. Lists are never
// nil once they pass through MergeSections or a capability provider.
type Sections struct {
	Summary     string   `json:"summary"`
	KeyItems    []string `json:"keyItems"`
	Suggestions []string `json:"suggestions"`
}

// MergeSections fuses two independently derived Sections. The first non-empty
// summary wins; key items and suggestions are unioned in first-seen order after
// trimming, dropping empties and exact duplicates.
func MergeSections(a, b Sections) Sections {
	summary := strings.TrimSpace(a.Summary)
	if summary == "" {
		summary = strings.TrimSpace(b.Summary)
	}
	if summary == "" {
		summary = FallbackSummary
	}
	return Sections{
		Summary:     summary,
		KeyItems:    uniqueTrimmed(a.KeyItems, b.KeyItems),
		Suggestions: uniqueTrimmed(a.Suggestions, b.Suggestions),
	}
}

// RenderSections produces the user-visible text block: the summary, then
// "Key details" and "Next steps" lists when they have entries.
func RenderSections(s Sections) string {
	summary := strings.TrimSpace(s.Summary)
	if summary == "" {
		summary = FallbackSummary
	}

	parts := []string{summary}
	if items := uniqueTrimmed(s.KeyItems); len(items) > 0 {
		parts = append(parts, "Key details:\n"+bullets(items))
	}
	if steps := uniqueTrimmed(s.Suggestions); len(steps) > 0 {
		parts = append(parts, "Next steps:\n"+bullets(steps))
	}
	return strings.Join(parts, "\n\n")
}

func bullets(items []string) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(it)
	}
	return b.String()
}

func uniqueTrimmed(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
