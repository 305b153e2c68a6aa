package analyst

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/yoockh/screencopilot/internal/copilot"
)

// decodeLoose unmarshals model output, repairing it first when it is not
// valid JSON (trailing commas, fences, truncated objects).
func decodeLoose(raw string, dst any) bool {
	raw = stripFences(raw)
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err == nil {
		return true
	}
	fixed, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(fixed), dst) == nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

type looseSections struct {
	Summary     any `json:"summary"`
	KeyItems    any `json:"keyItems"`
	Suggestions any `json:"suggestions"`
}

// parseSections never fails: unusable output yields the fallback summary and
// empty lists.
func parseSections(raw, fallbackSummary string) copilot.Sections {
	var p looseSections
	if !decodeLoose(raw, &p) {
		return copilot.Sections{Summary: fallbackSummary, KeyItems: []string{}, Suggestions: []string{}}
	}
	summary, _ := p.Summary.(string)
	return copilot.Sections{
		Summary:     orDefault(summary, fallbackSummary),
		KeyItems:    stringList(p.KeyItems),
		Suggestions: stringList(p.Suggestions),
	}
}

type visionPayload struct {
	Scene           any `json:"scene"`
	NotableElements any `json:"notableElements"`
	UIRegions       any `json:"uiRegions"`
	Counts          any `json:"counts"`
	Suggestions     any `json:"suggestions"`
}

// parseVision flattens the scene payload: notable elements, UI regions and
// counts become key items in that order.
func parseVision(raw string) copilot.Sections {
	var p visionPayload
	if !decodeLoose(raw, &p) {
		return copilot.Sections{Summary: "A screen is visible.", KeyItems: []string{}, Suggestions: []string{}}
	}
	scene, _ := p.Scene.(string)

	keys := stringList(p.NotableElements)
	keys = append(keys, stringList(p.UIRegions)...)
	keys = append(keys, stringList(p.Counts)...)
	return copilot.Sections{
		Summary:     orDefault(scene, "A screen is visible."),
		KeyItems:    keys,
		Suggestions: stringList(p.Suggestions),
	}
}

// stringList keeps the trimmed, non-empty strings of a JSON array and
// ignores anything else.
func stringList(v any) []string {
	out := []string{}
	arr, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range arr {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
