package openai

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fitscreen/fitscreen/internal/ai"
)

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	trailingFence = regexp.MustCompile("```\\s*$")
)

// parseAssessment turns the raw model response into a FitAssessment using a
// three-stage fallback: direct JSON parse, then code-fence stripping, then
// extraction of the first {...} span. The staged behavior recovers common
// malformed-but-salvageable model outputs and must stay a chain, not a single
// regex.
func parseAssessment(raw string) (*ai.FitAssessment, error) {
	data, ok := decodeObject(raw)
	if !ok {
		data, ok = decodeObject(stripFences(raw))
	}
	if !ok {
		data, ok = decodeObject(braceSpan(raw))
	}

	if !ok || !hasRequiredKeys(data) {
		return nil, &ai.Error{Kind: ai.KindInvalidFormat, Raw: raw}
	}

	return &ai.FitAssessment{
		Strengths:  joinBullets(data["strengths"]),
		Weaknesses: joinBullets(data["weaknesses"]),
		Score:      coerceScore(data["score"]),
		Rationale:  coerceString(data["rationale"]),
	}, nil
}

func decodeObject(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false
	}
	return data, true
}

// stripFences removes a leading Markdown code-fence marker with an optional
// language tag and a trailing fence marker.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = leadingFence.ReplaceAllString(raw, "")
	raw = trailingFence.ReplaceAllString(raw, "")
	return strings.TrimSpace(raw)
}

// braceSpan returns the greedy substring from the first "{" to the last "}".
func braceSpan(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

func hasRequiredKeys(data map[string]any) bool {
	if data == nil {
		return false
	}
	for _, key := range []string{"strengths", "weaknesses", "score"} {
		if _, ok := data[key]; !ok {
			return false
		}
	}
	return true
}

// joinBullets flattens a JSON array of short strings into a single
// newline-delimited string. An empty array yields an empty string.
func joinBullets(v any) string {
	switch val := v.(type) {
	case []any:
		bullets := make([]string, 0, len(val))
		for _, item := range val {
			bullet := coerceString(item)
			if bullet == "" {
				continue
			}
			bullets = append(bullets, bullet)
		}
		return strings.Join(bullets, "\n")
	case string:
		return strings.TrimSpace(val)
	default:
		return ""
	}
}

// coerceScore converts the score field to a float64, defaulting to 0 when it
// is absent or non-numeric. No clamping to [0,100] is performed.
func coerceScore(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) {
			return 0
		}
		return f
	default:
		return 0
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(bytes)
	}
}
