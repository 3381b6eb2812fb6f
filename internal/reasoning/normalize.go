package reasoning

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"clipnotes/internal/api"
)

// Normalize coerces a raw comparison payload into a ComparisonResult. It is
// pure and total: malformed input degrades to the least-structured valid
// result instead of failing.
func Normalize(raw api.RawComparison) ComparisonResult {
	result := ComparisonResult{
		Explanation: strings.TrimSpace(raw.Explanation),
		Evidence:    []Evidence{},
	}
	result.Answer, _ = ParseAnswer(raw.Answer)

	structured := extractObject(raw.Explanation)

	if structured != nil {
		if answer, ok := structuredAnswer(structured); ok {
			result.Answer = answer
		}
		if explanation := structuredExplanation(structured); explanation != "" {
			result.Explanation = explanation
		}
	}

	result.Confidence = resolveConfidence(structured, raw.Confidence)
	result.Evidence = mergeEvidence(raw.Evidence, structured)
	result.Metrics = resolveMetrics(structured, raw.Metrics)

	if structured == nil {
		if _, matched := ParseAnswer(raw.Answer); !matched {
			applyLabeledLines(&result, raw.Explanation)
		}
	}
	return result
}

func structuredAnswer(obj map[string]any) (Answer, bool) {
	for _, key := range []string{"answer", "result", "winner"} {
		value, ok := obj[key].(string)
		if !ok {
			continue
		}
		if answer, matched := ParseAnswer(value); matched {
			return answer, true
		}
	}
	return AnswerUncertain, false
}

// structuredExplanation prefers the embedded explanation text. An object
// explanation is serialized rather than discarded.
func structuredExplanation(obj map[string]any) string {
	value, ok := obj["explanation"]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func resolveConfidence(structured map[string]any, fallback any) *float64 {
	if structured != nil {
		for _, key := range []string{"confidence", "confidence_score", "score"} {
			if value, ok := structured[key]; ok {
				if parsed := parseConfidence(value); parsed != nil {
					return parsed
				}
			}
		}
	}
	return parseConfidence(fallback)
}

// parseConfidence accepts numbers and numeric strings, including percent
// strings like "85%", and clamps the result to [0,1]. Unparseable values and
// NaN yield nil.
func parseConfidence(value any) *float64 {
	var parsed float64
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		parsed = v
	case int:
		parsed = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		parsed = f
	case string:
		trimmed := strings.TrimSpace(v)
		if percent, ok := strings.CutSuffix(trimmed, "%"); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(percent), 64)
			if err != nil {
				return nil
			}
			parsed = f / 100
		} else {
			f, err := strconv.ParseFloat(trimmed, 64)
			if err != nil {
				return nil
			}
			parsed = f
		}
	default:
		return nil
	}

	if math.IsNaN(parsed) {
		return nil
	}
	parsed = math.Min(1, math.Max(0, parsed))
	return &parsed
}

// mergeEvidence combines the top-level list with the structured "evidence"
// and "supporting_evidence" lists, deduplicating by (clip, label, range,
// description) in first-seen order.
func mergeEvidence(topLevel []map[string]any, structured map[string]any) []Evidence {
	merged := []Evidence{}
	seen := map[string]struct{}{}

	appendItems := func(items []Evidence) {
		for _, item := range items {
			key := evidenceKey(item)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, item)
		}
	}

	for _, item := range topLevel {
		if evidence, ok := normalizeEvidenceItem(item); ok {
			appendItems([]Evidence{evidence})
		}
	}
	if structured != nil {
		appendItems(evidenceList(structured["evidence"]))
		appendItems(evidenceList(structured["supporting_evidence"]))
	}
	return merged
}

func evidenceList(value any) []Evidence {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]Evidence, 0, len(items))
	for _, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if evidence, ok := normalizeEvidenceItem(obj); ok {
			out = append(out, evidence)
		}
	}
	return out
}

// normalizeEvidenceItem requires a non-empty clip id; all other fields take
// lenient aliases and defaults.
func normalizeEvidenceItem(item map[string]any) (Evidence, bool) {
	clipID := firstStringValue(item, "clip_id", "clip", "clipId")
	if clipID == "" {
		return Evidence{}, false
	}
	label := firstStringValue(item, "label", "title", "reason")
	if label == "" {
		label = "Evidence"
	}
	evidence := Evidence{
		ClipID: clipID,
		Label:  label,
		Range:  parseRange(item["timestamp_range"]),
	}
	if description, ok := item["description"].(string); ok {
		evidence.Description = strings.TrimSpace(description)
	}
	return evidence, true
}

func evidenceKey(e Evidence) string {
	rangeKey := ""
	if e.Range != nil {
		rangeKey = fmt.Sprintf("%g-%g", e.Range[0], e.Range[1])
	}
	return strings.Join([]string{e.ClipID, e.Label, rangeKey, e.Description}, "\x00")
}

// parseRange accepts a two-element pair of numbers or timestamp strings, or a
// single "start-end" string. Nil when the shape is unrecognizable.
func parseRange(value any) *[2]float64 {
	switch v := value.(type) {
	case []any:
		if len(v) != 2 {
			return nil
		}
		start, okA := parseTimestamp(v[0])
		end, okB := parseTimestamp(v[1])
		if !okA || !okB {
			return nil
		}
		return &[2]float64{start, end}
	case string:
		trimmed := strings.Trim(strings.TrimSpace(v), "[]")
		parts := strings.SplitN(trimmed, "-", 2)
		if len(parts) != 2 {
			return nil
		}
		start, okA := parseTimestamp(strings.TrimSpace(parts[0]))
		end, okB := parseTimestamp(strings.TrimSpace(parts[1]))
		if !okA || !okB {
			return nil
		}
		return &[2]float64{start, end}
	default:
		return nil
	}
}

// parseTimestamp converts a number, numeric string, or colon-delimited h:m:s
// string into total seconds. Missing higher units default to zero, so
// "12:30" reads as 12 minutes 30 seconds.
func parseTimestamp(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f, true
		}
		segments := strings.Split(trimmed, ":")
		if len(segments) > 3 {
			return 0, false
		}
		total := 0.0
		for _, segment := range segments {
			f, err := strconv.ParseFloat(strings.TrimSpace(segment), 64)
			if err != nil {
				return 0, false
			}
			total = total*60 + f
		}
		return total, true
	default:
		return 0, false
	}
}

func resolveMetrics(structured map[string]any, fallback map[string]any) Metrics {
	if structured != nil {
		if obj, ok := structured["metrics"].(map[string]any); ok {
			if metrics := coerceMetrics(obj); !metrics.Empty() {
				return metrics
			}
		}
	}
	return coerceMetrics(fallback)
}

func coerceMetrics(obj map[string]any) Metrics {
	var metrics Metrics
	if obj == nil {
		return metrics
	}
	if counts, ok := obj["counts_by_label"].(map[string]any); ok {
		metrics.CountsByLabel = coerceIntMap(counts)
	}
	if severity, ok := obj["severity_distribution"].(map[string]any); ok {
		metrics.SeverityDistribution = coerceFloatMap(severity)
	}
	return metrics
}

func coerceIntMap(obj map[string]any) map[string]int {
	out := map[string]int{}
	for key, raw := range obj {
		if f, ok := parseTimestamp(raw); ok {
			out[key] = int(math.Round(f))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func coerceFloatMap(obj map[string]any) map[string]float64 {
	out := map[string]float64{}
	for key, raw := range obj {
		if f, ok := parseTimestamp(raw); ok {
			out[key] = f
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstStringValue(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := obj[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// applyLabeledLines recovers answer, explanation, and confidence from plain
// "answer: ..." style lines when no JSON object could be extracted.
func applyLabeledLines(result *ComparisonResult, text string) {
	var explanationParts []string
	matchedAny := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lowered := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lowered, "answer"):
			if answer, ok := ParseAnswer(labeledValue(line, "answer")); ok {
				result.Answer = answer
				matchedAny = true
			}
		case strings.HasPrefix(lowered, "explanation"):
			explanationParts = append(explanationParts, labeledValue(line, "explanation"))
			matchedAny = true
		case strings.HasPrefix(lowered, "confidence"):
			if parsed := parseConfidence(labeledValue(line, "confidence")); parsed != nil {
				result.Confidence = parsed
				matchedAny = true
			}
		default:
			explanationParts = append(explanationParts, line)
		}
	}

	if matchedAny && len(explanationParts) > 0 {
		result.Explanation = strings.TrimSpace(strings.Join(explanationParts, "\n"))
	}
}

func labeledValue(line, label string) string {
	if _, after, found := strings.Cut(line, ":"); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(line[len(label):])
}
