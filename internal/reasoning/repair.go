package reasoning

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	// Value position only (after : , or [) so timecodes already inside
	// string literals are left alone.
	timecodeRangePattern = regexp.MustCompile(`([:,\[]\s*)\[(\d{1,2}:\d{2}(?::\d{2})?\s*-\s*\d{1,2}:\d{2}(?::\d{2})?)\]`)
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
)

// extractObject pulls a JSON object out of free-form text. A fenced code
// block wins; otherwise the first balanced top-level {...} span is used.
// Returns nil when no parseable object can be recovered, even after repair.
func extractObject(text string) map[string]any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if fenced := fencedBlock(trimmed); fenced != "" {
		if obj := parseRelaxed(fenced); obj != nil {
			return obj
		}
	}
	if span := braceSpan(trimmed); span != "" {
		return parseRelaxed(span)
	}
	return nil
}

// parseRelaxed attempts a strict parse, then one bounded repair pass and a
// single retry. The repair quotes bracketed timecode ranges like
// [12:30-12:45] so they read as strings instead of malformed arrays, and
// strips trailing commas before closing brackets.
func parseRelaxed(candidate string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj
	}

	repaired := timecodeRangePattern.ReplaceAllString(candidate, `$1"[$2]"`)
	repaired = trailingCommaPattern.ReplaceAllString(repaired, "$1")
	if repaired == candidate {
		return nil
	}
	if err := json.Unmarshal([]byte(repaired), &obj); err == nil {
		return obj
	}
	return nil
}

func fencedBlock(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return ""
	}
	body := text[start+3:]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		lang := strings.TrimSpace(body[:newline])
		if lang == "" || strings.EqualFold(lang, "json") {
			body = body[newline+1:]
		}
	}
	end := strings.Index(body, "```")
	if end < 0 {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(body[:end])
}

// braceSpan returns the first balanced top-level {...} span, tracking string
// literals so braces inside quoted values do not break the count.
func braceSpan(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	// Unbalanced; fall back to the widest span so the repair pass still
	// gets a chance.
	if end := strings.LastIndexByte(text, '}'); end > start {
		return text[start : end+1]
	}
	return ""
}
