package reasoning

import "strings"

// Answer is the normalized verdict of a two-clip comparison.
type Answer string

const (
	AnswerClipA     Answer = "clip_a"
	AnswerClipB     Answer = "clip_b"
	AnswerEqual     Answer = "equal"
	AnswerUncertain Answer = "uncertain"
)

var answerAliases = map[string]Answer{
	"a":       AnswerClipA,
	"b":       AnswerClipB,
	"tie":     AnswerEqual,
	"similar": AnswerEqual,
	"unknown": AnswerUncertain,
}

// ParseAnswer maps a free-form answer string onto one of the four verdict
// tags. Matching is case-insensitive with spaces folded to underscores, so
// "Clip A" and "clip_a" are equivalent. The second return reports whether the
// input matched at all.
func ParseAnswer(value string) (Answer, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	switch Answer(cleaned) {
	case AnswerClipA, AnswerClipB, AnswerEqual, AnswerUncertain:
		return Answer(cleaned), true
	}
	if alias, ok := answerAliases[cleaned]; ok {
		return alias, true
	}
	return AnswerUncertain, false
}

// Evidence cites a clip and optional time range supporting the answer.
type Evidence struct {
	ClipID      string      `json:"clip_id"`
	Label       string      `json:"label"`
	Range       *[2]float64 `json:"timestamp_range,omitempty"`
	Description string      `json:"description,omitempty"`
}

// Metrics carries the aggregate numbers the service attaches to a comparison.
type Metrics struct {
	CountsByLabel        map[string]int     `json:"counts_by_label,omitempty"`
	SeverityDistribution map[string]float64 `json:"severity_distribution,omitempty"`
}

// Empty reports whether no metric values are present.
func (m Metrics) Empty() bool {
	return len(m.CountsByLabel) == 0 && len(m.SeverityDistribution) == 0
}

// ComparisonResult is the normalized comparison outcome. Confidence is nil
// when the service supplied no parseable value.
type ComparisonResult struct {
	Answer      Answer     `json:"answer"`
	Explanation string     `json:"explanation"`
	Confidence  *float64   `json:"confidence,omitempty"`
	Evidence    []Evidence `json:"evidence"`
	Metrics     Metrics    `json:"metrics"`
}
