package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ClipStatus represents the backend lifecycle of a registered clip.
type ClipStatus string

const (
	ClipPending    ClipStatus = "pending"
	ClipProcessing ClipStatus = "processing"
	ClipReady      ClipStatus = "ready"
	ClipFailed     ClipStatus = "failed"
)

// Severity grades a detected moment.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Moment is a labeled time interval within an analysis.
type Moment struct {
	StartS   float64  `json:"start_s"`
	EndS     float64  `json:"end_s"`
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
}

// ClipRegistration is a clip recorded server-side. AssetID stays nil until the
// binary asset has been uploaded.
type ClipRegistration struct {
	ID             uuid.UUID  `json:"id"`
	Filename       string     `json:"filename"`
	AssetID        *string    `json:"asset_id"`
	Status         ClipStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAnalysisAt *time.Time `json:"last_analysis_at,omitempty"`
	LatencyMS      *int64     `json:"latency_ms,omitempty"`
}

// ClipAnalysis is the result of one analysis run.
type ClipAnalysis struct {
	ClipID       uuid.UUID       `json:"clip_id"`
	Summary      string          `json:"summary"`
	Moments      []Moment        `json:"moments"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	LatencyMS    int64           `json:"latency_ms"`
	CreatedAt    time.Time       `json:"created_at"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// ClipDetail bundles a clip with its latest analysis, when one exists.
type ClipDetail struct {
	Clip     ClipRegistration `json:"clip"`
	Analysis *ClipAnalysis    `json:"analysis"`
}

// ClipListItem is the summary row returned by the clip listing endpoint.
type ClipListItem struct {
	ID        uuid.UUID  `json:"id"`
	Filename  string     `json:"filename"`
	AssetID   *string    `json:"asset_id"`
	Status    ClipStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type clipListResponse struct {
	Items []ClipListItem `json:"items"`
}

// ChatRequest is a follow-up question scoped to one clip submission.
type ChatRequest struct {
	SubmissionID string `json:"submission_id"`
	Prompt       string `json:"prompt"`
}

// ChatResponse is the backend's answer to a follow-up question.
type ChatResponse struct {
	SubmissionID string `json:"submission_id"`
	AssetID      string `json:"asset_id"`
	Message      string `json:"message"`
	CompletionID string `json:"completion_id,omitempty"`
}

// CompareRequest asks the reasoning service to compare two clips.
type CompareRequest struct {
	ClipA    uuid.UUID `json:"clip_a"`
	ClipB    uuid.UUID `json:"clip_b"`
	Question string    `json:"question"`
}

// RawComparison is the pre-normalization comparison payload. The reasoning
// model frequently embeds JSON inside the explanation text and mistypes the
// loosely structured fields, so everything beyond answer/explanation is kept
// schemaless for the normalizer to sort out.
type RawComparison struct {
	Answer      string           `json:"answer"`
	Explanation string           `json:"explanation"`
	Evidence    []map[string]any `json:"evidence"`
	Metrics     map[string]any   `json:"metrics"`
	Confidence  any              `json:"confidence"`
}

// ClipMetrics aggregates per-clip analysis metrics for visualization.
type ClipMetrics struct {
	ClipID               uuid.UUID          `json:"clip_id"`
	CountsByLabel        map[string]int     `json:"counts_by_label"`
	DurationsByLabel     map[string]float64 `json:"durations_by_label"`
	SeverityDistribution map[string]float64 `json:"severity_distribution"`
}

// ConfigSnapshot is the persisted operator configuration.
type ConfigSnapshot struct {
	ModelParams    map[string]any `json:"model_params"`
	FeatureFlags   map[string]any `json:"feature_flags"`
	ThemeOverrides map[string]any `json:"theme_overrides,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
	UpdatedBy      string         `json:"updated_by,omitempty"`
}

// ConfigUpdate carries the sections being persisted. Nil sections are left
// untouched server-side.
type ConfigUpdate struct {
	ModelParams    map[string]any  `json:"model_params,omitempty"`
	FeatureFlags   map[string]any  `json:"feature_flags,omitempty"`
	ThemeOverrides *map[string]any `json:"theme_overrides,omitempty"`
}

// KeyStatus reports reasoning-service API key availability.
type KeyStatus struct {
	Configured  bool       `json:"configured"`
	LastUpdated *time.Time `json:"last_updated"`
}
