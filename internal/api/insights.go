package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Insight windows the backend aggregates over.
const (
	InsightWindowDay  = "24h"
	InsightWindowWeek = "7d"
)

// InsightSeverityTotals are aggregate severity counts for a window.
type InsightSeverityTotals struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// InsightSeriesBucket is one time bucket of the activity series.
type InsightSeriesBucket struct {
	BucketStart time.Time             `json:"bucket_start"`
	Total       int                   `json:"total"`
	Severity    InsightSeverityTotals `json:"severity"`
}

// InsightTopLabel is a frequently occurring moment label.
type InsightTopLabel struct {
	Label       string   `json:"label"`
	Count       int      `json:"count"`
	AvgSeverity *float64 `json:"avg_severity,omitempty"`
}

// InsightSnapshot is the cached activity summary for one window. The summary
// source reports whether the text came from the reasoning service or the
// local fallback heuristic.
type InsightSnapshot struct {
	Window         string                `json:"window"`
	GeneratedAt    time.Time             `json:"generated_at"`
	Summary        string                `json:"summary"`
	SummarySource  string                `json:"summary_source"`
	SeverityTotals InsightSeverityTotals `json:"severity_totals"`
	Series         []InsightSeriesBucket `json:"series"`
	TopLabels      []InsightTopLabel     `json:"top_labels"`
	Delta          map[string]int        `json:"delta,omitempty"`
	CacheExpiresAt *time.Time            `json:"cache_expires_at,omitempty"`
}

// InsightShare is a read-only share link minted for an insight window.
type InsightShare struct {
	Token          string     `json:"token"`
	URL            string     `json:"url"`
	Window         string     `json:"window"`
	GeneratedAt    time.Time  `json:"generated_at"`
	CacheExpiresAt *time.Time `json:"cache_expires_at,omitempty"`
}

type insightWindowRequest struct {
	Window string `json:"window"`
}

// NormalizeInsightWindow canonicalizes a window argument. Empty input selects
// the 24h default; anything other than the supported windows is rejected
// before a request is made.
func NormalizeInsightWindow(window string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(window))
	if value == "" {
		return InsightWindowDay, nil
	}
	switch value {
	case InsightWindowDay, InsightWindowWeek:
		return value, nil
	}
	return "", fmt.Errorf("unsupported insight window %q (want %s or %s)", window, InsightWindowDay, InsightWindowWeek)
}

// GetInsights fetches the cached insight snapshot for the window.
func (c *Client) GetInsights(ctx context.Context, window string) (*InsightSnapshot, error) {
	normalized, err := NormalizeInsightWindow(window)
	if err != nil {
		return nil, err
	}
	var snapshot InsightSnapshot
	query := url.Values{"window": []string{normalized}}
	if err := c.doQuery(ctx, http.MethodGet, "/insights", query, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// RegenerateInsights busts the cached snapshot for the window and returns the
// freshly built one.
func (c *Client) RegenerateInsights(ctx context.Context, window string) (*InsightSnapshot, error) {
	normalized, err := NormalizeInsightWindow(window)
	if err != nil {
		return nil, err
	}
	var snapshot InsightSnapshot
	if err := c.do(ctx, http.MethodPost, "/insights/regenerate", insightWindowRequest{Window: normalized}, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// CreateInsightShare mints a read-only share token for the window.
func (c *Client) CreateInsightShare(ctx context.Context, window string) (*InsightShare, error) {
	normalized, err := NormalizeInsightWindow(window)
	if err != nil {
		return nil, err
	}
	var share InsightShare
	if err := c.do(ctx, http.MethodPost, "/insights/share", insightWindowRequest{Window: normalized}, &share); err != nil {
		return nil, err
	}
	return &share, nil
}

// GetInsightShare resolves a share token to its snapshot. An empty window
// uses the window the share was created with.
func (c *Client) GetInsightShare(ctx context.Context, token, window string) (*InsightSnapshot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("share token must not be empty")
	}
	query := url.Values{}
	if strings.TrimSpace(window) != "" {
		normalized, err := NormalizeInsightWindow(window)
		if err != nil {
			return nil, err
		}
		query.Set("window", normalized)
	}
	var snapshot InsightSnapshot
	if err := c.doQuery(ctx, http.MethodGet, "/insights/share/"+url.PathEscape(token), query, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
