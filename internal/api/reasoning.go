package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Compare runs a two-clip comparison and returns the raw, un-normalized
// payload exactly as the reasoning service produced it.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (*RawComparison, error) {
	var raw RawComparison
	if err := c.do(ctx, http.MethodPost, "/reasoning/compare", req, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// GetClipMetrics fetches aggregated analysis metrics for one clip.
func (c *Client) GetClipMetrics(ctx context.Context, clipID uuid.UUID) (*ClipMetrics, error) {
	var metrics ClipMetrics
	path := fmt.Sprintf("/reasoning/metrics/%s", clipID)
	if err := c.do(ctx, http.MethodGet, path, nil, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}
