package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// CreateClip registers a new clip by filename and returns the server record.
func (c *Client) CreateClip(ctx context.Context, filename string) (*ClipRegistration, error) {
	var clip ClipRegistration
	body := map[string]string{"filename": filename}
	if err := c.do(ctx, http.MethodPost, "/clips", body, &clip); err != nil {
		return nil, err
	}
	return &clip, nil
}

// UploadAsset streams the clip binary to the backend and returns the updated
// registration, which now carries the asset id.
func (c *Client) UploadAsset(ctx context.Context, clipID uuid.UUID, filename string, src io.Reader) (*ClipRegistration, error) {
	var clip ClipRegistration
	path := fmt.Sprintf("/clips/%s/asset", clipID)
	if err := c.upload(ctx, path, filename, src, &clip); err != nil {
		return nil, err
	}
	return &clip, nil
}

// TriggerAnalysis starts analysis for an uploaded clip and returns the result.
func (c *Client) TriggerAnalysis(ctx context.Context, clipID uuid.UUID) (*ClipAnalysis, error) {
	var analysis ClipAnalysis
	path := fmt.Sprintf("/analysis/%s", clipID)
	if err := c.do(ctx, http.MethodPost, path, nil, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// GetClip fetches a clip with its latest analysis.
func (c *Client) GetClip(ctx context.Context, clipID uuid.UUID) (*ClipDetail, error) {
	var detail ClipDetail
	path := fmt.Sprintf("/clips/%s", clipID)
	if err := c.do(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListClips returns registered clips, newest first.
func (c *Client) ListClips(ctx context.Context) ([]ClipListItem, error) {
	var resp clipListResponse
	if err := c.do(ctx, http.MethodGet, "/clips", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// DeleteAsset removes a stored asset. The id is the asset id when one was
// assigned, otherwise the clip id.
func (c *Client) DeleteAsset(ctx context.Context, id string) error {
	path := fmt.Sprintf("/assets/%s", id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
