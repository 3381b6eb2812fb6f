package api

import (
	"context"
	"net/http"
)

// GetConfig fetches the current persisted configuration snapshot.
func (c *Client) GetConfig(ctx context.Context) (*ConfigSnapshot, error) {
	var snapshot ConfigSnapshot
	if err := c.do(ctx, http.MethodGet, "/config", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// UpdateConfig persists the supplied sections and returns the authoritative
// snapshot the server stored.
func (c *Client) UpdateConfig(ctx context.Context, update ConfigUpdate) (*ConfigSnapshot, error) {
	var snapshot ConfigSnapshot
	if err := c.do(ctx, http.MethodPut, "/config", update, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// GetKeyStatus reports whether a reasoning-service API key is configured.
func (c *Client) GetKeyStatus(ctx context.Context) (*KeyStatus, error) {
	var status KeyStatus
	if err := c.do(ctx, http.MethodGet, "/keys/hafnia", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// StoreKey saves a reasoning-service API key server-side.
func (c *Client) StoreKey(ctx context.Context, key string) (*KeyStatus, error) {
	var status KeyStatus
	body := map[string]*string{"api_key": &key}
	if err := c.do(ctx, http.MethodPost, "/keys/hafnia", body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ClearKey removes the stored reasoning-service API key. The backend treats a
// null api_key as a clear.
func (c *Client) ClearKey(ctx context.Context) (*KeyStatus, error) {
	var status KeyStatus
	body := map[string]*string{"api_key": nil}
	if err := c.do(ctx, http.MethodPost, "/keys/hafnia", body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Health probes backend liveness.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
