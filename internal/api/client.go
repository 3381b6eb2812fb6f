package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipnotes/internal/logging"
)

const (
	defaultHTTPTimeout   = 30 * time.Second
	defaultUploadTimeout = 5 * time.Minute
	maxErrorBodyBytes    = 64 * 1024

	defaultUserAgent = "clipnotes-cli"
)

// Config captures the runtime settings required to talk to the backend.
type Config struct {
	BaseURL       string
	APIToken      string
	Timeout       time.Duration
	UploadTimeout time.Duration
}

// Client wraps the ClipNotes backend API.
type Client struct {
	cfg          Config
	userAgent    string
	httpClient   *http.Client
	uploadClient *http.Client
	logger       *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client for standard calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL replaces the configured backend base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			c.cfg.BaseURL = trimmed
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithUploadClient overrides the HTTP client used for asset uploads.
func WithUploadClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.uploadClient = client
		}
	}
}

// WithLogger attaches a logger for request-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "api")
		}
	}
}

// NewClient constructs a backend client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = defaultUploadTimeout
	}

	client := &Client{
		cfg: Config{
			BaseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIToken:      strings.TrimSpace(cfg.APIToken),
			Timeout:       timeout,
			UploadTimeout: uploadTimeout,
		},
		userAgent:    defaultUserAgent,
		httpClient:   &http.Client{Timeout: timeout},
		uploadClient: &http.Client{Timeout: uploadTimeout},
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

func (c *Client) endpoint(path string) (string, error) {
	joined, err := url.JoinPath(c.cfg.BaseURL, path)
	if err != nil {
		return "", fmt.Errorf("api: build url for %s: %w", path, err)
	}
	return joined, nil
}

// do performs a JSON exchange. body may be nil; out may be nil for endpoints
// without a payload (e.g. 204 responses).
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	return c.doQuery(ctx, method, path, nil, body, out)
}

// doQuery is do with an optional query string appended to the endpoint.
func (c *Client) doQuery(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request for %s: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("api: new request for %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setCommonHeaders(req)

	return c.send(c.httpClient, req, path, out)
}

// upload performs a multipart POST streaming src as the "file" part.
func (c *Client) upload(ctx context.Context, path, filename string, src io.Reader, out any) error {
	endpoint, err := c.endpoint(path)
	if err != nil {
		return err
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return fmt.Errorf("api: new upload request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setCommonHeaders(req)

	return c.send(c.uploadClient, req, path, out)
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
}

func (c *Client) send(httpClient *http.Client, req *http.Request, path string, out any) error {
	started := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		if IsCanceled(err) {
			return context.Canceled
		}
		return fmt.Errorf("api: %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		logging.String("method", req.Method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return decodeError(resp.StatusCode, body)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response for %s: %w", path, err)
	}
	return nil
}
