package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"clipnotes/internal/api"
	"clipnotes/internal/logging"
)

var (
	// ErrSameClip is returned when both comparison slots name the same clip.
	ErrSameClip = errors.New("comparison requires two different clips")
	// ErrEmptyQuestion is returned for a blank comparison question.
	ErrEmptyQuestion = errors.New("comparison question must not be empty")
)

// CompareClient is the backend surface the coordinator needs.
type CompareClient interface {
	Compare(ctx context.Context, req api.CompareRequest) (*api.RawComparison, error)
	GetClipMetrics(ctx context.Context, clipID uuid.UUID) (*api.ClipMetrics, error)
}

// Recorder persists conversation exchanges for a clip selection. Recording is
// best effort; failures are logged, never surfaced.
type Recorder interface {
	Append(ctx context.Context, clipIDs []uuid.UUID, role, content string) error
}

// Coordinator runs comparisons end to end: validation, the backend call,
// normalization, and conversation recording.
type Coordinator struct {
	client   CompareClient
	recorder Recorder
	logger   *slog.Logger
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithRecorder attaches a conversation recorder.
func WithRecorder(recorder Recorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.recorder = recorder
	}
}

// WithCoordinatorLogger attaches a logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "reasoning")
		}
	}
}

// NewCoordinator constructs a comparison coordinator.
func NewCoordinator(client CompareClient, opts ...CoordinatorOption) *Coordinator {
	coordinator := &Coordinator{
		client: client,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(coordinator)
	}
	return coordinator
}

// Compare validates the selection, asks the backend, and returns the
// normalized result.
func (c *Coordinator) Compare(ctx context.Context, clipA, clipB uuid.UUID, question string) (*ComparisonResult, error) {
	if clipA == clipB {
		return nil, ErrSameClip
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	raw, err := c.client.Compare(ctx, api.CompareRequest{
		ClipA:    clipA,
		ClipB:    clipB,
		Question: question,
	})
	if err != nil {
		return nil, fmt.Errorf("compare clips: %w", err)
	}

	result := Normalize(*raw)
	c.logger.Info("comparison completed",
		logging.String("clip_a", clipA.String()),
		logging.String("clip_b", clipB.String()),
		logging.String("answer", string(result.Answer)))

	c.record(ctx, []uuid.UUID{clipA, clipB}, question, &result)
	return &result, nil
}

// Metrics fetches aggregated analysis metrics for one clip.
func (c *Coordinator) Metrics(ctx context.Context, clipID uuid.UUID) (*api.ClipMetrics, error) {
	metrics, err := c.client.GetClipMetrics(ctx, clipID)
	if err != nil {
		return nil, fmt.Errorf("fetch clip metrics: %w", err)
	}
	return metrics, nil
}

func (c *Coordinator) record(ctx context.Context, clips []uuid.UUID, question string, result *ComparisonResult) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Append(ctx, clips, "user", question); err != nil {
		c.logger.Warn("record comparison question", logging.Error(err))
		return
	}
	reply := fmt.Sprintf("%s: %s", result.Answer, result.Explanation)
	if err := c.recorder.Append(ctx, clips, "assistant", reply); err != nil {
		c.logger.Warn("record comparison answer", logging.Error(err))
	}
}
