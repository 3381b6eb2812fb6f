package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"clipnotes/internal/api"
	"clipnotes/internal/logging"
)

// Section names the configuration section a mutation touches.
type Section string

const (
	SectionModel Section = "model"
	SectionFlags Section = "flags"
	SectionTheme Section = "theme"
)

// ErrMutationPending reports that another configuration save is in flight.
var ErrMutationPending = errors.New("configuration mutation already pending")

// Client is the backend surface the manager needs.
type Client interface {
	GetConfig(ctx context.Context) (*api.ConfigSnapshot, error)
	UpdateConfig(ctx context.Context, update api.ConfigUpdate) (*api.ConfigSnapshot, error)
	GetKeyStatus(ctx context.Context) (*api.KeyStatus, error)
	StoreKey(ctx context.Context, key string) (*api.KeyStatus, error)
	ClearKey(ctx context.Context) (*api.KeyStatus, error)
}

// Snapshot is a consistent view of the manager.
type Snapshot struct {
	Config api.ConfigSnapshot

	// Pending names the section with a save in flight; empty when none.
	Pending Section

	// Error and Remediation describe the most recent failed save.
	Error       string
	Remediation string
}

// Manager holds the current configuration snapshot and applies optimistic
// mutations against it.
type Manager struct {
	client Client
	logger *slog.Logger

	mu          sync.Mutex
	config      api.ConfigSnapshot
	pending     Section
	lastError   string
	remediation string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logging.NewComponentLogger(logger, "settings")
		}
	}
}

// NewManager constructs a Manager with an empty snapshot; call Refresh to
// populate it.
func NewManager(client Client, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a deep copy of the current view.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Config:      cloneConfig(m.config),
		Pending:     m.pending,
		Error:       m.lastError,
		Remediation: m.remediation,
	}
}

// Refresh re-reads the persisted configuration from the backend.
func (m *Manager) Refresh(ctx context.Context) error {
	snapshot, err := m.client.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("refresh config: %w", err)
	}

	m.mu.Lock()
	m.config = cloneConfig(*snapshot)
	m.lastError = ""
	m.remediation = ""
	m.mu.Unlock()
	return nil
}

// SaveModelParams optimistically replaces the model parameter section and
// persists it.
func (m *Manager) SaveModelParams(ctx context.Context, params map[string]any) error {
	return m.save(ctx, SectionModel, func(cfg *api.ConfigSnapshot) {
		cfg.ModelParams = cloneMap(params)
	}, func(cfg api.ConfigSnapshot) api.ConfigUpdate {
		return api.ConfigUpdate{ModelParams: cfg.ModelParams}
	})
}

// SaveFlags optimistically replaces the feature flag section and persists it.
func (m *Manager) SaveFlags(ctx context.Context, flags map[string]any) error {
	return m.save(ctx, SectionFlags, func(cfg *api.ConfigSnapshot) {
		cfg.FeatureFlags = cloneMap(flags)
	}, func(cfg api.ConfigSnapshot) api.ConfigUpdate {
		return api.ConfigUpdate{FeatureFlags: cfg.FeatureFlags}
	})
}

// SaveTheme optimistically replaces the theme override section and persists
// it. A nil map clears the overrides.
func (m *Manager) SaveTheme(ctx context.Context, theme map[string]any) error {
	return m.save(ctx, SectionTheme, func(cfg *api.ConfigSnapshot) {
		cfg.ThemeOverrides = cloneMap(theme)
	}, func(cfg api.ConfigSnapshot) api.ConfigUpdate {
		overrides := cfg.ThemeOverrides
		return api.ConfigUpdate{ThemeOverrides: &overrides}
	})
}

// save applies the optimistic mutation, persists the full section, and either
// adopts the server's snapshot or restores the previous one exactly.
func (m *Manager) save(ctx context.Context, section Section, apply func(*api.ConfigSnapshot), buildUpdate func(api.ConfigSnapshot) api.ConfigUpdate) error {
	m.mu.Lock()
	if m.pending != "" {
		pending := m.pending
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMutationPending, pending)
	}
	previous := cloneConfig(m.config)
	optimistic := cloneConfig(m.config)
	apply(&optimistic)
	m.config = optimistic
	m.pending = section
	update := buildUpdate(cloneConfig(optimistic))
	m.mu.Unlock()

	snapshot, err := m.client.UpdateConfig(ctx, update)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = ""
	if err != nil {
		m.config = previous
		m.lastError, m.remediation = describeError(err)
		m.logger.Warn("config save rolled back",
			logging.String("section", string(section)),
			logging.Error(err))
		return fmt.Errorf("save %s: %w", section, err)
	}

	m.config = cloneConfig(*snapshot)
	m.lastError = ""
	m.remediation = ""
	m.logger.Info("config saved", logging.String("section", string(section)))
	return nil
}

// KeyStatus reports reasoning-service key availability.
func (m *Manager) KeyStatus(ctx context.Context) (*api.KeyStatus, error) {
	status, err := m.client.GetKeyStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("key status: %w", err)
	}
	return status, nil
}

// SetKey stores a reasoning-service API key.
func (m *Manager) SetKey(ctx context.Context, key string) (*api.KeyStatus, error) {
	if key == "" {
		return nil, errors.New("key must not be empty")
	}
	status, err := m.client.StoreKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("store key: %w", err)
	}
	return status, nil
}

// ClearKey removes the stored reasoning-service API key.
func (m *Manager) ClearKey(ctx context.Context) (*api.KeyStatus, error) {
	status, err := m.client.ClearKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear key: %w", err)
	}
	return status, nil
}

func describeError(err error) (string, string) {
	if apiErr, ok := api.AsError(err); ok {
		return apiErr.Message, apiErr.Remediation
	}
	return err.Error(), ""
}

func cloneConfig(cfg api.ConfigSnapshot) api.ConfigSnapshot {
	cloned := cfg
	cloned.ModelParams = cloneMap(cfg.ModelParams)
	cloned.FeatureFlags = cloneMap(cfg.FeatureFlags)
	cloned.ThemeOverrides = cloneMap(cfg.ThemeOverrides)
	return cloned
}

// cloneMap deep-copies nested maps and slices so rollback snapshots cannot be
// mutated through shared references.
func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = cloneValue(value)
	}
	return dst
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		cloned := make([]any, len(v))
		for i, item := range v {
			cloned[i] = cloneValue(item)
		}
		return cloned
	default:
		return v
	}
}
