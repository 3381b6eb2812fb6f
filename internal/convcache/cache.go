package convcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipnotes/internal/config"
	"clipnotes/internal/logging"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Exchange is one stored conversation turn.
type Exchange struct {
	ID        int64
	Selection string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Cache is the SQLite-backed conversation store.
type Cache struct {
	db              *sql.DB
	lock            *flock.Flock
	logger          *slog.Logger
	maxPerSelection int
	maxTotal        int
}

// Open initializes or connects to the conversation database under the state
// directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "convcache")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.StateDir, "conversations.lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "conversations.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{
		db:              db,
		lock:            lock,
		logger:          logger,
		maxPerSelection: cfg.Chat.CacheMaxPerSelection,
		maxTotal:        cfg.Chat.CacheMaxTotal,
	}
	if err := cache.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return cache, nil
}

// Close closes the database and releases the file lock.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	var closeErr error
	if c.db != nil {
		closeErr = c.db.Close()
	}
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return closeErr
}

// Append stores one exchange for the clip selection and prunes both bounds.
func (c *Cache) Append(ctx context.Context, clipIDs []uuid.UUID, role, content string) error {
	role = strings.TrimSpace(role)
	content = strings.TrimSpace(content)
	if role == "" || content == "" {
		return errors.New("role and content must not be empty")
	}
	if len(clipIDs) == 0 {
		return errors.New("selection must contain at least one clip")
	}

	selection := SelectionHash(clipIDs)
	err := c.execWithRetry(ctx,
		`INSERT INTO exchanges (selection_hash, role, content, created_at) VALUES (?, ?, ?, ?)`,
		selection, role, content, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}

	if err := c.prune(ctx, selection); err != nil {
		return fmt.Errorf("prune exchanges: %w", err)
	}

	c.logger.Debug("recorded exchange",
		logging.String("selection", selection),
		logging.String("role", role))
	return nil
}

// Recent returns up to limit exchanges for the selection, newest first.
func (c *Cache) Recent(ctx context.Context, clipIDs []uuid.UUID, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = c.maxPerSelection
	}
	selection := SelectionHash(clipIDs)

	ctx = ensureContext(ctx)
	var exchanges []Exchange
	err := retryOnBusy(ctx, func() error {
		rows, err := c.db.QueryContext(ctx,
			`SELECT id, selection_hash, role, content, created_at
			 FROM exchanges WHERE selection_hash = ?
			 ORDER BY id DESC LIMIT ?`,
			selection, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		exchanges = exchanges[:0]
		for rows.Next() {
			var (
				exchange Exchange
				created  string
			)
			if err := rows.Scan(&exchange.ID, &exchange.Selection, &exchange.Role, &exchange.Content, &created); err != nil {
				return err
			}
			if ts, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
				exchange.CreatedAt = ts
			}
			exchanges = append(exchanges, exchange)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	return exchanges, nil
}

// Count returns the total number of stored exchanges.
func (c *Cache) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count exchanges: %w", err)
	}
	return count, nil
}

// Clear removes all stored exchanges.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.execWithRetry(ctx, `DELETE FROM exchanges`); err != nil {
		return fmt.Errorf("clear exchanges: %w", err)
	}
	return nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS exchanges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	selection_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_selection ON exchanges (selection_hash, id);`
	if err := c.execWithRetry(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// prune deletes the oldest rows beyond the per-selection cap, then beyond the
// global cap.
func (c *Cache) prune(ctx context.Context, selection string) error {
	if c.maxPerSelection > 0 {
		err := c.execWithRetry(ctx,
			`DELETE FROM exchanges WHERE selection_hash = ? AND id NOT IN (
				SELECT id FROM exchanges WHERE selection_hash = ? ORDER BY id DESC LIMIT ?
			)`,
			selection, selection, c.maxPerSelection)
		if err != nil {
			return err
		}
	}
	if c.maxTotal > 0 {
		err := c.execWithRetry(ctx,
			`DELETE FROM exchanges WHERE id NOT IN (
				SELECT id FROM exchanges ORDER BY id DESC LIMIT ?
			)`,
			c.maxTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx, query, args...)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
