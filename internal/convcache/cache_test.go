package convcache

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"clipnotes/internal/config"
)

func newTestCache(t *testing.T, perSelection, total int) *Cache {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Chat.CacheMaxPerSelection = perSelection
	cfg.Chat.CacheMaxTotal = total

	cache, err := Open(&cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestSelectionHashStableUnderReorderAndDuplicates(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	base := SelectionHash([]uuid.UUID{a, b})
	if got := SelectionHash([]uuid.UUID{b, a}); got != base {
		t.Errorf("reorder changed hash: %s vs %s", got, base)
	}
	if got := SelectionHash([]uuid.UUID{a, b, a}); got != base {
		t.Errorf("duplicate changed hash: %s vs %s", got, base)
	}
	if got := SelectionHash([]uuid.UUID{a}); got == base {
		t.Error("different selection produced same hash")
	}
}

func TestAppendAndRecentRoundTrip(t *testing.T) {
	cache := newTestCache(t, 10, 100)
	ctx := context.Background()
	selection := []uuid.UUID{uuid.New(), uuid.New()}

	if err := cache.Append(ctx, selection, "user", "what happened?"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := cache.Append(ctx, selection, "assistant", "a collision at 12:30"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	exchanges, err := cache.Recent(ctx, selection, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(exchanges) != 2 {
		t.Fatalf("exchange count = %d, want 2", len(exchanges))
	}
	if exchanges[0].Role != "assistant" {
		t.Errorf("expected newest first, got %q", exchanges[0].Role)
	}
	if exchanges[1].Content != "what happened?" {
		t.Errorf("content = %q", exchanges[1].Content)
	}
}

func TestRecentReorderedSelectionFindsSameConversation(t *testing.T) {
	cache := newTestCache(t, 10, 100)
	ctx := context.Background()
	a := uuid.New()
	b := uuid.New()

	if err := cache.Append(ctx, []uuid.UUID{a, b}, "user", "compare these"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	exchanges, err := cache.Recent(ctx, []uuid.UUID{b, a}, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(exchanges) != 1 {
		t.Fatalf("exchange count = %d, want 1", len(exchanges))
	}
}

func TestPerSelectionPruning(t *testing.T) {
	cache := newTestCache(t, 3, 100)
	ctx := context.Background()
	selection := []uuid.UUID{uuid.New()}

	for i := 0; i < 6; i++ {
		if err := cache.Append(ctx, selection, "user", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	exchanges, err := cache.Recent(ctx, selection, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(exchanges) != 3 {
		t.Fatalf("exchange count = %d, want 3", len(exchanges))
	}
	if exchanges[0].Content != "message 5" {
		t.Errorf("newest = %q, want message 5", exchanges[0].Content)
	}
	if exchanges[2].Content != "message 3" {
		t.Errorf("oldest survivor = %q, want message 3", exchanges[2].Content)
	}
}

func TestGlobalPruning(t *testing.T) {
	cache := newTestCache(t, 10, 4)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		selection := []uuid.UUID{uuid.New()}
		for j := 0; j < 2; j++ {
			if err := cache.Append(ctx, selection, "user", fmt.Sprintf("s%d m%d", i, j)); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
	}

	count, err := cache.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 4 {
		t.Errorf("total = %d, want 4", count)
	}
}

func TestAppendRejectsEmptyInput(t *testing.T) {
	cache := newTestCache(t, 10, 100)
	ctx := context.Background()

	if err := cache.Append(ctx, []uuid.UUID{uuid.New()}, "", "hi"); err == nil {
		t.Error("expected error for empty role")
	}
	if err := cache.Append(ctx, nil, "user", "hi"); err == nil {
		t.Error("expected error for empty selection")
	}
}

func TestClear(t *testing.T) {
	cache := newTestCache(t, 10, 100)
	ctx := context.Background()
	selection := []uuid.UUID{uuid.New()}

	if err := cache.Append(ctx, selection, "user", "hi"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	count, err := cache.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after clear", count)
	}
}
