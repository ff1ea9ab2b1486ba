package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nestor/internal/domain"
)

func TestFileJokeHistoryRepository(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 9, 8, 7, 0, time.UTC)
	repo := NewFileJokeHistoryRepository(dir, "cli", now)

	want := filepath.Join(dir, "2024-05-01", "090807_cli.jsonl")
	if repo.Path() != want {
		t.Fatalf("expected path %s, got %s", want, repo.Path())
	}

	turns, err := repo.ListBySession(context.Background(), "cli")
	if err != nil || len(turns) != 0 {
		t.Fatalf("expected empty history before first append, got %v, %v", turns, err)
	}

	ctx := context.Background()
	for i, out := range []string{"blague un", "blague deux"} {
		turn := domain.JokeTurn{ID: string(rune('a' + i)), SessionID: "cli", Prompt: "p", Output: out, CreatedAt: now}
		if err := repo.Append(ctx, turn); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := repo.Append(ctx, domain.JokeTurn{ID: "z", SessionID: "other", Prompt: "p", Output: "x", CreatedAt: now}); err != nil {
		t.Fatalf("append: %v", err)
	}

	turns, err = repo.ListBySession(ctx, "cli")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(turns) != 2 || turns[0].Output != "blague un" || turns[1].Output != "blague deux" {
		t.Fatalf("unexpected turns %+v", turns)
	}
}
