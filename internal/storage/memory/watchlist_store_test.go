package memory

import (
	"context"
	"errors"
	"testing"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

func TestWatchlistStore_InsertAndGetAll(t *testing.T) {
	store := NewWatchlistStore()
	ctx := context.Background()

	target := 10.0
	entries := []*domain.WatchlistEntry{
		{EntryID: "e2", TitleID: "t2", CreatedAt: 2000},
		{EntryID: "e1", TitleID: "t1", TargetPrice: &target, CreatedAt: 1000},
	}
	for _, e := range entries {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(all))
	}
	if all[0].EntryID != "e1" {
		t.Errorf("Expected created_at ordering, first entry %s", all[0].EntryID)
	}
	if all[0].TargetPrice == nil || *all[0].TargetPrice != 10.0 {
		t.Error("TargetPrice not preserved")
	}
}

func TestWatchlistStore_Duplicate(t *testing.T) {
	store := NewWatchlistStore()
	ctx := context.Background()

	e := &domain.WatchlistEntry{EntryID: "e1", TitleID: "t1", CreatedAt: 1000}
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, e); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestWatchlistStore_MarkCheckedAndNotified(t *testing.T) {
	store := NewWatchlistStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.WatchlistEntry{EntryID: "e1", TitleID: "t1", CreatedAt: 1000}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.MarkChecked(ctx, "e1", 5000); err != nil {
		t.Fatalf("MarkChecked failed: %v", err)
	}
	if err := store.MarkNotified(ctx, "e1", 6000); err != nil {
		t.Fatalf("MarkNotified failed: %v", err)
	}

	all, _ := store.GetAll(ctx)
	if all[0].LastCheckedAt != 5000 {
		t.Errorf("LastCheckedAt = %d, want 5000", all[0].LastCheckedAt)
	}
	if all[0].LastNotifiedAt == nil || *all[0].LastNotifiedAt != 6000 {
		t.Error("LastNotifiedAt not updated")
	}

	if err := store.MarkChecked(ctx, "missing", 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestWatchlistStore_Remove(t *testing.T) {
	store := NewWatchlistStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.WatchlistEntry{EntryID: "e1", TitleID: "t1", CreatedAt: 1000}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Remove(ctx, "e1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Remove(ctx, "e1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
