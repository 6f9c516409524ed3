// Package main manages watchlist entries: add, remove, list.
//
// Usage:
//
//	watchlist add --title "Hollow Knight" [--target-price 9.99]
//	watchlist remove --entry <entry-id>
//	watchlist list
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"game-deal-tracker/internal/config"
	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/normalize"
	"game-deal-tracker/internal/storage"
	"game-deal-tracker/internal/storage/migrations"
	pgstore "game-deal-tracker/internal/storage/postgres"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.Fatalf("migrate postgres: %v", err)
	}

	titles := pgstore.NewTitleStore(pool)
	watchlist := pgstore.NewWatchlistStore(pool)

	switch os.Args[1] {
	case "add":
		err = runAdd(ctx, os.Args[2:], cfg, titles, watchlist)
	case "remove":
		err = runRemove(ctx, os.Args[2:], watchlist)
	case "list":
		err = runList(ctx, titles, watchlist)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: watchlist <add|remove|list> [flags]")
}

// runAdd resolves the title name and inserts a new entry for it.
func runAdd(ctx context.Context, args []string, cfg *config.Config, titles storage.TitleStore, watchlist storage.WatchlistStore) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("title", "", "Title name to track (required)")
	target := fs.Float64("target-price", 0, "Notify when price drops to this or below (0: no target)")
	threshold := fs.Float64("match-threshold", cfg.TitleMatchThreshold, "Fuzzy title match threshold")
	fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--title is required")
	}

	// Resolve the name against the existing index; tracking an unknown
	// title is an error, the ingest path owns title creation.
	index := normalize.BuildIndex(mustTitles(ctx, titles))
	res := index.Resolve(*name, *threshold)
	switch res.State {
	case normalize.StateMatched:
		// proceed
	case normalize.StateAmbiguous:
		fmt.Fprintf(os.Stderr, "%q is ambiguous between:\n", *name)
		for _, c := range res.Candidates {
			fmt.Fprintf(os.Stderr, "  %s (alias %q, similarity %.2f)\n", c.TitleID[:12], c.Alias, c.Similarity)
		}
		return fmt.Errorf("ambiguous title")
	default:
		return fmt.Errorf("no title matches %q; ingest quotes for it first", *name)
	}

	entry := &domain.WatchlistEntry{
		EntryID:   newEntryID(),
		TitleID:   res.TitleID,
		CreatedAt: time.Now().UnixMilli(),
	}
	if *target > 0 {
		entry.TargetPrice = target
	}

	if err := watchlist.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	fmt.Printf("Added %s tracking %s\n", entry.EntryID, res.TitleID[:12])
	return nil
}

func runRemove(ctx context.Context, args []string, watchlist storage.WatchlistStore) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	entryID := fs.String("entry", "", "Entry ID to remove (required)")
	fs.Parse(args)

	if *entryID == "" {
		return fmt.Errorf("--entry is required")
	}

	if err := watchlist.Remove(ctx, *entryID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no entry %s", *entryID)
		}
		return err
	}
	fmt.Printf("Removed %s\n", *entryID)
	return nil
}

func runList(ctx context.Context, titles storage.TitleStore, watchlist storage.WatchlistStore) error {
	entries, err := watchlist.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("Watchlist is empty")
		return nil
	}

	for _, e := range entries {
		name := e.TitleID[:12]
		if t, err := titles.GetByID(ctx, e.TitleID); err == nil {
			name = t.DisplayName
		}

		line := fmt.Sprintf("%s  %s", e.EntryID, name)
		if e.TargetPrice != nil {
			line += fmt.Sprintf("  target %.2f", *e.TargetPrice)
		}
		if e.LastCheckedAt > 0 {
			line += fmt.Sprintf("  checked %s", time.UnixMilli(e.LastCheckedAt).Format(time.RFC3339))
		}
		if e.LastNotifiedAt != nil {
			line += fmt.Sprintf("  notified %s", time.UnixMilli(*e.LastNotifiedAt).Format(time.RFC3339))
		}
		fmt.Println(line)
	}
	return nil
}

func mustTitles(ctx context.Context, titles storage.TitleStore) []*domain.Title {
	all, err := titles.GetAll(ctx)
	if err != nil {
		log.Fatalf("load titles: %v", err)
	}
	return all
}

// newEntryID generates a random 16-hex-char entry ID.
func newEntryID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return "wl-" + hex.EncodeToString(b[:])
}
