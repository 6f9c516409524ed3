// Package main provides one-shot quote ingestion: read a batch of raw
// quotes from a JSON file, resolve each against the title index, append to
// the price history and mirror into the analytic archive.
//
// Names that resolve to no existing title create one (the source name
// becomes the first alias); ambiguous names are reported and skipped.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"game-deal-tracker/internal/config"
	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/idhash"
	"game-deal-tracker/internal/normalize"
	"game-deal-tracker/internal/storage"
	chstore "game-deal-tracker/internal/storage/clickhouse"
	"game-deal-tracker/internal/storage/migrations"
	pgstore "game-deal-tracker/internal/storage/postgres"
)

// inputFile is the on-disk batch shape.
type inputFile struct {
	Quotes []inputQuote `json:"quotes"`
}

type inputQuote struct {
	Title           string  `json:"title"`
	Store           string  `json:"store"`
	PriceAmount     float64 `json:"price_amount"`
	OriginalPrice   float64 `json:"original_price"`
	DiscountPercent float64 `json:"discount_percent"`
	ObservedAt      int64   `json:"observed_at"`
	URL             string  `json:"url"`
}

// stats accumulates batch outcomes for the final summary.
type stats struct {
	appended      int
	titlesCreated int
	duplicates    int
	ambiguous     int
	rejected      int
	archived      int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	input := flag.String("input", "", "Path to JSON batch of raw quotes (required)")
	createTitles := flag.Bool("create-titles", true, "Create a title for unresolved names")
	threshold := flag.Float64("match-threshold", cfg.TitleMatchThreshold, "Fuzzy title match threshold")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if *input == "" {
		logger.Fatal("--input is required")
	}
	if cfg.PostgresDSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		logger.Fatalf("read input: %v", err)
	}
	var batch inputFile
	if err := json.Unmarshal(data, &batch); err != nil {
		logger.Fatalf("parse input: %v", err)
	}
	logger.Printf("Read %d quotes from %s", len(batch.Quotes), *input)

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("migrate postgres: %v", err)
	}

	var archive storage.QuoteArchiveStore
	if cfg.ClickHouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			logger.Fatalf("migrate clickhouse: %v", err)
		}
		defer chConn.Close()
		archive = chstore.NewQuoteArchiveStore(chConn)
	}

	titles := pgstore.NewTitleStore(pool)
	history := pgstore.NewPriceHistoryStore(pool)
	normalizer := normalize.NewNormalizer(titles, *threshold)

	var st stats
	var archived []*domain.PriceQuote

	for _, iq := range batch.Quotes {
		raw := &domain.RawQuote{
			Title:           iq.Title,
			Store:           domain.Store(iq.Store),
			PriceAmount:     iq.PriceAmount,
			OriginalPrice:   iq.OriginalPrice,
			DiscountPercent: iq.DiscountPercent,
			ObservedAt:      iq.ObservedAt,
			URL:             iq.URL,
		}

		q, err := ingestOne(ctx, titles, history, normalizer, raw, *createTitles, logger, &st)
		if err != nil {
			continue
		}
		archived = append(archived, q)
	}

	if archive != nil && len(archived) > 0 {
		if err := archive.InsertBulk(ctx, archived); err != nil {
			logger.Printf("archive batch: %v", err)
		} else {
			st.archived = len(archived)
		}
	}

	logger.Printf("Done: %d appended, %d titles created, %d duplicates, %d ambiguous, %d rejected, %d archived",
		st.appended, st.titlesCreated, st.duplicates, st.ambiguous, st.rejected, st.archived)
}

// ingestOne resolves and appends a single raw quote.
func ingestOne(
	ctx context.Context,
	titles storage.TitleStore,
	history storage.PriceHistoryStore,
	normalizer *normalize.Normalizer,
	raw *domain.RawQuote,
	createTitles bool,
	logger *log.Logger,
	st *stats,
) (*domain.PriceQuote, error) {
	q, res, err := normalizer.Normalize(ctx, raw)
	switch {
	case err == nil:
		// resolved
	case errors.Is(err, normalize.ErrAmbiguousTitle):
		logger.Printf("ambiguous %q: %d candidates, skipping", raw.Title, len(res.Candidates))
		st.ambiguous++
		return nil, err
	case errors.Is(err, normalize.ErrUnresolvedTitle):
		if !createTitles {
			logger.Printf("unresolved %q, skipping", raw.Title)
			st.rejected++
			return nil, err
		}
		q, err = createTitleFor(ctx, titles, raw, logger, st)
		if err != nil {
			st.rejected++
			return nil, err
		}
	default:
		logger.Printf("rejected %q: %v", raw.Title, err)
		st.rejected++
		return nil, err
	}

	switch err := history.Append(ctx, q); {
	case err == nil:
		st.appended++
		return q, nil
	case errors.Is(err, storage.ErrDuplicateKey):
		st.duplicates++
		return nil, err
	default:
		logger.Printf("append %q at %s: %v", raw.Title, raw.Store, err)
		st.rejected++
		return nil, err
	}
}

// createTitleFor registers a new canonical title for an unresolved name.
func createTitleFor(
	ctx context.Context,
	titles storage.TitleStore,
	raw *domain.RawQuote,
	logger *log.Logger,
	st *stats,
) (*domain.PriceQuote, error) {
	titleID := idhash.ComputeTitleID(raw.Title)
	title := &domain.Title{
		TitleID:     titleID,
		DisplayName: raw.Title,
		Aliases:     []string{raw.Title},
		CreatedAt:   time.Now().UnixMilli(),
	}

	switch err := titles.Insert(ctx, title); {
	case err == nil:
		logger.Printf("created title %q (%s)", raw.Title, titleID[:12])
		st.titlesCreated++
	case errors.Is(err, storage.ErrDuplicateKey):
		// Concurrent creation or an alias landing on the same identity hash;
		// proceed against whichever title owns it now.
	default:
		return nil, fmt.Errorf("create title %q: %w", raw.Title, err)
	}

	return &domain.PriceQuote{
		TitleID:         titleID,
		Store:           raw.Store,
		PriceAmount:     raw.PriceAmount,
		DiscountPercent: raw.DiscountPercent,
		ObservedAt:      raw.ObservedAt,
		URL:             raw.URL,
	}, nil
}
