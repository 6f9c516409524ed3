// Package main runs the deal watcher: a scheduler that evaluates the
// watchlist on a fixed interval, fetching current quotes, recording price
// history and emitting deal notifications.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"game-deal-tracker/internal/classify"
	"game-deal-tracker/internal/config"
	"game-deal-tracker/internal/evaluate"
	"game-deal-tracker/internal/fetch/stub"
	"game-deal-tracker/internal/normalize"
	"game-deal-tracker/internal/notify"
	"game-deal-tracker/internal/observability"
	"game-deal-tracker/internal/storage"
	chstore "game-deal-tracker/internal/storage/clickhouse"
	"game-deal-tracker/internal/storage/memory"
	"game-deal-tracker/internal/storage/migrations"
	pgstore "game-deal-tracker/internal/storage/postgres"
)

// Watcher holds the evaluator and its run state.
type Watcher struct {
	evaluator    *evaluate.Evaluator
	pollInterval time.Duration
	logger       *log.Logger

	mu           sync.Mutex
	lastCycle    time.Time
	cycleRunning bool
	cycles       int
	lastReport   *evaluate.CycleReport
}

// allStores holds the storage implementations in use.
type allStores struct {
	titleStore     storage.TitleStore
	historyStore   storage.PriceHistoryStore
	watchlistStore storage.WatchlistStore
	archiveStore   storage.QuoteArchiveStore // nil without ClickHouse
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Flags override the environment
	fixturesPath := flag.String("fixtures", cfg.FixturesPath, "Path to quote fixtures JSON")
	pollInterval := flag.Duration("poll-interval", cfg.PollInterval, "Gap between checks of one entry")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "HTTP address for health/metrics/status")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL")
	webhookURL := flag.String("webhook-url", cfg.WebhookURL, "Webhook to deliver notifications to (empty: log only)")
	flag.Parse()

	logger := log.New(os.Stdout, "[watcher] ", log.LstdFlags|log.Lshortfile)

	if *fixturesPath == "" {
		logger.Fatal("--fixtures is required (or set FIXTURES_PATH)")
	}
	if !*useMemory && cfg.PostgresDSN == "" {
		logger.Fatal("POSTGRES_DSN is required (use --use-memory for in-memory storage)")
	}

	fetchers, err := stub.LoadFixtures(*fixturesPath)
	if err != nil {
		logger.Fatalf("load fixtures: %v", err)
	}
	logger.Printf("Loaded fetchers for %d stores", len(fetchers))

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	var sink notify.Sink
	if *webhookURL != "" {
		sink = notify.NewWebhookSink(*webhookURL)
		logger.Printf("Notifications via webhook")
	} else {
		sink = notify.NewLogSink(log.New(os.Stdout, "[deal] ", log.LstdFlags))
		logger.Printf("Notifications via log")
	}

	metrics := observability.NewMetrics("")

	evaluator := evaluate.New(evaluate.Options{
		TitleStore:        stores.titleStore,
		PriceHistoryStore: stores.historyStore,
		WatchlistStore:    stores.watchlistStore,
		QuoteArchiveStore: stores.archiveStore,
		Fetchers:          fetchers,
		Normalizer:        normalize.NewNormalizer(stores.titleStore, cfg.TitleMatchThreshold),
		Sink:              sink,
		Thresholds: classify.Thresholds{
			MinDiscountPercent:    cfg.MinDiscountPercent,
			PriceTolerancePercent: cfg.PriceTolerancePercent,
		},
		PollInterval:  *pollInterval,
		FetchTimeout:  cfg.FetchTimeout,
		MaxConcurrent: cfg.MaxConcurrentEntries,
		Logger:        logger,
		Metrics:       metrics,
	})

	w := &Watcher{
		evaluator:    evaluator,
		pollInterval: *pollInterval,
		logger:       logger,
	}

	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()

		select {
		case <-sigCh:
			logger.Println("Second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go w.startHTTPServer(*metricsAddr)

	err = w.Run(ctx)
	close(done)

	if err != nil && err != context.Canceled {
		logger.Fatalf("Watcher error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores wires either the in-memory triple or Postgres plus the
// optional ClickHouse archive.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		return &allStores{
			titleStore:     memory.NewTitleStore(),
			historyStore:   memory.NewPriceHistoryStore(),
			watchlistStore: memory.NewWatchlistStore(),
			archiveStore:   memory.NewQuoteArchiveStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	stores := &allStores{
		titleStore:     pgstore.NewTitleStore(pool),
		historyStore:   pgstore.NewPriceHistoryStore(pool),
		watchlistStore: pgstore.NewWatchlistStore(pool),
	}
	cleanup := func() { pool.Close() }

	if cfg.ClickHouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		stores.archiveStore = chstore.NewQuoteArchiveStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// Run executes evaluation cycles until the context is cancelled. The first
// cycle runs immediately.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Printf("Starting watcher (poll interval: %v)...", w.pollInterval)

	w.runCycle(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// runCycle executes one evaluation cycle, skipping if one is in flight.
func (w *Watcher) runCycle(ctx context.Context) {
	w.mu.Lock()
	if w.cycleRunning {
		w.mu.Unlock()
		w.logger.Println("Cycle already running, skipping...")
		return
	}
	w.cycleRunning = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.cycleRunning = false
		w.lastCycle = time.Now()
		w.cycles++
		w.mu.Unlock()
	}()

	report, err := w.evaluator.RunCycle(ctx)
	if err != nil {
		w.logger.Printf("Cycle error: %v", err)
		return
	}

	w.mu.Lock()
	w.lastReport = report
	w.mu.Unlock()
}

// startHTTPServer serves health, metrics and status.
func (w *Watcher) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", w.handleStatus)

	w.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		w.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status       string                `json:"status"`
	Cycles       int                   `json:"cycles"`
	CycleRunning bool                  `json:"cycle_running"`
	LastCycle    time.Time             `json:"last_cycle,omitempty"`
	LastReport   *evaluate.CycleReport `json:"last_report,omitempty"`
}

func (w *Watcher) handleStatus(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	defer w.mu.Unlock()

	resp := StatusResponse{
		Status:       "running",
		Cycles:       w.cycles,
		CycleRunning: w.cycleRunning,
		LastCycle:    w.lastCycle,
		LastReport:   w.lastReport,
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(resp)
}
