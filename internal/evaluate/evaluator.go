// Package evaluate drives watchlist evaluation cycles.
// One cycle: select due entries → fetch current quotes per store →
// normalize → append to history → classify → notify at most once per entry.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"game-deal-tracker/internal/classify"
	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/fetch"
	"game-deal-tracker/internal/normalize"
	"game-deal-tracker/internal/notify"
	"game-deal-tracker/internal/observability"
	"game-deal-tracker/internal/storage"
)

// EntryState is the terminal state of one watchlist entry in one cycle.
type EntryState string

const (
	// StateNotified: a qualifying quote was found and the notification was
	// delivered.
	StateNotified EntryState = "NOTIFIED"
	// StateSkipped: the entry was evaluated but nothing qualified, or the
	// entry itself was unusable (missing title, rejected quotes, failed
	// delivery).
	StateSkipped EntryState = "SKIPPED"
	// StateFetchFailed: every configured store failed to answer this cycle.
	StateFetchFailed EntryState = "FETCH_FAILED"
)

// Evaluator runs watchlist evaluation cycles over the configured stores.
type Evaluator struct {
	titles    storage.TitleStore
	history   storage.PriceHistoryStore
	watchlist storage.WatchlistStore
	archive   storage.QuoteArchiveStore // optional

	fetchers   []fetch.Fetcher
	normalizer *normalize.Normalizer
	sink       notify.Sink

	thresholds    classify.Thresholds
	pollInterval  time.Duration
	fetchTimeout  time.Duration
	maxConcurrent int

	logger  *log.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Options for creating Evaluator.
type Options struct {
	// Required stores
	TitleStore        storage.TitleStore
	PriceHistoryStore storage.PriceHistoryStore
	WatchlistStore    storage.WatchlistStore

	// Optional analytic archive; appended quotes are mirrored there
	QuoteArchiveStore storage.QuoteArchiveStore

	// Required collaborators
	Fetchers   []fetch.Fetcher
	Normalizer *normalize.Normalizer
	Sink       notify.Sink

	// Tuning; zero values get defaults
	Thresholds    classify.Thresholds
	PollInterval  time.Duration
	FetchTimeout  time.Duration
	MaxConcurrent int

	Logger  *log.Logger
	Metrics *observability.Metrics

	// Now overrides the clock, for tests
	Now func() time.Time
}

// New creates a new Evaluator.
func New(opts Options) *Evaluator {
	e := &Evaluator{
		titles:        opts.TitleStore,
		history:       opts.PriceHistoryStore,
		watchlist:     opts.WatchlistStore,
		archive:       opts.QuoteArchiveStore,
		fetchers:      opts.Fetchers,
		normalizer:    opts.Normalizer,
		sink:          opts.Sink,
		thresholds:    opts.Thresholds,
		pollInterval:  opts.PollInterval,
		fetchTimeout:  opts.FetchTimeout,
		maxConcurrent: opts.MaxConcurrent,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		now:           opts.Now,
	}
	if e.thresholds == (classify.Thresholds{}) {
		e.thresholds = classify.DefaultThresholds()
	}
	if e.pollInterval <= 0 {
		e.pollInterval = 6 * time.Hour
	}
	if e.fetchTimeout <= 0 {
		e.fetchTimeout = 15 * time.Second
	}
	if e.maxConcurrent < 1 {
		e.maxConcurrent = 8
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// CycleReport summarizes one evaluation cycle.
type CycleReport struct {
	StartedAt  int64 // unix ms
	FinishedAt int64

	EntriesTotal int // entries on the watchlist
	EntriesDue   int // entries evaluated this cycle

	Notified    int
	Skipped     int
	FetchFailed int

	Entries []EntryResult
}

// EntryResult is the outcome for one evaluated entry.
type EntryResult struct {
	EntryID string
	TitleID string
	State   EntryState

	QuotesUsed     int // quotes that survived normalization
	QuotesRejected int // quotes dropped at normalization or append
	FetchErrors    []string

	Trigger   notify.Trigger // set when State == StateNotified
	BestPrice *float64       // price of the notified quote
}

// RunCycle evaluates every due watchlist entry once. Entry failures are
// isolated: a fetch or store error for one entry never aborts the cycle.
// The returned error is reserved for cycle-level failures (listing the
// watchlist, context cancellation).
func (e *Evaluator) RunCycle(ctx context.Context) (*CycleReport, error) {
	start := e.now()
	nowMs := start.UnixMilli()

	report := &CycleReport{StartedAt: nowMs}
	if e.metrics != nil {
		e.metrics.CyclesTotal.Inc()
		defer func() {
			e.metrics.CycleDuration.Observe(e.now().Sub(start).Seconds())
		}()
	}
	defer func() { report.FinishedAt = e.now().UnixMilli() }()

	entries, err := e.watchlist.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	report.EntriesTotal = len(entries)

	due := make([]*domain.WatchlistEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Due(nowMs, e.pollInterval.Milliseconds()) {
			due = append(due, entry)
		}
	}
	report.EntriesDue = len(due)
	if len(due) == 0 {
		return report, nil
	}

	e.logger.Printf("cycle start: %d/%d entries due", len(due), len(entries))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)

	for _, entry := range due {
		entry := entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := e.evaluateEntry(gctx, entry, nowMs)

			// Evaluation happened regardless of outcome.
			if err := e.watchlist.MarkChecked(gctx, entry.EntryID, nowMs); err != nil {
				e.logger.Printf("entry %s: mark checked: %v", entry.EntryID, err)
			}

			mu.Lock()
			report.Entries = append(report.Entries, res)
			switch res.State {
			case StateNotified:
				report.Notified++
			case StateFetchFailed:
				report.FetchFailed++
			default:
				report.Skipped++
			}
			mu.Unlock()

			if e.metrics != nil {
				e.metrics.EntriesTotal.WithLabelValues(string(res.State)).Inc()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	sort.Slice(report.Entries, func(i, j int) bool {
		return report.Entries[i].EntryID < report.Entries[j].EntryID
	})

	e.logger.Printf("cycle done: %d notified, %d skipped, %d fetch-failed",
		report.Notified, report.Skipped, report.FetchFailed)
	return report, nil
}

// candidate is one classified quote, ready for the notification decision.
type candidate struct {
	quote     *domain.PriceQuote
	verdict   domain.DealVerdict
	metTarget bool
}

// evaluateEntry runs fetch → normalize → append → classify for one entry and
// emits at most one notification.
func (e *Evaluator) evaluateEntry(ctx context.Context, entry *domain.WatchlistEntry, nowMs int64) EntryResult {
	res := EntryResult{EntryID: entry.EntryID, TitleID: entry.TitleID, State: StateSkipped}

	title, err := e.titles.GetByID(ctx, entry.TitleID)
	if err != nil {
		// Entry points at a title that no longer resolves; skip, keep the
		// entry for the operator to clean up.
		e.logger.Printf("entry %s: title %s: %v", entry.EntryID, entry.TitleID, err)
		return res
	}

	raws, fetchErrs := e.fetchAll(ctx, title.DisplayName)
	res.FetchErrors = fetchErrs

	var appended []*domain.PriceQuote
	var candidates []candidate

	for _, raw := range raws {
		q, err := e.normalizer.NormalizeFor(ctx, entry.TitleID, raw)
		if err != nil {
			e.logger.Printf("entry %s: quote from %s rejected: %v", entry.EntryID, raw.Store, err)
			e.countRejected("normalize")
			res.QuotesRejected++
			continue
		}

		// Classify against the minimum as it stood before this observation.
		var histMin *float64
		min, err := e.history.HistoricalMinimum(ctx, q.TitleID, q.Store)
		switch {
		case err == nil:
			histMin = &min
		case errors.Is(err, storage.ErrNotFound):
			// first observation for this (title, store)
		default:
			e.logger.Printf("entry %s: historical minimum %s/%s: %v", entry.EntryID, q.TitleID, q.Store, err)
			continue
		}

		switch err := e.history.Append(ctx, q); {
		case err == nil:
			appended = append(appended, q)
			if e.metrics != nil {
				e.metrics.QuotesAppended.Inc()
			}
		case errors.Is(err, storage.ErrDuplicateKey):
			// Same observation instant seen before; the quote is still the
			// current price, so it stays eligible for classification.
			e.countRejected("duplicate")
		default:
			e.logger.Printf("entry %s: append %s/%s: %v", entry.EntryID, q.TitleID, q.Store, err)
			e.countRejected("append")
			res.QuotesRejected++
			continue
		}

		verdict := classify.Classify(q, histMin, e.thresholds)
		metTarget := entry.TargetPrice != nil && q.PriceAmount <= *entry.TargetPrice
		candidates = append(candidates, candidate{quote: q, verdict: verdict, metTarget: metTarget})
	}
	res.QuotesUsed = len(candidates)

	if e.archive != nil && len(appended) > 0 {
		if err := e.archive.InsertBulk(ctx, appended); err != nil {
			e.logger.Printf("entry %s: archive: %v", entry.EntryID, err)
		} else if e.metrics != nil {
			e.metrics.QuotesArchived.Add(float64(len(appended)))
		}
	}

	if len(candidates) == 0 {
		// FETCH_FAILED is reserved for a cycle where no store answered at
		// all. Stores that answered but yielded nothing usable (no listing,
		// rejected quotes) leave the entry SKIPPED.
		if len(e.fetchers) > 0 && len(res.FetchErrors) == len(e.fetchers) {
			res.State = StateFetchFailed
		}
		return res
	}

	winner, trigger := pickWinner(candidates)
	if winner == nil {
		res.State = StateSkipped
		return res
	}

	event := &notify.Event{
		Title:       title,
		Quote:       winner.quote,
		Verdict:     winner.verdict,
		Trigger:     trigger,
		TargetPrice: entry.TargetPrice,
	}
	if err := e.sink.Notify(ctx, event); err != nil {
		e.logger.Printf("entry %s: notify: %v", entry.EntryID, err)
		if e.metrics != nil {
			e.metrics.NotificationsFailed.Inc()
		}
		res.State = StateSkipped
		return res
	}

	if err := e.watchlist.MarkNotified(ctx, entry.EntryID, nowMs); err != nil {
		e.logger.Printf("entry %s: mark notified: %v", entry.EntryID, err)
	}
	if e.metrics != nil {
		e.metrics.NotificationsTotal.WithLabelValues(string(trigger)).Inc()
	}

	price := winner.quote.PriceAmount
	res.State = StateNotified
	res.Trigger = trigger
	res.BestPrice = &price
	return res
}

// fetchAll queries every configured store concurrently, each under its own
// timeout. Failures come back as messages, never as an aborted entry.
func (e *Evaluator) fetchAll(ctx context.Context, titleName string) ([]*domain.RawQuote, []string) {
	type fetchResult struct {
		raw *domain.RawQuote
		err error
		st  domain.Store
	}

	results := make([]fetchResult, len(e.fetchers))
	var wg sync.WaitGroup
	for i, f := range e.fetchers {
		wg.Add(1)
		go func(i int, f fetch.Fetcher) {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
			defer cancel()

			start := e.now()
			raw, err := f.Fetch(fctx, titleName)
			if e.metrics != nil {
				e.metrics.FetchDuration.WithLabelValues(string(f.Store())).Observe(e.now().Sub(start).Seconds())
			}
			results[i] = fetchResult{raw: raw, err: err, st: f.Store()}
		}(i, f)
	}
	wg.Wait()

	var raws []*domain.RawQuote
	var errs []string
	for _, r := range results {
		switch {
		case r.err == nil && r.raw != nil:
			raws = append(raws, r.raw)
			e.countFetch(r.st, "ok")
		case errors.Is(r.err, fetch.ErrNoListing):
			// Store answered, title not carried there. Not an error.
			e.countFetch(r.st, "no_listing")
		default:
			errs = append(errs, fmt.Sprintf("%s: %v", r.st, r.err))
			e.countFetch(r.st, "error")
		}
	}
	return raws, errs
}

// pickWinner selects the single quote to notify on: the lowest-priced
// qualifying quote, with observed_at as tiebreak (earlier wins) for
// determinism. Target price takes precedence over the verdict when both hold.
func pickWinner(candidates []candidate) (*candidate, notify.Trigger) {
	var best *candidate
	for i := range candidates {
		c := &candidates[i]
		if !c.metTarget && !c.verdict.IsUnmissable {
			continue
		}
		if best == nil ||
			c.quote.PriceAmount < best.quote.PriceAmount ||
			(c.quote.PriceAmount == best.quote.PriceAmount && c.quote.ObservedAt < best.quote.ObservedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, ""
	}
	if best.metTarget {
		return best, notify.TriggerTargetPrice
	}
	return best, notify.TriggerUnmissable
}

func (e *Evaluator) countFetch(store domain.Store, result string) {
	if e.metrics != nil {
		e.metrics.FetchesTotal.WithLabelValues(string(store), result).Inc()
	}
}

func (e *Evaluator) countRejected(cause string) {
	if e.metrics != nil {
		e.metrics.QuotesRejected.WithLabelValues(cause).Inc()
	}
}
