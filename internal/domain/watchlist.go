package domain

// WatchlistEntry is a user's intent to track one title.
// Corresponds to watchlist_entries table in PostgreSQL.
// Lifecycle (create/delete) belongs to the user-facing layer; the evaluator
// only reads entries and updates the two check/notify timestamps.
type WatchlistEntry struct {
	EntryID        string   // PRIMARY KEY
	TitleID        string   // canonical title being tracked
	TargetPrice    *float64 // notify when price <= target; nil means no target
	CreatedAt      int64    // Unix timestamp in milliseconds
	LastCheckedAt  int64    // 0 means never checked
	LastNotifiedAt *int64   // nil means never notified
}

// Due reports whether the entry should be checked this cycle.
// pollIntervalMs is the minimum gap between checks.
func (e *WatchlistEntry) Due(nowMs, pollIntervalMs int64) bool {
	if e.LastCheckedAt == 0 {
		return true
	}
	return nowMs-e.LastCheckedAt >= pollIntervalMs
}
