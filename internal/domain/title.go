package domain

// Title is the canonical identity for a game across storefronts.
// Corresponds to titles / title_aliases tables in PostgreSQL.
// Titles are never deleted; alias collisions are resolved by merging.
type Title struct {
	TitleID     string   // PRIMARY KEY, deterministic hash of the normalized display name
	DisplayName string   // human-readable canonical name
	Aliases     []string // names each source knows this title by (includes the display name)
	CreatedAt   int64    // Unix timestamp in milliseconds
}

// HasAlias reports whether the title carries the given alias verbatim.
func (t *Title) HasAlias(alias string) bool {
	for _, a := range t.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}
