package normalize

import (
	"sort"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/idhash"
)

// MatchState is the tri-state outcome of resolving a source name against
// the alias index. Ambiguity is always surfaced, never guessed away.
type MatchState string

const (
	StateMatched   MatchState = "MATCHED"
	StateAmbiguous MatchState = "AMBIGUOUS"
	StateNoMatch   MatchState = "NO_MATCH"
)

// Candidate is one fuzzy-match candidate for an ambiguous name.
type Candidate struct {
	TitleID    string
	Alias      string // the alias that matched
	Similarity float64
}

// Resolution is the typed result of one Resolve call.
type Resolution struct {
	State      MatchState
	TitleID    string      // set when State == StateMatched
	Candidates []Candidate // set when State == StateAmbiguous, best first
}

// Index is a read-only snapshot of the title alias space. Exact lookups go
// through a normalized-alias map; fuzzy matching scans every alias.
type Index struct {
	exact   map[string]string // normalized alias -> title_id
	entries []indexEntry
}

type indexEntry struct {
	norm    string
	alias   string
	titleID string
}

// BuildIndex constructs an alias index from a title snapshot.
// Later titles win on (unexpected) normalized-alias collisions; the stores
// guarantee verbatim aliases are unique.
func BuildIndex(titles []*domain.Title) *Index {
	ix := &Index{exact: make(map[string]string)}
	for _, t := range titles {
		for _, alias := range t.Aliases {
			norm := idhash.NormalizeName(alias)
			if norm == "" {
				continue
			}
			ix.exact[norm] = t.TitleID
			ix.entries = append(ix.entries, indexEntry{norm: norm, alias: alias, titleID: t.TitleID})
		}
	}
	return ix
}

// Resolve maps a source's name to a title identity. An exact match on the
// normalized alias wins outright. Otherwise every alias is scored; a single
// distinct title at or above threshold is Matched, several are Ambiguous,
// none is NoMatch.
func (ix *Index) Resolve(name string, threshold float64) Resolution {
	norm := idhash.NormalizeName(name)
	if norm == "" {
		return Resolution{State: StateNoMatch}
	}

	if titleID, ok := ix.exact[norm]; ok {
		return Resolution{State: StateMatched, TitleID: titleID}
	}

	// Best similarity per title across its aliases.
	best := make(map[string]Candidate)
	for _, e := range ix.entries {
		sim := Similarity(norm, e.norm)
		if sim < threshold {
			continue
		}
		if cur, ok := best[e.titleID]; !ok || sim > cur.Similarity {
			best[e.titleID] = Candidate{TitleID: e.titleID, Alias: e.alias, Similarity: sim}
		}
	}

	switch len(best) {
	case 0:
		return Resolution{State: StateNoMatch}
	case 1:
		for _, c := range best {
			return Resolution{State: StateMatched, TitleID: c.TitleID}
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].TitleID < candidates[j].TitleID
	})
	return Resolution{State: StateAmbiguous, Candidates: candidates}
}
