// Package alias maps free-form indicator names to canonical semantic ids.
package alias

import (
	"cmp"
	"slices"
	"sync"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance bounds how far a suggestion may be from the input.
const maxSuggestDistance = 2

// Dictionary maps a canonical id to its aliases.
type Dictionary map[string][]string

// Resolution is the outcome of Resolve. MatchedAlias is set only when the
// input reached its canonical id through an alias rather than the id
// itself.
type Resolution struct {
	SemanticID   string  `json:"semantic_id"`
	MatchedAlias *string `json:"matched_alias,omitempty"`
}

// Resolver holds the normalized alias table. It is safe for concurrent
// use; registrations never overwrite an existing key.
type Resolver struct {
	mu        sync.RWMutex
	table     map[string]string
	canonical map[string]struct{}
}

// Build creates a resolver from dict. Every canonical id is inserted
// first, then every alias, so an alias never shadows a canonical id and
// resolving a canonical id always yields a canonical id. Within each pass
// ids are taken in sorted order so collisions resolve the same way on
// every run.
func Build(dict Dictionary) *Resolver {
	r := &Resolver{
		table:     make(map[string]string),
		canonical: make(map[string]struct{}),
	}
	ids := make([]string, 0, len(dict))
	for id := range dict {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		r.insert(Normalize(id), id)
		r.canonical[id] = struct{}{}
	}
	for _, id := range ids {
		for _, a := range dict[id] {
			r.insert(Normalize(a), id)
		}
	}
	return r
}

// insert adds key -> id unless key is empty or already taken.
func (r *Resolver) insert(key, id string) bool {
	if key == "" {
		return false
	}
	if _, taken := r.table[key]; taken {
		return false
	}
	r.table[key] = id
	return true
}

// RegisterCanonicalIDs makes ids resolvable to themselves. Keys already
// present, including aliases from Build, are left untouched. It returns
// the ids whose key was already taken.
func (r *Resolver) RegisterCanonicalIDs(ids ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var shadowed []string
	for _, id := range ids {
		r.canonical[id] = struct{}{}
		key := Normalize(id)
		if !r.insert(key, id) && key != "" && r.table[key] != id {
			shadowed = append(shadowed, id)
		}
	}
	return shadowed
}

// Resolve looks up input. Unknown inputs pass through unchanged.
func (r *Resolver) Resolve(input string) Resolution {
	key := Normalize(input)

	r.mu.RLock()
	id, ok := r.table[key]
	r.mu.RUnlock()

	if !ok {
		return Resolution{SemanticID: input}
	}
	res := Resolution{SemanticID: id}
	if Normalize(id) != key {
		res.MatchedAlias = &key
	}
	return res
}

// Known reports whether input resolves through the table.
func (r *Resolver) Known(input string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.table[Normalize(input)]
	return ok
}

// Suggest returns up to n canonical ids whose keys or aliases are within a
// small edit distance of input, closest first.
func (r *Resolver) Suggest(input string, n int) []string {
	key := Normalize(input)
	if key == "" || n <= 0 {
		return nil
	}

	r.mu.RLock()
	best := make(map[string]int)
	for k, id := range r.table {
		d := levenshtein.ComputeDistance(key, k)
		if d > maxSuggestDistance {
			continue
		}
		if prev, ok := best[id]; !ok || d < prev {
			best[id] = d
		}
	}
	r.mu.RUnlock()

	ids := make([]string, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return cmp.Or(cmp.Compare(best[a], best[b]), cmp.Compare(a, b))
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// CanonicalIDs returns every registered canonical id, sorted.
func (r *Resolver) CanonicalIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.canonical))
	for id := range r.canonical {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
