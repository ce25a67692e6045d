// Package suggest ranks schema object names against a partial request.
package suggest

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// DefaultLimit caps the number of ranked names.
const DefaultLimit = 20

// Match is a ranked name.
type Match struct {
	Name string
	// Substring is set when the name and the partial text contain one
	// another; such matches rank before purely fuzzy ones.
	Substring bool
	Score     int
}

// lowered implements fuzzy.Source over lower-cased names.
type lowered []string

func (l lowered) String(i int) string { return l[i] }
func (l lowered) Len() int            { return len(l) }

// Rank returns the names that match partial. A name matches when it contains
// partial or partial contains it, case-insensitively; those come first,
// best fuzzy score first and catalog order otherwise. Names that only match
// as a fuzzy subsequence follow, by score. An empty partial matches every
// name in order. limit <= 0 means DefaultLimit.
func Rank(partial string, names []string, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}
	needle := strings.ToLower(strings.TrimSpace(partial))

	lower := make(lowered, len(names))
	for i, n := range names {
		lower[i] = strings.ToLower(n)
	}

	scores := map[int]int{}
	if needle != "" {
		for _, m := range fuzzy.FindFrom(needle, lower) {
			scores[m.Index] = m.Score
		}
	}

	var out []Match
	for i, n := range lower {
		if needle != "" && !strings.Contains(n, needle) && !strings.Contains(needle, n) {
			continue
		}
		out = append(out, Match{Name: names[i], Substring: true, Score: scores[i]})
		delete(scores, i)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	fuzzyOnly := make([]Match, 0, len(scores))
	for i, score := range scores {
		fuzzyOnly = append(fuzzyOnly, Match{Name: names[i], Score: score})
	}
	sort.Slice(fuzzyOnly, func(i, j int) bool {
		if fuzzyOnly[i].Score != fuzzyOnly[j].Score {
			return fuzzyOnly[i].Score > fuzzyOnly[j].Score
		}
		return fuzzyOnly[i].Name < fuzzyOnly[j].Name
	})
	out = append(out, fuzzyOnly...)

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Names returns the names of ms in order.
func Names(ms []Match) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}
