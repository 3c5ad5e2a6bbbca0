package reference

import (
	"sort"

	"posimport/internal/util"
)

// SuggestThreshold is the minimum bigram similarity for a name suggestion.
const SuggestThreshold = 0.8

// Index looks up mapping names by normalized form.
type Index struct {
	names        []string
	byNormalized map[string]string
}

func BuildIndex(names []string) *Index {
	idx := &Index{byNormalized: map[string]string{}}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, n := range sorted {
		norm := util.NormalizeName(n)
		if norm == "" {
			continue
		}
		if _, ok := idx.byNormalized[norm]; !ok {
			idx.byNormalized[norm] = n
			idx.names = append(idx.names, n)
		}
	}
	return idx
}

// Suggest returns the closest indexed name to query, if any clears SuggestThreshold.
func (idx *Index) Suggest(query string) (string, bool) {
	norm := util.NormalizeName(query)
	if norm == "" {
		return "", false
	}
	if hit, ok := idx.byNormalized[norm]; ok {
		return hit, true
	}

	best := ""
	bestScore := 0.0
	for _, n := range idx.names {
		score := util.DiceCoefficient(norm, util.NormalizeName(n))
		if score > bestScore {
			best, bestScore = n, score
		}
	}
	if bestScore < SuggestThreshold {
		return "", false
	}
	return best, true
}
