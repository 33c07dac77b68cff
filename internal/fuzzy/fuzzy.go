// Package fuzzy ranks candidate identifiers by similarity to a target,
// producing the suggestions attached to failed resolutions.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/adrg/strutil/metrics"

	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

const (
	// MinScore is the similarity floor below which a candidate is dropped.
	MinScore = 0.8
	// MaxSuggestions caps how many candidates a single miss reports.
	MaxSuggestions = 5
)

// Suggest scores every candidate against the target with a Jaro-Winkler
// metric and returns at most MaxSuggestions entries with score >= MinScore,
// ordered by score descending then name. Both sides are normalized first
// (case folded, hyphens equivalent to underscores), so a crate declared
// with hyphens matches a query written with underscores. An empty result
// is a valid outcome, not an error.
func Suggest(target string, candidates []string) []types.Suggestion {
	if target == "" || len(candidates) == 0 {
		return nil
	}

	jw := metrics.NewJaroWinkler()
	normTarget := normalize(target)

	suggestions := make([]types.Suggestion, 0, MaxSuggestions)
	for _, cand := range candidates {
		if cand == "" {
			continue
		}
		score := jw.Compare(normTarget, normalize(cand))
		if score < MinScore {
			continue
		}
		suggestions = append(suggestions, types.Suggestion{Name: cand, Score: score})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Name < suggestions[j].Name
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "-", "_")
}
