// Package fuzzy picks the closest candidate string above a similarity cutoff.
//
// Similarity is the character-level SequenceMatcher ratio, 2*M/T, where M is
// the number of matched characters and T the combined length.
package fuzzy

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Match is a candidate and its similarity to the query.
type Match struct {
	Candidate string
	Score     float64
}

// Closest returns the best candidate whose ratio to word is at least cutoff.
// Equal scores resolve to the lexicographically greater candidate so the
// result does not depend on the iteration order of choices.
func Closest(word string, choices []string, cutoff float64) (string, bool) {
	best, ok := Best(word, choices, cutoff)
	return best.Candidate, ok
}

// Best is Closest with the winning score.
func Best(word string, choices []string, cutoff float64) (Match, bool) {
	if cutoff < 0 || cutoff > 1 || len(choices) == 0 {
		return Match{}, false
	}

	matcher := difflib.NewMatcher(nil, chars(word))

	var (
		best  Match
		found bool
	)
	for _, candidate := range choices {
		matcher.SetSeq1(chars(candidate))
		if matcher.RealQuickRatio() < cutoff || matcher.QuickRatio() < cutoff {
			continue
		}
		score := matcher.Ratio()
		if score < cutoff {
			continue
		}
		if !found || score > best.Score || (score == best.Score && candidate > best.Candidate) {
			best = Match{Candidate: candidate, Score: score}
			found = true
		}
	}
	return best, found
}

// Ratio returns the similarity of a and b in [0, 1].
func Ratio(a string, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
