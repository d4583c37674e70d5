package pipeline

import (
	"cmp"
	"slices"

	"LinkScanner/internal/domain"
)

// IsFailure reports whether the result carries an error kind.
func IsFailure(r domain.CheckResult) bool {
	return r.Failed()
}

// Filter returns the results accepted by keep, preserving order.
func Filter(results []domain.CheckResult, keep func(domain.CheckResult) bool) []domain.CheckResult {
	out := make([]domain.CheckResult, 0, len(results))
	for _, r := range results {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Rank orders results by reference score sum, highest first. Equal sums are
// ordered by URL so reports are reproducible across engines.
func Rank(results []domain.CheckResult) []domain.CheckResult {
	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, func(a, b domain.CheckResult) int {
		if c := cmp.Compare(b.ScoreSum(), a.ScoreSum()); c != 0 {
			return c
		}
		return cmp.Compare(a.URL, b.URL)
	})
	return ranked
}
