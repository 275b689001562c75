// Package filter matches provider result titles against the query title.
package filter

import (
	"strings"

	"golang.org/x/text/width"

	"oriontv/models"
)

// NormalizeTitle folds fullwidth characters to their halfwidth forms and
// strips surrounding whitespace so CJK titles compare equal across
// providers that disagree on character width.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(width.Narrow.String(title))
}

// TitlesEqual reports whether two display titles refer to the same work.
func TitlesEqual(a, b string) bool {
	return NormalizeTitle(a) == NormalizeTitle(b)
}

// ExactTitle keeps only results whose title matches the query exactly
// after normalization. Used by the all-sources fallback, where loose
// substring matches from upstream would pollute the result set.
func ExactTitle(results []models.SearchResult, title string) []models.SearchResult {
	want := NormalizeTitle(title)
	var out []models.SearchResult
	for _, r := range results {
		if NormalizeTitle(r.Title) == want {
			out = append(out, r)
		}
	}
	return out
}
