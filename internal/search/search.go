// Package search matches bookmarks against a query, either by plain
// substring or fuzzily.
package search

import (
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/minimark/internal/model"
)

const (
	// FuzzyThreshold is the minimum share of matched characters within the
	// spanned range for a fuzzy match to count.
	FuzzyThreshold = 0.4
	// MinFuzzyLength is the shortest query matched fuzzily. Shorter queries
	// use substring matching.
	MinFuzzyLength = 2
)

// SearchResult represents a ranked match.
type SearchResult struct {
	Bookmark       model.Bookmark
	MatchedIndexes []int
	Score          int
}

// bookmarkTitles implements fuzzy.Source over titles.
type bookmarkTitles []model.Bookmark

func (bt bookmarkTitles) String(i int) string { return bt[i].Title }
func (bt bookmarkTitles) Len() int            { return len(bt) }

// bookmarkURLs implements fuzzy.Source over link URLs. Groups yield "".
type bookmarkURLs []model.Bookmark

func (bu bookmarkURLs) String(i int) string {
	if !bu[i].IsLink() {
		return ""
	}
	return bu[i].URL
}
func (bu bookmarkURLs) Len() int { return len(bu) }

// Matches reports whether b matches term: a case-insensitive substring of
// the title, or of the URL for links.
func Matches(b model.Bookmark, term string) bool {
	t := strings.ToLower(term)
	if strings.Contains(strings.ToLower(b.Title), t) {
		return true
	}
	return b.IsLink() && strings.Contains(strings.ToLower(b.URL), t)
}

// Filter keeps the items matching term, in their original order. An empty
// term keeps everything.
func Filter(items []model.Bookmark, term string, useFuzzy bool) []model.Bookmark {
	term = strings.TrimSpace(term)
	if term == "" {
		return items
	}

	if !useFuzzy || utf8.RuneCountInString(term) < MinFuzzyLength {
		out := make([]model.Bookmark, 0, len(items))
		for _, b := range items {
			if Matches(b, term) {
				out = append(out, b)
			}
		}
		return out
	}

	keep := make([]bool, len(items))
	for _, m := range fuzzy.FindFrom(term, bookmarkTitles(items)) {
		if compact(m) {
			keep[m.Index] = true
		}
	}
	for _, m := range fuzzy.FindFrom(term, bookmarkURLs(items)) {
		if compact(m) {
			keep[m.Index] = true
		}
	}

	out := make([]model.Bookmark, 0, len(items))
	for i, b := range items {
		if keep[i] {
			out = append(out, b)
		}
	}
	return out
}

// compact rejects matches whose characters are scattered thinly across the
// candidate.
func compact(m fuzzy.Match) bool {
	n := len(m.MatchedIndexes)
	if n == 0 {
		return false
	}
	span := m.MatchedIndexes[n-1] - m.MatchedIndexes[0] + 1
	return float64(n)/float64(span) >= FuzzyThreshold
}

// Rank searches titles fuzzily and returns results best first. Links whose
// URL matches but whose title does not follow the title matches.
func Rank(items []model.Bookmark, query string) []SearchResult {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, bookmarkTitles(items))
	results := make([]SearchResult, 0, len(matches))
	seen := make(map[int]bool, len(matches))
	for _, m := range matches {
		seen[m.Index] = true
		results = append(results, SearchResult{
			Bookmark:       items[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		})
	}

	for _, m := range fuzzy.FindFrom(query, bookmarkURLs(items)) {
		if seen[m.Index] || !compact(m) {
			continue
		}
		results = append(results, SearchResult{Bookmark: items[m.Index], Score: m.Score})
	}
	return results
}
