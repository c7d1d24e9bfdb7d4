package view

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/nikbrunner/minimark/internal/model"
)

const (
	MinWordLength = 3
	MaxWords      = 50
)

var nonWord = regexp.MustCompile(`\W+`)

// WordCount is how often a word appears across titles.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordFrequency counts the title words of items, most frequent first, ties
// alphabetical, capped at MaxWords.
func WordFrequency(items []model.Bookmark) []WordCount {
	counts := make(map[string]int)
	for _, b := range items {
		for _, w := range nonWord.Split(strings.ToLower(b.Title), -1) {
			if utf8.RuneCountInString(w) >= MinWordLength {
				counts[w]++
			}
		}
	}

	out := make([]WordCount, 0, len(counts))
	for w, n := range counts {
		out = append(out, WordCount{Word: w, Count: n})
	}
	slices.SortFunc(out, func(a, b WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Word, b.Word)
	})
	if len(out) > MaxWords {
		out = out[:MaxWords]
	}
	return out
}

// LinksMatchingWords returns the ids of links whose title contains any of
// words, case-insensitively, in item order.
func LinksMatchingWords(items []model.Bookmark, words []string) []string {
	if len(words) == 0 {
		return nil
	}
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}

	var ids []string
	for _, b := range items {
		if !b.IsLink() {
			continue
		}
		title := strings.ToLower(b.Title)
		if slices.ContainsFunc(lower, func(w string) bool { return strings.Contains(title, w) }) {
			ids = append(ids, b.ID)
		}
	}
	return ids
}
