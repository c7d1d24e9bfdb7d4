package view

import "github.com/nikbrunner/minimark/internal/model"

const (
	// SeparatorThreshold is the item count above which separators appear.
	SeparatorThreshold = 100
	// MinSectionSize is the smallest cluster that keeps its own separator.
	// Runs of smaller adjacent clusters are merged.
	MinSectionSize = 5
)

// Section is a labelled run of items in a derived view. Label is empty for
// an unlabelled run.
type Section struct {
	Key   string
	Label string
	Items []model.Bookmark
}

// Sections splits a derived view into display sections. Pinned items form
// their own leading section. The remaining items are clustered by the sort
// key's separator once there are more than SeparatorThreshold of them.
func Sections(items []model.Bookmark, key SortKey) []Section {
	var pinned, rest []model.Bookmark
	for _, b := range items {
		if b.Pinned && b.Active() {
			pinned = append(pinned, b)
		} else {
			rest = append(rest, b)
		}
	}

	var out []Section
	if len(pinned) > 0 {
		out = append(out, Section{Key: "pinned", Label: "Pinned Items", Items: pinned})
	}
	if len(rest) == 0 {
		return out
	}
	if len(rest) <= SeparatorThreshold {
		return append(out, Section{Items: rest})
	}
	return append(out, mergeSmall(cluster(rest, key))...)
}

func cluster(items []model.Bookmark, key SortKey) []Section {
	sep := strategyFor(key).separator
	var out []Section
	for _, b := range items {
		k, label := sep(b)
		if n := len(out); n > 0 && out[n-1].Key == k {
			out[n-1].Items = append(out[n-1].Items, b)
			continue
		}
		out = append(out, Section{Key: k, Label: label, Items: []model.Bookmark{b}})
	}
	return out
}

func mergeSmall(chunks []Section) []Section {
	var out []Section
	for i := 0; i < len(chunks); {
		if len(chunks[i].Items) >= MinSectionSize {
			out = append(out, chunks[i])
			i++
			continue
		}

		j := i + 1
		for j < len(chunks) && len(chunks[j].Items) < MinSectionSize {
			j++
		}
		if j-i == 1 {
			out = append(out, chunks[i])
			i++
			continue
		}

		first, last := chunks[i], chunks[j-1]
		merged := Section{Key: first.Key + "_to_" + last.Key, Label: first.Label}
		if first.Label != last.Label {
			merged.Label = first.Label + " - " + last.Label
		}
		for _, c := range chunks[i:j] {
			merged.Items = append(merged.Items, c.Items...)
		}
		out = append(out, merged)
		i = j
	}
	return out
}
