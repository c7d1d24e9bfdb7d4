// Package view derives what a scope displays from the full bookmark set:
// scope filter, search, pin partition and sort. Everything here is a pure
// function of its inputs.
package view

import (
	"slices"

	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/search"
)

// Scope is the navigational context: a group (nil = top level) or the
// archive.
type Scope struct {
	GroupID *string
	Archive bool
}

// TopLevel is the root scope.
var TopLevel = Scope{}

// ArchiveScope shows archived links.
var ArchiveScope = Scope{Archive: true}

// InGroup returns the scope of groupID. An empty id is the top level.
func InGroup(groupID string) Scope {
	return Scope{GroupID: model.StringPtr(groupID)}
}

// Options holds every input of the pipeline besides the items.
type Options struct {
	Scope  Scope
	Search string
	Fuzzy  bool
	Sort   SortKey
	Order  GroupLinkOrder
}

// Derive returns the items visible in opts.Scope, filtered by the search
// term, with pinned items first (newest first) and the rest ordered by the
// sort key and the group/link order.
func Derive(items []model.Bookmark, opts Options) []model.Bookmark {
	scoped := InScope(items, opts.Scope)
	matched := search.Filter(scoped, opts.Search, opts.Fuzzy)

	var pinned, unpinned []model.Bookmark
	for _, b := range matched {
		if !opts.Scope.Archive && b.Pinned && b.Active() {
			pinned = append(pinned, b)
		} else {
			unpinned = append(unpinned, b)
		}
	}

	slices.SortStableFunc(pinned, reverse(byAddDate))

	st := strategyFor(opts.Sort)
	order := opts.Order
	if opts.Scope.Archive || order == "" {
		order = OrderMixed
	}

	var sorted []model.Bookmark
	if order == OrderMixed {
		sorted = sortedBy(unpinned, st)
	} else {
		var groups, links []model.Bookmark
		for _, b := range unpinned {
			if b.IsGroup() {
				groups = append(groups, b)
			} else {
				links = append(links, b)
			}
		}
		groups, links = sortedBy(groups, st), sortedBy(links, st)
		if order == OrderGroupsFirst {
			sorted = append(groups, links...)
		} else {
			sorted = append(links, groups...)
		}
	}

	out := make([]model.Bookmark, 0, len(pinned)+len(sorted))
	out = append(out, pinned...)
	return append(out, sorted...)
}

func sortedBy(items []model.Bookmark, st strategy) []model.Bookmark {
	out := slices.Clone(items)
	slices.SortStableFunc(out, st.compare)
	return out
}

// InScope keeps the items a scope shows, in their original order. In the
// archive that is every archived link; elsewhere the active direct children
// of the scope's group. Items whose parent is not a known group count as
// top level.
func InScope(items []model.Bookmark, scope Scope) []model.Bookmark {
	groups := make(map[string]bool)
	for _, b := range items {
		if b.IsGroup() {
			groups[b.ID] = true
		}
	}

	var out []model.Bookmark
	for _, b := range items {
		if scope.Archive {
			if b.IsLink() && b.Archived {
				out = append(out, b)
			}
			continue
		}
		if b.Archived {
			continue
		}
		parent := b.Parent()
		if !groups[parent] {
			parent = ""
		}
		want := ""
		if scope.GroupID != nil {
			want = *scope.GroupID
		}
		if parent == want {
			out = append(out, b)
		}
	}
	return out
}
