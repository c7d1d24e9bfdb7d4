package view

import (
	"slices"

	"github.com/nikbrunner/minimark/internal/model"
)

// ArchiveCrumbID identifies the archive crumb.
const ArchiveCrumbID = "archive"

// Crumb is one step of the navigation trail. The top level has an empty ID.
type Crumb struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Breadcrumbs returns the trail to scope: Top, then Archive in the archive,
// else each group from the top level down. The upward walk stops at the
// first id that is not a known group.
func Breadcrumbs(items []model.Bookmark, scope Scope) []Crumb {
	crumbs := []Crumb{{Title: "Top"}}
	if scope.Archive {
		return append(crumbs, Crumb{ID: ArchiveCrumbID, Title: "Archive"})
	}
	if scope.GroupID == nil {
		return crumbs
	}

	groups := make(map[string]model.Bookmark)
	for _, b := range items {
		if b.IsGroup() {
			groups[b.ID] = b
		}
	}

	var path []Crumb
	seen := make(map[string]bool)
	for id := *scope.GroupID; id != "" && !seen[id]; {
		seen[id] = true
		g, ok := groups[id]
		if !ok {
			break
		}
		path = append(path, Crumb{ID: g.ID, Title: g.Title})
		id = g.Parent()
	}
	slices.Reverse(path)
	return append(crumbs, path...)
}
