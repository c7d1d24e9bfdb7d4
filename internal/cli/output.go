package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/view"
)

func (rt *runtime) printf(format string, args ...any) {
	fmt.Fprintf(rt.out, format, args...)
}

func (rt *runtime) printJSON(v any) error {
	enc := json.NewEncoder(rt.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// listedItem is the JSON shape of a listed bookmark.
type listedItem struct {
	model.Record
	Loading bool `json:"loading,omitempty"`
	Pending bool `json:"pending,omitempty"`
}

func listed(items []model.Bookmark) []listedItem {
	out := make([]listedItem, len(items))
	for i, b := range items {
		out[i] = listedItem{Record: b.Record(), Loading: b.Loading, Pending: b.Pending}
	}
	return out
}

// printItems prints items as JSON with --json and as a table otherwise.
func (rt *runtime) printItems(items []model.Bookmark) error {
	if rt.globals.JSON {
		return rt.printJSON(listed(items))
	}
	if len(items) == 0 {
		rt.printf("No items\n")
		return nil
	}

	tw := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
	for _, b := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker(b), b.ID, b.Title, detail(b))
	}
	return tw.Flush()
}

func marker(b model.Bookmark) string {
	var m strings.Builder
	if b.IsGroup() {
		m.WriteString("▸")
	} else {
		m.WriteString("•")
	}
	if b.Pinned {
		m.WriteString("★")
	}
	if b.Archived {
		m.WriteString("◌")
	}
	return m.String()
}

func detail(b model.Bookmark) string {
	if b.IsGroup() {
		return "group"
	}
	if b.Status == model.StatusOffline {
		return b.URL + "  (offline)"
	}
	return b.URL
}

func (rt *runtime) printBulk(verb string, res model.BulkResult) error {
	if rt.globals.JSON {
		if err := rt.printJSON(map[string]int{"done": res.Done, "failed": res.Failed}); err != nil {
			return err
		}
	} else {
		rt.printf("%s %d item(s)", verb, res.Done)
		if res.Failed > 0 {
			rt.printf(", %d failed", res.Failed)
		}
		rt.printf("\n")
	}
	return res.Err()
}

// scope turns scope flags into a view scope.
func (f ScopeFlags) scope() view.Scope {
	if f.Archive {
		return view.ArchiveScope
	}
	if f.Group != "" {
		return view.InGroup(f.Group)
	}
	return view.TopLevel
}
