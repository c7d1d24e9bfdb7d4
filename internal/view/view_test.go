package view_test

import (
	"fmt"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/view"
)

var base = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func day(n int) time.Time { return base.Add(time.Duration(n) * 24 * time.Hour) }

func link(id string, addDay int) model.Bookmark {
	return model.Bookmark{
		ID: id, Kind: model.KindLink, Title: id, URL: "https://" + id + ".com",
		AddDate: day(addDay), Status: model.StatusUnchecked,
	}
}

func group(id string, addDay int) model.Bookmark {
	return model.Bookmark{
		ID: id, Kind: model.KindGroup, Title: id, URL: model.GroupURL(id),
		AddDate: day(addDay), Status: model.StatusUnchecked,
	}
}

func ids(items []model.Bookmark) []string {
	out := make([]string, len(items))
	for i, b := range items {
		out[i] = b.ID
	}
	return out
}

func TestDerive_ClicksSort(t *testing.T) {
	items := []model.Bookmark{link("zero", 0), link("five", 1), link("three", 2)}
	items[1].Clicks = 5
	items[2].Clicks = 3

	got := view.Derive(items, view.Options{Sort: view.SortClicksDesc})
	assert.DeepEqual(t, ids(got), []string{"five", "three", "zero"})

	got = view.Derive(items, view.Options{Sort: view.SortClicksAsc})
	assert.DeepEqual(t, ids(got), []string{"zero", "three", "five"})
}

func TestDerive_DateSorts(t *testing.T) {
	a, b, c := link("a", 3), link("b", 1), link("c", 2)
	b.LastClickDate = model.TimePtr(day(10))
	c.LastClickDate = model.TimePtr(day(5))
	items := []model.Bookmark{a, b, c}

	tests := []struct {
		sort view.SortKey
		want []string
	}{
		{view.SortDefault, []string{"b", "c", "a"}},
		{view.SortAddDateAsc, []string{"b", "c", "a"}},
		{view.SortAddDateDesc, []string{"a", "c", "b"}},
		{view.SortLastClickDateAsc, []string{"a", "c", "b"}},
		{view.SortLastClickDateDesc, []string{"b", "c", "a"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			assert.DeepEqual(t, ids(view.Derive(items, view.Options{Sort: tt.sort})), tt.want)
		})
	}
}

func TestDerive_TitleSortIsCollated(t *testing.T) {
	items := []model.Bookmark{link("cherry", 0), link("Banana", 1), link("apple", 2)}

	got := view.Derive(items, view.Options{Sort: view.SortTitleAsc})
	assert.DeepEqual(t, ids(got), []string{"apple", "Banana", "cherry"})

	got = view.Derive(items, view.Options{Sort: view.SortTitleDesc})
	assert.DeepEqual(t, ids(got), []string{"cherry", "Banana", "apple"})
}

func TestDerive_PinnedFirstForEverySortAndOrder(t *testing.T) {
	var items []model.Bookmark
	for i := 0; i < 24; i++ {
		var b model.Bookmark
		if i%4 == 0 {
			b = group(fmt.Sprintf("g%02d", i), (i*7)%11)
		} else {
			b = link(fmt.Sprintf("l%02d", i), (i*5)%13)
		}
		b.Clicks = (i * 3) % 7
		b.Pinned = i%3 == 0
		if i%5 == 0 {
			b.LastClickDate = model.TimePtr(day(i))
		}
		items = append(items, b)
	}

	for _, key := range view.SortKeys {
		for _, order := range []view.GroupLinkOrder{view.OrderMixed, view.OrderGroupsFirst, view.OrderLinksFirst} {
			got := view.Derive(items, view.Options{Sort: key, Order: order})
			assert.Equal(t, len(got), len(items))

			seenUnpinned := false
			for _, b := range got {
				if !b.Pinned {
					seenUnpinned = true
					continue
				}
				assert.Assert(t, !seenUnpinned, "%s/%s: pinned %s after an unpinned item", key, order, b.ID)
			}
		}
	}
}

func TestDerive_PinnedNewestFirst(t *testing.T) {
	a, b, c := link("a", 1), link("b", 3), link("c", 2)
	a.Pinned, b.Pinned = true, true
	c.Clicks = 9

	got := view.Derive([]model.Bookmark{a, b, c}, view.Options{Sort: view.SortClicksDesc})
	assert.DeepEqual(t, ids(got), []string{"b", "a", "c"})
}

func TestDerive_GroupLinkOrder(t *testing.T) {
	items := []model.Bookmark{link("l1", 1), group("g1", 2), link("l2", 3), group("g2", 4)}

	assert.DeepEqual(t, ids(view.Derive(items, view.Options{Order: view.OrderMixed})),
		[]string{"l1", "g1", "l2", "g2"})
	assert.DeepEqual(t, ids(view.Derive(items, view.Options{Order: view.OrderGroupsFirst})),
		[]string{"g1", "g2", "l1", "l2"})
	assert.DeepEqual(t, ids(view.Derive(items, view.Options{Order: view.OrderLinksFirst})),
		[]string{"l1", "l2", "g1", "g2"})
}

func TestDerive_Scopes(t *testing.T) {
	g := group("g", 0)
	inG := link("in-g", 1)
	inG.ParentID = &g.ID
	dangling := link("dangling", 2)
	dangling.ParentID = model.StringPtr("gone")
	top := link("top", 3)
	archived := link("archived", 4)
	archived.Archived = true
	archived.Pinned = true
	archivedInG := link("archived-in-g", 5)
	archivedInG.Archived = true
	archivedInG.ParentID = &g.ID

	items := []model.Bookmark{g, inG, dangling, top, archived, archivedInG}

	assert.DeepEqual(t, ids(view.Derive(items, view.Options{})), []string{"g", "dangling", "top"})
	assert.DeepEqual(t, ids(view.Derive(items, view.Options{Scope: view.InGroup("g")})), []string{"in-g"})

	got := view.Derive(items, view.Options{Scope: view.ArchiveScope, Order: view.OrderGroupsFirst})
	assert.DeepEqual(t, ids(got), []string{"archived", "archived-in-g"})
}

func TestDerive_Search(t *testing.T) {
	a, b := link("alpha", 0), link("beta", 1)
	b.URL = "https://alpha-mirror.org"
	g := group("Alphabet", 2)

	got := view.Derive([]model.Bookmark{a, b, g}, view.Options{Search: "ALPHA"})
	assert.DeepEqual(t, ids(got), []string{"alpha", "beta", "Alphabet"})
}

func TestDerive_Deterministic(t *testing.T) {
	items := []model.Bookmark{link("a", 1), link("b", 1), link("c", 1)}
	opts := view.Options{Sort: view.SortClicksAsc}
	assert.DeepEqual(t, view.Derive(items, opts), view.Derive(items, opts))
	assert.DeepEqual(t, ids(view.Derive(items, opts)), []string{"a", "b", "c"})
}

func TestParseSortKey(t *testing.T) {
	k, err := view.ParseSortKey("")
	assert.NilError(t, err)
	assert.Equal(t, k, view.SortDefault)

	k, err = view.ParseSortKey("titleDesc")
	assert.NilError(t, err)
	assert.Equal(t, k, view.SortTitleDesc)

	_, err = view.ParseSortKey("random")
	assert.ErrorContains(t, err, "unknown sort key")

	_, err = view.ParseGroupLinkOrder("sideways")
	assert.ErrorContains(t, err, "unknown group/link order")
}

func TestSeparatorKey(t *testing.T) {
	b := link("zebra", 0)
	b.Clicks = 7

	tests := []struct {
		sort      view.SortKey
		key, text string
	}{
		{view.SortTitleAsc, "Z", "Z"},
		{view.SortDefault, "2024-01", "January 2024"},
		{view.SortAddDateDesc, "2024-01", "January 2024"},
		{view.SortLastClickDateAsc, "never-clicked", "Never Clicked"},
		{view.SortClicksDesc, "clicks_6-10", "6-10 Clicks"},
	}
	for _, tt := range tests {
		key, label := view.SeparatorKey(b, tt.sort)
		assert.Equal(t, key, tt.key, "sort %s", tt.sort)
		assert.Equal(t, label, tt.text, "sort %s", tt.sort)
	}

	b.Clicks = 0
	key, _ := view.SeparatorKey(b, view.SortClicksAsc)
	assert.Equal(t, key, "clicks_0")
	b.Clicks = 500
	key, _ = view.SeparatorKey(b, view.SortClicksAsc)
	assert.Equal(t, key, "clicks_101+")
}

func TestSections(t *testing.T) {
	var small []model.Bookmark
	for i := 0; i < 10; i++ {
		small = append(small, link(fmt.Sprintf("s%d", i), i))
	}
	small[0].Pinned = true

	secs := view.Sections(small, view.SortDefault)
	assert.Assert(t, is.Len(secs, 2))
	assert.Equal(t, secs[0].Label, "Pinned Items")
	assert.Equal(t, secs[1].Label, "")
	assert.Assert(t, is.Len(secs[1].Items, 9))

	// Clusters: 60 x "A", 2 x "B", 3 x "C", 50 x "D", 1 x "E".
	var big []model.Bookmark
	add := func(prefix string, n int) {
		for i := 0; i < n; i++ {
			big = append(big, link(fmt.Sprintf("%s%03d", prefix, i), 0))
		}
	}
	add("a", 60)
	add("b", 2)
	add("c", 3)
	add("d", 50)
	add("e", 1)

	secs = view.Sections(big, view.SortTitleAsc)
	var labels []string
	for _, s := range secs {
		labels = append(labels, s.Label)
	}
	assert.DeepEqual(t, labels, []string{"A", "B - C", "D", "E"})
	assert.Assert(t, is.Len(secs[1].Items, 5))
}

func TestBreadcrumbs(t *testing.T) {
	root := group("root", 0)
	child := group("child", 1)
	child.ParentID = &root.ID
	items := []model.Bookmark{root, child}

	assert.DeepEqual(t, view.Breadcrumbs(items, view.TopLevel), []view.Crumb{{Title: "Top"}})
	assert.DeepEqual(t, view.Breadcrumbs(items, view.ArchiveScope),
		[]view.Crumb{{Title: "Top"}, {ID: view.ArchiveCrumbID, Title: "Archive"}})
	assert.DeepEqual(t, view.Breadcrumbs(items, view.InGroup("child")),
		[]view.Crumb{{Title: "Top"}, {ID: "root", Title: "root"}, {ID: "child", Title: "child"}})
	assert.DeepEqual(t, view.Breadcrumbs(items, view.InGroup("missing")), []view.Crumb{{Title: "Top"}})
}

func TestWordFrequency(t *testing.T) {
	titles := []string{"Go Concurrency Patterns", "Advanced Go concurrency", "Rust patterns", "a an of"}
	var items []model.Bookmark
	for i, title := range titles {
		b := link(fmt.Sprintf("l%d", i), i)
		b.Title = title
		items = append(items, b)
	}

	got := view.WordFrequency(items)
	assert.DeepEqual(t, got, []view.WordCount{
		{Word: "concurrency", Count: 2},
		{Word: "patterns", Count: 2},
		{Word: "advanced", Count: 1},
		{Word: "rust", Count: 1},
	})

	assert.DeepEqual(t, view.LinksMatchingWords(items, []string{"RUST", "advanced"}), []string{"l1", "l2"})
	assert.Assert(t, is.Len(view.LinksMatchingWords(items, nil), 0))
}
