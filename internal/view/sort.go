package view

import (
	"cmp"
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nikbrunner/minimark/internal/model"
)

// SortKey selects how unpinned items are ordered.
type SortKey string

const (
	SortDefault           SortKey = "default"
	SortAddDateAsc        SortKey = "addDateAsc"
	SortAddDateDesc       SortKey = "addDateDesc"
	SortLastClickDateAsc  SortKey = "lastClickDateAsc"
	SortLastClickDateDesc SortKey = "lastClickDateDesc"
	SortClicksAsc         SortKey = "clicksAsc"
	SortClicksDesc        SortKey = "clicksDesc"
	SortTitleAsc          SortKey = "titleAsc"
	SortTitleDesc         SortKey = "titleDesc"
)

// SortKeys lists every sort key in menu order.
var SortKeys = []SortKey{
	SortDefault,
	SortAddDateAsc, SortAddDateDesc,
	SortLastClickDateAsc, SortLastClickDateDesc,
	SortClicksAsc, SortClicksDesc,
	SortTitleAsc, SortTitleDesc,
}

// ParseSortKey parses a sort key name. The empty string is the default.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortDefault, nil
	}
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// GroupLinkOrder controls whether groups and links are interleaved.
type GroupLinkOrder string

const (
	OrderMixed       GroupLinkOrder = "mixed"
	OrderGroupsFirst GroupLinkOrder = "groupsFirst"
	OrderLinksFirst  GroupLinkOrder = "linksFirst"
)

// ParseGroupLinkOrder parses an order name. The empty string is mixed.
func ParseGroupLinkOrder(s string) (GroupLinkOrder, error) {
	switch GroupLinkOrder(s) {
	case "", OrderMixed:
		return OrderMixed, nil
	case OrderGroupsFirst, OrderLinksFirst:
		return GroupLinkOrder(s), nil
	}
	return "", fmt.Errorf("unknown group/link order %q", s)
}

// strategy pairs the comparator of a sort key with the separator it
// clusters items by.
type strategy struct {
	compare   func(a, b model.Bookmark) int
	separator func(b model.Bookmark) (key, label string)
}

func strategyFor(key SortKey) strategy {
	switch key {
	case SortAddDateAsc:
		return strategy{byAddDate, addDateSeparator}
	case SortAddDateDesc:
		return strategy{reverse(byAddDate), addDateSeparator}
	case SortLastClickDateAsc:
		return strategy{byLastClick, lastClickSeparator}
	case SortLastClickDateDesc:
		return strategy{reverse(byLastClick), lastClickSeparator}
	case SortClicksAsc:
		return strategy{byClicks, clicksSeparator}
	case SortClicksDesc:
		return strategy{reverse(byClicks), clicksSeparator}
	case SortTitleAsc:
		return strategy{byTitle(), titleSeparator}
	case SortTitleDesc:
		return strategy{reverse(byTitle()), titleSeparator}
	default:
		return strategy{byAddDate, addDateSeparator}
	}
}

func reverse(f func(a, b model.Bookmark) int) func(a, b model.Bookmark) int {
	return func(a, b model.Bookmark) int { return f(b, a) }
}

func byAddDate(a, b model.Bookmark) int {
	return cmp.Compare(millis(a.AddDate), millis(b.AddDate))
}

// byLastClick sorts never-clicked items as oldest.
func byLastClick(a, b model.Bookmark) int {
	return cmp.Compare(clickedAt(a), clickedAt(b))
}

func byClicks(a, b model.Bookmark) int {
	return cmp.Compare(a.Clicks, b.Clicks)
}

// byTitle compares titles with a locale-aware collator. Collators are not
// safe for concurrent use, so every strategy gets its own.
func byTitle() func(a, b model.Bookmark) int {
	c := collate.New(language.Und)
	return func(a, b model.Bookmark) int {
		return c.CompareString(a.Title, b.Title)
	}
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func clickedAt(b model.Bookmark) int64 {
	if b.LastClickDate == nil {
		return -1
	}
	return b.LastClickDate.UnixMilli()
}

// SeparatorKey returns the cluster key and label of b under the given sort
// key. Items sharing a key render under one separator.
func SeparatorKey(b model.Bookmark, key SortKey) (string, string) {
	return strategyFor(key).separator(b)
}

func titleSeparator(b model.Bookmark) (string, string) {
	r, _ := utf8.DecodeRuneInString(b.Title)
	if r == utf8.RuneError {
		return "#", "#"
	}
	s := string(unicode.ToUpper(r))
	return s, s
}

func addDateSeparator(b model.Bookmark) (string, string) {
	if b.AddDate.IsZero() {
		return "no-add-date", "Date Unknown"
	}
	return b.AddDate.Format("2006-01"), b.AddDate.Format("January 2006")
}

func lastClickSeparator(b model.Bookmark) (string, string) {
	if b.LastClickDate == nil {
		return "never-clicked", "Never Clicked"
	}
	return b.LastClickDate.Format("2006-01"), "Clicked: " + b.LastClickDate.Format("January 2006")
}

var clickBuckets = []struct {
	max   int
	key   string
	label string
}{
	{0, "clicks_0", "0 Clicks"},
	{5, "clicks_1-5", "1-5 Clicks"},
	{10, "clicks_6-10", "6-10 Clicks"},
	{25, "clicks_11-25", "11-25 Clicks"},
	{50, "clicks_26-50", "26-50 Clicks"},
	{100, "clicks_51-100", "51-100 Clicks"},
}

func clicksSeparator(b model.Bookmark) (string, string) {
	for _, bucket := range clickBuckets {
		if b.Clicks <= bucket.max {
			return bucket.key, bucket.label
		}
	}
	return "clicks_101+", "101+ Clicks"
}
