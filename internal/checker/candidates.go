package checker

import (
	"cmp"
	"slices"
	"time"

	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/urlutil"
)

// Candidates returns the links due for a check, best first: unchecked links
// lead, then the oldest check. Never-checked links count as oldest.
func Candidates(items []model.Bookmark, now time.Time, recheckAfter time.Duration) []model.Bookmark {
	var out []model.Bookmark
	for _, b := range items {
		if due(b, now, recheckAfter) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Bookmark) int {
		au, bu := a.Status == model.StatusUnchecked, b.Status == model.StatusUnchecked
		if au != bu {
			if au {
				return -1
			}
			return 1
		}
		return cmp.Compare(checkedAt(a), checkedAt(b))
	})
	return out
}

// NextCandidate returns the link the sweep should check next.
func NextCandidate(items []model.Bookmark, now time.Time, recheckAfter time.Duration) (model.Bookmark, bool) {
	c := Candidates(items, now, recheckAfter)
	if len(c) == 0 {
		return model.Bookmark{}, false
	}
	return c[0], true
}

func due(b model.Bookmark, now time.Time, recheckAfter time.Duration) bool {
	if !b.IsLink() || b.Archived || b.Pending || !urlutil.IsValidHTTPURL(b.URL) {
		return false
	}
	if b.Status == model.StatusUnchecked || b.LastCheckDate == nil {
		return true
	}
	return now.Sub(*b.LastCheckDate) > recheckAfter
}

func checkedAt(b model.Bookmark) int64 {
	if b.LastCheckDate == nil {
		return 0
	}
	return b.LastCheckDate.UnixMilli()
}

// IsDead reports whether b has been offline for longer than deadAfter.
func IsDead(b model.Bookmark, now time.Time, deadAfter time.Duration) bool {
	if !b.IsLink() || b.Status != model.StatusOffline || b.OfflineSince == nil {
		return false
	}
	return now.Sub(*b.OfflineSince) > deadAfter
}

// DeadLinks returns every dead link in items. Archived links keep the status
// they had when archived and are never reported.
func DeadLinks(items []model.Bookmark, now time.Time, deadAfter time.Duration) []model.Bookmark {
	var out []model.Bookmark
	for _, b := range items {
		if !b.Archived && IsDead(b, now, deadAfter) {
			out = append(out, b)
		}
	}
	return out
}
