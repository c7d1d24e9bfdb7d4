package model

import (
	"strings"
	"time"

	"github.com/nikbrunner/minimark/internal/urlutil"
)

// Record is the persisted and exported shape of a bookmark. Timestamps are
// milliseconds since the Unix epoch; nullable fields encode as explicit null.
type Record struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	ParentID         *string  `json:"parentId"`
	Clicks           int      `json:"clicks"`
	AddDate          int64    `json:"addDate"`
	LastClickDate    *int64   `json:"lastClickDate"`
	IsArchived       bool     `json:"isArchived"`
	IsPinned         bool     `json:"isPinned"`
	DynamicParamKeys []string `json:"dynamicParamKeys"`
	Status           string   `json:"status"`
	LastCheckDate    *int64   `json:"lastCheckDate"`
	OfflineSince     *int64   `json:"offlineSince"`
}

// Record converts b to its persisted form. Transient flags are dropped.
func (b Bookmark) Record() Record {
	keys := b.DynamicParamKeys
	if keys == nil {
		keys = []string{}
	}
	return Record{
		ID:               b.ID,
		Type:             string(b.Kind),
		Title:            b.Title,
		URL:              b.URL,
		ParentID:         clonePtr(b.ParentID),
		Clicks:           b.Clicks,
		AddDate:          millis(b.AddDate),
		LastClickDate:    millisPtr(b.LastClickDate),
		IsArchived:       b.Archived,
		IsPinned:         b.Pinned,
		DynamicParamKeys: append([]string{}, keys...),
		Status:           string(b.Status),
		LastCheckDate:    millisPtr(b.LastCheckDate),
		OfflineSince:     millisPtr(b.OfflineSince),
	}
}

// Normalize turns a possibly partial or legacy record into a canonical
// bookmark. Missing fields take their defaults; now is used for a missing
// addDate and a missing id gets a fresh one.
func Normalize(r Record, now time.Time) Bookmark {
	b := Bookmark{
		ID:       r.ID,
		Kind:     KindLink,
		Title:    strings.TrimSpace(r.Title),
		URL:      r.URL,
		ParentID: StringPtr(derefString(r.ParentID)),
		Clicks:   max(r.Clicks, 0),
		AddDate:  now,
		Archived: r.IsArchived,
		Pinned:   r.IsPinned,
		Status:   Status(r.Status),
	}
	if b.ID == "" {
		b.ID = NewID()
	}
	if r.Type == string(KindGroup) {
		b.Kind = KindGroup
		b.URL = GroupURL(b.ID)
	}
	if b.Title == "" {
		if b.IsGroup() {
			b.Title = UntitledGroup
		} else {
			b.Title = urlutil.PseudoTitle(b.URL)
		}
	}
	if r.AddDate > 0 {
		b.AddDate = time.UnixMilli(r.AddDate)
	}
	b.LastClickDate = timePtr(r.LastClickDate)
	b.LastCheckDate = timePtr(r.LastCheckDate)
	b.OfflineSince = timePtr(r.OfflineSince)
	if !b.Status.Valid() {
		b.Status = StatusUnchecked
	}
	b.DynamicParamKeys = make([]string, 0, len(r.DynamicParamKeys))
	for _, k := range r.DynamicParamKeys {
		if k != "" {
			b.DynamicParamKeys = append(b.DynamicParamKeys, k)
		}
	}
	return b
}

// Normalized re-applies the canonical defaults to b, keeping its transient
// flags.
func (b Bookmark) Normalized(now time.Time) Bookmark {
	n := Normalize(b.Record(), now)
	n.Loading = b.Loading
	n.Pending = b.Pending
	return n
}

// ResetInterrupted turns a status left at checking by an interrupted run
// back into unchecked.
func ResetInterrupted(b Bookmark) Bookmark {
	if b.Status == StatusChecking {
		b.Status = StatusUnchecked
	}
	b.Loading = false
	return b
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func millisPtr(t *time.Time) *int64 {
	if t == nil || t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timePtr(ms *int64) *time.Time {
	if ms == nil || *ms <= 0 {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
