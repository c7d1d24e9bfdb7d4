package model

import (
	"slices"
	"time"

	"github.com/nikbrunner/minimark/internal/urlutil"
)

// Kind tells links and groups apart.
type Kind string

const (
	KindLink  Kind = "link"
	KindGroup Kind = "group"
)

// Status is the liveness state of a link.
type Status string

const (
	StatusUnchecked Status = "unchecked"
	StatusChecking  Status = "checking"
	StatusOnline    Status = "online"
	StatusOffline   Status = "offline"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUnchecked, StatusChecking, StatusOnline, StatusOffline:
		return true
	}
	return false
}

// UntitledGroup is the fallback title for groups.
const UntitledGroup = "Untitled Group"

// Bookmark is a link or a group in the bookmark forest.
type Bookmark struct {
	ID               string
	Kind             Kind
	Title            string
	URL              string
	ParentID         *string // nil = top level
	Clicks           int
	AddDate          time.Time
	LastClickDate    *time.Time
	Archived         bool
	Pinned           bool
	DynamicParamKeys []string
	Status           Status
	LastCheckDate    *time.Time
	OfflineSince     *time.Time

	// Loading is set while a title fetch or liveness check is running.
	Loading bool
	// Pending marks a provisional link that has not been finalized yet.
	Pending bool
}

// IsLink reports whether b is a link.
func (b Bookmark) IsLink() bool { return b.Kind == KindLink }

// IsGroup reports whether b is a group.
func (b Bookmark) IsGroup() bool { return b.Kind == KindGroup }

// Active reports whether b is not archived.
func (b Bookmark) Active() bool { return !b.Archived }

// Parent returns the parent id, or "" for top level.
func (b Bookmark) Parent() string {
	if b.ParentID == nil {
		return ""
	}
	return *b.ParentID
}

// InScope reports whether b sits directly under parentID (nil = top level).
func (b Bookmark) InScope(parentID *string) bool {
	return PtrEqual(b.ParentID, parentID)
}

// Clone returns a deep copy of b.
func (b Bookmark) Clone() Bookmark {
	c := b
	c.ParentID = clonePtr(b.ParentID)
	c.LastClickDate = clonePtr(b.LastClickDate)
	c.LastCheckDate = clonePtr(b.LastCheckDate)
	c.OfflineSince = clonePtr(b.OfflineSince)
	c.DynamicParamKeys = slices.Clone(b.DynamicParamKeys)
	if c.DynamicParamKeys == nil {
		c.DynamicParamKeys = []string{}
	}
	return c
}

// NewLinkParams holds parameters for creating a new link.
type NewLinkParams struct {
	URL      string
	Title    string
	ParentID *string
	Now      time.Time
}

// NewLink creates an unchecked link. An empty title falls back to the
// pseudo-title of the URL.
func NewLink(params NewLinkParams) Bookmark {
	title := params.Title
	if title == "" {
		title = urlutil.PseudoTitle(params.URL)
	}
	return Bookmark{
		ID:               NewID(),
		Kind:             KindLink,
		Title:            title,
		URL:              params.URL,
		ParentID:         clonePtr(params.ParentID),
		AddDate:          nowOr(params.Now),
		DynamicParamKeys: []string{},
		Status:           StatusUnchecked,
	}
}

// NewGroupParams holds parameters for creating a new group.
type NewGroupParams struct {
	Title    string
	ParentID *string
	Now      time.Time
}

// NewGroup creates a group with its synthetic URL.
func NewGroup(params NewGroupParams) Bookmark {
	id := NewID()
	title := params.Title
	if title == "" {
		title = UntitledGroup
	}
	return Bookmark{
		ID:               id,
		Kind:             KindGroup,
		Title:            title,
		URL:              GroupURL(id),
		ParentID:         clonePtr(params.ParentID),
		AddDate:          nowOr(params.Now),
		DynamicParamKeys: []string{},
		Status:           StatusUnchecked,
	}
}

// GroupURL is the placeholder URL stored on groups.
func GroupURL(id string) string {
	return "group:" + id
}

// PtrEqual compares two optional ids.
func PtrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// StringPtr returns nil for "" and a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
