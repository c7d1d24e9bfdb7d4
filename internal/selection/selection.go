// Package selection tracks a multi-selection of links over a derived view
// and applies bulk actions to it.
package selection

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nikbrunner/minimark/internal/model"
)

// Set is an insertion-ordered set of selected ids. It is safe for
// concurrent use.
type Set struct {
	mu  sync.Mutex
	ids []string
	has map[string]bool
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{has: make(map[string]bool)}
}

// Toggle flips id and reports whether it is now selected.
func (s *Set) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.has[id] {
		s.remove(id)
		return false
	}
	s.add(id)
	return true
}

// Has reports whether id is selected.
func (s *Set) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.has[id]
}

// Len returns the number of selected ids.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected ids in the order they were selected.
func (s *Set) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

// AddBatch selects every id in ids and returns how many were new.
func (s *Set) AddBatch(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if !s.has[id] {
			s.add(id)
			n++
		}
	}
	return n
}

// ToggleAllVisible selects every active link in visible, or deselects them
// all when they are already selected. It reports whether they are selected
// afterwards.
func (s *Set) ToggleAllVisible(visible []model.Bookmark) bool {
	var links []string
	for _, b := range visible {
		if b.IsLink() && b.Active() {
			links = append(links, b.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := len(links) > 0
	for _, id := range links {
		if !s.has[id] {
			all = false
			break
		}
	}
	if all {
		for _, id := range links {
			s.remove(id)
		}
		return false
	}
	for _, id := range links {
		if !s.has[id] {
			s.add(id)
		}
	}
	return len(links) > 0
}

// Clear deselects everything.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.has = make(map[string]bool)
}

func (s *Set) add(id string) {
	s.has[id] = true
	s.ids = append(s.ids, id)
}

func (s *Set) remove(id string) {
	delete(s.has, id)
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
	}
}

// Actions are the single-item operations bulk actions are built from.
type Actions interface {
	DeleteItem(ctx context.Context, id string, cascade bool) error
	CreateGroup(ctx context.Context, title string, parentID *string) (model.Bookmark, error)
	Move(ctx context.Context, id string, parentID *string) error
}

// Manager applies bulk actions to a selection. The selection is cleared
// after every bulk action.
type Manager struct {
	Set     *Set
	actions Actions
}

// NewManager binds a fresh selection to actions.
func NewManager(actions Actions) *Manager {
	return &Manager{Set: NewSet(), actions: actions}
}

// DeleteSelected removes every selected item.
func (m *Manager) DeleteSelected(ctx context.Context) model.BulkResult {
	defer m.Set.Clear()

	var res model.BulkResult
	for _, id := range m.Set.IDs() {
		res.Record(m.actions.DeleteItem(ctx, id, false))
	}
	return res
}

// MoveSelectedToNewGroup creates a group under parentID, moves the
// selection into it and returns the group id to navigate to. Nothing moves
// when the group cannot be created.
func (m *Manager) MoveSelectedToNewGroup(ctx context.Context, title string, parentID *string) (string, model.BulkResult, error) {
	if m.Set.Len() == 0 {
		return "", model.BulkResult{}, nil
	}

	g, err := m.actions.CreateGroup(ctx, title, parentID)
	if err != nil {
		return "", model.BulkResult{}, fmt.Errorf("create group: %w", err)
	}

	res := m.MoveSelectedToGroup(ctx, g.ID)
	return g.ID, res, nil
}

// MoveSelectedToGroup moves every selected item into groupID.
func (m *Manager) MoveSelectedToGroup(ctx context.Context, groupID string) model.BulkResult {
	defer m.Set.Clear()

	var res model.BulkResult
	for _, id := range m.Set.IDs() {
		res.Record(m.actions.Move(ctx, id, &groupID))
	}
	return res
}
