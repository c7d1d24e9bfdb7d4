package model

import "slices"

// Collection is the in-memory bookmark set. It keeps insertion order and an
// adjacency index from parent id to child ids so tree walks do not scan the
// whole set. A Collection is not safe for concurrent use.
type Collection struct {
	items    []Bookmark
	index    map[string]int
	children map[string][]string // "" = top level
}

// NewCollection builds a collection from items. Later duplicates of an id
// replace earlier ones.
func NewCollection(items []Bookmark) *Collection {
	c := &Collection{
		items:    make([]Bookmark, 0, len(items)),
		index:    make(map[string]int, len(items)),
		children: make(map[string][]string),
	}
	for _, b := range items {
		c.Put(b)
	}
	return c
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.items)
}

// Get returns a copy of the record with the given id.
func (c *Collection) Get(id string) (Bookmark, bool) {
	i, ok := c.index[id]
	if !ok {
		return Bookmark{}, false
	}
	return c.items[i].Clone(), true
}

// Has reports whether id exists.
func (c *Collection) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// All returns copies of every record in insertion order.
func (c *Collection) All() []Bookmark {
	out := make([]Bookmark, len(c.items))
	for i, b := range c.items {
		out[i] = b.Clone()
	}
	return out
}

// Put inserts b or replaces the record with the same id in place.
func (c *Collection) Put(b Bookmark) {
	b = b.Clone()
	if i, ok := c.index[b.ID]; ok {
		old := c.items[i]
		c.items[i] = b
		if old.Parent() != b.Parent() {
			c.unlink(old.Parent(), b.ID)
			c.children[b.Parent()] = append(c.children[b.Parent()], b.ID)
		}
		return
	}
	c.index[b.ID] = len(c.items)
	c.items = append(c.items, b)
	c.children[b.Parent()] = append(c.children[b.Parent()], b.ID)
}

// Delete removes the record with the given id. Its children keep their
// parent id; callers relink or delete them first.
func (c *Collection) Delete(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.unlink(c.items[i].Parent(), id)
	c.items = slices.Delete(c.items, i, i+1)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].ID] = j
	}
	return true
}

// Children returns the direct children of parentID (nil = top level) in
// insertion order.
func (c *Collection) Children(parentID *string) []Bookmark {
	key := ""
	if parentID != nil {
		key = *parentID
	}
	ids := c.children[key]
	pos := make([]int, 0, len(ids))
	for _, id := range ids {
		if i, ok := c.index[id]; ok {
			pos = append(pos, i)
		}
	}
	slices.Sort(pos)
	out := make([]Bookmark, len(pos))
	for n, i := range pos {
		out[n] = c.items[i].Clone()
	}
	return out
}

// LinksByURL returns every link whose URL equals rawURL.
func (c *Collection) LinksByURL(rawURL string) []Bookmark {
	var out []Bookmark
	for _, b := range c.items {
		if b.IsLink() && b.URL == rawURL {
			out = append(out, b.Clone())
		}
	}
	return out
}

// DescendantIDs collects the ids of every record below groupID, depth
// first. Nested groups are included along with their contents.
func (c *Collection) DescendantIDs(groupID string) []string {
	var out []string
	seen := map[string]bool{groupID: true}
	var walk func(parent string)
	walk = func(parent string) {
		for _, child := range c.Children(&parent) {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			out = append(out, child.ID)
			if child.IsGroup() {
				walk(child.ID)
			}
		}
	}
	walk(groupID)
	return out
}

// Path returns the chain of groups from the top level down to groupID.
// Missing ancestors end the chain.
func (c *Collection) Path(groupID string) []Bookmark {
	var path []Bookmark
	seen := map[string]bool{}
	id := groupID
	for id != "" && !seen[id] {
		seen[id] = true
		b, ok := c.Get(id)
		if !ok {
			break
		}
		path = append(path, b)
		id = b.Parent()
	}
	slices.Reverse(path)
	return path
}

// IsGroupID reports whether id names an existing group.
func (c *Collection) IsGroupID(id string) bool {
	i, ok := c.index[id]
	return ok && c.items[i].IsGroup()
}

func (c *Collection) unlink(parent, id string) {
	ids := c.children[parent]
	if i := slices.Index(ids, id); i >= 0 {
		c.children[parent] = slices.Delete(ids, i, i+1)
	}
	if len(c.children[parent]) == 0 {
		delete(c.children, parent)
	}
}
