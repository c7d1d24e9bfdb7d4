// Package repository owns the in-memory bookmark collection and keeps it in
// step with the durable store. It is the only writer of bookmark state.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/storage"
	"github.com/nikbrunner/minimark/internal/urlutil"
)

// StoreError wraps a failed round trip to the durable store.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err came from the durable store.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// BulkResult counts the outcome of BulkAdd.
type BulkResult struct {
	Added   int
	Skipped int
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Repository serves reads from memory and writes through to the store.
// Every mutation finishes its store round trip before memory changes.
type Repository struct {
	store storage.Storage
	log   logger.Logger
	now   func() time.Time

	// writeMu serializes mutations so the duplicate check and the write it
	// guards cannot interleave with another write.
	writeMu sync.Mutex

	mu    sync.RWMutex
	items *model.Collection
}

// New creates an empty repository over store. Call Load to read it.
func New(store storage.Storage, log logger.Logger, opts ...Option) *Repository {
	r := &Repository{
		store: store,
		log:   log,
		now:   time.Now,
		items: model.NewCollection(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the collection with the store's contents. On failure the
// previous collection is kept. Provisional records survive a reload.
func (r *Repository) Load(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.load(ctx)
}

// Reload is Load under the name callers use when reconciling after a
// failed multi-step mutation.
func (r *Repository) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

func (r *Repository) load(ctx context.Context) error {
	recs, err := r.store.GetAll(ctx)
	if err != nil {
		return &StoreError{Op: "load", Err: err}
	}

	now := r.now()
	items := make([]model.Bookmark, 0, len(recs))
	for _, rec := range recs {
		items = append(items, model.ResetInterrupted(model.Normalize(rec, now)))
	}
	next := model.NewCollection(items)

	r.mu.Lock()
	for _, b := range r.items.All() {
		if b.Pending && !next.Has(b.ID) {
			next.Put(b)
		}
	}
	r.items = next
	r.mu.Unlock()

	r.log.Debug("bookmarks loaded", logger.Int("count", len(items)))
	return nil
}

// All returns a copy of every record in insertion order.
func (r *Repository) All() []model.Bookmark {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items.All()
}

// Len returns the number of records, provisional ones included.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items.Len()
}

// Get returns a copy of the record with the given id.
func (r *Repository) Get(id string) (model.Bookmark, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items.Get(id)
}

// Children returns the direct children of parentID (nil = top level).
func (r *Repository) Children(parentID *string) []model.Bookmark {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items.Children(parentID)
}

// DescendantIDs returns every id below groupID, depth first.
func (r *Repository) DescendantIDs(groupID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items.DescendantIDs(groupID)
}

// Path returns the groups from the top level down to groupID.
func (r *Repository) Path(groupID string) []model.Bookmark {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items.Path(groupID)
}

// IsGroup reports whether id names an existing group.
func (r *Repository) IsGroup(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items.IsGroupID(id)
}

// FindByURL returns a link with the given URL, preferring an active one.
func (r *Repository) FindByURL(url string) (model.Bookmark, bool) {
	r.mu.RLock()
	links := r.items.LinksByURL(url)
	r.mu.RUnlock()

	if len(links) == 0 {
		return model.Bookmark{}, false
	}
	for _, b := range links {
		if b.Active() {
			return b, true
		}
	}
	return links[0], true
}

// Add inserts or replaces b. An active link is rejected with
// model.ErrDuplicateURL when another active link already holds its URL.
// Adding a record that was staged finalizes it.
func (r *Repository) Add(ctx context.Context, b model.Bookmark) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	b = b.Normalized(r.now())
	b.Pending = false
	return r.put(ctx, b, "add")
}

// Update writes the full record back, re-normalizing it first. Records
// still staged are updated in memory only.
func (r *Repository) Update(ctx context.Context, b model.Bookmark) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	b = b.Normalized(r.now())
	if b.Pending {
		r.mu.Lock()
		r.items.Put(b)
		r.mu.Unlock()
		return nil
	}
	return r.put(ctx, b, "update")
}

func (r *Repository) put(ctx context.Context, b model.Bookmark, op string) error {
	if b.IsLink() && b.Active() {
		if err := r.checkDuplicate(ctx, b); err != nil {
			return err
		}
	}

	if err := r.store.Put(ctx, b.Record()); err != nil {
		return &StoreError{Op: op, ID: b.ID, Err: err}
	}

	r.mu.Lock()
	r.items.Put(b)
	r.mu.Unlock()

	r.log.Debug("bookmark saved", logger.String("op", op), logger.String("id", b.ID))
	return nil
}

func (r *Repository) checkDuplicate(ctx context.Context, b model.Bookmark) error {
	recs, err := r.store.GetByURL(ctx, b.URL)
	if err != nil {
		return &StoreError{Op: "find by url", ID: b.ID, Err: err}
	}
	for _, rec := range recs {
		if rec.ID != b.ID && rec.Type != string(model.KindGroup) && !rec.IsArchived {
			return fmt.Errorf("%w: %s", model.ErrDuplicateURL, b.URL)
		}
	}
	return nil
}

// Remove deletes a single record. Children are not touched; callers relink
// or remove them.
func (r *Repository) Remove(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if b, ok := r.Get(id); ok && b.Pending {
		r.mu.Lock()
		r.items.Delete(id)
		r.mu.Unlock()
		return nil
	}

	if err := r.store.Delete(ctx, id); err != nil {
		return &StoreError{Op: "remove", ID: id, Err: err}
	}

	r.mu.Lock()
	r.items.Delete(id)
	r.mu.Unlock()

	r.log.Debug("bookmark removed", logger.String("id", id))
	return nil
}

// BulkAdd imports records one by one. A record is skipped when it is a link
// without an absolute http(s) URL, when its id is taken, when it is a link
// whose URL another record already holds, or when writing it fails.
// Failures never stop the batch.
func (r *Repository) BulkAdd(ctx context.Context, recs []model.Record) BulkResult {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	var res BulkResult
	now := r.now()
	for i, rec := range recs {
		if ctx.Err() != nil {
			res.Skipped += len(recs) - i
			break
		}

		b := model.Normalize(rec, now)
		if b.IsLink() && !urlutil.IsValidHTTPURL(b.URL) {
			r.log.Debug("import record has invalid url", logger.String("id", b.ID), logger.String("url", b.URL))
			res.Skipped++
			continue
		}
		if r.conflicts(b) {
			res.Skipped++
			continue
		}
		if err := r.store.Put(ctx, b.Record()); err != nil {
			r.log.Warn("import record failed", logger.String("id", b.ID), logger.Error(err))
			res.Skipped++
			continue
		}

		r.mu.Lock()
		r.items.Put(b)
		r.mu.Unlock()
		res.Added++
	}

	r.log.Info("bulk add finished", logger.Int("added", res.Added), logger.Int("skipped", res.Skipped))
	return res
}

func (r *Repository) conflicts(b model.Bookmark) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.items.Has(b.ID) {
		return true
	}
	if !b.IsLink() {
		return false
	}
	for _, other := range r.items.LinksByURL(b.URL) {
		if other.ID != b.ID {
			return true
		}
	}
	return false
}

// Stage inserts a provisional record in memory only. It becomes durable
// when Add is called with the same id.
func (r *Repository) Stage(b model.Bookmark) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	b.Pending = true
	r.mu.Lock()
	r.items.Put(b)
	r.mu.Unlock()
}

// Discard drops a provisional record. Finalized records are left alone.
func (r *Repository) Discard(id string) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.items.Get(id); ok && b.Pending {
		r.items.Delete(id)
	}
}
