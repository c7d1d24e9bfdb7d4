package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/repository"
	"github.com/nikbrunner/minimark/internal/storage"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// flakyStore fails selected operations on demand.
type flakyStore struct {
	storage.Storage
	failPut    bool
	failGetAll bool
	failDelete bool
}

var errBoom = errors.New("disk on fire")

func (f *flakyStore) Put(ctx context.Context, rec model.Record) error {
	if f.failPut {
		return errBoom
	}
	return f.Storage.Put(ctx, rec)
}

func (f *flakyStore) GetAll(ctx context.Context) ([]model.Record, error) {
	if f.failGetAll {
		return nil, errBoom
	}
	return f.Storage.GetAll(ctx)
}

func (f *flakyStore) Delete(ctx context.Context, id string) error {
	if f.failDelete {
		return errBoom
	}
	return f.Storage.Delete(ctx, id)
}

func newRepo(t *testing.T) (*repository.Repository, *flakyStore) {
	t.Helper()
	s, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "bookmarks.db"))
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })

	fs := &flakyStore{Storage: s}
	repo := repository.New(fs, logger.Nop(), repository.WithClock(func() time.Time { return fixedNow }))
	assert.NilError(t, repo.Load(context.Background()))
	return repo, fs
}

func newLink(url string) model.Bookmark {
	return model.NewLink(model.NewLinkParams{URL: url, Now: fixedNow})
}

func TestAdd_RejectsActiveDuplicateURL(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	first := newLink("https://example.com/a")
	assert.NilError(t, repo.Add(ctx, first))

	err := repo.Add(ctx, newLink("https://example.com/a"))
	assert.ErrorIs(t, err, model.ErrDuplicateURL)
	assert.Equal(t, repo.Len(), 1)

	// Same id is an upsert, not a duplicate.
	first.Title = "Renamed"
	assert.NilError(t, repo.Add(ctx, first))
	got, _ := repo.Get(first.ID)
	assert.Equal(t, got.Title, "Renamed")
}

func TestAdd_ArchivedDuplicatesArePermitted(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	archived := newLink("https://example.com/a")
	archived.Archived = true
	assert.NilError(t, repo.Add(ctx, archived))

	other := newLink("https://example.com/a")
	other.Archived = true
	assert.NilError(t, repo.Add(ctx, other))

	assert.NilError(t, repo.Add(ctx, newLink("https://example.com/a")))
	assert.Equal(t, repo.Len(), 3)
}

func TestAdd_GroupsSkipURLCheck(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	g1 := model.NewGroup(model.NewGroupParams{Title: "A", Now: fixedNow})
	g2 := model.NewGroup(model.NewGroupParams{Title: "A", Now: fixedNow})
	g2.URL = g1.URL // normalized back to its own placeholder

	assert.NilError(t, repo.Add(ctx, g1))
	assert.NilError(t, repo.Add(ctx, g2))

	got, _ := repo.Get(g2.ID)
	assert.Equal(t, got.URL, model.GroupURL(g2.ID))
}

func TestUpdate_Renormalizes(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	b := newLink("https://example.com/a")
	assert.NilError(t, repo.Add(ctx, b))

	b.DynamicParamKeys = nil
	b.Status = "bogus"
	b.Title = "   "
	assert.NilError(t, repo.Update(ctx, b))

	got, ok := repo.Get(b.ID)
	assert.Assert(t, ok)
	assert.Assert(t, got.DynamicParamKeys != nil)
	assert.Equal(t, got.Status, model.StatusUnchecked)
	assert.Equal(t, got.Title, "example.com / a")
}

func TestUpdate_StoreFailureLeavesMemoryUntouched(t *testing.T) {
	ctx := context.Background()
	repo, fs := newRepo(t)

	b := newLink("https://example.com/a")
	assert.NilError(t, repo.Add(ctx, b))

	fs.failPut = true
	b.Title = "Changed"
	err := repo.Update(ctx, b)
	assert.Assert(t, repository.IsStoreError(err))
	assert.ErrorIs(t, err, errBoom)

	got, _ := repo.Get(b.ID)
	assert.Equal(t, got.Title, "example.com / a")
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	repo, fs := newRepo(t)

	b := newLink("https://example.com/a")
	assert.NilError(t, repo.Add(ctx, b))

	fs.failDelete = true
	assert.Assert(t, repository.IsStoreError(repo.Remove(ctx, b.ID)))
	_, ok := repo.Get(b.ID)
	assert.Assert(t, ok, "failed remove must keep the record")

	fs.failDelete = false
	assert.NilError(t, repo.Remove(ctx, b.ID))
	_, ok = repo.Get(b.ID)
	assert.Assert(t, !ok)

	// The store agrees after a reload.
	assert.NilError(t, repo.Load(ctx))
	assert.Equal(t, repo.Len(), 0)
}

func TestFindByURL_PrefersActiveLink(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	archived := newLink("https://example.com/a")
	archived.Archived = true
	assert.NilError(t, repo.Add(ctx, archived))
	active := newLink("https://example.com/a")
	assert.NilError(t, repo.Add(ctx, active))

	got, ok := repo.FindByURL("https://example.com/a")
	assert.Assert(t, ok)
	assert.Equal(t, got.ID, active.ID)

	_, ok = repo.FindByURL("https://nowhere.example")
	assert.Assert(t, !ok)
}

func TestBulkAdd_SkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	existing := newLink("https://existing.com")
	assert.NilError(t, repo.Add(ctx, existing))

	res := repo.BulkAdd(ctx, []model.Record{
		{ID: "a", Type: "link", URL: "https://x.com"},
		{ID: "b", Type: "link", URL: "https://x.com"},
		{ID: existing.ID, Type: "link", URL: "https://other.com"},
		{ID: "c", Type: "link", URL: "https://existing.com"},
		{ID: "g", Type: "group", Title: "Folder"},
	})

	assert.DeepEqual(t, res, repository.BulkResult{Added: 2, Skipped: 3})
	assert.Equal(t, repo.Len(), 3)
}

func TestBulkAdd_SkipsInvalidURLs(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	res := repo.BulkAdd(ctx, []model.Record{
		{ID: "a", Type: "link", URL: ""},
		{ID: "b", Type: "link", URL: ""},
		{ID: "c", Type: "link", URL: "not a url"},
		{ID: "d", Type: "link", URL: "ftp://files.example.com"},
		{ID: "e", Type: "link", URL: "https://ok.example.com"},
		{ID: "g", Type: "group", Title: "Folder"},
	})

	assert.DeepEqual(t, res, repository.BulkResult{Added: 2, Skipped: 4})
	for _, id := range []string{"a", "b", "c", "d"} {
		_, ok := repo.Get(id)
		assert.Assert(t, !ok, "%s should not be imported", id)
	}
	_, ok := repo.Get("e")
	assert.Assert(t, ok)
}

func TestBulkAdd_IsolatesStoreFailures(t *testing.T) {
	ctx := context.Background()
	repo, fs := newRepo(t)

	fs.failPut = true
	res := repo.BulkAdd(ctx, []model.Record{
		{ID: "a", URL: "https://a.com"},
		{ID: "b", URL: "https://b.com"},
	})
	assert.DeepEqual(t, res, repository.BulkResult{Added: 0, Skipped: 2})
	assert.Equal(t, repo.Len(), 0)
}

func TestLoad_NormalizesAndResetsInterruptedChecks(t *testing.T) {
	ctx := context.Background()
	repo, fs := newRepo(t)

	assert.NilError(t, fs.Storage.Put(ctx, model.Record{ID: "old", URL: "https://legacy.example/page.htm", Status: "checking"}))
	assert.NilError(t, repo.Load(ctx))

	got, ok := repo.Get("old")
	assert.Assert(t, ok)
	assert.Equal(t, got.Status, model.StatusUnchecked)
	assert.Equal(t, got.Title, "legacy.example / page")
	assert.Equal(t, got.Kind, model.KindLink)
	assert.Assert(t, got.AddDate.Equal(fixedNow))
}

func TestLoad_FailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	repo, fs := newRepo(t)

	assert.NilError(t, repo.Add(ctx, newLink("https://a.com")))

	fs.failGetAll = true
	err := repo.Load(ctx)
	assert.Assert(t, repository.IsStoreError(err))
	assert.Equal(t, repo.Len(), 1)
}

func TestStage_TwoPhaseCreation(t *testing.T) {
	ctx := context.Background()
	repo, fs := newRepo(t)

	b := newLink("https://a.com/post")
	b.Title = b.URL
	b.Loading = true
	repo.Stage(b)

	got, ok := repo.Get(b.ID)
	assert.Assert(t, ok)
	assert.Assert(t, got.Pending)

	// Provisional records never reach the store.
	recs, err := fs.Storage.GetAll(ctx)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(recs, 0))

	// Updates while pending stay in memory and survive a reload.
	got.Title = "Draft"
	assert.NilError(t, repo.Update(ctx, got))
	assert.NilError(t, repo.Load(ctx))
	got, ok = repo.Get(b.ID)
	assert.Assert(t, ok)
	assert.Equal(t, got.Title, "Draft")

	// Finalizing replaces the provisional record under the same id.
	got.Title = "A Post"
	got.Loading = false
	assert.NilError(t, repo.Add(ctx, got))
	got, _ = repo.Get(b.ID)
	assert.Assert(t, !got.Pending)
	assert.Equal(t, repo.Len(), 1)

	recs, _ = fs.Storage.GetAll(ctx)
	assert.Assert(t, is.Len(recs, 1))
	assert.Equal(t, recs[0].Title, "A Post")
}

func TestDiscard_OnlyDropsProvisionalRecords(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	final := newLink("https://a.com")
	assert.NilError(t, repo.Add(ctx, final))
	pending := newLink("https://b.com")
	repo.Stage(pending)

	repo.Discard(final.ID)
	repo.Discard(pending.ID)

	_, ok := repo.Get(final.ID)
	assert.Assert(t, ok)
	_, ok = repo.Get(pending.ID)
	assert.Assert(t, !ok)
}

func TestTreeQueries(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	g := model.NewGroup(model.NewGroupParams{Title: "Dev", Now: fixedNow})
	assert.NilError(t, repo.Add(ctx, g))
	sub := model.NewGroup(model.NewGroupParams{Title: "Go", ParentID: &g.ID, Now: fixedNow})
	assert.NilError(t, repo.Add(ctx, sub))
	l := model.NewLink(model.NewLinkParams{URL: "https://go.dev", ParentID: &sub.ID, Now: fixedNow})
	assert.NilError(t, repo.Add(ctx, l))

	assert.DeepEqual(t, repo.DescendantIDs(g.ID), []string{sub.ID, l.ID})
	assert.Assert(t, is.Len(repo.Children(nil), 1))
	assert.Assert(t, is.Len(repo.Path(sub.ID), 2))
	assert.Assert(t, repo.IsGroup(sub.ID))
	assert.Assert(t, !repo.IsGroup(l.ID))
}
