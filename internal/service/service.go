// Package service is the single entry point for user-facing bookmark
// operations. It sequences the repository, the title fetcher, the
// auto-grouping engine and the liveness checker.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nikbrunner/minimark/internal/autogroup"
	"github.com/nikbrunner/minimark/internal/checker"
	"github.com/nikbrunner/minimark/internal/exporter"
	"github.com/nikbrunner/minimark/internal/importer"
	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/repository"
	"github.com/nikbrunner/minimark/internal/urlutil"
	"github.com/nikbrunner/minimark/internal/view"
)

var (
	ErrEmptySearch      = errors.New("search term is empty")
	ErrNothingToImport  = errors.New("no items found in file to import")
	ErrUnknownParameter = errors.New("not a query parameter of the link")
)

// TitleFetcher resolves the title of a page. It never fails; it falls back
// to a title derived from the URL.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, pageURL string) string
}

// Options configures a Service. Zero values take the defaults.
type Options struct {
	DeadAfter time.Duration
	Logger    logger.Logger
	Now       func() time.Time
}

// Service runs bookmark operations. It is safe for concurrent use.
type Service struct {
	repo      *repository.Repository
	titles    TitleFetcher
	grouper   *autogroup.Engine
	checker   *checker.Checker
	log       logger.Logger
	now       func() time.Time
	deadAfter time.Duration

	// groupMu admits one auto-grouping pass at a time.
	groupMu sync.Mutex
	ingests sync.WaitGroup
}

// New creates a Service.
func New(repo *repository.Repository, titles TitleFetcher, chk *checker.Checker, opts Options) *Service {
	s := &Service{
		repo:      repo,
		titles:    titles,
		checker:   chk,
		log:       opts.Logger,
		now:       opts.Now,
		deadAfter: opts.DeadAfter,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.deadAfter <= 0 {
		s.deadAfter = checker.DefaultDeadAfter
	}
	s.grouper = autogroup.New(repo, s.log)
	return s
}

// Wait blocks until every background ingest has finished.
func (s *Service) Wait() {
	s.ingests.Wait()
}

// Items returns every bookmark, provisional ones included.
func (s *Service) Items() []model.Bookmark {
	return s.repo.All()
}

// Get returns one bookmark.
func (s *Service) Get(id string) (model.Bookmark, error) {
	b, ok := s.repo.Get(id)
	if !ok {
		return model.Bookmark{}, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return b, nil
}

// View derives the visible list for opts.
func (s *Service) View(opts view.Options) []model.Bookmark {
	return view.Derive(s.repo.All(), opts)
}

// Breadcrumbs returns the navigation trail for scope.
func (s *Service) Breadcrumbs(scope view.Scope) []view.Crumb {
	return view.Breadcrumbs(s.repo.All(), scope)
}

// Click records that a bookmark was opened. Clicking an archived link
// brings it back from the archive. Groups are returned unchanged.
func (s *Service) Click(ctx context.Context, id string) (model.Bookmark, error) {
	b, err := s.Get(id)
	if err != nil {
		return b, err
	}
	if !b.IsLink() {
		return b, nil
	}

	wasArchived := b.Archived
	b.Clicks++
	b.LastClickDate = model.TimePtr(s.now())
	b.Archived = false
	if err := s.repo.Update(ctx, b); err != nil {
		return b, err
	}
	if wasArchived {
		s.log.Info("link unarchived on click", logger.String("id", id))
	}
	return b, nil
}

// OpenURL returns the URL to open for b with values applied to its dynamic
// parameters.
func OpenURL(b model.Bookmark, values map[string]string) string {
	if !b.IsLink() {
		return b.URL
	}
	return urlutil.ApplyParams(b.URL, b.DynamicParamKeys, values)
}

// SetTitle renames a bookmark. Blank titles are rejected.
func (s *Service) SetTitle(ctx context.Context, id, title string) (model.Bookmark, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Bookmark{}, model.ErrEmptyTitle
	}
	b, err := s.Get(id)
	if err != nil {
		return b, err
	}
	b.Title = title
	return b, s.repo.Update(ctx, b)
}

// ReplaceInTitles replaces every case-insensitive occurrence of find in the
// titles of items and returns how many titles changed.
func (s *Service) ReplaceInTitles(ctx context.Context, items []model.Bookmark, find, replace string) (int, error) {
	if strings.TrimSpace(find) == "" {
		return 0, ErrEmptySearch
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(find))

	var res model.BulkResult
	for _, b := range items {
		title := re.ReplaceAllLiteralString(b.Title, replace)
		if title == b.Title {
			continue
		}
		_, err := s.SetTitle(ctx, b.ID, title)
		res.Record(err)
	}
	return res.Done, res.Err()
}

// ToggleDynamicParam marks or unmarks a query parameter of a link as
// editable on open. It reports whether the parameter is now dynamic.
func (s *Service) ToggleDynamicParam(ctx context.Context, id, key string) (bool, error) {
	b, err := s.Get(id)
	if err != nil {
		return false, err
	}
	if !b.IsLink() {
		return false, fmt.Errorf("%w: %s is a group", ErrUnknownParameter, id)
	}
	if !slices.Contains(b.DynamicParamKeys, key) && !slices.Contains(urlutil.QueryKeys(b.URL), key) {
		return false, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}

	keys, on := urlutil.ToggleKey(b.DynamicParamKeys, key)
	b.DynamicParamKeys = keys
	return on, s.repo.Update(ctx, b)
}

// TogglePin pins or unpins an item and reports whether it is now pinned.
// Archived items cannot be pinned.
func (s *Service) TogglePin(ctx context.Context, id string) (bool, error) {
	b, err := s.Get(id)
	if err != nil {
		return false, err
	}
	if b.Archived {
		return false, fmt.Errorf("%w: unarchive it first", model.ErrArchived)
	}
	b.Pinned = !b.Pinned
	return b.Pinned, s.repo.Update(ctx, b)
}

// Archive moves a link into or out of the archive.
func (s *Service) Archive(ctx context.Context, id string, archived bool) error {
	b, err := s.Get(id)
	if err != nil {
		return err
	}
	if !b.IsLink() {
		return fmt.Errorf("only links can be archived: %s is a group", id)
	}
	if b.Archived == archived {
		return nil
	}
	b.Archived = archived
	return s.repo.Update(ctx, b)
}

// Move reparents an item. parentID nil moves it to the top level. The target
// must be a group outside the moved item's own subtree.
func (s *Service) Move(ctx context.Context, id string, parentID *string) error {
	b, err := s.Get(id)
	if err != nil {
		return err
	}
	if b.Archived {
		return fmt.Errorf("%w: unarchive it before moving", model.ErrArchived)
	}
	if parentID != nil {
		target := *parentID
		if !s.repo.IsGroup(target) {
			return fmt.Errorf("%w: %s is not a group", model.ErrInvalidMove, target)
		}
		if target == id || slices.Contains(s.repo.DescendantIDs(id), target) {
			return fmt.Errorf("%w: %s is inside %s", model.ErrInvalidMove, target, id)
		}
	}
	if model.PtrEqual(b.ParentID, parentID) {
		return nil
	}
	b.ParentID = parentID
	return s.repo.Update(ctx, b)
}

// CreateGroup adds an empty group under parentID.
func (s *Service) CreateGroup(ctx context.Context, title string, parentID *string) (model.Bookmark, error) {
	if parentID != nil && !s.repo.IsGroup(*parentID) {
		return model.Bookmark{}, fmt.Errorf("%w: %s is not a group", model.ErrInvalidMove, *parentID)
	}
	g := model.NewGroup(model.NewGroupParams{
		Title:    strings.TrimSpace(title),
		ParentID: parentID,
		Now:      s.now(),
	})
	if err := s.repo.Add(ctx, g); err != nil {
		return model.Bookmark{}, err
	}
	return g, nil
}

// CreateGroupFromLink creates a group next to a link and moves the link
// into it. The new group is the navigation target.
func (s *Service) CreateGroupFromLink(ctx context.Context, linkID, title string) (model.Bookmark, error) {
	link, err := s.Get(linkID)
	if err != nil {
		return model.Bookmark{}, err
	}
	if !link.IsLink() {
		return model.Bookmark{}, fmt.Errorf("%w: %s is a group", model.ErrInvalidMove, linkID)
	}
	if link.Archived {
		return model.Bookmark{}, fmt.Errorf("%w: unarchive it first", model.ErrArchived)
	}

	g, err := s.CreateGroup(ctx, title, link.ParentID)
	if err != nil {
		return model.Bookmark{}, err
	}
	link.ParentID = &g.ID
	if err := s.repo.Update(ctx, link); err != nil {
		s.reconcile(ctx, "create group from link")
		return g, fmt.Errorf("move link into %q: %w", g.Title, err)
	}
	return g, nil
}

// DeleteItem removes an item. Deleting a group with cascade removes its
// whole subtree; without cascade its direct children move up to the group's
// parent first.
func (s *Service) DeleteItem(ctx context.Context, id string, cascade bool) error {
	b, err := s.Get(id)
	if err != nil {
		return err
	}
	if b.IsLink() {
		return s.repo.Remove(ctx, id)
	}

	if cascade {
		ids := s.repo.DescendantIDs(id)
		slices.Reverse(ids)
		for _, child := range append(ids, id) {
			if err := s.repo.Remove(ctx, child); err != nil {
				s.reconcile(ctx, "delete group")
				return fmt.Errorf("delete group %q: %w", b.Title, err)
			}
		}
		s.log.Info("group deleted", logger.String("id", id), logger.Int("descendants", len(ids)))
		return nil
	}

	for _, child := range s.repo.Children(&id) {
		child.ParentID = b.ParentID
		if err := s.repo.Update(ctx, child); err != nil {
			s.reconcile(ctx, "ungroup")
			return fmt.Errorf("ungroup %q: %w", b.Title, err)
		}
	}
	if err := s.repo.Remove(ctx, id); err != nil {
		s.reconcile(ctx, "ungroup")
		return err
	}
	s.log.Info("group removed, contents moved up", logger.String("id", id))
	return nil
}

// RemoveDeadLinks deletes every active link that has been offline longer
// than the dead-link window. The archive is left alone.
func (s *Service) RemoveDeadLinks(ctx context.Context) model.BulkResult {
	var res model.BulkResult
	for _, b := range checker.DeadLinks(s.repo.All(), s.now(), s.deadAfter) {
		res.Record(s.repo.Remove(ctx, b.ID))
	}
	if res.Done+res.Failed > 0 {
		s.log.Info("dead links removed", logger.Int("removed", res.Done), logger.Int("failed", res.Failed))
	}
	return res
}

// DeadLinks lists the links considered dead right now.
func (s *Service) DeadLinks() []model.Bookmark {
	return checker.DeadLinks(s.repo.All(), s.now(), s.deadAfter)
}

// Check runs a liveness check on one link. Forced checks also refresh the
// title.
func (s *Service) Check(ctx context.Context, id string, forced bool) (checker.Result, error) {
	return s.checker.Check(ctx, id, forced)
}

// Import reads a bookmark file and adds every record that does not clash
// with an existing id or URL.
func (s *Service) Import(ctx context.Context, r io.Reader, format importer.Format) (repository.BulkResult, error) {
	recs, err := importer.Parse(r, format)
	if err != nil {
		return repository.BulkResult{}, fmt.Errorf("import failed: %w", err)
	}
	if len(recs) == 0 {
		return repository.BulkResult{}, ErrNothingToImport
	}
	return s.repo.BulkAdd(ctx, recs), nil
}

// Export writes every finalized bookmark to w.
func (s *Service) Export(w io.Writer, format exporter.Format) error {
	items := slices.DeleteFunc(s.repo.All(), func(b model.Bookmark) bool { return b.Pending })
	return exporter.Export(w, items, format)
}

// reconcile reloads the repository after a multi-step mutation failed part
// way through.
func (s *Service) reconcile(ctx context.Context, op string) {
	if err := s.repo.Reload(ctx); err != nil {
		s.log.Error("reload after failed mutation", logger.String("op", op), logger.Error(err))
		return
	}
	s.log.Warn("state reloaded after failed mutation", logger.String("op", op))
}
