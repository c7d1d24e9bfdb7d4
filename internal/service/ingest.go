package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikbrunner/minimark/internal/autogroup"
	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/urlutil"
)

// IngestResult is the outcome of a finished paste.
type IngestResult struct {
	Link       model.Bookmark
	Grouping   autogroup.Result
	NavigateTo string
}

// Pending is a paste whose title is still being fetched.
type Pending struct {
	// Link is the provisional record as it was staged.
	Link model.Bookmark

	done chan struct{}
	res  IngestResult
	err  error
}

// Done is closed once the paste has been finalized or dropped.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the paste finishes or ctx ends.
func (p *Pending) Wait(ctx context.Context) (IngestResult, error) {
	select {
	case <-p.done:
		return p.res, p.err
	case <-ctx.Done():
		return IngestResult{}, ctx.Err()
	}
}

// Paste adds a link from user input. The link is staged at once with its
// URL as title and finalized in the background after its title has been
// fetched, after which auto-grouping runs once for it. Invalid URLs and URLs
// already held by an active link are rejected before anything is staged.
func (s *Service) Paste(ctx context.Context, rawURL string, parentID *string) (*Pending, error) {
	pageURL := strings.TrimSpace(rawURL)
	if !urlutil.IsValidHTTPURL(pageURL) {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidURL, pageURL)
	}
	if parentID != nil && !s.repo.IsGroup(*parentID) {
		return nil, fmt.Errorf("%w: %s is not a group", model.ErrInvalidMove, *parentID)
	}
	if existing, ok := s.repo.FindByURL(pageURL); ok && existing.Active() {
		return nil, fmt.Errorf("%w: %s", model.ErrDuplicateURL, pageURL)
	}

	now := s.now()
	link := model.NewLink(model.NewLinkParams{
		URL:      pageURL,
		Title:    pageURL,
		ParentID: parentID,
		Now:      now,
	})
	link.LastClickDate = model.TimePtr(now)
	link.Loading = true
	s.repo.Stage(link)

	link.Pending = true
	p := &Pending{Link: link, done: make(chan struct{})}

	s.ingests.Add(1)
	go func() {
		defer s.ingests.Done()
		defer close(p.done)
		p.res, p.err = s.finalize(context.WithoutCancel(ctx), link.ID, pageURL)
	}()
	return p, nil
}

func (s *Service) finalize(ctx context.Context, id, pageURL string) (IngestResult, error) {
	title := s.titles.FetchTitle(ctx, pageURL)

	// The provisional record may have been deleted while the title was
	// being fetched.
	current, ok := s.repo.Get(id)
	if !ok {
		return IngestResult{}, fmt.Errorf("%w: %s was removed before it was saved", model.ErrNotFound, id)
	}
	if urlutil.IsPlaceholderTitle(current.Title, pageURL) {
		current.Title = title
	}
	current.Loading = false

	if err := s.repo.Add(ctx, current); err != nil {
		s.repo.Discard(id)
		s.log.Warn("paste not saved", logger.String("url", pageURL), logger.Error(err))
		return IngestResult{}, err
	}

	res := IngestResult{Link: current}
	res.Link.Pending = false

	s.groupMu.Lock()
	grouping, err := s.grouper.Apply(ctx, id)
	s.groupMu.Unlock()
	if err != nil {
		s.reconcile(ctx, "auto-group")
		s.log.Warn("auto-grouping failed", logger.String("id", id), logger.Error(err))
	}
	res.Grouping = grouping
	res.NavigateTo = grouping.NavigateTo
	if final, ok := s.repo.Get(id); ok {
		res.Link = final
	}
	return res, nil
}
