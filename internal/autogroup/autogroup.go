// Package autogroup gathers links of the same domain into a group named after
// that domain once a new link has been finalized.
package autogroup

import (
	"context"
	"fmt"
	"time"

	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/urlutil"
)

// Repo is the slice of the repository the engine needs.
type Repo interface {
	Get(id string) (model.Bookmark, bool)
	All() []model.Bookmark
	Add(ctx context.Context, b model.Bookmark) error
	Update(ctx context.Context, b model.Bookmark) error
}

// Result describes what Apply did. NavigateTo is set only when the
// finalized link ended up inside the target group.
type Result struct {
	GroupID    string
	Created    bool
	Moved      int
	NavigateTo string
}

// Changed reports whether Apply mutated anything.
func (r Result) Changed() bool {
	return r.Created || r.Moved > 0
}

// Engine runs auto-grouping against a repository.
type Engine struct {
	repo Repo
	log  logger.Logger
	now  func() time.Time
}

// New creates an Engine.
func New(repo Repo, log logger.Logger) *Engine {
	return &Engine{repo: repo, log: log, now: time.Now}
}

// Apply groups linkID with the other active links of its domain in the same
// parent scope. It reuses an active group titled with the domain in that
// scope or creates one. A link that already sits in its domain group is
// left alone, which makes a second run a no-op.
func (e *Engine) Apply(ctx context.Context, linkID string) (Result, error) {
	link, ok := e.repo.Get(linkID)
	if !ok || !link.IsLink() || link.Archived || link.Pending {
		return Result{}, nil
	}

	domain, ok := urlutil.ExtractDomain(link.URL)
	if !ok {
		return Result{}, nil
	}

	if e.inDomainGroup(link, domain) {
		return Result{}, nil
	}

	items := e.repo.All()
	var siblings []model.Bookmark
	var target *model.Bookmark
	for i, b := range items {
		if !b.InScope(link.ParentID) || !b.Active() || b.ID == link.ID {
			continue
		}
		switch {
		case b.IsLink() && !b.Pending:
			if d, ok := urlutil.ExtractDomain(b.URL); ok && d == domain {
				siblings = append(siblings, b)
			}
		case b.IsGroup() && b.Title == domain && target == nil:
			target = &items[i]
		}
	}
	if len(siblings) == 0 {
		return Result{}, nil
	}

	var res Result
	if target == nil {
		g := model.NewGroup(model.NewGroupParams{Title: domain, ParentID: link.ParentID, Now: e.now()})
		if err := e.repo.Add(ctx, g); err != nil {
			return res, fmt.Errorf("create group %q: %w", domain, err)
		}
		target = &g
		res.Created = true
	}
	res.GroupID = target.ID

	for _, b := range append([]model.Bookmark{link}, siblings...) {
		if b.Parent() == target.ID {
			continue
		}
		b.ParentID = &target.ID
		if err := e.repo.Update(ctx, b); err != nil {
			return res, fmt.Errorf("move %s into %q: %w", b.ID, domain, err)
		}
		res.Moved++
	}

	if final, ok := e.repo.Get(link.ID); ok && final.Parent() == target.ID {
		res.NavigateTo = target.ID
	}

	e.log.Info("links auto-grouped",
		logger.String("domain", domain),
		logger.String("group", target.ID),
		logger.Bool("created", res.Created),
		logger.Int("moved", res.Moved),
	)
	return res, nil
}

// inDomainGroup reports whether link already sits in a group named after its
// domain. Such links are left alone rather than nested one level deeper.
func (e *Engine) inDomainGroup(link model.Bookmark, domain string) bool {
	if link.ParentID == nil {
		return false
	}
	parent, ok := e.repo.Get(*link.ParentID)
	return ok && parent.IsGroup() && parent.Title == domain
}
