// Package checker verifies that links are still reachable, on demand and
// through a throttled background sweep.
package checker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nikbrunner/minimark/internal/fetcher"
	"github.com/nikbrunner/minimark/internal/logger"
	"github.com/nikbrunner/minimark/internal/model"
	"github.com/nikbrunner/minimark/internal/urlutil"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultRecheckAfter = 24 * time.Hour
	DefaultTimeout      = 15 * time.Second
	DefaultDeadAfter    = 7 * 24 * time.Hour
)

// ErrClientOffline is returned by a forced check while the client has no
// connectivity.
var ErrClientOffline = errors.New("cannot check: client is offline")

// Repo is the slice of the repository the checker reads and writes through.
type Repo interface {
	Get(id string) (model.Bookmark, bool)
	All() []model.Bookmark
	Update(ctx context.Context, b model.Bookmark) error
}

// Prober fetches page contents through the proxy.
type Prober interface {
	ContentsWithTimeout(ctx context.Context, pageURL string, timeout time.Duration) (string, error)
}

// Result is the outcome of a single check.
type Result struct {
	ID       string
	Status   model.Status
	Title    string
	OldTitle string
	Skipped  bool
}

// TitleChanged reports whether the check replaced the title.
func (r Result) TitleChanged() bool {
	return !r.Skipped && r.OldTitle != "" && r.Title != r.OldTitle
}

// Options configures a Checker. Zero values take the defaults.
type Options struct {
	Interval     time.Duration
	RecheckAfter time.Duration
	Timeout      time.Duration
	Connectivity Connectivity
	Logger       logger.Logger
	Now          func() time.Time
}

// Checker runs liveness checks. At most one sweep check runs at a time and
// the sweep never starts while any check is in flight.
type Checker struct {
	repo         Repo
	prober       Prober
	online       Connectivity
	log          logger.Logger
	now          func() time.Time
	interval     time.Duration
	recheckAfter time.Duration
	timeout      time.Duration

	inFlight atomic.Int32

	stopOnce      sync.Once
	stopCh        chan struct{}
	manualTrigger chan struct{}
	done          chan struct{}
}

// New creates a Checker.
func New(repo Repo, prober Prober, opts Options) *Checker {
	c := &Checker{
		repo:          repo,
		prober:        prober,
		online:        opts.Connectivity,
		log:           opts.Logger,
		now:           opts.Now,
		interval:      opts.Interval,
		recheckAfter:  opts.RecheckAfter,
		timeout:       opts.Timeout,
		stopCh:        make(chan struct{}),
		manualTrigger: make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	if c.online == nil {
		c.online = AlwaysOnline{}
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.recheckAfter <= 0 {
		c.recheckAfter = DefaultRecheckAfter
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// InFlight reports whether a check is running.
func (c *Checker) InFlight() bool {
	return c.inFlight.Load() > 0
}

// Check verifies the link with the given id. Forced checks come from the
// user: they always refresh the title from the page and report
// ErrClientOffline instead of silently skipping.
func (c *Checker) Check(ctx context.Context, id string, forced bool) (Result, error) {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	return c.check(ctx, id, forced)
}

func (c *Checker) check(ctx context.Context, id string, forced bool) (Result, error) {
	b, ok := c.repo.Get(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}

	if !c.online.Online(ctx) {
		if b.Status == model.StatusChecking || b.Loading {
			b.Status = revertStatus(b.Status)
			b.Loading = false
			c.persist(ctx, b)
		}
		if forced {
			return Result{ID: id, Status: b.Status, Skipped: true}, ErrClientOffline
		}
		return Result{ID: id, Status: b.Status, Skipped: true}, nil
	}

	if !b.IsLink() || !urlutil.IsValidHTTPURL(b.URL) {
		return Result{ID: id, Status: b.Status, Skipped: true}, nil
	}

	prior := b.Status
	b.Status = model.StatusChecking
	b.Loading = true
	if err := c.repo.Update(ctx, b); err != nil {
		c.log.Warn("failed to mark link checking", logger.String("id", id), logger.Error(err))
	}

	contents, probeErr := c.prober.ContentsWithTimeout(ctx, b.URL, c.timeout)

	current, ok := c.repo.Get(id)
	if !ok {
		// Deleted while the probe ran.
		return Result{ID: id, Status: prior, Skipped: true}, nil
	}

	if ctx.Err() != nil || !c.online.Online(ctx) {
		current.Status = revertStatus(prior)
		current.Loading = false
		c.persist(ctx, current)
		if forced {
			return Result{ID: id, Status: current.Status, Skipped: true}, ErrClientOffline
		}
		return Result{ID: id, Status: current.Status, Skipped: true}, nil
	}

	now := c.now()
	res := Result{ID: id, OldTitle: current.Title, Title: current.Title}

	if probeErr == nil && contents != "" {
		current.Status = model.StatusOnline
		current.OfflineSince = nil

		if forced || urlutil.IsPlaceholderTitle(current.Title, current.URL) {
			if t := fetcher.ParseTitle(contents, current.URL); t != "" && t != current.Title {
				current.Title = t
				res.Title = t
			}
		}
	} else {
		if prior != model.StatusOffline || current.OfflineSince == nil {
			current.OfflineSince = model.TimePtr(now)
		}
		current.Status = model.StatusOffline
		reason := "empty response"
		if probeErr != nil {
			reason = fetcher.Reason(probeErr)
		}
		c.log.Info("link offline", logger.String("id", id), logger.String("url", current.URL), logger.String("reason", reason))
	}

	current.LastCheckDate = model.TimePtr(now)
	current.Loading = false
	c.persist(ctx, current)

	res.Status = current.Status
	if res.TitleChanged() {
		c.log.Info("title updated by check", logger.String("id", id), logger.String("title", res.Title))
	}
	return res, nil
}

// persist writes the final state even when ctx was cancelled mid-check.
func (c *Checker) persist(ctx context.Context, b model.Bookmark) {
	if err := c.repo.Update(context.WithoutCancel(ctx), b); err != nil {
		c.log.Error("failed to save check result", logger.String("id", b.ID), logger.Error(err))
	}
}

func revertStatus(s model.Status) model.Status {
	if s == model.StatusChecking || s == "" {
		return model.StatusUnchecked
	}
	return s
}

// SweepOnce checks the single best candidate, if any. It does nothing while
// the client is offline or another check is running.
func (c *Checker) SweepOnce(ctx context.Context) (Result, bool) {
	if !c.online.Online(ctx) {
		return Result{}, false
	}
	if !c.inFlight.CompareAndSwap(0, 1) {
		return Result{}, false
	}
	defer c.inFlight.Add(-1)

	cand, ok := NextCandidate(c.repo.All(), c.now(), c.recheckAfter)
	if !ok {
		return Result{}, false
	}

	res, err := c.check(ctx, cand.ID, false)
	if err != nil {
		c.log.Warn("background check failed", logger.String("id", cand.ID), logger.Error(err))
		return res, false
	}
	return res, !res.Skipped
}

// Start runs the sweep on its interval until Stop is called or ctx ends.
func (c *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer close(c.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.SweepOnce(ctx)
			case <-c.manualTrigger:
				c.log.Debug("manual sweep triggered")
				c.SweepOnce(ctx)
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Trigger asks a running sweep loop to check a candidate now.
func (c *Checker) Trigger() {
	select {
	case c.manualTrigger <- struct{}{}:
	default:
	}
}

// Stop ends the sweep loop and waits for it to exit. It must only be called
// after Start.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.done
}
