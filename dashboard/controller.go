// Package dashboard owns the page list and the single published LoadState of
// the signed-in user's dashboard.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-page-insights/insights"
	"github.com/jrsteele09/go-page-insights/pages"
	"github.com/jrsteele09/go-page-insights/session"
	"github.com/rs/zerolog/log"
)

type Lister interface {
	ListResources(ctx context.Context, userToken string) ([]pages.Resource, error)
}

type Fetcher interface {
	FetchMetrics(ctx context.Context, userToken string, resource pages.Resource, window insights.Window) (insights.MetricSet, error)
}

var (
	_ Lister  = (*pages.Directory)(nil)
	_ Fetcher = (*insights.Aggregator)(nil)
)

// Controller runs fetches and publishes their outcome. A fetch that finishes
// after a newer one started is discarded, so the published state never goes
// back in time.
type Controller struct {
	lister  Lister
	fetcher Fetcher
	timeout time.Duration
	metrics *Metrics

	mu         sync.Mutex
	generation uint64
	state      LoadState

	// pages are listed once per session
	pagesOwner string
	pages      []pages.Resource
}

type Option func(*Controller)

func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithTimeout bounds every fetch. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

func NewController(lister Lister, fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{lister: lister, fetcher: fetcher, state: Idle()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pages lists the session's pages, reusing the listing for the same session.
// An empty slice means the user administers no pages.
func (c *Controller) Pages(ctx context.Context, s session.Session) ([]pages.Resource, error) {
	owner := s.SubjectID + "\x00" + s.AccessToken

	c.mu.Lock()
	if c.pages != nil && c.pagesOwner == owner {
		cached := c.pages
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	list, err := c.lister.ListResources(ctx, s.AccessToken)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.pages, c.pagesOwner = list, owner
	c.mu.Unlock()
	return list, nil
}

// Page looks up a listed page by id.
func (c *Controller) Page(ctx context.Context, s session.Session, id string) (pages.Resource, bool, error) {
	list, err := c.Pages(ctx, s)
	if err != nil {
		return pages.Resource{}, false, err
	}
	r, ok := pages.Find(list, id)
	return r, ok, nil
}

// Select fetches metrics for resource over window. It returns this fetch's
// own outcome; State reflects it only if no newer fetch has started since.
func (c *Controller) Select(ctx context.Context, s session.Session, resource pages.Resource, window insights.Window) LoadState {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = Loading(gen)
	c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var outcome LoadState
	set, err := c.fetcher.FetchMetrics(ctx, s.AccessToken, resource, window)
	if err != nil {
		outcome = Failed(gen, err)
	} else {
		outcome = Ready(gen, set)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		log.Debug().Uint64("generation", gen).Uint64("latest", c.generation).Str("page_id", resource.ID).Msg("discarding stale fetch")
		c.metrics.record(outcomeStale)
		return outcome
	}
	c.state = outcome
	if outcome.Kind() == KindReady {
		c.metrics.record(outcomeReady)
	} else {
		c.metrics.record(outcomeError)
	}
	return outcome
}

// Fail publishes an error that happened before any fetch could start, such as
// an invalid selection.
func (c *Controller) Fail(err error) LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = Failed(c.generation, err)
	c.metrics.record(outcomeError)
	return c.state
}

// State returns the latest published LoadState.
func (c *Controller) State() LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset forgets the page listing and returns to idle, as on sign out.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = Idle()
	c.pages, c.pagesOwner = nil, ""
}
