// Package insights fetches a page's engagement data and reduces it into a MetricSet.
package insights

import (
	"context"
	"time"

	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/internal/errors"
	"github.com/jrsteele09/go-page-insights/pages"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// TokenResolver looks up a page scoped token. *pages.Directory implements it.
type TokenResolver interface {
	ResolveResourceToken(ctx context.Context, resourceID, userToken string) (string, error)
}

var _ TokenResolver = (*pages.Directory)(nil)

// Aggregator is the metrics aggregator.
type Aggregator struct {
	client    *graph.Client
	resolver  TokenResolver
	pageLimit int
	maxPages  int
	now       func() time.Time
}

type AggregatorOption func(*Aggregator)

// WithClock overrides time.Now, used to resolve presets for the feed walk.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(client *graph.Client, resolver TokenResolver, pageLimit, maxPages int, opts ...AggregatorOption) *Aggregator {
	if maxPages <= 0 {
		maxPages = 1
	}
	a := &Aggregator{
		client:    client,
		resolver:  resolver,
		pageLimit: pageLimit,
		maxPages:  maxPages,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchMetrics resolves the page token when the resource carries none, runs
// every strategy concurrently and reduces their results. Any failure fails
// the whole fetch; no partial MetricSet is returned.
func (a *Aggregator) FetchMetrics(ctx context.Context, userToken string, resource pages.Resource, window Window) (MetricSet, error) {
	const op = "fetch metrics"

	if resource.ID == "" {
		return MetricSet{}, errors.NewValidationError("page", "no page selected", errors.ErrNoPageSelected)
	}
	if err := window.Validate(); err != nil {
		return MetricSet{}, err
	}
	window = window.Normalized()

	pageToken := resource.AccessToken
	if pageToken == "" {
		tok, err := a.resolver.ResolveResourceToken(ctx, resource.ID, userToken)
		if err != nil {
			return MetricSet{}, errors.NewFetchError(op, errors.StageToken, err)
		}
		pageToken = tok
	}

	now := a.now()
	var (
		feed     feedTotals
		counts   Value
		timeline map[Metric]Value
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		feed, err = a.walkFeed(gctx, pageToken, resource.ID, window.feedRange(now))
		return err
	})
	g.Go(func() (err error) {
		counts, err = a.pageCounts(gctx, pageToken, resource.ID)
		return err
	})
	g.Go(func() (err error) {
		timeline, err = a.insights(gctx, pageToken, resource.ID, window.insightsRange())
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Str("page_id", resource.ID).Str("window", window.String()).Msg("metrics fetch failed")
		return MetricSet{}, errors.NewFetchError(op, errors.StageQuery, err)
	}

	set := newMetricSet(resource.ID, window, now)
	set.Values[Reactions] = Count(feed.reactions)
	set.Values[Likes] = Count(feed.likes)
	set.Values[Followers] = counts
	for m, v := range timeline {
		set.Values[m] = v
	}
	return set, nil
}
