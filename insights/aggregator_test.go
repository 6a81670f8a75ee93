package insights_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/insights"
	"github.com/jrsteele09/go-page-insights/internal/errors"
	"github.com/jrsteele09/go-page-insights/pages"
	"github.com/stretchr/testify/require"
)

const (
	testPageID    = "321"
	testPageToken = "page-token"
	testUserToken = "user-token"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// fakeGraph serves the page endpoints the aggregator uses.
type fakeGraph struct {
	mu sync.Mutex

	feedPages  []string // JSON arrays of feed items, one per cursor page
	counts     string
	insights   string
	failPath   string // path suffix that answers with failBody
	failBody   string
	feedQuery  []string
	badBearers atomic.Int32
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		feedPages: []string{
			`[{"id":"p1","reactions":{"summary":{"total_count":10}},"likes":{"summary":{"total_count":7}}},
			  {"id":"p2","reactions":{"summary":{"total_count":5}}},
			  {"id":"p3"}]`,
			`[{"id":"p4","reactions":{"summary":{"total_count":1}},"likes":{"summary":{"total_count":0}}}]`,
		},
		counts: `{"id":"321","fan_count":900,"followers_count":1200}`,
		insights: `{"data":[
			{"name":"page_impressions","period":"total_over_range","values":[{"value":45000},{"value":1}]},
			{"name":"page_engaged_users","period":"total_over_range","values":[{"value":0}]}
		]}`,
	}
}

func (f *fakeGraph) update(fn func(g *fakeGraph)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGraph) feedQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.feedQuery...)
}

func (f *fakeGraph) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+testPageToken {
		f.badBearers.Add(1)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failPath != "" && strings.HasSuffix(r.URL.Path, f.failPath) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, f.failBody)
		return
	}

	switch r.URL.Path {
	case "/v13.0/" + testPageID + "/feed":
		f.feedQuery = append(f.feedQuery, r.URL.RawQuery)
		idx, _ := strconv.Atoi(r.URL.Query().Get("after"))
		fmt.Fprintf(w, `{"data":%s`, f.feedPages[idx])
		if idx+1 < len(f.feedPages) {
			fmt.Fprintf(w, `,"paging":{"next":"http://%s/v13.0/%s/feed?after=%d"}`, r.Host, testPageID, idx+1)
		}
		fmt.Fprint(w, `}`)
	case "/v13.0/" + testPageID + "/insights":
		fmt.Fprint(w, f.insights)
	case "/v13.0/" + testPageID:
		fmt.Fprint(w, f.counts)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type fakeResolver struct {
	calls atomic.Int32
	token string
	err   error
}

func (f *fakeResolver) ResolveResourceToken(_ context.Context, resourceID, userToken string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type aggregatorFixture struct {
	graph      *fakeGraph
	resolver   *fakeResolver
	aggregator *insights.Aggregator
}

func setupAggregator(t *testing.T) *aggregatorFixture {
	t.Helper()
	fg := newFakeGraph()
	srv := httptest.NewServer(fg)
	t.Cleanup(srv.Close)

	c, err := graph.NewClient(srv.URL, "v13.0")
	require.NoError(t, err)

	res := &fakeResolver{token: testPageToken}
	return &aggregatorFixture{
		graph:      fg,
		resolver:   res,
		aggregator: insights.NewAggregator(c, res, 50, 10, insights.WithClock(func() time.Time { return fixedNow })),
	}
}

func page(token string) pages.Resource {
	return pages.Resource{ID: testPageID, Name: "Bakery", AccessToken: token}
}

func TestAggregator_FetchMetrics(t *testing.T) {
	f := setupAggregator(t)

	set, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, page(testPageToken), insights.Window{})
	require.NoError(t, err)

	require.Equal(t, testPageID, set.PageID)
	require.Equal(t, insights.DefaultPreset, set.Window.Preset)
	require.Equal(t, insights.Count(16), set.Get(insights.Reactions))
	require.Equal(t, insights.Count(7), set.Get(insights.Likes))
	require.Equal(t, insights.Count(1200), set.Get(insights.Followers))
	require.Equal(t, insights.Count(45000), set.Get(insights.Impressions))
	require.Equal(t, insights.Count(0), set.Get(insights.Engagement))
	require.True(t, set.Get(insights.Engagement).Available)
	require.Len(t, set.Values, len(insights.Metrics))

	require.Zero(t, f.resolver.calls.Load())
	require.Zero(t, f.graph.badBearers.Load())
}

func TestAggregator_FeedUsesResolvedPresetBounds(t *testing.T) {
	f := setupAggregator(t)

	_, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, page(testPageToken), insights.Window{Preset: insights.PresetLast7d})
	require.NoError(t, err)

	since, until := insights.Window{Preset: insights.PresetLast7d}.Bounds(fixedNow)
	queries := f.graph.feedQueries()
	require.NotEmpty(t, queries)
	require.Contains(t, queries[0], "since="+strconv.FormatInt(since.Unix(), 10))
	require.Contains(t, queries[0], "until="+strconv.FormatInt(until.Unix(), 10))
}

func TestAggregator_Unavailable(t *testing.T) {
	f := setupAggregator(t)
	f.graph.update(func(g *fakeGraph) {
		g.counts = `{"id":"321"}`
		g.insights = `{"data":[{"name":"page_impressions","values":[]}]}`
	})

	set, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, page(testPageToken), insights.Window{})
	require.NoError(t, err)

	require.False(t, set.Get(insights.Followers).Available)
	require.False(t, set.Get(insights.Impressions).Available)
	require.False(t, set.Get(insights.Engagement).Available)
	require.True(t, set.Get(insights.Reactions).Available)
}

func TestAggregator_FanCountFallbackAndBreakdown(t *testing.T) {
	f := setupAggregator(t)
	f.graph.update(func(g *fakeGraph) {
		g.counts = `{"id":"321","fan_count":900}`
		g.insights = `{"data":[
			{"name":"page_impressions","values":[{"value":{"like":3,"love":2,"wow":1.0}}]},
			{"name":"page_engaged_users","values":[{"value":null}]}
		]}`
	})

	set, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, page(testPageToken), insights.Window{})
	require.NoError(t, err)

	require.Equal(t, insights.Count(900), set.Get(insights.Followers))
	require.Equal(t, insights.Count(6), set.Get(insights.Impressions))
	require.False(t, set.Get(insights.Engagement).Available)
}

func TestAggregator_LazyTokenResolution(t *testing.T) {
	t.Run("resolves when the listing had no token", func(t *testing.T) {
		f := setupAggregator(t)

		_, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, page(""), insights.Window{})
		require.NoError(t, err)
		require.EqualValues(t, 1, f.resolver.calls.Load())
		require.Zero(t, f.graph.badBearers.Load())
	})

	t.Run("resolution failure is terminal", func(t *testing.T) {
		f := setupAggregator(t)
		f.resolver.err = errors.NewAuthError("resolve token", fmt.Errorf("permission missing"))

		_, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, page(""), insights.Window{})
		var fetchErr *errors.FetchError
		require.True(t, errors.As(err, &fetchErr))
		require.Equal(t, errors.StageToken, fetchErr.Stage)
		require.True(t, errors.IsAuth(err))
		require.Empty(t, f.graph.feedQueries())
	})
}

func TestAggregator_AllOrNothing(t *testing.T) {
	for _, failing := range []string{"/feed", "/insights", "/" + testPageID} {
		t.Run(failing, func(t *testing.T) {
			f := setupAggregator(t)
			f.graph.update(func(g *fakeGraph) {
				g.failPath = failing
				g.failBody = `{"error":{"message":"(#100) upstream refused","type":"GraphMethodException","code":100}}`
			})

			set, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, page(testPageToken), insights.Window{})
			require.Error(t, err)
			require.Nil(t, set.Values)

			var fetchErr *errors.FetchError
			require.True(t, errors.As(err, &fetchErr))
			require.Equal(t, errors.StageQuery, fetchErr.Stage)
			require.Equal(t, "(#100) upstream refused", fetchErr.Message)
		})
	}
}

func TestAggregator_Idempotent(t *testing.T) {
	f := setupAggregator(t)
	w, err := insights.ParseWindow("2024-01-01", "2024-01-31", "")
	require.NoError(t, err)

	first, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, page(testPageToken), w)
	require.NoError(t, err)
	second, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, page(testPageToken), w)
	require.NoError(t, err)

	require.True(t, first.SameValues(second))
	require.Equal(t, insights.Count(16), second.Get(insights.Reactions))
}

func TestAggregator_Validation(t *testing.T) {
	f := setupAggregator(t)

	_, err := f.aggregator.FetchMetrics(context.Background(), testUserToken, pages.Resource{}, insights.Window{})
	require.True(t, errors.IsValidation(err))
	require.ErrorIs(t, err, errors.ErrNoPageSelected)

	_, err = f.aggregator.FetchMetrics(context.Background(), testUserToken, page(testPageToken), insights.Window{Since: fixedNow})
	require.True(t, errors.IsValidation(err))
	require.Empty(t, f.graph.feedQueries())
}
