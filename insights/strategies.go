package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/internal/utils"
)

// insightsMetrics maps upstream insight names onto the metrics they fill.
var insightsMetrics = []struct {
	upstream string
	metric   Metric
}{
	{"page_impressions", Impressions},
	{"page_engaged_users", Engagement},
}

type feedTotals struct {
	reactions int64
	likes     int64
}

// walkFeed sums reaction and like totals over every post in range. A post
// without a summary contributes zero.
func (a *Aggregator) walkFeed(ctx context.Context, pageToken, pageID string, r graph.Range) (feedTotals, error) {
	var totals feedTotals
	err := graph.Walk(ctx, a.client, pageToken, graph.Feed(pageID, r, a.pageLimit), a.maxPages, func(items []graph.FeedItem) error {
		for _, item := range items {
			totals.reactions += summaryCount(item.Reactions)
			totals.likes += summaryCount(item.Likes)
		}
		return nil
	})
	return totals, err
}

func summaryCount(edge *graph.SummaryEdge) int64 {
	if edge == nil || edge.Summary == nil {
		return 0
	}
	return utils.Value(edge.Summary.TotalCount)
}

// pageCounts reads followers_count, falling back to fan_count.
func (a *Aggregator) pageCounts(ctx context.Context, pageToken, pageID string) (Value, error) {
	var resp graph.PageCountsResponse
	if err := a.client.Get(ctx, pageToken, graph.PageCounts(pageID), &resp); err != nil {
		return Value{}, err
	}
	switch {
	case resp.FollowersCount != nil:
		return Count(*resp.FollowersCount), nil
	case resp.FanCount != nil:
		return Count(*resp.FanCount), nil
	}
	return Unavailable(), nil
}

// insights reads the first reported value of each requested metric.
func (a *Aggregator) insights(ctx context.Context, pageToken, pageID string, r graph.Range) (map[Metric]Value, error) {
	names := make([]string, 0, len(insightsMetrics))
	for _, im := range insightsMetrics {
		names = append(names, im.upstream)
	}

	var resp graph.List[graph.InsightMetric]
	if err := a.client.Get(ctx, pageToken, graph.Insights(pageID, names, graph.PeriodTotalOverRange, r), &resp); err != nil {
		return nil, err
	}

	out := make(map[Metric]Value, len(insightsMetrics))
	for _, im := range insightsMetrics {
		out[im.metric] = Unavailable()
	}
	for _, series := range resp.Data {
		for _, im := range insightsMetrics {
			if series.Name != im.upstream || len(series.Values) == 0 {
				continue
			}
			v, err := firstValue(series.Values[0].Value)
			if err != nil {
				return nil, fmt.Errorf("[insights] metric %s: %w", series.Name, err)
			}
			out[im.metric] = v
		}
	}
	return out, nil
}

// firstValue reads a number, or the sum of an object of numbers such as a
// per reaction type breakdown. null or an empty payload is unavailable.
func firstValue(raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Unavailable(), nil
	}

	if raw[0] == '{' {
		var breakdown map[string]json.Number
		if err := json.Unmarshal(raw, &breakdown); err != nil {
			return Value{}, fmt.Errorf("unexpected value %s", raw)
		}
		var sum int64
		for _, n := range breakdown {
			v, err := toInt(n)
			if err != nil {
				return Value{}, err
			}
			sum += v
		}
		return Count(sum), nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return Value{}, fmt.Errorf("unexpected value %s", raw)
	}
	v, err := toInt(n)
	if err != nil {
		return Value{}, err
	}
	return Count(v), nil
}

func toInt(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("unexpected number %q", n)
	}
	return int64(math.Round(f)), nil
}
