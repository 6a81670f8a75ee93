package graph

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Endpoint names a Graph API call for logging and metrics.
type Endpoint string

const (
	EndpointMe         Endpoint = "me"
	EndpointAccounts   Endpoint = "accounts"
	EndpointPageToken  Endpoint = "page_token"
	EndpointFeed       Endpoint = "feed"
	EndpointPageCounts Endpoint = "page_counts"
	EndpointInsights   Endpoint = "insights"
)

// Period values accepted by the insights endpoint.
const (
	PeriodDay            = "day"
	PeriodWeek           = "week"
	PeriodDays28         = "days_28"
	PeriodTotalOverRange = "total_over_range"
)

// Request is one Graph API GET. Path is relative to the versioned base URL.
type Request struct {
	Endpoint Endpoint
	Path     string
	Params   url.Values
}

// Range bounds a time series or feed query. Either Since/Until or Preset is set.
type Range struct {
	Since  time.Time
	Until  time.Time
	Preset string
}

func (r Range) apply(params url.Values, allowPreset bool) {
	if r.Preset != "" && allowPreset {
		params.Set("date_preset", r.Preset)
		return
	}
	if !r.Since.IsZero() {
		params.Set("since", strconv.FormatInt(r.Since.Unix(), 10))
	}
	if !r.Until.IsZero() {
		params.Set("until", strconv.FormatInt(r.Until.Unix(), 10))
	}
}

// Me requests the signed-in user's profile.
func Me() Request {
	return Request{
		Endpoint: EndpointMe,
		Path:     "me",
		Params:   url.Values{"fields": {"id,name,email,picture"}},
	}
}

// Accounts lists the pages the user administers, with inline page tokens.
func Accounts(limit int) Request {
	params := url.Values{"fields": {"id,name,category,access_token"}}
	setLimit(params, limit)
	return Request{Endpoint: EndpointAccounts, Path: "me/accounts", Params: params}
}

// PageToken requests a page scoped access token.
func PageToken(pageID string) Request {
	return Request{
		Endpoint: EndpointPageToken,
		Path:     url.PathEscape(pageID),
		Params:   url.Values{"fields": {"access_token"}},
	}
}

// Feed lists a page's posts with reaction and like totals.
// The feed endpoint has no date_preset, so a preset Range must be resolved to bounds first.
func Feed(pageID string, r Range, limit int) Request {
	params := url.Values{"fields": {"id,reactions.summary(total_count),likes.summary(total_count)"}}
	r.apply(params, false)
	setLimit(params, limit)
	return Request{Endpoint: EndpointFeed, Path: url.PathEscape(pageID) + "/feed", Params: params}
}

// PageCounts requests a page's fan and follower counts.
func PageCounts(pageID string) Request {
	return Request{
		Endpoint: EndpointPageCounts,
		Path:     url.PathEscape(pageID),
		Params:   url.Values{"fields": {"fan_count,followers_count"}},
	}
}

// Insights requests named time series metrics for a page.
func Insights(pageID string, metrics []string, period string, r Range) Request {
	params := url.Values{"metric": {strings.Join(metrics, ",")}}
	if period != "" {
		params.Set("period", period)
	}
	r.apply(params, true)
	return Request{Endpoint: EndpointInsights, Path: url.PathEscape(pageID) + "/insights", Params: params}
}

func setLimit(params url.Values, limit int) {
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
}
