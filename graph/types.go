package graph

import "encoding/json"

// Paging is the cursor block attached to list responses.
type Paging struct {
	Cursors *struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors,omitempty"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// List is one page of a cursor paginated response.
type List[T any] struct {
	Data   []T     `json:"data"`
	Paging *Paging `json:"paging,omitempty"`
}

// Profile is the /me response.
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Account is one entry of /me/accounts.
type Account struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	AccessToken string `json:"access_token"`
}

// PageTokenResponse is the /{page}?fields=access_token response.
type PageTokenResponse struct {
	ID          string `json:"id"`
	AccessToken string `json:"access_token"`
}

// Summary carries an edge's total_count.
type Summary struct {
	TotalCount *int64 `json:"total_count"`
}

// SummaryEdge is an edge requested with .summary(total_count).
type SummaryEdge struct {
	Summary *Summary `json:"summary"`
}

// FeedItem is one post of /{page}/feed.
type FeedItem struct {
	ID        string       `json:"id"`
	Reactions *SummaryEdge `json:"reactions"`
	Likes     *SummaryEdge `json:"likes"`
}

// PageCountsResponse is the /{page}?fields=fan_count,followers_count response.
type PageCountsResponse struct {
	ID             string `json:"id"`
	FanCount       *int64 `json:"fan_count"`
	FollowersCount *int64 `json:"followers_count"`
}

// InsightValue is one point of a metric's time series. Value may be a number
// or an object of numbers, so it is left raw.
type InsightValue struct {
	Value   json.RawMessage `json:"value"`
	EndTime string          `json:"end_time,omitempty"`
}

// InsightMetric is one entry of /{page}/insights.
type InsightMetric struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Period string         `json:"period"`
	Title  string         `json:"title"`
	Values []InsightValue `json:"values"`
}
