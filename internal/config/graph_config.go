package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	graphBaseURLKey   = "graph_base_url"
	graphVersionKey   = "graph_version"
	graphPageLimitKey = "graph_page_limit"
	graphMaxPagesKey  = "graph_max_pages"
	httpTimeoutKey    = "http_timeout"
	fetchTimeoutKey   = "fetch_timeout"
)

type GraphConfig interface {
	GetGraphBaseURL() string
	GetGraphVersion() string
	GetGraphPageLimit() int
	GetGraphMaxPages() int
	GetHTTPTimeout() time.Duration
	GetFetchTimeout() time.Duration
}

type Graph struct {
	v *viper.Viper
}

var _ GraphConfig = Graph{}

func (g Graph) GetGraphBaseURL() string {
	return g.v.GetString(graphBaseURLKey)
}

func (g Graph) GetGraphVersion() string {
	return g.v.GetString(graphVersionKey)
}

// GetGraphPageLimit is the page size asked for on cursor paginated endpoints.
func (g Graph) GetGraphPageLimit() int {
	return g.v.GetInt(graphPageLimitKey)
}

// GetGraphMaxPages caps how many cursor pages a single listing or feed walk reads.
func (g Graph) GetGraphMaxPages() int {
	return g.v.GetInt(graphMaxPagesKey)
}

func (g Graph) GetHTTPTimeout() time.Duration {
	return g.v.GetDuration(httpTimeoutKey)
}

func (g Graph) GetFetchTimeout() time.Duration {
	return g.v.GetDuration(fetchTimeoutKey)
}
