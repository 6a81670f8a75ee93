package insights

import (
	"encoding/json"
	"time"
)

// Metric names one aggregate of a MetricSet.
type Metric string

const (
	Reactions   Metric = "reactions"
	Likes       Metric = "likes"
	Followers   Metric = "followers"
	Engagement  Metric = "engagement"
	Impressions Metric = "impressions"
)

// Metrics is the fixed vocabulary in display order.
var Metrics = []Metric{Reactions, Likes, Followers, Engagement, Impressions}

// Value is a metric's aggregate. A zero Count with Available set is a real
// zero; Available false means the upstream reported no data.
type Value struct {
	Count     int64
	Available bool
}

func Count(n int64) Value { return Value{Count: n, Available: true} }

func Unavailable() Value { return Value{} }

// MarshalJSON writes the count, or null when unavailable.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Available {
		return []byte("null"), nil
	}
	return json.Marshal(v.Count)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Unavailable()
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Count(n)
	return nil
}

// MetricSet is the reduced result for one (page, window) pair.
type MetricSet struct {
	PageID    string           `json:"pageId"`
	Window    Window           `json:"window"`
	Values    map[Metric]Value `json:"values"`
	FetchedAt time.Time        `json:"fetchedAt"`
}

func newMetricSet(pageID string, w Window, now time.Time) MetricSet {
	values := make(map[Metric]Value, len(Metrics))
	for _, m := range Metrics {
		values[m] = Unavailable()
	}
	return MetricSet{PageID: pageID, Window: w, Values: values, FetchedAt: now}
}

// Get returns the value of m, unavailable if it is missing.
func (s MetricSet) Get(m Metric) Value {
	return s.Values[m]
}

// SameValues reports whether two sets hold identical aggregates.
func (s MetricSet) SameValues(other MetricSet) bool {
	if len(s.Values) != len(other.Values) {
		return false
	}
	for k, v := range s.Values {
		if other.Values[k] != v {
			return false
		}
	}
	return true
}
