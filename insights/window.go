package insights

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/internal/errors"
)

// DateLayout is the format of explicit window dates.
const DateLayout = "2006-01-02"

// Preset is a relative window understood by the insights endpoint.
type Preset string

const (
	PresetToday     Preset = "today"
	PresetYesterday Preset = "yesterday"
	PresetLast7d    Preset = "last_7d"
	PresetLast14d   Preset = "last_14d"
	PresetLast28d   Preset = "last_28d"
	PresetLast30d   Preset = "last_30d"
	PresetLast90d   Preset = "last_90d"
	PresetThisMonth Preset = "this_month"
	PresetLastMonth Preset = "last_month"

	// DefaultPreset is used when no window is given.
	DefaultPreset = PresetLast28d
)

var presetDays = map[Preset]int{
	PresetLast7d:  7,
	PresetLast14d: 14,
	PresetLast28d: 28,
	PresetLast30d: 30,
	PresetLast90d: 90,
}

// Presets lists every supported preset, in display order.
var Presets = []Preset{
	PresetToday, PresetYesterday, PresetLast7d, PresetLast14d, PresetLast28d,
	PresetLast30d, PresetLast90d, PresetThisMonth, PresetLastMonth,
}

func (p Preset) valid() bool {
	for _, known := range Presets {
		if p == known {
			return true
		}
	}
	return false
}

// Window is the range time series metrics are aggregated over: either an
// explicit Since/Until pair of UTC dates, both inclusive, or a Preset.
// The zero Window means DefaultPreset.
type Window struct {
	Since  time.Time
	Until  time.Time
	Preset Preset
}

type windowJSON struct {
	Since  string `json:"since,omitempty"`
	Until  string `json:"until,omitempty"`
	Preset Preset `json:"preset,omitempty"`
}

func (w Window) MarshalJSON() ([]byte, error) {
	out := windowJSON{Preset: w.Preset}
	if !w.Since.IsZero() {
		out.Since = w.Since.Format(DateLayout)
	}
	if !w.Until.IsZero() {
		out.Until = w.Until.Format(DateLayout)
	}
	return json.Marshal(out)
}

func (w *Window) UnmarshalJSON(data []byte) error {
	var in windowJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	parsed, err := ParseWindow(in.Since, in.Until, string(in.Preset))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseWindow builds a Window from form values. Empty strings are omitted.
func ParseWindow(since, until, preset string) (Window, error) {
	var w Window
	if preset != "" {
		w.Preset = Preset(preset)
	}
	if since != "" {
		t, err := time.Parse(DateLayout, since)
		if err != nil {
			return Window{}, errors.NewValidationError("since", fmt.Sprintf("%q is not a YYYY-MM-DD date", since), errors.ErrInvalidWindow)
		}
		w.Since = t
	}
	if until != "" {
		t, err := time.Parse(DateLayout, until)
		if err != nil {
			return Window{}, errors.NewValidationError("until", fmt.Sprintf("%q is not a YYYY-MM-DD date", until), errors.ErrInvalidWindow)
		}
		w.Until = t
	}
	return w, w.Validate()
}

func (w Window) IsZero() bool {
	return w.Since.IsZero() && w.Until.IsZero() && w.Preset == ""
}

func (w Window) explicit() bool {
	return !w.Since.IsZero() || !w.Until.IsZero()
}

// Validate rejects mixed, half open or inverted windows and unknown presets.
func (w Window) Validate() error {
	switch {
	case w.Preset != "" && w.explicit():
		return errors.NewValidationError("window", "use either a preset or since/until, not both", errors.ErrInvalidWindow)
	case w.Preset != "" && !w.Preset.valid():
		return errors.NewValidationError("preset", fmt.Sprintf("unknown preset %q", w.Preset), errors.ErrInvalidWindow)
	case w.explicit() && (w.Since.IsZero() || w.Until.IsZero()):
		return errors.NewValidationError("window", "since and until must be given together", errors.ErrInvalidWindow)
	case w.explicit() && w.Since.After(w.Until):
		return errors.NewValidationError("window", "since must not be after until", errors.ErrInvalidWindow)
	}
	return nil
}

// Normalized replaces the zero Window with DefaultPreset.
func (w Window) Normalized() Window {
	if w.IsZero() {
		return Window{Preset: DefaultPreset}
	}
	return w
}

// Bounds resolves the window to a half open [since, until) range of UTC times.
func (w Window) Bounds(now time.Time) (time.Time, time.Time) {
	w = w.Normalized()
	if w.explicit() {
		return day(w.Since), day(w.Until).AddDate(0, 0, 1)
	}

	today := day(now)
	switch w.Preset {
	case PresetToday:
		return today, today.AddDate(0, 0, 1)
	case PresetYesterday:
		return today.AddDate(0, 0, -1), today
	case PresetThisMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first, today.AddDate(0, 0, 1)
	case PresetLastMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -1, 0), first
	}
	return today.AddDate(0, 0, -presetDays[w.Preset]), today
}

// insightsRange passes presets through; the endpoint resolves them itself.
func (w Window) insightsRange() graph.Range {
	w = w.Normalized()
	if w.Preset != "" {
		return graph.Range{Preset: string(w.Preset)}
	}
	since, until := w.Bounds(time.Time{})
	return graph.Range{Since: since, Until: until}
}

// feedRange always sends explicit bounds because the feed has no presets.
func (w Window) feedRange(now time.Time) graph.Range {
	since, until := w.Bounds(now)
	return graph.Range{Since: since, Until: until}
}

func (w Window) String() string {
	w = w.Normalized()
	if w.Preset != "" {
		return string(w.Preset)
	}
	return w.Since.Format(DateLayout) + ".." + w.Until.Format(DateLayout)
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
