package server

import (
	"net/http"

	"github.com/jrsteele09/go-page-insights/dashboard"
	"github.com/jrsteele09/go-page-insights/insights"
	"github.com/jrsteele09/go-page-insights/internal/errors"
	"github.com/jrsteele09/go-page-insights/pages"
	"github.com/jrsteele09/go-page-insights/session"
)

// DashboardPageData contains data for rendering the dashboard
type DashboardPageData struct {
	AppName  string
	User     session.Session
	Pages    []pages.Resource
	Selected string
	Since    string
	Until    string
	Preset   string
	Presets  []insights.Preset

	// ListError is set when the page listing itself failed
	ListError string

	State   string
	Error   string
	Metrics []MetricRow

	// MetricsPage names the page the rendered metrics belong to. Superseded is
	// set when a newer fetch for another page replaced the selected one.
	MetricsPage   string
	MetricsWindow string
	Superseded    bool
}

// MetricRow is one rendered metric of a ready state.
type MetricRow struct {
	Metric insights.Metric
	Value  insights.Value
}

// DashboardHandler lists the user's pages and, when a page is chosen, loads
// its metrics over the requested window.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sessionFromContext(r.Context())
		query := r.URL.Query()

		data := DashboardPageData{
			AppName:  s.config.GetAppName(),
			User:     sess,
			Selected: query.Get("page"),
			Since:    query.Get("since"),
			Until:    query.Get("until"),
			Preset:   query.Get("preset"),
			Presets:  insights.Presets,
			State:    string(dashboard.KindIdle),
		}

		list, err := s.controller.Pages(r.Context(), sess)
		if err != nil {
			msg, _, _ := dashboard.Failed(0, err).Err()
			data.ListError = msg
			s.render(w, r, http.StatusOK, dashboardTemplate, data)
			return
		}
		data.Pages = list

		if data.Selected != "" {
			s.selectPage(r, sess, list, &data)
		}
		s.render(w, r, http.StatusOK, dashboardTemplate, data)
	}
}

func (s *Server) selectPage(r *http.Request, sess session.Session, list []pages.Resource, data *DashboardPageData) {
	resource, ok := pages.Find(list, data.Selected)
	if !ok {
		s.controller.Fail(errors.NewValidationError("page", "unknown page "+data.Selected, errors.ErrNotFound))
	} else if window, err := insights.ParseWindow(data.Since, data.Until, data.Preset); err != nil {
		s.controller.Fail(err)
	} else {
		s.controller.Select(r.Context(), sess, resource, window)
	}

	// Render what is published, a newer fetch may already have replaced this one
	state := s.controller.State()
	data.State = string(state.Kind())
	if msg, _, failed := state.Err(); failed {
		data.Error = msg
	}
	if set, ready := state.Metrics(); ready {
		data.MetricsPage = set.PageID
		if shown, ok := pages.Find(list, set.PageID); ok {
			data.MetricsPage = shown.Name
		}
		data.MetricsWindow = set.Window.String()
		data.Superseded = set.PageID != data.Selected
		for _, m := range insights.Metrics {
			data.Metrics = append(data.Metrics, MetricRow{Metric: m, Value: set.Get(m)})
		}
	}
}
