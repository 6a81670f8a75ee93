package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-page-insights/dashboard"
	"github.com/jrsteele09/go-page-insights/insights"
	"github.com/jrsteele09/go-page-insights/internal/errors"
	"github.com/jrsteele09/go-page-insights/pages"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json"

type pagesResponse struct {
	Pages []pages.Resource `json:"pages"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    dashboard.ErrorKind `json:"kind"`
	Message string              `json:"message"`
}

// PagesAPIHandler returns the signed-in user's pages.
func (s *Server) PagesAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sessionFromContext(r.Context())
		list, err := s.controller.Pages(r.Context(), sess)
		if err != nil {
			writeState(w, dashboard.Failed(0, err))
			return
		}
		writeJSON(w, http.StatusOK, pagesResponse{Pages: list})
	}
}

// PageMetricsAPIHandler fetches one page's metrics. The response is this
// request's own outcome, even when a newer fetch has since been published.
func (s *Server) PageMetricsAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sessionFromContext(r.Context())
		id := r.PathValue("id")

		resource, ok, err := s.controller.Page(r.Context(), sess, id)
		if err != nil {
			writeState(w, dashboard.Failed(0, err))
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, dashboard.ErrorValidation, "unknown page "+id)
			return
		}

		query := r.URL.Query()
		window, err := insights.ParseWindow(query.Get("since"), query.Get("until"), query.Get("preset"))
		if err != nil {
			writeState(w, s.controller.Fail(err))
			return
		}

		writeState(w, s.controller.Select(r.Context(), sess, resource, window))
	}
}

// MetricsHandler exposes the prometheus registry.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}

func writeState(w http.ResponseWriter, state dashboard.LoadState) {
	writeJSON(w, statusOf(state), state)
}

func statusOf(state dashboard.LoadState) int {
	_, kind, failed := state.Err()
	if !failed {
		return http.StatusOK
	}
	switch kind {
	case dashboard.ErrorValidation:
		return http.StatusBadRequest
	case dashboard.ErrorAuth, dashboard.ErrorToken:
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}

func writeError(w http.ResponseWriter, status int, kind dashboard.ErrorKind, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(errors.Wrapf(err, "encode response")).Msg("Failed to write response")
	}
}
