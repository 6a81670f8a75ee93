package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	loginTemplate     = "login.html"
	dashboardTemplate = "dashboard.html"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName string
	Error   string
}

// LoginPageHandler shows the sign in screen, or skips it when a usable
// session is already persisted.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.store.Restore(r.Context()); ok {
			redirectSuccess(w, r, RouteDashboard)
			return
		}
		s.render(w, r, http.StatusOK, loginTemplate, LoginPageData{
			AppName: s.config.GetAppName(),
			Error:   r.URL.Query().Get("error"),
		})
	}
}

// LoginRedirectHandler starts the authorization code flow.
func (s *Server) LoginRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := s.newState(time.Now())
		if err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Failed to issue oauth state")
			redirectWithError(w, r, RouteLogin, "could not start sign in")
			return
		}
		s.setStateCookie(w, r, state)
		http.Redirect(w, r, s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
	}
}

// LogoutHandler clears the persisted session and the dashboard state.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Clear(r.Context()); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("Failed to clear session")
		}
		s.controller.Reset()
		redirectSuccess(w, r, RouteLogin)
	}
}
