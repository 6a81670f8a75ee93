package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/internal/errors"
	"github.com/jrsteele09/go-page-insights/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// OAuthCallbackHandler completes sign in: it checks the state, exchanges the
// code, reads the profile and persists the resulting session.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.Ctx(r.Context())
		query := r.URL.Query()

		if errorParam := query.Get("error"); errorParam != "" {
			msg := query.Get("error_description")
			if msg == "" {
				msg = errorParam
			}
			logger.Warn().Str("error", errorParam).Msg("authorization declined")
			redirectWithError(w, r, RouteLogin, "login failed: "+msg)
			return
		}

		var stored string
		if cookie, err := r.Cookie(stateCookieName); err == nil {
			stored = cookie.Value
		}
		s.clearStateCookie(w, r)

		if err := s.verifyState(query.Get("state"), stored); err != nil {
			logger.Warn().Err(err).Msg("rejected oauth callback")
			redirectWithError(w, r, RouteLogin, "login failed: sign in expired, please try again")
			return
		}

		code := query.Get("code")
		if code == "" {
			redirectWithError(w, r, RouteLogin, "login failed: missing authorization code")
			return
		}

		token, err := s.oauth.Exchange(r.Context(), code)
		if err != nil {
			authErr := errors.NewAuthError("exchange code", err)
			logger.Err(authErr).Msg("token exchange failed")
			redirectWithError(w, r, RouteLogin, "login failed: "+authErr.Message)
			return
		}

		sess, err := s.sessionFromToken(r, token)
		if err != nil {
			logger.Err(err).Msg("failed to build session")
			redirectWithError(w, r, RouteLogin, "login failed: "+err.Error())
			return
		}

		if err := s.store.Persist(r.Context(), sess); err != nil {
			logger.Err(err).Msg("failed to persist session")
			redirectWithError(w, r, RouteLogin, "login failed: could not save session")
			return
		}
		s.controller.Reset()

		logger.Info().Str("subject_id", sess.SubjectID).Msg("signed in")
		redirectSuccess(w, r, RouteDashboard)
	}
}

func (s *Server) sessionFromToken(r *http.Request, token *oauth2.Token) (session.Session, error) {
	if token.AccessToken == "" {
		return session.Session{}, errors.ErrMissingToken
	}

	var profile graph.Profile
	if err := s.graph.Get(r.Context(), token.AccessToken, graph.Me(), &profile); err != nil {
		return session.Session{}, errors.NewAuthError("read profile", err)
	}

	sess := session.Session{
		SubjectID:   profile.ID,
		DisplayName: profile.Name,
		AvatarURL:   profile.Picture.Data.URL,
		AccessToken: token.AccessToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC().Truncate(time.Second)
		sess.Expiry = &expiry
	}
	return sess, sess.Validate()
}
