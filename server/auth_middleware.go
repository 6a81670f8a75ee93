package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-page-insights/dashboard"
	"github.com/jrsteele09/go-page-insights/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the restored session
const ContextKeySession ContextKey = "session"

// RequireSession gates HTML routes. Without a usable session the browser is
// sent back to the login screen.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := s.store.Restore(r.Context())
			if !ok {
				redirectSuccess(w, r, RouteLogin)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeySession, sess)))
		}
	}
}

// RequireSessionAPI is the JSON flavour of RequireSession.
func (s *Server) RequireSessionAPI() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := s.store.Restore(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, dashboard.ErrorAuth, "not signed in")
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeySession, sess)))
		}
	}
}

func sessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(ContextKeySession).(session.Session)
	return sess, ok
}
