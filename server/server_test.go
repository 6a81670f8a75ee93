package server_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-page-insights/dashboard"
	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/insights"
	"github.com/jrsteele09/go-page-insights/internal/config"
	"github.com/jrsteele09/go-page-insights/pages"
	"github.com/jrsteele09/go-page-insights/server"
	"github.com/jrsteele09/go-page-insights/session"
	"github.com/jrsteele09/go-page-insights/session/storefake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const stateCookie = "insights_oauth_state"

var signedInSession = session.Session{SubjectID: "42", DisplayName: "Jane Doe", AccessToken: "user-token"}

// upstream fakes both the OAuth provider and the Graph API.
type upstream struct {
	srv          *httptest.Server
	tokenCalls   atomic.Int32
	failInsights atomic.Bool

	// secondPage lists page 654, whose feed blocks until slowFeed is closed
	secondPage  atomic.Bool
	slowFeed    chan struct{}
	slowWaiting atomic.Int32
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{slowFeed: make(chan struct{})}
	u.srv = httptest.NewServer(http.HandlerFunc(u.serveHTTP))
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/oauth/token":
		u.tokenCalls.Add(1)
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant","error_description":"This authorization code has expired"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"user-token","token_type":"bearer","expires_in":3600}`)
	case "/v13.0/me":
		fmt.Fprint(w, `{"id":"42","name":"Jane Doe","picture":{"data":{"url":"https://cdn.example.com/jane.png"}}}`)
	case "/v13.0/me/accounts":
		if u.secondPage.Load() {
			fmt.Fprint(w, `{"data":[{"id":"321","name":"Acme","category":"Brand","access_token":"page-token"},{"id":"654","name":"Beta","access_token":"beta-token"}]}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"321","name":"Acme","category":"Brand","access_token":"page-token"}]}`)
	case "/v13.0/654/feed":
		u.slowWaiting.Add(1)
		select {
		case <-u.slowFeed:
		case <-r.Context().Done():
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"b1","reactions":{"summary":{"total_count":7}}}]}`)
	case "/v13.0/654/insights":
		fmt.Fprint(w, `{"data":[]}`)
	case "/v13.0/654":
		fmt.Fprint(w, `{"id":"654","fan_count":5}`)
	case "/v13.0/321/feed":
		fmt.Fprint(w, `{"data":[{"id":"p1","reactions":{"summary":{"total_count":1500}},"likes":{"summary":{"total_count":3}}}]}`)
	case "/v13.0/321/insights":
		if u.failInsights.Load() {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"(#100) Invalid metric","type":"OAuthException","code":100}}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"name":"page_impressions","values":[{"value":45000}]},{"name":"page_engaged_users","values":[{"value":10}]}]}`)
	case "/v13.0/321":
		fmt.Fprint(w, `{"id":"321","fan_count":900,"followers_count":1200}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type serverFixture struct {
	upstream *upstream
	store    *storefake.FakeSessionStore
	registry *prometheus.Registry
	server   *server.Server
}

func newServerFixture(t *testing.T, store *storefake.FakeSessionStore) *serverFixture {
	t.Helper()
	t.Setenv("INSIGHTS_ENV", "TEST")
	t.Setenv("INSIGHTS_SESSION_SECRET", "test-secret")
	t.Setenv("INSIGHTS_ALLOWED_ORIGINS", "https://app.example.com")

	up := newUpstream(t)
	c, err := config.New("")
	require.NoError(t, err)
	registry := prometheus.NewRegistry()

	client, err := graph.NewClient(up.srv.URL, "v13.0", graph.WithMetrics(graph.NewMetrics(registry)))
	require.NoError(t, err)
	directory := pages.NewDirectory(client, 100, 5)
	aggregator := insights.NewAggregator(client, directory, 100, 5)
	controller := dashboard.NewController(directory, aggregator,
		dashboard.WithTimeout(5*time.Second),
		dashboard.WithMetrics(dashboard.NewMetrics(registry)),
	)

	s, err := server.New(c, server.Deps{
		Store:      store,
		Graph:      client,
		Controller: controller,
		Gatherer:   registry,
		OAuth: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8080/callback",
			Scopes:       c.GetOAuthScopes(),
			Endpoint: oauth2.Endpoint{
				AuthURL:   up.srv.URL + "/dialog/oauth",
				TokenURL:  up.srv.URL + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	})
	require.NoError(t, err)

	return &serverFixture{upstream: up, store: store, registry: registry, server: s}
}

func (f *serverFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) get(path string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// startLogin runs /auth/login and returns the issued state.
func (f *serverFixture) startLogin(t *testing.T) string {
	t.Helper()
	rec := f.get("/auth/login")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/dialog/oauth", loc.Path)
	require.Equal(t, "client-id", loc.Query().Get("client_id"))
	require.Contains(t, loc.Query().Get("scope"), "read_insights")

	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func (f *serverFixture) callback(state, cookie, code string) *httptest.ResponseRecorder {
	q := url.Values{"state": {state}, "code": {code}}
	req := httptest.NewRequest(http.MethodGet, "/callback?"+q.Encode(), nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookie})
	}
	return f.do(req)
}

func requireLoginRedirect(t *testing.T, rec *httptest.ResponseRecorder, contains string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/", loc.Path)
	require.Contains(t, loc.Query().Get("error"), contains)
}

func TestServer_New(t *testing.T) {
	c, err := config.New("")
	require.NoError(t, err)

	_, err = server.New(c, server.Deps{})
	require.Error(t, err)
}

func TestServer_LoginPage(t *testing.T) {
	t.Run("signed out shows login", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())

		rec := f.get("/?error=login+failed%3A+nope")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Continue with Facebook")
		require.Contains(t, rec.Body.String(), "login failed: nope")
		require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("persisted session skips login", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewSignedIn(signedInSession))

		rec := f.get("/")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})
}

func TestServer_OAuthCallback(t *testing.T) {
	t.Run("successful login persists the session", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())
		state := f.startLogin(t)

		rec := f.callback(state, state, "good-code")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/dashboard", rec.Header().Get("Location"))

		sess, ok := f.store.Restore(t.Context())
		require.True(t, ok)
		require.Equal(t, "42", sess.SubjectID)
		require.Equal(t, "Jane Doe", sess.DisplayName)
		require.Equal(t, "https://cdn.example.com/jane.png", sess.AvatarURL)
		require.Equal(t, "user-token", sess.AccessToken)
		require.NotNil(t, sess.Expiry)
		require.True(t, sess.Expiry.After(time.Now()))
	})

	t.Run("state must match the cookie", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())
		state := f.startLogin(t)
		other := f.startLogin(t)

		requireLoginRedirect(t, f.callback(state, other, "good-code"), "login failed")
		requireLoginRedirect(t, f.callback(state, "", "good-code"), "login failed")
		require.Zero(t, f.upstream.tokenCalls.Load())

		_, ok := f.store.Restore(t.Context())
		require.False(t, ok)
	})

	t.Run("forged state is rejected", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}).SignedString([]byte("someone-else"))
		require.NoError(t, err)

		requireLoginRedirect(t, f.callback(forged, forged, "good-code"), "login failed")
		require.Zero(t, f.upstream.tokenCalls.Load())
	})

	t.Run("expired state is rejected", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer:    "Page Insights",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		requireLoginRedirect(t, f.callback(expired, expired, "good-code"), "login failed")
		require.Zero(t, f.upstream.tokenCalls.Load())
	})

	t.Run("declined authorization", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())

		rec := f.get("/callback?error=access_denied&error_description=Permissions+error")
		requireLoginRedirect(t, rec, "login failed: Permissions error")
	})

	t.Run("failed exchange leaves no session", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())
		state := f.startLogin(t)

		requireLoginRedirect(t, f.callback(state, state, "stale-code"), "login failed")
		require.Equal(t, int32(1), f.upstream.tokenCalls.Load())

		_, ok := f.store.Restore(t.Context())
		require.False(t, ok)
	})
}

func TestServer_Logout(t *testing.T) {
	f := newServerFixture(t, storefake.NewSignedIn(signedInSession))

	rec := f.get("/auth/logout")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	_, ok := f.store.Restore(t.Context())
	require.False(t, ok)

	rec = f.get("/dashboard")
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestServer_Dashboard(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())

		rec := f.get("/dashboard")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("lists pages", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewSignedIn(signedInSession))

		rec := f.get("/dashboard")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		require.Contains(t, body, "Jane Doe")
		require.Contains(t, body, `<option value="321">Acme</option>`)
		require.NotContains(t, body, `class="metrics"`)
	})

	t.Run("renders formatted metrics", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewSignedIn(signedInSession))

		rec := f.get("/dashboard?page=321&preset=last_7d")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		require.Contains(t, body, `data-metric="reactions"`)
		require.Contains(t, body, "1,500")
		require.Contains(t, body, "45,000")
		require.Contains(t, body, "1,200")
		require.Contains(t, body, `<h2 class="metrics-title">Acme <small>last_7d</small></h2>`)
		require.NotContains(t, body, `class="notice"`)
	})

	t.Run("superseded request names the page it shows", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewSignedIn(signedInSession))
		f.upstream.secondPage.Store(true)

		slow := make(chan *httptest.ResponseRecorder, 1)
		go func() { slow <- f.get("/dashboard?page=654") }()
		require.Eventually(t, func() bool { return f.upstream.slowWaiting.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

		fresh := f.get("/dashboard?page=321")
		require.Contains(t, fresh.Body.String(), "1,500")
		require.NotContains(t, fresh.Body.String(), `class="notice"`)

		close(f.upstream.slowFeed)
		body := (<-slow).Body.String()
		require.Contains(t, body, `<option value="654" selected>Beta</option>`)
		require.Contains(t, body, `class="metrics-title">Acme`)
		require.Contains(t, body, `class="notice"`)
		require.Contains(t, body, "which was for Acme")
		require.Contains(t, body, "1,500")
	})

	t.Run("invalid window", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewSignedIn(signedInSession))

		rec := f.get("/dashboard?page=321&since=2024-03-10")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid request")
	})

	t.Run("unknown page", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewSignedIn(signedInSession))

		rec := f.get("/dashboard?page=999")
		require.Contains(t, rec.Body.String(), "unknown page 999")
	})
}

type stateBody struct {
	State   string `json:"state"`
	Metrics struct {
		PageID string            `json:"pageId"`
		Values map[string]*int64 `json:"values"`
	} `json:"metrics"`
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateBody {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body stateBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestServer_API(t *testing.T) {
	t.Run("no session is unauthorized", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())

		rec := f.get("/api/pages")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "auth", decodeState(t, rec).Error.Kind)
	})

	t.Run("pages omit tokens", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewSignedIn(signedInSession))

		rec := f.get("/api/pages")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"pages":[{"id":"321","name":"Acme","category":"Brand"}]}`, rec.Body.String())
	})

	t.Run("metrics ready", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewSignedIn(signedInSession))

		rec := f.get("/api/pages/321/metrics?since=2024-03-01&until=2024-03-07")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeState(t, rec)
		require.Equal(t, "ready", body.State)
		require.Equal(t, "321", body.Metrics.PageID)
		require.Equal(t, int64(1500), *body.Metrics.Values["reactions"])
		require.Equal(t, int64(3), *body.Metrics.Values["likes"])
		require.Equal(t, int64(1200), *body.Metrics.Values["followers"])
		require.Equal(t, int64(10), *body.Metrics.Values["engagement"])
		require.Equal(t, int64(45000), *body.Metrics.Values["impressions"])
	})

	t.Run("status follows the failure kind", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewSignedIn(signedInSession))

		rec := f.get("/api/pages/999/metrics")
		require.Equal(t, http.StatusNotFound, rec.Code)

		rec = f.get("/api/pages/321/metrics?since=2024-03-07&until=2024-03-01")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "validation", decodeState(t, rec).Error.Kind)

		f.upstream.failInsights.Store(true)
		rec = f.get("/api/pages/321/metrics")
		require.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeState(t, rec)
		require.Equal(t, "query", body.Error.Kind)
		require.Contains(t, body.Error.Message, "could not load page metrics")
		require.Contains(t, body.Error.Message, "Invalid metric")
	})

	t.Run("cors preflight", func(t *testing.T) {
		f := newServerFixture(t, storefake.NewFakeSessionStore())

		req := httptest.NewRequest(http.MethodOptions, "/api/pages", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := f.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

		req = httptest.NewRequest(http.MethodOptions, "/api/pages", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = f.do(req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestServer_Metrics(t *testing.T) {
	f := newServerFixture(t, storefake.NewSignedIn(signedInSession))
	require.Equal(t, http.StatusOK, f.get("/api/pages/321/metrics").Code)

	rec := f.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `insights_graph_requests_total{endpoint="accounts",outcome="ok"} 1`), body)
	require.Contains(t, body, `insights_fetches_total{outcome="ready"} 1`)
}
