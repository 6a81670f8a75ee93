package server

import (
	"crypto/rand"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-page-insights/dashboard"
	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/internal/config"
	"github.com/jrsteele09/go-page-insights/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// Deps are the collaborators the server is wired with.
type Deps struct {
	Store      session.Store
	Graph      *graph.Client
	Controller *dashboard.Controller

	// OAuth overrides the provider configuration built from config
	OAuth *oauth2.Config

	// Gatherer backs /metrics; nil serves the default registry
	Gatherer prometheus.Gatherer
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	store      session.Store
	graph      *graph.Client
	controller *dashboard.Controller
	oauth      *oauth2.Config
	gatherer   prometheus.Gatherer
	stateKey   []byte
	templates  map[string]*template.Template
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Graph == nil || deps.Controller == nil {
		return nil, fmt.Errorf("[Server New] store, graph client and controller are required")
	}

	s := &Server{
		env:        cfg.GetEnv(),
		mux:        http.NewServeMux(),
		config:     cfg,
		store:      deps.Store,
		graph:      deps.Graph,
		controller: deps.Controller,
		oauth:      deps.OAuth,
		gatherer:   deps.Gatherer,
	}
	if s.oauth == nil {
		s.oauth = &oauth2.Config{
			ClientID:     cfg.GetOAuthClientID(),
			ClientSecret: cfg.GetOAuthClientSecret(),
			Endpoint:     facebook.Endpoint,
			RedirectURL:  cfg.GetBaseURL() + RouteCallback,
			Scopes:       cfg.GetOAuthScopes(),
		}
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}

	if secret := cfg.GetSessionSecret(); secret != "" {
		s.stateKey = []byte(secret)
	} else {
		// States signed with a per-process key do not survive a restart, which only aborts logins in flight
		s.stateKey = make([]byte, 32)
		if _, err := rand.Read(s.stateKey); err != nil {
			return nil, fmt.Errorf("[Server New] state key: %w", err)
		}
	}

	if err := s.initTemplates(); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
