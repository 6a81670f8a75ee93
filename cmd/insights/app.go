package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-page-insights/dashboard"
	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/insights"
	"github.com/jrsteele09/go-page-insights/internal/config"
	"github.com/jrsteele09/go-page-insights/pages"
	"github.com/jrsteele09/go-page-insights/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// app holds everything built from config, shared by every command.
type app struct {
	config     config.Config
	registry   *prometheus.Registry
	store      session.Store
	graph      *graph.Client
	directory  *pages.Directory
	aggregator *insights.Aggregator
	controller *dashboard.Controller
	close      func() error
}

func newApp(configPath string) (*app, error) {
	c, err := config.New(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(c)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := graph.NewClient(c.GetGraphBaseURL(), c.GetGraphVersion(),
		graph.WithTimeout(c.GetHTTPTimeout()),
		graph.WithMetrics(graph.NewMetrics(registry)),
	)
	if err != nil {
		return nil, fmt.Errorf("[newApp] graph client: %w", err)
	}

	store, closeStore, err := newStore(c)
	if err != nil {
		return nil, err
	}

	directory := pages.NewDirectory(client, c.GetGraphPageLimit(), c.GetGraphMaxPages())
	aggregator := insights.NewAggregator(client, directory, c.GetGraphPageLimit(), c.GetGraphMaxPages())
	controller := dashboard.NewController(directory, aggregator,
		dashboard.WithTimeout(c.GetFetchTimeout()),
		dashboard.WithMetrics(dashboard.NewMetrics(registry)),
	)

	return &app{
		config:     c,
		registry:   registry,
		store:      store,
		graph:      client,
		directory:  directory,
		aggregator: aggregator,
		controller: controller,
		close:      closeStore,
	}, nil
}

func newStore(c config.Config) (session.Store, func() error, error) {
	codec := session.NewCodec(c.GetSessionSecret())
	if !codec.Sealed() {
		log.Warn().Msg("INSIGHTS_SESSION_SECRET is not set, the session is stored unencrypted")
	}

	switch backend := strings.ToLower(c.GetSessionBackend()); backend {
	case "file":
		return session.NewFileStore(c.GetSessionFile(), codec), func() error { return nil }, nil
	case "redis":
		client := session.NewRedisClient(c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisDB())
		return session.NewRedisStore(client, c.GetSessionKey(), codec), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("[newStore] unknown session backend %q", backend)
	}
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
