package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/jrsteele09/go-page-insights/insights"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const contentTypeHTML = "text/html; charset=utf-8"

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

var countPrinter = message.NewPrinter(language.English)

var metricLabels = map[insights.Metric]string{
	insights.Reactions:   "Reactions",
	insights.Likes:       "Likes",
	insights.Followers:   "Followers",
	insights.Engagement:  "Engaged users",
	insights.Impressions: "Impressions",
}

// formatCount renders a metric value with thousands separators, or n/a
// when the upstream had no data.
func formatCount(v insights.Value) string {
	if !v.Available {
		return "n/a"
	}
	return countPrinter.Sprintf("%d", v.Count)
}

func metricLabel(m insights.Metric) string {
	if label, ok := metricLabels[m]; ok {
		return label
	}
	return string(m)
}

var templateFuncs = template.FuncMap{
	"formatCount": formatCount,
	"metricLabel": metricLabel,
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Funcs(templateFuncs).Parse(string(content))
}

func (s *Server) initTemplates() error {
	s.templates = map[string]*template.Template{}
	for _, name := range []string{loginTemplate, dashboardTemplate} {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		s.templates[name] = tmpl
	}
	return nil
}

// render executes into a buffer first so a failing template never leaves a
// half written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates[name].Execute(&buf, data); err != nil {
		log.Ctx(r.Context()).Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
