package api

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jfarrand/cropcast/internal/agro"
	"github.com/jfarrand/cropcast/internal/balance"
	"github.com/jfarrand/cropcast/internal/narrative"
	"github.com/jfarrand/cropcast/internal/store"
)

//go:embed templates/*
var templateFS embed.FS

type Server struct {
	store      *store.Store
	profiles   *agro.ProfileRegistry
	port       string
	loc        *time.Location
	tmpl       *template.Template
	thresholds balance.Thresholds
	drafter    *narrative.Drafter
}

func NewServer(store *store.Store, profiles *agro.ProfileRegistry, port string, loc *time.Location) *Server {
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
	return &Server{
		store:      store,
		profiles:   profiles,
		port:       port,
		loc:        loc,
		tmpl:       tmpl,
		thresholds: balance.DefaultThresholds,
	}
}

// SetDrafter enables the optional AI-drafted report introduction.
func (s *Server) SetDrafter(d *narrative.Drafter) {
	s.drafter = d
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/locations", s.handleLocations)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/api/preferences", s.handlePreferences)
	mux.HandleFunc("/api/ingest-runs", s.handleIngestRuns)
	mux.HandleFunc("/api/narrative", s.handleNarrative)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
