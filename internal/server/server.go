// Package server assembles the viewer HTTP server.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-wms/internal/api"
	"github.com/joeblew999/plat-wms/internal/api/viewer"
	"github.com/joeblew999/plat-wms/internal/db"
	"github.com/joeblew999/plat-wms/internal/humastar"
	"github.com/joeblew999/plat-wms/internal/service"
	"github.com/joeblew999/plat-wms/internal/templates"
	"github.com/joeblew999/plat-wms/internal/wms"
)

// Config holds the server configuration.
type Config struct {
	Host string
	Port string
	WMS  wms.Config
	// CatalogPath is a YAML catalog file; empty uses the built-in one.
	CatalogPath   string
	FrameInterval time.Duration
	SessionTTL    time.Duration
	// HistoryDB is the DuckDB file lookups are recorded in. Empty keeps
	// the history in memory; "off" disables it.
	HistoryDB string
	// RateLimit caps /api/ requests per client IP per minute. Zero
	// disables limiting.
	RateLimit int
	Logger    zerolog.Logger
}

// HistoryOff disables lookup history.
const HistoryOff = "off"

// Server is the viewer HTTP server.
type Server struct {
	config   Config
	log      zerolog.Logger
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	catalog  *service.Catalog
	frames   *service.TickerScheduler
	sessions *service.Sessions
	history  *db.Store
	renderer *templates.Renderer
	viewer   *viewer.Handler
}

// New creates a viewer server.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger.With().Str("component", "server").Logger()

	catalog, err := service.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	renderer, err := templates.Default()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	client := wms.New(cfg.WMS)
	s := &Server{
		config:   cfg,
		log:      log,
		mux:      http.NewServeMux(),
		catalog:  catalog,
		frames:   service.NewTickerScheduler(cfg.FrameInterval),
		renderer: renderer,
	}

	opts := service.Options{
		Catalog: catalog,
		WMS:     client,
		Frames:  s.frames,
		Logger:  cfg.Logger,
	}
	if cfg.HistoryDB != HistoryOff {
		store, err := db.Open(cfg.HistoryDB)
		if err != nil {
			log.Warn().Err(err).Msg("lookup history disabled")
		} else {
			s.history = store
			opts.Recorder = store
		}
	}
	s.sessions = service.NewSessions(cfg.SessionTTL, opts)

	links := humastar.NewLinks()
	humaConfig := huma.DefaultConfig("plat-wms API", api.Version)
	humaConfig.Info.Description = "Map viewer for the " + client.Workspace() + " GeoServer WMS layers."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())
	s.humaAPI = humago.New(s.mux, humaConfig)

	services := &api.Services{Catalog: catalog, WMS: client}
	if s.history != nil {
		services.History = s.history
	}
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(services))
	api.NewInfoHandler(client.BaseURL(), client.Workspace(), s.history != nil).RegisterRoutes(s.humaAPI)
	api.NewHistoryHandler(services.History).RegisterRoutes(s.humaAPI)

	s.viewer = viewer.NewHandler(viewer.Config{Workspace: client.Workspace()}, s.sessions, renderer, cfg.Logger)
	s.viewer.RegisterRoutes(s.humaAPI)

	links.Discover(s.humaAPI, viewer.Tag)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/viewer", s.viewer.Page)
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(templates.Static()))))
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/", s.handleRoot)

	s.handler = s.mux
	if s.config.RateLimit > 0 {
		limited := httprate.LimitByIP(s.config.RateLimit, time.Minute)(s.mux)
		s.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				limited.ServeHTTP(w, r)
				return
			}
			s.mux.ServeHTTP(w, r)
		})
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Catalog returns the loaded layer catalog.
func (s *Server) Catalog() *service.Catalog {
	return s.catalog
}

// Close ends all sessions and releases server resources.
func (s *Server) Close() error {
	s.sessions.Close()
	s.frames.Stop()
	if s.history != nil {
		return s.history.Close()
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/viewer", http.StatusFound)
}
