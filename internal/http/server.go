package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"custos/internal/core"
	"custos/internal/log"
	"custos/internal/services"
	"custos/internal/storage"
	appweb "custos/web"
)

// DashboardService is what the handlers need from the dashboard session.
type DashboardService interface {
	Source() string
	Current() services.Session
	Dashboard(selections core.Selections) (core.Dashboard, error)
	Options() ([]core.FilterState, error)
	Reload(ctx context.Context, force bool) (services.ReloadResult, error)
}

// LoadHistory lists past load attempts. It is optional.
type LoadHistory interface {
	RecentLoads(ctx context.Context, limit int) ([]storage.LoadRecord, error)
}

type Server struct {
	http.Server
	templates   *template.Template
	service     DashboardService
	history     LoadHistory
	rateLimiter *rateLimiter
	secMetrics  *securityMetrics
	logger      *log.Logger
	requests    *log.StructuredLogger
	startedAt   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
// history may be nil when load history is disabled.
func NewServer(addr string, service DashboardService, history LoadHistory, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		service:     service,
		history:     history,
		rateLimiter: newRateLimiter(postRequestsPerMinute, time.Minute),
		secMetrics:  &securityMetrics{},
		logger:      logger,
		requests:    log.NewStructuredLogger(logger),
		startedAt:   time.Now(),
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/dashboard", s.withSecurityHeaders(s.handleAPIDashboard))
	mux.HandleFunc("/api/filters", s.withSecurityHeaders(s.handleAPIFilters))
	mux.HandleFunc("/api/loads", s.withSecurityHeaders(s.handleAPILoads))
	mux.HandleFunc("/api/reload", s.withSecurityHeaders(s.handleAPIReload))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
