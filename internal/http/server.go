package http

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"salesreport/internal/cache"
	applog "salesreport/internal/log"
	"salesreport/internal/middleware/ratelimit"
	"salesreport/internal/middleware/security"
	"salesreport/internal/middleware/trace"
	"salesreport/internal/report"
	"salesreport/internal/storage"
	appweb "salesreport/web"
)

// Options configures the report server.
type Options struct {
	Addr string
	// TopN is used when a request has no top parameter.
	TopN  int
	Chart report.ChartOptions
	// CacheTTL bounds how long a rendered chart is served before being
	// redrawn from the store.
	CacheTTL       time.Duration
	CacheSize      int
	RateLimit      ratelimit.Config
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Minute
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 64
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Server serves the report page, its JSON form and the chart images, all
// computed from the stored sales on demand.
type Server struct {
	http.Server
	totals    storage.TotalsReader
	templates *template.Template
	opts      Options
	logger    *slog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	headers  *security.HeadersMiddleware

	chartCache       *cache.LRUCache[[]byte]
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(totals storage.TotalsReader, opts Options) (*Server, error) {
	opts = opts.withDefaults()

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.With(applog.FieldComponent, applog.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		totals:           totals,
		templates:        t,
		opts:             opts,
		logger:           logger,
		limiter:          ratelimit.NewLimiter(opts.RateLimit),
		detector:         detector,
		tracer:           trace.NewMiddleware(logger, detector.ExtractClientIP),
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		chartCache:       cache.NewLRUCache[[]byte](opts.CacheSize, opts.CacheTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /{$}", s.protect(http.HandlerFunc(s.handleIndex)))
	mux.Handle("GET /api/report", s.protect(http.HandlerFunc(s.handleReport)))
	mux.Handle("GET /charts/{file}", s.protect(security.CacheControl(int(opts.CacheTTL/time.Second))(http.HandlerFunc(s.handleChart))))

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.tracer.Middleware(detector.Middleware(logger)(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       time.Minute,
	}

	go s.startCacheCleanup()
	return s, nil
}

// protect applies the security headers and the per-client rate limit.
func (s *Server) protect(next http.Handler) http.Handler {
	return s.headers.Middleware(s.limiter.Middleware(s.detector.ExtractClientIP)(next))
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(s.opts.CacheTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.chartCache.CleanExpired(); n > 0 {
				s.logger.Debug("Chart cache cleanup completed", "entries_removed", n)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// InvalidateCharts drops every cached chart, e.g. after the store was reloaded.
func (s *Server) InvalidateCharts() {
	s.chartCache.Purge()
}

// Shutdown stops background cleanup and gracefully shuts the listener down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
