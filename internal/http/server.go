// Package http serves the expense pages, the analytics page with its charts
// and the operational endpoints.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kakeibo/internal/chart"
	"kakeibo/internal/log"
	"kakeibo/internal/metrics"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/services"
	appweb "kakeibo/web"
)

// Check reports whether a dependency is usable. It backs /readyz.
type Check func(ctx context.Context) error

// Deps are the collaborators of the server. Metrics, Gatherer and Checks are
// optional.
type Deps struct {
	Expenses  *services.ExpenseService
	Analytics *services.AnalyticsService
	Renderer  *chart.Renderer
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Checks    map[string]Check
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server
	templates   *template.Template
	expenses    *services.ExpenseService
	analytics   *services.AnalyticsService
	renderer    *chart.Renderer
	logger      *log.Logger
	events      *log.StructuredLogger
	metrics     *metrics.Metrics
	checks      map[string]Check
	rateLimiter *ratelimit.Limiter
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	renderer := deps.Renderer
	if renderer == nil {
		renderer = chart.NewRenderer(chart.DefaultTicks())
	}

	s := &Server{
		templates:   t,
		expenses:    deps.Expenses,
		analytics:   deps.Analytics,
		renderer:    renderer,
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
		metrics:     deps.Metrics,
		checks:      deps.Checks,
		rateLimiter: ratelimit.NewLimiter(deps.RateLimit),
		started:     time.Now(),
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServerFS(static))))

	mux.HandleFunc("GET /{$}", s.handleList)
	mux.HandleFunc("GET /expenses/new", s.handleNew)
	mux.HandleFunc("POST /expenses/new", s.handleCreate)
	mux.HandleFunc("GET /expenses/{id}/edit", s.handleEdit)
	mux.HandleFunc("POST /expenses/{id}/edit", s.handleUpdate)
	mux.HandleFunc("GET /expenses/{id}/delete", s.handleConfirmDelete)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDelete)

	mux.HandleFunc("GET /analytics", s.handleAnalytics)
	mux.HandleFunc("GET /analytics/charts.json", s.handleChartsJSON)
	mux.HandleFunc("GET /analytics/charts/{file}", s.handleChartPNG)
	mux.HandleFunc("GET /analytics/stats.json", s.handleStatsJSON)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	detector := security.NewDetector(logger.Logger)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(detector.ClientIP, logger, deps.Metrics)

	// The mux must stay the innermost handler receiving the traced request,
	// so the tracer can read the matched pattern back.
	var h http.Handler = mux
	h = s.rateLimiter.Middleware(detector.ClientIP, s.handleRateLimited, http.MethodPost)(h)
	h = detector.Middleware(h)
	h = headers.Middleware(h)
	h = tracer.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops the background goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded", "method", r.Method, "path", r.URL.Path)
	http.Error(w, "リクエストが多すぎます。しばらくしてから再度お試しください。", http.StatusTooManyRequests)
}
