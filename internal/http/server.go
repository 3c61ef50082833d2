package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"bankrecon/internal/config"
	"bankrecon/internal/core"
	"bankrecon/internal/log"
	"bankrecon/internal/metrics"
	"bankrecon/internal/middleware/ratelimit"
	"bankrecon/internal/middleware/security"
	"bankrecon/internal/middleware/trace"
	"bankrecon/internal/services"
)

// StatementExtractor turns an uploaded statement into rows.
type StatementExtractor interface {
	Extract(ctx context.Context, data []byte, password string) (core.Statement, error)
}

// Deps are the services behind the handlers. Metrics, Ready, MetricsHandler
// and Landing are optional.
type Deps struct {
	Extractor  StatementExtractor
	Reconciler *services.Reconciler
	Ledger     *services.LedgerService
	Categories *services.CategoryService
	Dashboard  *services.DashboardService
	Banks      config.Banks

	Metrics        *metrics.Metrics
	Ready          func(context.Context) error
	MetricsHandler http.Handler
	Landing        http.Handler
	Logger         *log.Logger
}

type Options struct {
	MaxUploadBytes     int64
	PageSize           int
	RateLimitPerMinute int
	TrustedProxies     []string
	DefaultBank        core.BankID
}

type Server struct {
	http.Server
	deps    Deps
	opts    Options
	started time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = services.DefaultPageSize
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if opts.DefaultBank == "" {
		if f, ok := deps.Banks.Default(); ok {
			opts.DefaultBank = core.BankID(f.Name)
		}
	}
	opts.DefaultBank = opts.DefaultBank.Normalize()

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		deps:     deps,
		opts:     opts,
		started:  time.Now(),
		detector: detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           []string{http.MethodPost, http.MethodDelete},
		}),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.tracer = trace.NewMiddleware(detector.ExtractClientIP, func(r *http.Request, status int, d time.Duration) {
		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		deps.Metrics.ObserveHTTP(r.Method, pattern, status, d)
	})

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, s.rateLimited)(h)
	h = detector.Middleware(deps.Metrics.ObserveSuspicious)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(deps.Logger.WithComponent(log.ComponentHTTP), trace.RequestID)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.deps.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.deps.MetricsHandler)
	}
	if s.deps.Landing != nil {
		mux.Handle("GET /{$}", s.deps.Landing)
	}

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, security.NoStore(h))
	}
	api("POST /extract", s.handleExtract)
	api("POST /check_status", s.handleCheckStatus)
	api("POST /prefill", s.handlePrefill)
	api("POST /sync", s.handleSync)
	api("GET /last_sync", s.handleLastSync)

	api("GET /categories", s.handleListCategories)
	api("POST /categories", s.handleAddCategory)
	api("DELETE /categories", s.handleDeleteCategory)

	api("GET /dashboard_data", s.handleDashboardData)
	api("POST /budget", s.handleSetBudget)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.deps.Metrics.ObserveRateLimited()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown stops the limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
