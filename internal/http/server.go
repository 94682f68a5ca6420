package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/ledger"
	applog "saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
	"saldo/internal/middleware/security"
	"saldo/internal/middleware/trace"
	"saldo/internal/recurrence"
	"saldo/internal/store"
)

// Pinger reports whether the persistence backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures NewServer. Store is required; everything else has a default.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Store *store.Store
	// Aggregator backs every view. Its expander should use client-style ids.
	Aggregator *ledger.Aggregator
	// ServerExpander backs GET /api/accounts?expand=true.
	ServerExpander *recurrence.Expander
	HorizonMonths  int

	Readiness Pinger
	RateLimit ratelimit.Config
	CacheSize int
	CacheTTL  time.Duration
	Logger    *slog.Logger
	// Today overrides the clock for views relative to the current date.
	Today func() core.Date
}

// Server is the saldo API server.
type Server struct {
	http.Server

	store          *store.Store
	agg            *ledger.Aggregator
	serverExpander *recurrence.Expander
	horizonMonths  int
	readiness      Pinger
	today          func() core.Date
	started        time.Time

	views        *cache.LRUCache[[]byte]
	cacheManager *cache.Manager
	rateLimiter  *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	logger       *applog.Logger
	events       *applog.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Aggregator == nil {
		opts.Aggregator = ledger.NewViewAggregator(opts.Logger)
	}
	if opts.ServerExpander == nil {
		opts.ServerExpander = recurrence.NewExpander(
			recurrence.WithIDStyle(recurrence.ServerIDs),
			recurrence.WithCap(recurrence.DefaultCap),
			recurrence.WithLogger(opts.Logger))
	}
	if opts.HorizonMonths <= 0 {
		opts.HorizonMonths = 12
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Today == nil {
		opts.Today = func() core.Date { return recurrence.Today(time.Local) }
	}

	logger := &applog.Logger{Logger: opts.Logger}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		store:          opts.Store,
		agg:            opts.Aggregator,
		serverExpander: opts.ServerExpander,
		horizonMonths:  opts.HorizonMonths,
		readiness:      opts.Readiness,
		today:          opts.Today,
		started:        time.Now(),
		views:          cache.NewLRUCache[[]byte](opts.CacheSize, opts.CacheTTL),
		cacheManager:   cache.NewManager(opts.Logger.With("component", applog.ComponentCache)),
		rateLimiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:       security.NewDetector(opts.Logger.With("component", applog.ComponentSecurity)),
		logger:         logger,
		events:         applog.NewStructuredLogger(logger),
	}
	s.tracer = trace.NewMiddleware(s.detector.ClientIP, logger)
	s.cacheManager.Register(s.views)
	s.cacheManager.StartCleanup(opts.CacheTTL)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})

	s.Server = http.Server{
		Addr:         opts.Addr,
		Handler:      s.tracer.Middleware(headers.Middleware(s.detector.Middleware(limit(mux)))),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// Persistence gateway contract.
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleReplaceAccounts)
	mux.HandleFunc("POST /api/transactions", s.handleReplaceTransactions)
	mux.HandleFunc("GET /api/active-account", s.handleGetActiveAccount)
	mux.HandleFunc("POST /api/active-account", s.handleSetActiveAccount)
	mux.HandleFunc("GET /api/entry-histories/{accountId}", s.handleGetHistory)
	mux.HandleFunc("POST /api/entry-histories/{accountId}", s.handleSetHistory)
	mux.HandleFunc("GET /api/entry-histories/{accountId}/suggest", s.handleSuggest)

	// Store operations.
	mux.HandleFunc("POST /api/accounts/new", s.handleCreateAccount)
	mux.HandleFunc("PATCH /api/accounts/{id}", s.handleRenameAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("POST /api/accounts/{id}/templates", s.handleAddTemplate)
	mux.HandleFunc("PUT /api/accounts/{id}/templates/{tid}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /api/accounts/{id}/templates/{tid}", s.handleDeleteTemplate)
	mux.HandleFunc("POST /api/accounts/{id}/templates/{tid}/occurrences/{date}/delete", s.handleDeleteOccurrence)
	mux.HandleFunc("POST /api/accounts/{id}/templates/{tid}/occurrences/{date}/exclude", s.handleExcludeOccurrence)
	mux.HandleFunc("POST /api/accounts/{id}/clear-month", s.handleClearMonth)

	// Views.
	mux.HandleFunc("GET /api/accounts/{id}/instances", s.cachedView("instances", s.viewInstances))
	mux.HandleFunc("GET /api/accounts/{id}/calendar", s.cachedView("calendar", s.viewCalendar))
	mux.HandleFunc("GET /api/accounts/{id}/balance", s.cachedView("balance", s.viewBalance))
	mux.HandleFunc("GET /api/accounts/{id}/categories", s.cachedView("categories", s.viewCategories))
	mux.HandleFunc("GET /api/accounts/{id}/series", s.cachedView("series", s.viewSeries))
	mux.HandleFunc("GET /api/accounts/{id}/series.png", s.handleSeriesChart)

	// CSV.
	mux.HandleFunc("POST /api/accounts/{id}/import", s.handleImport)
	mux.HandleFunc("GET /api/accounts/{id}/export", s.handleExport)
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
