// Package http serves the finance API: JSON over chi, one store per
// authenticated user.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"fintrack/internal/auth"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/store"
)

const readinessTimeout = 2 * time.Second

// Deps are the collaborators a Server needs. Cache may be nil to disable
// analytics caching.
type Deps struct {
	Backend      backend.Backend
	Registry     *store.Registry
	Auth         *auth.Service
	Cache        cache.Store
	Logger       *log.Logger
	RateLimitRPM int
	Now          func() time.Time
}

type Server struct {
	http.Server
	backend  backend.Backend
	registry *store.Registry
	auth     *auth.Service
	cache    cache.Store
	logger   *log.Logger
	now      func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		backend:  deps.Backend,
		registry: deps.Registry,
		auth:     deps.Auth,
		cache:    deps.Cache,
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
		now:      deps.Now,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.RequestIDFrom))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited))
		r.Use(middleware.Compress(5))

		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Use(s.invalidateAnalytics)

			r.Get("/auth/session", s.handleSession)

			mountCollection(r, s, "/accounts", accountRoutes)
			mountCollection(r, s, "/transactions", transactionRoutes)
			mountCollection(r, s, "/categories", categoryRoutes)
			mountCollection(r, s, "/purchases", purchaseRoutes)
			mountCollection(r, s, "/purchase-categories", purchaseCategoryRoutes, func(r chi.Router) {
				r.Post("/sync", s.handleSyncPurchaseCategories)
			})
			mountCollection(r, s, "/lend-borrow", lendBorrowRoutes, func(r chi.Router) {
				r.Post("/refresh-status", s.handleRefreshLendBorrow)
				r.Get("/{id}/returns", s.handleListReturns)
				r.Post("/{id}/returns", s.handleRecordReturn)
				r.Post("/{id}/settle", s.handleSettleLendBorrow)
			})
			mountCollection(r, s, "/donation-savings", donationSavingRoutes)
			mountCollection(r, s, "/savings-goals", savingsGoalRoutes)

			r.Post("/transfers", s.handleTransfer)
			r.Delete("/transfers/{transferID}", s.handleDeleteTransfer)
			r.Get("/dps-transfers", s.handleListDPSTransfers)
			r.Post("/dps-transfers", s.handleDPSTransfer)

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/dashboard", s.handleDashboard)
				r.Get("/purchases", s.handlePurchaseAnalytics)
				r.Get("/purchases/by-currency", s.handlePurchasesByCurrency)
				r.Get("/lend-borrow", s.handleLendBorrowAnalytics)
				r.Get("/donation-savings", s.handleDonationSavingAnalytics)
			})

			r.Get("/export/transactions.xlsx", s.handleExportTransactions)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}

// userStore returns the caller's store. Only valid behind auth.Middleware.
func (s *Server) userStore(r *http.Request) (*store.Store, uuid.UUID, error) {
	uid, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		return nil, uuid.Nil, err
	}
	return s.registry.For(uid), uid, nil
}

type healthResponse struct {
	Status             string `json:"status"`
	TotalRequests      int64  `json:"total_requests"`
	AvgResponseTimeUs  int64  `json:"avg_response_time_us"`
	RateLimitHits      int64  `json:"rate_limit_hits"`
	ActiveClients      int64  `json:"active_clients"`
	SuspiciousRequests int64  `json:"suspicious_requests"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:             "ok",
		TotalRequests:      tm.TotalRequests,
		AvgResponseTimeUs:  tm.AverageResponseTime,
		RateLimitHits:      rl.TotalHits,
		ActiveClients:      rl.ClientCount,
		SuspiciousRequests: s.detector.GetMetrics().SuspiciousRequests,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
