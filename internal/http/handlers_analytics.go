package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

type fetchFunc = func(*store.Store, context.Context) error

func analyticsPrefix(userID uuid.UUID) string {
	return "analytics:" + userID.String() + ":"
}

// serveAnalytics answers from the cache when it can; otherwise it refreshes
// the collections the report reads, computes it and caches the encoded body.
func (s *Server) serveAnalytics(w http.ResponseWriter, r *http.Request, key string, fetches []fetchFunc, compute func(*store.Store) any) {
	ctx := r.Context()
	st, uid, err := s.userStore(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.FromContext(ctx).WithComponent(log.ComponentCache)
	fullKey := analyticsPrefix(uid) + key

	if s.cache != nil {
		body, ok, err := s.cache.Get(ctx, fullKey)
		if err != nil {
			logger.WarnContext(ctx, "Analytics cache read failed", log.FieldError, err.Error())
		} else if ok {
			w.Header().Set("X-Cache", "HIT")
			writeRaw(w, http.StatusOK, body)
			return
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range fetches {
		g.Go(func() error { return f(st, gctx) })
	}
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}

	body, err := json.Marshal(compute(st))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, fullKey, body); err != nil {
			logger.WarnContext(ctx, "Analytics cache write failed", log.FieldError, err.Error())
		}
	}
	w.Header().Set("X-Cache", "MISS")
	writeRaw(w, http.StatusOK, body)
}

// invalidateAnalytics drops the caller's cached reports after any
// successful write.
func (s *Server) invalidateAnalytics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cache == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status >= http.StatusBadRequest {
			return
		}
		uid, err := auth.UserIDFromContext(r.Context())
		if err != nil {
			return
		}
		if err := s.cache.DeletePrefix(r.Context(), analyticsPrefix(uid)); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentCache).WarnContext(r.Context(),
				"Analytics cache invalidation failed", log.FieldUserID, uid.String(), log.FieldError, err.Error())
		}
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.serveAnalytics(w, r, "dashboard",
		[]fetchFunc{(*store.Store).FetchAccounts, (*store.Store).FetchTransactions},
		func(st *store.Store) any { return st.DashboardStats(s.now()) })
}

func (s *Server) handlePurchaseAnalytics(w http.ResponseWriter, r *http.Request) {
	currency, err := currencyParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.serveAnalytics(w, r, "purchases:"+currency,
		[]fetchFunc{(*store.Store).FetchPurchases},
		func(st *store.Store) any { return st.PurchaseAnalytics(currency, s.now()) })
}

func (s *Server) handlePurchasesByCurrency(w http.ResponseWriter, r *http.Request) {
	s.serveAnalytics(w, r, "purchases-by-currency",
		[]fetchFunc{(*store.Store).FetchPurchases},
		func(st *store.Store) any { return st.MultiCurrencyPurchaseAnalytics(s.now()) })
}

func (s *Server) handleLendBorrowAnalytics(w http.ResponseWriter, r *http.Request) {
	s.serveAnalytics(w, r, "lend-borrow",
		[]fetchFunc{(*store.Store).FetchLendBorrows, (*store.Store).FetchLendBorrowReturns},
		func(st *store.Store) any { return st.LendBorrowAnalytics() })
}

func (s *Server) handleDonationSavingAnalytics(w http.ResponseWriter, r *http.Request) {
	s.serveAnalytics(w, r, "donation-savings",
		[]fetchFunc{(*store.Store).FetchDonationSavings},
		func(st *store.Store) any { return st.DonationSavingAnalytics() })
}
