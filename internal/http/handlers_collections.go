package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// collectionRoutes binds one snapshot collection to its store operations.
type collectionRoutes[T, In, P any] struct {
	fetch  func(*store.Store, context.Context) error
	list   func(store.Snapshot) []T
	add    func(*store.Store, context.Context, In) (T, error)
	update func(*store.Store, context.Context, uuid.UUID, P) (T, error)
	remove func(*store.Store, context.Context, uuid.UUID) error
}

var (
	accountRoutes = collectionRoutes[core.Account, core.AccountInput, core.AccountPatch]{
		fetch:  (*store.Store).FetchAccounts,
		list:   func(s store.Snapshot) []core.Account { return s.Accounts },
		add:    (*store.Store).AddAccount,
		update: (*store.Store).UpdateAccount,
		remove: (*store.Store).DeleteAccount,
	}
	transactionRoutes = collectionRoutes[core.Transaction, core.TransactionInput, core.TransactionPatch]{
		fetch:  (*store.Store).FetchTransactions,
		list:   func(s store.Snapshot) []core.Transaction { return s.Transactions },
		add:    (*store.Store).AddTransaction,
		update: (*store.Store).UpdateTransaction,
		remove: (*store.Store).DeleteTransaction,
	}
	categoryRoutes = collectionRoutes[core.Category, core.CategoryInput, core.CategoryPatch]{
		fetch:  (*store.Store).FetchCategories,
		list:   func(s store.Snapshot) []core.Category { return s.Categories },
		add:    (*store.Store).AddCategory,
		update: (*store.Store).UpdateCategory,
		remove: (*store.Store).DeleteCategory,
	}
	purchaseRoutes = collectionRoutes[core.Purchase, core.PurchaseInput, core.PurchasePatch]{
		fetch:  (*store.Store).FetchPurchases,
		list:   func(s store.Snapshot) []core.Purchase { return s.Purchases },
		add:    (*store.Store).AddPurchase,
		update: (*store.Store).UpdatePurchase,
		remove: (*store.Store).DeletePurchase,
	}
	purchaseCategoryRoutes = collectionRoutes[core.PurchaseCategory, core.PurchaseCategoryInput, core.PurchaseCategoryPatch]{
		fetch:  (*store.Store).FetchPurchaseCategories,
		list:   func(s store.Snapshot) []core.PurchaseCategory { return s.PurchaseCategories },
		add:    (*store.Store).AddPurchaseCategory,
		update: (*store.Store).UpdatePurchaseCategory,
		remove: (*store.Store).DeletePurchaseCategory,
	}
	lendBorrowRoutes = collectionRoutes[core.LendBorrow, core.LendBorrowInput, core.LendBorrowPatch]{
		fetch:  (*store.Store).FetchLendBorrows,
		list:   func(s store.Snapshot) []core.LendBorrow { return s.LendBorrows },
		add:    (*store.Store).AddLendBorrow,
		update: (*store.Store).UpdateLendBorrow,
		remove: (*store.Store).DeleteLendBorrow,
	}
	donationSavingRoutes = collectionRoutes[core.DonationSavingRecord, core.DonationSavingInput, core.DonationSavingPatch]{
		fetch:  (*store.Store).FetchDonationSavings,
		list:   func(s store.Snapshot) []core.DonationSavingRecord { return s.DonationSavings },
		add:    (*store.Store).AddDonationSaving,
		update: (*store.Store).UpdateDonationSaving,
		remove: (*store.Store).DeleteDonationSaving,
	}
	savingsGoalRoutes = collectionRoutes[core.SavingsGoal, core.SavingsGoalInput, core.SavingsGoalPatch]{
		fetch:  (*store.Store).FetchSavingsGoals,
		list:   func(s store.Snapshot) []core.SavingsGoal { return s.SavingsGoals },
		add:    (*store.Store).AddSavingsGoal,
		update: (*store.Store).UpdateSavingsGoal,
		remove: (*store.Store).DeleteSavingsGoal,
	}
)

// mountCollection registers GET/POST on path and PATCH/DELETE on path/{id}.
// extra adds collection specific routes to the same subrouter.
func mountCollection[T, In, P any](r chi.Router, s *Server, path string, c collectionRoutes[T, In, P], extra ...func(chi.Router)) {
	r.Route(path, func(r chi.Router) {
		for _, fn := range extra {
			fn(r)
		}

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			st, _, err := s.userStore(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if err := c.fetch(st, r.Context()); err != nil {
				writeError(w, r, err)
				return
			}
			rows := c.list(st.Snapshot())
			if rows == nil {
				rows = []T{}
			}
			writeJSON(w, http.StatusOK, rows)
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			st, _, err := s.userStore(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			var in In
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			row, err := c.add(st, r.Context(), in)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, row)
		})

		r.Patch("/{id}", func(w http.ResponseWriter, r *http.Request) {
			st, _, err := s.userStore(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			id, err := pathID(r, "id")
			if err != nil {
				writeError(w, r, err)
				return
			}
			var patch P
			if err := decodeJSON(w, r, &patch); err != nil {
				writeError(w, r, err)
				return
			}
			row, err := c.update(st, r.Context(), id, patch)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, row)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			st, _, err := s.userStore(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			id, err := pathID(r, "id")
			if err != nil {
				writeError(w, r, err)
				return
			}
			if err := c.remove(st, r.Context(), id); err != nil {
				writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}
