package store

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

func (s *Store) FetchAccounts(ctx context.Context) error {
	return fetch(s, ctx, core.CollectionAccounts, s.backend.ListAccounts,
		func(snap *Snapshot, rows []core.Account) { snap.Accounts = rows })
}

func (s *Store) FetchTransactions(ctx context.Context) error {
	return fetch(s, ctx, core.CollectionTransactions, s.backend.ListTransactions,
		func(snap *Snapshot, rows []core.Transaction) { snap.Transactions = rows })
}

func (s *Store) FetchCategories(ctx context.Context) error {
	return fetch(s, ctx, core.CollectionCategories, s.backend.ListCategories,
		func(snap *Snapshot, rows []core.Category) { snap.Categories = rows })
}

func (s *Store) FetchPurchases(ctx context.Context) error {
	return fetch(s, ctx, core.CollectionPurchases, s.backend.ListPurchases,
		func(snap *Snapshot, rows []core.Purchase) { snap.Purchases = rows })
}

// FetchPurchaseCategories loads live purchase categories only.
func (s *Store) FetchPurchaseCategories(ctx context.Context) error {
	list := func(ctx context.Context, userID uuid.UUID) ([]core.PurchaseCategory, error) {
		return s.backend.ListPurchaseCategories(ctx, userID, false)
	}
	return fetch(s, ctx, core.CollectionPurchaseCategories, list,
		func(snap *Snapshot, rows []core.PurchaseCategory) { snap.PurchaseCategories = rows })
}

func (s *Store) FetchLendBorrows(ctx context.Context) error {
	return fetch(s, ctx, core.CollectionLendBorrows, s.backend.ListLendBorrows,
		func(snap *Snapshot, rows []core.LendBorrow) { snap.LendBorrows = rows })
}

func (s *Store) FetchLendBorrowReturns(ctx context.Context) error {
	return fetch(s, ctx, core.CollectionLendBorrowReturns, s.backend.ListLendBorrowReturns,
		func(snap *Snapshot, rows []core.LendBorrowReturn) { snap.LendBorrowReturns = rows })
}

func (s *Store) FetchDonationSavings(ctx context.Context) error {
	return fetch(s, ctx, core.CollectionDonationSavings, s.backend.ListDonationSavings,
		func(snap *Snapshot, rows []core.DonationSavingRecord) { snap.DonationSavings = rows })
}

func (s *Store) FetchSavingsGoals(ctx context.Context) error {
	return fetch(s, ctx, core.CollectionSavingsGoals, s.backend.ListSavingsGoals,
		func(snap *Snapshot, rows []core.SavingsGoal) { snap.SavingsGoals = rows })
}

func (s *Store) FetchDPSTransfers(ctx context.Context) error {
	return fetch(s, ctx, core.CollectionDPSTransfers, s.backend.ListDPSTransfers,
		func(snap *Snapshot, rows []core.DPSTransfer) { snap.DPSTransfers = rows })
}

// FetchAll loads every collection in parallel. Collections that load are
// applied even when others fail; the first error is returned.
func (s *Store) FetchAll(ctx context.Context) error {
	if _, _, err := s.session(); err != nil {
		return s.fail(err)
	}
	var g errgroup.Group
	for _, f := range s.fetchers {
		g.Go(func() error { return f(ctx) })
	}
	return g.Wait()
}
