package store

import (
	"time"

	"fintrack/internal/analytics"
)

// The getters below read the current snapshot and never touch the backend.

func (s *Store) DashboardStats(now time.Time) analytics.DashboardStats {
	snap := s.view()
	return analytics.Dashboard(snap.Accounts, snap.Transactions, now)
}

// PurchaseAnalytics covers every purchase when currency is empty.
func (s *Store) PurchaseAnalytics(currency string, now time.Time) analytics.PurchaseAnalytics {
	return analytics.Purchases(s.view().Purchases, currency, now)
}

func (s *Store) MultiCurrencyPurchaseAnalytics(now time.Time) []analytics.PurchaseAnalytics {
	return analytics.MultiCurrencyPurchases(s.view().Purchases, now)
}

func (s *Store) LendBorrowAnalytics() analytics.LendBorrowAnalytics {
	snap := s.view()
	return analytics.LendBorrow(snap.LendBorrows, snap.LendBorrowReturns)
}

func (s *Store) DonationSavingAnalytics() analytics.DonationSavingAnalytics {
	return analytics.DonationSaving(s.view().DonationSavings)
}
