package analytics

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type LendBorrowCurrency struct {
	Currency            string          `json:"currency"`
	TotalLent           decimal.Decimal `json:"total_lent"`
	TotalBorrowed       decimal.Decimal `json:"total_borrowed"`
	OutstandingLent     decimal.Decimal `json:"outstanding_lent"`
	OutstandingBorrowed decimal.Decimal `json:"outstanding_borrowed"`
	TotalReturned       decimal.Decimal `json:"total_returned"`
	NetPosition         decimal.Decimal `json:"net_position"`
}

type LendBorrowAnalytics struct {
	ByCurrency   []LendBorrowCurrency `json:"by_currency"`
	TotalRecords int                  `json:"total_records"`
	ActiveCount  int                  `json:"active_count"`
	SettledCount int                  `json:"settled_count"`
	OverdueCount int                  `json:"overdue_count"`
	LendCount    int                  `json:"lend_count"`
	BorrowCount  int                  `json:"borrow_count"`
}

// LendBorrow totals lend and borrow records per currency. Outstanding
// amounts only include records that are still open (active or overdue)
// and are reduced by their recorded returns.
func LendBorrow(records []core.LendBorrow, returns []core.LendBorrowReturn) LendBorrowAnalytics {
	out := LendBorrowAnalytics{ByCurrency: []LendBorrowCurrency{}, TotalRecords: len(records)}

	byRecord := make(map[uuid.UUID][]core.LendBorrowReturn)
	for _, r := range returns {
		byRecord[r.LendBorrowID] = append(byRecord[r.LendBorrowID], r)
	}

	groups := make(map[string]*LendBorrowCurrency)
	for _, lb := range records {
		g, ok := groups[lb.Currency]
		if !ok {
			g = &LendBorrowCurrency{
				Currency:            lb.Currency,
				TotalLent:           decimal.Zero,
				TotalBorrowed:       decimal.Zero,
				OutstandingLent:     decimal.Zero,
				OutstandingBorrowed: decimal.Zero,
				TotalReturned:       decimal.Zero,
			}
			groups[lb.Currency] = g
		}

		switch lb.Status {
		case core.LendBorrowActive:
			out.ActiveCount++
		case core.LendBorrowSettled:
			out.SettledCount++
		case core.LendBorrowOverdue:
			out.OverdueCount++
		}

		recs := byRecord[lb.ID]
		for _, r := range recs {
			g.TotalReturned = g.TotalReturned.Add(r.Amount)
		}
		remaining := decimal.Zero
		if lb.Status.Open() {
			remaining = lb.Remaining(recs)
		}

		if lb.Type == core.Lend {
			out.LendCount++
			g.TotalLent = g.TotalLent.Add(lb.Amount)
			g.OutstandingLent = g.OutstandingLent.Add(remaining)
		} else {
			out.BorrowCount++
			g.TotalBorrowed = g.TotalBorrowed.Add(lb.Amount)
			g.OutstandingBorrowed = g.OutstandingBorrowed.Add(remaining)
		}
	}

	for _, cur := range sortedKeys(groups) {
		g := groups[cur]
		g.NetPosition = g.OutstandingLent.Sub(g.OutstandingBorrowed)
		out.ByCurrency = append(out.ByCurrency, *g)
	}
	return out
}
