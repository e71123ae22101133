package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// CurrencyStats is the dashboard block for one currency.
type CurrencyStats struct {
	Currency      string          `json:"currency"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
	AccountCount  int             `json:"account_count"`
	Monthly       Totals          `json:"monthly"`
	PreviousMonth Totals          `json:"previous_month"`
	NetFlow       decimal.Decimal `json:"net_flow"`
	IncomeChange  *float64        `json:"income_change"`
	ExpenseChange *float64        `json:"expense_change"`
}

type DashboardStats struct {
	ByCurrency        []CurrencyStats `json:"by_currency"`
	TotalAccounts     int             `json:"total_accounts"`
	ActiveAccounts    int             `json:"active_accounts"`
	TotalTransactions int             `json:"total_transactions"`
}

// Dashboard groups active accounts by currency and sums their balances and
// the current and previous month's flows. Transfer legs are not counted as
// income or expense.
func Dashboard(accounts []core.Account, txs []core.Transaction, now time.Time) DashboardStats {
	stats := DashboardStats{
		TotalAccounts:     len(accounts),
		TotalTransactions: len(txs),
	}

	groups := make(map[string]*CurrencyStats)
	currencyOf := make(map[uuid.UUID]string)
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		stats.ActiveAccounts++
		currencyOf[a.ID] = a.Currency
		g, ok := groups[a.Currency]
		if !ok {
			g = &CurrencyStats{
				Currency:      a.Currency,
				TotalBalance:  decimal.Zero,
				Monthly:       Totals{Income: decimal.Zero, Expense: decimal.Zero},
				PreviousMonth: Totals{Income: decimal.Zero, Expense: decimal.Zero},
			}
			groups[a.Currency] = g
		}
		g.TotalBalance = g.TotalBalance.Add(a.CalculatedBalance)
		g.AccountCount++
	}

	curStart, curEnd := monthBounds(now)
	prevStart := curStart.AddDate(0, -1, 0)

	for _, tx := range txs {
		if tx.IsTransfer() {
			continue
		}
		cur, ok := currencyOf[tx.AccountID]
		if !ok {
			continue
		}
		var bucket *Totals
		switch {
		case within(tx.Date, curStart, curEnd):
			bucket = &groups[cur].Monthly
		case within(tx.Date, prevStart, curStart):
			bucket = &groups[cur].PreviousMonth
		default:
			continue
		}
		if tx.Type == core.Income {
			bucket.Income = bucket.Income.Add(tx.Amount)
		} else {
			bucket.Expense = bucket.Expense.Add(tx.Amount)
		}
	}

	for _, cur := range sortedKeys(groups) {
		g := groups[cur]
		g.NetFlow = g.Monthly.Net()
		g.IncomeChange = PercentChange(g.PreviousMonth.Income, g.Monthly.Income)
		g.ExpenseChange = PercentChange(g.PreviousMonth.Expense, g.Monthly.Expense)
		stats.ByCurrency = append(stats.ByCurrency, *g)
	}
	return stats
}
