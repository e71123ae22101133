// Package analytics computes the read-only aggregates shown on the
// dashboards. Every function is pure over the slices it is given.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Totals is an income/expense pair.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Net returns income minus expense.
func (t Totals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// PercentChange returns the month over month delta in percent, or nil when
// both values are zero.
func PercentChange(prev, curr decimal.Decimal) *float64 {
	var v float64
	switch {
	case prev.IsZero() && curr.IsZero():
		return nil
	case prev.IsZero():
		v = 100
		if curr.IsNegative() {
			v = -100
		}
	default:
		v = curr.Sub(prev).Div(prev.Abs()).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	v = math.Round(v*100) / 100
	return &v
}

// IncomeExpenseTotals sums income and expense, skipping transfer legs.
func IncomeExpenseTotals(txs []core.Transaction) Totals {
	t := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txs {
		if tx.IsTransfer() {
			continue
		}
		switch tx.Type {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	return t
}

// monthBounds returns the first instant of the month containing t and of the
// month after it.
func monthBounds(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.UTC().Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
