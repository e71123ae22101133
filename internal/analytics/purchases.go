package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type CategorySpend struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

type PurchaseAnalytics struct {
	Currency           string          `json:"currency,omitempty"`
	TotalPurchases     int             `json:"total_purchases"`
	PlannedCount       int             `json:"planned_count"`
	PurchasedCount     int             `json:"purchased_count"`
	CancelledCount     int             `json:"cancelled_count"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	PlannedValue       decimal.Decimal `json:"planned_value"`
	MonthlySpent       decimal.Decimal `json:"monthly_spent"`
	PreviousMonthSpent decimal.Decimal `json:"previous_month_spent"`
	MonthlyChange      *float64        `json:"monthly_change"`
	AveragePurchase    decimal.Decimal `json:"average_purchase"`
	CategoryBreakdown  []CategorySpend `json:"category_breakdown"`
	TopCategory        string          `json:"top_category,omitempty"`
}

const uncategorized = "Uncategorized"

// Purchases summarizes purchases in currency. An empty currency includes
// every purchase regardless of currency.
func Purchases(purchases []core.Purchase, currency string, now time.Time) PurchaseAnalytics {
	pa := PurchaseAnalytics{
		Currency:           currency,
		TotalSpent:         decimal.Zero,
		PlannedValue:       decimal.Zero,
		MonthlySpent:       decimal.Zero,
		PreviousMonthSpent: decimal.Zero,
		AveragePurchase:    decimal.Zero,
		CategoryBreakdown:  []CategorySpend{},
	}

	curStart, curEnd := monthBounds(now)
	prevStart := curStart.AddDate(0, -1, 0)
	byCategory := make(map[string]*CategorySpend)

	for _, p := range purchases {
		if currency != "" && p.Currency != currency {
			continue
		}
		pa.TotalPurchases++
		switch p.Status {
		case core.Planned:
			pa.PlannedCount++
			pa.PlannedValue = pa.PlannedValue.Add(p.Price)
		case core.Cancelled:
			pa.CancelledCount++
		case core.Purchased:
			pa.PurchasedCount++
			pa.TotalSpent = pa.TotalSpent.Add(p.Price)
			if within(p.PurchaseDate, curStart, curEnd) {
				pa.MonthlySpent = pa.MonthlySpent.Add(p.Price)
			} else if within(p.PurchaseDate, prevStart, curStart) {
				pa.PreviousMonthSpent = pa.PreviousMonthSpent.Add(p.Price)
			}
			name := p.Category
			if name == "" {
				name = uncategorized
			}
			c, ok := byCategory[name]
			if !ok {
				c = &CategorySpend{Category: name, Amount: decimal.Zero}
				byCategory[name] = c
			}
			c.Amount = c.Amount.Add(p.Price)
			c.Count++
		}
	}

	if pa.PurchasedCount > 0 {
		pa.AveragePurchase = core.RoundMoney(pa.TotalSpent.Div(decimal.NewFromInt(int64(pa.PurchasedCount))))
	}
	pa.MonthlyChange = PercentChange(pa.PreviousMonthSpent, pa.MonthlySpent)

	for _, name := range sortedKeys(byCategory) {
		c := byCategory[name]
		if c.Amount.IsZero() {
			continue
		}
		c.Percentage = core.Percent(c.Amount, pa.TotalSpent)
		pa.CategoryBreakdown = append(pa.CategoryBreakdown, *c)
	}
	sort.SliceStable(pa.CategoryBreakdown, func(i, j int) bool {
		return pa.CategoryBreakdown[i].Amount.GreaterThan(pa.CategoryBreakdown[j].Amount)
	})
	if len(pa.CategoryBreakdown) > 0 {
		pa.TopCategory = pa.CategoryBreakdown[0].Category
	}
	return pa
}

// MultiCurrencyPurchases returns one summary per currency present in
// purchases, ordered by currency code.
func MultiCurrencyPurchases(purchases []core.Purchase, now time.Time) []PurchaseAnalytics {
	seen := make(map[string]struct{})
	for _, p := range purchases {
		seen[p.Currency] = struct{}{}
	}
	out := make([]PurchaseAnalytics, 0, len(seen))
	for _, cur := range sortedKeys(seen) {
		out = append(out, Purchases(purchases, cur, now))
	}
	return out
}
