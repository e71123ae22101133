package analytics

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type DonationSavingCurrency struct {
	Currency        string          `json:"currency"`
	TotalDonated    decimal.Decimal `json:"total_donated"`
	PendingDonation decimal.Decimal `json:"pending_donation"`
	TotalSaved      decimal.Decimal `json:"total_saved"`
	DonationCount   int             `json:"donation_count"`
	SavingCount     int             `json:"saving_count"`
}

// MonthlyDonationSaving is one YYYY-MM bucket for one currency.
type MonthlyDonationSaving struct {
	Month    string          `json:"month"`
	Currency string          `json:"currency"`
	Donated  decimal.Decimal `json:"donated"`
	Saved    decimal.Decimal `json:"saved"`
}

type DonationSavingAnalytics struct {
	ByCurrency   []DonationSavingCurrency `json:"by_currency"`
	Monthly      []MonthlyDonationSaving  `json:"monthly"`
	TotalRecords int                      `json:"total_records"`
}

func DonationSaving(records []core.DonationSavingRecord) DonationSavingAnalytics {
	out := DonationSavingAnalytics{
		ByCurrency:   []DonationSavingCurrency{},
		Monthly:      []MonthlyDonationSaving{},
		TotalRecords: len(records),
	}

	groups := make(map[string]*DonationSavingCurrency)
	months := make(map[string]*MonthlyDonationSaving)

	for _, r := range records {
		g, ok := groups[r.Currency]
		if !ok {
			g = &DonationSavingCurrency{
				Currency:        r.Currency,
				TotalDonated:    decimal.Zero,
				PendingDonation: decimal.Zero,
				TotalSaved:      decimal.Zero,
			}
			groups[r.Currency] = g
		}
		key := core.MonthKey(r.CreatedAt) + "|" + r.Currency
		m, ok := months[key]
		if !ok {
			m = &MonthlyDonationSaving{
				Month:    core.MonthKey(r.CreatedAt),
				Currency: r.Currency,
				Donated:  decimal.Zero,
				Saved:    decimal.Zero,
			}
			months[key] = m
		}

		switch r.Type {
		case core.Donation:
			g.DonationCount++
			if r.Status == core.DonationDonated {
				g.TotalDonated = g.TotalDonated.Add(r.Amount)
				m.Donated = m.Donated.Add(r.Amount)
			} else {
				g.PendingDonation = g.PendingDonation.Add(r.Amount)
			}
		case core.Saving:
			g.SavingCount++
			g.TotalSaved = g.TotalSaved.Add(r.Amount)
			m.Saved = m.Saved.Add(r.Amount)
		}
	}

	for _, cur := range sortedKeys(groups) {
		out.ByCurrency = append(out.ByCurrency, *groups[cur])
	}
	// keys are "YYYY-MM|CUR", so lexical order is chronological
	for _, k := range sortedKeys(months) {
		out.Monthly = append(out.Monthly, *months[k])
	}
	return out
}
