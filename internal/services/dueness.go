// Package services holds the background jobs that act on every user's data:
// DPS auto-funding and the lend/borrow overdue sweep.
package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DuenessChecker decides whether a DPS account should be funded now given
// the date of its last DPS transfer (zero when it never funded).
type DuenessChecker interface {
	IsDue(lastTransfer, now time.Time) bool
}

// MonthlyChecker funds once per calendar month.
type MonthlyChecker struct{}

// IsDue returns true unless a transfer already happened in now's month.
func (MonthlyChecker) IsDue(lastTransfer, now time.Time) bool {
	if lastTransfer.IsZero() {
		return true
	}
	last, cur := lastTransfer.UTC(), now.UTC()
	return last.Year() != cur.Year() || last.Month() != cur.Month()
}

// FlexibleChecker never funds automatically; flexible DPS is user initiated.
type FlexibleChecker struct{}

func (FlexibleChecker) IsDue(time.Time, time.Time) bool { return false }

var duenessStrategies = map[core.DPSType]DuenessChecker{
	core.DPSMonthly:  MonthlyChecker{},
	core.DPSFlexible: FlexibleChecker{},
}

// GetDuenessChecker returns the checker for a DPS type.
func GetDuenessChecker(t core.DPSType) (DuenessChecker, error) {
	checker, ok := duenessStrategies[t]
	if !ok {
		return nil, fmt.Errorf("unknown dps type: %s", t)
	}
	return checker, nil
}
