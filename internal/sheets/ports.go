package sheets

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends one row per transaction to the mirror.
	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// RefChecker reports whether a transaction ref is already mirrored, so
	// redelivered events do not produce duplicate rows.
	RefChecker interface {
		HasRef(ctx context.Context, year int, ref string) (bool, error)
	}

	Mirror interface {
		TransactionWriter
		RefChecker
	}
)

// Row renders a transaction in mirror column order.
func Row(t core.Transaction) []any {
	return []any{
		t.Ref,
		t.Date.UTC().Format(time.DateOnly),
		string(t.Type),
		t.Description,
		t.Category,
		t.Signed().StringFixed(2),
		t.AccountID.String(),
		t.Note,
	}
}
