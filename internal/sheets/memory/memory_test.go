package memory

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMirrorAppendAndHasRef(t *testing.T) {
	m := New()
	ctx := context.Background()
	tx := core.Transaction{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Type:      core.Income,
		Amount:    decimal.NewFromInt(100),
		Date:      time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
		Ref:       "TX-20241231-QWERTY",
	}

	ref, err := m.Append(ctx, tx)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:2024:1" {
		t.Errorf("Append() ref = %q", ref)
	}

	if ok, _ := m.HasRef(ctx, 2024, tx.Ref); !ok {
		t.Error("HasRef() = false for appended ref")
	}
	if ok, _ := m.HasRef(ctx, 2025, tx.Ref); ok {
		t.Error("HasRef() matched a different year")
	}

	rows := m.Rows(2024)
	if len(rows) != 1 || rows[0][1] != "2024-12-31" || rows[0][5] != "100.00" {
		t.Errorf("Rows() = %v", rows)
	}

	tx.Ref = ""
	if _, err := m.Append(ctx, tx); err == nil {
		t.Error("Append() without ref should fail")
	}
}
