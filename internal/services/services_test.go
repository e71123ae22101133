package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage/memory"
	"fintrack/internal/store"
)

func discardLogger() *log.Logger {
	return log.New(log.Config{Component: "test", Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		lastTransfer time.Time
		want         bool
	}{
		{"never funded", time.Time{}, true},
		{"funded earlier this month", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), false},
		{"funded last month", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), true},
		{"same month last year", time.Date(2023, 3, 20, 12, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.lastTransfer, now); got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDuenessChecker(t *testing.T) {
	tests := []struct {
		dpsType core.DPSType
		wantErr bool
	}{
		{core.DPSMonthly, false},
		{core.DPSFlexible, false},
		{core.DPSType("weekly"), true},
	}
	for _, tt := range tests {
		t.Run(string(tt.dpsType), func(t *testing.T) {
			_, err := GetDuenessChecker(tt.dpsType)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetDuenessChecker(%q) error = %v, wantErr %v", tt.dpsType, err, tt.wantErr)
			}
		})
	}
	if (FlexibleChecker{}).IsDue(time.Time{}, time.Now()) {
		t.Error("flexible accounts should never be due")
	}
}

func createAccount(t *testing.T, mem *memory.Store, userID uuid.UUID, in core.AccountInput) core.Account {
	t.Helper()
	in.Normalize()
	a, err := mem.CreateAccount(context.Background(), userID, in)
	if err != nil {
		t.Fatalf("create account %s: %v", in.Name, err)
	}
	return a
}

func TestDPSProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	u, err := mem.CreateUser(ctx, "dps@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	savings := createAccount(t, mem, u.ID, core.AccountInput{
		Name: "Savings", Type: core.Savings, Currency: "USD",
	})
	funded := createAccount(t, mem, u.ID, core.AccountInput{
		Name: "Salary", Type: core.Checking, Currency: "USD", InitialBalance: decimal.NewFromInt(1000),
		HasDPS: true, DPSType: core.DPSMonthly, DPSAmountType: core.DPSFixed,
		DPSFixedAmount: decimal.NewNullDecimal(decimal.NewFromInt(50)), DPSSavingsAccount: &savings.ID,
	})
	createAccount(t, mem, u.ID, core.AccountInput{
		Name: "Side", Type: core.Checking, Currency: "USD",
		HasDPS: true, DPSType: core.DPSMonthly, DPSAmountType: core.DPSUpTo,
		DPSFixedAmount: decimal.NewNullDecimal(decimal.NewFromInt(20)), DPSSavingsAccount: &savings.ID,
	})
	createAccount(t, mem, u.ID, core.AccountInput{
		Name: "Flex", Type: core.Checking, Currency: "USD",
		HasDPS: true, DPSType: core.DPSFlexible, DPSAmountType: core.DPSFixed,
		DPSFixedAmount: decimal.NewNullDecimal(decimal.NewFromInt(30)), DPSSavingsAccount: &savings.ID,
	})

	registry := store.NewRegistry(mem, store.Options{Logger: discardLogger()}, 8, time.Hour)
	p := NewDPSProcessor(mem, registry, discardLogger())

	march := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	steps := []struct {
		name string
		now  time.Time
		want int
	}{
		{"first run funds fixed monthly account", march, 1},
		{"same month is skipped", march.AddDate(0, 0, 10), 0},
		{"next month funds again", march.AddDate(0, 1, 0), 1},
	}
	for _, st := range steps {
		n, err := p.ProcessDue(ctx, st.now)
		if err != nil {
			t.Fatalf("%s: ProcessDue() error = %v", st.name, err)
		}
		if n != st.want {
			t.Errorf("%s: ProcessDue() = %d, want %d", st.name, n, st.want)
		}
	}

	transfers, err := mem.ListDPSTransfers(ctx, u.ID)
	if err != nil {
		t.Fatalf("list dps transfers: %v", err)
	}
	if len(transfers) != 2 {
		t.Fatalf("dps transfers = %d, want 2", len(transfers))
	}
	for _, tr := range transfers {
		if tr.FromAccountID != funded.ID || tr.ToAccountID != savings.ID || !tr.Amount.Equal(decimal.NewFromInt(50)) {
			t.Errorf("unexpected transfer %+v", tr)
		}
	}

	snap := registry.For(u.ID).Snapshot()
	if len(snap.DPSTransfers) != 2 {
		t.Errorf("store snapshot dps transfers = %d, want 2", len(snap.DPSTransfers))
	}
}

func TestDPSProcessor_NotInitialized(t *testing.T) {
	p := NewDPSProcessor(nil, nil, discardLogger())
	if _, err := p.ProcessDue(context.Background(), time.Now()); err == nil {
		t.Error("ProcessDue() should fail without dependencies")
	}
}

func TestFixedAmount(t *testing.T) {
	fifty := decimal.NewNullDecimal(decimal.NewFromInt(50))
	tests := []struct {
		name    string
		account core.Account
		want    bool
	}{
		{"fixed with amount", core.Account{DPSAmountType: core.DPSFixed, DPSFixedAmount: fifty}, true},
		{"fixed without amount", core.Account{DPSAmountType: core.DPSFixed}, false},
		{"up to", core.Account{DPSAmountType: core.DPSUpTo, DPSFixedAmount: fifty}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := fixedAmount(tt.account); got != tt.want {
				t.Errorf("fixedAmount() ok = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverdueSweeper(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	u, err := mem.CreateUser(ctx, "sweep@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	past := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	future := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	for _, due := range []*time.Time{&past, &future, nil} {
		if _, err := mem.CreateLendBorrow(ctx, u.ID, core.LendBorrowInput{
			Type: core.Lend, PersonName: "Sam", Amount: decimal.NewFromInt(10), Currency: "USD", DueDate: due,
		}); err != nil {
			t.Fatalf("create lend/borrow: %v", err)
		}
	}

	s := NewOverdueSweeper(mem, discardLogger())
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	n, err := s.Sweep(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("Sweep() = %d, %v; want 1, nil", n, err)
	}
	n, err = s.Sweep(ctx, now)
	if err != nil || n != 0 {
		t.Fatalf("second Sweep() = %d, %v; want 0, nil", n, err)
	}
}

type failingMarker struct{}

func (failingMarker) MarkAllOverdue(context.Context, time.Time) (int, error) {
	return 0, errors.New("db down")
}

func TestOverdueSweeper_Error(t *testing.T) {
	if _, err := NewOverdueSweeper(failingMarker{}, discardLogger()).Sweep(context.Background(), time.Now()); err == nil {
		t.Error("Sweep() should propagate marker errors")
	}
}

func TestScheduler(t *testing.T) {
	var runs atomic.Int32
	ran := make(chan struct{}, 8)
	s := NewScheduler(discardLogger(), Job{
		Name:     "count",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context, time.Time) (int, error) {
			runs.Add(1)
			select {
			case ran <- struct{}{}:
			default:
			}
			return 0, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}
	if !s.IsRunning() {
		t.Error("scheduler should be running")
	}

	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			t.Fatal("job did not run")
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}
	if runs.Load() < 2 {
		t.Errorf("runs = %d, want at least 2", runs.Load())
	}
}

func TestScheduler_InvalidJob(t *testing.T) {
	s := NewScheduler(discardLogger(), Job{Name: "bad"})
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() should reject a job without interval")
	}
}
