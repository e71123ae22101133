package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) (*Repository, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	repo, err := NewSQLiteRepository(ctx, filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	u, err := repo.CreateUser(ctx, "Test@Example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return repo, u.ID
}

func mustAccount(t *testing.T, repo *Repository, userID uuid.UUID, name string, typ core.AccountType, initial string) core.Account {
	t.Helper()
	in := core.AccountInput{Name: name, Type: typ, InitialBalance: decimal.RequireFromString(initial), Currency: "USD"}
	in.Normalize()
	a, err := repo.CreateAccount(context.Background(), userID, in)
	if err != nil {
		t.Fatalf("create account %s: %v", name, err)
	}
	return a
}

func txInput(accountID uuid.UUID, typ core.TransactionType, amount string, tags ...string) core.TransactionInput {
	return core.TransactionInput{
		AccountID:   accountID,
		Type:        typ,
		Amount:      decimal.RequireFromString(amount),
		Description: "test",
		Date:        time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Tags:        tags,
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect dialect
		in      string
		want    string
	}{
		{dialectSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{dialectPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{dialectPostgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		r := &Repository{dialect: tt.dialect}
		if got := r.rebind(tt.in); got != tt.want {
			t.Fatalf("rebind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDBTimeScan(t *testing.T) {
	want := time.Date(2025, 1, 14, 9, 30, 0, 0, time.UTC)
	for _, src := range []any{want, want.Format(sqliteTimeLayout), []byte(want.Format(time.RFC3339Nano))} {
		var got dbTime
		if err := got.Scan(src); err != nil {
			t.Fatalf("scan %v: %v", src, err)
		}
		if !got.Valid || !got.Time.Equal(want) {
			t.Fatalf("scan %v = %v, want %v", src, got.Time, want)
		}
	}

	var null dbTime
	if err := null.Scan(nil); err != nil || null.Ptr() != nil {
		t.Fatalf("nil scan: %v %v", null.Ptr(), err)
	}
}

func TestUserEmailIsUnique(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.GetUserByEmail(ctx, " test@example.COM ")
	if err != nil || u.ID != userID {
		t.Fatalf("lookup by email: %v %v", u.ID, err)
	}
	if _, err := repo.CreateUser(ctx, "test@example.com", "other"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAccountCalculatedBalance(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()
	acc := mustAccount(t, repo, userID, "Checking", core.Checking, "100")

	for _, in := range []core.TransactionInput{
		txInput(acc.ID, core.Income, "50.25"),
		txInput(acc.ID, core.Expense, "20.10"),
	} {
		if _, err := repo.CreateTransaction(ctx, userID, in); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	got, err := repo.GetAccount(ctx, userID, acc.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !got.CalculatedBalance.Equal(decimal.RequireFromString("130.15")) {
		t.Fatalf("calculated balance = %s, want 130.15", got.CalculatedBalance)
	}

	list, err := repo.ListAccounts(ctx, userID)
	if err != nil || len(list) != 1 || !list[0].CalculatedBalance.Equal(got.CalculatedBalance) {
		t.Fatalf("list accounts: %+v %v", list, err)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()
	acc := mustAccount(t, repo, userID, "Cash", core.Cash, "0")

	created, err := repo.CreateTransaction(ctx, userID, txInput(acc.ID, core.Expense, "12.34", "food"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Ref == "" {
		t.Fatalf("expected generated transaction ref")
	}

	got, err := repo.GetTransaction(ctx, userID, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Amount.Equal(created.Amount) || !got.Date.Equal(created.Date) || len(got.Tags) != 1 || got.Tags[0] != "food" {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, created)
	}

	desc := "lunch"
	updated, err := repo.UpdateTransaction(ctx, userID, created.ID, core.TransactionPatch{Description: &desc})
	if err != nil || updated.Description != "lunch" || !updated.Amount.Equal(created.Amount) {
		t.Fatalf("update: %+v %v", updated, err)
	}

	if err := repo.DeleteTransaction(ctx, userID, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, userID, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestTransactionForeignAccount(t *testing.T) {
	repo, userID := newTestRepo(t)
	other, err := repo.CreateUser(context.Background(), "other@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	acc := mustAccount(t, repo, other.ID, "Theirs", core.Checking, "0")

	_, err = repo.CreateTransaction(context.Background(), userID, txInput(acc.ID, core.Income, "1"))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for foreign account, got %v", err)
	}
}

func TestTransferIsAtomic(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()
	from := mustAccount(t, repo, userID, "From", core.Checking, "100")
	to := mustAccount(t, repo, userID, "To", core.Savings, "0")

	transferID := uuid.New()
	tags := core.TransferTags(core.TagTransfer, transferID)

	// second leg references a missing account, so nothing may persist
	_, err := repo.CreateTransfer(ctx, userID, []core.TransactionInput{
		txInput(from.ID, core.Expense, "40", tags...),
		txInput(uuid.New(), core.Income, "40", tags...),
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	txs, _ := repo.ListTransactions(ctx, userID)
	if len(txs) != 0 {
		t.Fatalf("failed transfer left %d transactions", len(txs))
	}

	legs, err := repo.CreateTransfer(ctx, userID, []core.TransactionInput{
		txInput(from.ID, core.Expense, "40", tags...),
		txInput(to.ID, core.Income, "40", tags...),
	})
	if err != nil || len(legs) != 2 {
		t.Fatalf("transfer: %v %v", legs, err)
	}

	n, err := repo.DeleteTransfer(ctx, userID, transferID)
	if err != nil || n != 2 {
		t.Fatalf("delete transfer: n=%d err=%v", n, err)
	}
	if _, err := repo.DeleteTransfer(ctx, userID, transferID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}

func TestTransferDPSAndLast(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()
	from := mustAccount(t, repo, userID, "Salary", core.Checking, "1000")
	to := mustAccount(t, repo, userID, "Rainy day", core.Savings, "0")

	if _, err := repo.LastDPSTransfer(ctx, userID, from.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found before any transfer, got %v", err)
	}

	transferID := uuid.New()
	tags := core.TransferTags(core.TagDPSTransfer, transferID)
	rec, err := repo.TransferDPS(ctx, userID, [2]core.TransactionInput{
		txInput(from.ID, core.Expense, "150", tags...),
		txInput(to.ID, core.Income, "150", tags...),
	})
	if err != nil {
		t.Fatalf("dps transfer: %v", err)
	}
	if rec.ID != transferID || rec.FromAccountID != from.ID || rec.ToAccountID != to.ID {
		t.Fatalf("unexpected audit row: %+v", rec)
	}

	last, err := repo.LastDPSTransfer(ctx, userID, from.ID)
	if err != nil || last.ID != transferID || !last.Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("last dps transfer: %+v %v", last, err)
	}

	if _, err := repo.DeleteTransfer(ctx, userID, transferID); err != nil {
		t.Fatalf("delete dps transfer: %v", err)
	}
	list, err := repo.ListDPSTransfers(ctx, userID)
	if err != nil || len(list) != 0 {
		t.Fatalf("audit row should be gone: %v %v", list, err)
	}
}

func TestDeleteAccountCascade(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()
	savings := mustAccount(t, repo, userID, "Savings", core.Savings, "0")

	in := core.AccountInput{
		Name:              "Main",
		Type:              core.Checking,
		InitialBalance:    decimal.NewFromInt(500),
		Currency:          "USD",
		HasDPS:            true,
		DPSFixedAmount:    decimal.NewNullDecimal(decimal.NewFromInt(50)),
		DPSSavingsAccount: &savings.ID,
	}
	in.Normalize()
	main, err := repo.CreateAccount(ctx, userID, in)
	if err != nil {
		t.Fatalf("create dps account: %v", err)
	}

	tags := core.TransferTags(core.TagDPSTransfer, uuid.New())
	if _, err := repo.TransferDPS(ctx, userID, [2]core.TransactionInput{
		txInput(main.ID, core.Expense, "50", tags...),
		txInput(savings.ID, core.Income, "50", tags...),
	}); err != nil {
		t.Fatalf("dps transfer: %v", err)
	}

	if err := repo.DeleteAccount(ctx, userID, savings.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	got, err := repo.GetAccount(ctx, userID, main.ID)
	if err != nil {
		t.Fatalf("get main: %v", err)
	}
	if got.HasDPS || got.DPSSavingsAccount != nil {
		t.Fatalf("dps link not cleared: %+v", got)
	}
	dps, _ := repo.ListDPSTransfers(ctx, userID)
	if len(dps) != 0 {
		t.Fatalf("dps transfers not removed: %d", len(dps))
	}
	txs, _ := repo.ListTransactions(ctx, userID)
	if len(txs) != 1 || txs[0].AccountID != main.ID {
		t.Fatalf("expected only the source leg to remain, got %+v", txs)
	}

	if err := repo.DeleteAccount(ctx, userID, savings.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestRecordReturnSettlesAndRejectsExcess(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()

	lb, err := repo.CreateLendBorrow(ctx, userID, core.LendBorrowInput{
		Type: core.Lend, PersonName: "Sam", Amount: decimal.NewFromInt(100), Currency: "USD",
	})
	if err != nil {
		t.Fatalf("create lend: %v", err)
	}

	ret := func(amount string) error {
		_, _, err := repo.RecordReturn(ctx, userID, lb.ID, core.ReturnInput{
			Amount: decimal.RequireFromString(amount), ReturnDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		})
		return err
	}

	if err := ret("60"); err != nil {
		t.Fatalf("first return: %v", err)
	}
	if err := ret("50"); !errors.Is(err, core.ErrReturnExceedsBalance) {
		t.Fatalf("expected exceeds balance, got %v", err)
	}

	_, updated, err := repo.RecordReturn(ctx, userID, lb.ID, core.ReturnInput{Amount: decimal.NewFromInt(40), ReturnDate: time.Now()})
	if err != nil {
		t.Fatalf("final return: %v", err)
	}
	if updated.Status != core.LendBorrowSettled {
		t.Fatalf("status = %s, want settled", updated.Status)
	}
	if err := ret("1"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict on settled record, got %v", err)
	}

	returns, err := repo.ListLendBorrowReturns(ctx, userID)
	if err != nil || len(returns) != 2 {
		t.Fatalf("returns: %v %v", returns, err)
	}
}

func TestMarkOverdue(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

	due := func(d time.Time) *time.Time { return &d }
	inputs := []core.LendBorrowInput{
		{Type: core.Lend, PersonName: "past", Amount: decimal.NewFromInt(10), Currency: "USD", DueDate: due(now.AddDate(0, 0, -1))},
		{Type: core.Borrow, PersonName: "today", Amount: decimal.NewFromInt(10), Currency: "USD", DueDate: due(core.DayOf(now))},
		{Type: core.Lend, PersonName: "none", Amount: decimal.NewFromInt(10), Currency: "USD"},
	}
	for _, in := range inputs {
		if _, err := repo.CreateLendBorrow(ctx, userID, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := repo.MarkOverdue(ctx, userID, now)
	if err != nil || n != 1 {
		t.Fatalf("mark overdue: n=%d err=%v", n, err)
	}
	n, err = repo.MarkAllOverdue(ctx, now)
	if err != nil || n != 0 {
		t.Fatalf("second sweep should be a no-op: n=%d err=%v", n, err)
	}

	list, _ := repo.ListLendBorrows(ctx, userID)
	for _, lb := range list {
		want := core.LendBorrowActive
		if lb.PersonName == "past" {
			want = core.LendBorrowOverdue
		}
		if lb.Status != want {
			t.Fatalf("%s: status %s, want %s", lb.PersonName, lb.Status, want)
		}
	}
}

func TestPurchaseCategoryTombstone(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()

	pc, err := repo.CreatePurchaseCategory(ctx, userID, core.PurchaseCategoryInput{CategoryName: "Groceries", Currency: "USD"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.DeletePurchaseCategory(ctx, userID, pc.ID, time.Now()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	live, _ := repo.ListPurchaseCategories(ctx, userID, false)
	all, _ := repo.ListPurchaseCategories(ctx, userID, true)
	if len(live) != 0 || len(all) != 1 || all[0].DeletedAt == nil {
		t.Fatalf("tombstone not applied: live=%v all=%v", live, all)
	}

	name := "Food"
	if _, err := repo.UpdatePurchaseCategory(ctx, userID, pc.ID, core.PurchaseCategoryPatch{CategoryName: &name}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found updating a tombstone, got %v", err)
	}
}

func TestPurchaseWithBackingTransaction(t *testing.T) {
	repo, userID := newTestRepo(t)
	ctx := context.Background()
	acc := mustAccount(t, repo, userID, "Card", core.Credit, "0")

	in := core.PurchaseInput{
		ItemName: "Headphones", Price: decimal.NewFromInt(80), Currency: "USD",
		PurchaseDate: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), Status: core.Purchased, AccountID: &acc.ID,
	}
	in.Normalize()
	backing := txInput(acc.ID, core.Expense, "80", core.TagPurchase)

	p, err := repo.CreatePurchase(ctx, userID, in, &backing)
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	if p.TransactionID == nil {
		t.Fatalf("backing transaction not linked")
	}

	got, err := repo.GetAccount(ctx, userID, acc.ID)
	if err != nil || !got.CalculatedBalance.Equal(decimal.NewFromInt(-80)) {
		t.Fatalf("balance after purchase: %s %v", got.CalculatedBalance, err)
	}
}
