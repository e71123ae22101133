package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func seed(t *testing.T) (*Store, uuid.UUID, core.Account, core.Account) {
	t.Helper()
	ctx := context.Background()
	s := NewStore()
	u, err := s.CreateUser(ctx, "me@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	a, _ := s.CreateAccount(ctx, u.ID, core.AccountInput{Name: "A", Type: core.Checking, InitialBalance: decimal.NewFromInt(100), Currency: "USD"})
	b, _ := s.CreateAccount(ctx, u.ID, core.AccountInput{Name: "B", Type: core.Savings, Currency: "USD"})
	return s, u.ID, a, b
}

func leg(account uuid.UUID, typ core.TransactionType, amount int64, tags []string) core.TransactionInput {
	return core.TransactionInput{AccountID: account, Type: typ, Amount: decimal.NewFromInt(amount), Description: "leg", Date: time.Now(), Tags: tags}
}

func TestDuplicateEmail(t *testing.T) {
	s := NewStore()
	if _, err := s.CreateUser(context.Background(), "a@b.co", "x"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(context.Background(), "A@B.CO", "y"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestTransferAllOrNothing(t *testing.T) {
	s, userID, a, b := seed(t)
	ctx := context.Background()
	id := uuid.New()
	tags := core.TransferTags(core.TagTransfer, id)

	_, err := s.CreateTransfer(ctx, userID, []core.TransactionInput{leg(a.ID, core.Expense, 30, tags), leg(uuid.New(), core.Income, 30, tags)})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if txs, _ := s.ListTransactions(ctx, userID); len(txs) != 0 {
		t.Fatalf("partial transfer persisted: %d rows", len(txs))
	}

	if _, err := s.CreateTransfer(ctx, userID, []core.TransactionInput{leg(a.ID, core.Expense, 30, tags), leg(b.ID, core.Income, 30, tags)}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	gotA, _ := s.GetAccount(ctx, userID, a.ID)
	gotB, _ := s.GetAccount(ctx, userID, b.ID)
	if !gotA.CalculatedBalance.Equal(decimal.NewFromInt(70)) || !gotB.CalculatedBalance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("balances after transfer: %s %s", gotA.CalculatedBalance, gotB.CalculatedBalance)
	}

	if n, err := s.DeleteTransfer(ctx, userID, id); err != nil || n != 2 {
		t.Fatalf("delete transfer: %d %v", n, err)
	}
}

func TestDeleteAccountClearsDPSLinks(t *testing.T) {
	s, userID, a, b := seed(t)
	ctx := context.Background()
	p := core.AccountPatch{HasDPS: ptr(true), DPSSavingsAccount: core.Some(b.ID)}
	if _, err := s.UpdateAccount(ctx, userID, a.ID, p); err != nil {
		t.Fatalf("enable dps: %v", err)
	}
	tags := core.TransferTags(core.TagDPSTransfer, uuid.New())
	if _, err := s.TransferDPS(ctx, userID, [2]core.TransactionInput{leg(a.ID, core.Expense, 10, tags), leg(b.ID, core.Income, 10, tags)}); err != nil {
		t.Fatalf("dps: %v", err)
	}

	if err := s.DeleteAccount(ctx, userID, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := s.GetAccount(ctx, userID, a.ID)
	if got.HasDPS || got.DPSSavingsAccount != nil {
		t.Fatalf("dps link survived: %+v", got)
	}
	if d, _ := s.ListDPSTransfers(ctx, userID); len(d) != 0 {
		t.Fatalf("dps rows survived: %v", d)
	}
}

func TestOtherUsersRowsAreInvisible(t *testing.T) {
	s, _, a, _ := seed(t)
	ctx := context.Background()
	other, _ := s.CreateUser(ctx, "other@example.com", "hash")

	if _, err := s.GetAccount(ctx, other.ID, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.DeleteAccount(ctx, other.ID, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkAllOverdue(t *testing.T) {
	s, userID, _, _ := seed(t)
	ctx := context.Background()
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	if _, err := s.CreateLendBorrow(ctx, userID, core.LendBorrowInput{Type: core.Lend, PersonName: "x", Amount: decimal.NewFromInt(5), Currency: "USD", DueDate: &yesterday}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n, _ := s.MarkAllOverdue(ctx, now); n != 1 {
		t.Fatalf("marked %d, want 1", n)
	}
	if n, _ := s.MarkAllOverdue(ctx, now); n != 0 {
		t.Fatalf("second sweep marked %d, want 0", n)
	}
}

func ptr[T any](v T) *T { return &v }
