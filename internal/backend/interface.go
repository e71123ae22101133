package backend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// Ports implemented by every data backend. All methods except the
// cross-user maintenance ones are scoped by the owning user id and return
// core.ErrNotFound for rows that do not exist or belong to someone else.
type (
	UserRepository interface {
		// CreateUser returns core.ErrConflict when the email is taken.
		CreateUser(ctx context.Context, email, passwordHash string) (core.User, error)
		GetUser(ctx context.Context, id uuid.UUID) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
	}

	AccountRepository interface {
		// ListAccounts fills CalculatedBalance from initial balance and transactions.
		ListAccounts(ctx context.Context, userID uuid.UUID) ([]core.Account, error)
		GetAccount(ctx context.Context, userID, id uuid.UUID) (core.Account, error)
		CreateAccount(ctx context.Context, userID uuid.UUID, in core.AccountInput) (core.Account, error)
		UpdateAccount(ctx context.Context, userID, id uuid.UUID, p core.AccountPatch) (core.Account, error)
		// DeleteAccount clears DPS links pointing at the account, removes DPS
		// transfer rows and transactions referencing it, then the account.
		DeleteAccount(ctx context.Context, userID, id uuid.UUID) error
		// ListDPSAccounts returns every DPS enabled account across users.
		ListDPSAccounts(ctx context.Context) ([]core.Account, error)
	}

	TransactionRepository interface {
		ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id uuid.UUID) (core.Transaction, error)
		CreateTransaction(ctx context.Context, userID uuid.UUID, in core.TransactionInput) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, userID, id uuid.UUID, p core.TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error
		// CreateTransfer inserts every leg or none.
		CreateTransfer(ctx context.Context, userID uuid.UUID, legs []core.TransactionInput) ([]core.Transaction, error)
		// DeleteTransfer removes both legs tagged with transferID.
		DeleteTransfer(ctx context.Context, userID, transferID uuid.UUID) (int, error)
	}

	CategoryRepository interface {
		ListCategories(ctx context.Context, userID uuid.UUID) ([]core.Category, error)
		CreateCategory(ctx context.Context, userID uuid.UUID, in core.CategoryInput) (core.Category, error)
		UpdateCategory(ctx context.Context, userID, id uuid.UUID, p core.CategoryPatch) (core.Category, error)
		DeleteCategory(ctx context.Context, userID, id uuid.UUID) error
	}

	PurchaseRepository interface {
		ListPurchases(ctx context.Context, userID uuid.UUID) ([]core.Purchase, error)
		GetPurchase(ctx context.Context, userID, id uuid.UUID) (core.Purchase, error)
		// CreatePurchase also inserts and links backing when it is not nil.
		CreatePurchase(ctx context.Context, userID uuid.UUID, in core.PurchaseInput, backing *core.TransactionInput) (core.Purchase, error)
		UpdatePurchase(ctx context.Context, userID, id uuid.UUID, p core.PurchasePatch, backing *core.TransactionInput) (core.Purchase, error)
		DeletePurchase(ctx context.Context, userID, id uuid.UUID) error
	}

	PurchaseCategoryRepository interface {
		// ListPurchaseCategories excludes tombstoned rows unless includeDeleted.
		ListPurchaseCategories(ctx context.Context, userID uuid.UUID, includeDeleted bool) ([]core.PurchaseCategory, error)
		CreatePurchaseCategory(ctx context.Context, userID uuid.UUID, in core.PurchaseCategoryInput) (core.PurchaseCategory, error)
		UpdatePurchaseCategory(ctx context.Context, userID, id uuid.UUID, p core.PurchaseCategoryPatch) (core.PurchaseCategory, error)
		// DeletePurchaseCategory tombstones the row.
		DeletePurchaseCategory(ctx context.Context, userID, id uuid.UUID, at time.Time) error
	}

	LendBorrowRepository interface {
		ListLendBorrows(ctx context.Context, userID uuid.UUID) ([]core.LendBorrow, error)
		GetLendBorrow(ctx context.Context, userID, id uuid.UUID) (core.LendBorrow, error)
		CreateLendBorrow(ctx context.Context, userID uuid.UUID, in core.LendBorrowInput) (core.LendBorrow, error)
		UpdateLendBorrow(ctx context.Context, userID, id uuid.UUID, p core.LendBorrowPatch) (core.LendBorrow, error)
		DeleteLendBorrow(ctx context.Context, userID, id uuid.UUID) error
		ListLendBorrowReturns(ctx context.Context, userID uuid.UUID) ([]core.LendBorrowReturn, error)
		// RecordReturn fails with core.ErrReturnExceedsBalance when the amount
		// is above the remaining balance and settles the record when the
		// balance reaches zero.
		RecordReturn(ctx context.Context, userID, lendBorrowID uuid.UUID, in core.ReturnInput) (core.LendBorrowReturn, core.LendBorrow, error)
		// MarkOverdue flips active records due before now's day to overdue.
		MarkOverdue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
		MarkAllOverdue(ctx context.Context, now time.Time) (int, error)
	}

	DonationSavingRepository interface {
		ListDonationSavings(ctx context.Context, userID uuid.UUID) ([]core.DonationSavingRecord, error)
		CreateDonationSaving(ctx context.Context, userID uuid.UUID, in core.DonationSavingInput) (core.DonationSavingRecord, error)
		UpdateDonationSaving(ctx context.Context, userID, id uuid.UUID, p core.DonationSavingPatch) (core.DonationSavingRecord, error)
		DeleteDonationSaving(ctx context.Context, userID, id uuid.UUID) error
	}

	SavingsGoalRepository interface {
		ListSavingsGoals(ctx context.Context, userID uuid.UUID) ([]core.SavingsGoal, error)
		CreateSavingsGoal(ctx context.Context, userID uuid.UUID, in core.SavingsGoalInput) (core.SavingsGoal, error)
		UpdateSavingsGoal(ctx context.Context, userID, id uuid.UUID, p core.SavingsGoalPatch) (core.SavingsGoal, error)
		DeleteSavingsGoal(ctx context.Context, userID, id uuid.UUID) error
	}

	DPSTransferRepository interface {
		ListDPSTransfers(ctx context.Context, userID uuid.UUID) ([]core.DPSTransfer, error)
		// TransferDPS inserts the source expense leg, the savings income leg
		// and the audit row atomically.
		TransferDPS(ctx context.Context, userID uuid.UUID, legs [2]core.TransactionInput) (core.DPSTransfer, error)
		// LastDPSTransfer returns core.ErrNotFound when the account never funded.
		LastDPSTransfer(ctx context.Context, userID, fromAccountID uuid.UUID) (core.DPSTransfer, error)
	}
)

// Backend groups every repository port.
type Backend interface {
	UserRepository
	AccountRepository
	TransactionRepository
	CategoryRepository
	PurchaseRepository
	PurchaseCategoryRepository
	LendBorrowRepository
	DonationSavingRepository
	SavingsGoalRepository
	DPSTransferRepository
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// PostgreSQL specific
	DatabaseURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
