package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
	Cash       AccountType = "cash"

	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	DPSMonthly  DPSType = "monthly"
	DPSFlexible DPSType = "flexible"

	DPSFixed DPSAmountType = "fixed"
	DPSUpTo  DPSAmountType = "upto"

	Planned   PurchaseStatus = "planned"
	Purchased PurchaseStatus = "purchased"
	Cancelled PurchaseStatus = "cancelled"

	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	Lend   LendBorrowType = "lend"
	Borrow LendBorrowType = "borrow"

	LendBorrowActive  LendBorrowStatus = "active"
	LendBorrowSettled LendBorrowStatus = "settled"
	LendBorrowOverdue LendBorrowStatus = "overdue"

	Saving   DonationSavingType = "saving"
	Donation DonationSavingType = "donation"

	ModeFixed   DonationSavingMode = "fixed"
	ModePercent DonationSavingMode = "percent"

	DonationPending DonationSavingStatus = "pending"
	DonationDonated DonationSavingStatus = "donated"
)

type (
	AccountType          string
	TransactionType      string
	DPSType              string
	DPSAmountType        string
	PurchaseStatus       string
	Priority             string
	LendBorrowType       string
	LendBorrowStatus     string
	DonationSavingType   string
	DonationSavingMode   string
	DonationSavingStatus string

	User struct {
		ID           uuid.UUID `json:"id"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Account struct {
		ID                uuid.UUID           `json:"id"`
		UserID            uuid.UUID           `json:"user_id"`
		Name              string              `json:"name"`
		Type              AccountType         `json:"type"`
		InitialBalance    decimal.Decimal     `json:"initial_balance"`
		CalculatedBalance decimal.Decimal     `json:"calculated_balance"`
		Currency          string              `json:"currency"`
		IsActive          bool                `json:"is_active"`
		Description       string              `json:"description"`
		HasDPS            bool                `json:"has_dps"`
		DPSType           DPSType             `json:"dps_type,omitempty"`
		DPSAmountType     DPSAmountType       `json:"dps_amount_type,omitempty"`
		DPSFixedAmount    decimal.NullDecimal `json:"dps_fixed_amount"`
		DPSSavingsAccount *uuid.UUID          `json:"dps_savings_account_id"`
		CreatedAt         time.Time           `json:"created_at"`
		UpdatedAt         time.Time           `json:"updated_at"`
	}

	Transaction struct {
		ID          uuid.UUID       `json:"id"`
		UserID      uuid.UUID       `json:"user_id"`
		AccountID   uuid.UUID       `json:"account_id"`
		Type        TransactionType `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        time.Time       `json:"date"`
		Tags        []string        `json:"tags"`
		Ref         string          `json:"transaction_id"`
		Note        string          `json:"note"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Category struct {
		ID        uuid.UUID       `json:"id"`
		UserID    uuid.UUID       `json:"user_id"`
		Name      string          `json:"name"`
		Type      TransactionType `json:"type"`
		Color     string          `json:"color"`
		Icon      string          `json:"icon"`
		CreatedAt time.Time       `json:"created_at"`
	}

	Purchase struct {
		ID            uuid.UUID       `json:"id"`
		UserID        uuid.UUID       `json:"user_id"`
		ItemName      string          `json:"item_name"`
		Category      string          `json:"category"`
		Price         decimal.Decimal `json:"price"`
		Currency      string          `json:"currency"`
		PurchaseDate  time.Time       `json:"purchase_date"`
		Status        PurchaseStatus  `json:"status"`
		Priority      Priority        `json:"priority"`
		Notes         string          `json:"notes"`
		AccountID     *uuid.UUID      `json:"account_id"`
		TransactionID *uuid.UUID      `json:"transaction_id"`
		CreatedAt     time.Time       `json:"created_at"`
	}

	PurchaseCategory struct {
		ID            uuid.UUID       `json:"id"`
		UserID        uuid.UUID       `json:"user_id"`
		CategoryName  string          `json:"category_name"`
		Description   string          `json:"description"`
		MonthlyBudget decimal.Decimal `json:"monthly_budget"`
		Currency      string          `json:"currency"`
		CategoryColor string          `json:"category_color"`
		DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
		CreatedAt     time.Time       `json:"created_at"`
	}

	LendBorrow struct {
		ID         uuid.UUID        `json:"id"`
		UserID     uuid.UUID        `json:"user_id"`
		Type       LendBorrowType   `json:"type"`
		PersonName string           `json:"person_name"`
		Amount     decimal.Decimal  `json:"amount"`
		Currency   string           `json:"currency"`
		DueDate    *time.Time       `json:"due_date"`
		Status     LendBorrowStatus `json:"status"`
		Notes      string           `json:"notes"`
		CreatedAt  time.Time        `json:"created_at"`
		UpdatedAt  time.Time        `json:"updated_at"`
	}

	LendBorrowReturn struct {
		ID           uuid.UUID       `json:"id"`
		LendBorrowID uuid.UUID       `json:"lend_borrow_id"`
		Amount       decimal.Decimal `json:"amount"`
		ReturnDate   time.Time       `json:"return_date"`
		Note         string          `json:"note"`
		CreatedAt    time.Time       `json:"created_at"`
	}

	DonationSavingRecord struct {
		ID            uuid.UUID            `json:"id"`
		UserID        uuid.UUID            `json:"user_id"`
		Type          DonationSavingType   `json:"type"`
		Amount        decimal.Decimal      `json:"amount"`
		Currency      string               `json:"currency"`
		Mode          DonationSavingMode   `json:"mode"`
		ModeValue     decimal.Decimal      `json:"mode_value"`
		Status        DonationSavingStatus `json:"status"`
		TransactionID *uuid.UUID           `json:"transaction_id"`
		Note          string               `json:"note"`
		CreatedAt     time.Time            `json:"created_at"`
	}

	SavingsGoal struct {
		ID               uuid.UUID       `json:"id"`
		UserID           uuid.UUID       `json:"user_id"`
		Name             string          `json:"name"`
		Description      string          `json:"description"`
		TargetAmount     decimal.Decimal `json:"target_amount"`
		CurrentAmount    decimal.Decimal `json:"current_amount"`
		SourceAccountID  *uuid.UUID      `json:"source_account_id"`
		SavingsAccountID *uuid.UUID      `json:"savings_account_id"`
		TargetDate       *time.Time      `json:"target_date"`
		CreatedAt        time.Time       `json:"created_at"`
	}

	// DPSTransfer is the audit row written next to the two legs of a DPS transfer.
	DPSTransfer struct {
		ID                uuid.UUID       `json:"id"`
		UserID            uuid.UUID       `json:"user_id"`
		FromAccountID     uuid.UUID       `json:"from_account_id"`
		ToAccountID       uuid.UUID       `json:"to_account_id"`
		Amount            decimal.Decimal `json:"amount"`
		Date              time.Time       `json:"date"`
		FromTransactionID uuid.UUID       `json:"from_transaction_id"`
		ToTransactionID   uuid.UUID       `json:"to_transaction_id"`
		CreatedAt         time.Time       `json:"created_at"`
	}
)

var (
	ErrNotAuthenticated     = errors.New("user not authenticated")
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("conflict")
	ErrReturnExceedsBalance = errors.New("return exceeds remaining balance")
	ErrDPSNotConfigured     = errors.New("dps not configured for account")
	ErrSameAccount          = errors.New("source and destination account are the same")
)

func (t AccountType) Valid() bool {
	switch t {
	case Checking, Savings, Credit, Investment, Cash:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (s PurchaseStatus) Valid() bool {
	switch s {
	case Planned, Purchased, Cancelled:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (t LendBorrowType) Valid() bool {
	return t == Lend || t == Borrow
}

func (s LendBorrowStatus) Valid() bool {
	switch s {
	case LendBorrowActive, LendBorrowSettled, LendBorrowOverdue:
		return true
	}
	return false
}

// Open reports whether the record still carries an outstanding balance.
func (s LendBorrowStatus) Open() bool {
	return s == LendBorrowActive || s == LendBorrowOverdue
}

func (t DonationSavingType) Valid() bool {
	return t == Saving || t == Donation
}

func (m DonationSavingMode) Valid() bool {
	return m == ModeFixed || m == ModePercent
}

func (s DonationSavingStatus) Valid() bool {
	return s == DonationPending || s == DonationDonated
}

// IsTransfer reports whether the transaction is one leg of a transfer.
func (t Transaction) IsTransfer() bool {
	return IsTransferTags(t.Tags)
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// DPSEnabled reports whether the account auto-funds a savings account.
func (a Account) DPSEnabled() bool {
	return a.HasDPS && a.DPSSavingsAccount != nil
}

// Remaining returns the open balance of a lend/borrow record given its returns.
func (lb LendBorrow) Remaining(returns []LendBorrowReturn) decimal.Decimal {
	remaining := lb.Amount
	for _, r := range returns {
		if r.LendBorrowID == lb.ID {
			remaining = remaining.Sub(r.Amount)
		}
	}
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsOverdueAt reports whether an active record is past its due day at now.
func (lb LendBorrow) IsOverdueAt(now time.Time) bool {
	if lb.Status != LendBorrowActive || lb.DueDate == nil {
		return false
	}
	return DayOf(*lb.DueDate).Before(DayOf(now))
}

// Progress returns current/target as a percentage capped at 100.
func (g SavingsGoal) Progress() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	p := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).InexactFloat64()
	if p > 100 {
		return 100
	}
	return p
}

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthKey formats t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
