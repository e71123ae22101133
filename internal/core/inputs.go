package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxNameLength = 200

type (
	AccountInput struct {
		Name              string              `json:"name"`
		Type              AccountType         `json:"type"`
		InitialBalance    decimal.Decimal     `json:"initial_balance"`
		Currency          string              `json:"currency"`
		IsActive          *bool               `json:"is_active"`
		Description       string              `json:"description"`
		HasDPS            bool                `json:"has_dps"`
		DPSType           DPSType             `json:"dps_type"`
		DPSAmountType     DPSAmountType       `json:"dps_amount_type"`
		DPSFixedAmount    decimal.NullDecimal `json:"dps_fixed_amount"`
		DPSSavingsAccount *uuid.UUID          `json:"dps_savings_account_id"`
	}

	AccountPatch struct {
		Name              *string                   `json:"name"`
		Type              *AccountType              `json:"type"`
		InitialBalance    *decimal.Decimal          `json:"initial_balance"`
		Currency          *string                   `json:"currency"`
		IsActive          *bool                     `json:"is_active"`
		Description       *string                   `json:"description"`
		HasDPS            *bool                     `json:"has_dps"`
		DPSType           *DPSType                  `json:"dps_type"`
		DPSAmountType     *DPSAmountType            `json:"dps_amount_type"`
		DPSFixedAmount    Optional[decimal.Decimal] `json:"dps_fixed_amount"`
		DPSSavingsAccount Optional[uuid.UUID]       `json:"dps_savings_account_id"`
	}

	TransactionInput struct {
		AccountID   uuid.UUID       `json:"account_id"`
		Type        TransactionType `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        time.Time       `json:"date"`
		Tags        []string        `json:"tags"`
		Note        string          `json:"note"`
		// Ref is assigned by the store when empty.
		Ref string `json:"-"`
	}

	TransactionPatch struct {
		AccountID   *uuid.UUID       `json:"account_id"`
		Type        *TransactionType `json:"type"`
		Amount      *decimal.Decimal `json:"amount"`
		Description *string          `json:"description"`
		Category    *string          `json:"category"`
		Date        *time.Time       `json:"date"`
		Tags        *[]string        `json:"tags"`
		Note        *string          `json:"note"`
	}

	CategoryInput struct {
		Name  string          `json:"name"`
		Type  TransactionType `json:"type"`
		Color string          `json:"color"`
		Icon  string          `json:"icon"`
	}

	CategoryPatch struct {
		Name  *string          `json:"name"`
		Type  *TransactionType `json:"type"`
		Color *string          `json:"color"`
		Icon  *string          `json:"icon"`
	}

	PurchaseInput struct {
		ItemName     string          `json:"item_name"`
		Category     string          `json:"category"`
		Price        decimal.Decimal `json:"price"`
		Currency     string          `json:"currency"`
		PurchaseDate time.Time       `json:"purchase_date"`
		Status       PurchaseStatus  `json:"status"`
		Priority     Priority        `json:"priority"`
		Notes        string          `json:"notes"`
		AccountID    *uuid.UUID      `json:"account_id"`
		// TransactionID is set by the store when it creates a backing transaction.
		TransactionID *uuid.UUID `json:"-"`
	}

	PurchasePatch struct {
		ItemName      *string             `json:"item_name"`
		Category      *string             `json:"category"`
		Price         *decimal.Decimal    `json:"price"`
		Currency      *string             `json:"currency"`
		PurchaseDate  *time.Time          `json:"purchase_date"`
		Status        *PurchaseStatus     `json:"status"`
		Priority      *Priority           `json:"priority"`
		Notes         *string             `json:"notes"`
		AccountID     Optional[uuid.UUID] `json:"account_id"`
		TransactionID Optional[uuid.UUID] `json:"transaction_id"`
	}

	PurchaseCategoryInput struct {
		CategoryName  string          `json:"category_name"`
		Description   string          `json:"description"`
		MonthlyBudget decimal.Decimal `json:"monthly_budget"`
		Currency      string          `json:"currency"`
		CategoryColor string          `json:"category_color"`
	}

	PurchaseCategoryPatch struct {
		CategoryName  *string          `json:"category_name"`
		Description   *string          `json:"description"`
		MonthlyBudget *decimal.Decimal `json:"monthly_budget"`
		Currency      *string          `json:"currency"`
		CategoryColor *string          `json:"category_color"`
	}

	LendBorrowInput struct {
		Type       LendBorrowType  `json:"type"`
		PersonName string          `json:"person_name"`
		Amount     decimal.Decimal `json:"amount"`
		Currency   string          `json:"currency"`
		DueDate    *time.Time      `json:"due_date"`
		Notes      string          `json:"notes"`
	}

	LendBorrowPatch struct {
		Type       *LendBorrowType     `json:"type"`
		PersonName *string             `json:"person_name"`
		Amount     *decimal.Decimal    `json:"amount"`
		Currency   *string             `json:"currency"`
		DueDate    Optional[time.Time] `json:"due_date"`
		Status     *LendBorrowStatus   `json:"status"`
		Notes      *string             `json:"notes"`
	}

	ReturnInput struct {
		Amount     decimal.Decimal `json:"amount"`
		ReturnDate time.Time       `json:"return_date"`
		Note       string          `json:"note"`
	}

	DonationSavingInput struct {
		Type          DonationSavingType   `json:"type"`
		Amount        decimal.Decimal      `json:"amount"`
		Currency      string               `json:"currency"`
		Mode          DonationSavingMode   `json:"mode"`
		ModeValue     decimal.Decimal      `json:"mode_value"`
		Status        DonationSavingStatus `json:"status"`
		TransactionID *uuid.UUID           `json:"transaction_id"`
		Note          string               `json:"note"`
	}

	DonationSavingPatch struct {
		Type          *DonationSavingType   `json:"type"`
		Amount        *decimal.Decimal      `json:"amount"`
		Currency      *string               `json:"currency"`
		Mode          *DonationSavingMode   `json:"mode"`
		ModeValue     *decimal.Decimal      `json:"mode_value"`
		Status        *DonationSavingStatus `json:"status"`
		TransactionID Optional[uuid.UUID]   `json:"transaction_id"`
		Note          *string               `json:"note"`
	}

	SavingsGoalInput struct {
		Name             string          `json:"name"`
		Description      string          `json:"description"`
		TargetAmount     decimal.Decimal `json:"target_amount"`
		CurrentAmount    decimal.Decimal `json:"current_amount"`
		SourceAccountID  *uuid.UUID      `json:"source_account_id"`
		SavingsAccountID *uuid.UUID      `json:"savings_account_id"`
		TargetDate       *time.Time      `json:"target_date"`
	}

	SavingsGoalPatch struct {
		Name             *string             `json:"name"`
		Description      *string             `json:"description"`
		TargetAmount     *decimal.Decimal    `json:"target_amount"`
		CurrentAmount    *decimal.Decimal    `json:"current_amount"`
		SourceAccountID  Optional[uuid.UUID] `json:"source_account_id"`
		SavingsAccountID Optional[uuid.UUID] `json:"savings_account_id"`
		TargetDate       Optional[time.Time] `json:"target_date"`
	}

	TransferInput struct {
		FromAccountID uuid.UUID       `json:"from_account_id"`
		ToAccountID   uuid.UUID       `json:"to_account_id"`
		FromAmount    decimal.Decimal `json:"from_amount"`
		ExchangeRate  decimal.Decimal `json:"exchange_rate"`
		Description   string          `json:"description"`
		Date          time.Time       `json:"date"`
	}

	DPSTransferInput struct {
		FromAccountID uuid.UUID       `json:"from_account_id"`
		Amount        decimal.Decimal `json:"amount"`
		Date          time.Time       `json:"date"`
	}
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func validName(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid("%s is required", field)
	}
	if len(v) > maxNameLength {
		return invalid("%s too long (max %d characters)", field, maxNameLength)
	}
	return nil
}

func validPositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return invalid("%s must be positive", field)
	}
	return nil
}

func validCurrencyField(c string) error {
	if !ValidCurrency(c) {
		return invalid("invalid currency %q", c)
	}
	return nil
}

func (in *AccountInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Currency = NormalizeCurrency(in.Currency)
	if in.IsActive == nil {
		active := true
		in.IsActive = &active
	}
	if in.HasDPS {
		if in.DPSType == "" {
			in.DPSType = DPSMonthly
		}
		if in.DPSAmountType == "" {
			in.DPSAmountType = DPSFixed
		}
	}
}

func (in AccountInput) Validate() error {
	if err := validName("name", in.Name); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return invalid("invalid account type %q", in.Type)
	}
	if err := validCurrencyField(in.Currency); err != nil {
		return err
	}
	if in.InitialBalance.IsNegative() && in.Type != Credit {
		return invalid("initial balance cannot be negative for %s accounts", in.Type)
	}
	if in.HasDPS {
		if in.DPSSavingsAccount == nil {
			return invalid("dps requires a savings account")
		}
		if in.DPSType != DPSMonthly && in.DPSType != DPSFlexible {
			return invalid("invalid dps type %q", in.DPSType)
		}
		if in.DPSAmountType != DPSFixed && in.DPSAmountType != DPSUpTo {
			return invalid("invalid dps amount type %q", in.DPSAmountType)
		}
		if in.DPSFixedAmount.Valid && !in.DPSFixedAmount.Decimal.IsPositive() {
			return invalid("dps amount must be positive")
		}
	}
	return nil
}

func (p AccountPatch) Validate() error {
	if p.Name != nil {
		if err := validName("name", *p.Name); err != nil {
			return err
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return invalid("invalid account type %q", *p.Type)
	}
	if p.Currency != nil {
		if err := validCurrencyField(NormalizeCurrency(*p.Currency)); err != nil {
			return err
		}
	}
	if p.DPSFixedAmount.Value != nil && !p.DPSFixedAmount.Value.IsPositive() {
		return invalid("dps amount must be positive")
	}
	return nil
}

// Apply writes the set fields of p onto a.
func (p AccountPatch) Apply(a *Account) {
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.InitialBalance != nil {
		a.InitialBalance = *p.InitialBalance
	}
	if p.Currency != nil {
		a.Currency = NormalizeCurrency(*p.Currency)
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.HasDPS != nil {
		a.HasDPS = *p.HasDPS
	}
	if p.DPSType != nil {
		a.DPSType = *p.DPSType
	}
	if p.DPSAmountType != nil {
		a.DPSAmountType = *p.DPSAmountType
	}
	if p.DPSFixedAmount.Set {
		if p.DPSFixedAmount.Value == nil {
			a.DPSFixedAmount = decimal.NullDecimal{}
		} else {
			a.DPSFixedAmount = decimal.NewNullDecimal(*p.DPSFixedAmount.Value)
		}
	}
	if p.DPSSavingsAccount.Set {
		a.DPSSavingsAccount = p.DPSSavingsAccount.Value
	}
}

func (in *TransactionInput) Normalize() {
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Amount = RoundMoney(in.Amount)
	if in.Tags == nil {
		in.Tags = []string{}
	}
}

func (in TransactionInput) Validate() error {
	if in.AccountID == uuid.Nil {
		return invalid("account_id is required")
	}
	if !in.Type.Valid() {
		return invalid("invalid transaction type %q", in.Type)
	}
	if err := validPositive("amount", in.Amount); err != nil {
		return err
	}
	if err := validName("description", in.Description); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return invalid("date is required")
	}
	return nil
}

func (p TransactionPatch) Validate() error {
	if p.AccountID != nil && *p.AccountID == uuid.Nil {
		return invalid("account_id is required")
	}
	if p.Type != nil && !p.Type.Valid() {
		return invalid("invalid transaction type %q", *p.Type)
	}
	if p.Amount != nil {
		if err := validPositive("amount", *p.Amount); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validName("description", *p.Description); err != nil {
			return err
		}
	}
	if p.Date != nil && p.Date.IsZero() {
		return invalid("date is required")
	}
	return nil
}

func (p TransactionPatch) Apply(t *Transaction) {
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = RoundMoney(*p.Amount)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Tags != nil {
		t.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
}

func (in CategoryInput) Validate() error {
	if err := validName("name", in.Name); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return invalid("invalid category type %q", in.Type)
	}
	return nil
}

func (p CategoryPatch) Validate() error {
	if p.Name != nil {
		if err := validName("name", *p.Name); err != nil {
			return err
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return invalid("invalid category type %q", *p.Type)
	}
	return nil
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
}

func (in *PurchaseInput) Normalize() {
	in.ItemName = strings.TrimSpace(in.ItemName)
	in.Currency = NormalizeCurrency(in.Currency)
	in.Price = RoundMoney(in.Price)
	if in.Status == "" {
		in.Status = Planned
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
}

func (in PurchaseInput) Validate() error {
	if err := validName("item_name", in.ItemName); err != nil {
		return err
	}
	if err := validPositive("price", in.Price); err != nil {
		return err
	}
	if err := validCurrencyField(in.Currency); err != nil {
		return err
	}
	if !in.Status.Valid() {
		return invalid("invalid purchase status %q", in.Status)
	}
	if !in.Priority.Valid() {
		return invalid("invalid priority %q", in.Priority)
	}
	if in.PurchaseDate.IsZero() {
		return invalid("purchase_date is required")
	}
	return nil
}

func (p PurchasePatch) Validate() error {
	if p.ItemName != nil {
		if err := validName("item_name", *p.ItemName); err != nil {
			return err
		}
	}
	if p.Price != nil {
		if err := validPositive("price", *p.Price); err != nil {
			return err
		}
	}
	if p.Currency != nil {
		if err := validCurrencyField(NormalizeCurrency(*p.Currency)); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("invalid purchase status %q", *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return invalid("invalid priority %q", *p.Priority)
	}
	return nil
}

func (p PurchasePatch) Apply(pu *Purchase) {
	if p.ItemName != nil {
		pu.ItemName = strings.TrimSpace(*p.ItemName)
	}
	if p.Category != nil {
		pu.Category = *p.Category
	}
	if p.Price != nil {
		pu.Price = RoundMoney(*p.Price)
	}
	if p.Currency != nil {
		pu.Currency = NormalizeCurrency(*p.Currency)
	}
	if p.PurchaseDate != nil {
		pu.PurchaseDate = *p.PurchaseDate
	}
	if p.Status != nil {
		pu.Status = *p.Status
	}
	if p.Priority != nil {
		pu.Priority = *p.Priority
	}
	if p.Notes != nil {
		pu.Notes = *p.Notes
	}
	if p.AccountID.Set {
		pu.AccountID = p.AccountID.Value
	}
	if p.TransactionID.Set {
		pu.TransactionID = p.TransactionID.Value
	}
}

func (in *PurchaseCategoryInput) Normalize() {
	in.CategoryName = strings.TrimSpace(in.CategoryName)
	in.Currency = NormalizeCurrency(in.Currency)
}

func (in PurchaseCategoryInput) Validate() error {
	if err := validName("category_name", in.CategoryName); err != nil {
		return err
	}
	if in.MonthlyBudget.IsNegative() {
		return invalid("monthly_budget cannot be negative")
	}
	return validCurrencyField(in.Currency)
}

func (p PurchaseCategoryPatch) Validate() error {
	if p.CategoryName != nil {
		if err := validName("category_name", *p.CategoryName); err != nil {
			return err
		}
	}
	if p.MonthlyBudget != nil && p.MonthlyBudget.IsNegative() {
		return invalid("monthly_budget cannot be negative")
	}
	if p.Currency != nil {
		return validCurrencyField(NormalizeCurrency(*p.Currency))
	}
	return nil
}

func (p PurchaseCategoryPatch) Apply(pc *PurchaseCategory) {
	if p.CategoryName != nil {
		pc.CategoryName = strings.TrimSpace(*p.CategoryName)
	}
	if p.Description != nil {
		pc.Description = *p.Description
	}
	if p.MonthlyBudget != nil {
		pc.MonthlyBudget = *p.MonthlyBudget
	}
	if p.Currency != nil {
		pc.Currency = NormalizeCurrency(*p.Currency)
	}
	if p.CategoryColor != nil {
		pc.CategoryColor = *p.CategoryColor
	}
}

func (in *LendBorrowInput) Normalize() {
	in.PersonName = strings.TrimSpace(in.PersonName)
	in.Currency = NormalizeCurrency(in.Currency)
	in.Amount = RoundMoney(in.Amount)
}

func (in LendBorrowInput) Validate() error {
	if !in.Type.Valid() {
		return invalid("invalid lend/borrow type %q", in.Type)
	}
	if err := validName("person_name", in.PersonName); err != nil {
		return err
	}
	if err := validPositive("amount", in.Amount); err != nil {
		return err
	}
	return validCurrencyField(in.Currency)
}

func (p LendBorrowPatch) Validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return invalid("invalid lend/borrow type %q", *p.Type)
	}
	if p.PersonName != nil {
		if err := validName("person_name", *p.PersonName); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		if err := validPositive("amount", *p.Amount); err != nil {
			return err
		}
	}
	if p.Currency != nil {
		if err := validCurrencyField(NormalizeCurrency(*p.Currency)); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("invalid status %q", *p.Status)
	}
	return nil
}

func (p LendBorrowPatch) Apply(lb *LendBorrow) {
	if p.Type != nil {
		lb.Type = *p.Type
	}
	if p.PersonName != nil {
		lb.PersonName = strings.TrimSpace(*p.PersonName)
	}
	if p.Amount != nil {
		lb.Amount = RoundMoney(*p.Amount)
	}
	if p.Currency != nil {
		lb.Currency = NormalizeCurrency(*p.Currency)
	}
	if p.DueDate.Set {
		lb.DueDate = p.DueDate.Value
	}
	if p.Status != nil {
		lb.Status = *p.Status
	}
	if p.Notes != nil {
		lb.Notes = *p.Notes
	}
}

func (in ReturnInput) Validate() error {
	if err := validPositive("amount", in.Amount); err != nil {
		return err
	}
	if in.ReturnDate.IsZero() {
		return invalid("return_date is required")
	}
	return nil
}

func (in *DonationSavingInput) Normalize() {
	in.Currency = NormalizeCurrency(in.Currency)
	in.Amount = RoundMoney(in.Amount)
	if in.Mode == "" {
		in.Mode = ModeFixed
	}
	if in.Status == "" {
		in.Status = DonationPending
	}
}

func (in DonationSavingInput) Validate() error {
	if !in.Type.Valid() {
		return invalid("invalid record type %q", in.Type)
	}
	if err := validPositive("amount", in.Amount); err != nil {
		return err
	}
	if err := validCurrencyField(in.Currency); err != nil {
		return err
	}
	if !in.Mode.Valid() {
		return invalid("invalid mode %q", in.Mode)
	}
	if in.Mode == ModePercent && (!in.ModeValue.IsPositive() || in.ModeValue.GreaterThan(decimal.NewFromInt(100))) {
		return invalid("percent mode value must be within (0, 100]")
	}
	if !in.Status.Valid() {
		return invalid("invalid status %q", in.Status)
	}
	return nil
}

func (p DonationSavingPatch) Validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return invalid("invalid record type %q", *p.Type)
	}
	if p.Amount != nil {
		if err := validPositive("amount", *p.Amount); err != nil {
			return err
		}
	}
	if p.Currency != nil {
		if err := validCurrencyField(NormalizeCurrency(*p.Currency)); err != nil {
			return err
		}
	}
	if p.Mode != nil && !p.Mode.Valid() {
		return invalid("invalid mode %q", *p.Mode)
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("invalid status %q", *p.Status)
	}
	return nil
}

func (p DonationSavingPatch) Apply(r *DonationSavingRecord) {
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Amount != nil {
		r.Amount = RoundMoney(*p.Amount)
	}
	if p.Currency != nil {
		r.Currency = NormalizeCurrency(*p.Currency)
	}
	if p.Mode != nil {
		r.Mode = *p.Mode
	}
	if p.ModeValue != nil {
		r.ModeValue = *p.ModeValue
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.TransactionID.Set {
		r.TransactionID = p.TransactionID.Value
	}
	if p.Note != nil {
		r.Note = *p.Note
	}
}

func (in SavingsGoalInput) Validate() error {
	if err := validName("name", in.Name); err != nil {
		return err
	}
	if err := validPositive("target_amount", in.TargetAmount); err != nil {
		return err
	}
	if in.CurrentAmount.IsNegative() {
		return invalid("current_amount cannot be negative")
	}
	return nil
}

func (p SavingsGoalPatch) Validate() error {
	if p.Name != nil {
		if err := validName("name", *p.Name); err != nil {
			return err
		}
	}
	if p.TargetAmount != nil {
		if err := validPositive("target_amount", *p.TargetAmount); err != nil {
			return err
		}
	}
	if p.CurrentAmount != nil && p.CurrentAmount.IsNegative() {
		return invalid("current_amount cannot be negative")
	}
	return nil
}

func (p SavingsGoalPatch) Apply(g *SavingsGoal) {
	if p.Name != nil {
		g.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if p.SourceAccountID.Set {
		g.SourceAccountID = p.SourceAccountID.Value
	}
	if p.SavingsAccountID.Set {
		g.SavingsAccountID = p.SavingsAccountID.Value
	}
	if p.TargetDate.Set {
		g.TargetDate = p.TargetDate.Value
	}
}

func (in *TransferInput) Normalize() {
	in.FromAmount = RoundMoney(in.FromAmount)
	if in.ExchangeRate.IsZero() {
		in.ExchangeRate = decimal.NewFromInt(1)
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
}

func (in TransferInput) Validate() error {
	if in.FromAccountID == uuid.Nil || in.ToAccountID == uuid.Nil {
		return invalid("both accounts are required")
	}
	if in.FromAccountID == in.ToAccountID {
		return fmt.Errorf("%w: %w", ErrValidation, ErrSameAccount)
	}
	if err := validPositive("from_amount", in.FromAmount); err != nil {
		return err
	}
	if err := validPositive("exchange_rate", in.ExchangeRate); err != nil {
		return err
	}
	// the credited leg is rounded separately and can vanish
	return validPositive("to_amount", in.ToAmount())
}

// ToAmount is the amount credited to the destination account.
func (in TransferInput) ToAmount() decimal.Decimal {
	return RoundMoney(in.FromAmount.Mul(in.ExchangeRate))
}

func (in DPSTransferInput) Validate() error {
	if in.FromAccountID == uuid.Nil {
		return invalid("from_account_id is required")
	}
	return validPositive("amount", in.Amount)
}
