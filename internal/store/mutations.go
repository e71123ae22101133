package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// guard reports missing sessions before input errors.
func (s *Store) guard(validation error) error {
	if _, _, err := s.session(); err != nil {
		return s.fail(err)
	}
	if validation != nil {
		return s.fail(validation)
	}
	return nil
}

// write runs a backend mutation returning the affected row, publishes it and
// refreshes the listed collections.
func write[T any](s *Store, ctx context.Context, label string, c core.Collection, op core.ChangeOp,
	id func(T) uuid.UUID, fn func(context.Context, uuid.UUID) (T, error), refresh ...core.Collection) (T, error) {
	var (
		out    T
		userID uuid.UUID
	)
	err := s.call(ctx, label, func(ctx context.Context, uid uuid.UUID) error {
		var err error
		userID = uid
		out, err = fn(ctx, uid)
		return err
	})
	if err != nil {
		return out, err
	}
	s.publish(ctx, core.ChangeEvent{UserID: userID, Collection: c, Op: op, EntityID: id(out)})
	s.refresh(ctx, append([]core.Collection{c}, refresh...)...)
	return out, nil
}

func (s *Store) remove(ctx context.Context, label string, c core.Collection, id uuid.UUID,
	fn func(context.Context, uuid.UUID, uuid.UUID) error, refresh ...core.Collection) error {
	var userID uuid.UUID
	err := s.call(ctx, label, func(ctx context.Context, uid uuid.UUID) error {
		userID = uid
		return fn(ctx, uid, id)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, core.ChangeEvent{UserID: userID, Collection: c, Op: core.OpDeleted, EntityID: id})
	s.refresh(ctx, append([]core.Collection{c}, refresh...)...)
	return nil
}

func accountID(a core.Account) uuid.UUID                     { return a.ID }
func transactionID(t core.Transaction) uuid.UUID             { return t.ID }
func categoryID(c core.Category) uuid.UUID                   { return c.ID }
func purchaseID(p core.Purchase) uuid.UUID                   { return p.ID }
func purchaseCategoryID(p core.PurchaseCategory) uuid.UUID   { return p.ID }
func lendBorrowIDOf(lb core.LendBorrow) uuid.UUID            { return lb.ID }
func donationSavingID(r core.DonationSavingRecord) uuid.UUID { return r.ID }
func savingsGoalID(g core.SavingsGoal) uuid.UUID             { return g.ID }

// Accounts

func (s *Store) AddAccount(ctx context.Context, in core.AccountInput) (core.Account, error) {
	in.Normalize()
	if err := s.guard(in.Validate()); err != nil {
		return core.Account{}, err
	}
	return write(s, ctx, "add account", core.CollectionAccounts, core.OpCreated, accountID,
		func(ctx context.Context, userID uuid.UUID) (core.Account, error) {
			return s.backend.CreateAccount(ctx, userID, in)
		})
}

func (s *Store) UpdateAccount(ctx context.Context, id uuid.UUID, p core.AccountPatch) (core.Account, error) {
	if err := s.guard(p.Validate()); err != nil {
		return core.Account{}, err
	}
	if v := p.DPSSavingsAccount.Value; v != nil && *v == id {
		return core.Account{}, s.fail(fmt.Errorf("%w: %w", core.ErrValidation, core.ErrSameAccount))
	}
	return write(s, ctx, "update account", core.CollectionAccounts, core.OpUpdated, accountID,
		func(ctx context.Context, userID uuid.UUID) (core.Account, error) {
			return s.backend.UpdateAccount(ctx, userID, id, p)
		})
}

// DeleteAccount removes the account together with its transactions and the
// DPS links and transfers that reference it.
func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, "delete account", core.CollectionAccounts, id, s.backend.DeleteAccount,
		core.CollectionTransactions, core.CollectionDPSTransfers, core.CollectionPurchases, core.CollectionSavingsGoals)
}

// Transactions

func (s *Store) AddTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	in.Normalize()
	if err := s.guard(in.Validate()); err != nil {
		return core.Transaction{}, err
	}
	var userID uuid.UUID
	var out core.Transaction
	err := s.call(ctx, "add transaction", func(ctx context.Context, uid uuid.UUID) error {
		var err error
		userID = uid
		out, err = s.backend.CreateTransaction(ctx, uid, in)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.publishTransactions(ctx, userID, out)
	s.refresh(ctx, core.CollectionTransactions, core.CollectionAccounts)
	return out, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id uuid.UUID, p core.TransactionPatch) (core.Transaction, error) {
	if err := s.guard(p.Validate()); err != nil {
		return core.Transaction{}, err
	}
	return write(s, ctx, "update transaction", core.CollectionTransactions, core.OpUpdated, transactionID,
		func(ctx context.Context, userID uuid.UUID) (core.Transaction, error) {
			return s.backend.UpdateTransaction(ctx, userID, id, p)
		}, s.transactionDependents(id)...)
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, "delete transaction", core.CollectionTransactions, id, s.backend.DeleteTransaction,
		s.transactionDependents(id)...)
}

// transactionDependents lists the collections to refresh after transaction id changes.
func (s *Store) transactionDependents(id uuid.UUID) []core.Collection {
	deps := []core.Collection{core.CollectionAccounts}
	for _, p := range s.view().Purchases {
		if p.TransactionID != nil && *p.TransactionID == id {
			return append(deps, core.CollectionPurchases)
		}
	}
	return deps
}

func (s *Store) publishTransactions(ctx context.Context, userID uuid.UUID, txs ...core.Transaction) {
	for i := range txs {
		t := txs[i]
		s.publish(ctx, core.ChangeEvent{
			UserID:      userID,
			Collection:  core.CollectionTransactions,
			Op:          core.OpCreated,
			EntityID:    t.ID,
			Transaction: &t,
		})
	}
}

// Categories

// AddCategory creates a category. Expense categories are mirrored into
// purchase categories.
func (s *Store) AddCategory(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	if err := s.guard(in.Validate()); err != nil {
		return core.Category{}, err
	}
	c, err := write(s, ctx, "add category", core.CollectionCategories, core.OpCreated, categoryID,
		func(ctx context.Context, userID uuid.UUID) (core.Category, error) {
			return s.backend.CreateCategory(ctx, userID, in)
		})
	if err != nil {
		return c, err
	}
	if c.Type == core.Expense {
		if _, err := s.SyncPurchaseCategories(ctx); err != nil {
			s.logger.WarnContext(ctx, "Purchase category sync failed", log.FieldError, err.Error())
		}
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id uuid.UUID, p core.CategoryPatch) (core.Category, error) {
	if err := s.guard(p.Validate()); err != nil {
		return core.Category{}, err
	}
	return write(s, ctx, "update category", core.CollectionCategories, core.OpUpdated, categoryID,
		func(ctx context.Context, userID uuid.UUID) (core.Category, error) {
			return s.backend.UpdateCategory(ctx, userID, id, p)
		})
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, "delete category", core.CollectionCategories, id, s.backend.DeleteCategory)
}

// Purchases

// backingTransaction builds the expense that records a bought item.
func backingTransaction(p core.Purchase) *core.TransactionInput {
	if p.Status != core.Purchased || p.AccountID == nil || p.TransactionID != nil {
		return nil
	}
	in := core.TransactionInput{
		AccountID:   *p.AccountID,
		Type:        core.Expense,
		Amount:      p.Price,
		Description: p.ItemName,
		Category:    p.Category,
		Date:        p.PurchaseDate,
		Tags:        []string{core.TagPurchase},
		Note:        p.Notes,
	}
	in.Normalize()
	return &in
}

// AddPurchase creates a purchase. A purchased item with an account also
// gets a linked expense transaction.
func (s *Store) AddPurchase(ctx context.Context, in core.PurchaseInput) (core.Purchase, error) {
	in.Normalize()
	if err := s.guard(in.Validate()); err != nil {
		return core.Purchase{}, err
	}
	backing := backingTransaction(core.Purchase{
		ItemName: in.ItemName, Category: in.Category, Price: in.Price, PurchaseDate: in.PurchaseDate,
		Status: in.Status, Notes: in.Notes, AccountID: in.AccountID, TransactionID: in.TransactionID,
	})
	var deps []core.Collection
	if backing != nil {
		deps = []core.Collection{core.CollectionTransactions, core.CollectionAccounts}
	}
	return write(s, ctx, "add purchase", core.CollectionPurchases, core.OpCreated, purchaseID,
		func(ctx context.Context, userID uuid.UUID) (core.Purchase, error) {
			return s.backend.CreatePurchase(ctx, userID, in, backing)
		}, deps...)
}

// UpdatePurchase applies p. Moving an unlinked purchase with an account to
// purchased creates its expense transaction.
func (s *Store) UpdatePurchase(ctx context.Context, id uuid.UUID, p core.PurchasePatch) (core.Purchase, error) {
	if err := s.guard(p.Validate()); err != nil {
		return core.Purchase{}, err
	}
	var backing *core.TransactionInput
	err := s.call(ctx, "load purchase", func(ctx context.Context, userID uuid.UUID) error {
		current, err := s.backend.GetPurchase(ctx, userID, id)
		if err != nil {
			return err
		}
		p.Apply(&current)
		backing = backingTransaction(current)
		return nil
	})
	if err != nil {
		return core.Purchase{}, err
	}
	deps := []core.Collection{core.CollectionTransactions}
	if backing != nil {
		deps = append(deps, core.CollectionAccounts)
	}
	return write(s, ctx, "update purchase", core.CollectionPurchases, core.OpUpdated, purchaseID,
		func(ctx context.Context, userID uuid.UUID) (core.Purchase, error) {
			return s.backend.UpdatePurchase(ctx, userID, id, p, backing)
		}, deps...)
}

func (s *Store) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, "delete purchase", core.CollectionPurchases, id, s.backend.DeletePurchase)
}

// Purchase categories

func (s *Store) AddPurchaseCategory(ctx context.Context, in core.PurchaseCategoryInput) (core.PurchaseCategory, error) {
	if in.Currency == "" {
		in.Currency = s.currency
	}
	in.Normalize()
	if err := s.guard(in.Validate()); err != nil {
		return core.PurchaseCategory{}, err
	}
	return write(s, ctx, "add purchase category", core.CollectionPurchaseCategories, core.OpCreated, purchaseCategoryID,
		func(ctx context.Context, userID uuid.UUID) (core.PurchaseCategory, error) {
			return s.backend.CreatePurchaseCategory(ctx, userID, in)
		})
}

func (s *Store) UpdatePurchaseCategory(ctx context.Context, id uuid.UUID, p core.PurchaseCategoryPatch) (core.PurchaseCategory, error) {
	if err := s.guard(p.Validate()); err != nil {
		return core.PurchaseCategory{}, err
	}
	return write(s, ctx, "update purchase category", core.CollectionPurchaseCategories, core.OpUpdated, purchaseCategoryID,
		func(ctx context.Context, userID uuid.UUID) (core.PurchaseCategory, error) {
			return s.backend.UpdatePurchaseCategory(ctx, userID, id, p)
		})
}

// DeletePurchaseCategory tombstones the row so category sync never
// recreates it.
func (s *Store) DeletePurchaseCategory(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, "delete purchase category", core.CollectionPurchaseCategories, id,
		func(ctx context.Context, userID, id uuid.UUID) error {
			return s.backend.DeletePurchaseCategory(ctx, userID, id, s.now().UTC())
		})
}

// Lend/borrow

func (s *Store) AddLendBorrow(ctx context.Context, in core.LendBorrowInput) (core.LendBorrow, error) {
	in.Normalize()
	if err := s.guard(in.Validate()); err != nil {
		return core.LendBorrow{}, err
	}
	return write(s, ctx, "add lend/borrow", core.CollectionLendBorrows, core.OpCreated, lendBorrowIDOf,
		func(ctx context.Context, userID uuid.UUID) (core.LendBorrow, error) {
			return s.backend.CreateLendBorrow(ctx, userID, in)
		})
}

func (s *Store) UpdateLendBorrow(ctx context.Context, id uuid.UUID, p core.LendBorrowPatch) (core.LendBorrow, error) {
	if err := s.guard(p.Validate()); err != nil {
		return core.LendBorrow{}, err
	}
	return write(s, ctx, "update lend/borrow", core.CollectionLendBorrows, core.OpUpdated, lendBorrowIDOf,
		func(ctx context.Context, userID uuid.UUID) (core.LendBorrow, error) {
			return s.backend.UpdateLendBorrow(ctx, userID, id, p)
		})
}

func (s *Store) DeleteLendBorrow(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, "delete lend/borrow", core.CollectionLendBorrows, id, s.backend.DeleteLendBorrow,
		core.CollectionLendBorrowReturns)
}

// Donations and savings

func (s *Store) AddDonationSaving(ctx context.Context, in core.DonationSavingInput) (core.DonationSavingRecord, error) {
	in.Normalize()
	if err := s.guard(in.Validate()); err != nil {
		return core.DonationSavingRecord{}, err
	}
	return write(s, ctx, "add donation/saving", core.CollectionDonationSavings, core.OpCreated, donationSavingID,
		func(ctx context.Context, userID uuid.UUID) (core.DonationSavingRecord, error) {
			return s.backend.CreateDonationSaving(ctx, userID, in)
		})
}

func (s *Store) UpdateDonationSaving(ctx context.Context, id uuid.UUID, p core.DonationSavingPatch) (core.DonationSavingRecord, error) {
	if err := s.guard(p.Validate()); err != nil {
		return core.DonationSavingRecord{}, err
	}
	return write(s, ctx, "update donation/saving", core.CollectionDonationSavings, core.OpUpdated, donationSavingID,
		func(ctx context.Context, userID uuid.UUID) (core.DonationSavingRecord, error) {
			return s.backend.UpdateDonationSaving(ctx, userID, id, p)
		})
}

func (s *Store) DeleteDonationSaving(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, "delete donation/saving", core.CollectionDonationSavings, id, s.backend.DeleteDonationSaving)
}

// Savings goals

func (s *Store) AddSavingsGoal(ctx context.Context, in core.SavingsGoalInput) (core.SavingsGoal, error) {
	if err := s.guard(in.Validate()); err != nil {
		return core.SavingsGoal{}, err
	}
	return write(s, ctx, "add savings goal", core.CollectionSavingsGoals, core.OpCreated, savingsGoalID,
		func(ctx context.Context, userID uuid.UUID) (core.SavingsGoal, error) {
			return s.backend.CreateSavingsGoal(ctx, userID, in)
		})
}

func (s *Store) UpdateSavingsGoal(ctx context.Context, id uuid.UUID, p core.SavingsGoalPatch) (core.SavingsGoal, error) {
	if err := s.guard(p.Validate()); err != nil {
		return core.SavingsGoal{}, err
	}
	return write(s, ctx, "update savings goal", core.CollectionSavingsGoals, core.OpUpdated, savingsGoalID,
		func(ctx context.Context, userID uuid.UUID) (core.SavingsGoal, error) {
			return s.backend.UpdateSavingsGoal(ctx, userID, id, p)
		})
}

func (s *Store) DeleteSavingsGoal(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, "delete savings goal", core.CollectionSavingsGoals, id, s.backend.DeleteSavingsGoal)
}
