package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

func (s *Store) ListCategories(_ context.Context, userID uuid.UUID) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return owned(s.categories, func(c core.Category) bool { return c.UserID == userID }, func(a, b core.Category) int {
		return strings.Compare(a.Name, b.Name)
	}), nil
}

func (s *Store) CreateCategory(_ context.Context, userID uuid.UUID, in core.CategoryInput) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := core.Category{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Color:     in.Color,
		Icon:      in.Icon,
		CreatedAt: s.now().UTC(),
	}
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, userID, id uuid.UUID, p core.CategoryPatch) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok || c.UserID != userID {
		return core.Category{}, notFound("category", id)
	}
	p.Apply(&c)
	s.categories[id] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.categories[id]; !ok || c.UserID != userID {
		return notFound("category", id)
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListPurchases(_ context.Context, userID uuid.UUID) ([]core.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return owned(s.purchases, func(p core.Purchase) bool { return p.UserID == userID }, func(a, b core.Purchase) int {
		if c := newestFirst(a.PurchaseDate, b.PurchaseDate); c != 0 {
			return c
		}
		return newestFirst(a.CreatedAt, b.CreatedAt)
	}), nil
}

func (s *Store) GetPurchase(_ context.Context, userID, id uuid.UUID) (core.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.purchases[id]
	if !ok || p.UserID != userID {
		return core.Purchase{}, notFound("purchase", id)
	}
	return p, nil
}

func (s *Store) CreatePurchase(_ context.Context, userID uuid.UUID, in core.PurchaseInput, backing *core.TransactionInput) (core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := core.Purchase{
		ID:            uuid.New(),
		UserID:        userID,
		ItemName:      in.ItemName,
		Category:      in.Category,
		Price:         in.Price,
		Currency:      in.Currency,
		PurchaseDate:  in.PurchaseDate.UTC(),
		Status:        in.Status,
		Priority:      in.Priority,
		Notes:         in.Notes,
		AccountID:     in.AccountID,
		TransactionID: in.TransactionID,
		CreatedAt:     s.now().UTC(),
	}
	if backing != nil {
		t, err := s.buildTransaction(userID, *backing)
		if err != nil {
			return core.Purchase{}, err
		}
		s.transactions[t.ID] = t
		p.TransactionID = &t.ID
	}
	s.purchases[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePurchase(_ context.Context, userID, id uuid.UUID, patch core.PurchasePatch, backing *core.TransactionInput) (core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[id]
	if !ok || p.UserID != userID {
		return core.Purchase{}, notFound("purchase", id)
	}
	patch.Apply(&p)
	if backing != nil {
		t, err := s.buildTransaction(userID, *backing)
		if err != nil {
			return core.Purchase{}, err
		}
		s.transactions[t.ID] = t
		p.TransactionID = &t.ID
	}
	s.purchases[id] = p
	return p, nil
}

func (s *Store) DeletePurchase(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.purchases[id]; !ok || p.UserID != userID {
		return notFound("purchase", id)
	}
	delete(s.purchases, id)
	return nil
}

func (s *Store) ListPurchaseCategories(_ context.Context, userID uuid.UUID, includeDeleted bool) ([]core.PurchaseCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return owned(s.purchaseCategories, func(pc core.PurchaseCategory) bool {
		return pc.UserID == userID && (includeDeleted || pc.DeletedAt == nil)
	}, func(a, b core.PurchaseCategory) int {
		return strings.Compare(a.CategoryName, b.CategoryName)
	}), nil
}

func (s *Store) CreatePurchaseCategory(_ context.Context, userID uuid.UUID, in core.PurchaseCategoryInput) (core.PurchaseCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc := core.PurchaseCategory{
		ID:            uuid.New(),
		UserID:        userID,
		CategoryName:  in.CategoryName,
		Description:   in.Description,
		MonthlyBudget: in.MonthlyBudget,
		Currency:      in.Currency,
		CategoryColor: in.CategoryColor,
		CreatedAt:     s.now().UTC(),
	}
	s.purchaseCategories[pc.ID] = pc
	return pc, nil
}

func (s *Store) UpdatePurchaseCategory(_ context.Context, userID, id uuid.UUID, p core.PurchaseCategoryPatch) (core.PurchaseCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.purchaseCategories[id]
	if !ok || pc.UserID != userID || pc.DeletedAt != nil {
		return core.PurchaseCategory{}, notFound("purchase category", id)
	}
	p.Apply(&pc)
	s.purchaseCategories[id] = pc
	return pc, nil
}

func (s *Store) DeletePurchaseCategory(_ context.Context, userID, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.purchaseCategories[id]
	if !ok || pc.UserID != userID || pc.DeletedAt != nil {
		return notFound("purchase category", id)
	}
	at = at.UTC()
	pc.DeletedAt = &at
	s.purchaseCategories[id] = pc
	return nil
}

func (s *Store) ListDonationSavings(_ context.Context, userID uuid.UUID) ([]core.DonationSavingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return owned(s.donationSavings, func(r core.DonationSavingRecord) bool { return r.UserID == userID },
		func(a, b core.DonationSavingRecord) int { return newestFirst(a.CreatedAt, b.CreatedAt) }), nil
}

func (s *Store) CreateDonationSaving(_ context.Context, userID uuid.UUID, in core.DonationSavingInput) (core.DonationSavingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := core.DonationSavingRecord{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          in.Type,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Mode:          in.Mode,
		ModeValue:     in.ModeValue,
		Status:        in.Status,
		TransactionID: in.TransactionID,
		Note:          in.Note,
		CreatedAt:     s.now().UTC(),
	}
	s.donationSavings[rec.ID] = rec
	return rec, nil
}

func (s *Store) UpdateDonationSaving(_ context.Context, userID, id uuid.UUID, p core.DonationSavingPatch) (core.DonationSavingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.donationSavings[id]
	if !ok || rec.UserID != userID {
		return core.DonationSavingRecord{}, notFound("donation/saving record", id)
	}
	p.Apply(&rec)
	s.donationSavings[id] = rec
	return rec, nil
}

func (s *Store) DeleteDonationSaving(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.donationSavings[id]; !ok || rec.UserID != userID {
		return notFound("donation/saving record", id)
	}
	delete(s.donationSavings, id)
	return nil
}

func (s *Store) ListSavingsGoals(_ context.Context, userID uuid.UUID) ([]core.SavingsGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return owned(s.savingsGoals, func(g core.SavingsGoal) bool { return g.UserID == userID },
		func(a, b core.SavingsGoal) int { return a.CreatedAt.Compare(b.CreatedAt) }), nil
}

func (s *Store) CreateSavingsGoal(_ context.Context, userID uuid.UUID, in core.SavingsGoalInput) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := core.SavingsGoal{
		ID:               uuid.New(),
		UserID:           userID,
		Name:             in.Name,
		Description:      in.Description,
		TargetAmount:     in.TargetAmount,
		CurrentAmount:    in.CurrentAmount,
		SourceAccountID:  in.SourceAccountID,
		SavingsAccountID: in.SavingsAccountID,
		TargetDate:       in.TargetDate,
		CreatedAt:        s.now().UTC(),
	}
	s.savingsGoals[g.ID] = g
	return g, nil
}

func (s *Store) UpdateSavingsGoal(_ context.Context, userID, id uuid.UUID, p core.SavingsGoalPatch) (core.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.savingsGoals[id]
	if !ok || g.UserID != userID {
		return core.SavingsGoal{}, notFound("savings goal", id)
	}
	p.Apply(&g)
	s.savingsGoals[id] = g
	return g, nil
}

func (s *Store) DeleteSavingsGoal(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.savingsGoals[id]; !ok || g.UserID != userID {
		return notFound("savings goal", id)
	}
	delete(s.savingsGoals, id)
	return nil
}
