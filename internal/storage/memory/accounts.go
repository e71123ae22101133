package memory

import (
	"context"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// withBalance must be called with the lock held.
func (s *Store) withBalance(a core.Account) core.Account {
	a.CalculatedBalance = a.InitialBalance
	for _, t := range s.transactions {
		if t.AccountID == a.ID {
			a.CalculatedBalance = a.CalculatedBalance.Add(t.Signed())
		}
	}
	return a
}

func (s *Store) ListAccounts(_ context.Context, userID uuid.UUID) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := owned(s.accounts, func(a core.Account) bool { return a.UserID == userID }, func(a, b core.Account) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	for i := range list {
		list[i] = s.withBalance(list[i])
	}
	return list, nil
}

func (s *Store) GetAccount(_ context.Context, userID, id uuid.UUID) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return core.Account{}, notFound("account", id)
	}
	return s.withBalance(a), nil
}

func (s *Store) CreateAccount(_ context.Context, userID uuid.UUID, in core.AccountInput) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	a := core.Account{
		ID:                uuid.New(),
		UserID:            userID,
		Name:              in.Name,
		Type:              in.Type,
		InitialBalance:    in.InitialBalance,
		CalculatedBalance: in.InitialBalance,
		Currency:          in.Currency,
		IsActive:          in.IsActive == nil || *in.IsActive,
		Description:       in.Description,
		HasDPS:            in.HasDPS,
		DPSType:           in.DPSType,
		DPSAmountType:     in.DPSAmountType,
		DPSFixedAmount:    in.DPSFixedAmount,
		DPSSavingsAccount: in.DPSSavingsAccount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, userID, id uuid.UUID, p core.AccountPatch) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return core.Account{}, notFound("account", id)
	}
	p.Apply(&a)
	a.UpdatedAt = s.now().UTC()
	s.accounts[id] = a
	return s.withBalance(a), nil
}

func (s *Store) DeleteAccount(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.UserID != userID {
		return notFound("account", id)
	}

	now := s.now().UTC()
	for k, other := range s.accounts {
		if other.UserID == userID && other.DPSSavingsAccount != nil && *other.DPSSavingsAccount == id {
			other.HasDPS, other.DPSSavingsAccount, other.UpdatedAt = false, nil, now
			s.accounts[k] = other
		}
	}
	for k, d := range s.dpsTransfers {
		if d.UserID == userID && (d.FromAccountID == id || d.ToAccountID == id) {
			delete(s.dpsTransfers, k)
		}
	}
	for k, t := range s.transactions {
		if t.UserID == userID && t.AccountID == id {
			s.unlinkTransaction(k)
			delete(s.transactions, k)
		}
	}
	for k, p := range s.purchases {
		if p.AccountID != nil && *p.AccountID == id {
			p.AccountID = nil
			s.purchases[k] = p
		}
	}
	for k, g := range s.savingsGoals {
		if g.SourceAccountID != nil && *g.SourceAccountID == id {
			g.SourceAccountID = nil
		}
		if g.SavingsAccountID != nil && *g.SavingsAccountID == id {
			g.SavingsAccountID = nil
		}
		s.savingsGoals[k] = g
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) ListDPSAccounts(context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return owned(s.accounts, func(a core.Account) bool {
		return a.HasDPS && a.IsActive && a.DPSSavingsAccount != nil
	}, func(a, b core.Account) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	}), nil
}
