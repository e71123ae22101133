package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

func cloneTx(t core.Transaction) core.Transaction {
	t.Tags = append([]string{}, t.Tags...)
	return t
}

func (s *Store) ListTransactions(_ context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := owned(s.transactions, func(t core.Transaction) bool { return t.UserID == userID }, func(a, b core.Transaction) int {
		if c := newestFirst(a.Date, b.Date); c != 0 {
			return c
		}
		return newestFirst(a.CreatedAt, b.CreatedAt)
	})
	for i := range list {
		list[i] = cloneTx(list[i])
	}
	return list, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id uuid.UUID) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, notFound("transaction", id)
	}
	return cloneTx(t), nil
}

func (s *Store) CreateTransaction(_ context.Context, userID uuid.UUID, in core.TransactionInput) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.buildTransaction(userID, in)
	if err != nil {
		return core.Transaction{}, err
	}
	s.transactions[t.ID] = t
	return cloneTx(t), nil
}

// buildTransaction must be called with the lock held. It does not store the row.
func (s *Store) buildTransaction(userID uuid.UUID, in core.TransactionInput) (core.Transaction, error) {
	if a, ok := s.accounts[in.AccountID]; !ok || a.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction account: %w", notFound("account", in.AccountID))
	}
	t := core.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		AccountID:   in.AccountID,
		Type:        in.Type,
		Amount:      in.Amount,
		Description: in.Description,
		Category:    in.Category,
		Date:        in.Date.UTC(),
		Tags:        append([]string{}, in.Tags...),
		Ref:         in.Ref,
		Note:        in.Note,
		CreatedAt:   s.now().UTC(),
	}
	if t.Ref == "" {
		t.Ref = core.NewTransactionRef(t.Date)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id uuid.UUID, p core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, notFound("transaction", id)
	}
	t = cloneTx(t)
	p.Apply(&t)
	if a, ok := s.accounts[t.AccountID]; !ok || a.UserID != userID {
		return core.Transaction{}, fmt.Errorf("transaction account: %w", notFound("account", t.AccountID))
	}
	s.transactions[id] = t
	return cloneTx(t), nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return notFound("transaction", id)
	}
	s.unlinkTransaction(id)
	delete(s.transactions, id)
	return nil
}

// unlinkTransaction clears references to a transaction about to be removed.
func (s *Store) unlinkTransaction(id uuid.UUID) {
	for k, p := range s.purchases {
		if p.TransactionID != nil && *p.TransactionID == id {
			p.TransactionID = nil
			s.purchases[k] = p
		}
	}
	for k, r := range s.donationSavings {
		if r.TransactionID != nil && *r.TransactionID == id {
			r.TransactionID = nil
			s.donationSavings[k] = r
		}
	}
}

func (s *Store) CreateTransfer(_ context.Context, userID uuid.UUID, legs []core.TransactionInput) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.buildLegs(userID, legs)
	if err != nil {
		return nil, err
	}
	for i, t := range out {
		s.transactions[t.ID] = t
		out[i] = cloneTx(t)
	}
	return out, nil
}

// buildLegs validates every leg before any of them is stored.
func (s *Store) buildLegs(userID uuid.UUID, legs []core.TransactionInput) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(legs))
	for _, leg := range legs {
		t, err := s.buildTransaction(userID, leg)
		if err != nil {
			return nil, fmt.Errorf("transfer leg: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) DeleteTransfer(_ context.Context, userID, transferID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, t := range s.transactions {
		if id, ok := core.TransferIDFromTags(t.Tags); ok && id == transferID && t.UserID == userID {
			s.unlinkTransaction(k)
			delete(s.transactions, k)
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("delete transfer %s: %w", transferID, core.ErrNotFound)
	}
	if d, ok := s.dpsTransfers[transferID]; ok && d.UserID == userID {
		delete(s.dpsTransfers, transferID)
	}
	return n, nil
}
