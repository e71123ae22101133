package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

func (s *Store) ListLendBorrows(_ context.Context, userID uuid.UUID) ([]core.LendBorrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return owned(s.lendBorrows, func(lb core.LendBorrow) bool { return lb.UserID == userID },
		func(a, b core.LendBorrow) int { return newestFirst(a.CreatedAt, b.CreatedAt) }), nil
}

func (s *Store) GetLendBorrow(_ context.Context, userID, id uuid.UUID) (core.LendBorrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lb, ok := s.lendBorrows[id]
	if !ok || lb.UserID != userID {
		return core.LendBorrow{}, notFound("lend/borrow", id)
	}
	return lb, nil
}

func (s *Store) CreateLendBorrow(_ context.Context, userID uuid.UUID, in core.LendBorrowInput) (core.LendBorrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	lb := core.LendBorrow{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       in.Type,
		PersonName: in.PersonName,
		Amount:     in.Amount,
		Currency:   in.Currency,
		DueDate:    in.DueDate,
		Status:     core.LendBorrowActive,
		Notes:      in.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.lendBorrows[lb.ID] = lb
	return lb, nil
}

func (s *Store) UpdateLendBorrow(_ context.Context, userID, id uuid.UUID, p core.LendBorrowPatch) (core.LendBorrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lb, ok := s.lendBorrows[id]
	if !ok || lb.UserID != userID {
		return core.LendBorrow{}, notFound("lend/borrow", id)
	}
	p.Apply(&lb)
	lb.UpdatedAt = s.now().UTC()
	s.lendBorrows[id] = lb
	return lb, nil
}

func (s *Store) DeleteLendBorrow(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lb, ok := s.lendBorrows[id]; !ok || lb.UserID != userID {
		return notFound("lend/borrow", id)
	}
	for k, r := range s.returns {
		if r.LendBorrowID == id {
			delete(s.returns, k)
		}
	}
	delete(s.lendBorrows, id)
	return nil
}

func (s *Store) ListLendBorrowReturns(_ context.Context, userID uuid.UUID) ([]core.LendBorrowReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return owned(s.returns, func(r core.LendBorrowReturn) bool {
		lb, ok := s.lendBorrows[r.LendBorrowID]
		return ok && lb.UserID == userID
	}, func(a, b core.LendBorrowReturn) int {
		if c := a.ReturnDate.Compare(b.ReturnDate); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	}), nil
}

func (s *Store) RecordReturn(_ context.Context, userID, lendBorrowID uuid.UUID, in core.ReturnInput) (core.LendBorrowReturn, core.LendBorrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lb, ok := s.lendBorrows[lendBorrowID]
	if !ok || lb.UserID != userID {
		return core.LendBorrowReturn{}, core.LendBorrow{}, notFound("lend/borrow", lendBorrowID)
	}
	if !lb.Status.Open() {
		return core.LendBorrowReturn{}, core.LendBorrow{}, fmt.Errorf("record %s is %s: %w", lb.ID, lb.Status, core.ErrConflict)
	}

	var existing []core.LendBorrowReturn
	for _, r := range s.returns {
		if r.LendBorrowID == lendBorrowID {
			existing = append(existing, r)
		}
	}
	remaining := lb.Remaining(existing)
	if in.Amount.GreaterThan(remaining) {
		return core.LendBorrowReturn{}, core.LendBorrow{},
			fmt.Errorf("return %s with %s remaining: %w", in.Amount, remaining, core.ErrReturnExceedsBalance)
	}

	now := s.now().UTC()
	ret := core.LendBorrowReturn{
		ID:           uuid.New(),
		LendBorrowID: lendBorrowID,
		Amount:       in.Amount,
		ReturnDate:   in.ReturnDate.UTC(),
		Note:         in.Note,
		CreatedAt:    now,
	}
	s.returns[ret.ID] = ret
	if remaining.Sub(in.Amount).IsZero() {
		lb.Status, lb.UpdatedAt = core.LendBorrowSettled, now
		s.lendBorrows[lb.ID] = lb
	}
	return ret, lb, nil
}

func (s *Store) MarkOverdue(_ context.Context, userID uuid.UUID, now time.Time) (int, error) {
	return s.markOverdue(func(lb core.LendBorrow) bool { return lb.UserID == userID }, now), nil
}

func (s *Store) MarkAllOverdue(_ context.Context, now time.Time) (int, error) {
	return s.markOverdue(func(core.LendBorrow) bool { return true }, now), nil
}

func (s *Store) markOverdue(scope func(core.LendBorrow) bool, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	stamp := s.now().UTC()
	for k, lb := range s.lendBorrows {
		if scope(lb) && lb.IsOverdueAt(now) {
			lb.Status, lb.UpdatedAt = core.LendBorrowOverdue, stamp
			s.lendBorrows[k] = lb
			n++
		}
	}
	return n
}

func (s *Store) ListDPSTransfers(_ context.Context, userID uuid.UUID) ([]core.DPSTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return owned(s.dpsTransfers, func(d core.DPSTransfer) bool { return d.UserID == userID },
		func(a, b core.DPSTransfer) int { return newestFirst(a.Date, b.Date) }), nil
}

func (s *Store) TransferDPS(_ context.Context, userID uuid.UUID, legs [2]core.TransactionInput) (core.DPSTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	built, err := s.buildLegs(userID, legs[:])
	if err != nil {
		return core.DPSTransfer{}, err
	}
	transferID, ok := core.TransferIDFromTags(legs[0].Tags)
	if !ok {
		transferID = uuid.New()
	}
	for _, t := range built {
		s.transactions[t.ID] = t
	}
	from, to := built[0], built[1]
	d := core.DPSTransfer{
		ID:                transferID,
		UserID:            userID,
		FromAccountID:     from.AccountID,
		ToAccountID:       to.AccountID,
		Amount:            from.Amount,
		Date:              from.Date,
		FromTransactionID: from.ID,
		ToTransactionID:   to.ID,
		CreatedAt:         s.now().UTC(),
	}
	s.dpsTransfers[d.ID] = d
	return d, nil
}

func (s *Store) LastDPSTransfer(_ context.Context, userID, fromAccountID uuid.UUID) (core.DPSTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		last  core.DPSTransfer
		found bool
	)
	for _, d := range s.dpsTransfers {
		if d.UserID == userID && d.FromAccountID == fromAccountID && (!found || d.Date.After(last.Date)) {
			last, found = d, true
		}
	}
	if !found {
		return core.DPSTransfer{}, fmt.Errorf("last dps transfer: %w", core.ErrNotFound)
	}
	return last, nil
}
