package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// RecordLendBorrowReturn books a partial or full repayment. The record is
// settled once nothing remains.
func (s *Store) RecordLendBorrowReturn(ctx context.Context, lendBorrowID uuid.UUID, in core.ReturnInput) (core.LendBorrowReturn, error) {
	in.Amount = core.RoundMoney(in.Amount)
	if in.ReturnDate.IsZero() {
		in.ReturnDate = s.now().UTC()
	}
	if err := s.guard(in.Validate()); err != nil {
		return core.LendBorrowReturn{}, err
	}

	var (
		userID uuid.UUID
		ret    core.LendBorrowReturn
		record core.LendBorrow
	)
	err := s.call(ctx, "record return", func(ctx context.Context, uid uuid.UUID) error {
		var err error
		userID = uid
		ret, record, err = s.backend.RecordReturn(ctx, uid, lendBorrowID, in)
		return err
	})
	if err != nil {
		return core.LendBorrowReturn{}, err
	}
	s.publish(ctx, core.ChangeEvent{UserID: userID, Collection: core.CollectionLendBorrowReturns, Op: core.OpCreated, EntityID: ret.ID})
	if record.Status == core.LendBorrowSettled {
		s.publish(ctx, core.ChangeEvent{UserID: userID, Collection: core.CollectionLendBorrows, Op: core.OpUpdated, EntityID: record.ID})
	}
	s.refresh(ctx, core.CollectionLendBorrowReturns, core.CollectionLendBorrows)
	return ret, nil
}

// RefreshLendBorrowStatuses marks active records past their due day as
// overdue and returns how many changed.
func (s *Store) RefreshLendBorrowStatuses(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.call(ctx, "refresh lend/borrow statuses", func(ctx context.Context, uid uuid.UUID) error {
		var err error
		n, err = s.backend.MarkOverdue(ctx, uid, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Lend/borrow records marked overdue", log.FieldCount, n)
		s.refresh(ctx, core.CollectionLendBorrows)
	}
	return n, nil
}

// SettleLendBorrow closes an open record regardless of returns.
func (s *Store) SettleLendBorrow(ctx context.Context, id uuid.UUID) (core.LendBorrow, error) {
	if err := s.guard(nil); err != nil {
		return core.LendBorrow{}, err
	}
	settled := core.LendBorrowSettled
	return write(s, ctx, "settle lend/borrow", core.CollectionLendBorrows, core.OpUpdated, lendBorrowIDOf,
		func(ctx context.Context, userID uuid.UUID) (core.LendBorrow, error) {
			current, err := s.backend.GetLendBorrow(ctx, userID, id)
			if err != nil {
				return core.LendBorrow{}, err
			}
			if !current.Status.Open() {
				return core.LendBorrow{}, fmt.Errorf("record %s is already %s: %w", id, current.Status, core.ErrConflict)
			}
			return s.backend.UpdateLendBorrow(ctx, userID, id, core.LendBorrowPatch{Status: &settled})
		})
}
