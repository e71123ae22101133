package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const lendBorrowColumns = `id, user_id, type, person_name, amount, currency, due_date, status, notes,
	created_at, updated_at`

func scanLendBorrow(s rowScanner) (core.LendBorrow, error) {
	var (
		lb                    core.LendBorrow
		due, created, updated dbTime
	)
	err := s.Scan(&lb.ID, &lb.UserID, &lb.Type, &lb.PersonName, &lb.Amount, &lb.Currency, &due, &lb.Status,
		&lb.Notes, &created, &updated)
	if err != nil {
		return core.LendBorrow{}, err
	}
	lb.DueDate, lb.CreatedAt, lb.UpdatedAt = due.Ptr(), created.Time, updated.Time
	return lb, nil
}

func (r *Repository) ListLendBorrows(ctx context.Context, userID uuid.UUID) ([]core.LendBorrow, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT `+lendBorrowColumns+` FROM lend_borrow WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list lend/borrow: %w", err)
	}
	defer rows.Close()

	out := []core.LendBorrow{}
	for rows.Next() {
		lb, err := scanLendBorrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lend/borrow: %w", err)
		}
		out = append(out, lb)
	}
	return out, rows.Err()
}

func (r *Repository) GetLendBorrow(ctx context.Context, userID, id uuid.UUID) (core.LendBorrow, error) {
	return r.getLendBorrow(ctx, r.db, userID, id, false)
}

func (r *Repository) getLendBorrow(ctx context.Context, q querier, userID, id uuid.UUID, lock bool) (core.LendBorrow, error) {
	query := `SELECT ` + lendBorrowColumns + ` FROM lend_borrow WHERE user_id = ? AND id = ?`
	if lock {
		query += r.forUpdate()
	}
	lb, err := scanLendBorrow(r.queryRow(ctx, q, query, userID, id))
	if err != nil {
		return core.LendBorrow{}, notFoundOr(err, "get lend/borrow")
	}
	return lb, nil
}

func (r *Repository) CreateLendBorrow(ctx context.Context, userID uuid.UUID, in core.LendBorrowInput) (core.LendBorrow, error) {
	now := r.now().UTC()
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
	_, err := r.exec(ctx, r.db, `INSERT INTO lend_borrow (`+lendBorrowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lb.ID, lb.UserID, lb.Type, lb.PersonName, lb.Amount, lb.Currency, lb.DueDate, lb.Status, lb.Notes,
		lb.CreatedAt, lb.UpdatedAt)
	if err != nil {
		return core.LendBorrow{}, fmt.Errorf("create lend/borrow: %w", err)
	}
	return lb, nil
}

func (r *Repository) UpdateLendBorrow(ctx context.Context, userID, id uuid.UUID, p core.LendBorrowPatch) (core.LendBorrow, error) {
	var out core.LendBorrow
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		lb, err := r.getLendBorrow(ctx, tx, userID, id, true)
		if err != nil {
			return err
		}
		p.Apply(&lb)
		lb.UpdatedAt = r.now().UTC()
		if err := r.saveLendBorrow(ctx, tx, lb); err != nil {
			return err
		}
		out = lb
		return nil
	})
	return out, err
}

func (r *Repository) saveLendBorrow(ctx context.Context, q querier, lb core.LendBorrow) error {
	_, err := r.exec(ctx, q, `UPDATE lend_borrow SET type = ?, person_name = ?, amount = ?, currency = ?,
		due_date = ?, status = ?, notes = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		lb.Type, lb.PersonName, lb.Amount, lb.Currency, lb.DueDate, lb.Status, lb.Notes, lb.UpdatedAt,
		lb.UserID, lb.ID)
	if err != nil {
		return fmt.Errorf("update lend/borrow: %w", err)
	}
	return nil
}

func (r *Repository) DeleteLendBorrow(ctx context.Context, userID, id uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.exec(ctx, tx, `DELETE FROM lend_borrow_returns WHERE lend_borrow_id IN
			(SELECT id FROM lend_borrow WHERE user_id = ? AND id = ?)`, userID, id); err != nil {
			return fmt.Errorf("delete returns: %w", err)
		}
		res, err := r.exec(ctx, tx, `DELETE FROM lend_borrow WHERE user_id = ? AND id = ?`, userID, id)
		if err != nil {
			return fmt.Errorf("delete lend/borrow: %w", err)
		}
		return affectedOrNotFound(res, "delete lend/borrow")
	})
}

func (r *Repository) ListLendBorrowReturns(ctx context.Context, userID uuid.UUID) ([]core.LendBorrowReturn, error) {
	rows, err := r.query(ctx, r.db, `SELECT lr.id, lr.lend_borrow_id, lr.amount, lr.return_date, lr.note, lr.created_at
		FROM lend_borrow_returns lr JOIN lend_borrow lb ON lb.id = lr.lend_borrow_id
		WHERE lb.user_id = ? ORDER BY lr.return_date, lr.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}
	defer rows.Close()

	out := []core.LendBorrowReturn{}
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan return: %w", err)
		}
		out = append(out, ret)
	}
	return out, rows.Err()
}

func scanReturn(s rowScanner) (core.LendBorrowReturn, error) {
	var (
		ret           core.LendBorrowReturn
		date, created dbTime
	)
	if err := s.Scan(&ret.ID, &ret.LendBorrowID, &ret.Amount, &date, &ret.Note, &created); err != nil {
		return core.LendBorrowReturn{}, err
	}
	ret.ReturnDate, ret.CreatedAt = date.Time, created.Time
	return ret, nil
}

func (r *Repository) RecordReturn(ctx context.Context, userID, lendBorrowID uuid.UUID, in core.ReturnInput) (core.LendBorrowReturn, core.LendBorrow, error) {
	var (
		ret core.LendBorrowReturn
		lb  core.LendBorrow
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		lb, err = r.getLendBorrow(ctx, tx, userID, lendBorrowID, true)
		if err != nil {
			return err
		}
		if !lb.Status.Open() {
			return fmt.Errorf("record %s is %s: %w", lb.ID, lb.Status, core.ErrConflict)
		}

		rows, err := r.query(ctx, tx, `SELECT id, lend_borrow_id, amount, return_date, note, created_at
			FROM lend_borrow_returns WHERE lend_borrow_id = ?`, lendBorrowID)
		if err != nil {
			return fmt.Errorf("load returns: %w", err)
		}
		var existing []core.LendBorrowReturn
		for rows.Next() {
			prev, err := scanReturn(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan return: %w", err)
			}
			existing = append(existing, prev)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("load returns: %w", err)
		}

		remaining := lb.Remaining(existing)
		if in.Amount.GreaterThan(remaining) {
			return fmt.Errorf("return %s with %s remaining: %w", in.Amount, remaining, core.ErrReturnExceedsBalance)
		}

		now := r.now().UTC()
		ret = core.LendBorrowReturn{
			ID:           uuid.New(),
			LendBorrowID: lendBorrowID,
			Amount:       in.Amount,
			ReturnDate:   in.ReturnDate.UTC(),
			Note:         in.Note,
			CreatedAt:    now,
		}
		if _, err := r.exec(ctx, tx, `INSERT INTO lend_borrow_returns (id, lend_borrow_id, amount, return_date, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`, ret.ID, ret.LendBorrowID, ret.Amount, ret.ReturnDate, ret.Note, ret.CreatedAt); err != nil {
			return fmt.Errorf("insert return: %w", err)
		}

		if remaining.Sub(in.Amount).IsZero() {
			lb.Status = core.LendBorrowSettled
			lb.UpdatedAt = now
			return r.saveLendBorrow(ctx, tx, lb)
		}
		return nil
	})
	if err != nil {
		return core.LendBorrowReturn{}, core.LendBorrow{}, err
	}
	return ret, lb, nil
}

func (r *Repository) MarkOverdue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	return r.markOverdue(ctx, `user_id = ? AND `, []any{userID}, now)
}

func (r *Repository) MarkAllOverdue(ctx context.Context, now time.Time) (int, error) {
	return r.markOverdue(ctx, ``, nil, now)
}

func (r *Repository) markOverdue(ctx context.Context, scope string, scopeArgs []any, now time.Time) (int, error) {
	args := append([]any{core.LendBorrowOverdue, r.now().UTC()}, scopeArgs...)
	args = append(args, core.LendBorrowActive, core.DayOf(now))
	res, err := r.exec(ctx, r.db, `UPDATE lend_borrow SET status = ?, updated_at = ?
		WHERE `+scope+`status = ? AND due_date IS NOT NULL AND due_date < ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return int(n), nil
}
