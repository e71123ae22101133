package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const dpsTransferColumns = `id, user_id, from_account_id, to_account_id, amount, date, from_transaction_id,
	to_transaction_id, created_at`

func scanDPSTransfer(s rowScanner) (core.DPSTransfer, error) {
	var (
		t             core.DPSTransfer
		date, created dbTime
	)
	err := s.Scan(&t.ID, &t.UserID, &t.FromAccountID, &t.ToAccountID, &t.Amount, &date, &t.FromTransactionID,
		&t.ToTransactionID, &created)
	if err != nil {
		return core.DPSTransfer{}, err
	}
	t.Date, t.CreatedAt = date.Time, created.Time
	return t, nil
}

func (r *Repository) ListDPSTransfers(ctx context.Context, userID uuid.UUID) ([]core.DPSTransfer, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT `+dpsTransferColumns+` FROM dps_transfers WHERE user_id = ? ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list dps transfers: %w", err)
	}
	defer rows.Close()

	out := []core.DPSTransfer{}
	for rows.Next() {
		t, err := scanDPSTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dps transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) TransferDPS(ctx context.Context, userID uuid.UUID, legs [2]core.TransactionInput) (core.DPSTransfer, error) {
	transferID, ok := core.TransferIDFromTags(legs[0].Tags)
	if !ok {
		transferID = uuid.New()
	}

	var out core.DPSTransfer
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		from, err := r.insertTransaction(ctx, tx, userID, legs[0])
		if err != nil {
			return fmt.Errorf("dps source leg: %w", err)
		}
		to, err := r.insertTransaction(ctx, tx, userID, legs[1])
		if err != nil {
			return fmt.Errorf("dps savings leg: %w", err)
		}
		out = core.DPSTransfer{
			ID:                transferID,
			UserID:            userID,
			FromAccountID:     from.AccountID,
			ToAccountID:       to.AccountID,
			Amount:            from.Amount,
			Date:              from.Date,
			FromTransactionID: from.ID,
			ToTransactionID:   to.ID,
			CreatedAt:         r.now().UTC(),
		}
		_, err = r.exec(ctx, tx, `INSERT INTO dps_transfers (`+dpsTransferColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			out.ID, out.UserID, out.FromAccountID, out.ToAccountID, out.Amount, out.Date, out.FromTransactionID,
			out.ToTransactionID, out.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert dps transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.DPSTransfer{}, err
	}
	return out, nil
}

func (r *Repository) LastDPSTransfer(ctx context.Context, userID, fromAccountID uuid.UUID) (core.DPSTransfer, error) {
	t, err := scanDPSTransfer(r.queryRow(ctx, r.db, `SELECT `+dpsTransferColumns+` FROM dps_transfers
		WHERE user_id = ? AND from_account_id = ? ORDER BY date DESC LIMIT 1`, userID, fromAccountID))
	if err != nil {
		return core.DPSTransfer{}, notFoundOr(err, "last dps transfer")
	}
	return t, nil
}
