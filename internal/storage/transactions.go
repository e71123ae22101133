package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const transactionColumns = `id, user_id, account_id, type, amount, description, category, date, tags,
	transaction_ref, note, created_at`

// jsonTags stores a tag list as a JSON array in a TEXT column.
type jsonTags []string

func (t jsonTags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *jsonTags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = jsonTags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported tags value %T", src)
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	*t = tags
	return nil
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		tx            core.Transaction
		tags          jsonTags
		date, created dbTime
	)
	err := s.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &tx.Type, &tx.Amount, &tx.Description, &tx.Category,
		&date, &tags, &tx.Ref, &tx.Note, &created)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Date, tx.CreatedAt, tx.Tags = date.Time, created.Time, []string(tags)
	return tx, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id uuid.UUID) (core.Transaction, error) {
	return r.getTransaction(ctx, r.db, userID, id)
}

func (r *Repository) getTransaction(ctx context.Context, q querier, userID, id uuid.UUID) (core.Transaction, error) {
	tx, err := scanTransaction(r.queryRow(ctx, q,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id))
	if err != nil {
		return core.Transaction{}, notFoundOr(err, "get transaction")
	}
	return tx, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, userID uuid.UUID, in core.TransactionInput) (core.Transaction, error) {
	var out core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = r.insertTransaction(ctx, tx, userID, in)
		return err
	})
	return out, err
}

// insertTransaction checks account ownership before inserting so that a
// foreign account id surfaces as not found rather than a constraint error.
func (r *Repository) insertTransaction(ctx context.Context, q querier, userID uuid.UUID, in core.TransactionInput) (core.Transaction, error) {
	var exists int
	err := r.queryRow(ctx, q, `SELECT 1 FROM accounts WHERE user_id = ? AND id = ?`, userID, in.AccountID).Scan(&exists)
	if err != nil {
		return core.Transaction{}, notFoundOr(err, "transaction account")
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
		CreatedAt:   r.now().UTC(),
	}
	if t.Ref == "" {
		t.Ref = core.NewTransactionRef(t.Date)
	}
	_, err = r.exec(ctx, q, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, t.Type, t.Amount, t.Description, t.Category, t.Date,
		jsonTags(t.Tags), t.Ref, t.Note, t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID, id uuid.UUID, p core.TransactionPatch) (core.Transaction, error) {
	var out core.Transaction
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := r.getTransaction(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		p.Apply(&t)
		if p.AccountID != nil {
			var exists int
			if err := r.queryRow(ctx, tx, `SELECT 1 FROM accounts WHERE user_id = ? AND id = ?`, userID, t.AccountID).Scan(&exists); err != nil {
				return notFoundOr(err, "transaction account")
			}
		}
		_, err = r.exec(ctx, tx, `UPDATE transactions SET account_id = ?, type = ?, amount = ?, description = ?,
			category = ?, date = ?, tags = ?, note = ? WHERE user_id = ? AND id = ?`,
			t.AccountID, t.Type, t.Amount, t.Description, t.Category, t.Date, jsonTags(t.Tags), t.Note, userID, id)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		out = t
		return nil
	})
	return out, err
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.exec(ctx, r.db, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return affectedOrNotFound(res, "delete transaction")
}

func (r *Repository) CreateTransfer(ctx context.Context, userID uuid.UUID, legs []core.TransactionInput) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(legs))
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, leg := range legs {
			t, err := r.insertTransaction(ctx, tx, userID, leg)
			if err != nil {
				return fmt.Errorf("transfer leg: %w", err)
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) DeleteTransfer(ctx context.Context, userID, transferID uuid.UUID) (int, error) {
	var n int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		pattern := `%"` + core.TransferTags(core.TagTransfer, transferID)[1] + `"%`
		res, err := r.exec(ctx, tx, `DELETE FROM transactions WHERE user_id = ? AND tags LIKE ?`, userID, pattern)
		if err != nil {
			return fmt.Errorf("delete transfer: %w", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("delete transfer: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("delete transfer %s: %w", transferID, core.ErrNotFound)
		}
		// DPS audit rows share the transfer id
		if _, err := r.exec(ctx, tx, `DELETE FROM dps_transfers WHERE user_id = ? AND id = ?`, userID, transferID); err != nil {
			return fmt.Errorf("delete dps transfer: %w", err)
		}
		return nil
	})
	return int(n), err
}
