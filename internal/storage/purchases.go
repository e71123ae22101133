package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const purchaseColumns = `id, user_id, item_name, category, price, currency, purchase_date, status, priority,
	notes, account_id, transaction_id, created_at`

func scanPurchase(s rowScanner) (core.Purchase, error) {
	var (
		p               core.Purchase
		account, txID   uuid.NullUUID
		bought, created dbTime
	)
	err := s.Scan(&p.ID, &p.UserID, &p.ItemName, &p.Category, &p.Price, &p.Currency, &bought, &p.Status,
		&p.Priority, &p.Notes, &account, &txID, &created)
	if err != nil {
		return core.Purchase{}, err
	}
	p.PurchaseDate, p.CreatedAt = bought.Time, created.Time
	p.AccountID, p.TransactionID = uuidPtr(account), uuidPtr(txID)
	return p, nil
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func (r *Repository) ListPurchases(ctx context.Context, userID uuid.UUID) ([]core.Purchase, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT `+purchaseColumns+` FROM purchases WHERE user_id = ? ORDER BY purchase_date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	out := []core.Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) GetPurchase(ctx context.Context, userID, id uuid.UUID) (core.Purchase, error) {
	return r.getPurchase(ctx, r.db, userID, id)
}

func (r *Repository) getPurchase(ctx context.Context, q querier, userID, id uuid.UUID) (core.Purchase, error) {
	p, err := scanPurchase(r.queryRow(ctx, q,
		`SELECT `+purchaseColumns+` FROM purchases WHERE user_id = ? AND id = ?`, userID, id))
	if err != nil {
		return core.Purchase{}, notFoundOr(err, "get purchase")
	}
	return p, nil
}

func (r *Repository) CreatePurchase(ctx context.Context, userID uuid.UUID, in core.PurchaseInput, backing *core.TransactionInput) (core.Purchase, error) {
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
		CreatedAt:     r.now().UTC(),
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if backing != nil {
			t, err := r.insertTransaction(ctx, tx, userID, *backing)
			if err != nil {
				return fmt.Errorf("backing transaction: %w", err)
			}
			p.TransactionID = &t.ID
		}
		_, err := r.exec(ctx, tx, `INSERT INTO purchases (`+purchaseColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.UserID, p.ItemName, p.Category, p.Price, p.Currency, p.PurchaseDate, p.Status, p.Priority,
			p.Notes, nullUUID(p.AccountID), nullUUID(p.TransactionID), p.CreatedAt)
		if err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Purchase{}, err
	}
	return p, nil
}

func (r *Repository) UpdatePurchase(ctx context.Context, userID, id uuid.UUID, patch core.PurchasePatch, backing *core.TransactionInput) (core.Purchase, error) {
	var out core.Purchase
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		p, err := r.getPurchase(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		patch.Apply(&p)
		if backing != nil {
			t, err := r.insertTransaction(ctx, tx, userID, *backing)
			if err != nil {
				return fmt.Errorf("backing transaction: %w", err)
			}
			p.TransactionID = &t.ID
		}
		_, err = r.exec(ctx, tx, `UPDATE purchases SET item_name = ?, category = ?, price = ?, currency = ?,
			purchase_date = ?, status = ?, priority = ?, notes = ?, account_id = ?, transaction_id = ?
			WHERE user_id = ? AND id = ?`,
			p.ItemName, p.Category, p.Price, p.Currency, p.PurchaseDate, p.Status, p.Priority, p.Notes,
			nullUUID(p.AccountID), nullUUID(p.TransactionID), userID, id)
		if err != nil {
			return fmt.Errorf("update purchase: %w", err)
		}
		out = p
		return nil
	})
	return out, err
}

func (r *Repository) DeletePurchase(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.exec(ctx, r.db, `DELETE FROM purchases WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	return affectedOrNotFound(res, "delete purchase")
}
