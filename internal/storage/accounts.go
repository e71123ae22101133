package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const accountColumns = `id, user_id, name, type, initial_balance, currency, is_active, description,
	has_dps, dps_type, dps_amount_type, dps_fixed_amount, dps_savings_account_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(s rowScanner) (core.Account, error) {
	var (
		a                core.Account
		savings          uuid.NullUUID
		created, updated dbTime
	)
	err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.InitialBalance, &a.Currency, &a.IsActive, &a.Description,
		&a.HasDPS, &a.DPSType, &a.DPSAmountType, &a.DPSFixedAmount, &savings, &created, &updated)
	if err != nil {
		return core.Account{}, err
	}
	if savings.Valid {
		id := savings.UUID
		a.DPSSavingsAccount = &id
	}
	a.CreatedAt, a.UpdatedAt = created.Time, updated.Time
	a.CalculatedBalance = a.InitialBalance
	return a, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (r *Repository) ListAccounts(ctx context.Context, userID uuid.UUID) ([]core.Account, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	flows, err := r.accountFlows(ctx, r.db, `user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if f, ok := flows[accounts[i].ID]; ok {
			accounts[i].CalculatedBalance = accounts[i].InitialBalance.Add(f)
		}
	}
	return accounts, nil
}

func (r *Repository) GetAccount(ctx context.Context, userID, id uuid.UUID) (core.Account, error) {
	return r.getAccount(ctx, r.db, userID, id)
}

func (r *Repository) getAccount(ctx context.Context, q querier, userID, id uuid.UUID) (core.Account, error) {
	a, err := scanAccount(r.queryRow(ctx, q,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND id = ?`, userID, id))
	if err != nil {
		return core.Account{}, notFoundOr(err, "get account")
	}
	flows, err := r.accountFlows(ctx, q, `account_id = ?`, id)
	if err != nil {
		return core.Account{}, err
	}
	a.CalculatedBalance = a.InitialBalance.Add(flows[id])
	return a, nil
}

// accountFlows sums signed transaction amounts per account. Amounts are
// summed in Go so that both dialects keep exact decimal arithmetic.
func (r *Repository) accountFlows(ctx context.Context, q querier, where string, arg any) (map[uuid.UUID]decimal.Decimal, error) {
	rows, err := r.query(ctx, q, `SELECT account_id, type, amount FROM transactions WHERE `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	flows := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var tx core.Transaction
		if err := rows.Scan(&tx.AccountID, &tx.Type, &tx.Amount); err != nil {
			return nil, fmt.Errorf("scan transaction amount: %w", err)
		}
		flows[tx.AccountID] = flows[tx.AccountID].Add(tx.Signed())
	}
	return flows, rows.Err()
}

func (r *Repository) CreateAccount(ctx context.Context, userID uuid.UUID, in core.AccountInput) (core.Account, error) {
	now := r.now().UTC()
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
	_, err := r.exec(ctx, r.db, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Type, a.InitialBalance, a.Currency, a.IsActive, a.Description,
		a.HasDPS, a.DPSType, a.DPSAmountType, a.DPSFixedAmount, nullUUID(a.DPSSavingsAccount), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (r *Repository) UpdateAccount(ctx context.Context, userID, id uuid.UUID, p core.AccountPatch) (core.Account, error) {
	var out core.Account
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		a, err := r.getAccount(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		p.Apply(&a)
		a.UpdatedAt = r.now().UTC()
		_, err = r.exec(ctx, tx, `UPDATE accounts SET name = ?, type = ?, initial_balance = ?, currency = ?,
			is_active = ?, description = ?, has_dps = ?, dps_type = ?, dps_amount_type = ?, dps_fixed_amount = ?,
			dps_savings_account_id = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
			a.Name, a.Type, a.InitialBalance, a.Currency, a.IsActive, a.Description, a.HasDPS, a.DPSType,
			a.DPSAmountType, a.DPSFixedAmount, nullUUID(a.DPSSavingsAccount), a.UpdatedAt, userID, id)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		out, err = r.getAccount(ctx, tx, userID, id)
		return err
	})
	return out, err
}

func (r *Repository) DeleteAccount(ctx context.Context, userID, id uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.exec(ctx, tx,
			`UPDATE accounts SET has_dps = ?, dps_savings_account_id = NULL, updated_at = ?
			 WHERE user_id = ? AND dps_savings_account_id = ?`,
			false, r.now().UTC(), userID, id); err != nil {
			return fmt.Errorf("clear dps links: %w", err)
		}
		if _, err := r.exec(ctx, tx,
			`DELETE FROM dps_transfers WHERE user_id = ? AND (from_account_id = ? OR to_account_id = ?)`,
			userID, id, id); err != nil {
			return fmt.Errorf("delete dps transfers: %w", err)
		}
		if _, err := r.exec(ctx, tx,
			`DELETE FROM transactions WHERE user_id = ? AND account_id = ?`, userID, id); err != nil {
			return fmt.Errorf("delete account transactions: %w", err)
		}
		res, err := r.exec(ctx, tx, `DELETE FROM accounts WHERE user_id = ? AND id = ?`, userID, id)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		return affectedOrNotFound(res, "delete account")
	})
}

func (r *Repository) ListDPSAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.query(ctx, r.db, `SELECT `+accountColumns+` FROM accounts
		WHERE has_dps = ? AND is_active = ? AND dps_savings_account_id IS NOT NULL ORDER BY created_at`, true, true)
	if err != nil {
		return nil, fmt.Errorf("list dps accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
