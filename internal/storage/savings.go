package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const donationSavingColumns = `id, user_id, type, amount, currency, mode, mode_value, status, transaction_id,
	note, created_at`

func scanDonationSaving(s rowScanner) (core.DonationSavingRecord, error) {
	var (
		rec     core.DonationSavingRecord
		txID    uuid.NullUUID
		created dbTime
	)
	err := s.Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Amount, &rec.Currency, &rec.Mode, &rec.ModeValue,
		&rec.Status, &txID, &rec.Note, &created)
	if err != nil {
		return core.DonationSavingRecord{}, err
	}
	rec.TransactionID, rec.CreatedAt = uuidPtr(txID), created.Time
	return rec, nil
}

func (r *Repository) ListDonationSavings(ctx context.Context, userID uuid.UUID) ([]core.DonationSavingRecord, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT `+donationSavingColumns+` FROM donation_saving_records WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list donation/saving records: %w", err)
	}
	defer rows.Close()

	out := []core.DonationSavingRecord{}
	for rows.Next() {
		rec, err := scanDonationSaving(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation/saving record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) CreateDonationSaving(ctx context.Context, userID uuid.UUID, in core.DonationSavingInput) (core.DonationSavingRecord, error) {
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
		CreatedAt:     r.now().UTC(),
	}
	_, err := r.exec(ctx, r.db, `INSERT INTO donation_saving_records (`+donationSavingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Type, rec.Amount, rec.Currency, rec.Mode, rec.ModeValue, rec.Status,
		nullUUID(rec.TransactionID), rec.Note, rec.CreatedAt)
	if err != nil {
		return core.DonationSavingRecord{}, fmt.Errorf("create donation/saving record: %w", err)
	}
	return rec, nil
}

func (r *Repository) UpdateDonationSaving(ctx context.Context, userID, id uuid.UUID, p core.DonationSavingPatch) (core.DonationSavingRecord, error) {
	var out core.DonationSavingRecord
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := scanDonationSaving(r.queryRow(ctx, tx, `SELECT `+donationSavingColumns+`
			FROM donation_saving_records WHERE user_id = ? AND id = ?`, userID, id))
		if err != nil {
			return notFoundOr(err, "get donation/saving record")
		}
		p.Apply(&rec)
		if _, err := r.exec(ctx, tx, `UPDATE donation_saving_records SET type = ?, amount = ?, currency = ?,
			mode = ?, mode_value = ?, status = ?, transaction_id = ?, note = ? WHERE user_id = ? AND id = ?`,
			rec.Type, rec.Amount, rec.Currency, rec.Mode, rec.ModeValue, rec.Status, nullUUID(rec.TransactionID),
			rec.Note, userID, id); err != nil {
			return fmt.Errorf("update donation/saving record: %w", err)
		}
		out = rec
		return nil
	})
	return out, err
}

func (r *Repository) DeleteDonationSaving(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.exec(ctx, r.db, `DELETE FROM donation_saving_records WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete donation/saving record: %w", err)
	}
	return affectedOrNotFound(res, "delete donation/saving record")
}

const savingsGoalColumns = `id, user_id, name, description, target_amount, current_amount, source_account_id,
	savings_account_id, target_date, created_at`

func scanSavingsGoal(s rowScanner) (core.SavingsGoal, error) {
	var (
		g               core.SavingsGoal
		source, savings uuid.NullUUID
		target, created dbTime
	)
	err := s.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.TargetAmount, &g.CurrentAmount, &source,
		&savings, &target, &created)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g.SourceAccountID, g.SavingsAccountID = uuidPtr(source), uuidPtr(savings)
	g.TargetDate, g.CreatedAt = target.Ptr(), created.Time
	return g, nil
}

func (r *Repository) ListSavingsGoals(ctx context.Context, userID uuid.UUID) ([]core.SavingsGoal, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT `+savingsGoalColumns+` FROM savings_goals WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	out := []core.SavingsGoal{}
	for rows.Next() {
		g, err := scanSavingsGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) CreateSavingsGoal(ctx context.Context, userID uuid.UUID, in core.SavingsGoalInput) (core.SavingsGoal, error) {
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
		CreatedAt:        r.now().UTC(),
	}
	_, err := r.exec(ctx, r.db, `INSERT INTO savings_goals (`+savingsGoalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Description, g.TargetAmount, g.CurrentAmount, nullUUID(g.SourceAccountID),
		nullUUID(g.SavingsAccountID), g.TargetDate, g.CreatedAt)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	return g, nil
}

func (r *Repository) UpdateSavingsGoal(ctx context.Context, userID, id uuid.UUID, p core.SavingsGoalPatch) (core.SavingsGoal, error) {
	var out core.SavingsGoal
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		g, err := scanSavingsGoal(r.queryRow(ctx, tx,
			`SELECT `+savingsGoalColumns+` FROM savings_goals WHERE user_id = ? AND id = ?`, userID, id))
		if err != nil {
			return notFoundOr(err, "get savings goal")
		}
		p.Apply(&g)
		if _, err := r.exec(ctx, tx, `UPDATE savings_goals SET name = ?, description = ?, target_amount = ?,
			current_amount = ?, source_account_id = ?, savings_account_id = ?, target_date = ?
			WHERE user_id = ? AND id = ?`,
			g.Name, g.Description, g.TargetAmount, g.CurrentAmount, nullUUID(g.SourceAccountID),
			nullUUID(g.SavingsAccountID), g.TargetDate, userID, id); err != nil {
			return fmt.Errorf("update savings goal: %w", err)
		}
		out = g
		return nil
	})
	return out, err
}

func (r *Repository) DeleteSavingsGoal(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.exec(ctx, r.db, `DELETE FROM savings_goals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	return affectedOrNotFound(res, "delete savings goal")
}
