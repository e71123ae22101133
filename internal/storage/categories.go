package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const categoryColumns = `id, user_id, name, type, color, icon, created_at`

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c       core.Category
		created dbTime
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Color, &c.Icon, &created); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = created.Time
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, userID uuid.UUID) ([]core.Category, error) {
	rows, err := r.query(ctx, r.db,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CreateCategory(ctx context.Context, userID uuid.UUID, in core.CategoryInput) (core.Category, error) {
	c := core.Category{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      in.Name,
		Type:      in.Type,
		Color:     in.Color,
		Icon:      in.Icon,
		CreatedAt: r.now().UTC(),
	}
	_, err := r.exec(ctx, r.db, `INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Type, c.Color, c.Icon, c.CreatedAt)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, userID, id uuid.UUID, p core.CategoryPatch) (core.Category, error) {
	var out core.Category
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		c, err := scanCategory(r.queryRow(ctx, tx,
			`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? AND id = ?`, userID, id))
		if err != nil {
			return notFoundOr(err, "get category")
		}
		p.Apply(&c)
		if _, err := r.exec(ctx, tx, `UPDATE categories SET name = ?, type = ?, color = ?, icon = ?
			WHERE user_id = ? AND id = ?`, c.Name, c.Type, c.Color, c.Icon, userID, id); err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		out = c
		return nil
	})
	return out, err
}

func (r *Repository) DeleteCategory(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.exec(ctx, r.db, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return affectedOrNotFound(res, "delete category")
}

const purchaseCategoryColumns = `id, user_id, category_name, description, monthly_budget, currency,
	category_color, deleted_at, created_at`

func scanPurchaseCategory(s rowScanner) (core.PurchaseCategory, error) {
	var (
		pc               core.PurchaseCategory
		deleted, created dbTime
	)
	err := s.Scan(&pc.ID, &pc.UserID, &pc.CategoryName, &pc.Description, &pc.MonthlyBudget, &pc.Currency,
		&pc.CategoryColor, &deleted, &created)
	if err != nil {
		return core.PurchaseCategory{}, err
	}
	pc.DeletedAt, pc.CreatedAt = deleted.Ptr(), created.Time
	return pc, nil
}

func (r *Repository) ListPurchaseCategories(ctx context.Context, userID uuid.UUID, includeDeleted bool) ([]core.PurchaseCategory, error) {
	query := `SELECT ` + purchaseCategoryColumns + ` FROM purchase_categories WHERE user_id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	rows, err := r.query(ctx, r.db, query+` ORDER BY category_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchase categories: %w", err)
	}
	defer rows.Close()

	out := []core.PurchaseCategory{}
	for rows.Next() {
		pc, err := scanPurchaseCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase category: %w", err)
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (r *Repository) CreatePurchaseCategory(ctx context.Context, userID uuid.UUID, in core.PurchaseCategoryInput) (core.PurchaseCategory, error) {
	pc := core.PurchaseCategory{
		ID:            uuid.New(),
		UserID:        userID,
		CategoryName:  in.CategoryName,
		Description:   in.Description,
		MonthlyBudget: in.MonthlyBudget,
		Currency:      in.Currency,
		CategoryColor: in.CategoryColor,
		CreatedAt:     r.now().UTC(),
	}
	_, err := r.exec(ctx, r.db, `INSERT INTO purchase_categories (`+purchaseCategoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pc.ID, pc.UserID, pc.CategoryName, pc.Description, pc.MonthlyBudget, pc.Currency, pc.CategoryColor,
		pc.DeletedAt, pc.CreatedAt)
	if err != nil {
		return core.PurchaseCategory{}, fmt.Errorf("create purchase category: %w", err)
	}
	return pc, nil
}

func (r *Repository) UpdatePurchaseCategory(ctx context.Context, userID, id uuid.UUID, p core.PurchaseCategoryPatch) (core.PurchaseCategory, error) {
	var out core.PurchaseCategory
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		pc, err := scanPurchaseCategory(r.queryRow(ctx, tx, `SELECT `+purchaseCategoryColumns+`
			FROM purchase_categories WHERE user_id = ? AND id = ? AND deleted_at IS NULL`, userID, id))
		if err != nil {
			return notFoundOr(err, "get purchase category")
		}
		p.Apply(&pc)
		if _, err := r.exec(ctx, tx, `UPDATE purchase_categories SET category_name = ?, description = ?,
			monthly_budget = ?, currency = ?, category_color = ? WHERE user_id = ? AND id = ?`,
			pc.CategoryName, pc.Description, pc.MonthlyBudget, pc.Currency, pc.CategoryColor, userID, id); err != nil {
			return fmt.Errorf("update purchase category: %w", err)
		}
		out = pc
		return nil
	})
	return out, err
}

func (r *Repository) DeletePurchaseCategory(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	res, err := r.exec(ctx, r.db, `UPDATE purchase_categories SET deleted_at = ?
		WHERE user_id = ? AND id = ? AND deleted_at IS NULL`, at.UTC(), userID, id)
	if err != nil {
		return fmt.Errorf("delete purchase category: %w", err)
	}
	return affectedOrNotFound(res, "delete purchase category")
}
