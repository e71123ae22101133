package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	u := core.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	_, err := r.exec(ctx, r.db,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return core.User{}, fmt.Errorf("create user %s: %w", u.Email, core.ErrConflict)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (core.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repository) getUser(ctx context.Context, query string, arg any) (core.User, error) {
	var (
		u       core.User
		created dbTime
	)
	err := r.queryRow(ctx, r.db, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if err != nil {
		return core.User{}, notFoundOr(err, "get user")
	}
	u.CreatedAt = created.Time
	return u, nil
}

func (r *Repository) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.query(ctx, r.db, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
