package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eng_portal/internal/auth"
)

var _ auth.UserStore = (*DB)(nil)

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

func (db *DB) CreateUser(ctx context.Context, u *auth.User) error {
	err := db.conn.QueryRowxContext(ctx,
		"INSERT INTO users (email, password_hash, first_name, surname) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		u.Email, u.PasswordHash, u.FirstName, u.Surname,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (db *DB) UserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var u auth.User
	err := db.conn.GetContext(ctx, &u,
		"SELECT id, email, password_hash, first_name, surname, created_at FROM users WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
