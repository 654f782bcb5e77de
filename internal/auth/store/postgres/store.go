// Package postgres implements the staff account store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"chapel/internal/auth"
	"chapel/pkg/platform/sentinel"
	"chapel/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, user *auth.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	q := tx.QuerierFrom(ctx, s.db)
	err := q.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		user.Username, user.PasswordHash, user.Role, user.Active, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var user auth.User
	err := q.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, active, created_at
		FROM users
		WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Active, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
