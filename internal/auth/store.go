package auth

import "context"

// Store persists staff accounts.
type Store interface {
	Create(ctx context.Context, user *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
}
