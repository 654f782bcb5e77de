// Package auth implements staff authentication. Every sign-in, sign-out,
// and rejected attempt lands in the provenance ledger so the account
// history can be reconstructed.
package auth

import "time"

// User is a staff account. PasswordHash is a bcrypt hash and never leaves
// this package.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

// Roles understood by the admin surface.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)
