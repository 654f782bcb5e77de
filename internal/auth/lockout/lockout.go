// Package lockout throttles repeated failed sign-ins per account. Counters
// expire on their own, so a locked account heals without operator action.
package lockout

import "context"

// Tracker counts failed sign-in attempts and reports when an account is
// locked out.
type Tracker interface {
	// RecordFailure bumps the failure counter and returns the new count.
	RecordFailure(ctx context.Context, username string) (int64, error)
	// Locked reports whether the account has hit the failure threshold.
	Locked(ctx context.Context, username string) (bool, error)
	// Clear resets the counter after a successful sign-in.
	Clear(ctx context.Context, username string) error
}
