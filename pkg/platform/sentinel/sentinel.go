// Package sentinel defines errors for infrastructure facts. Stores return
// these (optionally wrapped) so services can translate them into domain
// errors without string matching.
//
// These represent factual states about resources, not validation failures:
//   - ErrNotFound: entity or ledger row does not exist in the store
//   - ErrConflict: a uniqueness or concurrency constraint was violated
//   - ErrUnavailable: the backing store is temporarily unreachable
package sentinel

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
