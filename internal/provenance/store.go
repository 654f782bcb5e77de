package provenance

import (
	"context"
	"time"
)

// Filter narrows a ledger query. Zero values mean "no filter" for that
// dimension. Results are always most recent first.
type Filter struct {
	Actor      string
	Kind       Kind
	EntityKind string
	Since      time.Time
	Until      time.Time
	Limit      int
}

// Store is the provenance ledger persistence contract. It is append-only by
// construction: no update or delete operation exists on any implementation,
// so downstream layers cannot acquire one.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Reader is the view handed to reporting/admin layers. It carries no write
// capability at all.
type Reader interface {
	List(ctx context.Context, filter Filter) ([]Event, error)
}
