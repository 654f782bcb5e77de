package assetlog

import (
	"context"
	"time"
)

// Filter narrows a ledger query. Zero values mean "no filter"; results are
// most recent first.
type Filter struct {
	EntityKind   string
	EntityID     int64
	UploadedBy   string
	Since        time.Time
	MinSizeBytes int64
	Limit        int
}

// Store is the asset ledger persistence contract.
//
// Upsert is atomic insert-or-replace keyed by (entity kind, entity id, field
// name): concurrent uploads to the same field resolve last-writer-wins with
// no duplicate row. When attributeUploader is false a surviving record keeps
// its previous UploadedBy, since the file did not change in this save, only the
// entity around it.
//
// DeleteAllFor removes every record for one entity and returns how many went;
// the observer calls it before the entity row itself is deleted.
type Store interface {
	Upsert(ctx context.Context, record Record, attributeUploader bool) error
	DeleteAllFor(ctx context.Context, ref EntityRef) (int64, error)
	List(ctx context.Context, filter Filter) ([]Record, error)
}

// Reader is the mutation-free view handed to reporting/admin layers.
type Reader interface {
	List(ctx context.Context, filter Filter) ([]Record, error)
}
