// Package assetlog is the derived ledger of uploaded files attached to
// tracked content entities: which entity currently holds a file, where it
// lives, how big it is, and who uploaded it.
//
// The link to the owning entity is logical (type name plus numeric id), not a
// relational foreign key, so the database never cascades deletes here. The
// lifecycle observer owns reconciliation: it upserts on save and purges
// before the owning entity row is removed.
package assetlog

import (
	"fmt"
	"time"
)

// EntityRef is the typed logical key of an owning entity.
type EntityRef struct {
	Kind string
	ID   int64
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.ID)
}

// Record tracks one uploaded file on one field of one entity. At most one
// record exists per (entity kind, entity id, field name); a re-upload
// replaces it.
type Record struct {
	ID         int64
	Entity     EntityRef
	FieldName  string
	Location   string
	SizeBytes  int64
	UploadedBy string
	RecordedAt time.Time
}
