// Package provenance is the append-only ledger of audit events: who did what,
// to which entity, when, and from where. Rows are written once and never
// mutated or deleted by the application.
package provenance

import (
	"time"

	"chapel/pkg/callerctx"
)

// MaxSummaryLen bounds the human-readable entity snapshot stored per event.
const MaxSummaryLen = 500

// Kind classifies what happened.
type Kind string

const (
	KindCreate       Kind = "CREATE"
	KindUpdate       Kind = "UPDATE"
	KindDelete       Kind = "DELETE"
	KindLogin        Kind = "LOGIN"
	KindLogout       Kind = "LOGOUT"
	KindAccessDenied Kind = "ACCESS_DENIED"
)

// Valid reports whether k is one of the defined event kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCreate, KindUpdate, KindDelete, KindLogin, KindLogout, KindAccessDenied:
		return true
	}
	return false
}

// Change records one field transition inside an UPDATE event.
type Change struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Changes maps field name to its transition. Empty for events with no
// field-level delta.
type Changes map[string]Change

// Event is one immutable audit record.
//
// Actor is the caller's identity, empty for anonymous or system-initiated
// actions; if the account behind it is later removed the string simply stops
// resolving, the row stays valid. EntityKind is a logical type name, not a
// foreign key, and EntityID is zero for LOGIN/LOGOUT/ACCESS_DENIED events.
type Event struct {
	ID            int64
	Actor         string
	Kind          Kind
	EntityKind    string
	EntityID      int64
	Summary       string
	Delta         Changes
	SourceAddress string
	AgentString   string
	OccurredAt    time.Time
}

// Normalized returns a copy with storage bounds applied and a timestamp
// defaulted to now. Both store implementations run events through this so
// the ledger invariants hold regardless of backend.
func (e Event) Normalized(now time.Time) Event {
	e.Summary = callerctx.Truncate(e.Summary, MaxSummaryLen)
	e.AgentString = callerctx.Truncate(e.AgentString, callerctx.MaxAgentLen)
	if e.OccurredAt.IsZero() {
		e.OccurredAt = now
	}
	return e
}
