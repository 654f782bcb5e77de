// Package postgres persists provenance events. Inserts join any transaction
// carried in context so an event commits or rolls back with the entity
// mutation that produced it.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"chapel/internal/provenance"
	"chapel/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one event row. The interface exposes no update or delete,
// and neither does the schema user this store runs as.
func (s *Store) Append(ctx context.Context, event provenance.Event) error {
	event = event.Normalized(time.Now())

	delta, err := json.Marshal(event.Delta)
	if err != nil {
		return fmt.Errorf("marshal event delta: %w", err)
	}
	if event.Delta == nil {
		delta = []byte("{}")
	}

	var entityID sql.NullInt64
	if event.EntityID != 0 {
		entityID = sql.NullInt64{Int64: event.EntityID, Valid: true}
	}

	query := `
		INSERT INTO provenance_events
			(actor, kind, entity_kind, entity_id, summary, delta, source_address, agent_string, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.QuerierFrom(ctx, s.db).ExecContext(ctx, query,
		event.Actor,
		string(event.Kind),
		event.EntityKind,
		entityID,
		event.Summary,
		delta,
		event.SourceAddress,
		event.AgentString,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert provenance event: %w", err)
	}
	return nil
}

// List returns events most recent first, narrowed by the filter.
func (s *Store) List(ctx context.Context, filter provenance.Filter) ([]provenance.Event, error) {
	query := `
		SELECT id, actor, kind, entity_kind, entity_id, summary, delta,
		       source_address, agent_string, occurred_at
		FROM provenance_events
		WHERE 1=1
	`
	args := make([]any, 0, 6)
	arg := 1

	if filter.Actor != "" {
		query += fmt.Sprintf(" AND actor = $%d", arg)
		args = append(args, filter.Actor)
		arg++
	}
	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", arg)
		args = append(args, string(filter.Kind))
		arg++
	}
	if filter.EntityKind != "" {
		query += fmt.Sprintf(" AND entity_kind = $%d", arg)
		args = append(args, filter.EntityKind)
		arg++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", arg)
		args = append(args, filter.Since)
		arg++
	}
	if !filter.Until.IsZero() {
		query += fmt.Sprintf(" AND occurred_at <= $%d", arg)
		args = append(args, filter.Until)
		arg++
	}

	query += " ORDER BY occurred_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", arg)
		args = append(args, filter.Limit)
	}

	rows, err := tx.QuerierFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query provenance events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]provenance.Event, error) {
	var events []provenance.Event

	for rows.Next() {
		var (
			event    provenance.Event
			kind     string
			entityID sql.NullInt64
			delta    []byte
		)
		err := rows.Scan(
			&event.ID,
			&event.Actor,
			&kind,
			&event.EntityKind,
			&entityID,
			&event.Summary,
			&delta,
			&event.SourceAddress,
			&event.AgentString,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan provenance event: %w", err)
		}

		event.Kind = provenance.Kind(kind)
		if entityID.Valid {
			event.EntityID = entityID.Int64
		}
		if len(delta) > 0 {
			if err := json.Unmarshal(delta, &event.Delta); err != nil {
				return nil, fmt.Errorf("unmarshal event delta: %w", err)
			}
		}
		if len(event.Delta) == 0 {
			event.Delta = nil
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provenance events: %w", err)
	}
	return events, nil
}
