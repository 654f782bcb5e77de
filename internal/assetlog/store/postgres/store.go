// Package postgres persists asset records. The upsert is a single
// INSERT ... ON CONFLICT DO UPDATE so concurrent uploads to the same field
// resolve last-writer-wins without ever leaving two rows for one key.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chapel/internal/assetlog"
	"chapel/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert inserts or replaces the record for (entity_kind, entity_id,
// field_name). uploaded_by only changes when attributeUploader is set; a
// save that left the file untouched keeps the original attribution.
func (s *Store) Upsert(ctx context.Context, record assetlog.Record, attributeUploader bool) error {
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}

	query := `
		INSERT INTO asset_records
			(entity_kind, entity_id, field_name, location, size_bytes, uploaded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_kind, entity_id, field_name) DO UPDATE SET
			location    = EXCLUDED.location,
			size_bytes  = EXCLUDED.size_bytes,
			recorded_at = EXCLUDED.recorded_at,
			uploaded_by = CASE WHEN $8 THEN EXCLUDED.uploaded_by ELSE asset_records.uploaded_by END
	`
	_, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx, query,
		record.Entity.Kind,
		record.Entity.ID,
		record.FieldName,
		record.Location,
		record.SizeBytes,
		record.UploadedBy,
		record.RecordedAt,
		attributeUploader,
	)
	if err != nil {
		return fmt.Errorf("upsert asset record %s/%s: %w", record.Entity, record.FieldName, err)
	}
	return nil
}

// DeleteAllFor removes every record owned by ref. Runs inside the caller's
// transaction so the purge and the entity delete commit together.
func (s *Store) DeleteAllFor(ctx context.Context, ref assetlog.EntityRef) (int64, error) {
	res, err := tx.QuerierFrom(ctx, s.db).ExecContext(ctx,
		`DELETE FROM asset_records WHERE entity_kind = $1 AND entity_id = $2`,
		ref.Kind, ref.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("purge asset records for %s: %w", ref, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge asset records for %s: %w", ref, err)
	}
	return deleted, nil
}

// List returns records most recent first, narrowed by the filter.
func (s *Store) List(ctx context.Context, filter assetlog.Filter) ([]assetlog.Record, error) {
	query := `
		SELECT id, entity_kind, entity_id, field_name, location, size_bytes, uploaded_by, recorded_at
		FROM asset_records
		WHERE 1=1
	`
	args := make([]any, 0, 6)
	arg := 1

	if filter.EntityKind != "" {
		query += fmt.Sprintf(" AND entity_kind = $%d", arg)
		args = append(args, filter.EntityKind)
		arg++
	}
	if filter.EntityID != 0 {
		query += fmt.Sprintf(" AND entity_id = $%d", arg)
		args = append(args, filter.EntityID)
		arg++
	}
	if filter.UploadedBy != "" {
		query += fmt.Sprintf(" AND uploaded_by = $%d", arg)
		args = append(args, filter.UploadedBy)
		arg++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND recorded_at >= $%d", arg)
		args = append(args, filter.Since)
		arg++
	}
	if filter.MinSizeBytes > 0 {
		query += fmt.Sprintf(" AND size_bytes >= $%d", arg)
		args = append(args, filter.MinSizeBytes)
		arg++
	}

	query += " ORDER BY recorded_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", arg)
		args = append(args, filter.Limit)
	}

	rows, err := tx.QuerierFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query asset records: %w", err)
	}
	defer rows.Close()

	var records []assetlog.Record
	for rows.Next() {
		var r assetlog.Record
		err := rows.Scan(
			&r.ID,
			&r.Entity.Kind,
			&r.Entity.ID,
			&r.FieldName,
			&r.Location,
			&r.SizeBytes,
			&r.UploadedBy,
			&r.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan asset record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset records: %w", err)
	}
	return records, nil
}
