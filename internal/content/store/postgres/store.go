// Package postgres implements the content store on PostgreSQL. Scalar
// attributes and uploaded files are stored as JSONB so every content kind
// shares one table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chapel/internal/content"
	"chapel/pkg/platform/sentinel"
	"chapel/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, item *content.Item) error {
	attrs, files, err := marshalMaps(item)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt

	q := tx.QuerierFrom(ctx, s.db)
	err = q.QueryRowContext(ctx, `
		INSERT INTO content_items (kind, title, body, attrs, files, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		item.Kind, item.Title, item.Body, attrs, files, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("insert content item: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, kind string, id int64) (*content.Item, error) {
	q := tx.QuerierFrom(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, kind, title, body, attrs, files, created_at, updated_at
		FROM content_items
		WHERE kind = $1 AND id = $2`,
		kind, id,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content item: %w", err)
	}
	return item, nil
}

func (s *Store) Update(ctx context.Context, item *content.Item) error {
	attrs, files, err := marshalMaps(item)
	if err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC()

	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE content_items
		SET title = $1, body = $2, attrs = $3, files = $4, updated_at = $5
		WHERE kind = $6 AND id = $7`,
		item.Title, item.Body, attrs, files, item.UpdatedAt, item.Kind, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update content item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update content item: rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, kind string, id int64) error {
	q := tx.QuerierFrom(ctx, s.db)
	res, err := q.ExecContext(ctx, `DELETE FROM content_items WHERE kind = $1 AND id = $2`, kind, id)
	if err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete content item: rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, f content.Filter) ([]*content.Item, error) {
	query := `
		SELECT id, kind, title, body, attrs, files, created_at, updated_at
		FROM content_items`
	var args []any
	if f.Kind != "" {
		args = append(args, f.Kind)
		query += fmt.Sprintf(" WHERE kind = $%d", len(args))
	}
	query += " ORDER BY kind, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	q := tx.QuerierFrom(ctx, s.db)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list content items: %w", err)
	}
	defer rows.Close()

	var out []*content.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content items: %w", err)
	}
	return out, nil
}

func (s *Store) Exists(ctx context.Context, kind string, id int64) (bool, error) {
	q := tx.QuerierFrom(ctx, s.db)
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM content_items WHERE kind = $1 AND id = $2)`,
		kind, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check content item: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*content.Item, error) {
	var (
		item  content.Item
		attrs []byte
		files []byte
	)
	if err := row.Scan(&item.ID, &item.Kind, &item.Title, &item.Body, &attrs, &files, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &item.Attrs); err != nil {
			return nil, fmt.Errorf("decode attrs: %w", err)
		}
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &item.Files); err != nil {
			return nil, fmt.Errorf("decode files: %w", err)
		}
	}
	return &item, nil
}

func marshalMaps(item *content.Item) (attrs, files []byte, err error) {
	attrs, err = json.Marshal(item.Attrs)
	if err != nil {
		return nil, nil, fmt.Errorf("encode attrs: %w", err)
	}
	files, err = json.Marshal(item.Files)
	if err != nil {
		return nil, nil, fmt.Errorf("encode files: %w", err)
	}
	return attrs, files, nil
}
