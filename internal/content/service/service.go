// Package service implements content mutations. Every write runs inside one
// transaction together with its ledger writes, so a content row can never
// commit without its audit trail being given the chance to commit with it.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"chapel/internal/audit"
	"chapel/internal/content"
	dErrors "chapel/pkg/domain-errors"
)

type Service struct {
	store    content.Store
	txRunner content.TxRunner
	observer *audit.Observer
	logger   *slog.Logger
}

func New(store content.Store, txRunner content.TxRunner, observer *audit.Observer, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		txRunner: txRunner,
		observer: observer,
		logger:   logger,
	}
}

// Create persists a new item and records its CREATE event and asset records
// in the same transaction.
func (s *Service) Create(ctx context.Context, item *content.Item) (*content.Item, error) {
	if err := validate(item); err != nil {
		return nil, err
	}

	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, item); err != nil {
			return fmt.Errorf("create %s: %w", item.Kind, err)
		}
		return s.observer.EntityCreated(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Update saves a changed item. The previous version is read inside the
// transaction so the recorded delta reflects exactly what this save changed.
func (s *Service) Update(ctx context.Context, item *content.Item) (*content.Item, error) {
	if err := validate(item); err != nil {
		return nil, err
	}

	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		prev, err := s.store.Get(ctx, item.Kind, item.ID)
		if err != nil {
			return fmt.Errorf("load %s %d: %w", item.Kind, item.ID, err)
		}
		if err := s.store.Update(ctx, item); err != nil {
			return fmt.Errorf("update %s %d: %w", item.Kind, item.ID, err)
		}
		return s.observer.EntityUpdated(ctx, prev, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item. Asset records are purged and the DELETE event is
// written before the row goes away, all in one transaction; a purge failure
// rolls the whole delete back.
func (s *Service) Delete(ctx context.Context, kind string, id int64) error {
	if !content.KnownKind(kind) {
		return dErrors.New(dErrors.CodeBadRequest, "unknown content kind")
	}

	return s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		item, err := s.store.Get(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("load %s %d: %w", kind, id, err)
		}
		if err := s.observer.EntityDeleted(ctx, item); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, kind, id); err != nil {
			return fmt.Errorf("delete %s %d: %w", kind, id, err)
		}
		return nil
	})
}

// Get reads a single item.
func (s *Service) Get(ctx context.Context, kind string, id int64) (*content.Item, error) {
	if !content.KnownKind(kind) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown content kind")
	}
	item, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return item, nil
}

// List reads items, optionally narrowed by kind.
func (s *Service) List(ctx context.Context, f content.Filter) ([]*content.Item, error) {
	if f.Kind != "" && !content.KnownKind(f.Kind) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown content kind")
	}
	items, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return items, nil
}

func validate(item *content.Item) error {
	if !content.KnownKind(item.Kind) {
		return dErrors.New(dErrors.CodeBadRequest, "unknown content kind")
	}
	if item.Title == "" {
		return dErrors.New(dErrors.CodeBadRequest, "title is required")
	}
	return nil
}
