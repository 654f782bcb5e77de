// Package sweeper reconciles the asset ledger against the live content
// tables. Normal deletes purge their own records in-transaction; the
// sweeper exists for everything else, such as rows removed by hand in the
// database or purges lost to partial failures.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"chapel/internal/assetlog"
	"chapel/internal/audit"
	"chapel/internal/platform/metrics"
)

// EntityChecker reports whether an entity row still exists.
type EntityChecker interface {
	Exists(ctx context.Context, kind string, id int64) (bool, error)
}

// Result summarizes one sweep.
type Result struct {
	Scanned int
	Purged  int64
}

// Sweeper removes asset records whose entity rows are gone.
type Sweeper struct {
	assets   assetlog.Store
	entities EntityChecker
	registry audit.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(
	assets assetlog.Store,
	entities EntityChecker,
	registry audit.Registry,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Sweeper {
	return &Sweeper{
		assets:   assets,
		entities: entities,
		registry: registry,
		logger:   logger,
		metrics:  m,
	}
}

// Sweep scans every tracked kind concurrently and purges records whose
// entity no longer exists. An error on any kind aborts the sweep; the next
// run picks up whatever was left.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	results := make(chan Result)
	done := make(chan Result)
	go func() {
		var total Result
		for r := range results {
			total.Scanned += r.Scanned
			total.Purged += r.Purged
		}
		done <- total
	}()

	for _, kind := range s.registry.TrackedKinds() {
		g.Go(func() error {
			r, err := s.sweepKind(ctx, kind)
			if err != nil {
				return err
			}
			select {
			case results <- r:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}

	err := g.Wait()
	close(results)
	total := <-done
	if err != nil {
		return total, err
	}

	if total.Purged > 0 {
		s.metrics.OrphansSwept.Add(float64(total.Purged))
	}
	s.logger.InfoContext(ctx, "asset sweep finished",
		"scanned", total.Scanned,
		"purged", total.Purged,
	)
	return total, nil
}

func (s *Sweeper) sweepKind(ctx context.Context, kind string) (Result, error) {
	records, err := s.assets.List(ctx, assetlog.Filter{EntityKind: kind})
	if err != nil {
		return Result{}, fmt.Errorf("list asset records for %s: %w", kind, err)
	}

	result := Result{Scanned: len(records)}
	seen := make(map[assetlog.EntityRef]struct{})
	for _, record := range records {
		if _, ok := seen[record.Entity]; ok {
			continue
		}
		seen[record.Entity] = struct{}{}

		exists, err := s.entities.Exists(ctx, record.Entity.Kind, record.Entity.ID)
		if err != nil {
			return result, fmt.Errorf("check %s: %w", record.Entity, err)
		}
		if exists {
			continue
		}

		purged, err := s.assets.DeleteAllFor(ctx, record.Entity)
		if err != nil {
			return result, fmt.Errorf("purge orphaned records for %s: %w", record.Entity, err)
		}
		result.Purged += purged
		s.logger.WarnContext(ctx, "purged orphaned asset records",
			"entity", record.Entity.String(),
			"records", purged,
		)
	}
	return result, nil
}
