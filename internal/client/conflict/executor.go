// Package conflict находит документы с несколькими живыми листьями
// и сводит их к одному листу через merge.Merger.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/docsync/internal/client/docstore"
	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/events"
	"github.com/iudanet/docsync/internal/merge"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/revtree"
)

// DefaultMaxAttempts bounds the write-then-remove retry loop
const DefaultMaxAttempts = 5

var (
	// ErrRetriesExhausted indicates that concurrent writes kept invalidating the resolution
	ErrRetriesExhausted = errors.New("conflict resolution retries exhausted")

	// errDeferred - нашлось только composite-слияние, а оно запрещено политикой
	errDeferred = errors.New("composite merge deferred")
)

//go:generate moq -out store_mock_test.go . DocumentStore

// DocumentStore is the part of the document store the executor writes through.
type DocumentStore interface {
	Leaves(ctx context.Context, id string) (revtree.Set, error)
	GetRevision(ctx context.Context, id string, rev models.Revision) (*models.RevisionEntry, error)
	Put(ctx context.Context, doc *models.Document, expected *models.Revision, opts ...docstore.WriteOption) (*models.Document, error)
	Remove(ctx context.Context, id string, rev models.Revision, opts ...docstore.WriteOption) error
	ListConflicts(ctx context.Context) ([]models.Conflict, error)
}

// Executor commits merge results through the document store.
type Executor struct {
	store       DocumentStore
	merger      *merge.Merger
	events      events.Publisher
	logger      *slog.Logger
	maxAttempts int
}

// NewExecutor creates an executor. maxAttempts <= 0 selects DefaultMaxAttempts.
func NewExecutor(store DocumentStore, merger *merge.Merger, publisher events.Publisher, logger *slog.Logger, maxAttempts int) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Executor{
		store:       store,
		merger:      merger,
		events:      publisher,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// Resolve merges every live leaf of id into one revision.
// Returns 1 if the document was reconciled, 0 if it was not in conflict.
func (e *Executor) Resolve(ctx context.Context, id string) (int, error) {
	return e.resolve(ctx, id, true, "manual")
}

// resolve повторяет попытку, пока конкурентная запись ломает ожидаемую ревизию
func (e *Executor) resolve(ctx context.Context, id string, allowComposite bool, trigger string) (int, error) {
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		n, err := e.resolveOnce(ctx, id, allowComposite, trigger)
		if !errors.Is(err, storage.ErrRevisionConflict) {
			return n, err
		}

		resolutionRetries.Inc()
		e.logger.Debug("Concurrent write during resolution, retrying",
			"doc_id", id,
			"attempt", attempt)
	}

	resolutionErrors.WithLabelValues("retries_exhausted").Inc()
	return 0, fmt.Errorf("document %q after %d attempts: %w", id, e.maxAttempts, ErrRetriesExhausted)
}

func (e *Executor) resolveOnce(ctx context.Context, id string, allowComposite bool, trigger string) (int, error) {
	leaves, err := e.store.Leaves(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to read leaves: %w", err)
	}

	live := leaves.Live()
	if len(live) < 2 {
		return 0, nil
	}

	sides := make([]merge.Side, 0, len(live))
	entries := make(map[models.Revision]*models.RevisionEntry, len(live))
	for _, rev := range live {
		entry, err := e.store.GetRevision(ctx, id, rev)
		if err != nil {
			return 0, fmt.Errorf("failed to read leaf %s: %w", rev, err)
		}
		entries[rev] = entry
		sides = append(sides, merge.Side{Body: entry.Body, UpdatedAt: entry.UpdatedAt, Revision: rev})
	}

	result, err := e.merger.MergeAll(sides)
	if err != nil {
		resolutionErrors.WithLabelValues("merge_failure").Inc()
		return 0, fmt.Errorf("failed to merge %q: %w", id, err)
	}
	if result.Composite() && !allowComposite {
		return 0, errDeferred
	}

	winner, _ := leaves.Winner()
	winnerEntry := entries[winner]

	merged := &models.Document{
		ID:        id,
		Title:     winnerEntry.Title,
		Body:      result.Body,
		CreatedAt: winnerEntry.CreatedAt,
	}
	doc, err := e.store.Put(ctx, merged, &winner, docstore.FromMerge())
	if err != nil {
		return 0, err
	}

	for _, rev := range live {
		if rev == winner {
			continue
		}
		if err := e.store.Remove(ctx, id, rev, docstore.FromMerge()); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Лист уже убран кем-то другим
				continue
			}
			return 0, fmt.Errorf("failed to remove leaf %s: %w", rev, err)
		}
	}

	// Проигравший лист могли продлить репликацией между Put и Remove
	after, err := e.store.Leaves(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to read leaves: %w", err)
	}
	if remaining := after.Live(); len(remaining) > 1 {
		return 0, fmt.Errorf("%w: document %q still has %d live leaves after merge",
			storage.ErrRevisionConflict, id, len(remaining))
	}

	resolutionsTotal.WithLabelValues(result.Tier.String(), trigger).Inc()
	e.logger.Info("Conflict resolved",
		"doc_id", id,
		"leaves", len(live),
		"tier", result.Tier.String(),
		"rev", doc.Revision.String())
	e.events.Publish(events.DocumentResolved(id))

	return 1, nil
}

// ResolveManual keeps winning and removes the given losing revisions without merging.
// Returns the number of revisions removed.
func (e *Executor) ResolveManual(ctx context.Context, id string, winning models.Revision, losing []models.Revision) (int, error) {
	leaves, err := e.store.Leaves(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to read leaves: %w", err)
	}
	if !leaves.IsLive(winning) {
		return 0, fmt.Errorf("winning revision %s of %q is not a live leaf: %w", winning, id, storage.ErrNotFound)
	}

	removed := 0
	for _, rev := range losing {
		if rev == winning {
			continue
		}
		if err := e.store.Remove(ctx, id, rev, docstore.FromMerge()); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("failed to remove losing revision %s: %w", rev, err)
		}
		removed++
	}

	if removed > 0 {
		resolutionsTotal.WithLabelValues("manual", "manual").Inc()
		e.logger.Info("Conflict resolved manually",
			"doc_id", id,
			"winner", winning.String(),
			"removed", removed)
		e.events.Publish(events.DocumentResolved(id))
	}

	return removed, nil
}

// AutoResolveAll resolves every listed conflict, composites included.
// Failures of individual documents are joined into the returned error.
func (e *Executor) AutoResolveAll(ctx context.Context) (int, error) {
	conflicts, err := e.store.ListConflicts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list conflicts: %w", err)
	}

	var (
		total int
		errs  []error
	)
	for _, c := range conflicts {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := e.resolve(ctx, c.ID, true, "auto_all")
		if err != nil {
			e.logger.Warn("Failed to resolve conflict", "doc_id", c.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		total += n
	}

	return total, errors.Join(errs...)
}
