package conflict

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iudanet/docsync/internal/events"
)

// Detector scans documents touched by replication and hands conflicts to the Executor.
//
// Only structural merges are applied automatically unless autoComposite is set;
// a document whose leaves can only be combined into a composite body stays in
// conflict and a conflictDetected event is published for it.
type Detector struct {
	executor      *Executor
	events        events.Publisher
	logger        *slog.Logger
	autoComposite bool
}

// NewDetector creates a detector
func NewDetector(executor *Executor, publisher events.Publisher, logger *slog.Logger, autoComposite bool) *Detector {
	return &Detector{
		executor:      executor,
		events:        publisher,
		logger:        logger,
		autoComposite: autoComposite,
	}
}

// Scan checks ids and resolves the conflicts it can. Returns the number of
// documents resolved. Merge failures are logged and leave the conflict in place.
func (d *Detector) Scan(ctx context.Context, ids []string) (int, error) {
	resolved := 0
	var deferred []string

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}

		n, err := d.executor.resolve(ctx, id, d.autoComposite, "detector")
		switch {
		case errors.Is(err, errDeferred):
			deferredTotal.Inc()
			deferred = append(deferred, id)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return resolved, err
		case err != nil:
			d.logger.Warn("Conflict left in place", "doc_id", id, "error", err)
		default:
			resolved += n
		}
	}

	if len(deferred) > 0 {
		d.logger.Info("Conflicts need manual resolution", "doc_ids", deferred)
		d.events.Publish(events.ConflictDetected(deferred...))
	}

	return resolved, nil
}

// ScanAll scans every document currently in conflict.
func (d *Detector) ScanAll(ctx context.Context) (int, error) {
	conflicts, err := d.executor.store.ListConflicts(ctx)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.ID)
	}
	return d.Scan(ctx, ids)
}
