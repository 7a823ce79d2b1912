package storage

import (
	"context"

	"github.com/iudanet/docsync/internal/models"
)

// RevisionStorage defines the remote replica: an append-only log of document
// revisions per user. Every stored revision gets a sequence number that only grows.
type RevisionStorage interface {
	// PutRevisions stores revisions in one transaction. Revisions already known
	// for (user, document, rev) are skipped. Returns how many were new and the
	// user's current last sequence number.
	PutRevisions(ctx context.Context, userID string, entries []*models.RevisionEntry) (int, int64, error)

	// ChangesSince returns up to limit revisions of the user with seq > since,
	// ordered by seq (limit <= 0: all), and the seq of the last one returned
	// (since when nothing is returned).
	ChangesSince(ctx context.Context, userID string, since int64, limit int) ([]*models.RevisionEntry, int64, error)

	// LastSeq returns the user's last sequence number, 0 when nothing is stored
	LastSeq(ctx context.Context, userID string) (int64, error)
}
