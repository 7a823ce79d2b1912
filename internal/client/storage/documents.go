package storage

import (
	"context"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/revtree"
)

// LoadFunc читает сохранённую ревизию внутри текущей транзакции
type LoadFunc func(rev models.Revision) (*models.RevisionEntry, error)

// Mutation строит новую ревизию документа по его текущим листьям.
// Вызывается внутри транзакции записи, поэтому проверка и запись атомарны.
// Возврат (nil, nil) означает, что писать нечего.
type Mutation func(leaves revtree.Set, load LoadFunc) (*models.RevisionEntry, error)

// DocumentStorage defines the local replica: append-only revisions, leaf sets
// and the change feed.
type DocumentStorage interface {
	// WriteRevision runs m against the current leaves of id and stores the
	// returned revision atomically. The bool result is false when m produced
	// nothing or the revision already existed.
	WriteRevision(ctx context.Context, id string, m Mutation) (*models.RevisionEntry, bool, error)

	// ApplyRevisions stores revisions received from the remote replica in one
	// transaction. Known revisions are skipped. Returns ids touched by newly
	// stored revisions, in input order.
	ApplyRevisions(ctx context.Context, entries []*models.RevisionEntry) ([]string, error)

	// GetRevision returns one stored revision
	// Returns ErrNotFound if it doesn't exist
	GetRevision(ctx context.Context, id string, rev models.Revision) (*models.RevisionEntry, error)

	// Leaves returns the leaf set of a document (empty for unknown ids)
	Leaves(ctx context.Context, id string) (revtree.Set, error)

	// ListDocuments returns the winner of every document that has a live leaf
	ListDocuments(ctx context.Context) ([]*models.Document, error)

	// ChangesSince returns up to limit changes with seq > since (limit <= 0: all).
	// Remote changes are skipped unless includeRemote is set. The returned seq is
	// the last sequence number scanned, so callers can move past skipped changes.
	ChangesSince(ctx context.Context, since uint64, limit int, includeRemote bool) ([]models.Change, uint64, error)
}
