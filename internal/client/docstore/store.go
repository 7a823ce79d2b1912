// Package docstore - локальная реплика документов поверх DocumentStorage.
//
// Store назначает ревизии, проверяет ожидаемую ревизию при записи,
// превращает удаление в tombstone и публикует событие changed после
// каждой успешной записи.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/events"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/revtree"
	"github.com/iudanet/docsync/internal/validation"
)

// WriteOption настраивает одну запись
type WriteOption func(*writeOptions)

type writeOptions struct {
	source events.Source
}

// FromMerge marks a write as produced by conflict resolution.
func FromMerge() WriteOption {
	return func(o *writeOptions) {
		o.source = events.SourceMerge
	}
}

func applyOptions(opts []WriteOption) writeOptions {
	o := writeOptions{source: events.SourceLocal}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Store is the local document replica.
type Store struct {
	storage storage.DocumentStorage
	events  events.Publisher
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a document store
func New(st storage.DocumentStorage, publisher events.Publisher, logger *slog.Logger) *Store {
	return &Store{
		storage: st,
		events:  publisher,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Get возвращает выигравшую ревизию документа
func (s *Store) Get(ctx context.Context, id string) (*models.Document, error) {
	leaves, err := s.storage.Leaves(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaves: %w", err)
	}

	winner, ok := leaves.Winner()
	if !ok {
		return nil, fmt.Errorf("document %q: %w", id, storage.ErrNotFound)
	}

	entry, err := s.storage.GetRevision(ctx, id, winner)
	if err != nil {
		return nil, fmt.Errorf("failed to read winner of %q: %w", id, err)
	}

	return entry.Document(leaves.Live()), nil
}

// Put writes a new revision of doc.
//
// With expected set the write succeeds only if expected is the current winner
// (storage.ErrRevisionConflict otherwise) and the new revision descends from it.
// Without expected: an absent document starts at generation 1, a deleted one is
// re-created on top of its newest tombstone, and a live one gets a new sibling
// branch (a conflict).
func (s *Store) Put(ctx context.Context, doc *models.Document, expected *models.Revision, opts ...WriteOption) (*models.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", validation.ErrInvalid)
	}
	if err := validation.ValidateDocumentID(doc.ID); err != nil {
		return nil, err
	}
	if err := validation.ValidateTitle(doc.Title); err != nil {
		return nil, err
	}
	if err := validation.ValidateBody(doc.Body); err != nil {
		return nil, err
	}

	o := applyOptions(opts)

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()

	var after revtree.Set
	entry, written, err := s.storage.WriteRevision(ctx, id, func(leaves revtree.Set, load storage.LoadFunc) (*models.RevisionEntry, error) {
		winner, hasWinner := leaves.Winner()

		var parent models.Revision
		switch {
		case expected != nil:
			if !hasWinner || winner != *expected {
				return nil, fmt.Errorf("%w: document %q expected %s, current %s",
					storage.ErrRevisionConflict, id, expected, winner)
			}
			parent = winner
		case !hasWinner:
			// Пересоздание поверх самого нового tombstone
			if newest, ok := leaves.Newest(); ok {
				parent = newest.Rev
			}
		}

		generation := parent.Generation + 1
		if parent.IsZero() && len(leaves) > 0 {
			generation = leaves.MaxGeneration() + 1
		}

		createdAt := doc.CreatedAt
		if hasWinner {
			current, err := load(winner)
			if err != nil {
				return nil, err
			}
			createdAt = current.CreatedAt
		}
		if createdAt.IsZero() {
			createdAt = now
		}

		entry := &models.RevisionEntry{
			ID:        id,
			Title:     doc.Title,
			Body:      doc.Body,
			Parent:    parent,
			Rev:       models.NextRevision(generation, parent, doc.Title, doc.Body, false),
			CreatedAt: createdAt,
			UpdatedAt: now,
		}
		after = leaves.Extend(parent, revtree.Leaf{Rev: entry.Rev})
		return entry, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put document: %w", err)
	}

	if !written {
		s.logger.Debug("Revision already exists, nothing written",
			"doc_id", id,
			"rev", entry.Rev.String())
		return s.Get(ctx, id)
	}

	s.logger.Debug("Document written",
		"doc_id", id,
		"rev", entry.Rev.String(),
		"parent", entry.Parent.String(),
		"source", o.source)

	s.events.Publish(events.Changed(o.source, id))

	return entry.Document(after.Live()), nil
}

// Remove retires the live leaf rev of id with a tombstone revision.
// Returns storage.ErrNotFound if rev is not a live leaf.
func (s *Store) Remove(ctx context.Context, id string, rev models.Revision, opts ...WriteOption) error {
	o := applyOptions(opts)

	_, written, err := s.storage.WriteRevision(ctx, id, func(leaves revtree.Set, load storage.LoadFunc) (*models.RevisionEntry, error) {
		if !leaves.IsLive(rev) {
			return nil, fmt.Errorf("revision %s of %q is not a live leaf: %w", rev, id, storage.ErrNotFound)
		}

		current, err := load(rev)
		if err != nil {
			return nil, err
		}

		return &models.RevisionEntry{
			ID:        id,
			Title:     current.Title,
			Parent:    rev,
			Deleted:   true,
			Rev:       models.NextRevision(rev.Generation+1, rev, current.Title, "", true),
			CreatedAt: current.CreatedAt,
			UpdatedAt: s.now(),
		}, nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove revision: %w", err)
	}

	if written {
		s.logger.Debug("Revision removed", "doc_id", id, "rev", rev.String(), "source", o.source)
		s.events.Publish(events.Changed(o.source, id))
	}

	return nil
}

// ListAll returns every live document, most recently updated first.
func (s *Store) ListAll(ctx context.Context) ([]*models.Document, error) {
	docs, err := s.storage.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	return docs, nil
}

// ListConflicts returns documents with more than one live leaf, ordered by id.
func (s *Store) ListConflicts(ctx context.Context) ([]models.Conflict, error) {
	docs, err := s.storage.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	var conflicts []models.Conflict
	for _, d := range docs {
		if d.InConflict() {
			conflicts = append(conflicts, models.Conflict{ID: d.ID, LeafRevisions: d.LeafRevisions})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].ID < conflicts[j].ID })

	return conflicts, nil
}

// Leaves returns the leaf set of id
func (s *Store) Leaves(ctx context.Context, id string) (revtree.Set, error) {
	return s.storage.Leaves(ctx, id)
}

// GetRevision returns one revision of id
func (s *Store) GetRevision(ctx context.Context, id string, rev models.Revision) (*models.RevisionEntry, error) {
	return s.storage.GetRevision(ctx, id, rev)
}

// ApplyBatch stores a batch of remote revisions atomically and returns the touched ids.
func (s *Store) ApplyBatch(ctx context.Context, entries []*models.RevisionEntry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	touched, err := s.storage.ApplyRevisions(ctx, entries)
	if err != nil {
		return nil, err
	}

	if len(touched) > 0 {
		s.logger.Debug("Remote revisions applied",
			"revisions", len(entries),
			"documents", len(touched))
		s.events.Publish(events.Changed(events.SourceRemote, touched...))
	}

	return touched, nil
}

// ChangesSince reads the local change feed
func (s *Store) ChangesSince(ctx context.Context, since uint64, limit int, includeRemote bool) ([]models.Change, uint64, error) {
	return s.storage.ChangesSince(ctx, since, limit, includeRemote)
}

// IsNotFound reports whether err means the document or revision does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
