package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.etcd.io/bbolt"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/revtree"
)

// Разделитель составных ключей; id документа не может его содержать
const keySep = "\x00"

// changeRecord - значение в bucket changes
type changeRecord struct {
	ID     string          `json:"id"`
	Rev    models.Revision `json:"rev"`
	Remote bool            `json:"remote,omitempty"`
}

func revisionKey(id string, rev models.Revision) []byte {
	return []byte(id + keySep + rev.String())
}

func childPrefix(id string, parent models.Revision) []byte {
	return []byte(id + keySep + parent.String() + keySep)
}

func childKey(id string, parent, child models.Revision) []byte {
	return append(childPrefix(id, parent), child.String()...)
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// WriteRevision runs m against the current leaves of id and stores its result
func (s *Storage) WriteRevision(ctx context.Context, id string, m storage.Mutation) (*models.RevisionEntry, bool, error) {
	var (
		result  *models.RevisionEntry
		written bool
	)

	err := s.update(ctx, func(tx *bbolt.Tx) error {
		leaves, err := loadLeaves(tx, id)
		if err != nil {
			return err
		}

		load := func(rev models.Revision) (*models.RevisionEntry, error) {
			return loadEntry(tx, id, rev)
		}

		entry, err := m(leaves, load)
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		if entry.ID != id {
			return fmt.Errorf("revision belongs to %q, not %q", entry.ID, id)
		}

		written, err = storeRevision(tx, entry, false)
		if err != nil {
			return err
		}
		result = entry
		return nil
	})

	if err != nil {
		return nil, false, err
	}

	return result, written, nil
}

// ApplyRevisions stores remote revisions in a single transaction
func (s *Storage) ApplyRevisions(ctx context.Context, entries []*models.RevisionEntry) ([]string, error) {
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
	}

	var touched []string

	err := s.update(ctx, func(tx *bbolt.Tx) error {
		touched = touched[:0]
		seen := make(map[string]struct{})

		for _, e := range entries {
			written, err := storeRevision(tx, e, true)
			if err != nil {
				return err
			}
			if !written {
				continue
			}
			if _, ok := seen[e.ID]; !ok {
				seen[e.ID] = struct{}{}
				touched = append(touched, e.ID)
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to apply revisions: %w", err)
	}

	return touched, nil
}

// GetRevision returns one stored revision
func (s *Storage) GetRevision(ctx context.Context, id string, rev models.Revision) (*models.RevisionEntry, error) {
	var entry *models.RevisionEntry

	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		entry, err = loadEntry(tx, id, rev)
		return err
	})

	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Leaves returns the leaf set of a document
func (s *Storage) Leaves(ctx context.Context, id string) (revtree.Set, error) {
	var leaves revtree.Set

	err := s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		leaves, err = loadLeaves(tx, id)
		return err
	})

	if err != nil {
		return nil, err
	}

	return leaves, nil
}

// ListDocuments returns the winner of every document that has a live leaf
func (s *Storage) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	var docs []*models.Document

	err := s.view(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLeaves)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var leaves revtree.Set
			if err := json.Unmarshal(v, &leaves); err != nil {
				return fmt.Errorf("failed to unmarshal leaves of %q: %w", k, err)
			}

			winner, ok := leaves.Winner()
			if !ok {
				// Все листья - tombstone
				return nil
			}

			entry, err := loadEntry(tx, string(k), winner)
			if err != nil {
				return err
			}
			docs = append(docs, entry.Document(leaves.Live()))
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return docs, nil
}

// ChangesSince returns the change feed after since
func (s *Storage) ChangesSince(ctx context.Context, since uint64, limit int, includeRemote bool) ([]models.Change, uint64, error) {
	var (
		changes []models.Change
		last    = since
	)

	err := s.view(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketChanges)
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.Seek(seqKey(since + 1)); k != nil; k, v = c.Next() {
			if limit > 0 && len(changes) >= limit {
				break
			}

			seq := binary.BigEndian.Uint64(k)

			var rec changeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal change %d: %w", seq, err)
			}

			last = seq
			if rec.Remote && !includeRemote {
				continue
			}

			entry, err := loadEntry(tx, rec.ID, rec.Rev)
			if err != nil {
				return fmt.Errorf("change %d: %w", seq, err)
			}

			changes = append(changes, models.Change{
				Entry:  entry,
				ID:     rec.ID,
				Rev:    rec.Rev,
				Seq:    seq,
				Remote: rec.Remote,
			})
		}
		return nil
	})

	if err != nil {
		return nil, since, fmt.Errorf("failed to read changes: %w", err)
	}

	return changes, last, nil
}

func validateEntry(e *models.RevisionEntry) error {
	if e == nil {
		return fmt.Errorf("nil revision entry")
	}
	if e.ID == "" {
		return fmt.Errorf("revision entry without id")
	}
	if strings.Contains(e.ID, keySep) {
		return fmt.Errorf("document id %q contains a NUL byte", e.ID)
	}
	if e.Rev.IsZero() {
		return fmt.Errorf("revision entry %q without revision", e.ID)
	}
	if !e.Parent.IsZero() && e.Parent.Generation >= e.Rev.Generation {
		return fmt.Errorf("revision %s of %q is not newer than its parent %s", e.Rev, e.ID, e.Parent)
	}
	if !utf8.ValidString(e.Title) || !utf8.ValidString(e.Body) {
		return fmt.Errorf("revision %s of %q is not valid UTF-8", e.Rev, e.ID)
	}
	return nil
}

// storeRevision сохраняет ревизию, обновляет индекс детей, листья и ленту изменений.
// Возвращает false, если ревизия уже известна.
func storeRevision(tx *bbolt.Tx, e *models.RevisionEntry, remote bool) (bool, error) {
	if err := validateEntry(e); err != nil {
		return false, err
	}

	revisions := tx.Bucket(bucketRevisions)
	key := revisionKey(e.ID, e.Rev)
	if revisions.Get(key) != nil {
		return false, nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("failed to marshal revision: %w", err)
	}
	if err := revisions.Put(key, data); err != nil {
		return false, fmt.Errorf("failed to save revision: %w", err)
	}

	if !e.Parent.IsZero() {
		if err := tx.Bucket(bucketChildren).Put(childKey(e.ID, e.Parent, e.Rev), []byte{}); err != nil {
			return false, fmt.Errorf("failed to index revision parent: %w", err)
		}
	}

	// Ревизия, у которой уже есть известный потомок, листом не становится
	if !hasChild(tx, e.ID, e.Rev) {
		leaves, err := loadLeaves(tx, e.ID)
		if err != nil {
			return false, err
		}
		leaves = leaves.Extend(e.Parent, revtree.Leaf{Rev: e.Rev, Deleted: e.Deleted})
		if err := saveLeaves(tx, e.ID, leaves); err != nil {
			return false, err
		}
	}

	if err := appendChange(tx, changeRecord{ID: e.ID, Rev: e.Rev, Remote: remote}); err != nil {
		return false, err
	}

	return true, nil
}

func appendChange(tx *bbolt.Tx, rec changeRecord) error {
	bucket := tx.Bucket(bucketChanges)

	seq, err := bucket.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to allocate change sequence: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	if err := bucket.Put(seqKey(seq), data); err != nil {
		return fmt.Errorf("failed to append change: %w", err)
	}
	return nil
}

func hasChild(tx *bbolt.Tx, id string, rev models.Revision) bool {
	prefix := childPrefix(id, rev)
	k, _ := tx.Bucket(bucketChildren).Cursor().Seek(prefix)
	return k != nil && bytes.HasPrefix(k, prefix)
}

func loadEntry(tx *bbolt.Tx, id string, rev models.Revision) (*models.RevisionEntry, error) {
	data := tx.Bucket(bucketRevisions).Get(revisionKey(id, rev))
	if data == nil {
		return nil, fmt.Errorf("revision %s of %q: %w", rev, id, storage.ErrNotFound)
	}

	entry := &models.RevisionEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal revision: %w", err)
	}
	return entry, nil
}

func loadLeaves(tx *bbolt.Tx, id string) (revtree.Set, error) {
	data := tx.Bucket(bucketLeaves).Get([]byte(id))
	if data == nil {
		return nil, nil
	}

	var leaves revtree.Set
	if err := json.Unmarshal(data, &leaves); err != nil {
		return nil, fmt.Errorf("failed to unmarshal leaves of %q: %w", id, err)
	}
	return leaves, nil
}

func saveLeaves(tx *bbolt.Tx, id string, leaves revtree.Set) error {
	bucket := tx.Bucket(bucketLeaves)
	if len(leaves) == 0 {
		return bucket.Delete([]byte(id))
	}

	data, err := json.Marshal(leaves)
	if err != nil {
		return fmt.Errorf("failed to marshal leaves: %w", err)
	}
	if err := bucket.Put([]byte(id), data); err != nil {
		return fmt.Errorf("failed to save leaves: %w", err)
	}
	return nil
}
