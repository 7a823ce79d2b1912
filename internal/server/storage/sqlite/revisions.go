package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/server/storage"
)

// PutRevisions stores revisions in one transaction and skips known ones
func (s *Storage) PutRevisions(ctx context.Context, userID string, entries []*models.RevisionEntry) (int, int64, error) {
	for _, e := range entries {
		if e == nil || e.ID == "" || e.Rev.IsZero() {
			return 0, 0, fmt.Errorf("%w: revision without id or rev", storage.ErrInvalidRevision)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO revisions (
			user_id, doc_id, rev, parent, generation,
			title, body, deleted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, doc_id, rev) DO NOTHING
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	applied := 0
	for _, e := range entries {
		result, err := stmt.ExecContext(ctx,
			userID,
			e.ID,
			e.Rev.String(),
			e.Parent.String(),
			e.Rev.Generation,
			e.Title,
			e.Body,
			boolToInt(e.Deleted),
			e.CreatedAt.UnixNano(),
			e.UpdatedAt.UnixNano(),
		)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert revision %s of %q: %w", e.Rev, e.ID, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		applied += int(rows)
	}

	lastSeq, err := lastSeq(ctx, tx, userID)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit revisions: %w", err)
	}

	return applied, lastSeq, nil
}

// ChangesSince returns the user's revisions with seq > since
func (s *Storage) ChangesSince(ctx context.Context, userID string, since int64, limit int) ([]*models.RevisionEntry, int64, error) {
	if limit <= 0 {
		// В SQLite отрицательный LIMIT снимает ограничение
		limit = -1
	}

	query := `
		SELECT seq, doc_id, rev, parent, title, body, deleted, created_at, updated_at
		FROM revisions
		WHERE user_id = ? AND seq > ?
		ORDER BY seq
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, since, limit)
	if err != nil {
		return nil, since, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.RevisionEntry, 0)
	last := since

	for rows.Next() {
		var (
			seq                  int64
			rev, parent          string
			deleted              int
			createdAt, updatedAt int64
		)
		e := &models.RevisionEntry{}

		if err := rows.Scan(&seq, &e.ID, &rev, &parent, &e.Title, &e.Body, &deleted, &createdAt, &updatedAt); err != nil {
			return nil, since, fmt.Errorf("failed to scan revision: %w", err)
		}

		if e.Rev, err = models.ParseRevision(rev); err != nil {
			return nil, since, fmt.Errorf("stored revision %d: %w", seq, err)
		}
		if parent != "" {
			if e.Parent, err = models.ParseRevision(parent); err != nil {
				return nil, since, fmt.Errorf("stored revision %d parent: %w", seq, err)
			}
		}
		e.Deleted = deleted != 0
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		e.UpdatedAt = time.Unix(0, updatedAt).UTC()

		entries = append(entries, e)
		last = seq
	}

	if err := rows.Err(); err != nil {
		return nil, since, fmt.Errorf("error iterating revisions: %w", err)
	}

	return entries, last, nil
}

// LastSeq returns the user's last sequence number
func (s *Storage) LastSeq(ctx context.Context, userID string) (int64, error) {
	return lastSeq(ctx, s.db, userID)
}

// querier - общее у *sql.DB и *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lastSeq(ctx context.Context, q querier, userID string) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM revisions WHERE user_id = ?`, userID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	return seq, nil
}

// boolToInt конвертирует bool в int для SQLite
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
