package docstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/client/storage/boltdb"
	"github.com/iudanet/docsync/internal/events"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/validation"
)

// recorder запоминает опубликованные события
type recorder struct {
	events []events.Event
	mu     sync.Mutex
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func newTestStore(t *testing.T) (*Store, *recorder) {
	t.Helper()

	db, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, rec, logger), rec
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store, rec := newTestStore(t)

	doc, err := store.Put(ctx, &models.Document{ID: "doc-1", Title: "Note", Body: "Hello"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Revision.Generation)
	assert.Equal(t, []models.Revision{doc.Revision}, doc.LeafRevisions)
	assert.False(t, doc.CreatedAt.IsZero())
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Body)
	assert.Equal(t, doc.Revision, got.Revision)

	evs := rec.all()
	require.Len(t, evs, 1)
	assert.Equal(t, events.Changed(events.SourceLocal, "doc-1"), evs[0])
}

func TestStore_Put_AssignsID(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	doc, err := store.Put(ctx, &models.Document{Title: "untitled"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)

	_, err = store.Get(ctx, doc.ID)
	assert.NoError(t, err)
}

func TestStore_Put_Expected(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	v1, err := store.Put(ctx, &models.Document{ID: "doc-1", Body: "v1"}, nil)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	v2, err := store.Put(ctx, &models.Document{ID: "doc-1", Body: "v2"}, &v1.Revision)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2.Revision.Generation)
	assert.Equal(t, []models.Revision{v2.Revision}, v2.LeafRevisions)
	assert.Equal(t, v1.CreatedAt, v2.CreatedAt, "createdAt is kept from the first revision")
	assert.True(t, v2.UpdatedAt.After(v1.UpdatedAt))

	// Устаревшая ожидаемая ревизия отклоняется
	_, err = store.Put(ctx, &models.Document{ID: "doc-1", Body: "stale"}, &v1.Revision)
	assert.ErrorIs(t, err, storage.ErrRevisionConflict)

	// Ожидаемая ревизия для отсутствующего документа
	_, err = store.Put(ctx, &models.Document{ID: "doc-2", Body: "x"}, &v1.Revision)
	assert.ErrorIs(t, err, storage.ErrRevisionConflict)

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Body)
}

func TestStore_Put_GenerationStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	doc, err := store.Put(ctx, &models.Document{ID: "doc-1", Body: "0"}, nil)
	require.NoError(t, err)

	for i := range 5 {
		prev := doc.Revision
		doc, err = store.Put(ctx, &models.Document{ID: "doc-1", Body: string(rune('a' + i))}, &prev)
		require.NoError(t, err)
		assert.Greater(t, doc.Revision.Generation, prev.Generation)
	}
}

func TestStore_Put_WithoutExpectedCreatesBranch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	v1, err := store.Put(ctx, &models.Document{ID: "doc-1", Body: "v1"}, nil)
	require.NoError(t, err)

	branch, err := store.Put(ctx, &models.Document{ID: "doc-1", Body: "other"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), branch.Revision.Generation)
	assert.True(t, branch.InConflict())
	assert.ElementsMatch(t, []models.Revision{v1.Revision, branch.Revision}, branch.LeafRevisions)

	conflicts, err := store.ListConflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "doc-1", conflicts[0].ID)
	assert.Len(t, conflicts[0].LeafRevisions, 2)
}

func TestStore_Put_Invalid(t *testing.T) {
	ctx := context.Background()
	store, rec := newTestStore(t)

	_, err := store.Put(ctx, nil, nil)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = store.Put(ctx, &models.Document{ID: "bad\x00id"}, nil)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = store.Put(ctx, &models.Document{ID: "doc", Title: "two\nlines"}, nil)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = store.Put(ctx, &models.Document{ID: "doc", Title: "caf\xe9"}, nil)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = store.Put(ctx, &models.Document{ID: "doc", Title: "Note", Body: "caf\xe9"}, nil)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = store.Get(ctx, "doc")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, rec.all())
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	store, rec := newTestStore(t)

	doc, err := store.Put(ctx, &models.Document{ID: "doc-1", Title: "t", Body: "v1"}, nil)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, "doc-1", doc.Revision))

	_, err = store.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.True(t, IsNotFound(err))

	// Повторное удаление той же ревизии
	err = store.Remove(ctx, "doc-1", doc.Revision)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	docs, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.Len(t, rec.all(), 2)
}

func TestStore_Remove_OneBranch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	v1, err := store.Put(ctx, &models.Document{ID: "doc-1", Body: "v1"}, nil)
	require.NoError(t, err)
	branch, err := store.Put(ctx, &models.Document{ID: "doc-1", Body: "v2"}, nil)
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, "doc-1", v1.Revision, FromMerge()))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, branch.Revision, got.Revision)
	assert.False(t, got.InConflict())
}

func TestStore_RecreateAfterRemove(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	v1, err := store.Put(ctx, &models.Document{ID: "doc-1", Body: "v1"}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, "doc-1", v1.Revision))

	again, err := store.Put(ctx, &models.Document{ID: "doc-1", Body: "back"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), again.Revision.Generation, "re-creation extends the tombstone")
	assert.False(t, again.InConflict())

	leaves, err := store.Leaves(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, leaves, 1)
}

func TestStore_ListAll_Order(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := base
	store.now = func() time.Time { return tick }

	for _, id := range []string{"b", "a", "c"} {
		_, err := store.Put(ctx, &models.Document{ID: id, Body: id}, nil)
		require.NoError(t, err)
	}
	// a и b с одинаковым временем, c новее
	tick = base.Add(time.Second)
	c, err := store.Get(ctx, "c")
	require.NoError(t, err)
	_, err = store.Put(ctx, &models.Document{ID: "c", Body: "c2"}, &c.Revision)
	require.NoError(t, err)

	docs, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "c", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)
	assert.Equal(t, "b", docs[2].ID)
}

func TestStore_ApplyBatch(t *testing.T) {
	ctx := context.Background()
	store, rec := newTestStore(t)

	rev := models.NextRevision(1, models.Revision{}, "t", "remote body", false)
	entries := []*models.RevisionEntry{{ID: "doc-r", Title: "t", Body: "remote body", Rev: rev}}

	touched, err := store.ApplyBatch(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-r"}, touched)

	evs := rec.all()
	require.Len(t, evs, 1)
	assert.Equal(t, events.SourceRemote, evs[0].Source)

	// Повтор - без событий
	touched, err = store.ApplyBatch(ctx, entries)
	require.NoError(t, err)
	assert.Empty(t, touched)
	assert.Len(t, rec.all(), 1)

	// Удалённые изменения не попадают в ленту для push
	changes, _, err := store.ChangesSince(ctx, 0, 0, false)
	require.NoError(t, err)
	assert.Empty(t, changes)
}
