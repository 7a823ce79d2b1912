package boltdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/docsync/internal/client/storage"
	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/revtree"
)

// createTestEntry создает тестовую ревизию документа
func createTestEntry(id string, parent models.Revision, body string, deleted bool) *models.RevisionEntry {
	now := time.Now().UTC()
	return &models.RevisionEntry{
		ID:        id,
		Title:     "title-" + id,
		Body:      body,
		Parent:    parent,
		Deleted:   deleted,
		Rev:       models.NextRevision(parent.Generation+1, parent, "title-"+id, body, deleted),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// put записывает ревизию без проверок
func put(t *testing.T, store *Storage, e *models.RevisionEntry) {
	t.Helper()
	_, written, err := store.WriteRevision(context.Background(), e.ID, func(revtree.Set, storage.LoadFunc) (*models.RevisionEntry, error) {
		return e, nil
	})
	require.NoError(t, err)
	require.True(t, written)
}

func TestStorage_WriteRevision(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	first := createTestEntry("doc-1", models.Revision{}, "v1", false)
	put(t, store, first)

	leaves, err := store.Leaves(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, revtree.Set{{Rev: first.Rev}}, leaves)

	// Мутация видит текущие листья и может читать ревизии
	second := createTestEntry("doc-1", first.Rev, "v2", false)
	got, written, err := store.WriteRevision(ctx, "doc-1", func(leaves revtree.Set, load storage.LoadFunc) (*models.RevisionEntry, error) {
		winner, ok := leaves.Winner()
		require.True(t, ok)
		prev, err := load(winner)
		require.NoError(t, err)
		assert.Equal(t, "v1", prev.Body)
		return second, nil
	})
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, second, got)

	leaves, err = store.Leaves(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, revtree.Set{{Rev: second.Rev}}, leaves)

	// Повторная запись той же ревизии - no-op
	_, written, err = store.WriteRevision(ctx, "doc-1", func(revtree.Set, storage.LoadFunc) (*models.RevisionEntry, error) {
		return second, nil
	})
	require.NoError(t, err)
	assert.False(t, written)

	// Старая ревизия по-прежнему доступна
	old, err := store.GetRevision(ctx, "doc-1", first.Rev)
	require.NoError(t, err)
	assert.Equal(t, "v1", old.Body)
}

func TestStorage_WriteRevision_MutationError(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	sentinel := errors.New("rejected")
	_, written, err := store.WriteRevision(ctx, "doc-1", func(revtree.Set, storage.LoadFunc) (*models.RevisionEntry, error) {
		return nil, sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, written)

	// nil-мутация ничего не пишет
	got, written, err := store.WriteRevision(ctx, "doc-1", func(revtree.Set, storage.LoadFunc) (*models.RevisionEntry, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, written)
	assert.Nil(t, got)

	changes, _, err := store.ChangesSince(ctx, 0, 0, true)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestStorage_WriteRevision_Invalid(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	tests := []struct {
		entry *models.RevisionEntry
		name  string
		id    string
	}{
		{
			name:  "id mismatch",
			id:    "doc-1",
			entry: createTestEntry("doc-2", models.Revision{}, "x", false),
		},
		{
			name:  "zero revision",
			id:    "doc-1",
			entry: &models.RevisionEntry{ID: "doc-1"},
		},
		{
			name:  "NUL in id",
			id:    "doc\x00x",
			entry: createTestEntry("doc\x00x", models.Revision{}, "x", false),
		},
		{
			name: "parent not older",
			id:   "doc-1",
			entry: &models.RevisionEntry{
				ID:     "doc-1",
				Rev:    models.MustParseRevision("1-abc"),
				Parent: models.MustParseRevision("1-abd"),
			},
		},
		{
			name:  "body is not UTF-8",
			id:    "doc-1",
			entry: createTestEntry("doc-1", models.Revision{}, "caf\xe9", false),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := store.WriteRevision(ctx, tt.id, func(revtree.Set, storage.LoadFunc) (*models.RevisionEntry, error) {
				return tt.entry, nil
			})
			assert.Error(t, err)
		})
	}
}

func TestStorage_GetRevision_NotFound(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.GetRevision(ctx, "missing", models.MustParseRevision("1-abc"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	leaves, err := store.Leaves(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestStorage_ApplyRevisions(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	r1 := createTestEntry("doc-1", models.Revision{}, "v1", false)
	r2 := createTestEntry("doc-1", r1.Rev, "v2", false)
	other := createTestEntry("doc-2", models.Revision{}, "other", false)

	touched, err := store.ApplyRevisions(ctx, []*models.RevisionEntry{r1, r2, other})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1", "doc-2"}, touched)

	leaves, err := store.Leaves(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, revtree.Set{{Rev: r2.Rev}}, leaves)

	// Повторное применение - ничего нового
	touched, err = store.ApplyRevisions(ctx, []*models.RevisionEntry{r1, r2})
	require.NoError(t, err)
	assert.Empty(t, touched)
}

func TestStorage_ApplyRevisions_OutOfOrder(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	r1 := createTestEntry("doc-1", models.Revision{}, "v1", false)
	r2 := createTestEntry("doc-1", r1.Rev, "v2", false)

	// Потомок пришёл раньше родителя
	_, err := store.ApplyRevisions(ctx, []*models.RevisionEntry{r2})
	require.NoError(t, err)
	_, err = store.ApplyRevisions(ctx, []*models.RevisionEntry{r1})
	require.NoError(t, err)

	leaves, err := store.Leaves(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, revtree.Set{{Rev: r2.Rev}}, leaves, "parent with a known child must not become a leaf")
}

func TestStorage_ApplyRevisions_Atomic(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	good := createTestEntry("doc-1", models.Revision{}, "v1", false)
	bad := &models.RevisionEntry{ID: "doc-2"}

	_, err := store.ApplyRevisions(ctx, []*models.RevisionEntry{good, bad})
	require.Error(t, err)

	// Ни одна ревизия пакета не применена
	_, err = store.GetRevision(ctx, "doc-1", good.Rev)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_ApplyRevisions_RejectsInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	good := createTestEntry("doc-1", models.Revision{}, "hello", false)
	bad := createTestEntry("doc-2", models.Revision{}, "ok", false)
	bad.Title = "caf\xe9"

	_, err := store.ApplyRevisions(ctx, []*models.RevisionEntry{good, bad})
	require.Error(t, err)

	_, err = store.GetRevision(ctx, "doc-1", good.Rev)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_Branches(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	base := createTestEntry("doc-1", models.Revision{}, "base", false)
	put(t, store, base)

	local := createTestEntry("doc-1", base.Rev, "local edit", false)
	remote := createTestEntry("doc-1", base.Rev, "remote edit", false)

	put(t, store, local)
	_, err := store.ApplyRevisions(ctx, []*models.RevisionEntry{remote})
	require.NoError(t, err)

	leaves, err := store.Leaves(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, leaves.InConflict())
	assert.ElementsMatch(t, []models.Revision{local.Rev, remote.Rev}, leaves.Live())

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	winner, _ := leaves.Winner()
	assert.Equal(t, winner, docs[0].Revision)
	assert.Len(t, docs[0].LeafRevisions, 2)
}

func TestStorage_Tombstones(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	live := createTestEntry("doc-1", models.Revision{}, "v1", false)
	put(t, store, live)
	put(t, store, createTestEntry("doc-1", live.Rev, "", true))

	put(t, store, createTestEntry("doc-2", models.Revision{}, "kept", false))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].ID)

	leaves, err := store.Leaves(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.True(t, leaves[0].Deleted)
}

func TestStorage_ChangesSince(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	l1 := createTestEntry("doc-1", models.Revision{}, "local-1", false)
	put(t, store, l1)

	r1 := createTestEntry("doc-2", models.Revision{}, "remote-1", false)
	_, err := store.ApplyRevisions(ctx, []*models.RevisionEntry{r1})
	require.NoError(t, err)

	l2 := createTestEntry("doc-1", l1.Rev, "local-2", false)
	put(t, store, l2)

	// Все изменения
	all, last, err := store.ChangesSince(ctx, 0, 0, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(3), last)
	assert.True(t, all[1].Remote)
	assert.Equal(t, "remote-1", all[1].Entry.Body)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Seq, all[i-1].Seq)
	}

	// Только локальные
	local, last, err := store.ChangesSince(ctx, 0, 0, false)
	require.NoError(t, err)
	require.Len(t, local, 2)
	assert.Equal(t, l1.Rev, local[0].Rev)
	assert.Equal(t, l2.Rev, local[1].Rev)
	assert.Equal(t, uint64(3), last)

	// Лимит и продолжение с чекпоинта
	page, last, err := store.ChangesSince(ctx, 0, 1, false)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(1), last)

	page, last, err = store.ChangesSince(ctx, last, 1, false)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, l2.Rev, page[0].Rev)
	assert.Equal(t, uint64(3), last)

	// После конца ленты
	page, last, err = store.ChangesSince(ctx, last, 10, false)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, uint64(3), last)
}
