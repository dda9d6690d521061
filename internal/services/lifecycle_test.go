package services

import (
	"context"
	"testing"

	"skydrive/internal/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTrashDoesNotCascadeToChildren(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	folder := env.mustFolder(t, owner, "Projects", nil)
	child := env.mustFile(t, owner, "plan.txt", "x", &folder.ID)

	result, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{folder.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Affected)

	trashed, err := env.entries.GetAny(context.Background(), owner.ID, folder.ID)
	require.NoError(t, err)
	assert.True(t, trashed.IsTrashed())

	// The child stays live
	live, err := env.entries.GetByID(context.Background(), owner.ID, child.ID)
	require.NoError(t, err)
	assert.False(t, live.IsTrashed())
}

func TestTrashAllCoversBrowsedFolderOnly(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	top := env.mustFile(t, owner, "top.txt", "x", nil)
	folder := env.mustFolder(t, owner, "projects", nil)
	inside := env.mustFile(t, owner, "inside.txt", "x", &folder.ID)

	result, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{All: true, ParentID: &folder.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Affected)

	gone, err := env.entries.GetAny(context.Background(), owner.ID, inside.ID)
	require.NoError(t, err)
	assert.True(t, gone.IsTrashed(), "browsed folder's child is trashed")

	still, err := env.entries.GetByID(context.Background(), owner.ID, top.ID)
	require.NoError(t, err)
	assert.False(t, still.IsTrashed(), "entries outside the browsed folder stay live")

	kept, err := env.entries.GetByID(context.Background(), owner.ID, folder.ID)
	require.NoError(t, err)
	assert.False(t, kept.IsTrashed(), "the browsed folder itself stays live")
}

func TestTrashAllDefaultsToRoot(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	top := env.mustFile(t, owner, "top.txt", "x", nil)

	result, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{All: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Affected)

	gone, err := env.entries.GetAny(context.Background(), owner.ID, top.ID)
	require.NoError(t, err)
	assert.True(t, gone.IsTrashed())
}

func TestTrashEmptySelection(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")
	env.mustRoot(t, owner)

	_, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{})
	assert.ErrorIs(t, err, pkg.ErrEmptySelection)
}

func TestTrashIgnoresForeignEntries(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")
	other := env.user(t, "bob@example.com")

	theirs := env.mustFile(t, other, "theirs.txt", "x", nil)

	result, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{theirs.ID}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Affected)

	still, err := env.entries.GetByID(context.Background(), other.ID, theirs.ID)
	require.NoError(t, err)
	assert.False(t, still.IsTrashed())
}

func TestRestore(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	file := env.mustFile(t, owner, "doc.txt", "x", nil)

	_, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{file.ID}})
	require.NoError(t, err)

	result, err := env.lifecycle.Restore(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{file.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Affected)

	restored, err := env.entries.GetByID(context.Background(), owner.ID, file.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsTrashed())
	assert.Equal(t, "doc-txt", restored.Path)
}

func TestRestoreRequiresTrashed(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	file := env.mustFile(t, owner, "doc.txt", "x", nil)

	result, err := env.lifecycle.Restore(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{file.ID}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Affected)
}

func TestPurgeCascadesThroughSubtree(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")
	friend := env.user(t, "bob@example.com")

	folder := env.mustFolder(t, owner, "Big", nil)
	sub := env.mustFolder(t, owner, "Sub", &folder.ID)
	fileA := env.mustFile(t, owner, "a.txt", "aaa", &folder.ID)
	fileB := env.mustFile(t, owner, "b.txt", "bbb", &sub.ID)

	// A trashed descendant must go too
	_, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{fileA.ID}})
	require.NoError(t, err)

	// Grants and stars referencing the subtree
	require.NoError(t, env.sharing.Share(context.Background(), owner, &ShareRequest{
		Email: friend.Email,
		IDs:   []primitive.ObjectID{fileB.ID},
	}))
	_, err = env.sharing.ToggleStar(context.Background(), owner.ID, fileB.ID)
	require.NoError(t, err)

	require.Equal(t, 2, env.blobs.count())

	_, err = env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{folder.ID}})
	require.NoError(t, err)

	result, err := env.lifecycle.Purge(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{folder.ID}})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Affected)

	for _, id := range []primitive.ObjectID{folder.ID, sub.ID, fileA.ID, fileB.ID} {
		_, err := env.entries.GetAny(context.Background(), owner.ID, id)
		assert.ErrorIs(t, err, pkg.ErrEntryNotFound)
	}

	assert.Equal(t, 0, env.blobs.count(), "blobs reclaimed")

	shared, err := env.shares.Exists(context.Background(), fileB.ID, friend.ID)
	require.NoError(t, err)
	assert.False(t, shared, "grants removed")

	starredSet, err := env.stars.StarredSet(context.Background(), []primitive.ObjectID{fileB.ID}, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, starredSet, "stars removed")
}

func TestPurgeOnlyTouchesTrashedSelection(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	live := env.mustFile(t, owner, "live.txt", "x", nil)

	result, err := env.lifecycle.Purge(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{live.ID}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Affected)

	_, err = env.entries.GetByID(context.Background(), owner.ID, live.ID)
	assert.NoError(t, err)
}

func TestPurgeAllEmptiesTrash(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	a := env.mustFile(t, owner, "a.txt", "x", nil)
	b := env.mustFile(t, owner, "b.txt", "x", nil)
	keep := env.mustFile(t, owner, "keep.txt", "x", nil)

	_, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{a.ID, b.ID}})
	require.NoError(t, err)

	result, err := env.lifecycle.Purge(context.Background(), owner.ID, Selection{All: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Affected)

	_, err = env.entries.GetByID(context.Background(), owner.ID, keep.ID)
	assert.NoError(t, err)
}

func TestListTrashOrdering(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	file := env.mustFile(t, owner, "old.txt", "x", nil)
	folder := env.mustFolder(t, owner, "folder", nil)

	_, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{file.ID}})
	require.NoError(t, err)
	_, err = env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{folder.ID}})
	require.NoError(t, err)

	params := &pkg.PaginationParams{Page: 1, Limit: 10}
	entries, total, err := env.lifecycle.ListTrash(context.Background(), owner.ID, "", params)
	require.NoError(t, err)

	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsFolder, "folders listed first in trash")
}
