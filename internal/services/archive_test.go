package services

import (
	"bytes"
	"context"
	"io"
	"testing"

	"skydrive/internal/pkg"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func readZip(t *testing.T, download *Download) map[string]string {
	t.Helper()

	data, err := io.ReadAll(download.Body)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	contents := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(body)
	}
	return contents
}

func TestDownloadEmptySelection(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")
	env.mustRoot(t, owner)

	_, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{})
	assert.ErrorIs(t, err, pkg.ErrEmptySelection)
}

func TestDownloadSingleFileStreamsDirectly(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	file := env.mustFile(t, owner, "report.pdf", "pdf-bytes", nil)

	download, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{file.ID}})
	require.NoError(t, err)
	defer download.Close()

	assert.Equal(t, "report.pdf", download.Name)
	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(body))
}

func TestDownloadSingleNoteAsText(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	note, err := env.notes.CreateNote(context.Background(), owner, &NoteRequest{Name: "Ideas", Content: "ship it"})
	require.NoError(t, err)

	download, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{note.ID}})
	require.NoError(t, err)
	defer download.Close()

	assert.Equal(t, "Ideas.txt", download.Name)
	assert.Equal(t, "text/plain", download.Mime)
	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, "ship it", string(body))
}

func TestDownloadEmptyFolderFails(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	folder := env.mustFolder(t, owner, "Empty", nil)

	_, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{folder.ID}})
	assert.ErrorIs(t, err, pkg.ErrFolderEmpty)
}

func TestDownloadFolderZipsChildrenWithoutWrapper(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	folder := env.mustFolder(t, owner, "Photos", nil)
	sub := env.mustFolder(t, owner, "Raw", &folder.ID)
	env.mustFile(t, owner, "cat.jpg", "cat-bytes", &folder.ID)
	env.mustFile(t, owner, "dog.raw", "dog-bytes", &sub.ID)

	download, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{folder.ID}})
	require.NoError(t, err)
	defer download.Close()

	assert.Equal(t, "Photos.zip", download.Name)
	assert.Equal(t, "application/zip", download.Mime)

	contents := readZip(t, download)
	assert.Equal(t, "cat-bytes", contents["cat.jpg"])
	assert.Equal(t, "dog-bytes", contents["Raw/dog.raw"])
	_, hasWrapper := contents["Photos/cat.jpg"]
	assert.False(t, hasWrapper, "selected folder itself is not a zip prefix")
}

func TestDownloadMultiSelectionZips(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	fileA := env.mustFile(t, owner, "a.txt", "aaa", nil)
	note, err := env.notes.CreateNote(context.Background(), owner, &NoteRequest{Name: "memo", Content: "note-body"})
	require.NoError(t, err)
	folder := env.mustFolder(t, owner, "Docs", nil)
	env.mustFile(t, owner, "inner.txt", "inner", &folder.ID)

	download, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{fileA.ID, note.ID, folder.ID}})
	require.NoError(t, err)
	defer download.Close()

	contents := readZip(t, download)
	assert.Equal(t, "aaa", contents["a.txt"])
	assert.Equal(t, "note-body", contents["memo.txt"])
	assert.Equal(t, "inner", contents["Docs/inner.txt"])
}

func TestDownloadSkipsTrashedDescendants(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	folder := env.mustFolder(t, owner, "Mix", nil)
	env.mustFile(t, owner, "keep.txt", "keep", &folder.ID)
	gone := env.mustFile(t, owner, "gone.txt", "gone", &folder.ID)

	_, err := env.lifecycle.MoveToTrash(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{gone.ID}})
	require.NoError(t, err)

	download, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{folder.ID}})
	require.NoError(t, err)
	defer download.Close()

	contents := readZip(t, download)
	assert.Contains(t, contents, "keep.txt")
	assert.NotContains(t, contents, "gone.txt")
}

func TestDownloadFolderOmitsEmptySubfolder(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	folder := env.mustFolder(t, owner, "Docs", nil)
	env.mustFolder(t, owner, "emptysub", &folder.ID)
	env.mustFile(t, owner, "a.txt", "aaa", &folder.ID)

	download, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{folder.ID}})
	require.NoError(t, err)
	defer download.Close()

	contents := readZip(t, download)
	assert.Equal(t, map[string]string{"a.txt": "aaa"}, contents, "empty subfolders contribute no archive entries")
}

func TestDownloadAllZipsBrowsedFolder(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	env.mustFile(t, owner, "top.txt", "top", nil)
	folder := env.mustFolder(t, owner, "projects", nil)
	env.mustFile(t, owner, "inside.txt", "inside", &folder.ID)
	env.mustFile(t, owner, "other.txt", "other", &folder.ID)

	download, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{All: true, ParentID: &folder.ID})
	require.NoError(t, err)
	defer download.Close()

	assert.Equal(t, "projects.zip", download.Name)
	contents := readZip(t, download)
	assert.Equal(t, "inside", contents["inside.txt"])
	assert.Equal(t, "other", contents["other.txt"])
	assert.NotContains(t, contents, "top.txt", "entries outside the browsed folder are excluded")
}

func TestDownloadAllEmptyFolderFails(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")

	folder := env.mustFolder(t, owner, "Empty", nil)

	_, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{All: true, ParentID: &folder.ID})
	assert.ErrorIs(t, err, pkg.ErrFolderEmpty)
}

func TestDownloadSharedWithMe(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")
	friend := env.user(t, "bob@example.com")

	shared := env.mustFile(t, owner, "doc.pdf", "pdf-bytes", nil)
	private := env.mustFile(t, owner, "private.txt", "x", nil)

	require.NoError(t, env.sharing.Share(context.Background(), owner, &ShareRequest{
		Email: friend.Email,
		IDs:   []primitive.ObjectID{shared.ID},
	}))

	download, err := env.archive.BuildSharedWithMe(context.Background(), friend.ID, Selection{IDs: []primitive.ObjectID{shared.ID}})
	require.NoError(t, err)
	defer download.Close()

	assert.Equal(t, "doc.pdf", download.Name)
	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(body))

	// Ungranted entries are invisible through this surface
	_, err = env.archive.BuildSharedWithMe(context.Background(), friend.ID, Selection{IDs: []primitive.ObjectID{private.ID}})
	assert.ErrorIs(t, err, pkg.ErrEntryNotFound)
}

func TestDownloadSharedWithMeAll(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")
	friend := env.user(t, "bob@example.com")

	fileA := env.mustFile(t, owner, "a.txt", "aaa", nil)
	fileB := env.mustFile(t, owner, "b.txt", "bbb", nil)

	require.NoError(t, env.sharing.Share(context.Background(), owner, &ShareRequest{
		Email: friend.Email,
		IDs:   []primitive.ObjectID{fileA.ID, fileB.ID},
	}))

	download, err := env.archive.BuildSharedWithMe(context.Background(), friend.ID, Selection{All: true})
	require.NoError(t, err)
	defer download.Close()

	assert.Equal(t, "shared-with-me.zip", download.Name)
	contents := readZip(t, download)
	assert.Equal(t, "aaa", contents["a.txt"])
	assert.Equal(t, "bbb", contents["b.txt"])
}

func TestDownloadSharedByMeAll(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")
	friend := env.user(t, "bob@example.com")

	shared := env.mustFile(t, owner, "doc.txt", "shared-bytes", nil)
	env.mustFile(t, owner, "private.txt", "x", nil)

	require.NoError(t, env.sharing.Share(context.Background(), owner, &ShareRequest{
		Email: friend.Email,
		IDs:   []primitive.ObjectID{shared.ID},
	}))

	download, err := env.archive.BuildSharedByMe(context.Background(), owner.ID, Selection{All: true})
	require.NoError(t, err)
	defer download.Close()

	assert.Equal(t, "doc.txt", download.Name, "a single granted entry streams directly")
	body, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, "shared-bytes", string(body))
}

func TestDownloadForeignSelection(t *testing.T) {
	env := newTestEnv()
	owner := env.user(t, "alice@example.com")
	other := env.user(t, "bob@example.com")
	env.mustRoot(t, owner)

	theirs := env.mustFile(t, other, "theirs.txt", "x", nil)

	_, err := env.archive.BuildDownload(context.Background(), owner.ID, Selection{IDs: []primitive.ObjectID{theirs.ID}})
	assert.ErrorIs(t, err, pkg.ErrEntryNotFound)
}
