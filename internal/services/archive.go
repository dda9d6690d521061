package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"skydrive/internal/models"
	"skydrive/internal/pkg"
	"skydrive/internal/repository"

	"github.com/klauspost/compress/zip"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Download is a ready-to-stream download: a name, a mime type and a body
// the caller must close. Cleanup removes any temp files backing the body.
type Download struct {
	Name    string
	Mime    string
	Size    int64
	Body    io.ReadCloser
	cleanup func()
}

// Close releases the body and any backing temp files
func (d *Download) Close() error {
	err := d.Body.Close()
	if d.cleanup != nil {
		d.cleanup()
	}
	return err
}

// ArchiveService builds downloads for entry selections: direct streams for
// single files and notes, zip archives for folders and multi-selections.
type ArchiveService struct {
	entryRepo repository.EntryRepository
	shareRepo repository.ShareRepository
	storage   *StorageService
	logger    *pkg.Logger
}

// NewArchiveService creates a new archive service
func NewArchiveService(entryRepo repository.EntryRepository, shareRepo repository.ShareRepository, storage *StorageService, logger *pkg.Logger) *ArchiveService {
	return &ArchiveService{
		entryRepo: entryRepo,
		shareRepo: shareRepo,
		storage:   storage,
		logger:    logger,
	}
}

// BuildDownload resolves an owner's selection into a download. The All
// form zips the browsed folder's live children under the folder's name;
// an id selection streams single files and notes directly, archives a
// single folder's contents without a wrapper directory, and zips anything
// else.
func (s *ArchiveService) BuildDownload(ctx context.Context, ownerID primitive.ObjectID, sel Selection) (*Download, error) {
	if sel.All {
		folder, err := resolveBrowsedFolder(ctx, s.entryRepo, ownerID, sel.ParentID)
		if err != nil {
			return nil, err
		}
		children, err := s.entryRepo.ListChildren(ctx, folder.ID)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, pkg.ErrFolderEmpty
		}
		return s.zipDownload(ctx, folder.Name+".zip", children)
	}

	if len(sel.IDs) == 0 {
		return nil, pkg.ErrEmptySelection
	}

	entries, err := s.entryRepo.FindByIDs(ctx, ownerID, sel.IDs)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, pkg.ErrEntryNotFound
	}

	name := fmt.Sprintf("download-%s", time.Now().Format("20060102-150405"))
	return s.selectionDownload(ctx, entries, name)
}

// BuildSharedWithMe resolves a download against the entries other users
// granted to the actor. The All form zips every grant; an id selection is
// restricted to entries the actor actually holds a grant for.
func (s *ArchiveService) BuildSharedWithMe(ctx context.Context, actorID primitive.ObjectID, sel Selection) (*Download, error) {
	if sel.All {
		shares, err := s.shareRepo.ListByGrantee(ctx, actorID)
		if err != nil {
			return nil, err
		}
		var entries []*models.Entry
		for _, share := range shares {
			entry, err := s.entryRepo.GetUnscoped(ctx, share.EntryID)
			if err != nil {
				continue
			}
			entries = append(entries, entry)
		}
		if len(entries) == 0 {
			return nil, pkg.ErrEmptySelection
		}
		return s.selectionDownload(ctx, entries, "shared-with-me")
	}

	if len(sel.IDs) == 0 {
		return nil, pkg.ErrEmptySelection
	}

	granted, err := s.shareRepo.SharedEntryIDs(ctx, sel.IDs, actorID)
	if err != nil {
		return nil, err
	}

	var entries []*models.Entry
	for _, id := range sel.IDs {
		if !granted[id] {
			continue
		}
		entry, err := s.entryRepo.GetUnscoped(ctx, id)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, pkg.ErrEntryNotFound
	}

	return s.selectionDownload(ctx, entries, "shared-with-me")
}

// BuildSharedByMe resolves a download against the actor's own entries
// that carry at least one grant
func (s *ArchiveService) BuildSharedByMe(ctx context.Context, actorID primitive.ObjectID, sel Selection) (*Download, error) {
	if sel.All {
		owned, err := s.entryRepo.FindOwned(ctx, actorID)
		if err != nil {
			return nil, err
		}

		ids := make([]primitive.ObjectID, 0, len(owned))
		byID := make(map[primitive.ObjectID]*models.Entry, len(owned))
		for _, entry := range owned {
			ids = append(ids, entry.ID)
			byID[entry.ID] = entry
		}

		shares, err := s.shareRepo.ListByEntryIDs(ctx, ids)
		if err != nil {
			return nil, err
		}

		var entries []*models.Entry
		for _, share := range shares {
			entry, ok := byID[share.EntryID]
			if !ok {
				continue
			}
			entries = append(entries, entry)
			delete(byID, share.EntryID)
		}
		if len(entries) == 0 {
			return nil, pkg.ErrEmptySelection
		}
		return s.selectionDownload(ctx, entries, "shared-by-me")
	}

	if len(sel.IDs) == 0 {
		return nil, pkg.ErrEmptySelection
	}

	entries, err := s.entryRepo.FindByIDs(ctx, actorID, sel.IDs)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, pkg.ErrEntryNotFound
	}

	return s.selectionDownload(ctx, entries, "shared-by-me")
}

// selectionDownload applies the single-entry fast paths, falling back to
// one zip named after the originating page
func (s *ArchiveService) selectionDownload(ctx context.Context, entries []*models.Entry, zipName string) (*Download, error) {
	if len(entries) == 1 {
		entry := entries[0]

		if entry.IsNote() {
			return s.noteDownload(entry), nil
		}

		if !entry.IsFolder {
			return s.fileDownload(ctx, entry)
		}

		children, err := s.entryRepo.ListChildren(ctx, entry.ID)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			return nil, pkg.ErrFolderEmpty
		}

		return s.zipDownload(ctx, entry.Name+".zip", children)
	}

	return s.zipDownload(ctx, zipName+".zip", entries)
}

// noteDownload wraps a note's inline content as a text file stream
func (s *ArchiveService) noteDownload(entry *models.Entry) *Download {
	content := entry.NoteContent
	return &Download{
		Name: entry.Name + ".txt",
		Mime: "text/plain",
		Size: int64(len(content)),
		Body: io.NopCloser(strings.NewReader(content)),
	}
}

// fileDownload streams a stored file's blob directly, no archive
func (s *ArchiveService) fileDownload(ctx context.Context, entry *models.Entry) (*Download, error) {
	body, err := s.storage.Download(ctx, entry.StoragePath)
	if err != nil {
		return nil, err
	}

	mime := entry.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}

	return &Download{
		Name: entry.Name,
		Mime: mime,
		Size: entry.Size,
		Body: body,
	}, nil
}

// zipDownload archives the given entries and their live descendants into a
// temp file and returns it as a stream
func (s *ArchiveService) zipDownload(ctx context.Context, name string, entries []*models.Entry) (*Download, error) {
	tmp, err := os.CreateTemp("", "skydrive-zip-*")
	if err != nil {
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	cleanup := func() {
		os.Remove(tmp.Name())
	}

	if err := s.writeArchive(ctx, tmp, entries); err != nil {
		tmp.Close()
		cleanup()
		return nil, err
	}

	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		cleanup()
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		cleanup()
		return nil, pkg.ErrInternalServer.WithCause(err)
	}

	return &Download{
		Name:    name,
		Mime:    "application/zip",
		Size:    info.Size(),
		Body:    tmp,
		cleanup: cleanup,
	}, nil
}

// writeArchive walks the selection iteratively and writes every live file
// and note into the zip, folders becoming path prefixes
func (s *ArchiveService) writeArchive(ctx context.Context, w io.Writer, entries []*models.Entry) error {
	zw := zip.NewWriter(w)

	type frame struct {
		entry  *models.Entry
		prefix string
	}

	stack := make([]frame, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		stack = append(stack, frame{entry: entries[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.entry.IsFolder {
			children, err := s.entryRepo.ListChildren(ctx, f.entry.ID)
			if err != nil {
				zw.Close()
				return err
			}
			// Empty folders contribute nothing to the archive
			prefix := f.prefix + f.entry.Name + "/"
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{entry: children[i], prefix: prefix})
			}
			continue
		}

		if err := s.writeEntry(ctx, zw, f.entry, f.prefix); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return pkg.ErrInternalServer.WithCause(err)
	}

	return nil
}

// writeEntry copies one file or note into the archive
func (s *ArchiveService) writeEntry(ctx context.Context, zw *zip.Writer, entry *models.Entry, prefix string) error {
	name := entry.Name
	if entry.IsNote() {
		name += ".txt"
	}

	header, err := zw.CreateHeader(&zip.FileHeader{
		Name:     prefix + name,
		Method:   zip.Deflate,
		Modified: entry.UpdatedAt,
	})
	if err != nil {
		return pkg.ErrInternalServer.WithCause(err)
	}

	if entry.IsNote() {
		_, err = io.Copy(header, strings.NewReader(entry.NoteContent))
		if err != nil {
			return pkg.ErrInternalServer.WithCause(err)
		}
		return nil
	}

	body, err := s.storage.Download(ctx, entry.StoragePath)
	if err != nil {
		return err
	}
	defer body.Close()

	if _, err := io.Copy(header, body); err != nil {
		return pkg.ErrInternalServer.WithCause(err)
	}

	return nil
}
