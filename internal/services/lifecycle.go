package services

import (
	"context"

	"skydrive/internal/models"
	"skydrive/internal/pkg"
	"skydrive/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LifecycleService drives entries through the trash: soft-delete, restore
// and permanent purge with blob and ledger cleanup.
type LifecycleService struct {
	entryRepo repository.EntryRepository
	shareRepo repository.ShareRepository
	starRepo  repository.StarRepository
	storage   *StorageService
	logger    *pkg.Logger
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	entryRepo repository.EntryRepository,
	shareRepo repository.ShareRepository,
	starRepo repository.StarRepository,
	storage *StorageService,
	logger *pkg.Logger,
) *LifecycleService {
	return &LifecycleService{
		entryRepo: entryRepo,
		shareRepo: shareRepo,
		starRepo:  starRepo,
		storage:   storage,
		logger:    logger,
	}
}

// Selection names the targets of a bulk operation: either every direct
// child of the folder the caller is browsing, or an explicit id list.
// ParentID scopes the All form; nil means the root.
type Selection struct {
	All      bool                 `json:"all"`
	IDs      []primitive.ObjectID `json:"ids"`
	ParentID *primitive.ObjectID  `json:"parentId,omitempty"`
}

// resolveBrowsedFolder loads the folder an All selection refers to,
// defaulting to the owner's root
func resolveBrowsedFolder(ctx context.Context, entries repository.EntryRepository, ownerID primitive.ObjectID, parentID *primitive.ObjectID) (*models.Entry, error) {
	if parentID == nil {
		return entries.GetRoot(ctx, ownerID)
	}

	folder, err := entries.GetByID(ctx, ownerID, *parentID)
	if err != nil {
		return nil, err
	}
	if !folder.IsFolder {
		return nil, pkg.ErrNotAFolder
	}

	return folder, nil
}

// BulkResult reports how many entries a bulk operation touched
type BulkResult struct {
	Affected int `json:"affected"`
}

// MoveToTrash soft-deletes the selected live entries. Children of a
// trashed folder stay live; the subtree remains reachable through them.
func (s *LifecycleService) MoveToTrash(ctx context.Context, ownerID primitive.ObjectID, sel Selection) (*BulkResult, error) {
	entries, err := s.resolveLive(ctx, ownerID, sel)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for _, entry := range entries {
		if entry.IsRoot() {
			return result, pkg.ErrRootImmutable
		}
		if err := s.entryRepo.SoftDelete(ctx, entry.ID); err != nil {
			return result, err
		}
		result.Affected++
	}

	return result, nil
}

// Restore clears the trash marker on the selected entries
func (s *LifecycleService) Restore(ctx context.Context, ownerID primitive.ObjectID, sel Selection) (*BulkResult, error) {
	entries, err := s.resolveTrashed(ctx, ownerID, sel)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for _, entry := range entries {
		if err := s.entryRepo.Restore(ctx, entry.ID); err != nil {
			return result, err
		}
		result.Affected++
	}

	return result, nil
}

// ListTrash retrieves one page of the owner's trashed entries, folders
// first, most recently trashed first
func (s *LifecycleService) ListTrash(ctx context.Context, ownerID primitive.ObjectID, search string, params *pkg.PaginationParams) ([]*models.Entry, int64, error) {
	return s.entryRepo.ListTrashed(ctx, ownerID, search, params)
}

// Purge permanently deletes the selected trashed entries together with
// every descendant, trashed or not. Rows, share grants and stars go
// atomically per entry; blob deletion is best effort and never blocks the
// purge.
func (s *LifecycleService) Purge(ctx context.Context, ownerID primitive.ObjectID, sel Selection) (*BulkResult, error) {
	entries, err := s.resolveTrashed(ctx, ownerID, sel)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for _, entry := range entries {
		n, err := s.purgeSubtree(ctx, entry)
		result.Affected += n
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// PurgeEntry permanently deletes a single trashed entry and its subtree.
// Used by the retention worker.
func (s *LifecycleService) PurgeEntry(ctx context.Context, entry *models.Entry) error {
	if !entry.IsTrashed() {
		return pkg.ErrEntryNotTrashed
	}
	_, err := s.purgeSubtree(ctx, entry)
	return err
}

// purgeSubtree deletes an entry and all descendants, children before
// parents, via an explicit worklist
func (s *LifecycleService) purgeSubtree(ctx context.Context, root *models.Entry) (int, error) {
	// Expand the subtree breadth-first, then unwind in reverse so every
	// child is gone before its parent.
	order := []*models.Entry{root}
	for i := 0; i < len(order); i++ {
		if !order[i].IsFolder {
			continue
		}
		children, err := s.entryRepo.ListChildrenAny(ctx, order[i].ID)
		if err != nil {
			return 0, err
		}
		order = append(order, children...)
	}

	deleted := 0
	for i := len(order) - 1; i >= 0; i-- {
		if err := s.purgeOne(ctx, order[i]); err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

// purgeOne removes a single entry's row, grants, stars and blob
func (s *LifecycleService) purgeOne(ctx context.Context, entry *models.Entry) error {
	if err := s.shareRepo.DeleteByEntry(ctx, entry.ID); err != nil {
		return err
	}
	if err := s.starRepo.DeleteByEntry(ctx, entry.ID); err != nil {
		return err
	}
	if err := s.entryRepo.HardDelete(ctx, entry.ID); err != nil {
		return err
	}

	if entry.HasBlob() {
		if err := s.storage.Delete(ctx, entry.StoragePath); err != nil {
			s.logger.Warn("failed to delete blob during purge", map[string]interface{}{
				"entry_id": entry.ID.Hex(),
				"key":      entry.StoragePath,
				"error":    err.Error(),
			})
		}
	}

	return nil
}

// resolveLive expands a selection against the owner's live entries. The
// All form covers the browsed folder's direct children only.
func (s *LifecycleService) resolveLive(ctx context.Context, ownerID primitive.ObjectID, sel Selection) ([]*models.Entry, error) {
	if sel.All {
		folder, err := resolveBrowsedFolder(ctx, s.entryRepo, ownerID, sel.ParentID)
		if err != nil {
			return nil, err
		}
		return s.entryRepo.ListChildren(ctx, folder.ID)
	}

	if len(sel.IDs) == 0 {
		return nil, pkg.ErrEmptySelection
	}

	return s.entryRepo.FindByIDs(ctx, ownerID, sel.IDs)
}

// resolveTrashed expands a selection against the owner's trashed entries
func (s *LifecycleService) resolveTrashed(ctx context.Context, ownerID primitive.ObjectID, sel Selection) ([]*models.Entry, error) {
	if sel.All {
		return s.entryRepo.FindAllTrashed(ctx, ownerID)
	}

	if len(sel.IDs) == 0 {
		return nil, pkg.ErrEmptySelection
	}

	return s.entryRepo.FindTrashed(ctx, ownerID, sel.IDs)
}
