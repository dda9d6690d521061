package services

import (
	"context"
	"io"
	"time"

	"skydrive/internal/models"
	"skydrive/internal/pkg"
	"skydrive/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// previewURLTTL bounds how long a preview link stays valid
const previewURLTTL = 5 * time.Minute

// TreeService maintains the per-owner entry tree: root bootstrap, folder
// and file creation with path materialization, listings, breadcrumbs and
// previews.
type TreeService struct {
	entryRepo repository.EntryRepository
	shareRepo repository.ShareRepository
	starRepo  repository.StarRepository
	storage   *StorageService
	logger    *pkg.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	entryRepo repository.EntryRepository,
	shareRepo repository.ShareRepository,
	starRepo repository.StarRepository,
	storage *StorageService,
	logger *pkg.Logger,
) *TreeService {
	return &TreeService{
		entryRepo: entryRepo,
		shareRepo: shareRepo,
		starRepo:  starRepo,
		storage:   storage,
		logger:    logger,
	}
}

// CreateFolderRequest represents folder creation request
type CreateFolderRequest struct {
	Name     string              `json:"name" validate:"required,min=1,max=255"`
	ParentID *primitive.ObjectID `json:"parentId,omitempty"`
}

// FileUpload is a single uploaded file's metadata and content
type FileUpload struct {
	Name    string
	Mime    string
	Size    int64
	Content io.Reader
}

// UploadNode is one level of a nested upload: either a file leaf or a
// named folder whose children mirror the client's directory structure.
type UploadNode struct {
	File     *FileUpload
	Children map[string]*UploadNode
}

// ListOptions narrows a folder listing
type ListOptions struct {
	Search         string
	FavouritesOnly bool
}

// PreviewResult is the client-facing preview payload: inline content for
// notes, a short-lived URL for stored files.
type PreviewResult struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Mime    string `json:"mime,omitempty"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// GetOrCreateRoot returns the owner's root folder, creating it lazily on
// first use. The root's path is empty so child paths never carry a root
// segment.
func (s *TreeService) GetOrCreateRoot(ctx context.Context, owner *models.User) (*models.Entry, error) {
	if root, err := s.entryRepo.GetRoot(ctx, owner.ID); err == nil {
		return root, nil
	}

	root := &models.Entry{
		Name:     owner.Email,
		IsFolder: true,
		Type:     models.EntryTypeFile,
		Path:     "",
		OwnerID:  owner.ID,
	}

	if err := s.entryRepo.Create(ctx, root); err != nil {
		// A concurrent request may have created it first
		if existing, getErr := s.entryRepo.GetRoot(ctx, owner.ID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	return root, nil
}

// CreateFolder creates a folder under the given parent (root when nil)
func (s *TreeService) CreateFolder(ctx context.Context, owner *models.User, req *CreateFolderRequest) (*models.Entry, error) {
	if err := pkg.DefaultValidator.Validate(req); err != nil {
		return nil, pkg.ErrValidationFailed.WithDetails(map[string]interface{}{
			"errors": err,
		})
	}

	parent, err := s.resolveParent(ctx, owner, req.ParentID)
	if err != nil {
		return nil, err
	}

	folder := &models.Entry{
		Name:     req.Name,
		IsFolder: true,
		Type:     models.EntryTypeFile,
	}

	if err := s.appendChild(ctx, parent, folder); err != nil {
		return nil, err
	}

	return folder, nil
}

// StoreFiles persists an upload batch under parent. A non-empty tree takes
// precedence over the flat list and recreates the client's folder
// structure node by node.
func (s *TreeService) StoreFiles(ctx context.Context, owner *models.User, parentID *primitive.ObjectID, files []FileUpload, tree map[string]*UploadNode) error {
	parent, err := s.resolveParent(ctx, owner, parentID)
	if err != nil {
		return err
	}

	if len(tree) > 0 {
		return s.saveUploadTree(ctx, owner, parent, tree)
	}

	for i := range files {
		if err := s.saveFile(ctx, owner, parent, &files[i]); err != nil {
			return err
		}
	}

	return nil
}

// ResolveByPath resolves an owner's entry by materialized path. The empty
// path resolves to the root.
func (s *TreeService) ResolveByPath(ctx context.Context, owner *models.User, path string) (*models.Entry, error) {
	if path == "" {
		return s.GetOrCreateRoot(ctx, owner)
	}

	return s.entryRepo.GetByPath(ctx, owner.ID, path)
}

// ListFolder retrieves one page of a folder listing: folders first, then
// newest first. A search term spans the owner's whole tree instead of the
// folder's direct children.
func (s *TreeService) ListFolder(ctx context.Context, actorID primitive.ObjectID, folder *models.Entry, opts ListOptions, params *pkg.PaginationParams) ([]*models.Entry, int64, error) {
	if !folder.IsFolder {
		return nil, 0, pkg.ErrNotAFolder
	}

	filter := repository.EntryFilter{
		ParentID: &folder.ID,
		Search:   opts.Search,
	}

	if opts.FavouritesOnly {
		starredIDs, err := s.starRepo.EntryIDsByUser(ctx, actorID)
		if err != nil {
			return nil, 0, err
		}
		if len(starredIDs) == 0 {
			return []*models.Entry{}, 0, nil
		}
		filter.IDs = starredIDs
	}

	return s.entryRepo.ListFolder(ctx, folder.OwnerID, filter, params)
}

// Ancestors walks parent pointers from the entry up to the root and
// returns them root-first, for breadcrumb projection. The walk is bounded
// by tree depth.
func (s *TreeService) Ancestors(ctx context.Context, entry *models.Entry) ([]*models.Entry, error) {
	var chain []*models.Entry

	current := entry
	for current.ParentID != nil {
		parent, err := s.entryRepo.GetAny(ctx, entry.OwnerID, *current.ParentID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, parent)
		current = parent
	}

	// Reverse into root-first order
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain, nil
}

// Preview returns inline content for notes and a short-lived URL for
// stored files. Access requires ownership or a share grant.
func (s *TreeService) Preview(ctx context.Context, actorID, entryID primitive.ObjectID) (*PreviewResult, error) {
	entry, err := s.entryRepo.GetUnscoped(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if err := s.checkAccess(ctx, actorID, entry); err != nil {
		return nil, err
	}

	if entry.IsNote() {
		return &PreviewResult{
			Type:    "note",
			Name:    entry.Name,
			Content: entry.NoteContent,
		}, nil
	}

	if entry.StoragePath == "" {
		return nil, pkg.ErrEntryNotFound
	}

	url, err := s.storage.ViewURL(ctx, entry.StoragePath, previewURLTTL)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		Type: "file",
		Name: entry.Name,
		Mime: entry.Mime,
		URL:  url,
	}, nil
}

// checkAccess allows the owner and share grantees through
func (s *TreeService) checkAccess(ctx context.Context, actorID primitive.ObjectID, entry *models.Entry) error {
	if entry.IsOwnedBy(actorID) {
		return nil
	}

	shared, err := s.shareRepo.Exists(ctx, entry.ID, actorID)
	if err != nil {
		return err
	}
	if !shared {
		return pkg.ErrForbidden
	}

	return nil
}

// resolveParent loads and checks the upload/create target folder,
// defaulting to the owner's root
func (s *TreeService) resolveParent(ctx context.Context, owner *models.User, parentID *primitive.ObjectID) (*models.Entry, error) {
	if parentID == nil {
		return s.GetOrCreateRoot(ctx, owner)
	}

	parent, err := s.entryRepo.GetByID(ctx, owner.ID, *parentID)
	if err != nil {
		return nil, err
	}

	if !parent.IsFolder {
		return nil, pkg.ErrNotAFolder
	}

	return parent, nil
}

// appendChild materializes the child's path from the parent and persists
// it. Paths are derived exactly once, at creation.
func (s *TreeService) appendChild(ctx context.Context, parent *models.Entry, child *models.Entry) error {
	if pkg.Strings.IsEmpty(child.Name) {
		return pkg.ErrValidationFailed.WithDetails(map[string]interface{}{
			"message": "name is required",
		})
	}

	slug := pkg.Strings.Slugify(child.Name)
	if parent.IsRoot() {
		child.Path = slug
	} else {
		child.Path = parent.Path + "/" + slug
	}

	child.ParentID = &parent.ID
	child.OwnerID = parent.OwnerID

	return s.entryRepo.Create(ctx, child)
}

// saveFile uploads the blob then records the entry
func (s *TreeService) saveFile(ctx context.Context, owner *models.User, parent *models.Entry, file *FileUpload) error {
	key := s.storage.ObjectKey(owner.ID.Hex(), file.Name)

	if _, err := s.storage.Upload(ctx, key, file.Content, file.Size, file.Mime); err != nil {
		return err
	}

	entry := &models.Entry{
		Name:        file.Name,
		IsFolder:    false,
		Type:        models.EntryTypeFile,
		Mime:        file.Mime,
		Size:        file.Size,
		StoragePath: key,
	}

	if err := s.appendChild(ctx, parent, entry); err != nil {
		// The blob is orphaned if the row fails; reclaim it
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to clean up orphaned blob", map[string]interface{}{
				"key":   key,
				"error": delErr.Error(),
			})
		}
		return err
	}

	return nil
}

// saveUploadTree walks the upload tree iteratively, creating folders as it
// descends and files at the leaves
func (s *TreeService) saveUploadTree(ctx context.Context, owner *models.User, parent *models.Entry, tree map[string]*UploadNode) error {
	type frame struct {
		parent *models.Entry
		name   string
		node   *UploadNode
	}

	stack := make([]frame, 0, len(tree))
	for name, node := range tree {
		stack = append(stack, frame{parent: parent, name: name, node: node})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node.File != nil {
			upload := *f.node.File
			if upload.Name == "" {
				upload.Name = f.name
			}
			if err := s.saveFile(ctx, owner, f.parent, &upload); err != nil {
				return err
			}
			continue
		}

		folder := &models.Entry{
			Name:     f.name,
			IsFolder: true,
			Type:     models.EntryTypeFile,
		}
		if err := s.appendChild(ctx, f.parent, folder); err != nil {
			return err
		}

		for name, child := range f.node.Children {
			stack = append(stack, frame{parent: folder, name: name, node: child})
		}
	}

	return nil
}
