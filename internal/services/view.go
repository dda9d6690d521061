package services

import (
	"context"
	"errors"

	"skydrive/internal/models"
	"skydrive/internal/pkg"
	"skydrive/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryView is the client-facing projection of an entry: sizes formatted
// for humans, timestamps relative, the owner reduced to a label.
type EntryView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsFolder    bool   `json:"isFolder"`
	Type        string `json:"type"`
	Mime        string `json:"mime,omitempty"`
	Size        string `json:"size"`
	Path        string `json:"path"`
	Owner       string `json:"owner"`
	CreatedAgo  string `json:"created"`
	DeletedAgo  string `json:"deleted,omitempty"`
	IsFavourite bool   `json:"isFavourite"`
}

// Crumb is one segment of a breadcrumb trail
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// ViewService projects entries into their client-facing shape
type ViewService struct {
	entryRepo repository.EntryRepository
	starRepo  repository.StarRepository
	userRepo  repository.UserRepository
	logger    *pkg.Logger
}

// NewViewService creates a new view service
func NewViewService(
	entryRepo repository.EntryRepository,
	starRepo repository.StarRepository,
	userRepo repository.UserRepository,
	logger *pkg.Logger,
) *ViewService {
	return &ViewService{
		entryRepo: entryRepo,
		starRepo:  starRepo,
		userRepo:  userRepo,
		logger:    logger,
	}
}

// ProjectEntries builds views for a listing page. Folder sizes are rolled
// up from live descendants at read time; they are a projection, not
// stored state.
func (s *ViewService) ProjectEntries(ctx context.Context, actorID primitive.ObjectID, entries []*models.Entry) ([]*EntryView, error) {
	ids := make([]primitive.ObjectID, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}

	starred, err := s.starRepo.StarredSet(ctx, ids, actorID)
	if err != nil {
		return nil, err
	}

	views := make([]*EntryView, 0, len(entries))
	for _, entry := range entries {
		view, err := s.project(ctx, actorID, entry)
		if err != nil {
			return nil, err
		}
		view.IsFavourite = starred[entry.ID]
		views = append(views, view)
	}

	return views, nil
}

// ProjectEntry builds the view for a single entry
func (s *ViewService) ProjectEntry(ctx context.Context, actorID primitive.ObjectID, entry *models.Entry) (*EntryView, error) {
	view, err := s.project(ctx, actorID, entry)
	if err != nil {
		return nil, err
	}

	if _, err := s.starRepo.Get(ctx, entry.ID, actorID); err == nil {
		view.IsFavourite = true
	} else if !errors.Is(err, pkg.ErrEntryNotFound) {
		return nil, err
	}

	return view, nil
}

// Breadcrumbs projects an ancestor chain into crumb segments, root-first.
// The root crumb is renamed to a fixed label.
func (s *ViewService) Breadcrumbs(ancestors []*models.Entry, current *models.Entry) []Crumb {
	crumbs := make([]Crumb, 0, len(ancestors)+1)

	for _, entry := range ancestors {
		crumbs = append(crumbs, s.crumb(entry))
	}
	crumbs = append(crumbs, s.crumb(current))

	return crumbs
}

// EntrySize resolves an entry's effective size: stored size for files and
// notes, the sum of all live descendants for folders.
func (s *ViewService) EntrySize(ctx context.Context, entry *models.Entry) (int64, error) {
	if !entry.IsFolder {
		return entry.Size, nil
	}

	var total int64
	queue := []primitive.ObjectID{entry.ID}
	for len(queue) > 0 {
		parentID := queue[0]
		queue = queue[1:]

		children, err := s.entryRepo.ListChildren(ctx, parentID)
		if err != nil {
			return 0, err
		}
		for _, child := range children {
			if child.IsFolder {
				queue = append(queue, child.ID)
				continue
			}
			total += child.Size
		}
	}

	return total, nil
}

func (s *ViewService) project(ctx context.Context, actorID primitive.ObjectID, entry *models.Entry) (*EntryView, error) {
	size, err := s.EntrySize(ctx, entry)
	if err != nil {
		return nil, err
	}

	view := &EntryView{
		ID:         entry.ID.Hex(),
		Name:       entry.Name,
		IsFolder:   entry.IsFolder,
		Type:       string(entry.Type),
		Mime:       entry.Mime,
		Size:       pkg.Files.FormatFileSize(size),
		Path:       entry.Path,
		CreatedAgo: pkg.Times.TimeAgo(entry.CreatedAt),
	}

	if entry.DeletedAt != nil {
		view.DeletedAgo = pkg.Times.TimeAgo(*entry.DeletedAt)
	}

	if entry.IsOwnedBy(actorID) {
		view.Owner = "Me"
	} else {
		owner, err := s.userRepo.GetByID(ctx, entry.OwnerID)
		if err != nil {
			return nil, err
		}
		view.Owner = owner.Name
	}

	return view, nil
}

func (s *ViewService) crumb(entry *models.Entry) Crumb {
	name := entry.Name
	if entry.IsRoot() {
		name = "My Cloud"
	}
	return Crumb{
		ID:   entry.ID.Hex(),
		Name: name,
		Path: entry.Path,
	}
}
