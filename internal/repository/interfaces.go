package repository

import (
	"context"
	"time"

	"skydrive/internal/models"
	"skydrive/internal/pkg"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryFilter narrows folder listings. ParentID scopes to direct children;
// Search widens the scope to the owner's whole tree; IDs, when non-nil,
// restricts results to that set (used for the favourites filter).
type EntryFilter struct {
	ParentID *primitive.ObjectID
	Search   string
	IDs      []primitive.ObjectID
}

// EntryRepository defines entry repository interface. Every lookup is
// scoped by owner; unmatched lookups return pkg.ErrEntryNotFound.
type EntryRepository interface {
	Create(ctx context.Context, entry *models.Entry) error
	GetByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Entry, error)
	GetAny(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Entry, error)
	GetUnscoped(ctx context.Context, id primitive.ObjectID) (*models.Entry, error)
	GetByPath(ctx context.Context, ownerID primitive.ObjectID, path string) (*models.Entry, error)
	GetRoot(ctx context.Context, ownerID primitive.ObjectID) (*models.Entry, error)
	ListFolder(ctx context.Context, ownerID primitive.ObjectID, filter EntryFilter, params *pkg.PaginationParams) ([]*models.Entry, int64, error)
	ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]*models.Entry, error)
	ListChildrenAny(ctx context.Context, parentID primitive.ObjectID) ([]*models.Entry, error)
	ListTrashed(ctx context.Context, ownerID primitive.ObjectID, search string, params *pkg.PaginationParams) ([]*models.Entry, int64, error)
	FindByIDs(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) ([]*models.Entry, error)
	FindOwned(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Entry, error)
	FindTrashed(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) ([]*models.Entry, error)
	FindAllTrashed(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Entry, error)
	FindTrashedBefore(ctx context.Context, cutoff time.Time) ([]*models.Entry, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	Restore(ctx context.Context, id primitive.ObjectID) error
	HardDelete(ctx context.Context, id primitive.ObjectID) error
}

// ShareRepository defines share repository interface
type ShareRepository interface {
	CreateMany(ctx context.Context, shares []*models.Share) error
	Exists(ctx context.Context, entryID, userID primitive.ObjectID) (bool, error)
	SharedEntryIDs(ctx context.Context, entryIDs []primitive.ObjectID, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error)
	ListByGrantee(ctx context.Context, userID primitive.ObjectID) ([]*models.Share, error)
	ListByEntryIDs(ctx context.Context, entryIDs []primitive.ObjectID) ([]*models.Share, error)
	DeleteByEntry(ctx context.Context, entryID primitive.ObjectID) error
}

// StarRepository defines star repository interface
type StarRepository interface {
	Get(ctx context.Context, entryID, userID primitive.ObjectID) (*models.Star, error)
	Create(ctx context.Context, star *models.Star) error
	Delete(ctx context.Context, entryID, userID primitive.ObjectID) error
	DeleteByEntry(ctx context.Context, entryID primitive.ObjectID) error
	EntryIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	StarredSet(ctx context.Context, entryIDs []primitive.ObjectID, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error)
}

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Repository aggregates all repositories
type Repository struct {
	Entry EntryRepository
	Share ShareRepository
	Star  StarRepository
	User  UserRepository
}
