package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"skydrive/internal/models"
	"skydrive/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type entryRepository struct {
	*BaseRepository
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(mongodb *MongoDB) EntryRepository {
	return &entryRepository{
		BaseRepository: NewBaseRepository(mongodb, "entries", pkg.ErrEntryNotFound),
	}
}

// listOrder is the canonical listing order: folders before files, newest
// first, id as the stable tiebreaker.
var listOrder = bson.D{
	{Key: "is_folder", Value: -1},
	{Key: "created_at", Value: -1},
	{Key: "_id", Value: -1},
}

// trashOrder sorts trash listings by deletion time instead of creation time.
var trashOrder = bson.D{
	{Key: "is_folder", Value: -1},
	{Key: "deleted_at", Value: -1},
	{Key: "_id", Value: -1},
}

// Create creates a new entry
func (r *entryRepository) Create(ctx context.Context, entry *models.Entry) error {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return pkg.ErrEntryAlreadyExists
		}
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

// GetByID retrieves a live entry owned by ownerID
func (r *entryRepository) GetByID(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Entry, error) {
	return r.findOne(ctx, bson.M{"_id": id, "owner_id": ownerID, "deleted_at": nil})
}

// GetAny retrieves an owned entry regardless of trash state
func (r *entryRepository) GetAny(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Entry, error) {
	return r.findOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
}

// GetUnscoped retrieves a live entry by id alone. Callers must perform
// their own access check against the share ledger.
func (r *entryRepository) GetUnscoped(ctx context.Context, id primitive.ObjectID) (*models.Entry, error) {
	return r.findOne(ctx, bson.M{"_id": id, "deleted_at": nil})
}

// GetByPath retrieves a live entry by its materialized path
func (r *entryRepository) GetByPath(ctx context.Context, ownerID primitive.ObjectID, path string) (*models.Entry, error) {
	return r.findOne(ctx, bson.M{"owner_id": ownerID, "path": path, "deleted_at": nil})
}

// GetRoot retrieves the owner's root folder
func (r *entryRepository) GetRoot(ctx context.Context, ownerID primitive.ObjectID) (*models.Entry, error) {
	return r.findOne(ctx, bson.M{"owner_id": ownerID, "parent_id": nil, "deleted_at": nil})
}

// ListFolder retrieves a page of a folder listing. A search term widens the
// scope from the parent's children to the owner's whole tree.
func (r *entryRepository) ListFolder(ctx context.Context, ownerID primitive.ObjectID, filter EntryFilter, params *pkg.PaginationParams) ([]*models.Entry, int64, error) {
	query := bson.M{"owner_id": ownerID, "deleted_at": nil}

	if filter.Search != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
	} else if filter.ParentID != nil {
		query["parent_id"] = *filter.ParentID
	}

	if filter.IDs != nil {
		query["_id"] = objectIDIn(filter.IDs)
	}

	var entries []*models.Entry
	total, err := r.BaseRepository.List(ctx, query, listOrder, params, &entries)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list folder: %w", err)
	}

	return entries, total, nil
}

// ListChildren retrieves the live direct children of a folder
func (r *entryRepository) ListChildren(ctx context.Context, parentID primitive.ObjectID) ([]*models.Entry, error) {
	var entries []*models.Entry
	filter := bson.M{"parent_id": parentID, "deleted_at": nil}

	if err := r.FindAll(ctx, filter, listOrder, &entries); err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}

	return entries, nil
}

// ListChildrenAny retrieves direct children including trashed ones. The
// purge cascade uses this so trashed descendants are removed too.
func (r *entryRepository) ListChildrenAny(ctx context.Context, parentID primitive.ObjectID) ([]*models.Entry, error) {
	var entries []*models.Entry
	filter := bson.M{"parent_id": parentID}

	if err := r.FindAll(ctx, filter, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}

	return entries, nil
}

// ListTrashed retrieves a page of the owner's trashed entries
func (r *entryRepository) ListTrashed(ctx context.Context, ownerID primitive.ObjectID, search string, params *pkg.PaginationParams) ([]*models.Entry, int64, error) {
	query := bson.M{"owner_id": ownerID, "deleted_at": bson.M{"$ne": nil}}

	if search != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}

	var entries []*models.Entry
	total, err := r.BaseRepository.List(ctx, query, trashOrder, params, &entries)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list trashed entries: %w", err)
	}

	return entries, total, nil
}

// FindByIDs retrieves the live owned entries among ids
func (r *entryRepository) FindByIDs(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) ([]*models.Entry, error) {
	var entries []*models.Entry
	filter := bson.M{"_id": objectIDIn(ids), "owner_id": ownerID, "deleted_at": nil}

	if err := r.FindAll(ctx, filter, listOrder, &entries); err != nil {
		return nil, fmt.Errorf("failed to find entries: %w", err)
	}

	return entries, nil
}

// FindOwned retrieves all of the owner's live entries
func (r *entryRepository) FindOwned(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Entry, error) {
	var entries []*models.Entry
	filter := bson.M{"owner_id": ownerID, "deleted_at": nil}

	if err := r.FindAll(ctx, filter, listOrder, &entries); err != nil {
		return nil, fmt.Errorf("failed to find owned entries: %w", err)
	}

	return entries, nil
}

// FindTrashed retrieves the trashed owned entries among ids
func (r *entryRepository) FindTrashed(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) ([]*models.Entry, error) {
	var entries []*models.Entry
	filter := bson.M{"_id": objectIDIn(ids), "owner_id": ownerID, "deleted_at": bson.M{"$ne": nil}}

	if err := r.FindAll(ctx, filter, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to find trashed entries: %w", err)
	}

	return entries, nil
}

// FindAllTrashed retrieves all of the owner's trashed entries
func (r *entryRepository) FindAllTrashed(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Entry, error) {
	var entries []*models.Entry
	filter := bson.M{"owner_id": ownerID, "deleted_at": bson.M{"$ne": nil}}

	if err := r.FindAll(ctx, filter, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to find trashed entries: %w", err)
	}

	return entries, nil
}

// FindTrashedBefore retrieves entries trashed before cutoff, across all
// owners. Used by the retention worker.
func (r *entryRepository) FindTrashedBefore(ctx context.Context, cutoff time.Time) ([]*models.Entry, error) {
	var entries []*models.Entry
	filter := bson.M{"deleted_at": bson.M{"$ne": nil, "$lt": cutoff}}

	if err := r.FindAll(ctx, filter, nil, &entries); err != nil {
		return nil, fmt.Errorf("failed to find expired trash: %w", err)
	}

	return entries, nil
}

// Update updates entry data
func (r *entryRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	return r.BaseRepository.Update(ctx, bson.M{"_id": id}, updates)
}

// SoftDelete moves the entry to trash
func (r *entryRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	return r.BaseRepository.SoftDelete(ctx, bson.M{"_id": id, "deleted_at": nil})
}

// Restore clears the trash marker
func (r *entryRepository) Restore(ctx context.Context, id primitive.ObjectID) error {
	return r.BaseRepository.Update(ctx, bson.M{"_id": id}, map[string]interface{}{
		"deleted_at": nil,
	})
}

// HardDelete permanently removes the entry row
func (r *entryRepository) HardDelete(ctx context.Context, id primitive.ObjectID) error {
	return r.BaseRepository.Delete(ctx, bson.M{"_id": id})
}

func (r *entryRepository) findOne(ctx context.Context, filter bson.M) (*models.Entry, error) {
	var entry models.Entry
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return &entry, nil
}
