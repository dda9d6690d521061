package repository

import (
	"context"
	"fmt"
	"time"

	"skydrive/internal/models"
	"skydrive/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type shareRepository struct {
	*BaseRepository
}

// NewShareRepository creates a new share repository
func NewShareRepository(mongodb *MongoDB) ShareRepository {
	return &shareRepository{
		BaseRepository: NewBaseRepository(mongodb, "shares", pkg.ErrEntryNotFound),
	}
}

// shareOrder lists newest grants first, entry id as tiebreaker
var shareOrder = bson.D{
	{Key: "created_at", Value: -1},
	{Key: "entry_id", Value: -1},
}

// CreateMany inserts share rows in one round trip
func (r *shareRepository) CreateMany(ctx context.Context, shares []*models.Share) error {
	if len(shares) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(shares))
	now := time.Now()
	for _, share := range shares {
		share.ID = primitive.NewObjectID()
		if share.CreatedAt.IsZero() {
			share.CreatedAt = now
		}
		docs = append(docs, share)
	}

	// Unordered so one duplicate grant does not sink the batch
	opts := options.InsertMany().SetOrdered(false)
	if _, err := r.collection.InsertMany(ctx, docs, opts); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to create shares: %w", err)
		}
	}

	return nil
}

// Exists checks whether an entry is shared with a user
func (r *shareRepository) Exists(ctx context.Context, entryID, userID primitive.ObjectID) (bool, error) {
	filter := bson.M{"entry_id": entryID, "user_id": userID}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check share: %w", err)
	}

	return count > 0, nil
}

// SharedEntryIDs returns the subset of entryIDs already shared with userID
func (r *shareRepository) SharedEntryIDs(ctx context.Context, entryIDs []primitive.ObjectID, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	shared := make(map[primitive.ObjectID]bool)
	if len(entryIDs) == 0 {
		return shared, nil
	}

	var shares []*models.Share
	filter := bson.M{"entry_id": objectIDIn(entryIDs), "user_id": userID}

	if err := r.FindAll(ctx, filter, nil, &shares); err != nil {
		return nil, fmt.Errorf("failed to load existing shares: %w", err)
	}

	for _, share := range shares {
		shared[share.EntryID] = true
	}

	return shared, nil
}

// ListByGrantee retrieves shares granted to a user, newest first
func (r *shareRepository) ListByGrantee(ctx context.Context, userID primitive.ObjectID) ([]*models.Share, error) {
	var shares []*models.Share
	filter := bson.M{"user_id": userID}

	if err := r.FindAll(ctx, filter, shareOrder, &shares); err != nil {
		return nil, fmt.Errorf("failed to list shares by grantee: %w", err)
	}

	return shares, nil
}

// ListByEntryIDs retrieves shares for a set of entries, newest first
func (r *shareRepository) ListByEntryIDs(ctx context.Context, entryIDs []primitive.ObjectID) ([]*models.Share, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}

	var shares []*models.Share
	filter := bson.M{"entry_id": objectIDIn(entryIDs)}

	if err := r.FindAll(ctx, filter, shareOrder, &shares); err != nil {
		return nil, fmt.Errorf("failed to list shares by entries: %w", err)
	}

	return shares, nil
}

// DeleteByEntry removes all share rows referencing an entry
func (r *shareRepository) DeleteByEntry(ctx context.Context, entryID primitive.ObjectID) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"entry_id": entryID}); err != nil {
		return fmt.Errorf("failed to delete shares for entry: %w", err)
	}
	return nil
}
