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
)

type starRepository struct {
	*BaseRepository
}

// NewStarRepository creates a new star repository
func NewStarRepository(mongodb *MongoDB) StarRepository {
	return &starRepository{
		BaseRepository: NewBaseRepository(mongodb, "stars", pkg.ErrEntryNotFound),
	}
}

// Get retrieves the star for an (entry, user) pair
func (r *starRepository) Get(ctx context.Context, entryID, userID primitive.ObjectID) (*models.Star, error) {
	var star models.Star
	filter := bson.M{"entry_id": entryID, "user_id": userID}

	err := r.collection.FindOne(ctx, filter).Decode(&star)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, pkg.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get star: %w", err)
	}

	return &star, nil
}

// Create inserts a star row
func (r *starRepository) Create(ctx context.Context, star *models.Star) error {
	star.ID = primitive.NewObjectID()
	star.CreatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, star); err != nil {
		// Two rapid toggles may race; last writer wins either way
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to create star: %w", err)
	}

	return nil
}

// Delete removes the star for an (entry, user) pair
func (r *starRepository) Delete(ctx context.Context, entryID, userID primitive.ObjectID) error {
	filter := bson.M{"entry_id": entryID, "user_id": userID}

	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete star: %w", err)
	}

	return nil
}

// DeleteByEntry removes all star rows referencing an entry
func (r *starRepository) DeleteByEntry(ctx context.Context, entryID primitive.ObjectID) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"entry_id": entryID}); err != nil {
		return fmt.Errorf("failed to delete stars for entry: %w", err)
	}
	return nil
}

// EntryIDsByUser retrieves all entry ids the user has starred
func (r *starRepository) EntryIDsByUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	var stars []*models.Star
	filter := bson.M{"user_id": userID}

	if err := r.FindAll(ctx, filter, nil, &stars); err != nil {
		return nil, fmt.Errorf("failed to list stars by user: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(stars))
	for _, star := range stars {
		ids = append(ids, star.EntryID)
	}

	return ids, nil
}

// StarredSet returns which of entryIDs the user has starred
func (r *starRepository) StarredSet(ctx context.Context, entryIDs []primitive.ObjectID, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	starred := make(map[primitive.ObjectID]bool)
	if len(entryIDs) == 0 {
		return starred, nil
	}

	var stars []*models.Star
	filter := bson.M{"entry_id": objectIDIn(entryIDs), "user_id": userID}

	if err := r.FindAll(ctx, filter, nil, &stars); err != nil {
		return nil, fmt.Errorf("failed to load starred set: %w", err)
	}

	for _, star := range stars {
		starred[star.EntryID] = true
	}

	return starred, nil
}
