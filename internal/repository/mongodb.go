package repository

import (
	"context"
	"fmt"
	"time"

	"skydrive/internal/pkg"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB client wrapper
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// Connect establishes connection to MongoDB
func Connect(uri, dbName string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if dbName == "" {
		dbName = "skydrive"
	}

	mongoDB := &MongoDB{
		client:   client,
		database: client.Database(dbName),
		dbName:   dbName,
	}

	if err := mongoDB.createIndexes(); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return mongoDB, nil
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Database returns the database instance
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// Collection returns a collection instance
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// createIndexes creates all necessary indexes
func (m *MongoDB) createIndexes() error {
	ctx := context.Background()

	// Entry indexes: path resolution and child listing are the hot paths
	entryIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "path", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "parent_id", Value: 1}}},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := m.Collection("entries").Indexes().CreateMany(ctx, entryIndexes); err != nil {
		return fmt.Errorf("failed to create entry indexes: %w", err)
	}

	shareIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "entry_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "entry_id", Value: 1}}},
	}
	if _, err := m.Collection("shares").Indexes().CreateMany(ctx, shareIndexes); err != nil {
		return fmt.Errorf("failed to create share indexes: %w", err)
	}

	starIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "entry_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	if _, err := m.Collection("stars").Indexes().CreateMany(ctx, starIndexes); err != nil {
		return fmt.Errorf("failed to create star indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := m.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	return nil
}

// BaseRepository provides common repository functionality
type BaseRepository struct {
	collection *mongo.Collection
	mongodb    *MongoDB
	notFound   *pkg.AppError
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(mongodb *MongoDB, collectionName string, notFound *pkg.AppError) *BaseRepository {
	return &BaseRepository{
		collection: mongodb.Collection(collectionName),
		mongodb:    mongodb,
		notFound:   notFound,
	}
}

// Create inserts a document
func (r *BaseRepository) Create(ctx context.Context, document interface{}) error {
	_, err := r.collection.InsertOne(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// Update updates the documents matching filter
func (r *BaseRepository) Update(ctx context.Context, filter bson.M, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	update := bson.M{"$set": updates}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	if result.MatchedCount == 0 {
		return r.notFound
	}

	return nil
}

// Delete deletes a document
func (r *BaseRepository) Delete(ctx context.Context, filter bson.M) error {
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if result.DeletedCount == 0 {
		return r.notFound
	}

	return nil
}

// SoftDelete performs soft delete
func (r *BaseRepository) SoftDelete(ctx context.Context, filter bson.M) error {
	updates := map[string]interface{}{
		"deleted_at": time.Now(),
	}
	return r.Update(ctx, filter, updates)
}

// List retrieves documents matching filter with pagination and sort
func (r *BaseRepository) List(ctx context.Context, filter bson.M, sort bson.D, params *pkg.PaginationParams, results interface{}) (int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	opts := options.Find()
	opts.SetSkip(int64(params.GetOffset()))
	opts.SetLimit(int64(params.Limit))
	opts.SetSort(sort)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to find documents: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, results); err != nil {
		return 0, fmt.Errorf("failed to decode documents: %w", err)
	}

	return total, nil
}

// FindAll retrieves all documents matching filter with an optional sort
func (r *BaseRepository) FindAll(ctx context.Context, filter bson.M, sort bson.D, results interface{}) error {
	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to find documents: %w", err)
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, results); err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}

	return nil
}

// objectIDIn builds an $in filter value from ids
func objectIDIn(ids []primitive.ObjectID) bson.M {
	return bson.M{"$in": ids}
}

// NewRepositories creates all repository instances
func NewRepositories(mongodb *MongoDB) *Repository {
	return &Repository{
		Entry: NewEntryRepository(mongodb),
		Share: NewShareRepository(mongodb),
		Star:  NewStarRepository(mongodb),
		User:  NewUserRepository(mongodb),
	}
}
