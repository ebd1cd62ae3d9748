package texts

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "texts"

// Repository persists journal pages
type Repository interface {
	Create(ctx context.Context, t *Text) error
	Get(ctx context.Context, key string) (*Text, error)
	List(ctx context.Context) ([]*Text, error)
	Update(ctx context.Context, t *Text) error
	Delete(ctx context.Context, key string) error
	Count(ctx context.Context) (int64, error)
}

type mongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over the texts collection
func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(collectionName)}
}

func (r *mongoRepository) Create(ctx context.Context, t *Text) error {
	_, err := r.coll.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, t.Key)
	}
	if err != nil {
		return fmt.Errorf("failed to insert text: %w", err)
	}
	return nil
}

func (r *mongoRepository) Get(ctx context.Context, key string) (*Text, error) {
	var t Text
	err := r.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch text: %w", err)
	}
	return &t, nil
}

func (r *mongoRepository) List(ctx context.Context) ([]*Text, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list texts: %w", err)
	}
	defer cursor.Close(ctx)

	out := []*Text{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode texts: %w", err)
	}
	return out, nil
}

func (r *mongoRepository) Update(ctx context.Context, t *Text) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": t.Key}, t)
	if err != nil {
		return fmt.Errorf("failed to update text: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, t.Key)
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, key string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("failed to delete text: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

func (r *mongoRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count texts: %w", err)
	}
	return n, nil
}
