package manuscripts

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "manuscripts"

var (
	ErrNotFound = errors.New("manuscript not found")
	ErrConflict = errors.New("manuscript was modified concurrently")
)

// Repository persists manuscripts
type Repository interface {
	Create(ctx context.Context, m *Manuscript) error
	Get(ctx context.Context, id string) (*Manuscript, error)
	List(ctx context.Context, filter *ListFilter) ([]*Manuscript, int64, error)
	// Update replaces the stored manuscript if its version still equals
	// expectedVersion, and bumps the version.
	Update(ctx context.Context, m *Manuscript, expectedVersion int) error
	Delete(ctx context.Context, id string) error
	CountByState(ctx context.Context) (map[State]int64, error)
}

type mongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over the manuscripts collection
func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the indexes listing relies on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "author_email", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create manuscript indexes: %w", err)
	}
	return nil
}

func (r *mongoRepository) Create(ctx context.Context, m *Manuscript) error {
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to insert manuscript: %w", err)
	}
	return nil
}

func (r *mongoRepository) Get(ctx context.Context, id string) (*Manuscript, error) {
	var m Manuscript
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manuscript: %w", err)
	}
	return &m, nil
}

func (r *mongoRepository) List(ctx context.Context, filter *ListFilter) ([]*Manuscript, int64, error) {
	query := bson.M{}
	if filter.State != nil {
		query["state"] = *filter.State
	}
	if filter.AuthorEmail != nil {
		query["author_email"] = *filter.AuthorEmail
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count manuscripts: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.PageSize > 0 {
		opts.SetSkip(int64((filter.Page - 1) * filter.PageSize)).SetLimit(int64(filter.PageSize))
	}
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list manuscripts: %w", err)
	}
	defer cursor.Close(ctx)

	out := []*Manuscript{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("failed to decode manuscripts: %w", err)
	}
	return out, total, nil
}

func (r *mongoRepository) Update(ctx context.Context, m *Manuscript, expectedVersion int) error {
	m.Version = expectedVersion + 1
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": m.ID, "version": expectedVersion}, m)
	if err != nil {
		m.Version = expectedVersion
		return fmt.Errorf("failed to update manuscript: %w", err)
	}
	if res.MatchedCount == 0 {
		m.Version = expectedVersion
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": m.ID})
		if err != nil {
			return fmt.Errorf("failed to update manuscript: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, m.ID)
		}
		return fmt.Errorf("%w: %s", ErrConflict, m.ID)
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete manuscript: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *mongoRepository) CountByState(ctx context.Context) (map[State]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$state"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate manuscripts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		State State `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode state counts: %w", err)
	}

	counts := make(map[State]int64, len(rows))
	for _, row := range rows {
		counts[row.State] = row.Count
	}
	return counts, nil
}
