package security

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const collectionName = "security"

// Store loads feature protection records
type Store interface {
	Load(ctx context.Context) ([]FeatureRecord, error)
}

type mongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore reads records from the security collection
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{coll: db.Collection(collectionName)}
}

func (s *mongoStore) Load(ctx context.Context) ([]FeatureRecord, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to load security records: %w", err)
	}
	defer cursor.Close(ctx)

	var out []FeatureRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode security records: %w", err)
	}
	return out, nil
}
