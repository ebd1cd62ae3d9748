package people

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

const collectionName = "people"

// Repository persists people keyed by email
type Repository interface {
	Create(ctx context.Context, p *Person) error
	Get(ctx context.Context, email string) (*Person, error)
	List(ctx context.Context) ([]*Person, error)
	Update(ctx context.Context, p *Person) error
	Delete(ctx context.Context, email string) error
	AddRole(ctx context.Context, email string, code roles.Code) error
	RemoveRole(ctx context.Context, email string, code roles.Code) error
}

type mongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over the people collection
func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(collectionName)}
}

func (r *mongoRepository) Create(ctx context.Context, p *Person) error {
	_, err := r.coll.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, p.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}
	return nil
}

func (r *mongoRepository) Get(ctx context.Context, email string) (*Person, error) {
	var p Person
	err := r.coll.FindOne(ctx, bson.M{"_id": email}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch person: %w", err)
	}
	return &p, nil
}

func (r *mongoRepository) List(ctx context.Context) ([]*Person, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer cursor.Close(ctx)

	out := []*Person{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode people: %w", err)
	}
	return out, nil
}

func (r *mongoRepository) Update(ctx context.Context, p *Person) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.Email}, p)
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p.Email)
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, email string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": email})
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	return nil
}

func (r *mongoRepository) AddRole(ctx context.Context, email string, code roles.Code) error {
	return r.updateRoles(ctx, email, bson.M{
		"$addToSet": bson.M{"roles": code},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

func (r *mongoRepository) RemoveRole(ctx context.Context, email string, code roles.Code) error {
	return r.updateRoles(ctx, email, bson.M{
		"$pull": bson.M{"roles": code},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (r *mongoRepository) updateRoles(ctx context.Context, email string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": email}, update)
	if err != nil {
		return fmt.Errorf("failed to update roles: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	return nil
}
