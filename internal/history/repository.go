package history

import (
	"context"
	"fmt"

	"github.com/gogotex/gogotex/backend/auth-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository stores action entries. List returns the user's entries newest
// first together with the total count.
type Repository interface {
	Insert(ctx context.Context, e *models.ActionEntry) error
	List(ctx context.Context, userID string, offset, limit int) ([]models.ActionEntry, int64, error)
}

// MongoRepository implements Repository using the action_history collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("action_history")}
}

// EnsureIndexes creates the (userId, createdAt desc) index used by List.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("action_history index: %w", err)
	}
	return nil
}

func (r *MongoRepository) Insert(ctx context.Context, e *models.ActionEntry) error {
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func (r *MongoRepository) List(ctx context.Context, userID string, offset, limit int) ([]models.ActionEntry, int64, error) {
	filter := bson.M{"userId": userID}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	out := []models.ActionEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
