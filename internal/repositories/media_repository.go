package repositories

import (
	"context"
	"time"

	"github.com/kashsbd/awlam-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MediaRepository stores metadata of uploaded objects.
type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) error
	FindByID(ctx context.Context, id string) (*models.Media, error)
}

type MongoMediaRepository struct {
	collection *mongo.Collection
}

func NewMongoMediaRepository(db *mongo.Database) *MongoMediaRepository {
	return &MongoMediaRepository{collection: db.Collection("media")}
}

// Create inserts media. The id may be preset so the object key can embed it.
func (r *MongoMediaRepository) Create(ctx context.Context, media *models.Media) error {
	if media.ID.IsZero() {
		media.ID = primitive.NewObjectID()
	}
	media.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, media)
	return err
}

func (r *MongoMediaRepository) FindByID(ctx context.Context, id string) (*models.Media, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.Media](ctx, r.collection, bson.M{"_id": objID})
}
