package repositories

import (
	"context"
	"time"

	"github.com/kashsbd/awlam-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	FindUnsaved(ctx context.Context, ids []primitive.ObjectID, limit int) ([]models.Notification, error)
	MarkSaved(ctx context.Context, id string) (*models.Notification, error)
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// Create inserts a notification record
func (r *MongoNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	now := time.Now()
	n.ID = primitive.NewObjectID()
	n.CreatedAt = now
	n.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, n)
	return err
}

// FindByID retrieves a notification by id
func (r *MongoNotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.Notification](ctx, r.collection, bson.M{"_id": objID})
}

// FindUnsaved returns at most limit notifications among ids that the client
// has not acknowledged, newest first.
func (r *MongoNotificationRepository) FindUnsaved(ctx context.Context, ids []primitive.ObjectID, limit int) ([]models.Notification, error) {
	if len(ids) == 0 {
		return []models.Notification{}, nil
	}

	filter := bson.M{"_id": bson.M{"$in": ids}, "isSavedInClient": false}
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notis := []models.Notification{}
	if err = cursor.All(ctx, &notis); err != nil {
		return nil, err
	}
	return notis, nil
}

// MarkSaved flips isSavedInClient and returns the updated record.
func (r *MongoNotificationRepository) MarkSaved(ctx context.Context, id string) (*models.Notification, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{"isSavedInClient": true, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n models.Notification
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&n); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}
