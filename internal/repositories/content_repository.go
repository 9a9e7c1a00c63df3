package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kashsbd/awlam-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ContentRepository defines the data operations shared by every content
// collection. Membership changes on likes, dislikes, comments and the event
// and topic user sets are single atomic updates.
type ContentRepository interface {
	Create(ctx context.Context, item *models.ContentItem) error
	FindByID(ctx context.Context, id string) (*models.ContentItem, error)
	Paginate(ctx context.Context, filter bson.M, page, limit int) ([]models.ContentItem, int64, error)
	PaginatePopular(ctx context.Context, filter bson.M, page, limit int) ([]models.ContentItem, int64, error)
	FindAll(ctx context.Context, filter bson.M, limit int) ([]models.ContentItem, error)
	ApplyReaction(ctx context.Context, id string, userID primitive.ObjectID, reaction models.Reaction) (*models.ContentItem, bool, error)
	AppendComment(ctx context.Context, id string, commentID primitive.ObjectID) (*models.ContentItem, error)
	AddToSet(ctx context.Context, id, field string, userID primitive.ObjectID) (*models.ContentItem, bool, error)
	RemoveFromSet(ctx context.Context, id, field string, userID primitive.ObjectID) (*models.ContentItem, bool, error)
	Approve(ctx context.Context, id string, adminID primitive.ObjectID) (*models.ContentItem, error)
}

// MongoContentRepository implements ContentRepository for one collection.
type MongoContentRepository struct {
	collection *mongo.Collection
}

// NewMongoContentRepository creates a repository over the named collection.
func NewMongoContentRepository(db *mongo.Database, collection string) *MongoContentRepository {
	return &MongoContentRepository{collection: db.Collection(collection)}
}

// ContentRegistry hands out content repositories by collection name.
type ContentRegistry struct {
	db *mongo.Database
}

func NewContentRegistry(db *mongo.Database) *ContentRegistry {
	return &ContentRegistry{db: db}
}

// For returns the repository of collection.
func (r *ContentRegistry) For(collection string) ContentRepository {
	return NewMongoContentRepository(r.db, collection)
}

// Create inserts item. Set fields are initialized to empty arrays so later
// $addToSet updates never hit a null field.
func (r *MongoContentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	now := time.Now()
	item.ID = primitive.NewObjectID()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.Likes = emptyIfNil(item.Likes)
	item.Dislikes = emptyIfNil(item.Dislikes)
	item.Comments = emptyIfNil(item.Comments)
	item.Media = emptyIfNil(item.Media)

	_, err := r.collection.InsertOne(ctx, item)
	return err
}

// FindByID retrieves an item by id
func (r *MongoContentRepository) FindByID(ctx context.Context, id string) (*models.ContentItem, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.ContentItem](ctx, r.collection, bson.M{"_id": objID})
}

// Paginate lists items matching filter, newest first.
func (r *MongoContentRepository) Paginate(ctx context.Context, filter bson.M, page, limit int) ([]models.ContentItem, int64, error) {
	return paginate[models.ContentItem](ctx, r.collection, filter, page, limit)
}

// PaginatePopular lists items matching filter, most liked first.
func (r *MongoContentRepository) PaginatePopular(ctx context.Context, filter bson.M, page, limit int) ([]models.ContentItem, int64, error) {
	return paginateBySize[models.ContentItem](ctx, r.collection, filter, "likes", page, limit)
}

// FindAll returns up to limit items matching filter, newest first.
func (r *MongoContentRepository) FindAll(ctx context.Context, filter bson.M, limit int) ([]models.ContentItem, error) {
	return findAll[models.ContentItem](ctx, r.collection, filter, limit)
}

// ApplyReaction moves userID between the likes and dislikes sets in one
// update. The boolean result is false when the reaction changed nothing,
// in which case the current item is returned.
func (r *MongoContentRepository) ApplyReaction(ctx context.Context, id string, userID primitive.ObjectID, reaction models.Reaction) (*models.ContentItem, bool, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, false, err
	}

	var filter, update bson.M
	now := time.Now()
	switch reaction {
	case models.ReactionLike:
		filter = bson.M{"_id": objID, "likes": bson.M{"$ne": userID}}
		update = bson.M{
			"$pull":     bson.M{"dislikes": userID},
			"$addToSet": bson.M{"likes": userID},
			"$set":      bson.M{"updatedAt": now},
		}
	case models.ReactionDislike:
		filter = bson.M{"_id": objID, "dislikes": bson.M{"$ne": userID}}
		update = bson.M{
			"$pull":     bson.M{"likes": userID},
			"$addToSet": bson.M{"dislikes": userID},
			"$set":      bson.M{"updatedAt": now},
		}
	case models.ReactionUnlike:
		filter = bson.M{"_id": objID, "likes": userID}
		update = bson.M{"$pull": bson.M{"likes": userID}, "$set": bson.M{"updatedAt": now}}
	case models.ReactionUndislike:
		filter = bson.M{"_id": objID, "dislikes": userID}
		update = bson.M{"$pull": bson.M{"dislikes": userID}, "$set": bson.M{"updatedAt": now}}
	default:
		return nil, false, fmt.Errorf("unknown reaction %q", reaction)
	}

	return r.updateOrCurrent(ctx, objID, filter, update)
}

// AppendComment pushes commentID onto the item's comments.
func (r *MongoContentRepository) AppendComment(ctx context.Context, id string, commentID primitive.ObjectID) (*models.ContentItem, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{
		"$push": bson.M{"comments": commentID},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": objID}, update)
}

// AddToSet adds userID to a user-id array field such as "going" or
// "subscribed_users". The boolean result is false when already present.
func (r *MongoContentRepository) AddToSet(ctx context.Context, id, field string, userID primitive.ObjectID) (*models.ContentItem, bool, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, false, err
	}

	filter := bson.M{"_id": objID, field: bson.M{"$ne": userID}}
	update := bson.M{
		"$addToSet": bson.M{field: userID},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	return r.updateOrCurrent(ctx, objID, filter, update)
}

// RemoveFromSet removes userID from a user-id array field. The boolean
// result is false when it was not present.
func (r *MongoContentRepository) RemoveFromSet(ctx context.Context, id, field string, userID primitive.ObjectID) (*models.ContentItem, bool, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, false, err
	}

	filter := bson.M{"_id": objID, field: userID}
	update := bson.M{
		"$pull": bson.M{field: userID},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	return r.updateOrCurrent(ctx, objID, filter, update)
}

// Approve marks the item approved by adminID and moves it to the top of the
// listing by resetting createdAt.
func (r *MongoContentRepository) Approve(ctx context.Context, id string, adminID primitive.ObjectID) (*models.ContentItem, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	update := bson.M{"$set": bson.M{
		"isApproved":   true,
		"approvedBy":   adminID,
		"approvedDate": now,
		"createdAt":    now,
		"updatedAt":    now,
	}}
	return r.findOneAndUpdate(ctx, bson.M{"_id": objID}, update)
}

func (r *MongoContentRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.ContentItem, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var item models.ContentItem
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// updateOrCurrent applies a guarded update. When the guard does not match,
// the document is re-read to tell a no-op from a missing item.
func (r *MongoContentRepository) updateOrCurrent(ctx context.Context, objID primitive.ObjectID, filter, update bson.M) (*models.ContentItem, bool, error) {
	item, err := r.findOneAndUpdate(ctx, filter, update)
	if err == nil {
		return item, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	current, err := findOne[models.ContentItem](ctx, r.collection, bson.M{"_id": objID})
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}
