package repositories

import (
	"context"
	"time"

	"github.com/kashsbd/awlam-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	Paginate(ctx context.Context, kind, owner string, page, limit int) ([]models.Comment, int64, error)
	Like(ctx context.Context, id string, userID primitive.ObjectID) (bool, error)
	Unlike(ctx context.Context, id string, userID primitive.ObjectID) (bool, error)
	AppendReply(ctx context.Context, parentID string, replyID primitive.ObjectID) error
}

// MongoCommentRepository implements CommentRepository for MongoDB
type MongoCommentRepository struct {
	collection *mongo.Collection
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{collection: db.Collection("comments")}
}

// Create inserts a new comment
func (r *MongoCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	now := time.Now()
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	comment.Likes = emptyIfNil(comment.Likes)
	comment.Replies = emptyIfNil(comment.Replies)
	if comment.Mentions == nil {
		comment.Mentions = []models.Mention{}
	}
	if comment.CommentType == "" {
		comment.CommentType = models.CommentTypeText
	}

	_, err := r.collection.InsertOne(ctx, comment)
	return err
}

// FindByID retrieves a comment by id
func (r *MongoCommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.Comment](ctx, r.collection, bson.M{"_id": objID})
}

// Paginate lists the comments of kind owned by owner, newest first.
func (r *MongoCommentRepository) Paginate(ctx context.Context, kind, owner string, page, limit int) ([]models.Comment, int64, error) {
	filter := bson.M{"type": kind, "cmt_owner": owner}
	return paginate[models.Comment](ctx, r.collection, filter, page, limit)
}

// Like adds userID to the comment likes. It returns false when the user
// already liked it.
func (r *MongoCommentRepository) Like(ctx context.Context, id string, userID primitive.ObjectID) (bool, error) {
	objID, err := parseID(id)
	if err != nil {
		return false, err
	}
	return r.guardedUpdate(ctx, objID,
		bson.M{"_id": objID, "likes": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
}

// Unlike removes userID from the comment likes. It returns false when the
// user had not liked it.
func (r *MongoCommentRepository) Unlike(ctx context.Context, id string, userID primitive.ObjectID) (bool, error) {
	objID, err := parseID(id)
	if err != nil {
		return false, err
	}
	return r.guardedUpdate(ctx, objID,
		bson.M{"_id": objID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
}

// AppendReply pushes replyID onto the parent comment's replies.
func (r *MongoCommentRepository) AppendReply(ctx context.Context, parentID string, replyID primitive.ObjectID) error {
	objID, err := parseID(parentID)
	if err != nil {
		return err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$push": bson.M{"replies": replyID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCommentRepository) guardedUpdate(ctx context.Context, objID primitive.ObjectID, filter, update bson.M) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	if _, err := findOne[models.Comment](ctx, r.collection, bson.M{"_id": objID}); err != nil {
		return false, err
	}
	return false, nil
}
