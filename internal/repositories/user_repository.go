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

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
	FindSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error)
	LinkFirebaseUID(ctx context.Context, userID primitive.ObjectID, uid string) error
	SetProfile(ctx context.Context, userID, mediaID primitive.ObjectID) error
	PaginateByIDs(ctx context.Context, ids []primitive.ObjectID, page, limit int) ([]models.UserSummary, int64, error)
	PaginateActiveByIDs(ctx context.Context, ids []primitive.ObjectID, page, limit int) ([]models.UserSummary, int64, error)
	SearchNames(ctx context.Context, ids []primitive.ObjectID, query string) ([]models.UserSummary, error)
	Suggestions(ctx context.Context, user *models.User, page, limit int) ([]models.UserSummary, int64, error)

	AppendPendingNotification(ctx context.Context, userID, notificationID primitive.ObjectID) error
	RemovePendingNotification(ctx context.Context, userID, notificationID primitive.ObjectID) error

	UpsertPlayerID(ctx context.Context, userID primitive.ObjectID, playerID, status string) error
	SetPlayerStatus(ctx context.Context, userID primitive.ObjectID, playerID, status string) error
	RemovePlayerID(ctx context.Context, userID primitive.ObjectID, playerID string) error

	Follow(ctx context.Context, followerID, followeeID primitive.ObjectID) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID primitive.ObjectID) (bool, error)
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// Create inserts a new user
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsUserActive = true
	user.FollowerLists = emptyIfNil(user.FollowerLists)
	user.FollowingLists = emptyIfNil(user.FollowingLists)
	user.NotiLists = emptyIfNil(user.NotiLists)
	if user.PlayerIDs == nil {
		user.PlayerIDs = []models.PlayerID{}
	}
	if user.Role == "" {
		user.Role = models.RoleNormal
	}

	_, err := r.collection.InsertOne(ctx, user)
	return err
}

// FindByID retrieves a user by id
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return findOne[models.User](ctx, r.collection, bson.M{"_id": objID})
}

// FindByEmail retrieves a user by email
func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.collection, bson.M{"email": email})
}

// FindByFirebaseUID retrieves a user by Firebase UID
func (r *MongoUserRepository) FindByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return findOne[models.User](ctx, r.collection, bson.M{"firebaseUid": uid})
}

// FindSummaries returns name and role of the given users. Unknown ids are
// skipped.
func (r *MongoUserRepository) FindSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "role": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.UserSummary{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// PaginateByIDs pages through the summaries of ids, newest account first.
func (r *MongoUserRepository) PaginateByIDs(ctx context.Context, ids []primitive.ObjectID, page, limit int) ([]models.UserSummary, int64, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, 0, nil
	}
	return paginate[models.UserSummary](ctx, r.collection, bson.M{"_id": bson.M{"$in": ids}}, page, limit)
}

// PaginateActiveByIDs is PaginateByIDs restricted to active accounts.
func (r *MongoUserRepository) PaginateActiveByIDs(ctx context.Context, ids []primitive.ObjectID, page, limit int) ([]models.UserSummary, int64, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, 0, nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}, "isUserActive": true}
	return paginate[models.UserSummary](ctx, r.collection, filter, page, limit)
}

// maxNameMatches bounds a name search over a user's relations.
const maxNameMatches = 50

// SearchNames returns the active users among ids whose name contains query.
// An empty query matches every one of them.
func (r *MongoUserRepository) SearchNames(ctx context.Context, ids []primitive.ObjectID, query string) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}, "isUserActive": true}
	if query != "" {
		filter["name"] = containsText(query)
	}
	return findAll[models.UserSummary](ctx, r.collection, filter, maxNameMatches)
}

// SuggestionThreshold is the smallest friends-of-friends pool worth
// suggesting. Below it the most followed users are suggested instead.
const SuggestionThreshold = 20

// Suggestions pages through people user may want to follow: the followers
// and followings of everyone user is related to, or, when that pool is
// smaller than SuggestionThreshold, the most followed users user does not
// follow yet.
func (r *MongoUserRepository) Suggestions(ctx context.Context, user *models.User, page, limit int) ([]models.UserSummary, int64, error) {
	related := distinctIDs(user.FollowerLists, user.FollowingLists)
	if len(related) > 0 {
		opts := options.Find().SetProjection(bson.M{"followerLists": 1, "followingLists": 1})
		relations, err := findAll[models.User](ctx, r.collection, bson.M{"_id": bson.M{"$in": related}}, len(related), opts)
		if err != nil {
			return nil, 0, err
		}
		if pool := friendsOfFriends(user.ID, relations); len(pool) >= SuggestionThreshold {
			return r.PaginateActiveByIDs(ctx, pool, page, limit)
		}
	}

	exclude := append([]primitive.ObjectID{user.ID}, user.FollowingLists...)
	filter := bson.M{"_id": bson.M{"$nin": exclude}, "isUserActive": true}
	return paginateBySize[models.UserSummary](ctx, r.collection, filter, "followerLists", page, limit)
}

// friendsOfFriends collects the followers and followings of relations,
// leaving out self.
func friendsOfFriends(self primitive.ObjectID, relations []models.User) []primitive.ObjectID {
	lists := make([][]primitive.ObjectID, 0, 2*len(relations))
	for _, u := range relations {
		lists = append(lists, u.FollowerLists, u.FollowingLists)
	}
	pool := distinctIDs(lists...)
	out := pool[:0]
	for _, id := range pool {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

func distinctIDs(lists ...[]primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{})
	out := []primitive.ObjectID{}
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// LinkFirebaseUID attaches a Firebase account to an existing user.
func (r *MongoUserRepository) LinkFirebaseUID(ctx context.Context, userID primitive.ObjectID, uid string) error {
	return r.updateByID(ctx, userID, bson.M{"$set": bson.M{"firebaseUid": uid, "updatedAt": time.Now()}})
}

// SetProfile sets the profile picture media of a user.
func (r *MongoUserRepository) SetProfile(ctx context.Context, userID, mediaID primitive.ObjectID) error {
	return r.updateByID(ctx, userID, bson.M{"$set": bson.M{"profile": mediaID, "updatedAt": time.Now()}})
}

// AppendPendingNotification queues a notification for client delivery.
func (r *MongoUserRepository) AppendPendingNotification(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	return r.updateByID(ctx, userID, bson.M{"$push": bson.M{"notiLists": notificationID}})
}

// RemovePendingNotification drops a notification the client has saved.
func (r *MongoUserRepository) RemovePendingNotification(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	return r.updateByID(ctx, userID, bson.M{"$pull": bson.M{"notiLists": notificationID}})
}

// UpsertPlayerID sets the status of a device registration, adding it when
// the user does not have it yet.
func (r *MongoUserRepository) UpsertPlayerID(ctx context.Context, userID primitive.ObjectID, playerID, status string) error {
	err := r.SetPlayerStatus(ctx, userID, playerID, status)
	if err != ErrNotFound {
		return err
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": userID, "playerIds.playerId": bson.M{"$ne": playerID}},
		bson.M{"$push": bson.M{"playerIds": models.PlayerID{PlayerID: playerID, Status: status}}},
	)
	return err
}

// SetPlayerStatus updates the connectivity status of one registration.
func (r *MongoUserRepository) SetPlayerStatus(ctx context.Context, userID primitive.ObjectID, playerID, status string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID, "playerIds.playerId": playerID},
		bson.M{"$set": bson.M{"playerIds.$.status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemovePlayerID forgets a device registration.
func (r *MongoUserRepository) RemovePlayerID(ctx context.Context, userID primitive.ObjectID, playerID string) error {
	return r.updateByID(ctx, userID, bson.M{"$pull": bson.M{"playerIds": bson.M{"playerId": playerID}}})
}

// Follow records that followerID follows followeeID on both users. It
// returns false when the relation already existed.
func (r *MongoUserRepository) Follow(ctx context.Context, followerID, followeeID primitive.ObjectID) (bool, error) {
	if _, err := findOne[models.User](ctx, r.collection, bson.M{"_id": followeeID}); err != nil {
		return false, err
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": followerID, "followingLists": bson.M{"$ne": followeeID}},
		bson.M{"$addToSet": bson.M{"followingLists": followeeID}},
	)
	if err != nil {
		return false, err
	}
	if err := r.updateByID(ctx, followeeID, bson.M{"$addToSet": bson.M{"followerLists": followerID}}); err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Unfollow removes the relation from both users. It returns false when
// there was nothing to remove.
func (r *MongoUserRepository) Unfollow(ctx context.Context, followerID, followeeID primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": followerID, "followingLists": followeeID},
		bson.M{"$pull": bson.M{"followingLists": followeeID}},
	)
	if err != nil {
		return false, err
	}
	if err := r.updateByID(ctx, followeeID, bson.M{"$pull": bson.M{"followerLists": followerID}}); err != nil && err != ErrNotFound {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoUserRepository) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
