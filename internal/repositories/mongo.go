package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidID is returned for ids that are not valid ObjectIDs.
	ErrInvalidID = errors.New("invalid id")
)

func parseID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return objID, nil
}

// newestFirst is the order of every listing.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// paginate runs filter sorted newest first and returns one page plus the
// total number of matching documents.
func paginate[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, page, limit int) ([]T, int64, error) {
	if page < 1 {
		page = 1
	}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(newestFirst).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err = cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// paginateBySize pages through filter ordered by the length of the array
// field, largest first, newest first among equals.
func paginateBySize[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, field string, page, limit int) ([]T, int64, error) {
	if page < 1 {
		page = 1
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.M{
			"_size": bson.M{"$size": bson.M{"$ifNull": bson.A{"$" + field, bson.A{}}}},
		}}},
		{{Key: "$facet", Value: bson.M{
			"items": bson.A{
				bson.M{"$sort": bson.D{{Key: "_size", Value: -1}, {Key: "createdAt", Value: -1}}},
				bson.M{"$skip": int64((page - 1) * limit)},
				bson.M{"$limit": int64(limit)},
			},
			"total": bson.A{bson.M{"$count": "n"}},
		}}},
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var facets []struct {
		Items []T `bson:"items"`
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
	}
	if err = cursor.All(ctx, &facets); err != nil {
		return nil, 0, err
	}

	items := []T{}
	var total int64
	if len(facets) > 0 {
		if facets[0].Items != nil {
			items = facets[0].Items
		}
		if len(facets[0].Total) > 0 {
			total = facets[0].Total[0].N
		}
	}
	return items, total, nil
}

// findAll returns up to limit documents matching filter, newest first.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, limit int, opts ...*options.FindOptions) ([]T, error) {
	findOptions := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	cursor, err := coll.Find(ctx, filter, append([]*options.FindOptions{findOptions}, opts...)...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []T{}
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// containsText matches query anywhere in a field, ignoring case.
func containsText(query string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func emptyIfNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
