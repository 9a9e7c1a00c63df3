package search

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kashsbd/awlam-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// document is the indexed form of a content item.
func document(item *models.ContentItem) map[string]interface{} {
	doc := map[string]interface{}{
		"user":       item.User.Hex(),
		"created_at": item.CreatedAt,
	}
	if item.Description != "" {
		doc["description"] = item.Description
	}
	if item.Status != "" {
		doc["status"] = item.Status
	}
	if len(item.HashTags) > 0 {
		doc["hashTags"] = item.HashTags
	}
	if item.EventName != "" {
		doc["event_name"] = item.EventName
	}
	if item.Location != nil && item.Location.Name != "" {
		doc["location"] = map[string]interface{}{"name": item.Location.Name}
	}
	return doc
}

// uniqueIDs keeps the first occurrence of every valid ObjectID.
func uniqueIDs(hits []string) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(hits))
	ids := make([]primitive.ObjectID, 0, len(hits))
	for _, h := range hits {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func responseError(action, status string, body io.Reader) error {
	var errResp map[string]interface{}
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		return fmt.Errorf("error response [%s]", status)
	}
	return fmt.Errorf("error %s: [%s] %v", action, status, errResp["error"])
}
