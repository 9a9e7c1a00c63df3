package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification actions. The stored kind is "<ACTION>-<TYPE TAG>", for example
// LIKE-CITIZEN or COMMENT-SUBTOPIC.
const (
	ActionLike    = "LIKE"
	ActionDislike = "DISLIKE"
	ActionComment = "COMMENT"
	ActionMention = "MENTION"
	ActionApprove = "APPROVE"
	ActionCreate  = "CREATE"
	ActionInvite  = "INVITE"
)

// NotificationKind joins an action and a content type tag.
func NotificationKind(action, tag string) string {
	return action + "-" + tag
}

// Notification is written once per triggering action. Recipients are derived
// at delivery time and are not stored here.
type Notification struct {
	ID              primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	CreatedBy       primitive.ObjectID  `json:"createdBy" bson:"createdBy"`
	Type            string              `json:"type" bson:"type"`
	Media           *primitive.ObjectID `json:"media" bson:"media"`
	DataID          string              `json:"dataId" bson:"dataId"`
	IsSavedInClient bool                `json:"isSavedInClient" bson:"isSavedInClient"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// NotificationView is the populated form sent on "noti::created" and returned
// by the unsaved notifications endpoint.
type NotificationView struct {
	ID              primitive.ObjectID `json:"_id"`
	CreatedBy       *UserSummary       `json:"createdBy"`
	Type            string             `json:"type"`
	Media           *MediaSummary      `json:"media"`
	DataID          string             `json:"dataId"`
	IsSavedInClient bool               `json:"isSavedInClient"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// Populate builds the view from the stored record.
func (n *Notification) Populate(actor *UserSummary, media *MediaSummary) *NotificationView {
	return &NotificationView{
		ID:              n.ID,
		CreatedBy:       actor,
		Type:            n.Type,
		Media:           media,
		DataID:          n.DataID,
		IsSavedInClient: n.IsSavedInClient,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}
