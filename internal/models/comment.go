package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CommentTypeText    = "TEXT"
	CommentTypeGIF     = "GIF"
	CommentTypeSticker = "STICKER"

	// CommentKindReply marks a comment whose cmt_owner is another comment.
	CommentKindReply = "REPLY"
)

// Mention references a user tagged in a comment.
type Mention struct {
	UserID string `json:"user_id" bson:"user_id" validate:"required,objectid"`
	Name   string `json:"name,omitempty" bson:"name,omitempty"`
}

// Comment is a comment on a content item, or a reply to another comment.
type Comment struct {
	ID primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	// Type is the kind tag of the owning content (CITIZEN, SUBTOPIC, ...) or REPLY.
	Type        string               `json:"type" bson:"type"`
	CmtOwner    string               `json:"cmt_owner" bson:"cmt_owner"`
	Commentor   primitive.ObjectID   `json:"commentor" bson:"commentor"`
	CommentType string               `json:"comment_type" bson:"comment_type"`
	Message     string               `json:"message" bson:"message"`
	Mentions    []Mention            `json:"mentions" bson:"mentions"`
	Likes       []primitive.ObjectID `json:"likes" bson:"likes"`
	Replies     []primitive.ObjectID `json:"replies" bson:"replies"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// MentionedUserIDs returns the distinct mentioned user ids.
func (c *Comment) MentionedUserIDs() []string {
	seen := make(map[string]struct{}, len(c.Mentions))
	ids := make([]string, 0, len(c.Mentions))
	for _, m := range c.Mentions {
		if _, ok := seen[m.UserID]; ok || m.UserID == "" {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
	}
	return ids
}

// CommentView is a comment with the commentor populated.
type CommentView struct {
	Comment
	Commentor *UserSummary `json:"commentor"`
}

type CreateCommentRequest struct {
	CommentType string    `json:"comment_type" validate:"omitempty,oneof=TEXT GIF STICKER"`
	Message     string    `json:"message" validate:"required,min=1,max=2000"`
	Mentions    []Mention `json:"mentions" validate:"omitempty,dive"`
}
