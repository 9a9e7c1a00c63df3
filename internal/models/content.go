package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is the place a citizen report or event refers to.
type Location struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
	Lat     string `json:"lat,omitempty" bson:"lat,omitempty"`
	Lon     string `json:"lon,omitempty" bson:"lon,omitempty"`
}

// ContentItem is any user-authored entry that can be liked, disliked and
// commented on: posts, citizen reports, topics, events, government
// announcements and their sub-posts. Type specific fields are omitted when
// empty.
type ContentItem struct {
	ID primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	// User is the author.
	User primitive.ObjectID `json:"user" bson:"user"`
	// PostOwner is the parent content id of a sub-post.
	PostOwner *primitive.ObjectID `json:"post_owner,omitempty" bson:"post_owner,omitempty"`

	IsAvailable  bool                `json:"isAvailable" bson:"isAvailable"`
	IsPublic     bool                `json:"isPublic" bson:"isPublic"`
	IsApproved   bool                `json:"isApproved" bson:"isApproved"`
	ApprovedBy   *primitive.ObjectID `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	ApprovedDate *time.Time          `json:"approvedDate,omitempty" bson:"approvedDate,omitempty"`

	Media       []primitive.ObjectID `json:"media" bson:"media"`
	Location    *Location            `json:"location,omitempty" bson:"location,omitempty"`
	Description string               `json:"description,omitempty" bson:"description,omitempty"`
	Status      string               `json:"status,omitempty" bson:"status,omitempty"`
	HashTags    []string             `json:"hashTags,omitempty" bson:"hashTags,omitempty"`

	EventName     string               `json:"event_name,omitempty" bson:"event_name,omitempty"`
	StartDateTime *time.Time           `json:"start_date_time,omitempty" bson:"start_date_time,omitempty"`
	EndDateTime   *time.Time           `json:"end_date_time,omitempty" bson:"end_date_time,omitempty"`
	InvitedUsers  []primitive.ObjectID `json:"invited_users,omitempty" bson:"invited_users,omitempty"`
	Interested    []primitive.ObjectID `json:"interested,omitempty" bson:"interested,omitempty"`
	Going         []primitive.ObjectID `json:"going,omitempty" bson:"going,omitempty"`

	PermittedUsers  []primitive.ObjectID `json:"permitted_users,omitempty" bson:"permitted_users,omitempty"`
	SubscribedUsers []primitive.ObjectID `json:"subscribed_users,omitempty" bson:"subscribed_users,omitempty"`

	Likes    []primitive.ObjectID `json:"likes" bson:"likes"`
	Dislikes []primitive.ObjectID `json:"dislikes" bson:"dislikes"`
	Comments []primitive.ObjectID `json:"comments" bson:"comments"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// FirstMedia returns the first attached media id, or nil.
func (c *ContentItem) FirstMedia() *primitive.ObjectID {
	if len(c.Media) == 0 {
		return nil
	}
	id := c.Media[0]
	return &id
}

// IsSubPost reports whether the item hangs off a parent content item.
func (c *ContentItem) IsSubPost() bool {
	return c.PostOwner != nil && !c.PostOwner.IsZero()
}

// ReactionCounts is broadcast on "<type>::reacted".
type ReactionCounts struct {
	ID            primitive.ObjectID `json:"id"`
	LikesCount    int                `json:"likesCount"`
	DislikesCount int                `json:"dislikesCount"`
}

// CommentCount is broadcast on "<type>::commented".
type CommentCount struct {
	ID       primitive.ObjectID `json:"id"`
	CmtCount int                `json:"cmtCount"`
}

// AttendanceCounts is broadcast on "event::reacted" for interest and going.
type AttendanceCounts struct {
	ID         primitive.ObjectID `json:"id"`
	Interested int                `json:"interested"`
	Going      int                `json:"going"`
}

// CreateContentRequest is the multipart form body for new content. Media
// files travel in the "media" form field.
type CreateContentRequest struct {
	Description     string   `form:"description" json:"description" validate:"max=5000"`
	Status          string   `form:"status" json:"status" validate:"max=5000"`
	HashTags        []string `form:"hashTags" json:"hashTags" validate:"omitempty,dive,max=100"`
	IsPublic        *bool    `form:"isPublic" json:"isPublic"`
	LocationName    string   `form:"location_name" json:"location_name"`
	LocationAddress string   `form:"location_address" json:"location_address"`
	Lat             string   `form:"lat" json:"lat"`
	Lon             string   `form:"lon" json:"lon"`
	EventName       string   `form:"event_name" json:"event_name" validate:"max=200"`
	StartDateTime   string   `form:"start_date_time" json:"start_date_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndDateTime     string   `form:"end_date_time" json:"end_date_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	InvitedUsers    []string `form:"invited_users" json:"invited_users" validate:"omitempty,dive,objectid"`
	PermittedUsers  []string `form:"permitted_users" json:"permitted_users" validate:"omitempty,dive,objectid"`
}

// Reactor is one entry of a reactions listing.
type Reactor struct {
	UserSummary
	// Relation is "You", "Unfollow" (caller follows them) or "Follow".
	Relation string `json:"status"`
}

const (
	RelationYou      = "You"
	RelationUnfollow = "Unfollow"
	RelationFollow   = "Follow"
)

// Reaction is a membership change on the likes/dislikes sets.
type Reaction string

const (
	ReactionLike      Reaction = "like"
	ReactionUnlike    Reaction = "unlike"
	ReactionDislike   Reaction = "dislike"
	ReactionUndislike Reaction = "undislike"
)

// Adds reports whether the reaction enters LIKED or DISLIKED.
func (r Reaction) Adds() bool {
	return r == ReactionLike || r == ReactionDislike
}

func (r Reaction) Valid() bool {
	switch r {
	case ReactionLike, ReactionUnlike, ReactionDislike, ReactionUndislike:
		return true
	}
	return false
}
