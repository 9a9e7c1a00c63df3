package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media describes an uploaded photo or video stored in the object store.
type Media struct {
	ID primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	// Type is PROFILE or the owning content tag (CITIZEN, CITIZEN-SUBPOST, ...).
	Type         string    `json:"type" bson:"type"`
	ContentType  string    `json:"contentType" bson:"contentType"`
	OriginalName string    `json:"originalName" bson:"originalName"`
	Size         int64     `json:"size" bson:"size"`
	ObjectKey    string    `json:"-" bson:"objectKey"`
	ThumbnailKey string    `json:"-" bson:"thumbnailKey,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

func (m *Media) IsVideo() bool {
	return strings.HasPrefix(m.ContentType, "video/")
}

func (m *Media) Summary() *MediaSummary {
	return &MediaSummary{ID: m.ID, ContentType: m.ContentType}
}

// MediaSummary is the populated media reference of a notification.
type MediaSummary struct {
	ID          primitive.ObjectID `json:"_id"`
	ContentType string             `json:"contentType"`
}

func (m *MediaSummary) IsVideo() bool {
	return m != nil && strings.HasPrefix(m.ContentType, "video/")
}
