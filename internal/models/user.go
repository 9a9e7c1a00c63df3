package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleNormal = "NORMAL"
	RoleAdmin  = "ADMIN"
)

// Connectivity status reported by a client device.
const (
	StatusActive     = "active"
	StatusBackground = "background"
	StatusInactive   = "inactive"
)

// PlayerID is a push gateway device registration and its last reported state.
type PlayerID struct {
	PlayerID string `json:"playerId" bson:"playerId"`
	Status   string `json:"status" bson:"status"`
}

type User struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Email    string             `json:"email" bson:"email"`
	Password string             `json:"-" bson:"password"`
	Name     string             `json:"name" bson:"name"`

	Country     string `json:"country,omitempty" bson:"country,omitempty"`
	City        string `json:"city,omitempty" bson:"city,omitempty"`
	Job         string `json:"job,omitempty" bson:"job,omitempty"`
	Dob         string `json:"dob,omitempty" bson:"dob,omitempty"`
	Phno        string `json:"phno,omitempty" bson:"phno,omitempty"`
	Gender      string `json:"gender,omitempty" bson:"gender,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	Profile      *primitive.ObjectID `json:"profile,omitempty" bson:"profile,omitempty"`
	PlayerIDs    []PlayerID          `json:"-" bson:"playerIds"`
	IsUserActive bool                `json:"isUserActive" bson:"isUserActive"`
	FirebaseUID  string              `json:"-" bson:"firebaseUid,omitempty"`

	FollowerLists  []primitive.ObjectID `json:"followerLists" bson:"followerLists"`
	FollowingLists []primitive.ObjectID `json:"followingLists" bson:"followingLists"`
	NotiLists      []primitive.ObjectID `json:"-" bson:"notiLists"`

	Role      string    `json:"role" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// BackgroundPlayerIDs returns registrations whose app is not in the
// foreground. Only these receive push notifications.
func (u *User) BackgroundPlayerIDs() []string {
	ids := make([]string, 0, len(u.PlayerIDs))
	for _, p := range u.PlayerIDs {
		if p.Status == StatusBackground || p.Status == StatusInactive {
			ids = append(ids, p.PlayerID)
		}
	}
	return ids
}

// IsFollowing reports whether u follows other.
func (u *User) IsFollowing(other primitive.ObjectID) bool {
	for _, id := range u.FollowingLists {
		if id == other {
			return true
		}
	}
	return false
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Role: u.Role}
}

// UserSummary is the populated form of a user reference.
type UserSummary struct {
	ID   primitive.ObjectID `json:"_id" bson:"_id"`
	Name string             `json:"name" bson:"name"`
	Role string             `json:"role" bson:"role"`
}

type SignupRequest struct {
	Name     string `json:"name" form:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
	Country  string `json:"country" form:"country"`
	City     string `json:"city" form:"city"`
	Gender   string `json:"gender" form:"gender"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	PlayerID string `json:"playerId"`
}

type FirebaseLoginRequest struct {
	IDToken  string `json:"idToken" validate:"required"`
	PlayerID string `json:"playerId"`
}

type LogoutRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
}

type AppStateRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=active background inactive"`
}

// JwtCustomClaims are the claims of tokens issued at login.
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
