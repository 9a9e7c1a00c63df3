package handlers

import (
	"context"
	"mime/multipart"
	"net/http"

	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/metrics"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// mediaTypeProfile labels uploaded profile pictures.
const mediaTypeProfile = "PROFILE"

// ProfileUploader stores a single uploaded picture.
type ProfileUploader interface {
	Upload(ctx context.Context, mediaType string, file, thumbnail *multipart.FileHeader) (*models.Media, error)
}

// UserIndexer makes user names searchable.
type UserIndexer interface {
	IndexUser(ctx context.Context, user *models.User) error
}

// UserSearcher resolves a name query to user ids.
type UserSearcher interface {
	SearchUserIDs(ctx context.Context, query string) ([]primitive.ObjectID, error)
}

// UserHandler handles HTTP requests related to users, their devices and
// follow relations
type UserHandler struct {
	userRepository repositories.UserRepository
	uploader       ProfileUploader
	search         UserSearcher
	metrics        *metrics.Metrics
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, uploader ProfileUploader) *UserHandler {
	return &UserHandler{userRepository: userRepo, uploader: uploader, metrics: metrics.Get()}
}

// WithSearch enables name search. Without it /users/search answers 503.
func (h *UserHandler) WithSearch(s UserSearcher) *UserHandler {
	h.search = s
	return h
}

// RegisterUserRoutes registers user-related routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/search", h.SearchRelations)
	g.GET("/users/:id/suggestions", h.GetSuggestions)
	g.POST("/users/me/profile_pic", h.UploadProfilePic)
	g.POST("/users/:id/logout", h.Logout)
	g.POST("/users/:id/app-state", h.NotifyAppChange)
	g.POST("/users/:id/follow", h.Follow)
	g.POST("/users/:id/unfollow", h.Unfollow)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/followings", h.GetFollowings)
}

// GetUser returns a user profile by id
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userRepository.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return repoError(err, "user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"user": user}})
}

// self checks that :id is the caller.
func self(c echo.Context) (primitive.ObjectID, error) {
	return ownPath(c, "id", "You can only change your own devices")
}

// Logout forgets the device registration of the caller
func (h *UserHandler) Logout(c echo.Context) error {
	actor, err := self(c)
	if err != nil {
		return err
	}

	var req models.LogoutRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.BadRequest("Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.userRepository.RemovePlayerID(c.Request().Context(), actor, req.PlayerID); err != nil {
		return repoError(err, "user")
	}
	return c.JSON(http.StatusOK, okResponse)
}

// NotifyAppChange records whether the app runs in the foreground. Only
// background and inactive registrations receive push notifications.
func (h *UserHandler) NotifyAppChange(c echo.Context) error {
	actor, err := self(c)
	if err != nil {
		return err
	}

	var req models.AppStateRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.BadRequest("Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.userRepository.UpsertPlayerID(c.Request().Context(), actor, req.PlayerID, req.Status); err != nil {
		return repoError(err, "user")
	}
	return c.JSON(http.StatusOK, okResponse)
}

// UploadProfilePic replaces the caller's profile picture
func (h *UserHandler) UploadProfilePic(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("profile")
	if err != nil {
		return apperrors.BadRequest("profile file is required")
	}

	ctx := c.Request().Context()
	media, err := h.uploader.Upload(ctx, mediaTypeProfile, file, nil)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := h.userRepository.SetProfile(ctx, actor, media.ID); err != nil {
		return repoError(err, "user")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"media": media}})
}

// Follow makes the caller follow the user
func (h *UserHandler) Follow(c echo.Context) error {
	actor, target, err := h.relation(c)
	if err != nil {
		return err
	}
	if _, err := h.userRepository.Follow(c.Request().Context(), actor, target); err != nil {
		return repoError(err, "user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
}

// Unfollow makes the caller stop following the user
func (h *UserHandler) Unfollow(c echo.Context) error {
	actor, target, err := h.relation(c)
	if err != nil {
		return err
	}
	if _, err := h.userRepository.Unfollow(c.Request().Context(), actor, target); err != nil {
		return repoError(err, "user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

func (h *UserHandler) relation(c echo.Context) (primitive.ObjectID, primitive.ObjectID, error) {
	actor, err := currentUser(c)
	if err != nil {
		return actor, actor, err
	}
	target, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return actor, target, apperrors.NotFound("user")
	}
	if target == actor {
		return actor, target, apperrors.BadRequest("Cannot follow yourself")
	}
	return actor, target, nil
}

// GetFollowers returns the users following :id
func (h *UserHandler) GetFollowers(c echo.Context) error {
	return h.listRelation(c, "followers", func(u *models.User) []primitive.ObjectID { return u.FollowerLists })
}

// GetFollowings returns the users :id follows
func (h *UserHandler) GetFollowings(c echo.Context) error {
	return h.listRelation(c, "followings", func(u *models.User) []primitive.ObjectID { return u.FollowingLists })
}

func (h *UserHandler) listRelation(c echo.Context, key string, ids func(*models.User) []primitive.ObjectID) error {
	ctx := c.Request().Context()
	user, err := h.userRepository.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, "user")
	}

	page := pageParam(c)
	users, total, err := h.userRepository.PaginateByIDs(ctx, ids(user), page, models.DefaultPageSize)
	if err != nil {
		return apperrors.Internal(err)
	}
	return paginated(c, key, models.NewPage(users, page, models.DefaultPageSize, total))
}

// SearchUsers matches ?q= (or ?query=) against the names of active users.
func (h *UserHandler) SearchUsers(c echo.Context) error {
	if h.search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Search is not available")
	}
	query := queryParam(c)
	if query == "" {
		return apperrors.BadRequest("query is required")
	}

	ctx := c.Request().Context()
	h.metrics.SearchQueriesTotal.WithLabelValues("user").Inc()
	ids, err := h.search.SearchUserIDs(ctx, query)
	if err != nil {
		h.metrics.SearchErrorsTotal.WithLabelValues("user").Inc()
		return apperrors.Internal(err)
	}

	page := pageParam(c)
	users, total, err := h.userRepository.PaginateActiveByIDs(ctx, ids, page, models.DefaultPageSize)
	if err != nil {
		return apperrors.Internal(err)
	}
	return paginated(c, "users", models.NewPage(users, page, models.DefaultPageSize, total))
}

// SearchRelations matches ?q= against the names of the followers and
// followings of :id, for mention autocomplete.
func (h *UserHandler) SearchRelations(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.userRepository.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, "user")
	}

	related := append(append([]primitive.ObjectID{}, user.FollowerLists...), user.FollowingLists...)
	users, err := h.userRepository.SearchNames(ctx, related, queryParam(c))
	if err != nil {
		return apperrors.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"users": users}})
}

// GetSuggestions returns a page of people :id may want to follow.
func (h *UserHandler) GetSuggestions(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.userRepository.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, "user")
	}

	page := pageParam(c)
	users, total, err := h.userRepository.Suggestions(ctx, user, page, models.DefaultPageSize)
	if err != nil {
		return apperrors.Internal(err)
	}
	return paginated(c, "users", models.NewPage(users, page, models.DefaultPageSize, total))
}
