package handlers

import (
	"net/http"

	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
)

func (h *ContentHandler) registerPostRoutes(g *echo.Group, p string) {
	g.GET(p+"/following", h.FollowingPosts)
	g.GET(p+"/popular", h.PopularPosts)
	g.GET("/users/:id/posts", h.UserPosts)
}

// FollowingPosts lists the posts of the users the caller follows.
func (h *ContentHandler) FollowingPosts(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.deps.Users.FindByID(c.Request().Context(), actor.Hex())
	if err != nil {
		return repoError(err, "user")
	}
	if len(user.FollowingLists) == 0 {
		return paginated(c, h.d.Collection, models.NewPage([]models.ContentItem{}, pageParam(c), models.DefaultPageSize, 0))
	}

	filter := h.visibleFilter(c)
	filter["user"] = bson.M{"$in": user.FollowingLists}
	return h.listWhere(c, filter)
}

// PopularPosts lists posts, most liked first.
func (h *ContentHandler) PopularPosts(c echo.Context) error {
	page := pageParam(c)
	items, total, err := h.contents.PaginatePopular(c.Request().Context(), h.visibleFilter(c), page, models.DefaultPageSize)
	if err != nil {
		return apperrors.Internal(err)
	}
	return paginated(c, h.d.Collection, models.NewPage(items, page, models.DefaultPageSize, total))
}

// UserPosts lists the posts of :id together with a profile header.
func (h *ContentHandler) UserPosts(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.deps.Users.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, "user")
	}

	filter := h.visibleFilter(c)
	filter["user"] = user.ID
	page := pageParam(c)
	items, total, err := h.contents.Paginate(ctx, filter, page, models.DefaultPageSize)
	if err != nil {
		return apperrors.Internal(err)
	}

	result := models.NewPage(items, page, models.DefaultPageSize, total)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"user": echo.Map{
				"_id":        user.ID,
				"name":       user.Name,
				"role":       user.Role,
				"followers":  user.FollowerLists,
				"followings": user.FollowingLists,
			},
			h.d.Collection: result.Items,
		},
		"meta": result.Meta,
	})
}
