package handlers

import (
	"net/http"
	"regexp"

	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/fanout"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *ContentHandler) registerEventRoutes(g *echo.Group, p string) {
	g.POST(p+"/:id/interested", h.attend("interested", true))
	g.POST(p+"/:id/uninterested", h.attend("interested", false))
	g.POST(p+"/:id/going", h.attend("going", true))
	g.POST(p+"/:id/ungoing", h.attend("going", false))
}

func (h *ContentHandler) attend(field string, add bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := currentUser(c)
		if err != nil {
			return err
		}
		if _, _, err := h.deps.Fanout.Attend(c.Request().Context(), fanout.Event, c.Param("id"), actor, field, add); err != nil {
			return repoError(err, fanout.Event.TypeName)
		}
		return c.JSON(http.StatusOK, okResponse)
	}
}

func (h *ContentHandler) registerTopicRoutes(g *echo.Group, p string) {
	g.GET(p+"/subscribed", h.SubscribedTopics)
	g.GET(p+"/private", h.PrivateTopics)
	g.GET(p+"/invited/:userId", h.InvitedTopics)
	g.GET(p+"/private/:userId/search", h.SearchOwnPrivateTopics)
	g.POST(p+"/:id/subscribe", h.Subscribe)
	g.POST(p+"/:id/unsubscribe", h.Unsubscribe)
}

// Subscribe adds the caller to the subscribers of a public topic.
func (h *ContentHandler) Subscribe(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	topic, err := h.contents.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, h.d.TypeName)
	}
	if !topic.IsPublic {
		return apperrors.Forbidden("Private topics can not be subscribed")
	}
	if _, _, err := h.contents.AddToSet(ctx, topic.ID.Hex(), "subscribed_users", actor); err != nil {
		return repoError(err, h.d.TypeName)
	}
	return c.JSON(http.StatusOK, okResponse)
}

func (h *ContentHandler) Unsubscribe(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	if _, _, err := h.contents.RemoveFromSet(c.Request().Context(), c.Param("id"), "subscribed_users", actor); err != nil {
		return repoError(err, h.d.TypeName)
	}
	return c.JSON(http.StatusOK, okResponse)
}

// SubscribedTopics lists the topics the caller subscribed to.
func (h *ContentHandler) SubscribedTopics(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	return h.listWhere(c, bson.M{"isAvailable": true, "subscribed_users": actor})
}

// PrivateTopics lists the private topics the caller is permitted in.
func (h *ContentHandler) PrivateTopics(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	return h.listWhere(c, bson.M{"isAvailable": true, "isPublic": false, "permitted_users": actor})
}

// maxOwnPrivateTopics bounds the unpaginated lists of a user's own private
// topics.
const maxOwnPrivateTopics = 100

const notOwnTopics = "You can only list your own private topics"

// InvitedTopics returns the caller's own private topics along with a page of
// the private topics the caller is permitted in.
func (h *ContentHandler) InvitedTopics(c echo.Context) error {
	actor, err := ownPath(c, "userId", notOwnTopics)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	owned, err := h.contents.FindAll(ctx, ownPrivateTopics(actor), maxOwnPrivateTopics)
	if err != nil {
		return apperrors.Internal(err)
	}

	page := pageParam(c)
	filter := bson.M{"isAvailable": true, "isPublic": false, "permitted_users": actor}
	items, total, err := h.contents.Paginate(ctx, filter, page, models.DefaultPageSize)
	if err != nil {
		return apperrors.Internal(err)
	}

	result := models.NewPage(items, page, models.DefaultPageSize, total)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"owned": owned, h.d.Collection: result.Items},
		"meta":    result.Meta,
	})
}

// SearchOwnPrivateTopics matches ?q= against the descriptions of the
// caller's own private topics. An empty query lists all of them.
func (h *ContentHandler) SearchOwnPrivateTopics(c echo.Context) error {
	actor, err := ownPath(c, "userId", notOwnTopics)
	if err != nil {
		return err
	}

	filter := ownPrivateTopics(actor)
	if query := queryParam(c); query != "" {
		filter["description"] = primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	}
	topics, err := h.contents.FindAll(c.Request().Context(), filter, maxOwnPrivateTopics)
	if err != nil {
		return apperrors.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{h.d.Collection: topics}})
}

func ownPrivateTopics(owner primitive.ObjectID) bson.M {
	return bson.M{"isAvailable": true, "isPublic": false, "user": owner}
}

func (h *ContentHandler) listWhere(c echo.Context, filter bson.M) error {
	page := pageParam(c)
	items, total, err := h.contents.Paginate(c.Request().Context(), filter, page, models.DefaultPageSize)
	if err != nil {
		return apperrors.Internal(err)
	}
	return paginated(c, h.d.Collection, models.NewPage(items, page, models.DefaultPageSize, total))
}
