package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/middleware"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var okResponse = echo.Map{"message": "OK"}

// currentUser returns the id of the authenticated caller.
func currentUser(c echo.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(middleware.UserID(c))
	if err != nil {
		return primitive.NilObjectID, apperrors.Unauthorized("User not authenticated")
	}
	return id, nil
}

// pageParam reads ?page=, defaulting to the first page.
func pageParam(c echo.Context) int {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	return models.NormalizePage(page)
}

// queryParam reads ?q=, falling back to ?query=.
func queryParam(c echo.Context) string {
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		return q
	}
	return strings.TrimSpace(c.QueryParam("query"))
}

// ownPath checks that the path parameter param is the caller.
func ownPath(c echo.Context, param, message string) (primitive.ObjectID, error) {
	actor, err := currentUser(c)
	if err != nil {
		return actor, err
	}
	if c.Param(param) != actor.Hex() {
		return actor, apperrors.Forbidden(message)
	}
	return actor, nil
}

// repoError maps repository sentinels to API errors.
func repoError(err error, resource string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, repositories.ErrInvalidID):
		return apperrors.NotFound(resource)
	default:
		return apperrors.Internal(err)
	}
}

func paginated[T any](c echo.Context, key string, page models.Page[T]) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{key: page.Items},
		"meta":    page.Meta,
	})
}

func parseObjectIDs(hex []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hex))
	for _, h := range hex {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, apperrors.BadRequest("invalid user id " + strconv.Quote(h))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SummaryFinder loads name and role of many users.
type SummaryFinder interface {
	FindSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error)
}

// summariesByID indexes the summaries of ids.
func summariesByID(ctx context.Context, users SummaryFinder, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.UserSummary, error) {
	out := make(map[primitive.ObjectID]*models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	summaries, err := users.FindSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		out[summaries[i].ID] = &summaries[i]
	}
	return out, nil
}

// commentViews populates the commentor of every comment.
func commentViews(ctx context.Context, users SummaryFinder, comments []models.Comment) ([]models.CommentView, error) {
	ids := make([]primitive.ObjectID, 0, len(comments))
	for _, cmt := range comments {
		ids = append(ids, cmt.Commentor)
	}
	byID, err := summariesByID(ctx, users, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.CommentView, 0, len(comments))
	for _, cmt := range comments {
		commentor, found := byID[cmt.Commentor]
		if !found {
			commentor = &models.UserSummary{ID: cmt.Commentor}
		}
		views = append(views, models.CommentView{Comment: cmt, Commentor: commentor})
	}
	return views, nil
}
