package handlers

import (
	"context"
	"net/http"

	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/kashsbd/awlam-backend/internal/middleware"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// unsavedLimit caps the unsaved notifications returned per request.
const unsavedLimit = 10

// NotificationHandler handles the pending notification list of a user
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
	mediaRepository        repositories.MediaRepository
	receiptRepository      repositories.PushReceiptRepository
}

// NewNotificationHandler creates a new NotificationHandler. receiptRepo may
// be nil when push receipts are not recorded.
func NewNotificationHandler(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	mediaRepo repositories.MediaRepository,
	receiptRepo repositories.PushReceiptRepository,
) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notificationRepo,
		userRepository:         userRepo,
		mediaRepository:        mediaRepo,
		receiptRepository:      receiptRepo,
	}
}

// RegisterNotificationRoutes registers notification-related routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/users/me/notifications/unsaved", h.GetUnsaved)
	g.POST("/notifications/:id/saved", h.MarkSaved)
	if h.receiptRepository != nil {
		g.GET("/notifications/:id/receipts", h.GetReceipts, middleware.RequireAdmin())
	}
}

// GetUnsaved returns the caller's pending notifications not yet saved on the
// device, newest first
func (h *NotificationHandler) GetUnsaved(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.FindByID(ctx, actor.Hex())
	if err != nil {
		return repoError(err, "user")
	}

	notifications, err := h.notificationRepository.FindUnsaved(ctx, user.NotiLists, unsavedLimit)
	if err != nil {
		return apperrors.Internal(err)
	}
	views, err := h.populate(ctx, notifications)
	if err != nil {
		return apperrors.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"notifications": views}})
}

// MarkSaved flags a notification as saved on the device and drops it from
// the caller's pending list
func (h *NotificationHandler) MarkSaved(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	noti, err := h.notificationRepository.MarkSaved(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, "notification")
	}
	if err := h.userRepository.RemovePendingNotification(ctx, actor, noti.ID); err != nil {
		return repoError(err, "user")
	}
	return c.JSON(http.StatusOK, okResponse)
}

// GetReceipts lists the push dispatches recorded for a notification
func (h *NotificationHandler) GetReceipts(c echo.Context) error {
	receipts, err := h.receiptRepository.ListByNotification(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperrors.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"receipts": receipts}})
}

func (h *NotificationHandler) populate(ctx context.Context, notifications []models.Notification) ([]*models.NotificationView, error) {
	actorIDs := make([]primitive.ObjectID, 0, len(notifications))
	for _, n := range notifications {
		actorIDs = append(actorIDs, n.CreatedBy)
	}
	actors, err := summariesByID(ctx, h.userRepository, actorIDs)
	if err != nil {
		return nil, err
	}

	views := make([]*models.NotificationView, 0, len(notifications))
	for i := range notifications {
		n := &notifications[i]
		actor, found := actors[n.CreatedBy]
		if !found {
			actor = &models.UserSummary{ID: n.CreatedBy}
		}
		views = append(views, n.Populate(actor, h.mediaSummary(ctx, n.Media)))
	}
	return views, nil
}

func (h *NotificationHandler) mediaSummary(ctx context.Context, id *primitive.ObjectID) *models.MediaSummary {
	if id == nil {
		return nil
	}
	media, err := h.mediaRepository.FindByID(ctx, id.Hex())
	if err != nil {
		logger.WarnWithFields("failed to load notification media", err, zap.String("media_id", id.Hex()))
		return &models.MediaSummary{ID: *id}
	}
	return media.Summary()
}
