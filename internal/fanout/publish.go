package fanout

import (
	"context"
	"fmt"

	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/push"
	"github.com/kashsbd/awlam-backend/internal/realtime"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notice describes one notification to store and deliver.
type Notice struct {
	Descriptor *Descriptor
	Action     string
	Actor      primitive.ObjectID
	Item       *models.ContentItem
	// DataID overrides the id the notification points at.
	DataID     string
	Recipients []primitive.ObjectID
	// IncludeActor keeps the actor in Recipients. Otherwise users are never
	// notified of their own actions.
	IncludeActor bool
}

func (n Notice) kind() string {
	return n.Descriptor.Kind(n.Action)
}

func (n Notice) dataID() string {
	if n.DataID != "" {
		return n.DataID
	}
	return n.Descriptor.DataID(n.Item)
}

// recipients returns the distinct recipients, without the actor unless
// IncludeActor is set.
func (n Notice) recipients() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(n.Recipients))
	out := make([]primitive.ObjectID, 0, len(n.Recipients))
	for _, id := range n.Recipients {
		if id.IsZero() || (id == n.Actor && !n.IncludeActor) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// publish stores one notification and delivers it to every recipient over
// realtime, the pending list and push. It returns nil when there is no
// recipient or the notification could not be stored. Every failure past
// that point is logged and swallowed.
func (e *Engine) publish(ctx context.Context, n Notice) *models.Notification {
	recipients := n.recipients()
	if len(recipients) == 0 {
		return nil
	}

	kind := n.kind()
	noti := &models.Notification{
		CreatedBy: n.Actor,
		Type:      kind,
		Media:     n.Item.FirstMedia(),
		DataID:    n.dataID(),
	}
	if err := e.notifications.Create(ctx, noti); err != nil {
		logger.ErrorWithFields("failed to store notification", err,
			zap.String("kind", kind),
			logger.WithContentID(n.Item.ID.Hex()),
		)
		e.metrics.NotificationFailures.WithLabelValues("store").Inc()
		return nil
	}
	e.metrics.NotificationsCreated.WithLabelValues(kind).Inc()

	view := noti.Populate(e.actorSummary(ctx, n.Actor), e.mediaSummary(ctx, noti.Media))

	e.deliverRealtime(recipients, view)

	var registrations []string
	for _, id := range recipients {
		registrations = append(registrations, e.enqueue(ctx, id, noti.ID)...)
	}
	if len(registrations) > 0 {
		e.dispatchPush(ctx, n, view, registrations)
	}
	return noti
}

// deliverRealtime sends view to every notification subscriber tagged with a
// recipient id.
func (e *Engine) deliverRealtime(recipients []primitive.ObjectID, view *models.NotificationView) {
	tags := make(map[string]struct{}, len(recipients))
	for _, id := range recipients {
		tags[id.Hex()] = struct{}{}
	}

	for _, sub := range e.broadcaster.Subscribers(realtime.NamespaceNotifications) {
		if _, ok := tags[sub.UserID]; !ok {
			continue
		}
		result := "sent"
		if !e.broadcaster.DeliverTo(sub, realtime.EventNotificationCreated, view) {
			result = "dropped"
		}
		e.metrics.RealtimeDeliveries.WithLabelValues(realtime.NamespaceNotifications, result).Inc()
	}
}

// enqueue appends the notification to the user's pending list and returns
// the registrations that should receive a push.
func (e *Engine) enqueue(ctx context.Context, userID, notificationID primitive.ObjectID) []string {
	user, err := e.users.FindByID(ctx, userID.Hex())
	if err != nil {
		logger.WarnWithFields("failed to load notification recipient", err, logger.WithUserID(userID.Hex()))
		e.metrics.NotificationFailures.WithLabelValues("recipient").Inc()
		return nil
	}

	if err := e.users.AppendPendingNotification(ctx, userID, notificationID); err != nil {
		logger.WarnWithFields("failed to append pending notification", err, logger.WithUserID(userID.Hex()))
		e.metrics.NotificationFailures.WithLabelValues("pending").Inc()
	}
	return user.BackgroundPlayerIDs()
}

func (e *Engine) dispatchPush(ctx context.Context, n Notice, view *models.NotificationView, registrations []string) {
	ctx, cancel := context.WithTimeout(ctx, e.pushTimeout)
	defer cancel()

	msg := push.Message{
		Title:    pushTitle,
		Body:     pushBody(n.Descriptor, n.Action, view.CreatedBy.Name),
		IconURL:  e.serverURL + "users/" + n.Actor.Hex() + "/profile_pic",
		ImageURL: n.Descriptor.MediaURL(e.serverURL, view.Media),
		Data: map[string]string{
			"notificationId": view.ID.Hex(),
			"type":           view.Type,
			"dataId":         view.DataID,
		},
		NotificationID: view.ID.Hex(),
		Kind:           view.Type,
	}

	e.metrics.PushRecipients.Add(float64(len(registrations)))
	res, err := e.push.Send(ctx, registrations, msg)
	if err != nil {
		logger.ErrorWithFields("push dispatch failed", err,
			zap.String("kind", view.Type),
			zap.Int("registrations", len(registrations)),
		)
		e.metrics.PushDispatches.WithLabelValues("error").Inc()
		return
	}
	e.metrics.PushDispatches.WithLabelValues("ok").Inc()
	logger.Log.Debug("push dispatched",
		zap.String("kind", view.Type),
		zap.Int("success", res.SuccessCount),
		zap.Int("failure", res.FailureCount),
	)
}

func (e *Engine) actorSummary(ctx context.Context, id primitive.ObjectID) *models.UserSummary {
	user, err := e.users.FindByID(ctx, id.Hex())
	if err != nil {
		logger.WarnWithFields("failed to load notification actor", err, logger.WithUserID(id.Hex()))
		return &models.UserSummary{ID: id}
	}
	return user.Summary()
}

func (e *Engine) mediaSummary(ctx context.Context, id *primitive.ObjectID) *models.MediaSummary {
	if id == nil {
		return nil
	}
	media, err := e.media.FindByID(ctx, id.Hex())
	if err != nil {
		logger.WarnWithFields("failed to load notification media", err, zap.String("media_id", id.Hex()))
		return &models.MediaSummary{ID: *id}
	}
	return media.Summary()
}

// pushBody is the user-facing text of a push notification.
func pushBody(d *Descriptor, action, name string) string {
	switch action {
	case models.ActionLike:
		return fmt.Sprintf("%s liked your %s.", name, d.Noun)
	case models.ActionDislike:
		return fmt.Sprintf("%s disliked your %s.", name, d.Noun)
	case models.ActionComment:
		return fmt.Sprintf("%s commented on your %s.", name, d.Noun)
	case models.ActionMention:
		return fmt.Sprintf("%s mentioned you in a comment.", name)
	case models.ActionApprove:
		return fmt.Sprintf("%s, your post is approved.", name)
	case models.ActionCreate:
		if d.IsSub() {
			return fmt.Sprintf("%s followed up on your post.", name)
		}
		return fmt.Sprintf("%s invited you in this %s.", name, d.TypeName)
	case models.ActionInvite:
		return fmt.Sprintf("%s invited you in this %s.", name, d.TypeName)
	}
	return fmt.Sprintf("%s has a new update for you.", name)
}
