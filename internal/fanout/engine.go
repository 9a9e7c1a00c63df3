// Package fanout turns reactions, comments and content lifecycle events into
// counter broadcasts, stored notifications, realtime deliveries and push
// notifications. One Engine serves every content type through Descriptor.
package fanout

import (
	"context"
	"time"

	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/kashsbd/awlam-backend/internal/metrics"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/push"
	"github.com/kashsbd/awlam-backend/internal/realtime"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	pushTitle          = "Awlam"
	defaultPushTimeout = 10 * time.Second
)

// ContentStore is the persistence the engine needs from a content collection.
type ContentStore interface {
	FindByID(ctx context.Context, id string) (*models.ContentItem, error)
	ApplyReaction(ctx context.Context, id string, userID primitive.ObjectID, reaction models.Reaction) (*models.ContentItem, bool, error)
	AppendComment(ctx context.Context, id string, commentID primitive.ObjectID) (*models.ContentItem, error)
	AddToSet(ctx context.Context, id, field string, userID primitive.ObjectID) (*models.ContentItem, bool, error)
	RemoveFromSet(ctx context.Context, id, field string, userID primitive.ObjectID) (*models.ContentItem, bool, error)
}

// ContentStores resolves the store of a collection.
type ContentStores func(collection string) ContentStore

type CommentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	AppendPendingNotification(ctx context.Context, userID, notificationID primitive.ObjectID) error
}

type MediaStore interface {
	FindByID(ctx context.Context, id string) (*models.Media, error)
}

// Broadcaster is the subscriber registry of the realtime layer.
type Broadcaster interface {
	Subscribers(namespace string) []realtime.Subscriber
	Broadcast(namespace, event string, payload interface{}) int
	DeliverTo(sub realtime.Subscriber, event string, payload interface{}) bool
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Contents      ContentStores
	Comments      CommentStore
	Notifications NotificationStore
	Users         UserStore
	Media         MediaStore
	Broadcaster   Broadcaster
	Push          push.Gateway

	// ServerURL prefixes icon and image links in push payloads. It ends
	// with a slash.
	ServerURL   string
	PushTimeout time.Duration
}

type Engine struct {
	contents      ContentStores
	comments      CommentStore
	notifications NotificationStore
	users         UserStore
	media         MediaStore
	broadcaster   Broadcaster
	push          push.Gateway
	serverURL     string
	pushTimeout   time.Duration
	metrics       *metrics.Metrics
}

func NewEngine(d Deps) *Engine {
	timeout := d.PushTimeout
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	gw := d.Push
	if gw == nil {
		gw = push.Noop{}
	}
	return &Engine{
		contents:      d.Contents,
		comments:      d.Comments,
		notifications: d.Notifications,
		users:         d.Users,
		media:         d.Media,
		broadcaster:   d.Broadcaster,
		push:          gw,
		serverURL:     d.ServerURL,
		pushTimeout:   timeout,
		metrics:       metrics.Get(),
	}
}

// React applies reaction by actor to the item and fans out the result. The
// boolean result is false when the reaction was already in effect; nothing
// is broadcast or stored in that case.
func (e *Engine) React(ctx context.Context, d *Descriptor, id string, actor primitive.ObjectID, reaction models.Reaction) (*models.ContentItem, bool, error) {
	item, changed, err := e.contents(d.Collection).ApplyReaction(ctx, id, actor, reaction)
	if err != nil || !changed {
		return item, changed, err
	}

	e.broadcast(d.CounterEvent("reacted"), models.ReactionCounts{
		ID:            item.ID,
		LikesCount:    len(item.Likes),
		DislikesCount: len(item.Dislikes),
	})

	var action string
	switch {
	case reaction == models.ReactionLike:
		action = models.ActionLike
	case reaction == models.ReactionDislike && d.NotifyOnDislike:
		action = models.ActionDislike
	default:
		return item, true, nil
	}

	e.publish(context.WithoutCancel(ctx), Notice{
		Descriptor: d,
		Action:     action,
		Actor:      actor,
		Item:       item,
		Recipients: []primitive.ObjectID{item.User},
	})
	return item, true, nil
}

// CommentInput is a new comment on a content item.
type CommentInput struct {
	CommentType string
	Message     string
	Mentions    []models.Mention
}

// Comment stores a comment by actor on the item, appends it to the item and
// fans out COMMENT to the owner and MENTION to every mentioned user.
func (e *Engine) Comment(ctx context.Context, d *Descriptor, id string, actor primitive.ObjectID, in CommentInput) (*models.Comment, *models.ContentItem, error) {
	store := e.contents(d.Collection)
	if _, err := store.FindByID(ctx, id); err != nil {
		return nil, nil, err
	}

	comment := &models.Comment{
		Type:        d.KindTag,
		CmtOwner:    id,
		Commentor:   actor,
		CommentType: in.CommentType,
		Message:     in.Message,
		Mentions:    in.Mentions,
	}
	if err := e.comments.Create(ctx, comment); err != nil {
		return nil, nil, err
	}

	item, err := store.AppendComment(ctx, id, comment.ID)
	if err != nil {
		return nil, nil, err
	}

	e.broadcast(d.CounterEvent("commented"), models.CommentCount{
		ID:       item.ID,
		CmtCount: len(item.Comments),
	})

	side := context.WithoutCancel(ctx)
	e.publish(side, Notice{
		Descriptor: d,
		Action:     models.ActionComment,
		Actor:      actor,
		Item:       item,
		Recipients: []primitive.ObjectID{item.User},
	})

	if mentioned := parseIDs(comment.MentionedUserIDs()); len(mentioned) > 0 {
		e.publish(side, Notice{
			Descriptor:   d,
			Action:       models.ActionMention,
			Actor:        actor,
			Item:         item,
			Recipients:   mentioned,
			IncludeActor: true,
		})
	}
	return comment, item, nil
}

// Attend adds or removes actor from an event's "interested" or "going" set
// and broadcasts both counts on change.
func (e *Engine) Attend(ctx context.Context, d *Descriptor, id string, actor primitive.ObjectID, field string, add bool) (*models.ContentItem, bool, error) {
	store := e.contents(d.Collection)

	var (
		item    *models.ContentItem
		changed bool
		err     error
	)
	if add {
		item, changed, err = store.AddToSet(ctx, id, field, actor)
	} else {
		item, changed, err = store.RemoveFromSet(ctx, id, field, actor)
	}
	if err != nil || !changed {
		return item, changed, err
	}

	e.broadcast(d.CounterEvent("reacted"), models.AttendanceCounts{
		ID:         item.ID,
		Interested: len(item.Interested),
		Going:      len(item.Going),
	})
	return item, true, nil
}

// NotifyApproved tells the owner that an admin approved their item. The
// notification is attributed to the owner and is delivered even when the
// admin is the owner.
func (e *Engine) NotifyApproved(ctx context.Context, d *Descriptor, item *models.ContentItem) *models.Notification {
	return e.publish(context.WithoutCancel(ctx), Notice{
		Descriptor:   d,
		Action:       models.ActionApprove,
		Actor:        item.User,
		Item:         item,
		Recipients:   []primitive.ObjectID{item.User},
		IncludeActor: true,
	})
}

// NotifyFollowUp tells the owner of parent that sub was posted under it.
func (e *Engine) NotifyFollowUp(ctx context.Context, sub *Descriptor, item, parent *models.ContentItem) *models.Notification {
	return e.publish(context.WithoutCancel(ctx), Notice{
		Descriptor: sub,
		Action:     models.ActionCreate,
		Actor:      item.User,
		Item:       item,
		DataID:     parent.ID.Hex(),
		Recipients: []primitive.ObjectID{parent.User},
	})
}

// NotifyInvited sends one action notification about item to every invitee.
func (e *Engine) NotifyInvited(ctx context.Context, d *Descriptor, action string, item *models.ContentItem, invitees []primitive.ObjectID) *models.Notification {
	return e.publish(context.WithoutCancel(ctx), Notice{
		Descriptor: d,
		Action:     action,
		Actor:      item.User,
		Item:       item,
		Recipients: invitees,
	})
}

func (e *Engine) broadcast(event string, payload interface{}) {
	sent := e.broadcaster.Broadcast(realtime.NamespaceCounters, event, payload)
	e.metrics.RealtimeDeliveries.WithLabelValues(realtime.NamespaceCounters, "sent").Add(float64(sent))
}

func parseIDs(hex []string) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(hex))
	for _, h := range hex {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			logger.Log.Debug("skipping malformed mention", zap.String("user_id", h))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
