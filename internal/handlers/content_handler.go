package handlers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/fanout"
	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/kashsbd/awlam-backend/internal/metrics"
	"github.com/kashsbd/awlam-backend/internal/middleware"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Fanout runs the side effects of reactions, comments and content events.
type Fanout interface {
	React(ctx context.Context, d *fanout.Descriptor, id string, actor primitive.ObjectID, reaction models.Reaction) (*models.ContentItem, bool, error)
	Comment(ctx context.Context, d *fanout.Descriptor, id string, actor primitive.ObjectID, in fanout.CommentInput) (*models.Comment, *models.ContentItem, error)
	Attend(ctx context.Context, d *fanout.Descriptor, id string, actor primitive.ObjectID, field string, add bool) (*models.ContentItem, bool, error)
	NotifyApproved(ctx context.Context, d *fanout.Descriptor, item *models.ContentItem) *models.Notification
	NotifyFollowUp(ctx context.Context, sub *fanout.Descriptor, item, parent *models.ContentItem) *models.Notification
	NotifyInvited(ctx context.Context, d *fanout.Descriptor, action string, item *models.ContentItem, invitees []primitive.ObjectID) *models.Notification
}

// MediaUploader stores uploaded files.
type MediaUploader interface {
	UploadAll(ctx context.Context, mediaType string, files []*multipart.FileHeader) ([]primitive.ObjectID, error)
}

// Searcher resolves full-text queries to content ids.
type Searcher interface {
	IndexContent(ctx context.Context, index string, item *models.ContentItem) error
	SearchIDs(ctx context.Context, index string, fields []string, query string) ([]primitive.ObjectID, error)
}

// ContentDeps are the collaborators shared by every ContentHandler.
type ContentDeps struct {
	Contents func(collection string) repositories.ContentRepository
	Comments repositories.CommentRepository
	Users    repositories.UserRepository
	Fanout   Fanout
	Uploader MediaUploader
	// Search is optional; without it search answers 503 and nothing is indexed.
	Search Searcher
	// ListCache wraps the list endpoint when set.
	ListCache echo.MiddlewareFunc
}

// ContentHandler serves one top-level content type and its sub-posts.
type ContentHandler struct {
	d        *fanout.Descriptor
	deps     ContentDeps
	contents repositories.ContentRepository
	subs     repositories.ContentRepository
	metrics  *metrics.Metrics
}

func NewContentHandler(d *fanout.Descriptor, deps ContentDeps) *ContentHandler {
	h := &ContentHandler{
		d:        d,
		deps:     deps,
		contents: deps.Contents(d.Collection),
		metrics:  metrics.Get(),
	}
	if d.Sub != nil {
		h.subs = deps.Contents(d.Sub.Collection)
	}
	return h
}

func routePrefix(d *fanout.Descriptor) string {
	return "/" + d.TypeName + "s"
}

var reactions = []models.Reaction{
	models.ReactionLike,
	models.ReactionUnlike,
	models.ReactionDislike,
	models.ReactionUndislike,
}

// RegisterContentRoutes registers the routes of the content type under g.
func (h *ContentHandler) RegisterContentRoutes(g *echo.Group) {
	p := routePrefix(h.d)

	var listMW []echo.MiddlewareFunc
	if h.deps.ListCache != nil {
		listMW = append(listMW, h.deps.ListCache)
	}
	g.GET(p, h.List, listMW...)
	g.GET(p+"/search", h.Search)
	g.POST(p, h.Create)
	g.GET(p+"/:id", h.Get)
	h.registerItemRoutes(g, p+"/:id", h.d)

	if h.d.RequiresApproval {
		g.POST(p+"/:id/approve", h.Approve, middleware.RequireAdmin())
	}

	if h.d.Sub != nil {
		g.GET(p+"/:id/subposts", h.ListSubPosts)
		g.POST(p+"/:id/subposts", h.CreateSubPost)
		h.registerItemRoutes(g, p+"/subposts/:id", h.d.Sub)
	}

	switch h.d {
	case fanout.Post:
		h.registerPostRoutes(g, p)
	case fanout.Event:
		h.registerEventRoutes(g, p)
	case fanout.Topic:
		h.registerTopicRoutes(g, p)
	}
}

// registerItemRoutes registers reactions and comments of one item path.
func (h *ContentHandler) registerItemRoutes(g *echo.Group, path string, d *fanout.Descriptor) {
	for _, r := range reactions {
		g.POST(path+"/"+string(r), h.react(d, r))
	}
	g.POST(path+"/comments", h.createComment(d))
	g.GET(path+"/comments", h.listComments(d))
	g.GET(path+"/reactions", h.listReactions(d))
	g.POST(path+"/reactions", h.listReactions(d))
}

func (h *ContentHandler) store(d *fanout.Descriptor) repositories.ContentRepository {
	if d == h.d {
		return h.contents
	}
	return h.subs
}

// visibleFilter restricts listings to what the caller may see.
func (h *ContentHandler) visibleFilter(c echo.Context) bson.M {
	filter := bson.M{"isAvailable": true}
	if h.d.RequiresApproval && !middleware.IsAdmin(c) {
		filter["isApproved"] = true
	}
	if h.d == fanout.Event || h.d == fanout.Topic {
		filter["isPublic"] = true
	}
	return filter
}

// List returns a page of available items, newest first.
func (h *ContentHandler) List(c echo.Context) error {
	return h.listWhere(c, h.visibleFilter(c))
}

// Get returns a single item.
func (h *ContentHandler) Get(c echo.Context) error {
	item, err := h.contents.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return repoError(err, h.d.TypeName)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{h.d.TypeName: item}})
}

// Create stores a new item with its uploaded media and sends invitations.
func (h *ContentHandler) Create(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	item, err := h.bindItem(c, h.d, actor)
	if err != nil {
		return err
	}
	item.IsApproved = !h.d.RequiresApproval

	ctx := c.Request().Context()
	if err := h.contents.Create(ctx, item); err != nil {
		return apperrors.Internal(err)
	}
	h.index(ctx, h.d, item)

	if action, invitees := invitation(h.d, item); len(invitees) > 0 {
		h.deps.Fanout.NotifyInvited(ctx, h.d, action, item, invitees)
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{h.d.TypeName: item}})
}

// invitation returns the notification action and recipients of a new item.
func invitation(d *fanout.Descriptor, item *models.ContentItem) (string, []primitive.ObjectID) {
	switch {
	case d == fanout.Event:
		return models.ActionCreate, item.InvitedUsers
	case d == fanout.Topic && !item.IsPublic:
		return models.ActionInvite, item.PermittedUsers
	}
	return "", nil
}

// ListSubPosts returns the sub-posts of an item.
func (h *ContentHandler) ListSubPosts(c echo.Context) error {
	ctx := c.Request().Context()
	parent, err := h.contents.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, h.d.TypeName)
	}

	page := pageParam(c)
	filter := bson.M{"post_owner": parent.ID, "isAvailable": true}
	items, total, err := h.subs.Paginate(ctx, filter, page, models.DefaultPageSize)
	if err != nil {
		return apperrors.Internal(err)
	}
	return paginated(c, h.d.Sub.Collection, models.NewPage(items, page, models.DefaultPageSize, total))
}

// CreateSubPost stores a follow-up under an item and notifies its owner.
func (h *ContentHandler) CreateSubPost(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	parent, err := h.contents.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, h.d.TypeName)
	}

	item, err := h.bindItem(c, h.d.Sub, actor)
	if err != nil {
		return err
	}
	item.PostOwner = &parent.ID
	item.IsApproved = true

	if err := h.subs.Create(ctx, item); err != nil {
		return apperrors.Internal(err)
	}
	h.deps.Fanout.NotifyFollowUp(ctx, h.d.Sub, item, parent)

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{h.d.Sub.TypeName: item}})
}

// Approve marks an item approved and notifies its owner.
func (h *ContentHandler) Approve(c echo.Context) error {
	admin, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	item, err := h.contents.Approve(ctx, c.Param("id"), admin)
	if err != nil {
		return repoError(err, h.d.TypeName)
	}
	h.deps.Fanout.NotifyApproved(ctx, h.d, item)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{h.d.TypeName: item}})
}

// Search matches ?q= (or ?query=) against the search fields of the type.
func (h *ContentHandler) Search(c echo.Context) error {
	if h.deps.Search == nil || len(h.d.SearchFields) == 0 {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Search is not available")
	}
	query := queryParam(c)
	if query == "" {
		return apperrors.BadRequest("query is required")
	}

	ctx := c.Request().Context()
	h.metrics.SearchQueriesTotal.WithLabelValues(h.d.TypeName).Inc()
	ids, err := h.deps.Search.SearchIDs(ctx, h.d.Collection, h.d.SearchFields, query)
	if err != nil {
		h.metrics.SearchErrorsTotal.WithLabelValues(h.d.TypeName).Inc()
		return apperrors.Internal(err)
	}

	page := pageParam(c)
	if len(ids) == 0 {
		return paginated(c, h.d.Collection, models.NewPage([]models.ContentItem{}, page, models.DefaultPageSize, 0))
	}
	filter := h.visibleFilter(c)
	filter["_id"] = bson.M{"$in": ids}
	return h.listWhere(c, filter)
}

// react applies r and answers OK whether or not anything changed.
func (h *ContentHandler) react(d *fanout.Descriptor, r models.Reaction) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := currentUser(c)
		if err != nil {
			return err
		}
		if _, _, err := h.deps.Fanout.React(c.Request().Context(), d, c.Param("id"), actor, r); err != nil {
			return repoError(err, d.TypeName)
		}
		return c.JSON(http.StatusOK, okResponse)
	}
}

func (h *ContentHandler) createComment(d *fanout.Descriptor) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := currentUser(c)
		if err != nil {
			return err
		}

		var req models.CreateCommentRequest
		if err := c.Bind(&req); err != nil {
			return apperrors.BadRequest("Invalid request payload")
		}
		if err := c.Validate(&req); err != nil {
			return err
		}

		ctx := c.Request().Context()
		comment, _, err := h.deps.Fanout.Comment(ctx, d, c.Param("id"), actor, fanout.CommentInput{
			CommentType: req.CommentType,
			Message:     req.Message,
			Mentions:    req.Mentions,
		})
		if err != nil {
			return repoError(err, d.TypeName)
		}

		views, err := commentViews(ctx, h.deps.Users, []models.Comment{*comment})
		if err != nil {
			return apperrors.Internal(err)
		}
		return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"comment": views[0]}})
	}
}

func (h *ContentHandler) listComments(d *fanout.Descriptor) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		item, err := h.store(d).FindByID(ctx, c.Param("id"))
		if err != nil {
			return repoError(err, d.TypeName)
		}

		page := pageParam(c)
		comments, total, err := h.deps.Comments.Paginate(ctx, d.KindTag, item.ID.Hex(), page, models.DefaultPageSize)
		if err != nil {
			return apperrors.Internal(err)
		}
		views, err := commentViews(ctx, h.deps.Users, comments)
		if err != nil {
			return apperrors.Internal(err)
		}
		return paginated(c, "comments", models.NewPage(views, page, models.DefaultPageSize, total))
	}
}

// listReactions returns likers and dislikers relative to the caller.
func (h *ContentHandler) listReactions(d *fanout.Descriptor) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := currentUser(c)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		item, err := h.store(d).FindByID(ctx, c.Param("id"))
		if err != nil {
			return repoError(err, d.TypeName)
		}
		caller, err := h.deps.Users.FindByID(ctx, actor.Hex())
		if err != nil {
			return repoError(err, "user")
		}

		likes, err := h.reactors(ctx, caller, item.Likes)
		if err != nil {
			return apperrors.Internal(err)
		}
		dislikes, err := h.reactors(ctx, caller, item.Dislikes)
		if err != nil {
			return apperrors.Internal(err)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"data":    echo.Map{"likes": likes, "dislikes": dislikes},
		})
	}
}

func (h *ContentHandler) reactors(ctx context.Context, caller *models.User, ids []primitive.ObjectID) ([]models.Reactor, error) {
	out := make([]models.Reactor, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	summaries, err := h.deps.Users.FindSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		relation := models.RelationFollow
		switch {
		case s.ID == caller.ID:
			relation = models.RelationYou
		case caller.IsFollowing(s.ID):
			relation = models.RelationUnfollow
		}
		out = append(out, models.Reactor{UserSummary: s, Relation: relation})
	}
	return out, nil
}

// bindItem reads a create request and uploads its media files.
func (h *ContentHandler) bindItem(c echo.Context, d *fanout.Descriptor, actor primitive.ObjectID) (*models.ContentItem, error) {
	var req models.CreateContentRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperrors.BadRequest("Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}

	item := &models.ContentItem{
		User:        actor,
		IsAvailable: true,
		IsPublic:    req.IsPublic == nil || *req.IsPublic,
		Description: req.Description,
		Status:      req.Status,
		HashTags:    req.HashTags,
		EventName:   req.EventName,
	}
	if req.LocationName != "" || req.LocationAddress != "" || req.Lat != "" || req.Lon != "" {
		item.Location = &models.Location{
			Name:    req.LocationName,
			Address: req.LocationAddress,
			Lat:     req.Lat,
			Lon:     req.Lon,
		}
	}

	var err error
	if item.StartDateTime, err = parseTime(req.StartDateTime); err != nil {
		return nil, err
	}
	if item.EndDateTime, err = parseTime(req.EndDateTime); err != nil {
		return nil, err
	}
	if item.InvitedUsers, err = parseObjectIDs(req.InvitedUsers); err != nil {
		return nil, err
	}
	if item.PermittedUsers, err = parseObjectIDs(req.PermittedUsers); err != nil {
		return nil, err
	}

	files, err := uploadedFiles(c)
	if err != nil {
		return nil, err
	}
	if len(files) > 0 {
		ids, err := h.deps.Uploader.UploadAll(c.Request().Context(), d.MediaType, files)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		item.Media = ids
	}
	return item, nil
}

func uploadedFiles(c echo.Context) ([]*multipart.FileHeader, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.BadRequest("Invalid multipart form")
	}
	return form.File["media"], nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperrors.BadRequest("invalid date " + s)
	}
	return &t, nil
}

// index writes the search document of item. Failures are only logged.
func (h *ContentHandler) index(ctx context.Context, d *fanout.Descriptor, item *models.ContentItem) {
	if h.deps.Search == nil || len(d.SearchFields) == 0 {
		return
	}
	if err := h.deps.Search.IndexContent(ctx, d.Collection, item); err != nil {
		logger.WarnWithFields("failed to index content", err,
			logger.WithContentID(item.ID.Hex()),
			zap.String("index", d.Collection),
		)
	}
}
