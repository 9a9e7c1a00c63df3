package handlers

import (
	"net/http"

	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles likes and replies on comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	userRepository    repositories.UserRepository
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, userRepo repositories.UserRepository) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		userRepository:    userRepo,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/comments/:id/like", h.LikeComment)
	g.POST("/comments/:id/unlike", h.UnlikeComment)
	g.POST("/comments/:id/replies", h.CreateReply)
	g.GET("/comments/:id/replies", h.GetReplies)
}

// LikeComment likes a comment, 409 when the caller already liked it
func (h *CommentHandler) LikeComment(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	changed, err := h.commentRepository.Like(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return repoError(err, "comment")
	}
	if !changed {
		return apperrors.Conflict("Comment already liked")
	}
	return c.JSON(http.StatusOK, okResponse)
}

// UnlikeComment removes a like, 404 when the caller had not liked it
func (h *CommentHandler) UnlikeComment(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}

	changed, err := h.commentRepository.Unlike(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return repoError(err, "comment")
	}
	if !changed {
		return echo.NewHTTPError(http.StatusNotFound, "Comment is not liked by user")
	}
	return c.JSON(http.StatusOK, okResponse)
}

// CreateReply stores a reply and appends it to the parent comment
func (h *CommentHandler) CreateReply(c echo.Context) error {
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
	parent, err := h.commentRepository.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, "comment")
	}

	reply := &models.Comment{
		Type:        models.CommentKindReply,
		CmtOwner:    parent.ID.Hex(),
		Commentor:   actor,
		CommentType: req.CommentType,
		Message:     req.Message,
		Mentions:    req.Mentions,
	}
	if err := h.commentRepository.Create(ctx, reply); err != nil {
		return apperrors.Internal(err)
	}
	if err := h.commentRepository.AppendReply(ctx, parent.ID.Hex(), reply.ID); err != nil {
		return repoError(err, "comment")
	}

	views, err := commentViews(ctx, h.userRepository, []models.Comment{*reply})
	if err != nil {
		return apperrors.Internal(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"comment": views[0]}})
}

// GetReplies returns the replies of a comment, newest first
func (h *CommentHandler) GetReplies(c echo.Context) error {
	ctx := c.Request().Context()
	parent, err := h.commentRepository.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, "comment")
	}

	page := pageParam(c)
	replies, total, err := h.commentRepository.Paginate(ctx, models.CommentKindReply, parent.ID.Hex(), page, models.DefaultPageSize)
	if err != nil {
		return apperrors.Internal(err)
	}
	views, err := commentViews(ctx, h.userRepository, replies)
	if err != nil {
		return apperrors.Internal(err)
	}
	return paginated(c, "replies", models.NewPage(views, page, models.DefaultPageSize, total))
}
