package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/fanout"
	"github.com/kashsbd/awlam-backend/internal/repositories"
	"github.com/kashsbd/awlam-backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// MediaHandler serves stored photos, thumbnails and video streams. Its
// routes are public so push notification images can be fetched.
type MediaHandler struct {
	mediaRepository repositories.MediaRepository
	userRepository  repositories.UserRepository
	objects         storage.ObjectStore
}

func NewMediaHandler(mediaRepo repositories.MediaRepository, userRepo repositories.UserRepository, objects storage.ObjectStore) *MediaHandler {
	return &MediaHandler{
		mediaRepository: mediaRepo,
		userRepository:  userRepo,
		objects:         objects,
	}
}

// RegisterMediaRoutes registers the media routes of every top-level type
// and the profile picture route.
func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	for _, d := range fanout.TopLevel() {
		p := routePrefix(d)
		g.GET(p+"/media/:mediaId", h.Photo)
		g.GET(p+"/media/:mediaId/thumbnail", h.Thumbnail)
		g.GET(p+"/stream/:mediaId", h.Stream)
	}
	g.GET("/users/:id/profile_pic", h.ProfilePic)
}

// Photo serves the whole media object.
func (h *MediaHandler) Photo(c echo.Context) error {
	media, err := h.mediaRepository.FindByID(c.Request().Context(), c.Param("mediaId"))
	if err != nil {
		return repoError(err, "media")
	}
	return h.serve(c, media.ObjectKey, media.ContentType, media.Size)
}

// Thumbnail serves the preview of a video, or the photo itself.
func (h *MediaHandler) Thumbnail(c echo.Context) error {
	media, err := h.mediaRepository.FindByID(c.Request().Context(), c.Param("mediaId"))
	if err != nil {
		return repoError(err, "media")
	}
	switch {
	case media.ThumbnailKey != "":
		return h.serve(c, media.ThumbnailKey, "image/jpeg", -1)
	case !media.IsVideo():
		return h.serve(c, media.ObjectKey, media.ContentType, media.Size)
	}
	return apperrors.NotFound("thumbnail")
}

// ProfilePic serves the profile picture of a user.
func (h *MediaHandler) ProfilePic(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.userRepository.FindByID(ctx, c.Param("id"))
	if err != nil {
		return repoError(err, "user")
	}
	if user.Profile == nil {
		return apperrors.NotFound("profile")
	}
	media, err := h.mediaRepository.FindByID(ctx, user.Profile.Hex())
	if err != nil {
		return repoError(err, "media")
	}
	return h.serve(c, media.ObjectKey, media.ContentType, media.Size)
}

// Stream serves a video honoring a single-range Range header: 206 with
// Content-Range for a valid range, 200 without one, 416 when unsatisfiable.
func (h *MediaHandler) Stream(c echo.Context) error {
	media, err := h.mediaRepository.FindByID(c.Request().Context(), c.Param("mediaId"))
	if err != nil {
		return repoError(err, "media")
	}

	header := c.Request().Header.Get("Range")
	if header == "" {
		c.Response().Header().Set("Accept-Ranges", "bytes")
		return h.serve(c, media.ObjectKey, media.ContentType, media.Size)
	}

	r, err := storage.ParseRange(header, media.Size)
	if err != nil {
		if errors.Is(err, storage.ErrUnsatisfiableRange) {
			c.Response().Header().Set("Content-Range", "bytes */"+strconv.FormatInt(media.Size, 10))
			return apperrors.RangeNotSatisfiable(media.Size)
		}
		return apperrors.Internal(err)
	}

	body, err := h.objects.Open(c.Request().Context(), media.ObjectKey, r.Start, r.Length())
	if err != nil {
		return apperrors.Internal(err)
	}
	defer body.Close()

	res := c.Response().Header()
	res.Set("Accept-Ranges", "bytes")
	res.Set("Content-Range", r.ContentRange(media.Size))
	res.Set(echo.HeaderContentLength, strconv.FormatInt(r.Length(), 10))
	return c.Stream(http.StatusPartialContent, media.ContentType, body)
}

// serve streams a whole object. size is sent as Content-Length when known.
func (h *MediaHandler) serve(c echo.Context, key, contentType string, size int64) error {
	body, err := h.objects.Open(c.Request().Context(), key, 0, -1)
	if err != nil {
		return apperrors.Internal(err)
	}
	defer body.Close()

	if size >= 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
	}
	return c.Stream(http.StatusOK, contentType, body)
}
