package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/fanout"
	"github.com/kashsbd/awlam-backend/internal/middleware"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/pkg/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "handler-test-secret"

// newTestServer returns an echo instance configured like the real router
// with a JWT protected group at /api/v1.
func newTestServer() (*echo.Echo, *echo.Group, *echo.Group) {
	e := echo.New()
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler
	e.Validator = validators.NewValidator()
	public := e.Group("/api/v1")
	api := e.Group("/api/v1", middleware.JWTAuthMiddleware(testSecret))
	return e, public, api
}

func tokenFor(t *testing.T, userID primitive.ObjectID, role string) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID: userID.Hex(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// MockContentRepository mocks repositories.ContentRepository
type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	args := m.Called(ctx, item)
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockContentRepository) FindByID(ctx context.Context, id string) (*models.ContentItem, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Error(1)
}

func (m *MockContentRepository) Paginate(ctx context.Context, filter bson.M, page, limit int) ([]models.ContentItem, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *MockContentRepository) PaginatePopular(ctx context.Context, filter bson.M, page, limit int) ([]models.ContentItem, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *MockContentRepository) FindAll(ctx context.Context, filter bson.M, limit int) ([]models.ContentItem, error) {
	args := m.Called(ctx, filter, limit)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Error(1)
}

func (m *MockContentRepository) ApplyReaction(ctx context.Context, id string, userID primitive.ObjectID, reaction models.Reaction) (*models.ContentItem, bool, error) {
	args := m.Called(ctx, id, userID, reaction)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Bool(1), args.Error(2)
}

func (m *MockContentRepository) AppendComment(ctx context.Context, id string, commentID primitive.ObjectID) (*models.ContentItem, error) {
	args := m.Called(ctx, id, commentID)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Error(1)
}

func (m *MockContentRepository) AddToSet(ctx context.Context, id, field string, userID primitive.ObjectID) (*models.ContentItem, bool, error) {
	args := m.Called(ctx, id, field, userID)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Bool(1), args.Error(2)
}

func (m *MockContentRepository) RemoveFromSet(ctx context.Context, id, field string, userID primitive.ObjectID) (*models.ContentItem, bool, error) {
	args := m.Called(ctx, id, field, userID)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Bool(1), args.Error(2)
}

func (m *MockContentRepository) Approve(ctx context.Context, id string, adminID primitive.ObjectID) (*models.ContentItem, error) {
	args := m.Called(ctx, id, adminID)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Error(1)
}

// MockCommentRepository mocks repositories.CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	comment.ID = primitive.NewObjectID()
	return args.Error(0)
}

func (m *MockCommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	args := m.Called(ctx, id)
	cmt, _ := args.Get(0).(*models.Comment)
	return cmt, args.Error(1)
}

func (m *MockCommentRepository) Paginate(ctx context.Context, kind, owner string, page, limit int) ([]models.Comment, int64, error) {
	args := m.Called(ctx, kind, owner, page, limit)
	comments, _ := args.Get(0).([]models.Comment)
	return comments, args.Get(1).(int64), args.Error(2)
}

func (m *MockCommentRepository) Like(ctx context.Context, id string, userID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommentRepository) Unlike(ctx context.Context, id string, userID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommentRepository) AppendReply(ctx context.Context, parentID string, replyID primitive.ObjectID) error {
	return m.Called(ctx, parentID, replyID).Error(0)
}

// MockUserRepository mocks repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	user.ID = primitive.NewObjectID()
	if user.Role == "" {
		user.Role = models.RoleNormal
	}
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	args := m.Called(ctx, ids)
	s, _ := args.Get(0).([]models.UserSummary)
	return s, args.Error(1)
}

func (m *MockUserRepository) LinkFirebaseUID(ctx context.Context, userID primitive.ObjectID, uid string) error {
	return m.Called(ctx, userID, uid).Error(0)
}

func (m *MockUserRepository) SetProfile(ctx context.Context, userID, mediaID primitive.ObjectID) error {
	return m.Called(ctx, userID, mediaID).Error(0)
}

func (m *MockUserRepository) PaginateByIDs(ctx context.Context, ids []primitive.ObjectID, page, limit int) ([]models.UserSummary, int64, error) {
	args := m.Called(ctx, ids, page, limit)
	s, _ := args.Get(0).([]models.UserSummary)
	return s, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) PaginateActiveByIDs(ctx context.Context, ids []primitive.ObjectID, page, limit int) ([]models.UserSummary, int64, error) {
	args := m.Called(ctx, ids, page, limit)
	s, _ := args.Get(0).([]models.UserSummary)
	return s, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) SearchNames(ctx context.Context, ids []primitive.ObjectID, query string) ([]models.UserSummary, error) {
	args := m.Called(ctx, ids, query)
	s, _ := args.Get(0).([]models.UserSummary)
	return s, args.Error(1)
}

func (m *MockUserRepository) Suggestions(ctx context.Context, user *models.User, page, limit int) ([]models.UserSummary, int64, error) {
	args := m.Called(ctx, user, page, limit)
	s, _ := args.Get(0).([]models.UserSummary)
	return s, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) AppendPendingNotification(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *MockUserRepository) RemovePendingNotification(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	return m.Called(ctx, userID, notificationID).Error(0)
}

func (m *MockUserRepository) UpsertPlayerID(ctx context.Context, userID primitive.ObjectID, playerID, status string) error {
	return m.Called(ctx, userID, playerID, status).Error(0)
}

func (m *MockUserRepository) SetPlayerStatus(ctx context.Context, userID primitive.ObjectID, playerID, status string) error {
	return m.Called(ctx, userID, playerID, status).Error(0)
}

func (m *MockUserRepository) RemovePlayerID(ctx context.Context, userID primitive.ObjectID, playerID string) error {
	return m.Called(ctx, userID, playerID).Error(0)
}

func (m *MockUserRepository) Follow(ctx context.Context, followerID, followeeID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Unfollow(ctx context.Context, followerID, followeeID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

// MockNotificationRepository mocks repositories.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

func (m *MockNotificationRepository) FindUnsaved(ctx context.Context, ids []primitive.ObjectID, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, ids, limit)
	n, _ := args.Get(0).([]models.Notification)
	return n, args.Error(1)
}

func (m *MockNotificationRepository) MarkSaved(ctx context.Context, id string) (*models.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

// MockMediaRepository mocks repositories.MediaRepository
type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) Create(ctx context.Context, media *models.Media) error {
	return m.Called(ctx, media).Error(0)
}

func (m *MockMediaRepository) FindByID(ctx context.Context, id string) (*models.Media, error) {
	args := m.Called(ctx, id)
	media, _ := args.Get(0).(*models.Media)
	return media, args.Error(1)
}

// MockFanout mocks the fan-out engine
type MockFanout struct {
	mock.Mock
}

func (m *MockFanout) React(ctx context.Context, d *fanout.Descriptor, id string, actor primitive.ObjectID, reaction models.Reaction) (*models.ContentItem, bool, error) {
	args := m.Called(ctx, d, id, actor, reaction)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Bool(1), args.Error(2)
}

func (m *MockFanout) Comment(ctx context.Context, d *fanout.Descriptor, id string, actor primitive.ObjectID, in fanout.CommentInput) (*models.Comment, *models.ContentItem, error) {
	args := m.Called(ctx, d, id, actor, in)
	cmt, _ := args.Get(0).(*models.Comment)
	item, _ := args.Get(1).(*models.ContentItem)
	return cmt, item, args.Error(2)
}

func (m *MockFanout) Attend(ctx context.Context, d *fanout.Descriptor, id string, actor primitive.ObjectID, field string, add bool) (*models.ContentItem, bool, error) {
	args := m.Called(ctx, d, id, actor, field, add)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Bool(1), args.Error(2)
}

func (m *MockFanout) NotifyApproved(ctx context.Context, d *fanout.Descriptor, item *models.ContentItem) *models.Notification {
	n, _ := m.Called(ctx, d, item).Get(0).(*models.Notification)
	return n
}

func (m *MockFanout) NotifyFollowUp(ctx context.Context, sub *fanout.Descriptor, item, parent *models.ContentItem) *models.Notification {
	n, _ := m.Called(ctx, sub, item, parent).Get(0).(*models.Notification)
	return n
}

func (m *MockFanout) NotifyInvited(ctx context.Context, d *fanout.Descriptor, action string, item *models.ContentItem, invitees []primitive.ObjectID) *models.Notification {
	n, _ := m.Called(ctx, d, action, item, invitees).Get(0).(*models.Notification)
	return n
}

// MockUploader mocks MediaUploader and ProfileUploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadAll(ctx context.Context, mediaType string, files []*multipart.FileHeader) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, mediaType, files)
	ids, _ := args.Get(0).([]primitive.ObjectID)
	return ids, args.Error(1)
}

func (m *MockUploader) Upload(ctx context.Context, mediaType string, file, thumbnail *multipart.FileHeader) (*models.Media, error) {
	args := m.Called(ctx, mediaType, file, thumbnail)
	media, _ := args.Get(0).(*models.Media)
	return media, args.Error(1)
}

// memObjects is an in-memory storage.ObjectStore.
type memObjects map[string][]byte

func (s memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s[key] = b
	return nil
}

func (s memObjects) Open(_ context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	b, ok := s[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	b = b[offset:]
	if length >= 0 {
		b = b[:length]
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s memObjects) Remove(_ context.Context, key string) error {
	delete(s, key)
	return nil
}
