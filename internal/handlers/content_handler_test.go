package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kashsbd/awlam-backend/internal/fanout"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contentFixture struct {
	e        *echo.Echo
	contents map[string]*MockContentRepository
	comments *MockCommentRepository
	users    *MockUserRepository
	fanout   *MockFanout
	uploader *MockUploader
	search   *MockSearcher

	alice primitive.ObjectID
	token string
}

func newContentFixture(t *testing.T, d *fanout.Descriptor, role string) *contentFixture {
	return newContentFixtureWithSearch(t, d, role, nil)
}

func newContentFixtureWithSearch(t *testing.T, d *fanout.Descriptor, role string, search *MockSearcher) *contentFixture {
	e, _, api := newTestServer()
	f := &contentFixture{
		e:        e,
		contents: map[string]*MockContentRepository{},
		comments: new(MockCommentRepository),
		users:    new(MockUserRepository),
		fanout:   new(MockFanout),
		uploader: new(MockUploader),
		search:   search,
		alice:    primitive.NewObjectID(),
	}
	f.token = tokenFor(t, f.alice, role)

	deps := ContentDeps{
		Contents: func(collection string) repositories.ContentRepository {
			return f.store(collection)
		},
		Comments: f.comments,
		Users:    f.users,
		Fanout:   f.fanout,
		Uploader: f.uploader,
	}
	if f.search != nil {
		deps.Search = f.search
	}
	NewContentHandler(d, deps).RegisterContentRoutes(api)
	return f
}

func (f *contentFixture) store(collection string) *MockContentRepository {
	m, ok := f.contents[collection]
	if !ok {
		m = new(MockContentRepository)
		f.contents[collection] = m
	}
	return m
}

func (f *contentFixture) do(method, path, body string) *httptest.ResponseRecorder {
	return doJSON(f.e, method, path, f.token, body)
}

func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestReactAnswersOKWhetherOrNotChanged(t *testing.T) {
	f := newContentFixture(t, fanout.Citizen, models.RoleNormal)
	id := primitive.NewObjectID().Hex()

	f.fanout.On("React", mock.Anything, fanout.Citizen, id, f.alice, models.ReactionLike).
		Return(&models.ContentItem{}, true, nil).Once()
	f.fanout.On("React", mock.Anything, fanout.Citizen, id, f.alice, models.ReactionLike).
		Return(&models.ContentItem{}, false, nil).Once()

	for i := 0; i < 2; i++ {
		rec := f.do(http.MethodPost, "/api/v1/citizens/"+id+"/like", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"OK"}`, rec.Body.String())
	}
	f.fanout.AssertExpectations(t)
}

func TestReactOnSubPostUsesSubDescriptor(t *testing.T) {
	f := newContentFixture(t, fanout.Citizen, models.RoleNormal)
	id := primitive.NewObjectID().Hex()
	f.fanout.On("React", mock.Anything, fanout.SubCitizen, id, f.alice, models.ReactionDislike).
		Return(&models.ContentItem{}, true, nil)

	rec := f.do(http.MethodPost, "/api/v1/citizens/subposts/"+id+"/dislike", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	f.fanout.AssertExpectations(t)
}

func TestReactOnMissingContent(t *testing.T) {
	f := newContentFixture(t, fanout.Topic, models.RoleNormal)
	id := primitive.NewObjectID().Hex()
	f.fanout.On("React", mock.Anything, fanout.Topic, id, f.alice, models.ReactionUnlike).
		Return(nil, false, repositories.ErrNotFound)

	rec := f.do(http.MethodPost, "/api/v1/topics/"+id+"/unlike", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec.Body.Bytes())
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]interface{})["code"])
}

func TestReactRequiresToken(t *testing.T) {
	f := newContentFixture(t, fanout.Post, models.RoleNormal)
	rec := doJSON(f.e, http.MethodPost, "/api/v1/posts/"+primitive.NewObjectID().Hex()+"/like", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.fanout.AssertNotCalled(t, "React", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListCitizensHidesUnapprovedFromNonAdmins(t *testing.T) {
	tests := []struct {
		role         string
		wantApproved bool
	}{
		{models.RoleNormal, true},
		{models.RoleAdmin, false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			f := newContentFixture(t, fanout.Citizen, tt.role)
			f.store("citizens").On("Paginate", mock.Anything, mock.MatchedBy(func(filter bson.M) bool {
				_, hasApproved := filter["isApproved"]
				return filter["isAvailable"] == true && hasApproved == tt.wantApproved
			}), 2, models.DefaultPageSize).Return([]models.ContentItem{{ID: primitive.NewObjectID()}}, int64(11), nil)

			rec := f.do(http.MethodGet, "/api/v1/citizens?page=2", "")

			require.Equal(t, http.StatusOK, rec.Code)
			body := decode(t, rec.Body.Bytes())
			meta := body["meta"].(map[string]interface{})
			assert.Equal(t, float64(2), meta["currentPage"])
			assert.Equal(t, float64(2), meta["totalPages"])
			assert.Equal(t, false, meta["hasNextPage"])
			assert.Len(t, body["data"].(map[string]interface{})["citizens"], 1)
		})
	}
}

func TestApproveRequiresAdmin(t *testing.T) {
	f := newContentFixture(t, fanout.Citizen, models.RoleNormal)
	rec := f.do(http.MethodPost, "/api/v1/citizens/"+primitive.NewObjectID().Hex()+"/approve", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApproveNotifiesOwner(t *testing.T) {
	f := newContentFixture(t, fanout.Citizen, models.RoleAdmin)
	item := &models.ContentItem{ID: primitive.NewObjectID(), User: primitive.NewObjectID(), IsApproved: true}
	f.store("citizens").On("Approve", mock.Anything, item.ID.Hex(), f.alice).Return(item, nil)
	f.fanout.On("NotifyApproved", mock.Anything, fanout.Citizen, item).Return(&models.Notification{})

	rec := f.do(http.MethodPost, "/api/v1/citizens/"+item.ID.Hex()+"/approve", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	f.fanout.AssertExpectations(t)
}

func TestCreateCommentPopulatesCommentor(t *testing.T) {
	f := newContentFixture(t, fanout.Event, models.RoleNormal)
	id := primitive.NewObjectID().Hex()
	bob := primitive.NewObjectID().Hex()

	comment := &models.Comment{
		ID:        primitive.NewObjectID(),
		Type:      "EVENT",
		CmtOwner:  id,
		Commentor: f.alice,
		Message:   "see you there",
	}
	f.fanout.On("Comment", mock.Anything, fanout.Event, id, f.alice, mock.MatchedBy(func(in fanout.CommentInput) bool {
		return in.Message == "see you there" && len(in.Mentions) == 1 && in.Mentions[0].UserID == bob
	})).Return(comment, &models.ContentItem{}, nil)
	f.users.On("FindSummaries", mock.Anything, []primitive.ObjectID{f.alice}).
		Return([]models.UserSummary{{ID: f.alice, Name: "Alice", Role: models.RoleNormal}}, nil)

	rec := f.do(http.MethodPost, "/api/v1/events/"+id+"/comments",
		`{"message":"see you there","mentions":[{"user_id":"`+bob+`","name":"Bob"}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec.Body.Bytes())
	got := body["data"].(map[string]interface{})["comment"].(map[string]interface{})
	assert.Equal(t, "see you there", got["message"])
	assert.Equal(t, "Alice", got["commentor"].(map[string]interface{})["name"])
}

func TestCreateCommentValidatesBody(t *testing.T) {
	f := newContentFixture(t, fanout.Event, models.RoleNormal)
	rec := f.do(http.MethodPost, "/api/v1/events/"+primitive.NewObjectID().Hex()+"/comments", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.fanout.AssertNotCalled(t, "Comment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCommentOnMissingContent(t *testing.T) {
	f := newContentFixture(t, fanout.Post, models.RoleNormal)
	id := primitive.NewObjectID().Hex()
	f.fanout.On("Comment", mock.Anything, fanout.Post, id, f.alice, mock.Anything).
		Return(nil, nil, repositories.ErrNotFound)

	rec := f.do(http.MethodPost, "/api/v1/posts/"+id+"/comments", `{"message":"hello"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReactionsRelations(t *testing.T) {
	f := newContentFixture(t, fanout.Post, models.RoleNormal)
	bob, carol := primitive.NewObjectID(), primitive.NewObjectID()
	item := &models.ContentItem{
		ID:       primitive.NewObjectID(),
		Likes:    []primitive.ObjectID{f.alice, bob},
		Dislikes: []primitive.ObjectID{carol},
	}
	f.store("posts").On("FindByID", mock.Anything, item.ID.Hex()).Return(item, nil)
	f.users.On("FindByID", mock.Anything, f.alice.Hex()).
		Return(&models.User{ID: f.alice, FollowingLists: []primitive.ObjectID{bob}}, nil)
	f.users.On("FindSummaries", mock.Anything, item.Likes).
		Return([]models.UserSummary{{ID: f.alice, Name: "Alice"}, {ID: bob, Name: "Bob"}}, nil)
	f.users.On("FindSummaries", mock.Anything, item.Dislikes).
		Return([]models.UserSummary{{ID: carol, Name: "Carol"}}, nil)

	rec := f.do(http.MethodGet, "/api/v1/posts/"+item.ID.Hex()+"/reactions", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Likes    []models.Reactor `json:"likes"`
			Dislikes []models.Reactor `json:"dislikes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Likes, 2)
	assert.Equal(t, models.RelationYou, body.Data.Likes[0].Relation)
	assert.Equal(t, models.RelationUnfollow, body.Data.Likes[1].Relation)
	require.Len(t, body.Data.Dislikes, 1)
	assert.Equal(t, models.RelationFollow, body.Data.Dislikes[0].Relation)
}

func TestCreateEventInvitesUsers(t *testing.T) {
	f := newContentFixture(t, fanout.Event, models.RoleNormal)
	invitee := primitive.NewObjectID()
	f.store("events").On("Create", mock.Anything, mock.MatchedBy(func(item *models.ContentItem) bool {
		return item.EventName == "Cleanup" && item.User == f.alice && item.IsPublic && item.IsApproved
	})).Return(nil)
	f.fanout.On("NotifyInvited", mock.Anything, fanout.Event, models.ActionCreate, mock.Anything,
		[]primitive.ObjectID{invitee}).Return(&models.Notification{})

	rec := f.do(http.MethodPost, "/api/v1/events",
		`{"event_name":"Cleanup","start_date_time":"2026-11-01T09:00:00Z","invited_users":["`+invitee.Hex()+`"]}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	f.fanout.AssertExpectations(t)
}

func TestCreateCitizenAwaitsApproval(t *testing.T) {
	f := newContentFixture(t, fanout.Citizen, models.RoleNormal)
	f.store("citizens").On("Create", mock.Anything, mock.MatchedBy(func(item *models.ContentItem) bool {
		return !item.IsApproved && item.Location != nil && item.Location.Name == "Main St"
	})).Return(nil)

	rec := f.do(http.MethodPost, "/api/v1/citizens", `{"description":"pothole","location_name":"Main St"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	f.fanout.AssertNotCalled(t, "NotifyInvited", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSubPostNotifiesParentOwner(t *testing.T) {
	f := newContentFixture(t, fanout.Topic, models.RoleNormal)
	parent := &models.ContentItem{ID: primitive.NewObjectID(), User: primitive.NewObjectID()}
	f.store("topics").On("FindByID", mock.Anything, parent.ID.Hex()).Return(parent, nil)
	f.store("topicposts").On("Create", mock.Anything, mock.MatchedBy(func(item *models.ContentItem) bool {
		return item.PostOwner != nil && *item.PostOwner == parent.ID
	})).Return(nil)
	f.fanout.On("NotifyFollowUp", mock.Anything, fanout.SubTopic, mock.Anything, parent).Return(&models.Notification{})

	rec := f.do(http.MethodPost, "/api/v1/topics/"+parent.ID.Hex()+"/subposts", `{"description":"update"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	f.fanout.AssertExpectations(t)
}

func TestPrivateTopicCannotBeSubscribed(t *testing.T) {
	f := newContentFixture(t, fanout.Topic, models.RoleNormal)
	topic := &models.ContentItem{ID: primitive.NewObjectID(), IsPublic: false}
	f.store("topics").On("FindByID", mock.Anything, topic.ID.Hex()).Return(topic, nil)

	rec := f.do(http.MethodPost, "/api/v1/topics/"+topic.ID.Hex()+"/subscribe", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	f.store("topics").AssertNotCalled(t, "AddToSet", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublicTopicSubscribe(t *testing.T) {
	f := newContentFixture(t, fanout.Topic, models.RoleNormal)
	topic := &models.ContentItem{ID: primitive.NewObjectID(), IsPublic: true}
	f.store("topics").On("FindByID", mock.Anything, topic.ID.Hex()).Return(topic, nil)
	f.store("topics").On("AddToSet", mock.Anything, topic.ID.Hex(), "subscribed_users", f.alice).Return(topic, true, nil)

	rec := f.do(http.MethodPost, "/api/v1/topics/"+topic.ID.Hex()+"/subscribe", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	f.store("topics").AssertExpectations(t)
}

func TestEventAttendance(t *testing.T) {
	f := newContentFixture(t, fanout.Event, models.RoleNormal)
	id := primitive.NewObjectID().Hex()
	f.fanout.On("Attend", mock.Anything, fanout.Event, id, f.alice, "going", true).Return(&models.ContentItem{}, true, nil)
	f.fanout.On("Attend", mock.Anything, fanout.Event, id, f.alice, "interested", false).Return(&models.ContentItem{}, false, nil)

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/events/"+id+"/going", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/events/"+id+"/uninterested", "").Code)
	f.fanout.AssertExpectations(t)
}

func TestSearchWithoutBackend(t *testing.T) {
	f := newContentFixture(t, fanout.Post, models.RoleNormal)
	rec := f.do(http.MethodGet, "/api/v1/posts/search?q=flood", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) IndexContent(ctx context.Context, index string, item *models.ContentItem) error {
	return m.Called(ctx, index, item).Error(0)
}

func (m *MockSearcher) SearchIDs(ctx context.Context, index string, fields []string, query string) ([]primitive.ObjectID, error) {
	args := m.Called(ctx, index, fields, query)
	ids, _ := args.Get(0).([]primitive.ObjectID)
	return ids, args.Error(1)
}

func TestSearchPaginatesMatchedIDs(t *testing.T) {
	search := new(MockSearcher)
	f := newContentFixtureWithSearch(t, fanout.Government, models.RoleNormal, search)
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}
	search.On("SearchIDs", mock.Anything, "governments", fanout.Government.SearchFields, "water supply").Return(ids, nil)
	f.store("governments").On("Paginate", mock.Anything, mock.MatchedBy(func(filter bson.M) bool {
		in, ok := filter["_id"].(bson.M)
		return ok && assert.ObjectsAreEqual(ids, in["$in"]) && filter["isAvailable"] == true
	}), 1, models.DefaultPageSize).Return([]models.ContentItem{{ID: ids[0]}, {ID: ids[1]}}, int64(2), nil)

	rec := f.do(http.MethodGet, "/api/v1/governments/search?query=water+supply", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec.Body.Bytes())["data"].(map[string]interface{})["governments"], 2)
}

func TestSearchWithoutMatchesSkipsStore(t *testing.T) {
	search := new(MockSearcher)
	f := newContentFixtureWithSearch(t, fanout.Post, models.RoleNormal, search)
	search.On("SearchIDs", mock.Anything, "posts", mock.Anything, "nothing").Return([]primitive.ObjectID{}, nil)

	rec := f.do(http.MethodGet, "/api/v1/posts/search?q=nothing", "")

	require.Equal(t, http.StatusOK, rec.Code)
	f.store("posts").AssertNotCalled(t, "Paginate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateIndexesContent(t *testing.T) {
	search := new(MockSearcher)
	f := newContentFixtureWithSearch(t, fanout.Post, models.RoleNormal, search)
	f.store("posts").On("Create", mock.Anything, mock.Anything).Return(nil)
	search.On("IndexContent", mock.Anything, "posts", mock.Anything).Return(errors.New("es down"))

	rec := f.do(http.MethodPost, "/api/v1/posts", `{"status":"hello","hashTags":["news"]}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	search.AssertExpectations(t)
}
