package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = b
	s.types[key] = contentType
	return nil
}

func (s *memStore) Open(_ context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	b = b[offset:]
	if length >= 0 {
		b = b[:length]
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type MockMediaRecords struct {
	mock.Mock
}

func (m *MockMediaRecords) Create(ctx context.Context, media *models.Media) error {
	return m.Called(ctx, media).Error(0)
}

// fileHeader builds a parsed multipart upload.
func fileHeader(t *testing.T, name, contentType, body string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="media"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["media"][0]
}

func TestUploaderUpload(t *testing.T) {
	store := newMemStore()
	records := new(MockMediaRecords)
	records.On("Create", mock.Anything, mock.AnythingOfType("*models.Media")).Return(nil)
	u := NewUploader(store, records)

	file := fileHeader(t, "clip.MP4", "video/mp4", "video-bytes")
	thumb := fileHeader(t, "thumb.jpg", "", "jpeg-bytes")

	media, err := u.Upload(context.Background(), "CITIZEN-SUBPOST", file, thumb)
	require.NoError(t, err)

	prefix := "citizen-subpost/" + media.ID.Hex()
	assert.Equal(t, prefix+".mp4", media.ObjectKey)
	assert.Equal(t, prefix+"_thumb.jpg", media.ThumbnailKey)
	assert.Equal(t, "video/mp4", media.ContentType)
	assert.Equal(t, "CITIZEN-SUBPOST", media.Type)
	assert.True(t, media.IsVideo())
	assert.Equal(t, []byte("video-bytes"), store.objects[media.ObjectKey])
	assert.Equal(t, "image/jpeg", store.types[media.ThumbnailKey])
	records.AssertExpectations(t)
}

func TestUploaderRemovesObjectsWhenRecordFails(t *testing.T) {
	store := newMemStore()
	records := new(MockMediaRecords)
	records.On("Create", mock.Anything, mock.Anything).Return(errors.New("mongo down"))
	u := NewUploader(store, records)

	_, err := u.Upload(context.Background(), "POST", fileHeader(t, "a.png", "image/png", "png"), nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "mongo down"))
	assert.Empty(t, store.objects)
}

func TestUploaderUploadAll(t *testing.T) {
	store := newMemStore()
	records := new(MockMediaRecords)
	records.On("Create", mock.Anything, mock.Anything).Return(nil)
	u := NewUploader(store, records)

	ids, err := u.UploadAll(context.Background(), "EVENT", []*multipart.FileHeader{
		fileHeader(t, "a.png", "image/png", "a"),
		fileHeader(t, "b.png", "image/png", "b"),
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Len(t, store.objects, 2)
}
