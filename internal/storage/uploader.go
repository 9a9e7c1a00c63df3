package storage

import (
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/kashsbd/awlam-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaRecords persists media metadata.
type MediaRecords interface {
	Create(ctx context.Context, media *models.Media) error
}

// Uploader writes uploaded files to the object store and records them.
type Uploader struct {
	objects ObjectStore
	records MediaRecords
}

func NewUploader(objects ObjectStore, records MediaRecords) *Uploader {
	return &Uploader{objects: objects, records: records}
}

// Upload stores file under "<type>/<media id><ext>" and records it with the
// given media type. A thumbnail is stored next to it when provided.
func (u *Uploader) Upload(ctx context.Context, mediaType string, file, thumbnail *multipart.FileHeader) (*models.Media, error) {
	media := &models.Media{
		ID:           primitive.NewObjectID(),
		Type:         mediaType,
		ContentType:  contentType(file),
		OriginalName: file.Filename,
		Size:         file.Size,
		CreatedAt:    time.Now(),
	}
	prefix := strings.ToLower(mediaType) + "/" + media.ID.Hex()
	media.ObjectKey = prefix + strings.ToLower(path.Ext(file.Filename))

	if err := u.put(ctx, media.ObjectKey, file); err != nil {
		return nil, err
	}
	if thumbnail != nil {
		media.ThumbnailKey = prefix + "_thumb" + strings.ToLower(path.Ext(thumbnail.Filename))
		if err := u.put(ctx, media.ThumbnailKey, thumbnail); err != nil {
			_ = u.objects.Remove(ctx, media.ObjectKey)
			return nil, err
		}
	}

	if err := u.records.Create(ctx, media); err != nil {
		_ = u.objects.Remove(ctx, media.ObjectKey)
		if media.ThumbnailKey != "" {
			_ = u.objects.Remove(ctx, media.ThumbnailKey)
		}
		return nil, fmt.Errorf("failed to record media: %w", err)
	}
	return media, nil
}

// UploadAll uploads every file with the same media type. Uploads stop at the
// first failure; files stored before it are kept.
func (u *Uploader) UploadAll(ctx context.Context, mediaType string, files []*multipart.FileHeader) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(files))
	for _, fh := range files {
		media, err := u.Upload(ctx, mediaType, fh, nil)
		if err != nil {
			return ids, err
		}
		ids = append(ids, media.ID)
	}
	return ids, nil
}

func (u *Uploader) put(ctx context.Context, key string, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()
	return u.objects.Put(ctx, key, f, fh.Size, contentType(fh))
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(path.Ext(fh.Filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
