package services

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// blobStore is the subset of the S3 client the image service needs.
type blobStore interface {
	PresignGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignPutURL(ctx context.Context, key string, expiry time.Duration) (string, map[string]string, error)
	DeleteObject(ctx context.Context, key string) error
}

// ImageService turns stored object keys into short-lived URLs and mints upload
// slots for new product images.
type ImageService struct {
	store blobStore
	log   *zap.Logger
}

func NewImageService(store blobStore, log *zap.Logger) *ImageService {
	return &ImageService{store: store, log: log}
}

// Resolve returns a presigned GET URL for the key, nil when the key is empty
// or presigning fails. Listings render without an image rather than erroring.
func (s *ImageService) Resolve(ctx context.Context, key string) *string {
	if key == "" || s.store == nil {
		return nil
	}
	url, err := s.store.PresignGetURL(ctx, key, 15*time.Minute)
	if err != nil {
		s.log.Warn("Failed to presign image url", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &url
}

// UploadSlot is a presigned PUT destination for a new image.
type UploadSlot struct {
	Key     string            `json:"key"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// UploadURL mints a fresh object key under products/ and presigns a PUT to it.
func (s *ImageService) UploadURL(ctx context.Context) (*UploadSlot, *ServiceError) {
	if s.store == nil {
		return nil, NewServiceError(http.StatusServiceUnavailable, "image storage not configured")
	}
	key := "products/" + uuid.NewString()
	url, headers, err := s.store.PresignPutURL(ctx, key, 10*time.Minute)
	if err != nil {
		s.log.Error("Failed to presign upload url", zap.Error(err))
		return nil, ErrInternal
	}
	return &UploadSlot{Key: key, URL: url, Headers: headers}, nil
}

// Delete removes a stored image. Best-effort; callers treat failure as a
// warning since the owning record is already gone.
func (s *ImageService) Delete(ctx context.Context, key string) {
	if key == "" || s.store == nil {
		return
	}
	if err := s.store.DeleteObject(ctx, key); err != nil {
		s.log.Warn("Failed to delete image", zap.String("key", key), zap.Error(err))
	}
}
