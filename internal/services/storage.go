package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/classweek-backend/internal/platform/dbctx"
	"github.com/yungbote/classweek-backend/internal/platform/gcp"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

type StoredFile struct {
	URL string
	ID  string
}

// FileStorage is the object store behind homework uploads and downloads.
type FileStorage interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (StoredFile, error)
	Open(ctx context.Context, url string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
}

type bucketFileStorage struct {
	log    *logger.Logger
	bucket gcp.BucketService
}

func NewBucketFileStorage(log *logger.Logger, bucket gcp.BucketService) FileStorage {
	return &bucketFileStorage{log: log.With("service", "FileStorage"), bucket: bucket}
}

func (s *bucketFileStorage) Upload(ctx context.Context, key string, r io.Reader, contentType string) (StoredFile, error) {
	if strings.TrimSpace(contentType) == "" {
		contentType = gcp.ContentTypeForKey(key)
	}
	if err := s.bucket.UploadFile(dbctx.With(ctx), gcp.BucketCategorySubmission, key, r, contentType); err != nil {
		return StoredFile{}, err
	}
	return StoredFile{URL: s.bucket.GetPublicURL(gcp.BucketCategorySubmission, key), ID: key}, nil
}

func (s *bucketFileStorage) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	key, ok := s.bucket.KeyFromURL(gcp.BucketCategorySubmission, url)
	if !ok {
		return nil, fmt.Errorf("url does not belong to the submission bucket")
	}
	return s.bucket.DownloadFile(ctx, gcp.BucketCategorySubmission, key)
}

func (s *bucketFileStorage) Delete(ctx context.Context, id string) error {
	return s.bucket.DeleteFile(dbctx.With(ctx), gcp.BucketCategorySubmission, id)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// submissionObjectKey namespaces uploads per student, week and material. The random
// segment keeps a losing concurrent upload from overwriting the winner's object.
func submissionObjectKey(studentID, weekID uuid.UUID, materialID, fileName string) string {
	base := unsafeFileChars.ReplaceAllString(path.Base(strings.ReplaceAll(fileName, "\\", "/")), "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "upload"
	}
	material := unsafeFileChars.ReplaceAllString(materialID, "_")
	return fmt.Sprintf("submissions/%s/%s/%s/%s-%s", studentID, weekID, material, uuid.NewString()[:8], base)
}
