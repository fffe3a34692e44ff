// Package minio archives raw grade-book payloads for debugging portal
// structure drift. Archival is best-effort: callers log failures and
// continue.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// Internal adapter interface to enable mocking without a real MinIO server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// Wrapper to adapt *minio.Client to minioAPI.
type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}
func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Archive stores raw payloads under
// user-<id>/section-<id>/<timestamp>.json.
type Archive struct {
	api    minioAPI
	bucket string
}

// NewArchive creates an archive client using a real *minio.Client instance.
func NewArchive(ctx context.Context, client *minio.Client, bucket string) (*Archive, error) {
	return NewArchiveWithAPI(ctx, minioClientWrapper{c: client}, bucket)
}

// NewArchiveWithAPI allows injecting a mockable API (used in tests).
func NewArchiveWithAPI(ctx context.Context, api minioAPI, bucket string) (*Archive, error) {
	a := &Archive{
		api:    api,
		bucket: bucket,
	}

	if err := a.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return a, nil
}

func (a *Archive) ensureBucketExists(ctx context.Context) error {
	exists, err := a.api.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = a.api.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Store archives one section's raw payload and returns the object key.
func (a *Archive) Store(ctx context.Context, userID uuid.UUID, sectionID string, fetchedAt time.Time, payload []byte) (string, error) {
	key := ObjectKey(userID, sectionID, fetchedAt)
	_, err := a.api.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive payload: %w", err)
	}
	return key, nil
}

// Fetch retrieves an archived payload by key.
func (a *Archive) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := a.api.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get archived payload: %w", err)
	}
	return obj, nil
}

// ObjectKey builds the archive key for one fetch.
func ObjectKey(userID uuid.UUID, sectionID string, fetchedAt time.Time) string {
	return fmt.Sprintf("user-%s/section-%s/%s.json", userID, sectionID, fetchedAt.UTC().Format("20060102T150405Z"))
}
