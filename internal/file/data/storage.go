package data

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/4shil/axium/internal/file/biz"
)

// MinIOStorage implements biz.ObjectStorage against any S3-compatible
// object store. Clients transfer bytes directly using the presigned URLs;
// the engine itself never proxies file content.
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

func NewMinIOStorage(client *minio.Client, bucket string) biz.ObjectStorage {
	return &MinIOStorage{client: client, bucket: bucket}
}

func (s *MinIOStorage) IssueUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinIOStorage) IssueDownloadURL(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition",
		fmt.Sprintf("attachment; filename=%q", url.PathEscape(filename)))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}
	return u.String(), nil
}

// DeleteObject removes the backing bytes. Removing an absent key is
// treated as success so that purge retries stay idempotent.
func (s *MinIOStorage) DeleteObject(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}
