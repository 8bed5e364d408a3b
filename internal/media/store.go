// Package media uploads message attachments to S3-compatible object
// storage and hands back presigned URLs for the message's media_url
// column.
package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/TvogInc/ConnectHub/internal/util"
	"github.com/TvogInc/ConnectHub/pkg/domain"
)

// Store provides access to attachment storage.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// MinioStore implements Store for MinIO/S3 compatible storage.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the endpoint and ensures the bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init media client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// Put uploads an attachment.
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put attachment: %w", err)
	}
	return nil
}

// PresignGet generates a pre-signed GET URL.
func (m *MinioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign attachment: %w", err)
	}
	return url.String(), nil
}

// Delete removes an attachment.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// presignExpiry bounds how long a shared attachment link stays valid.
const presignExpiry = 7 * 24 * time.Hour

// Upload stores an attachment under a fresh key and returns the URL and
// media type to embed in the outgoing message.
func Upload(ctx context.Context, store Store, r io.Reader, size int64, contentType string) (string, domain.MediaType, error) {
	key := util.NewID()
	if err := store.Put(ctx, key, r, size, contentType); err != nil {
		return "", "", err
	}
	url, err := store.PresignGet(ctx, key, presignExpiry)
	if err != nil {
		return "", "", err
	}
	return url, TypeOf(contentType), nil
}

// TypeOf maps a MIME content type onto the message media_type column.
func TypeOf(contentType string) domain.MediaType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return domain.MediaImage
	case strings.HasPrefix(contentType, "video/"):
		return domain.MediaVideo
	case strings.HasPrefix(contentType, "audio/"):
		return domain.MediaAudio
	default:
		return domain.MediaFile
	}
}
