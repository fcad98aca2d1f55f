package place

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ImageStore interface {
	PutImage(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	GetImage(ctx context.Context, key string) (io.ReadCloser, string, error)
	DeleteImage(ctx context.Context, key string) error
}

const imageKeyPrefix = "images/"

// MinioImageStore keeps image assets in an S3-compatible bucket. The key it returns is
// what Place.Image refers to.
type MinioImageStore struct {
	client *minio.Client
	bucket string
}

func NewMinioImageStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*MinioImageStore, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing one or more required settings: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	slog.Info("Connected to MinIO endpoint", slog.String("minio.endpoint", endpoint))
	return &MinioImageStore{client: client, bucket: bucket}, nil
}

func (s *MinioImageStore) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
	}
	return nil
}

func (s *MinioImageStore) PutImage(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	key := ImageKey(name, uuid.NewString())

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	slog.Info("Stored place image", slog.String("place.name", name), slog.String("image.key", key))
	return key, nil
}

func (s *MinioImageStore) GetImage(ctx context.Context, key string) (io.ReadCloser, string, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", fmt.Errorf("%w: image %s", ErrNotFound, key)
		}
		return nil, "", fmt.Errorf("failed to stat image: %w", err)
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get image: %w", err)
	}
	return object, info.ContentType, nil
}

func (s *MinioImageStore) DeleteImage(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	slog.Info("Removed place image", slog.String("image.key", key))
	return nil
}

// ImageKey builds "images/<name>/<id>" with the name lower-cased and spaces replaced.
func ImageKey(name, id string) string {
	return imageKeyPrefix + sanitizeKey(name) + "/" + id
}

// isImageKey reports whether an Image value is an object key written by PutImage rather
// than a reference set by a client.
func isImageKey(image string) bool {
	return strings.HasPrefix(image, imageKeyPrefix)
}

func sanitizeKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return strings.ToLower(s)
}
