package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	UploadURLTTL   time.Duration
	DownloadURLTTL time.Duration
}

// MinIOStorage implements ObjectStorage with presigned MinIO URLs.
type MinIOStorage struct {
	client         *minio.Client
	bucket         string
	uploadURLTTL   time.Duration
	downloadURLTTL time.Duration
	now            func() time.Time
}

// NewMinIOStorage creates the client and makes sure the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStorage{
		client:         client,
		bucket:         cfg.Bucket,
		uploadURLTTL:   cfg.UploadURLTTL,
		downloadURLTTL: cfg.DownloadURLTTL,
		now:            time.Now,
	}, nil
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateSignedUploadHandle implements ObjectStorage.
func (s *MinIOStorage) CreateSignedUploadHandle(
	ctx context.Context,
	sessionID string,
	sizeBytes int64,
) (_ *UploadHandle, err error) {
	objectID := ObjectKey(sessionID)
	ctx, span := tracer.Start(ctx, "minio.presign_put",
		trace.WithAttributes(
			attribute.String("object_key", objectID),
			attribute.Int64("size_bytes", sizeBytes),
		),
	)
	defer func() { finishSpan(span, err) }()

	expiresAt := s.now().Add(s.uploadURLTTL)
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectID, s.uploadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &UploadHandle{UploadURL: u.String(), ObjectID: objectID, ExpiresAt: expiresAt}, nil
}

// CreateSignedDownloadURL implements ObjectStorage.
func (s *MinIOStorage) CreateSignedDownloadURL(ctx context.Context, objectID string) (_ *DownloadURL, err error) {
	ctx, span := tracer.Start(ctx, "minio.presign_get",
		trace.WithAttributes(attribute.String("object_key", objectID)),
	)
	defer func() { finishSpan(span, err) }()

	expiresAt := s.now().Add(s.downloadURLTTL)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectID, s.downloadURLTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to presign download: %w", err)
	}

	return &DownloadURL{URL: u.String(), ExpiresAt: expiresAt}, nil
}

// DeleteObject implements ObjectStorage. Removing a missing object is not an error.
func (s *MinIOStorage) DeleteObject(ctx context.Context, objectID string) (err error) {
	ctx, span := tracer.Start(ctx, "minio.remove_object",
		trace.WithAttributes(attribute.String("object_key", objectID)),
	)
	defer func() { finishSpan(span, err) }()

	if err = s.client.RemoveObject(ctx, s.bucket, objectID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
