package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// S3Config holds AWS S3 (or S3-compatible) settings. Static credentials are optional; when
// empty the default AWS credential chain is used.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseEndpoint    string
	UploadURLTTL    time.Duration
	DownloadURLTTL  time.Duration
}

type s3Presigner interface {
	PresignPutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.PresignOptions),
	) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(
		ctx context.Context,
		params *s3.GetObjectInput,
		optFns ...func(*s3.PresignOptions),
	) (*v4.PresignedHTTPRequest, error)
}

type s3ObjectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage implements ObjectStorage with presigned S3 requests.
type S3Storage struct {
	presigner      s3Presigner
	deleter        s3ObjectDeleter
	bucket         string
	uploadURLTTL   time.Duration
	downloadURLTTL time.Duration
	now            func() time.Time
}

// NewS3Storage loads the AWS configuration and builds the S3 and presign clients.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Storage(s3.NewPresignClient(client), client, cfg), nil
}

func newS3Storage(presigner s3Presigner, deleter s3ObjectDeleter, cfg S3Config) *S3Storage {
	return &S3Storage{
		presigner:      presigner,
		deleter:        deleter,
		bucket:         cfg.Bucket,
		uploadURLTTL:   cfg.UploadURLTTL,
		downloadURLTTL: cfg.DownloadURLTTL,
		now:            time.Now,
	}
}

// CreateSignedUploadHandle implements ObjectStorage.
func (s *S3Storage) CreateSignedUploadHandle(
	ctx context.Context,
	sessionID string,
	sizeBytes int64,
) (_ *UploadHandle, err error) {
	objectID := ObjectKey(sessionID)
	ctx, span := tracer.Start(ctx, "s3.presign_put",
		trace.WithAttributes(
			attribute.String("object_key", objectID),
			attribute.Int64("size_bytes", sizeBytes),
		),
	)
	defer func() { finishSpan(span, err) }()

	expiresAt := s.now().Add(s.uploadURLTTL)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectID),
		ContentLength: aws.Int64(sizeBytes),
	}, s3.WithPresignExpires(s.uploadURLTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &UploadHandle{UploadURL: req.URL, ObjectID: objectID, ExpiresAt: expiresAt}, nil
}

// CreateSignedDownloadURL implements ObjectStorage.
func (s *S3Storage) CreateSignedDownloadURL(ctx context.Context, objectID string) (_ *DownloadURL, err error) {
	ctx, span := tracer.Start(ctx, "s3.presign_get",
		trace.WithAttributes(attribute.String("object_key", objectID)),
	)
	defer func() { finishSpan(span, err) }()

	expiresAt := s.now().Add(s.downloadURLTTL)
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectID),
	}, s3.WithPresignExpires(s.downloadURLTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to presign download: %w", err)
	}

	return &DownloadURL{URL: req.URL, ExpiresAt: expiresAt}, nil
}

// DeleteObject implements ObjectStorage.
func (s *S3Storage) DeleteObject(ctx context.Context, objectID string) (err error) {
	ctx, span := tracer.Start(ctx, "s3.delete_object",
		trace.WithAttributes(attribute.String("object_key", objectID)),
	)
	defer func() { finishSpan(span, err) }()

	if _, err = s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectID),
	}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
