// Package s3blob implements the filevault.BlobStore interface over any
// S3-compatible object store (AWS S3, MinIO, Ceph RGW). Single objects go
// through plain PutObject/GetObject; archive uploads stream through the SDK's
// multipart upload manager so memory stays bounded by part size.
package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/sagarc03/filevault"
)

// Config holds connection settings for the object store.
type Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket" validate:"required"`
	Endpoint  string `mapstructure:"endpoint"` // empty for AWS; set for MinIO and friends
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	// UsePathStyle addresses the bucket in the path instead of the host,
	// required by most non-AWS stores.
	UsePathStyle bool `mapstructure:"use_path_style"`
}

// objectAPI is the slice of the S3 client the store calls directly.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type uploadAPI interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Store is a filevault.BlobStore backed by one S3 bucket.
type Store struct {
	bucket   string
	client   objectAPI
	presign  presignAPI
	uploader uploadAPI
}

// New builds a Store from static credentials. The client, presigner, and
// multipart uploader are constructed once and shared for the process
// lifetime.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3blob: empty bucket")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{
		bucket:   cfg.Bucket,
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
	}, nil
}

// Put writes the full content of r under key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob put %s: %w: %w", key, filevault.ErrUpstream, err)
	}
	return nil
}

// GetStream opens the object under key for reading. The caller closes the
// returned body.
func (s *Store) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3blob get %s: %w", key, filevault.ErrNotFound)
		}
		return nil, fmt.Errorf("s3blob get %s: %w: %w", key, filevault.ErrUpstream, err)
	}
	return out.Body, nil
}

// Delete removes the object under key. A key that is already gone is
// success.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("s3blob delete %s: %w: %w", key, filevault.ErrUpstream, err)
	}
	return nil
}

// Upload streams r into the object under key using multipart chunking. It
// returns once the last part is committed or r fails.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob upload %s: %w: %w", key, filevault.ErrUpstream, err)
	}
	return nil
}

// PresignGet issues a signed GET URL for the object under key, carrying the
// response header overrides from opts.
func (s *Store) PresignGet(ctx context.Context, key string, opts filevault.PresignOptions) (string, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}

	switch opts.Disposition {
	case filevault.DispositionAttachment:
		in.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", opts.Filename))
	default:
		in.ResponseContentDisposition = aws.String("inline")
	}
	if opts.ContentType != "" {
		in.ResponseContentType = aws.String(opts.ContentType)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	req, err := s.presign.PresignGetObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3blob presign %s: %w: %w", key, filevault.ErrUpstream, err)
	}
	return req.URL, nil
}

// isNotFound classifies the store's missing-key error shapes.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
