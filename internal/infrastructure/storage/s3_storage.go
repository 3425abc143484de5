// Package storage mirrors ERP product images into object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	integrationapp "github.com/erp/ordersync/internal/application/integration"
	infraconfig "github.com/erp/ordersync/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure S3ImageStore implements ImageStore
var _ integrationapp.ImageStore = (*S3ImageStore)(nil)

// S3ImageStore stores mirrored images in any S3-compatible bucket (AWS S3, MinIO, RustFS)
type S3ImageStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	logger    *zap.Logger
}

// S3ImageStoreOption is a functional option for configuring S3ImageStore
type S3ImageStoreOption func(*S3ImageStore)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ImageStoreOption {
	return func(s *S3ImageStore) {
		s.logger = logger
	}
}

// NewS3ImageStore creates an S3ImageStore from configuration
func NewS3ImageStore(cfg *infraconfig.StorageConfig, opts ...S3ImageStoreOption) (*S3ImageStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3ImageStore{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// empty endpoint means AWS itself
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *S3ImageStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Key returns the object key of the n-th image of a product
func (s *S3ImageStore) Key(productID string, index int, sourceURL string) string {
	return ImageKey(s.keyPrefix, productID, index, sourceURL)
}

// Exists checks if an object exists
func (s *S3ImageStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("storage key is required")
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		// some S3-compatible servers return a generic API error
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// Put uploads an image
func (s *S3ImageStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	s.logger.Debug("Image stored", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Bucket returns the bucket name
func (s *S3ImageStore) Bucket() string {
	return s.bucket
}

// ImageKey builds "<prefix>/products/<id>/<index><ext>"; the extension comes from the source URL
func ImageKey(prefix, productID string, index int, sourceURL string) string {
	ext := ""
	if u, err := url.Parse(sourceURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		ext = ".jpg"
	}
	key := fmt.Sprintf("products/%s/%d%s", productID, index, ext)
	if prefix != "" {
		key = prefix + "/" + key
	}
	return key
}
