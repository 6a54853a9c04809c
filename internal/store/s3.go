package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/libs/metrics"
)

// S3API is the part of the S3 client the image store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3ImageStore keeps diagram images in an S3-compatible bucket.
type S3ImageStore struct {
	client  S3API
	bucket  string
	baseURL string
	logger  *zap.Logger
}

// NewS3ImageStore builds a client from the "endpoint", "access_key_id",
// "secret_access_key", "bucket", "use_ssl", "region" and "public_url" keys
// of cfg. Path-style addressing keeps MinIO compatible.
func NewS3ImageStore(ctx context.Context, cfg map[string]string, logger *zap.Logger) (*S3ImageStore, error) {
	useSSL := true
	if sslStr := cfg["use_ssl"]; sslStr != "" {
		if parsed, err := strconv.ParseBool(sslStr); err == nil {
			useSSL = parsed
		}
	}

	endpoint := cfg["endpoint"]
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}

	region := cfg["region"]
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg["access_key_id"],
			cfg["secret_access_key"],
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	baseURL := cfg["public_url"]
	if baseURL == "" {
		baseURL = strings.TrimSuffix(endpoint, "/") + "/" + cfg["bucket"]
	}

	return NewS3ImageStoreWithClient(client, cfg["bucket"], baseURL, logger), nil
}

// NewS3ImageStoreWithClient wraps an existing client. Object URLs are
// baseURL followed by the escaped object path.
func NewS3ImageStoreWithClient(client S3API, bucket, baseURL string, logger *zap.Logger) *S3ImageStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3ImageStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

func (s *S3ImageStore) Name() string { return "s3" }

// Ping lists at most one object to verify connectivity.
func (s *S3ImageStore) Ping(ctx context.Context) error {
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String("diagrams/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to S3: %w", err)
	}
	return nil
}

func (s *S3ImageStore) Upload(ctx context.Context, data []byte, objectPath string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectPath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(objectPath)),
	})
	metrics.RecordImage(s.Name(), "upload", len(data), err)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}

	s.logger.Info("Image uploaded", zap.String("path", objectPath), zap.Int("bytes", len(data)))
	return s.urlFor(objectPath), nil
}

func (s *S3ImageStore) Delete(ctx context.Context, objectPath string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	})
	if isNotFound(err) {
		s.logger.Debug("Image already gone", zap.String("path", objectPath))
		err = nil
	}
	metrics.RecordImage(s.Name(), "delete", 0, err)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectPath, err)
	}
	return nil
}

func (s *S3ImageStore) urlFor(objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

func (s *S3ImageStore) PathFromURL(rawURL string) (string, bool) {
	rest, ok := strings.CutPrefix(rawURL, s.baseURL+"/")
	if !ok || rest == "" {
		return "", false
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	objectPath, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return objectPath, true
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
