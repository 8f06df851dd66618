package uploads

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/harborgate/site-api/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Store writes uploaded files to object storage. If bucket is empty the
// store is disabled and Put fails with ErrDisabled.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// ErrDisabled is returned when object storage is not configured.
var ErrDisabled = fmt.Errorf("uploads: object storage not configured")

// NewStore creates an upload Store.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if object storage is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Object describes a stored upload.
type Object struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Put streams body to object storage under a date-partitioned key derived
// from the original filename's extension.
func (s *Store) Put(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*Object, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	key := objectKey(filename)
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("uploads: s3 put %s: %w", key, err)
	}

	s.logger.Info("stored upload",
		"key", key,
		"size", size,
		"content_type", contentType,
	)

	return &Object{Key: key, Size: size, ContentType: contentType}, nil
}

// Reachable reports whether the bucket answers a HeadBucket probe.
func (s *Store) Reachable(ctx context.Context) bool {
	if !s.Enabled() {
		return false
	}
	_, err := s.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err == nil
}

func objectKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	now := time.Now().UTC()
	return fmt.Sprintf("uploads/%d/%02d/%s%s", now.Year(), now.Month(), uuid.NewString(), ext)
}
