package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittohttp/pkg/content"
)

// S3FileStore implements content.FileStore using Amazon S3 or S3-compatible
// storage (MinIO, Localstack, ...).
//
// Key Design:
//   - The file name is the object key, behind an optional prefix
//   - Example: KeyPrefix "dittohttp/" + name "a.txt" => "dittohttp/a.txt"
//   - The bucket can be browsed and seeded with ordinary S3 tools
//
// Implementation Details:
//   - ReadFile is a single GetObject; the body is read fully
//   - WriteFile is a single PutObject
//   - No local caching (every read hits S3)
//
// Thread Safety:
// The S3 client is safe for concurrent use. Concurrent writes to the same
// name are last-write-wins.
type S3FileStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3FileStoreConfig contains configuration for the S3 file store.
type S3FileStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	KeyPrefix string
}

// NewS3FileStore creates a new S3-based file store.
//
// The bucket must already exist: access is verified with HeadBucket.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3FileStore: Initialized store
//   - error: If the configuration is incomplete or the bucket is unreachable
func NewS3FileStore(ctx context.Context, cfg S3FileStoreConfig) (*S3FileStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3FileStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// getObjectKey returns the full S3 object key for a file name.
func (s *S3FileStore) getObjectKey(name string) string {
	return objectKey(s.keyPrefix, name)
}

func objectKey(prefix, name string) string {
	if prefix != "" {
		return prefix + name
	}
	return name
}

// ReadFile downloads the object for name.
//
// A NoSuchKey (or NotFound) response is reported as content.ErrFileNotFound.
func (s *S3FileStore) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := content.ValidateName(name); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("file %s: %w", name, content.ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	return data, nil
}

// WriteFile uploads data as the object for name, replacing any previous one.
func (s *S3FileStore) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateName(name); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.getObjectKey(name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to write file to S3: %w", err)
	}

	return nil
}

// Close is a no-op: the S3 client holds no resources that need releasing.
func (s *S3FileStore) Close() error {
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}
