package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/content"
	contentBadger "github.com/marmos91/dittohttp/pkg/content/badger"
	contentFs "github.com/marmos91/dittohttp/pkg/content/fs"
	contentMemory "github.com/marmos91/dittohttp/pkg/content/memory"
	contentS3 "github.com/marmos91/dittohttp/pkg/content/s3"
	"github.com/marmos91/dittohttp/pkg/metrics"
	"github.com/mitchellh/mapstructure"
)

// FilesystemStoreConfig holds the options of store.filesystem.
type FilesystemStoreConfig struct {
	Path string `mapstructure:"path"`
}

// BadgerStoreConfig holds the options of store.badger.
type BadgerStoreConfig struct {
	DBPath   string `mapstructure:"db_path"`
	InMemory bool   `mapstructure:"in_memory"`
}

// S3StoreConfig holds the options of store.s3.
type S3StoreConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// CreateFileStore creates a file store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor. The result is wrapped with
// storeMetrics (nil means no instrumentation).
//
// Supported types:
//   - "filesystem": pkg/content/fs (one file per name under a root directory)
//   - "memory": pkg/content/memory (ephemeral)
//   - "badger": pkg/content/badger (BadgerDB key-value store)
//   - "s3": pkg/content/s3 (Amazon S3 or compatible storage)
func CreateFileStore(ctx context.Context, cfg *StoreConfig, storeMetrics metrics.StoreMetrics) (content.FileStore, error) {
	var (
		store content.FileStore
		err   error
	)

	switch cfg.Type {
	case "filesystem":
		store, err = createFilesystemFileStore(ctx, cfg.Filesystem)
	case "memory":
		store, err = contentMemory.NewMemoryFileStore(ctx)
	case "badger":
		store, err = createBadgerFileStore(ctx, cfg.Badger)
	case "s3":
		store, err = createS3FileStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown file store type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	return content.Instrument(store, cfg.Type, storeMetrics), nil
}

// createFilesystemFileStore creates a filesystem-based file store.
func createFilesystemFileStore(ctx context.Context, options map[string]any) (content.FileStore, error) {
	var storeCfg FilesystemStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem store: path is required")
	}

	store, err := contentFs.NewFSFileStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}

	logger.Info("Filesystem file store initialized: path=%s", store.BasePath())
	return store, nil
}

// createBadgerFileStore creates a BadgerDB-backed file store.
func createBadgerFileStore(ctx context.Context, options map[string]any) (content.FileStore, error) {
	var storeCfg BadgerStoreConfig
	if err := mapstructure.WeakDecode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger store: db_path is required unless in_memory is set")
	}

	store, err := contentBadger.NewBadgerFileStore(ctx, contentBadger.BadgerFileStoreConfig{
		DBPath:   storeCfg.DBPath,
		InMemory: storeCfg.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}

	logger.Info("Badger file store initialized: db_path=%s in_memory=%v", storeCfg.DBPath, storeCfg.InMemory)
	return store, nil
}

// createS3FileStore creates an S3-based file store.
func createS3FileStore(ctx context.Context, options map[string]any) (content.FileStore, error) {
	var storeCfg S3StoreConfig
	if err := mapstructure.WeakDecode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	client, err := newS3Client(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	store, err := contentS3.NewS3FileStore(ctx, contentS3.S3FileStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}

	logger.Info("S3 file store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// newS3Client builds an S3 client from the store options.
func newS3Client(ctx context.Context, storeCfg S3StoreConfig) (*s3.Client, error) {
	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeCfg.Region),
	}

	// Set credentials if provided, otherwise use default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Default to 10 attempts (AWS default is 3)
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
		if storeCfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}
