package s3

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/mountfs/backend"
	"github.com/mwantia/mountfs/data"
)

// S3Backend stores objects in an S3 compatible bucket. Directories are
// zero-byte marker objects whose key ends in "/".
type S3Backend struct {
	mu sync.RWMutex

	client *minio.Client
	config *S3BackendConfig
	prefix string
}

// S3BackendConfig contains configuration options for the S3 backend
type S3BackendConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Region       string `mapstructure:"region"`
	Prefix       string `mapstructure:"prefix"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	CreateBucket bool   `mapstructure:"create_bucket"`
}

var _ backend.ObjectStorageBackend = (*S3Backend)(nil)

func NewS3Backend(config *S3BackendConfig) (*S3Backend, error) {
	if config == nil || config.Endpoint == "" || config.Bucket == "" {
		return nil, fmt.Errorf("s3 backend requires an endpoint and a bucket")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(config.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &S3Backend{
		client: client,
		config: config,
		prefix: prefix,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called before the backend is used.
func (sb *S3Backend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.client.BucketExists(ctx, sb.config.Bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	if !sb.config.CreateBucket {
		return fmt.Errorf("%w: bucket '%s'", data.ErrNotExist, sb.config.Bucket)
	}

	return sb.client.MakeBucket(ctx, sb.config.Bucket, minio.MakeBucketOptions{
		Region: sb.config.Region,
	})
}

// Close is part of the lifecycle behaviour and gets called when the backend is released.
func (sb *S3Backend) Close(ctx context.Context) error {
	// Nothing to clean up - the minio client holds no connections of its own
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *S3Backend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityPersistent,
		},
	}
}

func (sb *S3Backend) buildKey(key string) string {
	return sb.prefix + key
}

func (sb *S3Backend) buildDirKey(key string) string {
	if key == "" {
		return sb.prefix
	}
	return sb.prefix + key + "/"
}
