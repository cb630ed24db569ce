package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds MinIO configuration.
type MinIOConfig struct {
	Endpoint  string // MinIO server endpoint (e.g. localhost:9000)
	AccessKey string
	SecretKey string
	Token     string // Session token for temporary credentials
	Bucket    string
	Region    string
	Secure    bool // Use HTTPS
}

// MinIOClient wraps the MinIO Go client behind the Client interface; it
// also serves any other S3-compatible store reachable by endpoint.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

// NewMinIOClient creates a new MinIO client.
func NewMinIOClient(cfg *MinIOConfig) (*MinIOClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.Token),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOClient{client: client, bucket: cfg.Bucket}, nil
}

// Backend implements Client.
func (c *MinIOClient) Backend() string { return "minio" }

// List implements Client.
func (c *MinIOClient) List(ctx context.Context, prefix, suffix string) ([]Object, error) {
	var objects []Object
	for info := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", info.Err)
		}
		if suffix != "" && !strings.HasSuffix(info.Key, suffix) {
			continue
		}
		objects = append(objects, Object{Key: info.Key, Size: info.Size})
	}
	return objects, nil
}

// Get implements Client.
func (c *MinIOClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return obj, nil
}
