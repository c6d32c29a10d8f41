package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrDisabled is returned when object storage is not configured.
var ErrDisabled = fmt.Errorf("object storage not configured")

// Config holds the bucket connection settings.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// Client wraps the object-storage bucket holding project images. With an
// empty endpoint the client is disabled and every operation returns
// ErrDisabled.
type Client struct {
	mc      *minio.Client
	bucket  string
	baseURL string
	enabled bool
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return &Client{enabled: false}, nil
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Client{
		mc:      mc,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		enabled: true,
	}, nil
}

// BucketExists reports whether the configured bucket is provisioned.
// Provisioning itself is an operator concern, not application logic.
func (c *Client) BucketExists(ctx context.Context) (bool, error) {
	if !c.enabled {
		return false, ErrDisabled
	}
	return c.mc.BucketExists(ctx, c.bucket)
}

// Upload writes an object at the given path. Re-uploading the same path
// overwrites in place.
func (c *Client) Upload(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error {
	if !c.enabled {
		return ErrDisabled
	}

	_, err := c.mc.PutObject(ctx, c.bucket, path, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

// PublicURL derives the public URL for a stored path.
func (c *Client) PublicURL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}
