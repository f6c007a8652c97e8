// Package s3 archives documents in an S3-compatible bucket via the
// MinIO client. Keys are normalized under an optional prefix and
// traversal segments are rejected before they reach the wire.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/smartbiz/smartbiz/internal/docstore"
)

type Config struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

// bucketClient is the slice of object storage the archive needs. The
// bucket is bound at construction; tests substitute an in-memory one.
type bucketClient interface {
	upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (minio.UploadInfo, error)
	download(ctx context.Context, key string) (io.ReadCloser, error)
	ensure(ctx context.Context) error
}

type Store struct {
	objects bucketClient
	prefix  string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	bucket := strings.TrimSpace(cfg.Bucket)
	if endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	host, secure, err := splitEndpoint(endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	api, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	objects := &liveBucket{api: api, bucket: bucket, region: strings.TrimSpace(cfg.Region)}
	if cfg.AutoCreateBucket {
		if err := objects.ensure(ctx); err != nil {
			return nil, err
		}
	}
	return &Store{objects: objects, prefix: cleanPrefix(cfg.Prefix)}, nil
}

func NewWithClient(prefix string, objects bucketClient) *Store {
	return &Store{objects: objects, prefix: cleanPrefix(prefix)}
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts docstore.PutOptions) (docstore.DocumentInfo, error) {
	resolved, err := s.resolveKey(key)
	if err != nil {
		return docstore.DocumentInfo{}, err
	}
	info, err := s.objects.upload(ctx, resolved, body, size, opts.ContentType)
	if err != nil {
		return docstore.DocumentInfo{}, fmt.Errorf("put document %q: %w", resolved, err)
	}
	return docstore.DocumentInfo{Key: info.Key, Size: info.Size, ETag: info.ETag}, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resolved, err := s.resolveKey(key)
	if err != nil {
		return nil, err
	}
	body, err := s.objects.download(ctx, resolved)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("get document %q: %w", resolved, err)
	}
	return body, nil
}

// resolveKey joins the configured prefix onto a caller key. Keys carrying
// ".." never make it into the bucket.
func (s *Store) resolveKey(raw string) (string, error) {
	key := strings.Trim(strings.TrimSpace(raw), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid document key %q", raw)
	}
	return path.Join(s.prefix, key), nil
}

func cleanPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "." {
		return ""
	}
	return prefix
}

func splitEndpoint(raw string, useSSL bool) (string, bool, error) {
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", false, fmt.Errorf("invalid s3 endpoint %q", raw)
	}
	return parsed.Host, parsed.Scheme == "https", nil
}

// liveBucket talks to one bucket of a real MinIO deployment and folds
// the client's not-found codes into docstore.ErrNotFound.
type liveBucket struct {
	api    *minio.Client
	bucket string
	region string
}

func (b *liveBucket) upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (minio.UploadInfo, error) {
	info, err := b.api.PutObject(ctx, b.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return minio.UploadInfo{}, translateErr(err)
	}
	return info, nil
}

func (b *liveBucket) download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.api.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateErr(err)
	}
	// GetObject is lazy; Stat forces the existence check now so missing
	// documents surface as ErrNotFound instead of a read error later.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, translateErr(err)
	}
	return obj, nil
}

func (b *liveBucket) ensure(ctx context.Context) error {
	exists, err := b.api.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", b.bucket, err)
	}
	if exists {
		return nil
	}
	if err := b.api.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", b.bucket, err)
	}
	return nil
}

func translateErr(err error) error {
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		switch response.Code {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return docstore.ErrNotFound
		}
	}
	return err
}
