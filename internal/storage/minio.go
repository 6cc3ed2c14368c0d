package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/config"
)

// ImageStore keeps uploaded tour images.
type ImageStore interface {
	// Put stores an object under name.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// URL returns a temporary download link for name.
	URL(ctx context.Context, name string, expiry time.Duration) (string, error)
}

// MinioImageStore is the ImageStore backed by a MinIO bucket.
type MinioImageStore struct {
	client *minio.Client
	bucket string
}

// NewMinioImageStore connects to MinIO and creates the bucket if needed.
func NewMinioImageStore(ctx context.Context, cfg config.MinioConfig, logger *zap.Logger) (*MinioImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to minio")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Create the bucket if it doesn't exist
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		logger.Warn("failed to check bucket existence", zap.String("bucket", cfg.Bucket), zap.Error(err))
	} else if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "create bucket %s", cfg.Bucket)
		}
		logger.Info("created bucket", zap.String("bucket", cfg.Bucket))
	}

	logger.Info("connected to minio", zap.String("endpoint", cfg.Endpoint))
	return &MinioImageStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioImageStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrapf(err, "upload %s", name)
}

func (s *MinioImageStore) URL(ctx context.Context, name string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, name, expiry, url.Values{})
	if err != nil {
		return "", errors.Wrapf(err, "presign %s", name)
	}
	return u.String(), nil
}

// MemoryImageStore keeps images in process for local runs without MinIO.
type MemoryImageStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{objects: map[string][]byte{}}
}

func (s *MemoryImageStore) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	s.mu.Lock()
	s.objects[name] = buf.Bytes()
	s.mu.Unlock()
	return nil
}

// URL returns a path relative to the service; the memory store has no public endpoint.
func (s *MemoryImageStore) URL(_ context.Context, name string, _ time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[name]; !ok {
		return "", ErrNotFound
	}
	return "/img/tours/" + url.PathEscape(name), nil
}

// Get returns the stored bytes of name.
func (s *MemoryImageStore) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.objects[name]
	return b, ok
}
