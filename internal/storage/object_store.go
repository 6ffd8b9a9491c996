package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/zlc1004/Carpool-sub000/internal/config"
)

// ObjectStore holds the payload half of every record. Objects are
// content-addressed by storage hash, so a key never changes meaning
// and writes are idempotent.
type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	bucket := s.cfg.BucketImages
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (s *ObjectStore) Bucket() string {
	return s.cfg.BucketImages
}

// ObjectKey derives the content-addressed key for a payload.
func ObjectKey(storageHash string) string {
	return path.Join("sha256", storageHash+".png")
}

func (s *ObjectStore) PutPayload(ctx context.Context, storageHash string, payload []byte, contentType string) (string, error) {
	key := ObjectKey(storageHash)
	_, err := s.client.PutObject(ctx, s.cfg.BucketImages, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put payload: %w", err)
	}
	return key, nil
}

func (s *ObjectStore) GetPayload(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.BucketImages, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}

// RemovePayload is best-effort cleanup for a payload whose metadata
// insert failed.
func (s *ObjectStore) RemovePayload(ctx context.Context, objectKey string) error {
	return s.client.RemoveObject(ctx, s.cfg.BucketImages, objectKey, minio.RemoveObjectOptions{})
}
