// Package media stores generated assets (voiceover audio, clip files) in
// S3-compatible object storage and returns the public refs the render
// engine and publisher fetch from.
package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config configures the object storage backend.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"` // base URL objects are served from
}

// Storage uploads objects and hands back fetchable URLs.
type Storage interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

// MinioStorage implements Storage on any S3-compatible endpoint.
type MinioStorage struct {
	config *Config
	client *minio.Client
	logger *zap.Logger
}

func NewMinioStorage(cfg *Config, logger *zap.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &MinioStorage{
		config: cfg,
		client: client,
		logger: logger,
	}, nil
}

func (s *MinioStorage) Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.config.Bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", objectName, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.config.PublicURL, s.config.Bucket, objectName)
	s.logger.Debug("Object uploaded",
		zap.String("object", objectName),
		zap.Int("bytes", len(data)))
	return url, nil
}
