// minio хранит медиафайлы dev-бэкенда в MinIO/S3. Остальные данные
// остаются в основном хранилище, см. WithMedia.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/go-social-client/internal/backend/storage"
	"github.com/pribylovaa/go-social-client/internal/config"
)

// MediaStorage — адаптер MinIO для медиафайлов.
type MediaStorage struct {
	bucket string
	client *mclient.Client
}

// New создаёт клиент MinIO и проверяет наличие бакета.
// Схема в endpoint определяет Secure.
func New(ctx context.Context, cfg config.S3Config) (*MediaStorage, error) {
	const op = "storage.minio.New"

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.RootUser, cfg.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &MediaStorage{bucket: cfg.Bucket, client: client}, nil
}

// mediaStorage подменяет медиа-методы основного хранилища.
type mediaStorage struct {
	storage.Storage
	media *MediaStorage
}

// WithMedia возвращает base, у которого SaveMedia и MediaByID работают через m.
func WithMedia(base storage.Storage, m *MediaStorage) storage.Storage {
	return &mediaStorage{Storage: base, media: m}
}
