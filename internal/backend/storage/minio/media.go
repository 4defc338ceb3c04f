package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
	"github.com/pribylovaa/go-social-client/internal/backend/storage"
)

// Ключи пользовательских метаданных объекта.
const (
	metaOwner   = "Owner"
	metaName    = "Name"
	metaCreated = "Created"
)

func objectKey(id uuid.UUID) string {
	return path.Join("media", id.String())
}

// SaveMedia кладёт файл в бакет под ключом media/<id>.
func (s *MediaStorage) SaveMedia(ctx context.Context, media *models.Media) error {
	const op = "storage.minio.SaveMedia"

	key := objectKey(media.ID)

	_, err := s.client.StatObject(ctx, s.bucket, key, mclient.StatObjectOptions{})
	if err == nil {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	if !isNotFound(err) {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(media.Data), int64(len(media.Data)),
		mclient.PutObjectOptions{
			ContentType: media.ContentType,
			UserMetadata: map[string]string{
				metaOwner:   media.OwnerID.String(),
				metaName:    url.QueryEscape(media.Name),
				metaCreated: media.CreatedAt.UTC().Format(time.RFC3339Nano),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// MediaByID читает файл и его метаданные.
func (s *MediaStorage) MediaByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	const op = "storage.minio.MediaByID"

	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(id), mclient.GetObjectOptions{})
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, mapErr(op, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapErr(op, err)
	}

	m := &models.Media{
		ID:          id,
		ContentType: info.ContentType,
		Data:        data,
		CreatedAt:   info.LastModified,
	}

	meta := http.Header(info.Metadata)
	if owner, err := uuid.Parse(meta.Get("X-Amz-Meta-" + metaOwner)); err == nil {
		m.OwnerID = owner
	}
	if name, err := url.QueryUnescape(meta.Get("X-Amz-Meta-" + metaName)); err == nil {
		m.Name = name
	}
	if created, err := time.Parse(time.RFC3339Nano, meta.Get("X-Amz-Meta-"+metaCreated)); err == nil {
		m.CreatedAt = created
	}

	return m, nil
}

func isNotFound(err error) bool {
	errResp := mclient.ToErrorResponse(err)
	return errResp.Code == "NoSuchKey" || errResp.StatusCode == http.StatusNotFound
}

func mapErr(op string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func (s *mediaStorage) SaveMedia(ctx context.Context, media *models.Media) error {
	return s.media.SaveMedia(ctx, media)
}

func (s *mediaStorage) MediaByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	return s.media.MediaByID(ctx, id)
}
