package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
	"github.com/pribylovaa/go-social-client/internal/backend/storage"
)

func (s *Storage) SavePost(ctx context.Context, post *models.Post) error {
	const op = "storage.postgres.SavePost"

	query := `
		INSERT INTO posts(id, author_id, content, media_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.Exec(ctx, query, post.ID, post.AuthorID, post.Content, post.MediaURL, post.CreatedAt)
	if err != nil {
		return mapErr(op, err)
	}

	return nil
}

func (s *Storage) PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "storage.postgres.PostByID"

	query := `
		SELECT id, author_id, content, media_url, created_at
		FROM posts
		WHERE id = $1
	`

	var p models.Post
	err := s.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.AuthorID, &p.Content, &p.MediaURL, &p.CreatedAt)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return &p, nil
}

// DeletePost удаляет пост; лайки уходят каскадом.
func (s *Storage) DeletePost(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeletePost"

	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) ListPosts(ctx context.Context, authorID uuid.UUID, offset, limit int) ([]models.Post, int, error) {
	const op = "storage.postgres.ListPosts"

	// uuid.Nil в $1 снимает фильтр по автору.
	const where = `WHERE ($1 = '00000000-0000-0000-0000-000000000000'::uuid OR author_id = $1)`

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM posts `+where, authorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}

	// LIMIT NULL — без ограничения.
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	query := `
		SELECT id, author_id, content, media_url, created_at
		FROM posts ` + where + `
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := s.db.Query(ctx, query, authorID, offset, lim)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Post, error) {
		var p models.Post
		err := row.Scan(&p.ID, &p.AuthorID, &p.Content, &p.MediaURL, &p.CreatedAt)
		return p, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return posts, total, nil
}

// Like ставит лайк; false — лайк уже стоял.
func (s *Storage) Like(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	const op = "storage.postgres.Like"

	query := `
		INSERT INTO likes(post_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query, postID, userID)
	if err != nil {
		return false, mapErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}

// Unlike снимает лайк; несуществующий пост — ErrNotFound.
func (s *Storage) Unlike(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	const op = "storage.postgres.Unlike"

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *Storage) LikeCount(ctx context.Context, postID uuid.UUID) (int, error) {
	const op = "storage.postgres.LikeCount"

	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM likes WHERE post_id = $1`, postID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (s *Storage) Liked(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	const op = "storage.postgres.Liked"

	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM likes WHERE post_id = $1 AND user_id = $2)`,
		postID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

func (s *Storage) SaveMedia(ctx context.Context, media *models.Media) error {
	const op = "storage.postgres.SaveMedia"

	query := `
		INSERT INTO media(id, owner_id, name, content_type, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(ctx, query,
		media.ID,
		media.OwnerID,
		media.Name,
		media.ContentType,
		media.Data,
		media.CreatedAt,
	)
	if err != nil {
		return mapErr(op, err)
	}

	return nil
}

func (s *Storage) MediaByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	const op = "storage.postgres.MediaByID"

	query := `
		SELECT id, owner_id, name, content_type, data, created_at
		FROM media
		WHERE id = $1
	`

	var m models.Media
	err := s.db.QueryRow(ctx, query, id).Scan(&m.ID, &m.OwnerID, &m.Name, &m.ContentType, &m.Data, &m.CreatedAt)
	if err != nil {
		return nil, mapErr(op, err)
	}

	return &m, nil
}
