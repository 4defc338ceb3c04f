package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
)

// Feed — лента постов от новых к старым. author == "" — все авторы.
// page нумеруется с 1; limit ограничен MaxPageLimit.
func (s *Service) Feed(ctx context.Context, viewer uuid.UUID, author string, page, limit int) ([]models.FeedItem, int, error) {
	const op = "service.posts.Feed"

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	authorID := uuid.Nil
	if author != "" {
		u, err := s.storage.UserByUsername(ctx, author)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, notFound(err))
		}
		authorID = u.ID
	}

	posts, total, err := s.storage.ListPosts(ctx, authorID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	items := make([]models.FeedItem, 0, len(posts))
	for i := range posts {
		item, err := s.feedItem(ctx, &posts[i], viewer)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *item)
	}

	return items, total, nil
}

// Post возвращает один пост.
func (s *Service) Post(ctx context.Context, viewer, id uuid.UUID) (*models.FeedItem, error) {
	const op = "service.posts.Post"

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	item, err := s.feedItem(ctx, post, viewer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

// CreatePost публикует пост от имени uid.
func (s *Service) CreatePost(ctx context.Context, uid uuid.UUID, content, mediaURL string) (*models.FeedItem, error) {
	const op = "service.posts.CreatePost"

	content = strings.TrimSpace(content)
	mediaURL = strings.TrimSpace(mediaURL)
	if content == "" && mediaURL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyContent)
	}
	if len([]rune(content)) > MaxContentLen {
		return nil, fmt.Errorf("%s: %w", op, ErrContentTooLong)
	}

	post := &models.Post{
		ID:        uuid.New(),
		AuthorID:  uid,
		Content:   content,
		MediaURL:  mediaURL,
		CreatedAt: s.now(),
	}
	if err := s.storage.SavePost(ctx, post); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	item, err := s.feedItem(ctx, post, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

// DeletePost удаляет пост; удалять может только автор.
func (s *Service) DeletePost(ctx context.Context, uid, id uuid.UUID) error {
	const op = "service.posts.DeletePost"

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err))
	}
	if post.AuthorID != uid {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if err := s.storage.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err))
	}

	return nil
}

// Like ставит лайк (идемпотентно) и уведомляет автора о новом лайке.
func (s *Service) Like(ctx context.Context, uid, id uuid.UUID) (*models.FeedItem, error) {
	const op = "service.posts.Like"

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	added, err := s.storage.Like(ctx, id, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	if added && post.AuthorID != uid {
		if err := s.notify(ctx, post.AuthorID, models.NotificationLike, uid, post.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	item, err := s.feedItem(ctx, post, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

// Unlike снимает лайк (идемпотентно).
func (s *Service) Unlike(ctx context.Context, uid, id uuid.UUID) (*models.FeedItem, error) {
	const op = "service.posts.Unlike"

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	if _, err := s.storage.Unlike(ctx, id, uid); err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	item, err := s.feedItem(ctx, post, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

// UploadMedia сохраняет файл и возвращает его метаданные.
func (s *Service) UploadMedia(ctx context.Context, uid uuid.UUID, name, contentType string, data []byte) (*models.Media, error) {
	const op = "service.posts.UploadMedia"

	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyContent)
	}
	if len(data) > MaxMediaSize {
		return nil, fmt.Errorf("%s: %w", op, ErrMediaTooLarge)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	media := &models.Media{
		ID:          uuid.New(),
		OwnerID:     uid,
		Name:        name,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   s.now(),
	}
	if err := s.storage.SaveMedia(ctx, media); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return media, nil
}

// Media возвращает файл по id.
func (s *Service) Media(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	const op = "service.posts.Media"

	media, err := s.storage.MediaByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	return media, nil
}

func (s *Service) feedItem(ctx context.Context, post *models.Post, viewer uuid.UUID) (*models.FeedItem, error) {
	author, err := s.storage.UserByID(ctx, post.AuthorID)
	if err != nil {
		return nil, notFound(err)
	}

	likes, err := s.storage.LikeCount(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	var liked bool
	if viewer != uuid.Nil {
		if liked, err = s.storage.Liked(ctx, post.ID, viewer); err != nil {
			return nil, err
		}
	}

	return &models.FeedItem{Post: *post, Author: *author, Likes: likes, Liked: liked}, nil
}
