// posts — лента, публикации, лайки и загрузка медиа.
package posts

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pribylovaa/go-social-client/internal/client"
	"github.com/pribylovaa/go-social-client/internal/services/models"
)

var (
	// ErrEmptyContent — пост без текста и без медиа.
	ErrEmptyContent = errors.New("post content is empty")

	// ErrEmptyID — не указан идентификатор поста.
	ErrEmptyID = errors.New("post id is required")

	// ErrEmptyFile — пустой файл для загрузки.
	ErrEmptyFile = errors.New("file is empty")
)

type Service struct {
	api client.API
}

func New(api client.API) *Service {
	return &Service{api: api}
}

// FeedQuery — параметры страницы ленты; нулевые значения отдают выбор серверу.
type FeedQuery struct {
	Page   int
	Limit  int
	Author string
}

func (q FeedQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Author != "" {
		v.Set("author", q.Author)
	}

	return v
}

// Feed — страница общей ленты или ленты автора.
func (s *Service) Feed(ctx context.Context, q FeedQuery) (*models.FeedPage, error) {
	const op = "services.posts.Feed"

	resp, err := s.api.Get(ctx, "/api/posts", q.values())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var page models.FeedPage
	if err := resp.Data(&page); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &page, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	const op = "services.posts.Get"

	if id == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	resp, err := s.api.Get(ctx, postPath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return decodePost(op, resp)
}

type createRequest struct {
	Content  string `json:"content"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// Create публикует пост; mediaURL — адрес из UploadMedia или пустая строка.
func (s *Service) Create(ctx context.Context, content, mediaURL string) (*models.Post, error) {
	const op = "services.posts.Create"

	if content == "" && mediaURL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyContent)
	}

	resp, err := s.api.Post(ctx, "/api/posts", createRequest{Content: content, MediaURL: mediaURL})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return decodePost(op, resp)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "services.posts.Delete"

	if id == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	if _, err := s.api.Delete(ctx, postPath(id), nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) Like(ctx context.Context, id string) (*models.Post, error) {
	const op = "services.posts.Like"

	if id == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	resp, err := s.api.Post(ctx, postPath(id)+"/like", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return decodePost(op, resp)
}

func (s *Service) Unlike(ctx context.Context, id string) (*models.Post, error) {
	const op = "services.posts.Unlike"

	if id == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	resp, err := s.api.Delete(ctx, postPath(id)+"/like", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return decodePost(op, resp)
}

// UploadMedia загружает файл multipart-формой (поле file).
func (s *Service) UploadMedia(ctx context.Context, name, contentType string, data []byte) (*models.Media, error) {
	const op = "services.posts.UploadMedia"

	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyFile)
	}

	resp, err := s.api.Upload(ctx, "/api/media/upload", &client.Form{
		Files: []client.FormFile{{Field: "file", Name: name, ContentType: contentType, Data: data}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out struct {
		Media models.Media `json:"media"`
	}
	if err := resp.Data(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out.Media, nil
}

func decodePost(op string, resp *client.Response) (*models.Post, error) {
	var out struct {
		Post models.Post `json:"post"`
	}
	if err := resp.Data(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out.Post, nil
}

func postPath(id string) string {
	return "/api/posts/" + url.PathEscape(id)
}
