// users — профили и подписки.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/pribylovaa/go-social-client/internal/client"
	"github.com/pribylovaa/go-social-client/internal/services/models"
)

// ErrEmptyUsername — не указан username.
var ErrEmptyUsername = errors.New("username is required")

type Service struct {
	api client.API
}

func New(api client.API) *Service {
	return &Service{api: api}
}

type userEnvelope struct {
	User models.User `json:"user"`
}

// Profile — публичный профиль; запрос без токена тоже допустим.
func (s *Service) Profile(ctx context.Context, username string) (*models.User, error) {
	const op = "services.users.Profile"

	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyUsername)
	}

	return s.user(ctx, op, func() (*client.Response, error) {
		return s.api.Get(ctx, userPath(username), nil)
	})
}

// UpdateMe меняет профиль текущего пользователя.
func (s *Service) UpdateMe(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	const op = "services.users.UpdateMe"

	return s.user(ctx, op, func() (*client.Response, error) {
		return s.api.Put(ctx, "/api/users/me", upd)
	})
}

func (s *Service) Follow(ctx context.Context, username string) (*models.User, error) {
	const op = "services.users.Follow"

	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyUsername)
	}

	return s.user(ctx, op, func() (*client.Response, error) {
		return s.api.Post(ctx, userPath(username)+"/follow", nil)
	})
}

func (s *Service) Unfollow(ctx context.Context, username string) (*models.User, error) {
	const op = "services.users.Unfollow"

	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyUsername)
	}

	return s.user(ctx, op, func() (*client.Response, error) {
		return s.api.Delete(ctx, userPath(username)+"/follow", nil)
	})
}

func (s *Service) user(ctx context.Context, op string, call func() (*client.Response, error)) (*models.User, error) {
	resp, err := call()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out userEnvelope
	if err := resp.Data(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out.User, nil
}

func userPath(username string) string {
	return "/api/users/" + url.PathEscape(username)
}
