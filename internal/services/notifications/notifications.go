// notifications — уведомления текущего пользователя.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/pribylovaa/go-social-client/internal/client"
	"github.com/pribylovaa/go-social-client/internal/services/models"
)

// ErrEmptyID — не указан идентификатор уведомления.
var ErrEmptyID = errors.New("notification id is required")

type Service struct {
	api client.API
}

func New(api client.API) *Service {
	return &Service{api: api}
}

func (s *Service) List(ctx context.Context) (*models.Notifications, error) {
	const op = "services.notifications.List"

	resp, err := s.api.Get(ctx, "/api/notifications", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.Notifications
	if err := resp.Data(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (s *Service) MarkRead(ctx context.Context, id string) error {
	const op = "services.notifications.MarkRead"

	if id == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyID)
	}

	if _, err := s.api.Patch(ctx, "/api/notifications/"+url.PathEscape(id)+"/read", nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
