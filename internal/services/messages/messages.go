// messages — личные сообщения.
package messages

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/pribylovaa/go-social-client/internal/client"
	"github.com/pribylovaa/go-social-client/internal/services/models"
)

var (
	ErrEmptyUsername = errors.New("username is required")
	ErrEmptyText     = errors.New("message text is empty")
)

type Service struct {
	api client.API
}

func New(api client.API) *Service {
	return &Service{api: api}
}

// Conversations — собеседники с последним сообщением, свежие первыми.
func (s *Service) Conversations(ctx context.Context) ([]models.Conversation, error) {
	const op = "services.messages.Conversations"

	resp, err := s.api.Get(ctx, "/api/messages/conversations", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	if err := resp.Data(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out.Conversations, nil
}

func (s *Service) Thread(ctx context.Context, username string) (*models.Thread, error) {
	const op = "services.messages.Thread"

	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyUsername)
	}

	resp, err := s.api.Get(ctx, threadPath(username), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.Thread
	if err := resp.Data(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

type sendRequest struct {
	Text string `json:"text"`
}

func (s *Service) Send(ctx context.Context, username, text string) (*models.Message, error) {
	const op = "services.messages.Send"

	switch {
	case username == "":
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyUsername)
	case text == "":
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyText)
	}

	resp, err := s.api.Post(ctx, threadPath(username), sendRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out struct {
		Message models.Message `json:"message"`
	}
	if err := resp.Data(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out.Message, nil
}

func threadPath(username string) string {
	return "/api/messages/" + url.PathEscape(username)
}
