package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
)

// Notifications — уведомления uid от новых к старым.
func (s *Service) Notifications(ctx context.Context, uid uuid.UUID) ([]models.NotificationView, error) {
	const op = "service.messages.Notifications"

	list, err := s.storage.ListNotifications(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.NotificationView, 0, len(list))
	for _, n := range list {
		actor, err := s.storage.UserByID(ctx, n.ActorID)
		if err != nil {
			// Автор мог исчезнуть; уведомление без него бесполезно.
			continue
		}
		out = append(out, models.NotificationView{Notification: n, Actor: *actor})
	}

	return out, nil
}

// MarkNotificationRead помечает уведомление прочитанным.
func (s *Service) MarkNotificationRead(ctx context.Context, uid, id uuid.UUID) error {
	const op = "service.messages.MarkNotificationRead"

	if err := s.storage.MarkNotificationRead(ctx, uid, id); err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err))
	}

	return nil
}

// Conversations — диалоги uid, от самого свежего.
func (s *Service) Conversations(ctx context.Context, uid uuid.UUID) ([]models.Conversation, error) {
	const op = "service.messages.Conversations"

	last, err := s.storage.LastMessages(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.Conversation, 0, len(last))
	for _, m := range last {
		peerID := m.ToID
		if peerID == uid {
			peerID = m.FromID
		}

		peer, err := s.storage.UserByID(ctx, peerID)
		if err != nil {
			continue
		}
		out = append(out, models.Conversation{Peer: *peer, Last: m})
	}

	return out, nil
}

// Thread — переписка uid с username от старых сообщений к новым.
func (s *Service) Thread(ctx context.Context, uid uuid.UUID, username string) (*models.User, []models.Message, error) {
	const op = "service.messages.Thread"

	peer, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	msgs, err := s.storage.Thread(ctx, uid, peer.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return peer, msgs, nil
}

// SendMessage отправляет сообщение username и уведомляет получателя.
func (s *Service) SendMessage(ctx context.Context, uid uuid.UUID, username, text string) (*models.Message, error) {
	const op = "service.messages.SendMessage"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyContent)
	}
	if len([]rune(text)) > MaxContentLen {
		return nil, fmt.Errorf("%s: %w", op, ErrContentTooLong)
	}

	peer, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	if peer.ID == uid {
		return nil, fmt.Errorf("%s: %w", op, ErrSelfAction)
	}

	msg := &models.Message{
		ID:        uuid.New(),
		FromID:    uid,
		ToID:      peer.ID,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.storage.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.notify(ctx, peer.ID, models.NotificationMessage, uid, uuid.Nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return msg, nil
}
