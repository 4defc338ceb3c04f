package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
)

// Me возвращает профиль текущего пользователя.
func (s *Service) Me(ctx context.Context, uid uuid.UUID) (*models.Profile, error) {
	const op = "service.users.Me"

	user, err := s.storage.UserByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	return s.profile(ctx, user, uid)
}

// Profile возвращает профиль по username глазами viewer (uuid.Nil — аноним).
func (s *Service) Profile(ctx context.Context, username string, viewer uuid.UUID) (*models.Profile, error) {
	const op = "service.users.Profile"

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	return s.profile(ctx, user, viewer)
}

// UpdateProfile применяет частичное обновление к профилю uid.
func (s *Service) UpdateProfile(ctx context.Context, uid uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	const op = "service.users.UpdateProfile"

	user, err := s.storage.UserByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	if upd.DisplayName != nil {
		name := strings.TrimSpace(*upd.DisplayName)
		if name == "" || len([]rune(name)) > 64 {
			return nil, fmt.Errorf("%s: display name: %w", op, ErrInvalidArgument)
		}
		user.DisplayName = name
	}
	if upd.Bio != nil {
		if len([]rune(*upd.Bio)) > 280 {
			return nil, fmt.Errorf("%s: bio: %w", op, ErrContentTooLong)
		}
		user.Bio = *upd.Bio
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*upd.AvatarURL)
	}
	user.UpdatedAt = s.now()

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	return s.profile(ctx, user, uid)
}

// Follow подписывает uid на username и уведомляет его.
func (s *Service) Follow(ctx context.Context, uid uuid.UUID, username string) (*models.Profile, error) {
	const op = "service.users.Follow"

	target, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	if target.ID == uid {
		return nil, fmt.Errorf("%s: %w", op, ErrSelfAction)
	}

	added, err := s.storage.Follow(ctx, uid, target.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if added {
		if err := s.notify(ctx, target.ID, models.NotificationFollow, uid, uuid.Nil); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return s.profile(ctx, target, uid)
}

// Unfollow снимает подписку; отсутствие подписки не ошибка.
func (s *Service) Unfollow(ctx context.Context, uid uuid.UUID, username string) (*models.Profile, error) {
	const op = "service.users.Unfollow"

	target, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	if _, err := s.storage.Unfollow(ctx, uid, target.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.profile(ctx, target, uid)
}

func (s *Service) profile(ctx context.Context, user *models.User, viewer uuid.UUID) (*models.Profile, error) {
	followers, following, err := s.storage.FollowCounts(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var followed bool
	if viewer != uuid.Nil && viewer != user.ID {
		if followed, err = s.storage.IsFollowing(ctx, viewer, user.ID); err != nil {
			return nil, err
		}
	}

	return &models.Profile{
		User:      *user,
		Followers: followers,
		Following: following,
		Followed:  followed,
	}, nil
}

func (s *Service) notify(ctx context.Context, to uuid.UUID, kind string, actor, postID uuid.UUID) error {
	return s.storage.SaveNotification(ctx, &models.Notification{
		ID:        uuid.New(),
		UserID:    to,
		Kind:      kind,
		ActorID:   actor,
		PostID:    postID,
		CreatedAt: s.now(),
	})
}

// UserByID — пользователь по id (для сборки ответов HTTP-слоем).
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.users.UserByID"

	u, err := s.storage.UserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	return u, nil
}
