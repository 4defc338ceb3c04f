// storage описывает контракт хранилища dev-бэкенда.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/username/refresh-token).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт пользователя; email и username уникальны.
	SaveUser(ctx context.Context, user *models.User) error
	// UpdateUser перезаписывает изменяемые поля существующего пользователя.
	UpdateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshToken отзывает токен; false — токен уже был отозван.
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)
}

// PostStorage — посты, лайки и медиа.
type PostStorage interface {
	SavePost(ctx context.Context, post *models.Post) error
	PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
	// ListPosts возвращает посты от новых к старым; authorID == uuid.Nil — все авторы.
	ListPosts(ctx context.Context, authorID uuid.UUID, offset, limit int) ([]models.Post, int, error)

	// Like ставит лайк; false — лайк уже стоял.
	Like(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	// Unlike снимает лайк; false — лайка не было.
	Unlike(ctx context.Context, postID, userID uuid.UUID) (bool, error)
	LikeCount(ctx context.Context, postID uuid.UUID) (int, error)
	Liked(ctx context.Context, postID, userID uuid.UUID) (bool, error)

	SaveMedia(ctx context.Context, media *models.Media) error
	MediaByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

// SocialStorage — подписки, уведомления и сообщения.
type SocialStorage interface {
	// Follow — false, если подписка уже была.
	Follow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	// Unfollow — false, если подписки не было.
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	FollowCounts(ctx context.Context, userID uuid.UUID) (followers, following int, err error)

	SaveNotification(ctx context.Context, n *models.Notification) error
	// ListNotifications — уведомления пользователя от новых к старым.
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) error

	SaveMessage(ctx context.Context, msg *models.Message) error
	// Thread — переписка двух пользователей от старых к новым.
	Thread(ctx context.Context, a, b uuid.UUID) ([]models.Message, error)
	// LastMessages — последнее сообщение с каждым собеседником, от новых к старым.
	LastMessages(ctx context.Context, userID uuid.UUID) ([]models.Message, error)
}

// Storage задаёт контракт хранилища целиком.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	PostStorage
	SocialStorage
	Close()
}
