// service содержит бизнес-логику dev-бэкенда соцсети:
// регистрацию/аутентификацию и выпуск токенов, профили и подписки,
// ленту, лайки, уведомления, личные сообщения и медиа.
//
// Экземпляр Service безопасен для конкурентного использования при условии,
// что переданное хранилище (storage.Storage) потокобезопасно.
// Ошибки маппятся HTTP-слоем на статусы (см. internal/backend/errors).
package service

import (
	"errors"
	"time"

	"github.com/pribylovaa/go-social-client/internal/backend/storage"
	"github.com/pribylovaa/go-social-client/internal/config"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден (HTTP 401).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен некорректен по формату/подписи или отсутствует
	// в хранилище (HTTP 401).
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк (HTTP 401).
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/rotation) (HTTP 401).
	ErrTokenRevoked = errors.New("token revoked")

	// ErrEmailTaken — e-mail уже занят (HTTP 409).
	ErrEmailTaken = errors.New("email already taken")

	// ErrUsernameTaken — имя пользователя уже занято (HTTP 409).
	ErrUsernameTaken = errors.New("username already taken")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный
	// refresh-токен (HTTP 500).
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrInvalidEmail — e-mail имеет некорректный формат (HTTP 400).
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidUsername — имя пользователя пустое или содержит недопустимые символы (HTTP 400).
	ErrInvalidUsername = errors.New("invalid username")

	// ErrWeakPassword — пароль не удовлетворяет политике сложности (HTTP 400).
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой (HTTP 400).
	ErrEmptyPassword = errors.New("password is empty")

	// ErrNotFound — сущность не найдена (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrForbidden — операция над чужой сущностью (HTTP 403).
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidArgument — прочие некорректные входные данные (HTTP 400).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyContent — пустой текст поста/сообщения (HTTP 400).
	ErrEmptyContent = errors.New("content is empty")

	// ErrContentTooLong — текст длиннее MaxContentLen (HTTP 400).
	ErrContentTooLong = errors.New("content is too long")

	// ErrSelfAction — подписка или сообщение самому себе (HTTP 400).
	ErrSelfAction = errors.New("action on self is not allowed")

	// ErrMediaTooLarge — файл больше MaxMediaSize (HTTP 413).
	ErrMediaTooLarge = errors.New("media is too large")
)

const (
	// MaxContentLen — предел длины поста и сообщения в рунах.
	MaxContentLen = 2000
	// MaxMediaSize — предел размера загружаемого файла.
	MaxMediaSize = 5 << 20
	// DefaultPageLimit и MaxPageLimit — пагинация ленты.
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Service описывает бизнес-логику бэкенда.
type Service struct {
	storage storage.Storage
	cfg     config.BackendConfig

	now func() time.Time
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.BackendConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// notFound переводит storage.ErrNotFound в доменный ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}

	return err
}
