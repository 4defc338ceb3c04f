package models

import (
	"time"

	"github.com/google/uuid"
)

// User — пользователь соцсети.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	DisplayName  string
	Bio          string
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile — пользователь глазами конкретного зрителя.
type Profile struct {
	User      User
	Followers int
	Following int
	// Followed — зритель подписан на пользователя.
	Followed bool
}

// ProfileUpdate — частичное обновление профиля; nil-поля не меняются.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
}
