package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений.
const (
	NotificationLike    = "like"
	NotificationFollow  = "follow"
	NotificationMessage = "message"
)

type Notification struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	Kind    string
	ActorID uuid.UUID
	// PostID — uuid.Nil, если уведомление не относится к посту.
	PostID    uuid.UUID
	Read      bool
	CreatedAt time.Time
}

type NotificationView struct {
	Notification Notification
	Actor        User
}

type Message struct {
	ID        uuid.UUID
	FromID    uuid.UUID
	ToID      uuid.UUID
	Text      string
	CreatedAt time.Time
}

// Conversation — диалог с собеседником и последним сообщением.
type Conversation struct {
	Peer User
	Last Message
}
