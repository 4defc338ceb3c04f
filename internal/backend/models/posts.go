package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID        uuid.UUID
	AuthorID  uuid.UUID
	Content   string
	MediaURL  string
	CreatedAt time.Time
}

// FeedItem — пост с автором и счётчиком лайков для конкретного зрителя.
type FeedItem struct {
	Post   Post
	Author User
	Likes  int
	Liked  bool
}

// Media — загруженный файл.
type Media struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}
