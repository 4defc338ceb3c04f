package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
)

type userDTO struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatarUrl"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	Followed    bool      `json:"followed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// authorDTO — краткая карточка пользователя внутри постов/сообщений.
type authorDTO struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type authDTO struct {
	User         userDTO   `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type tokensDTO struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type postDTO struct {
	ID        string    `json:"id"`
	Author    authorDTO `json:"author"`
	Content   string    `json:"content"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	Likes     int       `json:"likes"`
	Liked     bool      `json:"liked"`
	CreatedAt time.Time `json:"createdAt"`
}

type notificationDTO struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Actor     authorDTO `json:"actor"`
	PostID    string    `json:"postId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type messageDTO struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type conversationDTO struct {
	User        authorDTO  `json:"user"`
	LastMessage messageDTO `json:"lastMessage"`
}

type mediaDTO struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

func toUserDTO(p *models.Profile, self bool) userDTO {
	out := userDTO{
		ID:          p.User.ID.String(),
		Username:    p.User.Username,
		DisplayName: p.User.DisplayName,
		Bio:         p.User.Bio,
		AvatarURL:   p.User.AvatarURL,
		Followers:   p.Followers,
		Following:   p.Following,
		Followed:    p.Followed,
		CreatedAt:   p.User.CreatedAt,
	}
	if self {
		out.Email = p.User.Email
	}

	return out
}

func toAuthorDTO(u *models.User) authorDTO {
	return authorDTO{
		ID:          u.ID.String(),
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

func toPostDTO(it *models.FeedItem) postDTO {
	return postDTO{
		ID:        it.Post.ID.String(),
		Author:    toAuthorDTO(&it.Author),
		Content:   it.Post.Content,
		MediaURL:  it.Post.MediaURL,
		Likes:     it.Likes,
		Liked:     it.Liked,
		CreatedAt: it.Post.CreatedAt,
	}
}

func toNotificationDTO(n *models.NotificationView) notificationDTO {
	out := notificationDTO{
		ID:        n.Notification.ID.String(),
		Type:      n.Notification.Kind,
		Actor:     toAuthorDTO(&n.Actor),
		Read:      n.Notification.Read,
		CreatedAt: n.Notification.CreatedAt,
	}
	if pid := n.Notification.PostID; pid != uuid.Nil {
		out.PostID = pid.String()
	}

	return out
}

// toMessageDTO — from/to как username; names сопоставляет id с username.
func toMessageDTO(m *models.Message, names map[uuid.UUID]string) messageDTO {
	return messageDTO{
		ID:        m.ID.String(),
		From:      names[m.FromID],
		To:        names[m.ToID],
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func toMediaDTO(m *models.Media) mediaDTO {
	return mediaDTO{
		ID:          m.ID.String(),
		URL:         "/api/media/" + m.ID.String(),
		Name:        m.Name,
		ContentType: m.ContentType,
		Size:        len(m.Data),
	}
}
