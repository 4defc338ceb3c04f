// models — доменные структуры ответов бэкенда, как их видят сервисы клиента.
package models

import "time"

// Профиль пользователя. Email приходит только для собственного профиля.
type User struct {
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

// Author — краткая карточка пользователя внутри постов и сообщений.
type Author struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Частичное обновление профиля: nil-поля не меняются.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}

// AuthResult — ответ register/login.
type AuthResult struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type Post struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	Likes     int       `json:"likes"`
	Liked     bool      `json:"liked"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedPage — страница ленты.
type FeedPage struct {
	Posts []Post `json:"posts"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int    `json:"total"`
}

type Media struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // like | follow | message
	Actor     Author    `json:"actor"`
	PostID    string    `json:"postId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifications — список уведомлений и число непрочитанных.
type Notifications struct {
	Items  []Notification `json:"notifications"`
	Unread int            `json:"unread"`
}

// Message — from/to как username.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Conversation struct {
	User        Author  `json:"user"`
	LastMessage Message `json:"lastMessage"`
}

// Thread — переписка с одним собеседником.
type Thread struct {
	User     Author    `json:"user"`
	Messages []Message `json:"messages"`
}
