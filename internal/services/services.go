// services — набор прикладных сервисов поверх одного client.API.
package services

import (
	"log/slog"

	"github.com/pribylovaa/go-social-client/internal/client"
	"github.com/pribylovaa/go-social-client/internal/config"
	"github.com/pribylovaa/go-social-client/internal/services/auth"
	"github.com/pribylovaa/go-social-client/internal/services/messages"
	"github.com/pribylovaa/go-social-client/internal/services/notifications"
	"github.com/pribylovaa/go-social-client/internal/services/posts"
	"github.com/pribylovaa/go-social-client/internal/services/users"
	"github.com/pribylovaa/go-social-client/internal/session"
)

// Services агрегирует сервисы по ресурсам бэкенда.
type Services struct {
	Auth          *auth.Service
	Users         *users.Service
	Posts         *posts.Service
	Notifications *notifications.Service
	Messages      *messages.Service
}

// New — api может быть как *client.Client, так и mockapi.Client.
func New(api client.API, store session.Store, cfg config.APIConfig, log *slog.Logger) *Services {
	return &Services{
		Auth:          auth.New(api, store, cfg.AccessTokenTTL, cfg.MePath, log),
		Users:         users.New(api),
		Posts:         posts.New(api),
		Notifications: notifications.New(api),
		Messages:      messages.New(api),
	}
}
