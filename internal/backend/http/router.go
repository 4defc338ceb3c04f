package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/go-social-client/internal/backend/http/handlers"
	"github.com/pribylovaa/go-social-client/internal/backend/http/middleware"
	"github.com/pribylovaa/go-social-client/internal/backend/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	// Registerer — куда регистрировать HTTP-метрики; nil — не регистрировать.
	Registerer prometheus.Registerer
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Recover(),
		middleware.Metrics(opts.Registerer),
		middleware.AuthBearer(),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, v middleware.TokenValidator) {
	// public
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
	r.Get("/media/{id}", h.Media)

	// анонимный доступ разрешён, но с токеном ответ персонализирован
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(v))

		r.Get("/users/{username}", h.Profile)
		r.Get("/posts", h.Feed)
		r.Get("/posts/{id}", h.Post)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(v))

		r.Get("/auth/me", h.Me)

		r.Put("/users/me", h.UpdateMe)
		r.Post("/users/{username}/follow", h.Follow)
		r.Delete("/users/{username}/follow", h.Unfollow)

		r.Post("/posts", h.CreatePost)
		r.Delete("/posts/{id}", h.DeletePost)
		r.Post("/posts/{id}/like", h.Like)
		r.Delete("/posts/{id}/like", h.Unlike)

		r.Post("/media/upload", h.UploadMedia)

		r.Get("/notifications", h.Notifications)
		r.Patch("/notifications/{id}/read", h.MarkNotificationRead)

		r.Get("/messages/conversations", h.Conversations)
		r.Get("/messages/{username}", h.Thread)
		r.Post("/messages/{username}", h.SendMessage)
	})
}
