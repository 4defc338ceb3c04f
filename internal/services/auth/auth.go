// auth — вход, регистрация и выход поверх client.API. Сервис владеет записью
// учётных данных в хранилище; ядро клиента только читает их и обновляет при refresh.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-social-client/internal/client"
	"github.com/pribylovaa/go-social-client/internal/services/models"
	"github.com/pribylovaa/go-social-client/internal/session"
	logctx "github.com/pribylovaa/go-social-client/pkg/log"
	"github.com/pribylovaa/go-social-client/pkg/redact"
)

const (
	pathRegister = "/api/auth/register"
	pathLogin    = "/api/auth/login"
	pathLogout   = "/api/auth/logout"
	pathMe       = "/api/auth/me"
)

var (
	// ErrNotLoggedIn — в хранилище нет учётных данных.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrEmptyToken — OAuth-колбэк не передал access-токен.
	ErrEmptyToken = errors.New("empty access token")
)

// Service — операции аутентификации.
type Service struct {
	api    client.API
	store  session.Store
	ttl    time.Duration
	mePath string
	log    *slog.Logger

	now func() time.Time
}

// New — ttl используется, если бэкенд не вернул expiresAt; mePath "" — /api/auth/me.
func New(api client.API, store session.Store, ttl time.Duration, mePath string, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = client.DefaultAccessTokenTTL
	}
	if mePath == "" {
		mePath = pathMe
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{api: api, store: store, ttl: ttl, mePath: mePath, log: log, now: time.Now}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register создаёт аккаунт и сразу сохраняет сессию.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	const op = "services.auth.Register"

	resp, err := s.api.Post(ctx, pathRegister, registerRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, client.WithoutAuth())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.persist(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logctx.FromOr(ctx, s.log).Info("registered",
		slog.String("username", user.Username),
		slog.String("email", redact.Email(email)),
	)

	return user, nil
}

// Login выполняет вход по email и паролю и сохраняет сессию.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	const op = "services.auth.Login"

	resp, err := s.api.Post(ctx, pathLogin, loginRequest{Email: email, Password: password}, client.WithoutAuth())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.persist(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logctx.FromOr(ctx, s.log).Info("logged_in",
		slog.String("username", user.Username),
		slog.String("email", redact.Email(email)),
	)

	return user, nil
}

// Logout отзывает refresh-токен на сервере (best effort) и очищает хранилище.
// Ошибка сервера не мешает локальному выходу.
func (s *Service) Logout(ctx context.Context) error {
	const op = "services.auth.Logout"

	log := logctx.FromOr(ctx, s.log)

	creds, err := s.store.Load(ctx)
	if err != nil {
		log.Warn("session_load_failed", slog.String("err", err.Error()))
	} else if creds.HasRefresh() {
		if _, err := s.api.Post(ctx, pathLogout, logoutRequest{RefreshToken: creds.RefreshToken}, client.WithoutAuth()); err != nil {
			log.Warn("logout_revoke_failed",
				slog.String("token", redact.Token(creds.RefreshToken)),
				slog.String("err", err.Error()),
			)
		}
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logged_out")

	return nil
}

// Me запрашивает текущего пользователя и кэширует его в хранилище.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	const op = "services.auth.Me"

	resp, err := s.api.Get(ctx, s.mePath, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out struct {
		User models.User `json:"user"`
	}
	if err := resp.Data(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := json.Marshal(out.User)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.SetUser(ctx, raw); err != nil {
		return nil, fmt.Errorf("%s: cache user: %w", op, err)
	}

	return &out.User, nil
}

// CompleteOAuth сохраняет токены, полученные из OAuth-колбэка, и подтягивает профиль.
func (s *Service) CompleteOAuth(ctx context.Context, accessToken, refreshToken string) (*models.User, error) {
	const op = "services.auth.CompleteOAuth"

	if accessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyToken)
	}

	if err := s.store.Save(ctx, session.Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    s.now().Add(s.ttl),
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// CachedUser — профиль из хранилища без обращения к сети.
func (s *Service) CachedUser(ctx context.Context) (*models.User, error) {
	const op = "services.auth.CachedUser"

	creds, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(creds.User) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotLoggedIn)
	}

	var user models.User
	if err := json.Unmarshal(creds.User, &user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

// LoggedIn — есть ли сохранённая сессия.
func (s *Service) LoggedIn(ctx context.Context) bool {
	creds, err := s.store.Load(ctx)
	return err == nil && (creds.HasAccess() || creds.HasRefresh())
}

// persist сохраняет токены и профиль из ответа register/login.
func (s *Service) persist(ctx context.Context, resp *client.Response) (*models.User, error) {
	var res models.AuthResult
	if err := resp.Data(&res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, ErrEmptyToken
	}

	expires := res.ExpiresAt
	if expires.IsZero() {
		expires = s.now().Add(s.ttl)
	}

	raw, err := json.Marshal(res.User)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, session.Credentials{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    expires,
		User:         raw,
	}); err != nil {
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	return &res.User, nil
}
