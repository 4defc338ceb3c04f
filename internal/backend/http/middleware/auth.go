package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/go-social-client/internal/backend/errors"
	"github.com/pribylovaa/go-social-client/internal/backend/service"
)

const (
	ctxAuthToken ctxKey = "auth_token"
	ctxUserID    ctxKey = "user_id"
)

// TokenValidator проверяет access-токен и возвращает id пользователя.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// AuthBearer извлекает Bearer-токен из Authorization и кладёт "сырой" токен
// в контекст. Проверка токена — в RequireAuth/OptionalAuth.
func AuthBearer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			const prefix = "Bearer "
			if strings.HasPrefix(auth, prefix) && len(auth) > len(prefix) {
				if token := strings.TrimSpace(auth[len(prefix):]); token != "" {
					r = r.WithContext(context.WithValue(r.Context(), ctxAuthToken, token))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth пропускает только запросы с валидным access-токеном
// и кладёт id пользователя в контекст; иначе 401.
func RequireAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFrom(r.Context())
			if token == "" {
				apierrors.WriteError(w, r, service.ErrInvalidToken)
				return
			}

			uid, err := v.ValidateToken(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserID, uid)))
		})
	}
}

// OptionalAuth кладёт id пользователя в контекст, если токен валиден;
// без токена или с невалидным токеном запрос идёт анонимно.
func OptionalAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFrom(r.Context()); token != "" {
				if uid, err := v.ValidateToken(r.Context(), token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxUserID, uid))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TokenFrom — сырой Bearer-токен из контекста ("" если нет).
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(ctxAuthToken).(string)
	return token
}

// UserIDFrom — id аутентифицированного пользователя (uuid.Nil — аноним).
func UserIDFrom(ctx context.Context) uuid.UUID {
	uid, _ := ctx.Value(ctxUserID).(uuid.UUID)
	return uid
}

// WithUserID — для тестов хендлеров без полного стека мидлваров.
func WithUserID(ctx context.Context, uid uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserID, uid)
}
