package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/pribylovaa/go-social-client/internal/backend/errors"
)

// Timeout ограничивает время обработки запроса. Уже заданный дедлайн не
// переопределяется; d <= 0 отключает мидлвар.
//
// Если дедлайн истёк, а обработчик так ничего и не записал, клиент получает
// 504 deadline_exceeded в общем конверте ошибок.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			sw := wrapWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			if !sw.wroteHeader && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				apierrors.WriteError(sw, r, context.DeadlineExceeded)
			}
		})
	}
}
