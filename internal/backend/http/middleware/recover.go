package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/pribylovaa/go-social-client/internal/backend/errors"
	logctx "github.com/pribylovaa/go-social-client/pkg/log"
)

var errPanic = errors.New("handler panicked")

// Recover превращает panic обработчика в 500 с конвертом {success:false, error:"internal"}
// и requestId. Если ответ уже начат, конверт не пишется: только запись в лог.
// http.ErrAbortHandler пробрасывается дальше, как того ждёт net/http.
//
// Ставится после RequestID и Logging, чтобы паника попала в request-scoped лог
// и в итоговую запись http_request со статусом 500.
func Recover() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := wrapWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic_recovered",
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
					slog.Bool("response_started", sw.wroteHeader),
					slog.String("stack", string(debug.Stack())),
				)

				if !sw.wroteHeader {
					apierrors.WriteError(sw, r, errPanic)
				}
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
