package interceptors

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type CtxKey string

const CtxRequestID CtxKey = "request_id"

// HeaderRequestID — заголовок корреляции запросов.
const HeaderRequestID = "X-Request-Id"

// ContextWithRequestID кладёт request id в контекст вызова.
func ContextWithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, CtxRequestID, rid)
}

// RequestIDFrom достаёт request id из контекста ("" если нет).
func RequestIDFrom(ctx context.Context) string {
	if v := ctx.Value(CtxRequestID); v != nil {
		if rid, _ := v.(string); rid != "" {
			return rid
		}
	}

	return ""
}

// WithRequestID проставляет X-Request-Id: из заголовка запроса, из контекста
// или новый uuid. Все попытки одного вызова с тем же ctx получают один id.
func WithRequestID() Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(r)
			}

			rid := RequestIDFrom(r.Context())
			if rid == "" {
				rid = uuid.NewString()
			}

			r = clone(r)
			r.Header.Set(HeaderRequestID, rid)
			return next.RoundTrip(r)
		})
	}
}

// WithUserAgent задаёт User-Agent, если он не выставлен явно. Пустой ua — no-op.
func WithUserAgent(ua string) Interceptor {
	return func(next http.RoundTripper) http.RoundTripper {
		if ua == "" {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("User-Agent") != "" {
				return next.RoundTrip(r)
			}

			r = clone(r)
			r.Header.Set("User-Agent", ua)
			return next.RoundTrip(r)
		})
	}
}
