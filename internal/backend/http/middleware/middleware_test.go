package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-social-client/internal/backend/service"
	logctx "github.com/pribylovaa/go-social-client/pkg/log"
)

// capHandler — тестовый slog.Handler: копит attrs из With(...) и последней записи.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)

	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.count++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out

	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) > 0 {
		h.base = append(h.base, attrs...)
	}

	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// validatorFunc — TokenValidator из функции.
type validatorFunc func(ctx context.Context, token string) (uuid.UUID, error)

func (f validatorFunc) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	return f(ctx, token)
}

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

type errEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// serve собирает мидлвары вокруг h через chi (внешний -> внутренний).
func serve(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	return chi.Chain(mws...).Handler(h)
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	t.Parallel()

	var seenID, seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get("X-Request-Id")
		seenCtxID = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	serve(h, RequestID()).ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get("X-Request-Id")
	_, err := uuid.Parse(respID)
	require.NoError(t, err)

	require.Equal(t, respID, seenID)
	require.Equal(t, respID, seenCtxID)
}

func TestRequestID_UseExisting(t *testing.T) {
	t.Parallel()

	const given = "abc123-existing-id"
	var seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtxID = RequestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	req := makeReq("/rid2")
	req.Header.Set("X-Request-Id", given)
	serve(h, RequestID()).ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get("X-Request-Id"))
	require.Equal(t, given, seenCtxID)
}

func TestAuthBearer_PopulatesContext_WhenBearerPresent(t *testing.T) {
	t.Parallel()

	var token string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = TokenFrom(r.Context())
	})

	req := makeReq("/auth")
	req.Header.Set("Authorization", "Bearer test-token-123")
	serve(h, AuthBearer()).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "test-token-123", token)
}

func TestAuthBearer_IgnoresInvalidHeader(t *testing.T) {
	t.Parallel()

	for _, header := range []string{"", "Basic aaa", "Bearer ", "bearer abc"} {
		var token string
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token = TokenFrom(r.Context())
		})

		req := makeReq("/auth")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		serve(h, AuthBearer()).ServeHTTP(httptest.NewRecorder(), req)

		require.Empty(t, token, "header %q", header)
	}
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	uid := uuid.New()
	v := validatorFunc(func(_ context.Context, token string) (uuid.UUID, error) {
		switch token {
		case "good":
			return uid, nil
		case "expired":
			return uuid.Nil, service.ErrTokenExpired
		default:
			return uuid.Nil, service.ErrInvalidToken
		}
	})

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{name: "valid", header: "Bearer good", status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized, code: "invalid_token"},
		{name: "expired", header: "Bearer expired", status: http.StatusUnauthorized, code: "token_expired"},
		{name: "garbage", header: "Bearer zzz", status: http.StatusUnauthorized, code: "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen uuid.UUID
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = UserIDFrom(r.Context())
			})

			req := makeReq("/me")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			serve(h, AuthBearer(), RequireAuth(v)).ServeHTTP(rr, req)

			require.Equal(t, tt.status, rr.Code)
			if tt.code == "" {
				require.Equal(t, uid, seen)
				return
			}

			var env errEnvelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
			require.False(t, env.Success)
			require.Equal(t, tt.code, env.Error)
			require.Equal(t, uuid.Nil, seen)
		})
	}
}

func TestOptionalAuth_AnonymousOnBadToken(t *testing.T) {
	t.Parallel()

	v := validatorFunc(func(context.Context, string) (uuid.UUID, error) {
		return uuid.Nil, errors.New("bad")
	})

	called := false
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.Equal(t, uuid.Nil, UserIDFrom(r.Context()))
	})

	req := makeReq("/posts")
	req.Header.Set("Authorization", "Bearer whatever")
	rr := httptest.NewRecorder()
	serve(h, AuthBearer(), OptionalAuth(v)).ServeHTTP(rr, req)

	require.True(t, called)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestTimeout_SetsDeadline_WhenAbsent(t *testing.T) {
	t.Parallel()

	var hasDeadline bool
	var left time.Duration

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dl, ok := r.Context().Deadline()
		hasDeadline = ok
		if ok {
			left = time.Until(dl)
		}
	})

	serve(h, Timeout(50*time.Millisecond)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout"))

	require.True(t, hasDeadline)
	require.Greater(t, left, time.Duration(0))
}

func TestTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	t.Parallel()

	var childDL time.Time
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		childDL, _ = r.Context().Deadline()
	})

	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	serve(h, Timeout(time.Second)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout2").WithContext(parent))

	parentDL, _ := parent.Deadline()
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	t.Parallel()

	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	h := &capHandler{}
	req := makeReq("/panic")
	req.Header.Set("X-Request-Id", "rid-panic")

	rr := httptest.NewRecorder()
	serve(panicHandler, RequestID(), Logging(slog.New(h)), Recover()).ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, "internal", env.Error)
	require.NotContains(t, env.Message, "boom")
	require.Equal(t, "rid-panic", env.RequestID)

	// panic_recovered + итоговая http_request.
	require.Equal(t, 2, h.count)
	require.Equal(t, "http_request", h.lastMsg)
	require.Equal(t, slog.LevelError, h.lastLvl)
	require.Equal(t, "rid-panic", h.attrs["request_id"])
	status, _ := h.attrs["status"].(int64)
	require.EqualValues(t, http.StatusInternalServerError, status)
}

func TestRecover_KeepsStartedResponse(t *testing.T) {
	t.Parallel()

	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("late")
	})

	rr := httptest.NewRecorder()
	serve(panicHandler, RequestID(), Recover()).ServeHTTP(rr, makeReq("/panic-late"))

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, "partial", rr.Body.String())
}

func TestRecover_RepanicsOnAbortHandler(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(h, Recover()).ServeHTTP(httptest.NewRecorder(), makeReq("/abort"))
	})
}

func TestTimeout_WritesGatewayTimeoutEnvelope(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	req := makeReq("/slow")
	req.Header.Set("X-Request-Id", "rid-slow")

	rr := httptest.NewRecorder()
	serve(slow, RequestID(), Timeout(10*time.Millisecond)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusGatewayTimeout, rr.Code)

	var env errEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "deadline_exceeded", env.Error)
	require.Equal(t, "rid-slow", env.RequestID)
}

func TestLogging_WritesRecord_WithStatusDurBytesAndRequestID(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	logger := slog.New(h)

	const rid = "rid-456"
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	})

	rr := httptest.NewRecorder()
	req := makeReq("/log")
	req.Header.Set("X-Request-Id", rid)
	req.Header.Set("Authorization", "Bearer secret-token")

	serve(final, RequestID(), Logging(logger)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, h.count)
	require.Equal(t, "http_request", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)

	status, _ := h.attrs["status"].(int64)
	bytes, _ := h.attrs["bytes"].(int64)

	require.Equal(t, http.MethodGet, h.attrs["method"])
	require.Equal(t, "/log", h.attrs["path"])
	require.EqualValues(t, http.StatusOK, status)
	require.EqualValues(t, 10, bytes)
	require.Equal(t, rid, h.attrs["request_id"])

	_, hasDur := h.attrs["dur"]
	require.True(t, hasDur)

	for _, v := range h.attrs {
		if s, ok := v.(string); ok {
			require.NotContains(t, s, "secret-token")
		}
	}
}

func TestMetrics_CountsByRoutePattern(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()

	r := chi.NewRouter()
	r.Use(Metrics(reg))
	r.Get("/posts/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), makeReq("/posts/"+id))
	}

	require.Equal(t, 1, testutil.CollectAndCount(reg, "social_backend_http_requests_total"))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "social_backend_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			require.Equal(t, "/posts/{id}", labels["route"])
			require.Equal(t, "404", labels["code"])
			require.EqualValues(t, 3, m.GetCounter().GetValue())
			found = true
		}
	}
	require.True(t, found)
}

func TestStatusWriter_CountsBytes_AndDefaultStatus200(t *testing.T) {
	t.Parallel()

	sw := wrapWriter(httptest.NewRecorder())
	require.Equal(t, http.StatusOK, sw.Status())

	_, _ = sw.Write([]byte("abcd"))
	sw.WriteHeader(http.StatusTeapot)

	require.Equal(t, http.StatusOK, sw.Status())
	require.Equal(t, 4, sw.count)
	require.Same(t, sw, wrapWriter(sw))
}

func TestLogging_UsesRequestScopedLoggerDownstream(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logctx.From(r.Context()).Info("handler_event")
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	req := makeReq("/inner")
	req.Header.Set("X-Request-Id", "rid-inner")
	serve(final, RequestID(), Logging(slog.New(h))).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 2, h.count)
	require.Equal(t, "http_request", h.lastMsg)
	require.Equal(t, slog.LevelError, h.lastLvl)
	require.Equal(t, "rid-inner", h.attrs["request_id"])
	require.Equal(t, "/inner", h.attrs["path"])
}
