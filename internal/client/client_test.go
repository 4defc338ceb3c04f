package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-social-client/internal/client/interceptors"
	"github.com/pribylovaa/go-social-client/internal/config"
	"github.com/pribylovaa/go-social-client/internal/events"
	"github.com/pribylovaa/go-social-client/internal/session"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// sleeper запоминает запрошенные задержки бэкоффа вместо реального сна.
type sleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleeper) got() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type fixture struct {
	client *Client
	store  *session.MemoryStore
	bus    *events.Bus
	sleep  *sleeper
}

func newFixture(t *testing.T, srv *httptest.Server, mutate ...func(*Options)) *fixture {
	t.Helper()

	store := session.NewMemoryStore()
	bus := events.NewBus()
	opts := Options{
		BaseURL:       srv.URL,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		Store:         store,
		Bus:           bus,
		Doer:          srv.Client(),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&opts)
	}

	c, err := New(opts)
	require.NoError(t, err)

	s := &sleeper{}
	c.now = func() time.Time { return testNow }
	c.sleep = s.sleep

	return &fixture{client: c, store: store, bus: bus, sleep: s}
}

func (f *fixture) login(t *testing.T, access, refresh string, expires time.Time) {
	t.Helper()

	require.NoError(t, f.store.Save(context.Background(), session.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expires,
		User:         json.RawMessage(`{"username":"alice"}`),
	}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Options{BaseURL: "", Store: session.NewMemoryStore()})
	require.Error(t, err)

	_, err = New(Options{BaseURL: "api.example.com", Store: session.NewMemoryStore()})
	require.Error(t, err)

	_, err = New(Options{BaseURL: "https://api.example.com"})
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c, err := New(Options{
		BaseURL:       "https://api.example.com/",
		RetryAttempts: -1,
		RetryDelay:    -time.Second,
		Store:         session.NewMemoryStore(),
	})
	require.NoError(t, err)

	require.Equal(t, "https://api.example.com", c.baseURL)
	require.Equal(t, DefaultTimeout, c.timeout)
	require.Equal(t, DefaultRetryAttempts, c.retryAttempts)
	require.Equal(t, DefaultRetryDelay, c.retryDelay)
	require.Equal(t, DefaultAccessTokenTTL, c.accessTTL)
	require.Equal(t, DefaultRefreshPath, c.refreshPath)
	require.NotNil(t, c.Bus())
	require.NotNil(t, c.Store())
	require.IsType(t, &http.Client{}, c.doer)
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	opts := OptionsFromConfig(config.APIConfig{
		BaseURL:        "http://localhost:5000",
		Timeout:        5 * time.Second,
		RetryAttempts:  2,
		RetryDelay:     250 * time.Millisecond,
		AccessTokenTTL: time.Hour,
		RefreshPath:    "/auth/refresh",
		UserAgent:      "ua",
	})

	require.Equal(t, "http://localhost:5000", opts.BaseURL)
	require.Equal(t, 5*time.Second, opts.Timeout)
	require.Equal(t, 2, opts.RetryAttempts)
	require.Equal(t, 250*time.Millisecond, opts.RetryDelay)
	require.Equal(t, time.Hour, opts.AccessTokenTTL)
	require.Equal(t, "/auth/refresh", opts.RefreshPath)
	require.Equal(t, "ua", opts.UserAgent)
	require.False(t, opts.NoRetry)

	opts = OptionsFromConfig(config.APIConfig{BaseURL: "http://localhost:5000"})
	require.True(t, opts.NoRetry)
}

func TestNew_ZeroOptionsRetryWithDefaults(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, Store: session.NewMemoryStore(), Doer: srv.Client()})
	require.NoError(t, err)

	s := &sleeper{}
	c.sleep = s.sleep

	_, err = c.Get(context.Background(), "/api/feed", nil)
	require.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	require.EqualValues(t, 1+DefaultRetryAttempts, calls.Load())
	require.Equal(t, []time.Duration{DefaultRetryDelay, 2 * DefaultRetryDelay, 4 * DefaultRetryDelay}, s.got())
}

func TestBearer_AttachedWhenTokenValid(t *testing.T) {
	t.Parallel()

	var gotAuth, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	f := newFixture(t, srv)
	f.login(t, "tok-1", "ref-1", testNow.Add(time.Hour))

	_, err := f.client.Get(context.Background(), "/api/feed", nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-1", gotAuth)
	require.Equal(t, "application/json", gotCT)
}

func TestBearer_AbsentWhenExpiredOrNoAuth(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	f := newFixture(t, srv)

	// Валидный токен, но вызов без авторизации.
	f.login(t, "tok-1", "ref-1", testNow.Add(time.Hour))
	_, err := f.client.Post(context.Background(), "/api/auth/login", map[string]string{"email": "a@b.c"}, WithoutAuth())
	require.NoError(t, err)

	// Истёкший токен не предъявляется.
	f.login(t, "tok-old", "ref-1", testNow.Add(-time.Minute))
	_, err = f.client.Get(context.Background(), "/api/feed", nil)
	require.NoError(t, err)

	require.Equal(t, []string{"", ""}, seen)
}

func TestRetry_TransientStatuses(t *testing.T) {
	t.Parallel()

	for _, status := range []int{500, 502, 503, 429} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, status, map[string]any{"success": false, "error": "busy"})
			}))
			defer srv.Close()

			f := newFixture(t, srv)

			_, err := f.client.Get(context.Background(), "/api/feed", nil)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrRequestFailed)
			require.Equal(t, status, StatusCode(err))

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			require.Equal(t, "busy", reqErr.Message)
			require.Equal(t, map[string]any{"success": false, "error": "busy"}, reqErr.Body)

			require.EqualValues(t, 4, calls.Load())
			require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, f.sleep.got())
		})
	}
}

func TestRetry_RecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]int{"n": 1}})
	}))
	defer srv.Close()

	f := newFixture(t, srv)

	resp, err := f.client.Get(context.Background(), "/api/feed", nil)
	require.NoError(t, err)

	var data struct{ N int }
	require.NoError(t, resp.Data(&data))
	require.Equal(t, 1, data.N)
	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleep.got())
}

func TestRetry_ClientErrorsNotRetried(t *testing.T) {
	t.Parallel()

	for _, status := range []int{400, 403, 404, 409, 422} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, status, map[string]any{"success": false, "message": "nope"})
			}))
			defer srv.Close()

			f := newFixture(t, srv)

			_, err := f.client.Post(context.Background(), "/api/posts", map[string]string{"content": "x"})
			require.ErrorIs(t, err, ErrRequestFailed)
			require.Equal(t, status, StatusCode(err))
			require.Contains(t, err.Error(), "nope")
			require.EqualValues(t, 1, calls.Load())
			require.Empty(t, f.sleep.got())
		})
	}
}

func TestRetry_NoRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newFixture(t, srv, func(o *Options) { o.NoRetry = true })

	_, err := f.client.Get(context.Background(), "/api/feed", nil)
	require.Equal(t, http.StatusInternalServerError, StatusCode(err))
	require.EqualValues(t, 1, calls.Load())
}

func TestRetry_CanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newFixture(t, srv)
	f.client.sleep = sleepCtx

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := f.client.Get(ctx, "/api/feed", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRefresh_SuccessRetriesOnceWithNewToken(t *testing.T) {
	t.Parallel()

	var refreshCalls, likeCalls atomic.Int32
	var gotRefreshBody map[string]string
	var mu sync.Mutex
	var auths []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			refreshCalls.Add(1)
			require.Empty(t, r.Header.Get("Authorization"))
			_ = json.NewDecoder(r.Body).Decode(&gotRefreshBody)
			writeJSON(w, http.StatusOK, map[string]any{"accessToken": "t2", "refreshToken": "r2"})
		case "/api/posts/123/like":
			likeCalls.Add(1)
			mu.Lock()
			auths = append(auths, r.Header.Get("Authorization"))
			mu.Unlock()
			if r.Header.Get("Authorization") != "Bearer t2" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "token expired"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"liked": true}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := newFixture(t, srv)
	// access-токен истёк, refresh-токен валиден.
	f.login(t, "t1", "r1", testNow.Add(-time.Second))

	logout, cancel := f.bus.Subscribe()
	defer cancel()

	resp, err := f.client.Post(context.Background(), "/api/posts/123/like", nil)
	require.NoError(t, err)

	var data map[string]bool
	require.NoError(t, resp.Data(&data))
	require.True(t, data["liked"])

	require.EqualValues(t, 1, refreshCalls.Load())
	require.EqualValues(t, 2, likeCalls.Load())
	require.Equal(t, map[string]string{"refreshToken": "r1"}, gotRefreshBody)
	require.Equal(t, []string{"", "Bearer t2"}, auths)

	creds, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", creds.AccessToken)
	require.Equal(t, "r2", creds.RefreshToken)
	require.Equal(t, testNow.Add(DefaultAccessTokenTTL), creds.ExpiresAt)
	require.JSONEq(t, `{"username":"alice"}`, string(creds.User))

	select {
	case <-logout:
		t.Fatal("logout must not be broadcast on successful refresh")
	default:
	}
}

func TestRefresh_WrappedResponseKeepsRefreshToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/custom/refresh":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"accessToken": "t2"}})
		default:
			if r.Header.Get("Authorization") != "Bearer t2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		}
	}))
	defer srv.Close()

	f := newFixture(t, srv, func(o *Options) {
		o.RefreshPath = "/custom/refresh"
		o.AccessTokenTTL = 10 * time.Minute
	})
	f.login(t, "t1", "r1", testNow.Add(time.Hour))

	_, err := f.client.Get(context.Background(), "/api/auth/me", nil)
	require.NoError(t, err)

	creds, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", creds.AccessToken)
	require.Equal(t, "r1", creds.RefreshToken)
	require.Equal(t, testNow.Add(10*time.Minute), creds.ExpiresAt)
}

func TestRefresh_FailureExpiresSession(t *testing.T) {
	t.Parallel()

	cases := map[string]http.HandlerFunc{
		"rejected": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "invalid refresh token"})
		},
		"server_error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"empty_access_token": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
		},
		"not_json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("oops"))
		},
	}

	for name, refreshHandler := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var refreshCalls, calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == DefaultRefreshPath {
					refreshCalls.Add(1)
					refreshHandler(w, r)
					return
				}
				calls.Add(1)
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer srv.Close()

			f := newFixture(t, srv)
			f.login(t, "t1", "r1", testNow.Add(time.Hour))

			logout, cancel := f.bus.Subscribe()
			defer cancel()

			_, err := f.client.Get(context.Background(), "/api/notifications", nil)
			require.ErrorIs(t, err, ErrSessionExpired)
			require.True(t, IsSessionExpired(err))
			require.False(t, errors.Is(err, ErrRequestFailed))

			require.EqualValues(t, 1, refreshCalls.Load())
			require.EqualValues(t, 1, calls.Load())

			creds, err := f.store.Load(context.Background())
			require.NoError(t, err)
			require.True(t, creds.IsZero())

			select {
			case <-logout:
			default:
				t.Fatal("logout signal expected")
			}
		})
	}
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			refreshCalls.Add(1)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "unauthorized"})
	}))
	defer srv.Close()

	f := newFixture(t, srv)
	f.login(t, "t1", "", testNow.Add(time.Hour))

	logout, cancel := f.bus.Subscribe()
	defer cancel()

	_, err := f.client.Get(context.Background(), "/api/users/me", nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.True(t, IsUnauthorized(err))
	require.False(t, IsSessionExpired(err))
	require.Equal(t, http.StatusUnauthorized, StatusCode(err))
	require.Zero(t, refreshCalls.Load())

	select {
	case <-logout:
		t.Fatal("no logout without a refresh attempt")
	default:
	}

	creds, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t1", creds.AccessToken)
}

func TestRefresh_NotForUnauthenticatedCalls(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			refreshCalls.Add(1)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "invalid credentials"})
	}))
	defer srv.Close()

	f := newFixture(t, srv)
	f.login(t, "t1", "r1", testNow.Add(time.Hour))

	_, err := f.client.Post(context.Background(), "/api/auth/login", map[string]string{"email": "a@b.c"}, WithoutAuth())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, "invalid credentials", err.(*RequestError).Message)
	require.Zero(t, refreshCalls.Load())
}

func TestRefresh_SecondUnauthorizedIsReturned(t *testing.T) {
	t.Parallel()

	var refreshCalls, calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			refreshCalls.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{"accessToken": "t2"})
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := newFixture(t, srv)
	f.login(t, "t1", "r1", testNow.Add(time.Hour))

	_, err := f.client.Delete(context.Background(), "/api/posts/1", nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.EqualValues(t, 1, refreshCalls.Load())
	require.EqualValues(t, 2, calls.Load())
}

func TestRefresh_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	t.Parallel()

	const n = 8

	var refreshCalls atomic.Int32
	var arrived atomic.Int32
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			refreshCalls.Add(1)
			time.Sleep(50 * time.Millisecond)
			writeJSON(w, http.StatusOK, map[string]any{"accessToken": "t2", "refreshToken": "r2"})
			return
		}
		if r.Header.Get("Authorization") == "Bearer t2" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
		// Все первые попытки получают 401 одновременно.
		if arrived.Add(1) == n {
			close(release)
		}
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := newFixture(t, srv)
	f.login(t, "t1", "r1", testNow.Add(time.Hour))

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.client.Get(context.Background(), "/api/feed", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, refreshCalls.Load())

	creds, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", creds.AccessToken)
	require.Equal(t, "r2", creds.RefreshToken)
}

func TestRefresh_ReusesTokenRefreshedByAnotherCall(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	var f *fixture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			refreshCalls.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{"accessToken": "never"})
			return
		}
		if r.Header.Get("Authorization") == "Bearer t1" {
			// Пока запрос в полёте, другой вызов уже обновил токен.
			require.NoError(t, f.store.Save(context.Background(), session.Credentials{
				AccessToken:  "t2",
				RefreshToken: "r2",
				ExpiresAt:    testNow.Add(time.Hour),
			}))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	f = newFixture(t, srv)
	f.login(t, "t1", "r1", testNow.Add(time.Hour))

	_, err := f.client.Get(context.Background(), "/api/feed", nil)
	require.NoError(t, err)
	require.Zero(t, refreshCalls.Load())
}

func TestTimeout_DistinctAndNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := newFixture(t, srv, func(o *Options) { o.Timeout = 50 * time.Millisecond })

	_, err := f.client.Get(context.Background(), "/api/feed", nil)
	require.ErrorIs(t, err, ErrTimeout)
	require.True(t, IsTimeout(err))
	require.False(t, errors.Is(err, ErrRequestFailed))
	require.Zero(t, StatusCode(err))
	require.EqualValues(t, 1, calls.Load())
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	f := newFixture(t, srv)
	srv.Close()

	_, err := f.client.Get(context.Background(), "/api/feed", nil)
	require.ErrorIs(t, err, ErrTransport)
	require.Zero(t, StatusCode(err))
	require.Empty(t, f.sleep.got())
}

func TestGet_IdempotentNoCaching(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []int{1, 2}})
	}))
	defer srv.Close()

	f := newFixture(t, srv)

	q := url.Values{"page": {"1"}}
	r1, err := f.client.Get(context.Background(), "/api/feed", q)
	require.NoError(t, err)
	r2, err := f.client.Get(context.Background(), "/api/feed", q)
	require.NoError(t, err)

	require.Equal(t, r1.Body, r2.Body)
	require.EqualValues(t, 2, calls.Load())
}

func TestScenario_GetUserBob(t *testing.T) {
	t.Parallel()

	var gotURL, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.Method + " " + r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"user": map[string]any{"username": "bob"}}})
	}))
	defer srv.Close()

	f := newFixture(t, srv)
	f.login(t, "tok", "ref", testNow.Add(time.Hour))

	resp, err := f.client.Get(context.Background(), "api/users/bob", nil)
	require.NoError(t, err)
	require.Equal(t, "GET /api/users/bob", gotURL)
	require.Equal(t, "Bearer tok", gotAuth)

	var data struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, resp.Data(&data))
	require.Equal(t, map[string]any{"username": "bob"}, data.User)

	v, err := resp.Value()
	require.NoError(t, err)
	require.Equal(t, true, v.(map[string]any)["success"])
}

func TestRequest_QueryBodyAndHeaders(t *testing.T) {
	t.Parallel()

	type seen struct {
		method, query, body, custom, rid string
	}
	var got []seen
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, seen{r.Method, r.URL.RawQuery, string(b), r.Header.Get("X-Custom"), r.Header.Get(interceptors.HeaderRequestID)})
		mu.Unlock()
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newFixture(t, srv, func(o *Options) {
		o.Doer = &http.Client{Transport: interceptors.Chain(srv.Client().Transport, interceptors.WithRequestID())}
	})
	ctx := interceptors.ContextWithRequestID(context.Background(), "rid-7")

	_, err := f.client.Get(ctx, "/api/posts", url.Values{"q": {"go lang"}, "page": {"2"}}, WithHeader("X-Custom", "1"))
	require.NoError(t, err)
	_, err = f.client.Put(ctx, "/api/users/me", map[string]string{"bio": "hi"})
	require.NoError(t, err)
	resp, err := f.client.Patch(ctx, "/api/notifications/1/read", nil)
	require.NoError(t, err)

	require.Equal(t, "ok", resp.Text())
	v, err := resp.Value()
	require.NoError(t, err)
	require.Equal(t, "ok", v)

	require.Equal(t, []seen{
		{http.MethodGet, "page=2&q=go+lang", "", "1", "rid-7"},
		{http.MethodPut, "", `{"bio":"hi"}`, "", "rid-7"},
		{http.MethodPatch, "", "", "", "rid-7"},
	}, got)
}

func TestUpload_MultipartReplayedOnRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var lastName, lastData, lastCaption string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, hdr, err := r.FormFile("media")
		require.NoError(t, err)
		b, _ := io.ReadAll(file)
		lastName, lastData, lastCaption = hdr.Filename, string(b), r.FormValue("caption")

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]string{"url": "/media/1"}})
	}))
	defer srv.Close()

	f := newFixture(t, srv)

	resp, err := f.client.Upload(context.Background(), "/api/posts/media", &Form{
		Fields: map[string]string{"caption": "sunset"},
		Files:  []FormFile{{Field: "media", Name: "a.png", ContentType: "image/png", Data: []byte("PNG")}},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.EqualValues(t, 2, calls.Load())
	require.Equal(t, "a.png", lastName)
	require.Equal(t, "PNG", lastData)
	require.Equal(t, "sunset", lastCaption)
}

func TestMetrics_Recorded(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			writeJSON(w, http.StatusOK, map[string]any{"accessToken": "t2"})
			return
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if r.Header.Get("Authorization") != "Bearer t2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	f := newFixture(t, srv, func(o *Options) { o.Metrics = m })
	f.login(t, "t1", "r1", testNow.Add(time.Hour))

	_, err := f.client.Get(context.Background(), "/api/feed", nil)
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.retries))
	require.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "429")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "401")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "204")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "200")))
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.observeAttempt(http.MethodGet, 200, time.Millisecond)
		m.incRetry()
		m.incRefresh("ok")
	})
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/", ensureLeadingSlash(""))
	require.Equal(t, "/api", ensureLeadingSlash("api"))
	require.Equal(t, "/api", ensureLeadingSlash(" /api "))

	require.Equal(t, time.Second, backoff(time.Second, 0))
	require.Equal(t, 4*time.Second, backoff(time.Second, 2))
	require.Equal(t, backoff(time.Nanosecond, 30), backoff(time.Nanosecond, 100))

	require.NoError(t, sleepCtx(context.Background(), time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
