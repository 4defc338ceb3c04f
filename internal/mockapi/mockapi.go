// mockapi — реализация client.API без сети: запрос передаётся прямо в
// http.Handler (обычно роутер dev-бэкенда) внутри процесса.
//
// Ретраев и refresh нет. Bearer-токен из хранилища прикладывается, если он не
// истёк, чтобы хендлеры с авторизацией вели себя как в реальном окружении.
package mockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-social-client/internal/client"
	"github.com/pribylovaa/go-social-client/internal/client/interceptors"
	"github.com/pribylovaa/go-social-client/internal/session"
	logctx "github.com/pribylovaa/go-social-client/pkg/log"
)

// Client — in-process реализация client.API.
type Client struct {
	handler http.Handler
	store   session.Store
	latency time.Duration
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Client)

// WithLatency добавляет искусственную задержку перед каждым вызовом.
func WithLatency(d time.Duration) Option {
	return func(c *Client) { c.latency = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New — store может быть nil: тогда вызовы уходят без авторизации.
func New(handler http.Handler, store session.Store, opts ...Option) *Client {
	c := &Client{
		handler: handler,
		store:   store,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

var _ client.API = (*Client)(nil)

func (c *Client) Get(ctx context.Context, path string, query url.Values, opts ...client.CallOption) (*client.Response, error) {
	return c.serve(ctx, http.MethodGet, path, query, nil, "", opts)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...client.CallOption) (*client.Response, error) {
	return c.serveJSON(ctx, http.MethodPost, path, body, opts)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...client.CallOption) (*client.Response, error) {
	return c.serveJSON(ctx, http.MethodPut, path, body, opts)
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...client.CallOption) (*client.Response, error) {
	return c.serveJSON(ctx, http.MethodPatch, path, body, opts)
}

func (c *Client) Delete(ctx context.Context, path string, body any, opts ...client.CallOption) (*client.Response, error) {
	return c.serveJSON(ctx, http.MethodDelete, path, body, opts)
}

func (c *Client) Upload(ctx context.Context, path string, form *client.Form, opts ...client.CallOption) (*client.Response, error) {
	payload, contentType, err := form.Encode()
	if err != nil {
		return nil, &client.RequestError{Method: http.MethodPost, Path: path, Err: fmt.Errorf("%w: %w", client.ErrTransport, err)}
	}

	return c.serve(ctx, http.MethodPost, path, nil, payload, contentType, opts)
}

func (c *Client) serveJSON(ctx context.Context, method, path string, body any, opts []client.CallOption) (*client.Response, error) {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, &client.RequestError{Method: method, Path: path, Err: fmt.Errorf("%w: marshal body: %w", client.ErrTransport, err)}
		}
		payload = raw
	}

	return c.serve(ctx, method, path, nil, payload, "", opts)
}

func (c *Client) serve(ctx context.Context, method, path string, query url.Values, body []byte, contentType string, opts []client.CallOption) (*client.Response, error) {
	const op = "mockapi.serve"

	o := client.ApplyOptions(opts...)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if c.latency > 0 {
		t := time.NewTimer(c.latency)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, &client.RequestError{Method: method, Path: path, Err: ctx.Err()}
		case <-t.C:
		}
	}

	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, &client.RequestError{Method: method, Path: path, Err: fmt.Errorf("%s: %w: %w", op, client.ErrTransport, err)}
	}
	req.RequestURI = target

	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)

	rid := interceptors.RequestIDFrom(ctx)
	if rid == "" {
		rid = uuid.NewString()
	}
	req.Header.Set(interceptors.HeaderRequestID, rid)

	if o.RequiresAuth && c.store != nil {
		creds, err := c.store.Load(ctx)
		if err != nil {
			logctx.FromOr(ctx, c.log).Warn("session_load_failed", slog.String("err", err.Error()))
		} else if creds.AccessValid(c.now()) {
			req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		}
	}

	for k, vs := range o.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	start := c.now()
	c.handler.ServeHTTP(rec, req)

	resp := &client.Response{
		StatusCode: rec.Code,
		Header:     rec.Header(),
		Body:       rec.Body.Bytes(),
	}

	logctx.FromOr(ctx, c.log).Debug("mock_http",
		slog.String("request_id", rid),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("dur", c.now().Sub(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, client.ResponseError(method, path, resp)
	}

	return resp, nil
}
