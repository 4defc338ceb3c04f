// client — REST-клиент бэкенда соцсети с управлением жизненным циклом токенов.
//
// Один логический вызов проходит машину состояний:
//
//	ISSUE -> (2xx) -> DONE
//	ISSUE -> (5xx/429, попытки есть) -> BACKOFF -> ISSUE
//	ISSUE -> (5xx/429, попытки исчерпаны) -> FAILED
//	ISSUE -> (401, нужна авторизация, есть refresh-токен) -> REFRESHING
//	REFRESHING -> (успех) -> ISSUE (ровно один повтор с новым токеном)
//	REFRESHING -> (отказ) -> SESSION_EXPIRED (учётные данные стёрты, logout)
//	ISSUE -> (прочие 4xx, таймаут, сетевой отказ) -> FAILED
//
// Конкурентные вызовы независимы; общий у них только Store. Одновременные
// 401 разделяют одну операцию refresh (singleflight).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/go-social-client/internal/client/interceptors"
	"github.com/pribylovaa/go-social-client/internal/config"
	"github.com/pribylovaa/go-social-client/internal/events"
	"github.com/pribylovaa/go-social-client/internal/session"
	logctx "github.com/pribylovaa/go-social-client/pkg/log"
)

// Значения по умолчанию, если в Options не задано иное.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultRetryAttempts  = 3
	DefaultRetryDelay     = time.Second
	DefaultAccessTokenTTL = 2 * time.Hour
	DefaultRefreshPath    = "/api/auth/refresh"
)

// maxBodyBytes — верхняя граница читаемого тела ответа.
const maxBodyBytes = 16 << 20

// Doer — транспорт. *http.Client подходит как есть; в тестах подменяется.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options — параметры клиента. Store обязателен.
type Options struct {
	BaseURL string
	// Timeout — дедлайн одной сетевой попытки; <=0 — DefaultTimeout.
	Timeout time.Duration
	// RetryAttempts — число повторов после первой попытки; <=0 — DefaultRetryAttempts.
	RetryAttempts int
	// NoRetry отключает повторы: ровно одна попытка независимо от RetryAttempts.
	NoRetry bool
	// RetryDelay — базовая задержка бэкоффа: RetryDelay * 2^i; <=0 — DefaultRetryDelay.
	RetryDelay time.Duration
	// AccessTokenTTL — срок нового access-токена после refresh; <=0 — DefaultAccessTokenTTL.
	AccessTokenTTL time.Duration
	RefreshPath    string
	UserAgent      string

	Store   session.Store
	Bus     *events.Bus
	Doer    Doer
	Logger  *slog.Logger
	Metrics *Metrics
}

// OptionsFromConfig переносит секцию api конфигурации в Options.
func OptionsFromConfig(cfg config.APIConfig) Options {
	return Options{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		RetryAttempts:  cfg.RetryAttempts,
		NoRetry:        cfg.RetryAttempts == 0,
		RetryDelay:     cfg.RetryDelay,
		AccessTokenTTL: cfg.AccessTokenTTL,
		RefreshPath:    cfg.RefreshPath,
		UserAgent:      cfg.UserAgent,
	}
}

// Client — реализация API поверх HTTP.
type Client struct {
	baseURL       string
	timeout       time.Duration
	retryAttempts int
	retryDelay    time.Duration
	accessTTL     time.Duration
	refreshPath   string

	store   session.Store
	bus     *events.Bus
	doer    Doer
	log     *slog.Logger
	metrics *Metrics

	flight singleflight.Group

	// Подменяются в тестах.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New создаёт клиент и проверяет базовый URL.
func New(opts Options) (*Client, error) {
	const op = "client.New"

	base := strings.TrimSpace(opts.BaseURL)
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid base url %q", op, base)
	}

	if opts.Store == nil {
		return nil, fmt.Errorf("%s: credential store is required", op)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		baseURL:       strings.TrimRight(base, "/"),
		timeout:       opts.Timeout,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		accessTTL:     opts.AccessTokenTTL,
		refreshPath:   opts.RefreshPath,
		store:         opts.Store,
		bus:           opts.Bus,
		doer:          opts.Doer,
		log:           log,
		metrics:       opts.Metrics,
		now:           time.Now,
		sleep:         sleepCtx,
	}

	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	switch {
	case opts.NoRetry:
		c.retryAttempts = 0
	case c.retryAttempts <= 0:
		c.retryAttempts = DefaultRetryAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if c.accessTTL <= 0 {
		c.accessTTL = DefaultAccessTokenTTL
	}
	if c.refreshPath == "" {
		c.refreshPath = DefaultRefreshPath
	}
	if c.bus == nil {
		c.bus = events.NewBus()
	}
	if c.doer == nil {
		c.doer = &http.Client{
			Transport: interceptors.Chain(http.DefaultTransport,
				interceptors.WithRequestID(),
				interceptors.WithUserAgent(opts.UserAgent),
				interceptors.Logging(log),
			),
		}
	}

	return c, nil
}

// Bus — шина сигнала logout, в которую клиент публикует SESSION_EXPIRED.
func (c *Client) Bus() *events.Bus { return c.bus }

// Store — хранилище учётных данных клиента.
func (c *Client) Store() session.Store { return c.store }

func (c *Client) Get(ctx context.Context, path string, query url.Values, opts ...CallOption) (*Response, error) {
	return c.send(ctx, http.MethodGet, path, query, nil, "", opts)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body, opts)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPut, path, body, opts)
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPatch, path, body, opts)
}

func (c *Client) Delete(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	return c.sendJSON(ctx, http.MethodDelete, path, body, opts)
}

// Upload отправляет multipart/form-data POST-ом.
func (c *Client) Upload(ctx context.Context, path string, form *Form, opts ...CallOption) (*Response, error) {
	payload, contentType, err := form.Encode()
	if err != nil {
		return nil, &RequestError{Method: http.MethodPost, Path: path, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}

	return c.send(ctx, http.MethodPost, path, nil, payload, contentType, opts)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any, opts []CallOption) (*Response, error) {
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, &RequestError{Method: method, Path: path, Err: fmt.Errorf("%w: marshal body: %w", ErrTransport, err)}
		}
		payload = raw
	}

	return c.send(ctx, method, path, nil, payload, "", opts)
}

// request — описание логического вызова; живёт весь цикл ретраев/refresh.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	opts        CallOptions
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, contentType string, opts []CallOption) (*Response, error) {
	req := &request{
		method:      method,
		path:        ensureLeadingSlash(path),
		query:       query,
		body:        body,
		contentType: contentType,
		opts:        ApplyOptions(opts...),
	}

	// Один request id на логический вызов: ретраи и повтор после refresh
	// уходят с тем же X-Request-Id.
	if interceptors.RequestIDFrom(ctx) == "" {
		ctx = interceptors.ContextWithRequestID(ctx, uuid.NewString())
	}

	return c.do(ctx, req)
}

// do — верхний уровень машины состояний: ISSUE (с ретраями) и, при 401,
// единственный цикл REFRESHING -> ISSUE.
func (c *Client) do(ctx context.Context, req *request) (*Response, error) {
	resp, usedToken, err := c.issue(ctx, req, "")
	if err == nil {
		return resp, nil
	}

	if !req.opts.RequiresAuth || StatusCode(err) != http.StatusUnauthorized {
		return nil, err
	}

	creds, lerr := c.store.Load(ctx)
	if lerr != nil {
		logctx.FromOr(ctx, c.log).Warn("session_load_failed", slog.String("err", lerr.Error()))
		return nil, err
	}

	// Без refresh-токена обновляться нечем: отдаём 401 как есть, без logout.
	if !creds.HasRefresh() {
		return nil, err
	}

	token, rerr := c.refresh(ctx, req, usedToken)
	if rerr != nil {
		return nil, rerr
	}

	resp, _, err = c.issue(ctx, req, token)
	return resp, err
}

// issue — ISSUE/BACKOFF: до 1+retryAttempts попыток с задержками
// retryDelay*2^i; повторяются только 5xx и 429. token, если не пуст,
// используется вместо токена из хранилища. Возвращает токен, с которым
// ушла последняя попытка ("" — без авторизации).
func (c *Client) issue(ctx context.Context, req *request, token string) (*Response, string, error) {
	if req.opts.RequiresAuth && token == "" {
		creds, err := c.store.Load(ctx)
		if err != nil {
			logctx.FromOr(ctx, c.log).Warn("session_load_failed", slog.String("err", err.Error()))
		} else if creds.AccessValid(c.now()) {
			token = creds.AccessToken
		}
	}
	if !req.opts.RequiresAuth {
		token = ""
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff(c.retryDelay, attempt-1)
			logctx.FromOr(ctx, c.log).Info("http_retry",
				slog.String("method", req.method),
				slog.String("path", req.path),
				slog.Int("attempt", attempt),
				slog.Int("status", StatusCode(lastErr)),
				slog.Duration("delay", delay),
			)
			c.metrics.incRetry()

			if err := c.sleep(ctx, delay); err != nil {
				return nil, token, &RequestError{Method: req.method, Path: req.path, Err: err}
			}
		}

		resp, err := c.attempt(ctx, req, token)
		if err == nil {
			return resp, token, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, token, err
		}
	}

	return nil, token, lastErr
}

// attempt — одна сетевая попытка под собственным дедлайном.
func (c *Client) attempt(ctx context.Context, req *request, token string) (*Response, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if len(req.body) > 0 {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(actx, req.method, c.url(req.path, req.query), body)
	if err != nil {
		return nil, &RequestError{Method: req.method, Path: req.path, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}

	contentType := req.contentType
	if contentType == "" {
		contentType = "application/json"
	}
	httpReq.Header.Set("Content-Type", contentType)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range req.opts.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	start := c.now()
	httpResp, err := c.doer.Do(httpReq)
	if err != nil {
		c.metrics.observeAttempt(req.method, 0, c.now().Sub(start))
		return nil, c.transportError(ctx, actx, req, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	c.metrics.observeAttempt(req.method, httpResp.StatusCode, c.now().Sub(start))
	if err != nil {
		return nil, c.transportError(ctx, actx, req, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, statusError(req.method, req.path, resp)
	}

	return resp, nil
}

// transportError классифицирует отказ без ответа: отмена вызывающим,
// таймаут (свой или вызывающего) или сетевой сбой.
func (c *Client) transportError(parent, actx context.Context, req *request, err error) *RequestError {
	out := &RequestError{Method: req.method, Path: req.path}

	switch {
	case errors.Is(parent.Err(), context.Canceled):
		out.Err = parent.Err()
	case errors.Is(actx.Err(), context.DeadlineExceeded) || isNetTimeout(err):
		out.Err = fmt.Errorf("%w after %s: %w", ErrTimeout, c.timeout, err)
	default:
		out.Err = fmt.Errorf("%w: %w", ErrTransport, err)
	}

	return out
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) == 0 {
		return u
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return u + sep + query.Encode()
}

func ensureLeadingSlash(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "/"
	}
	if strings.HasPrefix(trimmed, "/") {
		return trimmed
	}

	return "/" + trimmed
}

// backoff — base * 2^i с защитой от переполнения сдвига.
func backoff(base time.Duration, i int) time.Duration {
	if i > 30 {
		i = 30
	}

	return base * time.Duration(1<<uint(i))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ API = (*Client)(nil)
