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

	"github.com/pribylovaa/go-social-client/internal/session"
	logctx "github.com/pribylovaa/go-social-client/pkg/log"
	"github.com/pribylovaa/go-social-client/pkg/redact"
)

// errEmptyAccessToken — refresh ответил 2xx, но без access-токена.
var errEmptyAccessToken = errors.New("refresh response has no access token")

// refreshRequest — тело запроса обновления токена.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// tokenPair — токены из ответа refresh; встречаются как на верхнем
// уровне, так и внутри data.
type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	tokenPair
	Data *tokenPair `json:"data"`
}

func (r refreshResponse) pair() tokenPair {
	if r.AccessToken == "" && r.Data != nil {
		return *r.Data
	}

	return r.tokenPair
}

// refresh — состояние REFRESHING. Все одновременные вызовы делят одну
// операцию; usedToken — access-токен, получивший 401.
func (c *Client) refresh(ctx context.Context, req *request, usedToken string) (string, error) {
	log := logctx.FromOr(ctx, c.log)

	// Пока этот вызов ждал ответа, токен мог обновить кто-то другой.
	if creds, err := c.store.Load(ctx); err == nil && creds.AccessValid(c.now()) && creds.AccessToken != usedToken {
		log.Debug("token_refresh_skipped", slog.String("token", redact.Token(creds.AccessToken)))
		return creds.AccessToken, nil
	}

	// Операция общая: отмена одного вызывающего не должна обрывать её для остальных.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := c.flight.Do("refresh", func() (any, error) {
		if creds, err := c.store.Load(flightCtx); err == nil && creds.AccessValid(c.now()) && creds.AccessToken != usedToken {
			return creds.AccessToken, nil
		}
		return c.doRefresh(flightCtx)
	})
	if err != nil {
		log.Warn("token_refresh_failed",
			slog.String("method", req.method),
			slog.String("path", req.path),
			slog.Bool("shared", shared),
			slog.String("err", err.Error()),
		)
		return "", err
	}

	token := v.(string)
	log.Info("token_refreshed",
		slog.String("method", req.method),
		slog.String("path", req.path),
		slog.Bool("shared", shared),
		slog.String("token", redact.Token(token)),
	)

	return token, nil
}

// doRefresh выполняет запрос обновления и сохраняет результат. При любом
// отказе стирает учётные данные и публикует сигнал logout.
func (c *Client) doRefresh(ctx context.Context) (string, error) {
	creds, err := c.store.Load(ctx)
	if err != nil {
		return "", c.expire(ctx, fmt.Errorf("load credentials: %w", err))
	}
	if !creds.HasRefresh() {
		return "", c.expire(ctx, session.ErrInvalidCredentials)
	}

	pair, err := c.requestRefresh(ctx, creds.RefreshToken)
	if err != nil {
		return "", c.expire(ctx, err)
	}

	next := session.Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    c.now().Add(c.accessTTL),
		User:         creds.User,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = creds.RefreshToken
	}

	if err := c.store.Save(ctx, next); err != nil {
		return "", c.expire(ctx, fmt.Errorf("save credentials: %w", err))
	}

	c.metrics.incRefresh("ok")
	return next.AccessToken, nil
}

// requestRefresh — одна попытка без авторизации и без ретраев.
func (c *Client) requestRefresh(ctx context.Context, refreshToken string) (tokenPair, error) {
	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return tokenPair{}, err
	}

	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(actx, http.MethodPost, c.url(c.refreshPath, nil), bytes.NewReader(payload))
	if err != nil {
		return tokenPair{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := c.now()
	httpResp, err := c.doer.Do(httpReq)
	if err != nil {
		c.metrics.observeAttempt(http.MethodPost, 0, c.now().Sub(start))
		return tokenPair{}, c.transportError(ctx, actx, &request{method: http.MethodPost, path: c.refreshPath}, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	c.metrics.observeAttempt(http.MethodPost, httpResp.StatusCode, c.now().Sub(start))
	if err != nil {
		return tokenPair{}, err
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return tokenPair{}, statusError(http.MethodPost, c.refreshPath, resp)
	}

	var out refreshResponse
	if err := resp.Decode(&out); err != nil {
		return tokenPair{}, err
	}

	pair := out.pair()
	if pair.AccessToken == "" {
		return tokenPair{}, errEmptyAccessToken
	}

	return pair, nil
}

// expire — переход в SESSION_EXPIRED.
func (c *Client) expire(ctx context.Context, cause error) error {
	log := logctx.FromOr(ctx, c.log)

	if err := c.store.Clear(ctx); err != nil {
		log.Error("session_clear_failed", slog.String("err", err.Error()))
	}
	c.bus.Publish()
	c.metrics.incRefresh("failed")

	log.Warn("session_expired", slog.String("cause", cause.Error()))

	return &RequestError{
		Method:     http.MethodPost,
		Path:       c.refreshPath,
		StatusCode: StatusCode(cause),
		Message:    ErrSessionExpired.Error(),
		Err:        fmt.Errorf("%w: %v", ErrSessionExpired, cause),
	}
}
