package client

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrRequestFailed — бэкенд ответил статусом вне 2xx (кроме 401).
	ErrRequestFailed = errors.New("request failed")

	// ErrUnauthorized — 401 без возможности обновить токен
	// (refresh-токена нет или повтор после refresh снова получил 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTimeout — вызов не уложился в дедлайн. Отличается от серверной ошибки
	// и не ретраится.
	ErrTimeout = errors.New("request timeout")

	// ErrSessionExpired — обновление токена не удалось; учётные данные стёрты,
	// разослан сигнал logout. Терминальная ошибка: UI должен отправить на вход.
	ErrSessionExpired = errors.New("session expired")

	// ErrTransport — ответ не получен (DNS, connection refused, обрыв).
	ErrTransport = errors.New("transport failure")
)

// RequestError — типизированная ошибка логического вызова.
// Err всегда оборачивает один из sentinel-ов пакета, так что errors.Is
// различает виды отказа, а StatusCode/Body несут детали ответа.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	// Body — разобранное тело ответа с ошибкой: JSON-значение или строка.
	Body any
	// Message — человекочитаемое описание из поля message/error ответа.
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}

	target := e.Method + " " + e.Path
	switch {
	case e.StatusCode > 0 && e.Message != "":
		return fmt.Sprintf("%s: status=%d: %s", target, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: status=%d: %v", target, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", target, e.Err)
	}
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// StatusCode возвращает HTTP-статус из ошибки клиента (0, если ответа не было).
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}

	return 0
}

func IsTimeout(err error) bool        { return errors.Is(err, ErrTimeout) }
func IsSessionExpired(err error) bool { return errors.Is(err, ErrSessionExpired) }
func IsUnauthorized(err error) bool   { return errors.Is(err, ErrUnauthorized) }

// isRetryable — ретраим только серверные отказы и rate limit.
func isRetryable(err error) bool {
	code := StatusCode(err)
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ResponseError — ошибка клиента для ответа вне 2xx. Нужна альтернативным
// реализациям API, чтобы их отказы классифицировались так же.
func ResponseError(method, path string, resp *Response) error {
	return statusError(method, path, resp)
}

// statusError собирает ошибку для ответа вне 2xx.
func statusError(method, path string, resp *Response) *RequestError {
	body := resp.parseErrorBody()

	sentinel := ErrRequestFailed
	if resp.StatusCode == http.StatusUnauthorized {
		sentinel = ErrUnauthorized
	}

	return &RequestError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       body,
		Message:    errorMessage(body, resp.StatusCode),
		Err:        sentinel,
	}
}

// errorMessage достаёт сообщение из тела: message, затем error
// (строка или объект с message), иначе текст статуса.
func errorMessage(body any, status int) string {
	switch b := body.(type) {
	case map[string]any:
		if m, ok := b["message"].(string); ok && m != "" {
			return m
		}

		switch e := b["error"].(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
	case string:
		if b != "" && len(b) <= 512 {
			return b
		}
	}

	return http.StatusText(status)
}
