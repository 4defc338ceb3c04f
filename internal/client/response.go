package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// Response — успешный (2xx) ответ бэкенда.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Envelope — общая обёртка ответов бэкенда.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// IsJSON сообщает, объявлен ли в ответе JSON (application/json или *+json).
func (r *Response) IsJSON() bool {
	if r == nil {
		return false
	}

	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}

	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func (r *Response) Text() string {
	if r == nil {
		return ""
	}

	return string(r.Body)
}

// Decode разбирает тело как JSON в v.
func (r *Response) Decode(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return fmt.Errorf("decode response: empty body")
	}

	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// Value возвращает разобранное тело: JSON-значение, если ответ объявил JSON,
// иначе сырой текст. Пустое JSON-тело — nil.
func (r *Response) Value() (any, error) {
	if !r.IsJSON() {
		return r.Text(), nil
	}

	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil, nil
	}

	var v any
	if err := r.Decode(&v); err != nil {
		return nil, err
	}

	return v, nil
}

// Data разбирает поле data обёртки {success, data} в v; если обёртки нет,
// разбирает тело целиком.
func (r *Response) Data(v any) error {
	var fields map[string]json.RawMessage
	if err := r.Decode(&fields); err == nil {
		if data, ok := fields["data"]; ok {
			if err := json.Unmarshal(data, v); err != nil {
				return fmt.Errorf("decode response data: %w", err)
			}
			return nil
		}
	}

	return r.Decode(v)
}

// Envelope разбирает тело как общую обёртку бэкенда.
func (r *Response) Envelope() (Envelope, error) {
	var env Envelope
	err := r.Decode(&env)
	return env, err
}

// parseErrorBody — тело ответа с ошибкой: JSON при валидном JSON, иначе строка.
func (r *Response) parseErrorBody() any {
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 {
		return nil
	}

	if r.IsJSON() || json.Valid(trimmed) {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			return v
		}
	}

	return string(trimmed)
}
