package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
)

// API — контракт REST-клиента, которым пользуются сервисы-обёртки.
// Реализации: *Client (реальный HTTP) и mockapi.Client (in-process для
// локальной разработки); выбор делается при сборке приложения.
type API interface {
	Get(ctx context.Context, path string, query url.Values, opts ...CallOption) (*Response, error)
	Post(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error)
	Put(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error)
	Patch(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error)
	Delete(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error)
	Upload(ctx context.Context, path string, form *Form, opts ...CallOption) (*Response, error)
}

// CallOptions — параметры одного логического вызова.
type CallOptions struct {
	// RequiresAuth — прикладывать ли Bearer и обновлять токен при 401 (по умолчанию true).
	RequiresAuth bool
	Header       http.Header
}

type CallOption func(*CallOptions)

// WithoutAuth — вызов без авторизации: заголовок Authorization не ставится,
// refresh при 401 не выполняется.
func WithoutAuth() CallOption {
	return func(o *CallOptions) { o.RequiresAuth = false }
}

// WithHeader добавляет заголовок к запросу (перекрывает значения по умолчанию).
func WithHeader(key, value string) CallOption {
	return func(o *CallOptions) {
		if o.Header == nil {
			o.Header = make(http.Header)
		}
		o.Header.Set(key, value)
	}
}

// ApplyOptions собирает CallOptions с умолчаниями.
func ApplyOptions(opts ...CallOption) CallOptions {
	o := CallOptions{RequiresAuth: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

// Form — multipart/form-data для Upload.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

type FormFile struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Encode кодирует форму один раз; байты переиспользуются во всех попытках.
func (f *Form) Encode() ([]byte, string, error) {
	const op = "client.Form.Encode"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if f != nil {
		keys := make([]string, 0, len(f.Fields))
		for k := range f.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if err := mw.WriteField(k, f.Fields[k]); err != nil {
				return nil, "", fmt.Errorf("%s: field %q: %w", op, k, err)
			}
		}

		for _, file := range f.Files {
			field := file.Field
			if field == "" {
				field = "file"
			}

			ct := file.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}

			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, file.Name))
			h.Set("Content-Type", ct)

			part, err := mw.CreatePart(h)
			if err != nil {
				return nil, "", fmt.Errorf("%s: file %q: %w", op, file.Name, err)
			}
			if _, err := part.Write(file.Data); err != nil {
				return nil, "", fmt.Errorf("%s: file %q: %w", op, file.Name, err)
			}
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	return buf.Bytes(), mw.FormDataContentType(), nil
}
