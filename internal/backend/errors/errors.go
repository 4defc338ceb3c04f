// errors стандартизирует ответы об ошибках HTTP-слоя dev-бэкенда.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - корректный HTTP-статус;
//   - конверт {success:false, error, message} без утечки деталей.
//
// Источник истинности по маппингу — sentinel-ошибки internal/backend/service.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/go-social-client/internal/backend/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrorResponse — конверт ошибки.
// Error — короткий стабильный код для машиночитаемой обработки;
// Message — безопасное человекочитаемое описание;
// RequestID — из X-Request-Id, если есть (для трассировки).
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// table — порядок важен: первое совпадение по errors.Is побеждает.
var table = []mapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid email or password"},
	{service.ErrTokenExpired, http.StatusUnauthorized, "token_expired", "token expired"},
	{service.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked", "token revoked"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "invalid token"},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken", "email already taken"},
	{service.ErrUsernameTaken, http.StatusConflict, "username_taken", "username already taken"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", "invalid email format"},
	{service.ErrInvalidUsername, http.StatusBadRequest, "invalid_username", "username must be 3-30 latin letters, digits, '_' or '.'"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password", "password is too weak"},
	{service.ErrEmptyPassword, http.StatusBadRequest, "empty_password", "password is empty"},
	{service.ErrEmptyContent, http.StatusBadRequest, "empty_content", "content is empty"},
	{service.ErrContentTooLong, http.StatusBadRequest, "content_too_long", "content is too long"},
	{service.ErrSelfAction, http.StatusBadRequest, "self_action", "action on self is not allowed"},
	{service.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden", "forbidden"},
	{service.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{service.ErrMediaTooLarge, http.StatusRequestEntityTooLarge, "media_too_large", "media is too large"},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и конверт.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не
//     послать "200 OK" с телом ошибки;
//   - err совпал со строкой таблицы — её статус/код/сообщение;
//   - прочее — 500/internal без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err != nil {
		for _, m := range table {
			if stderrors.Is(err, m.target) {
				return m.status, ErrorResponse{Error: m.code, Message: m.message}
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "internal error"}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
