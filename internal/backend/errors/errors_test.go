package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-social-client/internal/backend/service"
)

func TestToHTTP_Table(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"nil", nil, http.StatusInternalServerError, "internal"},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError, "internal"},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"expired_wrapped", fmt.Errorf("op: %w", service.ErrTokenExpired), http.StatusUnauthorized, "token_expired"},
		{"revoked", service.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked"},
		{"invalid_token", service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
		{"email_taken", service.ErrEmailTaken, http.StatusConflict, "email_taken"},
		{"username_taken", service.ErrUsernameTaken, http.StatusConflict, "username_taken"},
		{"weak_password", service.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
		{"invalid_argument", service.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not_found", fmt.Errorf("a: %w", fmt.Errorf("b: %w", service.ErrNotFound)), http.StatusNotFound, "not_found"},
		{"too_large", service.ErrMediaTooLarge, http.StatusRequestEntityTooLarge, "media_too_large"},
		{"canceled", context.Canceled, StatusClientClosedRequest, "canceled"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			status, resp := ToHTTP(tc.err)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.code, resp.Error)
			require.False(t, resp.Success)
			require.NotEmpty(t, resp.Message)
		})
	}
}

func TestToHTTP_DoesNotLeakDetails(t *testing.T) {
	t.Parallel()

	_, resp := ToHTTP(fmt.Errorf("db password=hunter2: %w", stderrors.New("conn refused")))
	require.Equal(t, "internal error", resp.Message)
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/posts/1", nil)
	req.Header.Set("X-Request-Id", "rid-42")
	rr := httptest.NewRecorder()

	WriteError(rr, req, service.ErrNotFound)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "not_found", body["error"])
	require.Equal(t, "not found", body["message"])
	require.Equal(t, "rid-42", body["requestId"])
}
