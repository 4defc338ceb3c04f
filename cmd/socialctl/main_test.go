package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-social-client/internal/backend/service"
	"github.com/pribylovaa/go-social-client/internal/config"
	"github.com/pribylovaa/go-social-client/internal/services/models"
	"github.com/pribylovaa/go-social-client/internal/services/posts"
)

func newMockApp(t *testing.T) *app {
	t.Helper()

	cfg := &config.Config{
		Env: envLocal,
		API: config.APIConfig{
			BaseURL:        "http://localhost:5000",
			AccessTokenTTL: time.Hour,
			UseMock:        true,
		},
		Session: config.SessionConfig{Driver: config.SessionDriverMemory},
		Backend: config.BackendConfig{
			JWTSecret:       "cli-secret",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: time.Hour,
			Issuer:          "social-backend",
		},
	}

	a, cleanup, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return a
}

func runCommand(t *testing.T, a *app, args ...string) (any, error) {
	t.Helper()

	cmd, ok := commands[args[0]]
	require.True(t, ok, "unknown command %q", args[0])
	require.GreaterOrEqual(t, len(args)-1, cmd.minArgs)

	return cmd.run(context.Background(), a, args[1:])
}

func TestNewApp_HTTPModeBuildsRepeatedly(t *testing.T) {
	cfg := &config.Config{
		Env: envLocal,
		API: config.APIConfig{
			BaseURL:        "http://localhost:5000",
			AccessTokenTTL: time.Hour,
		},
		Session: config.SessionConfig{Driver: config.SessionDriverMemory},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	for i := 0; i < 2; i++ {
		a, cleanup, err := newApp(context.Background(), cfg, log)
		require.NoError(t, err)
		require.NotNil(t, a.api)
		cleanup()
	}
}

func TestCommands_MockFlow(t *testing.T) {
	t.Parallel()

	a := newMockApp(t)

	out, err := runCommand(t, a, "login", "alice@example.com", service.SeedPassword)
	require.NoError(t, err)
	require.Equal(t, "alice", out.(*models.User).Username)

	out, err = runCommand(t, a, "feed", "-limit", "2")
	require.NoError(t, err)
	page := out.(*models.FeedPage)
	require.Len(t, page.Posts, 2)
	require.Equal(t, 3, page.Total)

	out, err = runCommand(t, a, "post", "hello", "from", "cli")
	require.NoError(t, err)
	require.Equal(t, "hello from cli", out.(*models.Post).Content)

	out, err = runCommand(t, a, "send", "bob", "see", "you")
	require.NoError(t, err)
	require.Equal(t, "see you", out.(*models.Message).Text)

	out, err = runCommand(t, a, "update-profile", "-bio", "cli user")
	require.NoError(t, err)
	require.Equal(t, "cli user", out.(*models.User).Bio)

	_, err = runCommand(t, a, "logout")
	require.NoError(t, err)

	_, err = runCommand(t, a, "me")
	require.Error(t, err)
}

func TestCommands_Raw(t *testing.T) {
	t.Parallel()

	a := newMockApp(t)

	out, err := runCommand(t, a, "raw", "post", "/api/auth/login", `{"email":"bob@example.com","password":"`+service.SeedPassword+`"}`)
	require.NoError(t, err)

	body, ok := out.(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, body["success"])

	_, err = runCommand(t, a, "raw", "GET", "/api/posts", "{not json")
	require.Error(t, err)

	_, err = runCommand(t, a, "raw", "TRACE", "/api/posts")
	require.Error(t, err)
}

func TestCommands_Upload(t *testing.T) {
	t.Parallel()

	a := newMockApp(t)

	_, err := runCommand(t, a, "login", "carol@example.com", service.SeedPassword)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(file, []byte("plain text attachment"), 0o600))

	out, err := runCommand(t, a, "upload", "/api/media/upload", file)
	require.NoError(t, err)

	body := out.(map[string]any)
	media := body["data"].(map[string]any)["media"].(map[string]any)
	require.Equal(t, "note.txt", media["name"])
	require.Contains(t, media["contentType"], "text/plain")
}

func TestFeedFlags_Invalid(t *testing.T) {
	t.Parallel()

	a := newMockApp(t)

	_, err := runCommand(t, a, "feed", "-page", "x")
	require.ErrorIs(t, err, errUsage)

	_, err = posts.New(a.api).Feed(context.Background(), posts.FeedQuery{Page: 1})
	require.NoError(t, err)
}

func TestUsage_ListsCommands(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	usage(&buf)

	for _, cmd := range commands {
		require.Contains(t, buf.String(), cmd.usage)
	}
}
