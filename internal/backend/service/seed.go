package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
	"github.com/pribylovaa/go-social-client/pkg/log"
)

// SeedPassword — пароль демо-пользователей.
const SeedPassword = "Passw0rd!"

// SeedUsers — демо-пользователи (username, email).
var SeedUsers = [][2]string{
	{"alice", "alice@example.com"},
	{"bob", "bob@example.com"},
	{"carol", "carol@example.com"},
}

// Seed наполняет пустое хранилище демо-данными: пользователи, подписки,
// посты, лайки и сообщение. Повторный вызов ничего не меняет.
func (s *Service) Seed(ctx context.Context) error {
	const op = "service.seed.Seed"

	users := make(map[string]*models.User, len(SeedUsers))
	for _, su := range SeedUsers {
		_, u, err := s.Register(ctx, su[0], su[1], SeedPassword)
		if err != nil {
			if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken) {
				log.From(ctx).Info("seed_skipped", slog.String("reason", "already seeded"))
				return nil
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		users[su[0]] = u
	}

	alice, bob, carol := users["alice"], users["bob"], users["carol"]

	if _, err := s.Follow(ctx, alice.ID, "bob"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.Follow(ctx, carol.ID, "alice"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	posts := []struct {
		author *models.User
		text   string
	}{
		{bob, "Hello from bob! First post on the new network."},
		{alice, "Trying out the Go client. Retries and token refresh just work."},
		{carol, "Anyone up for a hike this weekend?"},
	}

	for _, p := range posts {
		item, err := s.CreatePost(ctx, p.author.ID, p.text, "")
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if p.author != alice {
			if _, err := s.Like(ctx, alice.ID, item.Post.ID); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	if _, err := s.SendMessage(ctx, bob.ID, "alice", "Hi Alice, welcome aboard!"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("seed_done", slog.Int("users", len(users)), slog.Int("posts", len(posts)))

	return nil
}
