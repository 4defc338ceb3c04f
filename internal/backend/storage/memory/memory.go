// memory — потокобезопасная in-memory реализация storage.Storage для
// локальной разработки и тестов. Состояние живёт до перезапуска процесса.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-social-client/internal/backend/models"
	"github.com/pribylovaa/go-social-client/internal/backend/storage"
)

type likeKey struct{ post, user uuid.UUID }
type followKey struct{ follower, followee uuid.UUID }

// Storage — in-memory хранилище.
type Storage struct {
	mu sync.RWMutex

	users      map[uuid.UUID]models.User
	byEmail    map[string]uuid.UUID
	byUsername map[string]uuid.UUID

	refresh map[string]models.RefreshToken

	posts map[uuid.UUID]models.Post
	likes map[likeKey]struct{}
	media map[uuid.UUID]models.Media

	follows       map[followKey]struct{}
	notifications []models.Notification
	messages      []models.Message
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:      make(map[uuid.UUID]models.User),
		byEmail:    make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
		refresh:    make(map[string]models.RefreshToken),
		posts:      make(map[uuid.UUID]models.Post),
		likes:      make(map[likeKey]struct{}),
		media:      make(map[uuid.UUID]models.Media),
		follows:    make(map[followKey]struct{}),
	}
}

func (s *Storage) Close() {}

func normKey(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

func (s *Storage) SaveUser(_ context.Context, user *models.User) error {
	const op = "storage.memory.SaveUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	if _, ok := s.byEmail[normKey(user.Email)]; ok {
		return fmt.Errorf("%s: email: %w", op, storage.ErrAlreadyExists)
	}
	if _, ok := s.byUsername[normKey(user.Username)]; ok {
		return fmt.Errorf("%s: username: %w", op, storage.ErrAlreadyExists)
	}

	s.users[user.ID] = *user
	s.byEmail[normKey(user.Email)] = user.ID
	s.byUsername[normKey(user.Username)] = user.ID

	return nil
}

func (s *Storage) UpdateUser(_ context.Context, user *models.User) error {
	const op = "storage.memory.UpdateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	// email и username неизменяемы.
	next := *user
	next.Email = cur.Email
	next.Username = cur.Username
	next.PasswordHash = cur.PasswordHash
	next.CreatedAt = cur.CreatedAt
	s.users[user.ID] = next

	return nil
}

func (s *Storage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.memory.UserByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &u, nil
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.memory.UserByEmail"

	s.mu.RLock()
	id, ok := s.byEmail[normKey(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return s.UserByID(ctx, id)
}

func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.memory.UserByUsername"

	s.mu.RLock()
	id, ok := s.byUsername[normKey(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return s.UserByID(ctx, id)
}

func (s *Storage) SaveRefreshToken(_ context.Context, token *models.RefreshToken) error {
	const op = "storage.memory.SaveRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refresh[token.RefreshTokenHash]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	s.refresh[token.RefreshTokenHash] = *token

	return nil
}

func (s *Storage) RefreshTokenByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	const op = "storage.memory.RefreshTokenByHash"

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.refresh[hash]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &t, nil
}

func (s *Storage) RevokeRefreshToken(_ context.Context, hash string) (bool, error) {
	const op = "storage.memory.RevokeRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.refresh[hash]
	if !ok {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if t.Revoked {
		return false, nil
	}

	t.Revoked = true
	s.refresh[hash] = t

	return true, nil
}

func (s *Storage) SavePost(_ context.Context, post *models.Post) error {
	const op = "storage.memory.SavePost"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[post.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}
	s.posts[post.ID] = *post

	return nil
}

func (s *Storage) PostByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "storage.memory.PostByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &p, nil
}

func (s *Storage) DeletePost(_ context.Context, id uuid.UUID) error {
	const op = "storage.memory.DeletePost"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.posts, id)
	for k := range s.likes {
		if k.post == id {
			delete(s.likes, k)
		}
	}

	return nil
}

func (s *Storage) ListPosts(_ context.Context, authorID uuid.UUID, offset, limit int) ([]models.Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if authorID != uuid.Nil && p.AuthorID != authorID {
			continue
		}
		all = append(all, p)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() > all[j].ID.String()
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []models.Post{}, total, nil
	}

	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	return all[offset:end], total, nil
}

func (s *Storage) Like(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	const op = "storage.memory.Like"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	k := likeKey{post: postID, user: userID}
	if _, ok := s.likes[k]; ok {
		return false, nil
	}
	s.likes[k] = struct{}{}

	return true, nil
}

func (s *Storage) Unlike(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	const op = "storage.memory.Unlike"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	k := likeKey{post: postID, user: userID}
	if _, ok := s.likes[k]; !ok {
		return false, nil
	}
	delete(s.likes, k)

	return true, nil
}

func (s *Storage) LikeCount(_ context.Context, postID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.likes {
		if k.post == postID {
			n++
		}
	}

	return n, nil
}

func (s *Storage) Liked(_ context.Context, postID, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.likes[likeKey{post: postID, user: userID}]
	return ok, nil
}

func (s *Storage) SaveMedia(_ context.Context, media *models.Media) error {
	const op = "storage.memory.SaveMedia"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.media[media.ID]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	m := *media
	m.Data = append([]byte(nil), media.Data...)
	s.media[media.ID] = m

	return nil
}

func (s *Storage) MediaByID(_ context.Context, id uuid.UUID) (*models.Media, error) {
	const op = "storage.memory.MediaByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.media[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &m, nil
}

func (s *Storage) Follow(_ context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := followKey{follower: followerID, followee: followeeID}
	if _, ok := s.follows[k]; ok {
		return false, nil
	}
	s.follows[k] = struct{}{}

	return true, nil
}

func (s *Storage) Unfollow(_ context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := followKey{follower: followerID, followee: followeeID}
	if _, ok := s.follows[k]; !ok {
		return false, nil
	}
	delete(s.follows, k)

	return true, nil
}

func (s *Storage) IsFollowing(_ context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.follows[followKey{follower: followerID, followee: followeeID}]
	return ok, nil
}

func (s *Storage) FollowCounts(_ context.Context, userID uuid.UUID) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var followers, following int
	for k := range s.follows {
		if k.followee == userID {
			followers++
		}
		if k.follower == userID {
			following++
		}
	}

	return followers, following, nil
}

func (s *Storage) SaveNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *Storage) ListNotifications(_ context.Context, userID uuid.UUID) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Notification{}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, s.notifications[i])
		}
	}

	return out, nil
}

func (s *Storage) MarkNotificationRead(_ context.Context, userID, id uuid.UUID) error {
	const op = "storage.memory.MarkNotificationRead"

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].UserID == userID {
			s.notifications[i].Read = true
			return nil
		}
	}

	return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

func (s *Storage) SaveMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, *m)
	return nil
}

func (s *Storage) Thread(_ context.Context, a, b uuid.UUID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Message{}
	for _, m := range s.messages {
		if (m.FromID == a && m.ToID == b) || (m.FromID == b && m.ToID == a) {
			out = append(out, m)
		}
	}

	return out, nil
}

func (s *Storage) LastMessages(_ context.Context, userID uuid.UUID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	out := []models.Message{}
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]

		var peer uuid.UUID
		switch userID {
		case m.FromID:
			peer = m.ToID
		case m.ToID:
			peer = m.FromID
		default:
			continue
		}

		if _, ok := seen[peer]; ok {
			continue
		}
		seen[peer] = struct{}{}
		out = append(out, m)
	}

	return out, nil
}

var _ storage.Storage = (*Storage)(nil)
