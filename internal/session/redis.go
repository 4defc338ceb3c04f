package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит учётные данные в одном Redis Hash <prefix>credentials
// с полями accessToken, refreshToken, tokenExpiry (epoch ms), user.
// Подходит, когда одну сессию делят несколько процессов (CLI + воркеры).
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "social:session:".
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	const op = "session.NewRedisStore"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return NewRedisStoreFromClient(rdb, prefix), nil
}

// NewRedisStoreFromClient оборачивает уже настроенный клиент.
func NewRedisStoreFromClient(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "social:session:"
	}

	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key() string { return s.prefix + "credentials" }

func (s *RedisStore) Load(ctx context.Context) (Credentials, error) {
	const op = "session.RedisStore.Load"

	m, err := s.rdb.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return Credentials{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(m) == 0 {
		return Credentials{}, nil
	}

	c := Credentials{
		AccessToken:  m[KeyAccessToken],
		RefreshToken: m[KeyRefreshToken],
	}

	if raw := m[KeyTokenExpiry]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Credentials{}, fmt.Errorf("%s: parse %s: %w", op, KeyTokenExpiry, err)
		}
		c.ExpiresAt = time.UnixMilli(ms).UTC()
	}

	if u := m[KeyUser]; u != "" {
		c.User = json.RawMessage(u)
	}

	return c, nil
}

// Save перезаписывает hash целиком в одной транзакции (DEL + HSET),
// чтобы токен и срок никогда не расходились.
func (s *RedisStore) Save(ctx context.Context, c Credentials) error {
	const op = "session.RedisStore.Save"

	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	kv := make(map[string]string, 4)
	if c.AccessToken != "" {
		kv[KeyAccessToken] = c.AccessToken
	}
	if c.RefreshToken != "" {
		kv[KeyRefreshToken] = c.RefreshToken
	}
	if !c.ExpiresAt.IsZero() {
		kv[KeyTokenExpiry] = strconv.FormatInt(c.ExpiresAt.UnixMilli(), 10)
	}
	if len(c.User) > 0 {
		kv[KeyUser] = string(c.User)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.key())
	if len(kv) > 0 {
		pipe.HSet(ctx, s.key(), kv)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	const op = "session.RedisStore.Clear"

	if err := s.rdb.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// setUserAttempts — сколько раз SetUser повторяет транзакцию при конкурентной записи.
const setUserAttempts = 3

// SetUser меняет только поле user под WATCH: если hash удалён (logout),
// профиль не воскрешает сессию; токены, записанные параллельно, не затираются.
func (s *RedisStore) SetUser(ctx context.Context, user json.RawMessage) error {
	const op = "session.RedisStore.SetUser"

	key := s.key()
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNoCredentials
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(user) == 0 {
				pipe.HDel(ctx, key, KeyUser)
			} else {
				pipe.HSet(ctx, key, KeyUser, string(user))
			}
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < setUserAttempts; i++ {
		err = s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (s *RedisStore) Close() error { return s.rdb.Close() }

var _ Store = (*RedisStore)(nil)
