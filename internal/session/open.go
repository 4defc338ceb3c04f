package session

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-social-client/internal/config"
)

// Open собирает Store по конфигурации. Второе значение — функция освобождения
// ресурсов (для memory/file — no-op).
func Open(ctx context.Context, cfg config.SessionConfig) (Store, func() error, error) {
	const op = "session.Open"

	noop := func() error { return nil }

	switch cfg.Driver {
	case config.SessionDriverMemory:
		return NewMemoryStore(), noop, nil
	case config.SessionDriverFile, "":
		return NewFileStore(cfg.FilePath), noop, nil
	case config.SessionDriverRedis:
		rs, err := NewRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return rs, rs.Close, nil
	default:
		return nil, nil, fmt.Errorf("%s: unknown driver %q", op, cfg.Driver)
	}
}
