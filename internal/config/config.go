// config - источник загрузки конфигурации клиента и dev-бэкенда.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// После чтения файла ENV-переменные накладываются поверх значений из YAML,
// поэтому любое поле можно переопределить при деплое.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища учётных данных.
const (
	SessionDriverMemory = "memory"
	SessionDriverFile   = "file"
	SessionDriverRedis  = "redis"
)

// Драйверы хранилища dev-бэкенда.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Backend BackendConfig `yaml:"backend"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig — параметры REST-клиента.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"         env:"API_BASE_URL"         env-default:"http://localhost:5000"`
	Timeout        time.Duration `yaml:"timeout"          env:"API_TIMEOUT"          env-default:"30s"`
	RetryAttempts  int           `yaml:"retry_attempts"   env:"API_RETRY_ATTEMPTS"   env-default:"3"`
	RetryDelay     time.Duration `yaml:"retry_delay"      env:"API_RETRY_DELAY"      env-default:"1s"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"API_ACCESS_TOKEN_TTL" env-default:"2h"`
	RefreshPath    string        `yaml:"refresh_path"     env:"API_REFRESH_PATH"     env-default:"/api/auth/refresh"`
	MePath         string        `yaml:"me_path"          env:"API_ME_PATH"          env-default:"/api/auth/me"`
	UserAgent      string        `yaml:"user_agent"       env:"API_USER_AGENT"       env-default:"go-social-client"`
	UseMock        bool          `yaml:"use_mock"         env:"USE_MOCK_API"         env-default:"false"`
}

// SessionConfig — где хранить токены между запусками.
type SessionConfig struct {
	Driver      string `yaml:"driver"       env:"SESSION_DRIVER"       env-default:"file"`
	FilePath    string `yaml:"file_path"    env:"SESSION_FILE"         env-default:".session.json"`
	RedisURL    string `yaml:"redis_url"    env:"SESSION_REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"SESSION_REDIS_PREFIX" env-default:"social:session:"`
}

// BackendConfig — локальный dev-бэкенд, реализующий REST-контракт.
type BackendConfig struct {
	HTTP            HTTPConfig    `yaml:"http"`
	JWTSecret       string        `yaml:"jwt_secret"        env:"JWT_SECRET"                env-default:"dev-secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"  env:"BACKEND_ACCESS_TOKEN_TTL"  env-default:"2h"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"BACKEND_REFRESH_TOKEN_TTL" env-default:"720h"`
	Issuer          string        `yaml:"issuer"            env:"JWT_ISSUER"                env-default:"social-backend"`
	Timeout         time.Duration `yaml:"timeout"           env:"BACKEND_TIMEOUT"           env-default:"15s"`
	SkipSeed        bool          `yaml:"skip_seed"         env:"BACKEND_SKIP_SEED"`
	Storage         StorageConfig `yaml:"storage"`
	S3              S3Config      `yaml:"s3"`
}

// StorageConfig — где dev-бэкенд держит данные.
type StorageConfig struct {
	Driver      string `yaml:"driver"       env:"BACKEND_STORAGE"      env-default:"memory"`
	PostgresDSN string `yaml:"postgres_dsn" env:"BACKEND_POSTGRES_DSN"`
}

// S3Config — бакет для медиа. Пустой endpoint — медиа хранятся в основном хранилище.
type S3Config struct {
	Endpoint     string `yaml:"endpoint"      env:"S3_ENDPOINT"`
	RootUser     string `yaml:"root_user"     env:"S3_ROOT_USER"`
	RootPassword string `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket       string `yaml:"bucket"        env:"S3_BUCKET"        env-default:"media"`
}

func (s S3Config) Enabled() bool { return s.Endpoint != "" }

// HTTPConfig — публичный REST-сервер dev-бэкенда.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"5000"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// MetricsConfig — отдельный HTTP для Prometheus.
type MetricsConfig struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"5085"`
}

func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// Validate отсекает значения, с которыми клиент заведомо не сможет работать.
func (c *Config) Validate() error {
	const op = "config.Validate"

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: invalid api base url %q", op, c.API.BaseURL)
	}

	if c.API.RetryAttempts < 0 {
		return fmt.Errorf("%s: retry attempts must be >= 0, got %d", op, c.API.RetryAttempts)
	}

	if c.API.Timeout < 0 || c.API.RetryDelay < 0 || c.API.AccessTokenTTL < 0 {
		return fmt.Errorf("%s: durations must be non-negative", op)
	}

	switch c.Session.Driver {
	case SessionDriverMemory, SessionDriverFile:
	case SessionDriverRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("%s: %w", op, errors.New("redis session driver requires redis_url"))
		}
	default:
		return fmt.Errorf("%s: unknown session driver %q", op, c.Session.Driver)
	}

	switch c.Backend.Storage.Driver {
	case StorageDriverMemory, "":
	case StorageDriverPostgres:
		if c.Backend.Storage.PostgresDSN == "" {
			return fmt.Errorf("%s: postgres storage requires postgres_dsn", op)
		}
	default:
		return fmt.Errorf("%s: unknown backend storage driver %q", op, c.Backend.Storage.Driver)
	}

	if c.Backend.S3.Enabled() && c.Backend.S3.Bucket == "" {
		return fmt.Errorf("%s: s3 media storage requires bucket", op)
	}

	return nil
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
