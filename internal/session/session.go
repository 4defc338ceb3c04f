// session описывает учётные данные пользователя (пара токенов + срок жизни
// access-токена + закэшированный профиль) и контракт их хранилища.
//
// Хранилище — внедряемая зависимость клиента: ядро не знает, где лежат токены
// (память процесса, файл на диске, Redis), и работает только через Store.
// Все реализации потокобезопасны: Store разделяется конкурентными вызовами.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Фиксированные имена ключей, под которыми хранятся учётные данные.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyTokenExpiry  = "tokenExpiry"
	KeyUser         = "user"
)

var (
	// ErrInvalidCredentials — access-токен без срока истечения (нарушен инвариант
	// «токен и срок всегда пишутся вместе»).
	ErrInvalidCredentials = errors.New("access token without expiry")

	// ErrNoCredentials — хранилище пусто, обновлять нечего.
	ErrNoCredentials = errors.New("no credentials stored")
)

// Credentials — содержимое хранилища сессии.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt — абсолютный момент истечения access-токена.
	ExpiresAt time.Time
	// User — закэшированный профиль текущего пользователя, как его вернул бэкенд.
	User json.RawMessage
}

func (c Credentials) HasAccess() bool  { return c.AccessToken != "" }
func (c Credentials) HasRefresh() bool { return c.RefreshToken != "" }

// AccessValid сообщает, можно ли предъявлять access-токен в момент now.
func (c Credentials) AccessValid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// IsZero — хранилище пусто.
func (c Credentials) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == "" && c.ExpiresAt.IsZero() && len(c.User) == 0
}

// Validate проверяет инвариант: при наличии access-токена срок обязателен.
func (c Credentials) Validate() error {
	if c.AccessToken != "" && c.ExpiresAt.IsZero() {
		return ErrInvalidCredentials
	}

	return nil
}

// Store — хранилище учётных данных.
type Store interface {
	// Load возвращает сохранённые данные; пустое хранилище — нулевые Credentials и nil.
	Load(ctx context.Context) (Credentials, error)
	// Save атомарно заменяет содержимое хранилища.
	Save(ctx context.Context, c Credentials) error
	// Clear стирает всё содержимое хранилища.
	Clear(ctx context.Context) error
	// SetUser атомарно меняет только закэшированный профиль, токены не трогает.
	// Пустое хранилище — ErrNoCredentials.
	SetUser(ctx context.Context, user json.RawMessage) error
}

// record — сериализованная форма для файлового хранилища: те же фиксированные ключи,
// срок — epoch milliseconds.
type record struct {
	AccessToken  string          `json:"accessToken,omitempty"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	TokenExpiry  int64           `json:"tokenExpiry,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
}

func toRecord(c Credentials) record {
	r := record{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		User:         c.User,
	}
	if !c.ExpiresAt.IsZero() {
		r.TokenExpiry = c.ExpiresAt.UnixMilli()
	}

	return r
}

func fromRecord(r record) Credentials {
	c := Credentials{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		User:         r.User,
	}
	if r.TokenExpiry > 0 {
		c.ExpiresAt = time.UnixMilli(r.TokenExpiry).UTC()
	}

	return c
}
