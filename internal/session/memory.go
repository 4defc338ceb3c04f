package session

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore держит учётные данные в памяти процесса.
type MemoryStore struct {
	mu sync.RWMutex
	c  Credentials
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(_ context.Context) (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.c
	out.User = cloneRaw(m.c.User)
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, c Credentials) error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.User = cloneRaw(c.User)

	m.mu.Lock()
	m.c = c
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.c = Credentials{}
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) SetUser(_ context.Context, user json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.c.IsZero() {
		return ErrNoCredentials
	}
	m.c.User = cloneRaw(user)

	return nil
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}

	return append(json.RawMessage(nil), b...)
}

var _ Store = (*MemoryStore)(nil)
