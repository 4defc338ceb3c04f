package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore хранит учётные данные JSON-документом на диске (аналог
// persistent storage браузера для CLI). Замена файла атомарна: пишем во
// временный файл рядом и переименовываем.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context) (Credentials, error) {
	const op = "session.FileStore.Load"

	f.mu.Lock()
	defer f.mu.Unlock()

	r, err := f.read()
	if err != nil {
		return Credentials{}, fmt.Errorf("%s: %w", op, err)
	}

	return fromRecord(r), nil
}

// read разбирает файл; вызывается под f.mu. Нет файла — пустая запись.
func (f *FileStore) read() (record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return record{}, nil
		}

		return record{}, err
	}

	if len(data) == 0 {
		return record{}, nil
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return record{}, fmt.Errorf("decode: %w", err)
	}

	return r, nil
}

func (f *FileStore) Save(_ context.Context, c Credentials) error {
	const op = "session.FileStore.Save"

	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	data, err := json.MarshalIndent(toRecord(c), "", "  ")
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := writeAtomic(f.path, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *FileStore) Clear(_ context.Context) error {
	const op = "session.FileStore.Clear"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SetUser переписывает поле user под тем же мьютексом, что Save и Load.
func (f *FileStore) SetUser(_ context.Context, user json.RawMessage) error {
	const op = "session.FileStore.SetUser"

	f.mu.Lock()
	defer f.mu.Unlock()

	r, err := f.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if fromRecord(r).IsZero() {
		return fmt.Errorf("%s: %w", op, ErrNoCredentials)
	}

	r.User = user

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	if err := writeAtomic(f.path, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

var _ Store = (*FileStore)(nil)
