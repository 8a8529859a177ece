package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
)

// Storage keeps all keys in one JSON object file
// File is rewritten atomically on every change and readable by owner only
type Storage struct {
	path string

	mu sync.Mutex
}

func New(path string) (*Storage, error) {
	if path == "" {
		return nil, errors.New("file storage path must not be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("error while creating storage dir. Err: %w", err)
	}

	return &Storage{path: path}, nil
}

func (s *Storage) Path() string {
	return s.path
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", err
	}

	value, ok := data[key]
	if !ok {
		return "", apperrors.ErrKeyNotFound
	}
	return value, nil
}

func (s *Storage) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		// Corrupted file is overwritten
		data = make(map[string]string)
	}

	data[key] = value
	return s.save(data)
}

func (s *Storage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return s.save(make(map[string]string))
	}

	if _, ok := data[key]; !ok {
		return nil
	}

	delete(data, key)
	return s.save(data)
}

func (s *Storage) load() (map[string]string, error) {
	data := make(map[string]string)

	b, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return data, nil
	case err != nil:
		return nil, fmt.Errorf("error while reading storage file. Err: %w", err)
	}

	if len(b) == 0 {
		return data, nil
	}

	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("error while decoding storage file %s. Err: %w", s.path, err)
	}

	return data, nil
}

func (s *Storage) save(data map[string]string) (err error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("error while encoding storage file. Err: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("error while creating temp storage file. Err: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error while writing storage file. Err: %w", err)
	}
	if err = tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("error while setting storage file mode. Err: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("error while closing storage file. Err: %w", err)
	}

	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("error while replacing storage file. Err: %w", err)
	}

	return nil
}
