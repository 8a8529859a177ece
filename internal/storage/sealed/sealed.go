// Package sealed encrypts stored values with ChaCha20-Poly1305.
//
// The profile kept next to the credential carries the wallet secret key,
// so on shared machines the storage should not hold it in plain text.
// Stored value is hex(nonce || ciphertext), the key name is bound as
// additional data so values can't be swapped between keys.
package sealed

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
)

// KeySize is the required sealing key length in bytes
const KeySize = chacha20poly1305.KeySize

type backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

type Storage struct {
	next backend
	aead cipher.AEAD
}

func New(next backend, key []byte) (*Storage, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", KeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("error while creating cipher. Err: %w", err)
	}

	return &Storage{next: next, aead: aead}, nil
}

// ParseKey decodes hex encoded sealing key (as printed by gensecret)
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("sealing key must be hex encoded: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// Get returns the opened value
// Values that can't be opened (tampered, other key, plain text) are reported as not found
func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.next.Get(ctx, key)
	if err != nil {
		return "", err
	}

	sealed, err := hex.DecodeString(raw)
	if err != nil || len(sealed) < s.aead.NonceSize() {
		return "", fmt.Errorf("%w: value of %q is not sealed", apperrors.ErrKeyNotFound, key)
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: value of %q can't be opened", apperrors.ErrKeyNotFound, key)
	}

	return string(plain), nil
}

func (s *Storage) Set(ctx context.Context, key string, value string) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("error while generating nonce. Err: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.next.Set(ctx, key, hex.EncodeToString(sealed))
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.next.Remove(ctx, key)
}
