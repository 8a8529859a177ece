// Package storagetest checks storage backends against the common contract.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
)

type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// Run contract checks. Storage must be empty for 'authToken' and 'profile' keys
func Run(t *testing.T, s Storage) {
	t.Run("get absent", func(t *testing.T) {
		_, err := s.Get(t.Context(), "authToken")

		require.ErrorIs(t, err, apperrors.ErrKeyNotFound)
	})

	t.Run("set and get", func(t *testing.T) {
		err := s.Set(t.Context(), "authToken", "token-1")
		require.NoError(t, err)

		value, err := s.Get(t.Context(), "authToken")
		require.NoError(t, err)
		require.Equal(t, "token-1", value)
	})

	t.Run("set replaces", func(t *testing.T) {
		err := s.Set(t.Context(), "authToken", "token-2")
		require.NoError(t, err)

		value, err := s.Get(t.Context(), "authToken")
		require.NoError(t, err)
		require.Equal(t, "token-2", value, "second set should replace previous value")
	})

	t.Run("keys independent", func(t *testing.T) {
		err := s.Set(t.Context(), "profile", `{"username":"nk"}`)
		require.NoError(t, err)

		token, err := s.Get(t.Context(), "authToken")
		require.NoError(t, err)
		require.Equal(t, "token-2", token)

		profile, err := s.Get(t.Context(), "profile")
		require.NoError(t, err)
		require.JSONEq(t, `{"username":"nk"}`, profile)
	})

	t.Run("remove", func(t *testing.T) {
		err := s.Remove(t.Context(), "authToken")
		require.NoError(t, err)

		_, err = s.Get(t.Context(), "authToken")
		require.ErrorIs(t, err, apperrors.ErrKeyNotFound)

		_, err = s.Get(t.Context(), "profile")
		require.NoError(t, err, "other keys must survive")
	})

	t.Run("remove absent", func(t *testing.T) {
		err := s.Remove(t.Context(), "authToken")
		require.NoError(t, err, "removing absent key is not an error")

		err = s.Remove(t.Context(), "profile")
		require.NoError(t, err)
	})
}
