package fakeapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/fuowallet/internal/testutil"
)

type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

func (s *Server) issueToken(a *account) (string, error) {
	now := s.now().Truncate(time.Second)

	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   a.profile.Username,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			},
			UserID: a.id,
		},
	)

	signed, err := token.SignedString([]byte(testutil.TokenSecret))
	if err != nil {
		return "", fmt.Errorf("error while signing token. Err: %w", err)
	}
	return signed, nil
}

// Parse and validate token, returns user id
func (s *Server) parseToken(token string) (string, error) {
	c := &claims{}

	_, err := jwt.ParseWithClaims(
		token,
		c,
		func(t *jwt.Token) (any, error) {
			return []byte(testutil.TokenSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	return c.UserID, nil
}
