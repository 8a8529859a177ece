package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Key fake backend signs credentials with
const TokenSecret = "test-secret-key"

type Token struct {
	Subject   string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId,omitempty"`
}

// Issue signed credential the way wallet backend does
func IssueToken(t testing.TB, tok Token) string {
	t.Helper()

	if tok.IssuedAt.IsZero() {
		tok.IssuedAt = tok.ExpiresAt.Add(-time.Hour)
	}

	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		tokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   tok.Subject,
				IssuedAt:  jwt.NewNumericDate(tok.IssuedAt),
				ExpiresAt: jwt.NewNumericDate(tok.ExpiresAt),
			},
			UserID: tok.UserID,
		},
	)

	signed, err := token.SignedString([]byte(TokenSecret))
	require.NoError(t, err, "error while signing test token")

	return signed
}

// Clock is manually advanced time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
