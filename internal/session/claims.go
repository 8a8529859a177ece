package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of the credential issued by wallet backend
type Claims struct {
	jwt.RegisteredClaims
	UserID UserID `json:"userId,omitempty"`
}

// UserID backend puts into credential, either string or number on the wire
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user id must be string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// ExpiresAtTime returns the expiry or zero time if not set
func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ValidAt reports whether credential is still valid at the moment: expiry strictly after now
func (c Claims) ValidAt(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.After(now)
}

var errNoExpiry = errors.New("credential has no expiry")

// ParseClaims decodes credential payload
// Signature is not verified: signature trust is the backend's and the channel's job
func ParseClaims(token string) (Claims, error) {
	var claims Claims

	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return Claims{}, fmt.Errorf("error while decoding credential. Err: %w", err)
	}

	if claims.ExpiresAt == nil {
		return Claims{}, errNoExpiry
	}

	return claims, nil
}

// IsValid reports whether the credential can be decoded and expires strictly after now
// Malformed credentials are just invalid
func IsValid(token string, now time.Time) bool {
	claims, err := ParseClaims(token)
	if err != nil {
		return false
	}
	return claims.ValidAt(now)
}
