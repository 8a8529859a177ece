package apperrors

import (
	"errors"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrStorage     = errors.New("storage error")

	ErrCredentialInvalid = errors.New("credential is invalid")
	ErrCredentialExpired = errors.New("credential is expired")
	ErrSessionRejected   = errors.New("session rejected by server")
	ErrNotAuthenticated  = errors.New("not authenticated")

	ErrValidation = errors.New("validation failed")
)
