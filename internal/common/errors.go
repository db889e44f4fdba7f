package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// auth errors
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")

	// object storage errors
	ErrEmptyFilename = errors.New("empty filename")
	ErrProvider      = errors.New("storage provider error")
)
