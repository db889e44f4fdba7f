// Package models holds the server-side domain types.
package models

import "time"

// User is a registered account. PasswordHash is never exposed outside the
// auth flow.
type User struct {
	ID           int64
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
}
