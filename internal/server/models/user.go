// Package models defines the records persisted by the server: dashboard
// users and the four protection-ledger record kinds.
package models

import "time"

// User is a dashboard account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
