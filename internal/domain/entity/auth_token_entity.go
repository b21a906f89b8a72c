package entity

import "time"

// AuthToken is the server-side record of an issued bearer token.
// Only the token id (the JWT "jti") is persisted, never the bearer string.
type AuthToken struct {
	ID         string
	UserID     int64
	Name       string
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
