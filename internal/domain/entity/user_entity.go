package entity

import (
	"time"
)

// User is the aggregate root for user domain
// Passwords are stored as bcrypt hashes in Password field
//
// Identity (ID, Email) is fixed once created; Name and ImageURL are profile fields.
type User struct {
	ID        int64
	Name      string
	Email     string
	Password  string
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
