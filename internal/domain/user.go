package domain

import "time"

// Field length bounds shared by validation and the relational schema.
const (
	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// User is the domain model for registered accounts. Identity fields are
// immutable after registration.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
