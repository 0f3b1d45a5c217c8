package domain

import "time"

// User is the account that owns projects. Users are only ever created by signup.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
