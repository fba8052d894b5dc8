// Package user defines the user model used throughout the application,
// particularly for authentication and favorite-recipe ownership.
package user

import "time"

// User represents a registered account.
// PasswordHash holds a bcrypt hash and must never leave the backend.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
