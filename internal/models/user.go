// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a row in the users table. Ephemeral users are guests created without credentials.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`
	Nickname string    `json:"nickname"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`

	CreatedAt time.Time `json:"created_at"`
}
