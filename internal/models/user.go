package models

import (
	"time"

	"github.com/google/uuid"
)

// Registered account
// Email is unique and compared as stored, without case folding
type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string // bcrypt over sha256 of the password
	CreatedAt      time.Time
}
