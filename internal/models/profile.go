package models

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	UserID      uuid.UUID
	Slug        string
	DisplayName *string
	Bio         *string
	AvatarKey   *string // object storage key, not an URL
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Partial profile update
// Every field may be absent (keep), null (clear) or carry a value (set)
type ProfileUpdate struct {
	Slug        Optional[string] `json:"slug"`
	DisplayName Optional[string] `json:"display_name"`
	Bio         Optional[string] `json:"bio"`
}
