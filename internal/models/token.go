package models

import (
	"time"

	"github.com/google/uuid"
)

// Server side record of one issued refresh token
// Absence of the row means the refresh token is not usable anymore
type RefreshSession struct {
	ID         int64
	UserID     uuid.UUID
	JTI        uuid.UUID
	DeviceName *string
	IPAddress  *string
	UserAgent  *string
	IssuedAt   time.Time
	LastUsedAt time.Time
	ExpiresAt  time.Time
}

// Optional client metadata stored along with the refresh session
type SessionMeta struct {
	DeviceName string
	IPAddress  string
	UserAgent  string
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Tokens issued by AuthService on login or refresh
// Identity is set only when 'openid' scope requested
type TokenSet struct {
	Access   IssuedToken
	Refresh  IssuedToken
	Identity *IssuedToken
}
