package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrWrongPassword      = errors.New("incorrect current password")

	// Any failed check of a signed token: signature, algorithm, issuer, audience or expiration
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrAccessTokenMissing = errors.New("missing access token cookie")

	ErrRefreshTokenMissing  = errors.New("missing refresh token cookie")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrProfileNotFound = errors.New("profile not found")
	ErrSlugTaken       = errors.New("slug already in use")
	ErrProfileInvalid  = errors.New("profile data is invalid")
	ErrAvatarEmpty     = errors.New("empty avatar file")
)
