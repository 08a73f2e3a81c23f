// Package verifier authenticates requests by the access token cookie.
//
// Only the public key is needed, so any service holding it may verify
// requests without calling the auth service.
package verifier

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/service/auth/tokencodec"
)

const DefaultCookieName = "access_token"

type tokenVerifier interface {
	Verify(token string, audience string) (tokencodec.Claims, error)
}

type Verifier struct {
	codec  tokenVerifier
	cookie string
}

// Create verifier reading access token from cookie
// DefaultCookieName is used if cookie is empty
func New(codec tokenVerifier, cookie string) *Verifier {
	if cookie == "" {
		cookie = DefaultCookieName
	}
	return &Verifier{codec: codec, cookie: cookie}
}

// Authenticate request and return user id it was issued for
// Returns apperrors.ErrAccessTokenMissing if there is no cookie and apperrors.ErrTokenInvalid on any other problem
func (v *Verifier) Authenticate(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(v.cookie)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return uuid.Nil, apperrors.ErrAccessTokenMissing
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	claims, err := v.codec.Verify(cookie.Value, tokencodec.AudienceAccess)
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not user id", apperrors.ErrTokenInvalid)
	}

	return userID, nil
}
