package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/handlers/render"
	"github.com/namity/backend/internal/handlers/userctx"
)

type authenticator interface {
	Authenticate(r *http.Request) (uuid.UUID, error)
}

// Reject requests without valid access token
// Authenticated user id is available to the next handler with userctx.FromContext
func AuthMiddleware(a authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := a.Authenticate(r)
			switch {
			case errors.Is(err, apperrors.ErrAccessTokenMissing):
				render.ServiceError(w, "Missing access token cookie", http.StatusUnauthorized)
				return
			case err != nil:
				render.ServiceError(w, "Invalid or expired access token", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
