package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/handlers/render"
	"github.com/namity/backend/internal/handlers/userctx"
	"github.com/namity/backend/internal/logger"
	"github.com/namity/backend/internal/models"
)

type userView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserView(u models.User) userView {
	return userView{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func handleUserMe(auth authService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userctx.FromContext(r.Context())

		user, err := auth.GetUser(r.Context(), userID)
		switch {
		case err == nil:
			render.JSON(w, newUserView(user))
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			logger.Error("can't get user", "error", err, "user_id", userID)
			render.InternalError(w)
		}
	})
}
