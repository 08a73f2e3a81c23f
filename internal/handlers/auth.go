package handlers

import (
	"errors"
	"net/http"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/handlers/render"
	"github.com/namity/backend/internal/handlers/userctx"
	"github.com/namity/backend/internal/logger"
)

func handleRegister(auth authService, logger logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email,max=255"`
		Password string `json:"password" validate:"required,min=8,max=128"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, err := auth.Register(r.Context(), data.Email, data.Password)
		switch {
		case err == nil:
			render.Created(w, newUserView(user))
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User with this email already exists", http.StatusBadRequest)
		default:
			logger.Error("register failed", "error", err)
			render.InternalError(w)
		}
	})
}

func handleLogin(auth authService, cookies CookieConfig, logger logger.Logger) http.Handler {
	type request struct {
		Email    string   `json:"email" validate:"required"`
		Password string   `json:"password" validate:"required"`
		Scope    []string `json:"scope"`
	}
	type response struct {
		Detail  string `json:"detail"`
		IDToken string `json:"id_token,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		set, err := auth.Login(r.Context(), data.Email, data.Password, data.Scope, sessionMeta(r))
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Incorrect username or password", http.StatusUnauthorized)
			return
		case err != nil:
			logger.Error("login failed", "error", err)
			render.InternalError(w)
			return
		}

		setTokenCookies(w, cookies, set)

		resp := response{Detail: "Logged in"}
		if set.Identity != nil {
			resp.IDToken = set.Identity.Value
		}
		render.JSON(w, resp)
	})
}

func handleRefresh(auth authService, cookies CookieConfig, logger logger.Logger) http.Handler {
	type response struct {
		Detail string `json:"detail"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh := readRefreshCookie(r)
		if refresh == "" {
			render.ServiceError(w, "Missing refresh token cookie", http.StatusUnauthorized)
			return
		}

		set, err := auth.Refresh(r.Context(), refresh, sessionMeta(r))
		switch {
		case err == nil:
			setTokenCookies(w, cookies, set)
			render.JSON(w, response{Detail: "Tokens refreshed"})
		case errors.Is(err, apperrors.ErrRefreshTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrRefreshTokenNotFound):
			render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			logger.Error("refresh failed", "error", err)
			render.InternalError(w)
		}
	})
}

// Logout always succeeds for the client: cookies are cleared even if token could not be revoked
func handleLogout(auth authService, cookies CookieConfig, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.Logout(r.Context(), readRefreshCookie(r)); err != nil {
			logger.Error("logout failed to revoke refresh token", "error", err)
		}

		clearTokenCookies(w, cookies)
		render.NoContent(w)
	})
}

func handleChangePassword(auth authService, logger logger.Logger) http.Handler {
	type request struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = auth.ChangePassword(r.Context(), userID, data.OldPassword, data.NewPassword)
		switch {
		case err == nil:
			render.NoContent(w)
		case errors.Is(err, apperrors.ErrWrongPassword):
			render.ServiceError(w, "Incorrect current password", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			logger.Error("password change failed", "error", err, "user_id", userID)
			render.InternalError(w)
		}
	})
}
