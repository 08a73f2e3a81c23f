package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/handlers/render"
	"github.com/namity/backend/internal/handlers/userctx"
	"github.com/namity/backend/internal/logger"
	"github.com/namity/backend/internal/models"
)

// Avatar upload limit, multipart overhead included
const MaxAvatarSize = 5 << 20

type profileView struct {
	UserID      uuid.UUID `json:"user_id"`
	Slug        string    `json:"slug"`
	DisplayName *string   `json:"display_name"`
	Bio         *string   `json:"bio"`
	AvatarURL   *string   `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Render profile with presigned avatar url
func renderProfile(w http.ResponseWriter, r *http.Request, profiles profileService, logger logger.Logger, p models.Profile) {
	url, err := profiles.AvatarURL(r.Context(), p)
	if err != nil {
		logger.Error("can't sign avatar url", "error", err, "user_id", p.UserID)
		render.InternalError(w)
		return
	}

	render.JSON(w, profileView{
		UserID:      p.UserID,
		Slug:        p.Slug,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		AvatarURL:   url,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	})
}

func profileError(w http.ResponseWriter, logger logger.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrProfileNotFound):
		render.ServiceError(w, "Profile not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrSlugTaken):
		render.ServiceError(w, "Slug already in use", http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrProfileInvalid):
		render.ServiceError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrAvatarEmpty):
		render.ServiceError(w, "Empty file", http.StatusBadRequest)
	default:
		logger.Error("profile request failed", "error", err)
		render.InternalError(w)
	}
}

func handleMyProfile(profiles profileService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userctx.FromContext(r.Context())

		p, err := profiles.GetOrCreate(r.Context(), userID)
		if err != nil {
			profileError(w, logger, err)
			return
		}

		renderProfile(w, r, profiles, logger, p)
	})
}

// Fields may be absent, null or set: decoded without validation tags, service validates them
func handleUpdateMyProfile(profiles profileService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userctx.FromContext(r.Context())

		upd, err := render.Bind[models.ProfileUpdate](w, r)
		if err != nil {
			return
		}

		p, err := profiles.Update(r.Context(), userID, upd)
		if err != nil {
			profileError(w, logger, err)
			return
		}

		renderProfile(w, r, profiles, logger, p)
	})
}

func handleUploadAvatar(profiles profileService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := userctx.FromContext(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, MaxAvatarSize)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				render.ServiceError(w, "File is too large", http.StatusRequestEntityTooLarge)
				return
			}
			render.ServiceError(w, "Multipart form with 'file' field expected", http.StatusBadRequest)
			return
		}
		defer file.Close() // nolint:errcheck

		data, err := io.ReadAll(file)
		if err != nil {
			render.ServiceError(w, "Can't read file", http.StatusBadRequest)
			return
		}

		p, err := profiles.UploadAvatar(r.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			profileError(w, logger, err)
			return
		}

		renderProfile(w, r, profiles, logger, p)
	})
}

func handleProfileBySlug(profiles profileService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := profiles.GetBySlug(r.Context(), r.PathValue("slug"))
		if err != nil {
			profileError(w, logger, err)
			return
		}

		renderProfile(w, r, profiles, logger, p)
	})
}

func handleProfileByUserID(profiles profileService, logger logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.PathValue("user_id"))
		if err != nil {
			render.ServiceError(w, "Profile not found", http.StatusNotFound)
			return
		}

		p, err := profiles.GetByUserID(r.Context(), userID)
		if err != nil {
			profileError(w, logger, err)
			return
		}

		renderProfile(w, r, profiles, logger, p)
	})
}
