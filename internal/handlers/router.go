package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/namity/backend/internal/handlers/middleware"
	"github.com/namity/backend/internal/logger"
	"github.com/namity/backend/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Router of the auth service
func NewAuthRouter(
	authService authService,
	verifier authenticator,
	cookies CookieConfig,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(verifier)

	mux := http.NewServeMux()

	mux.Handle("POST /auth/register", handleRegister(authService, logger))
	mux.Handle("POST /auth/login", handleLogin(authService, cookies, logger))
	mux.Handle("POST /auth/refresh", handleRefresh(authService, cookies, logger))
	mux.Handle("POST /auth/logout", handleLogout(authService, cookies, logger))
	mux.Handle("POST /auth/password/change", withAuth(handleChangePassword(authService, logger)))
	mux.Handle("GET /me", withAuth(handleUserMe(authService, logger)))

	return chain(mux,
		middleware.LoggerMiddleware(logger),
	)
}

// Router of the profile service
// Requests are authenticated by access token only, auth service is never called
func NewProfileRouter(
	profileService profileService,
	verifier authenticator,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(verifier)

	mux := http.NewServeMux()

	mux.Handle("GET /profiles/me", withAuth(handleMyProfile(profileService, logger)))
	mux.Handle("PUT /profiles/me", withAuth(handleUpdateMyProfile(profileService, logger)))
	mux.Handle("POST /profiles/me/avatar", withAuth(handleUploadAvatar(profileService, logger)))
	mux.Handle("GET /profiles/user/{user_id}", handleProfileByUserID(profileService, logger))
	mux.Handle("GET /profiles/{slug}", handleProfileBySlug(profileService, logger))

	return chain(mux,
		middleware.LoggerMiddleware(logger),
	)
}

type authenticator interface {
	// Return id of the user request is authenticated as
	// Has to return apperrors.ErrAccessTokenMissing if request has no token
	Authenticate(r *http.Request) (uuid.UUID, error)
}

type authService interface {
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, email string, password string) (models.User, error)

	// Has to return apperrors.ErrInvalidCredentials if email unknown or password is wrong
	Login(ctx context.Context, email string, password string, scope []string, meta models.SessionMeta) (models.TokenSet, error)

	// Rotate refresh token
	// If token is not valid: has to return apperrors.ErrTokenInvalid
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token revoked or used: has to return apperrors.ErrRefreshTokenNotFound
	Refresh(ctx context.Context, refresh string, meta models.SessionMeta) (models.TokenSet, error)

	// Revoke refresh token, bad tokens are ignored
	Logout(ctx context.Context, refresh string) error

	// Has to return apperrors.ErrWrongPassword if old password is wrong
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error

	GetUser(ctx context.Context, userID uuid.UUID) (models.User, error)
}

type profileService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (models.Profile, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, filename string, contentType string, data []byte) (models.Profile, error)
	GetBySlug(ctx context.Context, slug string) (models.Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (models.Profile, error)
	AvatarURL(ctx context.Context, p models.Profile) (*string, error)
}
