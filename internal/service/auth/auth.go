package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/logger"
	"github.com/namity/backend/internal/models"
	"github.com/namity/backend/internal/repository"
	"github.com/namity/backend/internal/service/auth/tokencodec"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour

	// Scope that asks for identity token on login
	ScopeOpenID = "openid"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to user during user registration or login process
	// BcryptHasher if not set
	Hasher PasswordHasher

	// Access and refresh token lifetimes
	// Identity token lives as long as access one
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Logger logger.Logger
}

// Auth service
// Owns the whole credential lifecycle: registration, login, refresh rotation, logout and password change
type AuthService struct {
	hasher     PasswordHasher
	accessTTL  time.Duration
	refreshTTL time.Duration

	// Hash compared on login with unknown email, so both failure paths cost the same
	dummyHash string

	codec   *tokencodec.Codec
	storage repository.Storage
	logger  logger.Logger

	now func() time.Time
}

func NewService(cfg Config, codec *tokencodec.Codec, storage repository.Storage) (*AuthService, error) {
	if codec == nil || storage == nil {
		return nil, errors.New("codec and storage must not be nil")
	}

	s := &AuthService{
		hasher:     cfg.Hasher,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		codec:      codec,
		storage:    storage,
		logger:     cfg.Logger,
		now:        time.Now,
	}

	if s.hasher == nil {
		s.hasher = BcryptHasher{}
	}
	if s.accessTTL == 0 {
		s.accessTTL = defaultAccessTTL
	}
	if s.refreshTTL == 0 {
		s.refreshTTL = defaultRefreshTTL
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}

	dummy, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("hasher is not usable. Err: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Register new user
// No tokens issued: user has to login
func (s *AuthService) Register(ctx context.Context, email string, password string) (models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err := s.storage.User().CreateUser(ctx, email, hash)
	if err != nil {
		return models.User{}, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login with email and password
// Unknown email and wrong password are not distinguishable: both return apperrors.ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, email string, password string, scope []string, meta models.SessionMeta) (models.TokenSet, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, email)

	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		_ = s.hasher.Compare(s.dummyHash, password)
		return models.TokenSet{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return models.TokenSet{}, fmt.Errorf("can't get user. Err: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.TokenSet{}, apperrors.ErrInvalidCredentials
	}

	set, err := s.issue(ctx, s.storage, user, meta, slices.Contains(scope, ScopeOpenID))
	if err != nil {
		return set, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return set, nil
}

// Exchange refresh token for new access and refresh tokens
// The presented refresh token is revoked, so it could be used exactly once even when used concurrently
func (s *AuthService) Refresh(ctx context.Context, refresh string, meta models.SessionMeta) (models.TokenSet, error) {
	userID, jti, err := s.parseRefresh(refresh)
	if err != nil {
		return models.TokenSet{}, err
	}

	var (
		set     models.TokenSet
		expired bool
	)

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		session, err := st.Refresh().GetForUpdate(ctx, jti, userID)
		if err != nil {
			return err
		}

		// Expired session is deleted and the deletion committed
		if !session.ExpiresAt.After(s.now()) {
			expired = true
			return st.Refresh().Revoke(ctx, jti)
		}

		user, err := st.User().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}

		if err := st.Refresh().Revoke(ctx, jti); err != nil {
			return err
		}

		set, err = s.issue(ctx, st, user, meta, false)
		return err
	})

	switch {
	case err != nil:
		return models.TokenSet{}, fmt.Errorf("can't refresh tokens. Err: %w", err)
	case expired:
		return models.TokenSet{}, apperrors.ErrRefreshTokenExpired
	}

	s.logger.Debug("tokens refreshed", "user_id", userID)
	return set, nil
}

// Revoke refresh token
// Invalid, expired or already revoked tokens are ignored: only storage failures are returned
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	if refresh == "" {
		return nil
	}

	_, jti, err := s.parseRefresh(refresh)
	if err != nil {
		s.logger.Debug("logout with invalid refresh token ignored", "error", err)
		return nil
	}

	if err := s.storage.Refresh().Revoke(ctx, jti); err != nil {
		return fmt.Errorf("can't revoke refresh token. Err: %w", err)
	}

	return nil
}

// Change password of authenticated user
// Existing refresh sessions stay valid
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.HashedPassword, oldPassword); err != nil {
		return apperrors.ErrWrongPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password, error=%w", err)
	}

	if err := s.storage.User().SetPassword(ctx, userID, hash); err != nil {
		return err
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}

// Delete expired refresh sessions, return how many were deleted
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := s.storage.Refresh().DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("can't purge expired sessions. Err: %w", err)
	}
	return deleted, nil
}

// Verify refresh token and extract its owner and jti
// Any problem is reported as apperrors.ErrTokenInvalid
func (s *AuthService) parseRefresh(refresh string) (uuid.UUID, uuid.UUID, error) {
	claims, err := s.codec.Verify(refresh, tokencodec.AudienceRefresh)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bad subject", apperrors.ErrTokenInvalid)
	}

	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bad token id", apperrors.ErrTokenInvalid)
	}

	return userID, jti, nil
}

// Create refresh session and issue tokens for it
func (s *AuthService) issue(ctx context.Context, st repository.Storage, user models.User, meta models.SessionMeta, identity bool) (models.TokenSet, error) {
	var set models.TokenSet
	subject := user.ID.String()

	session, err := st.Refresh().Create(ctx, user.ID, s.refreshTTL, meta)
	if err != nil {
		return set, fmt.Errorf("can't create refresh session. Err: %w", err)
	}

	set.Access, err = s.codec.Issue(subject, tokencodec.AudienceAccess, s.accessTTL)
	if err != nil {
		return set, err
	}

	set.Refresh, err = s.codec.Issue(subject, tokencodec.AudienceRefresh, s.refreshTTL, tokencodec.WithID(session.JTI.String()))
	if err != nil {
		return set, err
	}

	if identity {
		id, err := s.codec.Issue(subject, tokencodec.AudienceIdentity, s.accessTTL,
			tokencodec.WithExtra(map[string]any{"email": user.Email}),
		)
		if err != nil {
			return set, err
		}
		set.Identity = &id
	}

	return set, nil
}
