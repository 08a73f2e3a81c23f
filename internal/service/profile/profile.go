package profile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/namity/backend/internal/apperrors"
	"github.com/namity/backend/internal/logger"
	"github.com/namity/backend/internal/models"
	"github.com/namity/backend/internal/repository"
	"github.com/namity/backend/internal/service/validate"
)

const defaultAvatarURLTTL = time.Hour

// Storage for avatar images
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Cache of public profile lookups
type Cache interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (models.Profile, bool, error)
	GetBySlug(ctx context.Context, slug string) (models.Profile, bool, error)
	Set(ctx context.Context, p models.Profile) error
	Invalidate(ctx context.Context, userID uuid.UUID, slugs ...string) error
}

type Config struct {
	// How long presigned avatar URLs are valid
	AvatarURLTTL time.Duration

	// Public lookups are not cached if nil
	Cache Cache

	Logger logger.Logger
}

type ProfileService struct {
	avatarURLTTL time.Duration

	storage repository.Storage
	objects ObjectStore
	cache   Cache
	logger  logger.Logger
}

func NewService(cfg Config, storage repository.Storage, objects ObjectStore) (*ProfileService, error) {
	if storage == nil || objects == nil {
		return nil, errors.New("storage and object store must not be nil")
	}

	s := &ProfileService{
		avatarURLTTL: cfg.AvatarURLTTL,
		storage:      storage,
		objects:      objects,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
	}

	if s.avatarURLTTL == 0 {
		s.avatarURLTTL = defaultAvatarURLTTL
	}
	if s.logger == nil {
		s.logger = logger.NewNoOpLogger()
	}
	if s.cache == nil {
		s.cache = noCache{}
	}

	return s, nil
}

// Get profile of the user, create it with user id as slug on first access
func (s *ProfileService) GetOrCreate(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	p, err := s.storage.Profile().GetProfile(ctx, userID)
	if !errors.Is(err, apperrors.ErrProfileNotFound) {
		return p, err
	}

	p, err = s.storage.Profile().CreateProfile(ctx, defaultProfile(userID))
	if err == nil {
		s.logger.Info("profile created", "user_id", userID)
		return p, nil
	}

	// Concurrent request could create it first
	p, getErr := s.storage.Profile().GetProfile(ctx, userID)
	if getErr != nil {
		return p, fmt.Errorf("can't create profile. Err: %w", err)
	}
	return p, nil
}

// Apply partial update: absent fields are kept, null fields are cleared, others are set
// Slug could not be cleared
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (models.Profile, error) {
	if err := validateUpdate(upd); err != nil {
		return models.Profile{}, err
	}

	var (
		updated models.Profile
		oldSlug string
	)

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		p, err := st.Profile().GetProfile(ctx, userID)
		if errors.Is(err, apperrors.ErrProfileNotFound) {
			p, err = st.Profile().CreateProfile(ctx, defaultProfile(userID))
		}
		if err != nil {
			return err
		}

		oldSlug = p.Slug
		if upd.Slug.Set {
			p.Slug = upd.Slug.Value
		}
		upd.DisplayName.ApplyTo(&p.DisplayName)
		upd.Bio.ApplyTo(&p.Bio)

		updated, err = st.Profile().UpdateProfile(ctx, p)
		return err
	})
	if err != nil {
		return updated, err
	}

	s.invalidate(ctx, userID, oldSlug, updated.Slug)
	return updated, nil
}

func (s *ProfileService) GetBySlug(ctx context.Context, slug string) (models.Profile, error) {
	if p, ok := s.cached(s.cache.GetBySlug(ctx, slug)); ok {
		return p, nil
	}

	p, err := s.storage.Profile().GetProfileBySlug(ctx, slug)
	if err != nil {
		return p, err
	}

	s.remember(ctx, p)
	return p, nil
}

func (s *ProfileService) GetByUserID(ctx context.Context, userID uuid.UUID) (models.Profile, error) {
	if p, ok := s.cached(s.cache.GetByUserID(ctx, userID)); ok {
		return p, nil
	}

	p, err := s.storage.Profile().GetProfile(ctx, userID)
	if err != nil {
		return p, err
	}

	s.remember(ctx, p)
	return p, nil
}

// Store avatar image and point profile to it
// Previous image is left in storage
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uuid.UUID, filename string, contentType string, data []byte) (models.Profile, error) {
	if len(data) == 0 {
		return models.Profile{}, apperrors.ErrAvatarEmpty
	}

	p, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return p, err
	}

	key := avatarKey(userID, filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.objects.Put(ctx, key, contentType, data); err != nil {
		return p, fmt.Errorf("can't store avatar. Err: %w", err)
	}

	p.AvatarKey = &key
	p, err = s.storage.Profile().UpdateProfile(ctx, p)
	if err != nil {
		return p, err
	}
	s.invalidate(ctx, userID, p.Slug)

	s.logger.Info("avatar uploaded", "user_id", userID, "key", key, "size", len(data))
	return p, nil
}

// Presigned URL of the profile avatar, nil if profile has no avatar
func (s *ProfileService) AvatarURL(ctx context.Context, p models.Profile) (*string, error) {
	if p.AvatarKey == nil {
		return nil, nil
	}

	url, err := s.objects.PresignGet(ctx, *p.AvatarKey, s.avatarURLTTL)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

// Cache failures are logged, never returned

func (s *ProfileService) cached(p models.Profile, ok bool, err error) (models.Profile, bool) {
	if err != nil {
		s.logger.Warn("profile cache read failed", "error", err)
		return p, false
	}
	return p, ok
}

func (s *ProfileService) remember(ctx context.Context, p models.Profile) {
	if err := s.cache.Set(ctx, p); err != nil {
		s.logger.Warn("profile cache write failed", "user_id", p.UserID, "error", err)
	}
}

func (s *ProfileService) invalidate(ctx context.Context, userID uuid.UUID, slugs ...string) {
	if err := s.cache.Invalidate(ctx, userID, slugs...); err != nil {
		s.logger.Error("profile cache invalidation failed", "user_id", userID, "error", err)
	}
}

type noCache struct{}

func (noCache) GetByUserID(context.Context, uuid.UUID) (models.Profile, bool, error) {
	return models.Profile{}, false, nil
}

func (noCache) GetBySlug(context.Context, string) (models.Profile, bool, error) {
	return models.Profile{}, false, nil
}

func (noCache) Set(context.Context, models.Profile) error { return nil }

func (noCache) Invalidate(context.Context, uuid.UUID, ...string) error { return nil }

func defaultProfile(userID uuid.UUID) models.Profile {
	return models.Profile{UserID: userID, Slug: userID.String()}
}

// Avatar object key: {user_id}/{random}.{ext}
func avatarKey(userID uuid.UUID, filename string) string {
	key := userID.String() + "/" + uuid.NewString()
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && ext != "." {
		key += ext
	}
	return key
}

func validateUpdate(upd models.ProfileUpdate) error {
	if upd.Slug.Set {
		if upd.Slug.Null {
			return fmt.Errorf("%w: slug: could not be null", apperrors.ErrProfileInvalid)
		}
		if err := validate.Slug(upd.Slug.Value); err != nil {
			return fmt.Errorf("%w: slug: %w", apperrors.ErrProfileInvalid, err)
		}
	}

	if upd.DisplayName.Set && !upd.DisplayName.Null {
		if err := validate.Length(upd.DisplayName.Value, 0, validate.DisplayNameMaxLength); err != nil {
			return fmt.Errorf("%w: display_name: %w", apperrors.ErrProfileInvalid, err)
		}
	}

	if upd.Bio.Set && !upd.Bio.Null {
		if err := validate.Length(upd.Bio.Value, 0, validate.BioMaxLength); err != nil {
			return fmt.Errorf("%w: bio: %w", apperrors.ErrProfileInvalid, err)
		}
	}

	return nil
}
