package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xralks/Bancodealimentos/internal/dto"
	"github.com/xralks/Bancodealimentos/internal/models"
	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
	"github.com/xralks/Bancodealimentos/pkg/storage"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, id, avatarURL string, updatedAt time.Time) error
	CountPosts(ctx context.Context, id string) (int, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ProfileConfig limits avatar uploads.
type ProfileConfig struct {
	MaxAvatarBytes int64
	AllowedMIMEs   []string
}

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ProfileService manages public profiles and avatars.
type ProfileService struct {
	repo      profileRepository
	avatars   storage.ObjectStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ProfileConfig
}

// NewProfileService constructs the service.
func NewProfileService(repo profileRepository, avatars storage.ObjectStore, validate *validator.Validate, logger *zap.Logger, cfg ProfileConfig) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxAvatarBytes <= 0 {
		cfg.MaxAvatarBytes = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = storage.AllowImage
	}
	return &ProfileService{repo: repo, avatars: avatars, validator: validate, logger: logger, cfg: cfg}
}

// MaxAvatarBytes is the accepted upload size.
func (s *ProfileService) MaxAvatarBytes() int64 {
	return s.cfg.MaxAvatarBytes
}

// Me returns the caller's own profile.
func (s *ProfileService) Me(ctx context.Context, session *models.JWTClaims) (*dto.ProfileResponse, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	return s.profile(ctx, session.UserID, true)
}

// Get returns another user's public profile. Email is only disclosed to the
// owner and administrators.
func (s *ProfileService) Get(ctx context.Context, session *models.JWTClaims, id string) (*dto.ProfileResponse, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	private := session.UserID == id || session.Role == models.RoleAdmin
	return s.profile(ctx, id, private)
}

// Update edits the caller's profile fields that are present in req.
func (s *ProfileService) Update(ctx context.Context, session *models.JWTClaims, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	trimPtr(req.Username)
	trimPtr(req.FullName)
	trimPtr(req.Address)
	trimPtr(req.Condition)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if req.FullName != nil && *req.FullName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "full_name cannot be empty")
	}

	user, err := s.loadUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	before := map[string]interface{}{"username": user.Username, "full_name": user.FullName, "address": user.Address}

	if req.Username != nil {
		if *req.Username != "" {
			taken, err := s.repo.ExistsByUsername(ctx, *req.Username, user.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
			}
			if taken {
				return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
			}
		}
		user.Username = optionalString(*req.Username)
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Address != nil {
		user.Address = optionalString(*req.Address)
	}
	if req.Condition != nil {
		user.Condition = optionalString(*req.Condition)
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionProfileUpdate,
		Resource:   "user",
		ResourceID: &user.ID,
		OldValues:  auditPayload(before),
		NewValues:  auditPayload(map[string]interface{}{"username": user.Username, "full_name": user.FullName, "address": user.Address}),
	}); err != nil {
		s.logger.Warn("failed to record profile audit log", zap.Error(err))
	}

	return s.profile(ctx, user.ID, true)
}

// UploadAvatar validates and stores an image, then points the profile at it.
// The previous avatar is removed on a best-effort basis.
func (s *ProfileService) UploadAvatar(ctx context.Context, session *models.JWTClaims, upload dto.AvatarUpload) (*dto.ProfileResponse, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if s.avatars == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "avatar storage not configured")
	}
	size := int64(len(upload.Data))
	if size == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "avatar file is empty")
	}
	if size > s.cfg.MaxAvatarBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("avatar exceeds %d bytes", s.cfg.MaxAvatarBytes))
	}

	contentType := http.DetectContentType(upload.Data)
	if !s.allowed(contentType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("content type %s is not accepted", contentType))
	}

	user, err := s.loadUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s%s", user.ID, uuid.NewString(), avatarExtensions[contentType])
	link, err := s.avatars.Put(ctx, key, contentType, bytes.NewReader(upload.Data), size)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
	}

	if err := s.repo.UpdateAvatar(ctx, user.ID, link, time.Now().UTC()); err != nil {
		if removeErr := s.avatars.Remove(ctx, key); removeErr != nil {
			s.logger.Warn("failed to remove orphaned avatar", zap.String("key", key), zap.Error(removeErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save avatar")
	}

	if user.AvatarURL != nil {
		if oldKey := storage.KeyFromURL(s.avatars, *user.AvatarURL); oldKey != "" {
			if err := s.avatars.Remove(ctx, oldKey); err != nil {
				s.logger.Warn("failed to remove previous avatar", zap.String("key", oldKey), zap.Error(err))
			}
		}
	}

	return s.profile(ctx, user.ID, true)
}

func (s *ProfileService) allowed(contentType string) bool {
	for _, mime := range s.cfg.AllowedMIMEs {
		if strings.EqualFold(mime, contentType) {
			return true
		}
	}
	return false
}

func (s *ProfileService) profile(ctx context.Context, id string, private bool) (*dto.ProfileResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountPosts(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count posts")
	}
	resp := &dto.ProfileResponse{
		ID:        user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Address:   user.Address,
		Role:      user.Role,
		RoleLabel: user.Role.Label(),
		AvatarURL: user.AvatarURL,
		Condition: user.Condition,
		PostCount: count,
	}
	if private {
		resp.Email = user.Email
	}
	return resp, nil
}

func (s *ProfileService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func trimPtr(value *string) {
	if value != nil {
		*value = strings.TrimSpace(*value)
	}
}
