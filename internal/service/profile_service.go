package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/core/cache"
	"go-opinions-api/internal/domain"
	"go-opinions-api/internal/media"
)

const profileCacheTTL = 5 * time.Minute

// ProfileService 资料读写。公开资料读走 redis 缓存，写路径失效。
type ProfileService struct {
	users domain.UserRepository
	media media.Store
	cache *cache.Cache // 可为 nil（测试/无 redis 环境）
	log   *zap.Logger
}

func NewProfileService(users domain.UserRepository, store media.Store, c *cache.Cache, log *zap.Logger) *ProfileService {
	return &ProfileService{users: users, media: store, cache: c, log: log}
}

func profileCacheKey(userID string) string { return "profile:" + userID }

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*UserView, error) {
	load := func(ctx context.Context) (*UserView, error) {
		u, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, apperr.NotFound("user not found")
		}
		v := NewUserView(u)
		return &v, nil
	}

	if s.cache == nil {
		return load(ctx)
	}
	v, err := cache.GetOrLoadJSON(s.cache, ctx, profileCacheKey(userID), profileCacheTTL, load)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.NotFound("user not found")
	}
	return v, nil
}

type ProfileUpdateInput struct {
	Name           *string `json:"name"`
	Surname        *string `json:"surname"`
	Username       *string `json:"username"`
	Phone          *string `json:"phone"`
	ProfilePicture *string `json:"profilePicture"`
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdateInput) (*UserView, error) {
	patch := domain.ProfilePatch{
		Name:    in.Name,
		Surname: in.Surname,
		Phone:   in.Phone,
	}
	if in.Username != nil {
		patch.Username = in.Username
	}
	if in.ProfilePicture != nil && *in.ProfilePicture != "" {
		normalized := *in.ProfilePicture
		if isLocalPath(normalized) {
			name := "profile-" + randomHex(6)
			stored, err := s.media.UploadImage(ctx, normalized, name)
			if err != nil {
				s.log.Warn("profile picture upload failed", zap.Error(err))
				return nil, apperr.Transient("could not store profile picture", err)
			}
			normalized = stored
		} else {
			normalized = s.media.NormalizeRef(normalized)
		}
		patch.ProfilePicture = &normalized
	}

	u, err := s.users.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, profileCacheKey(userID))
	}
	v := NewUserView(u)
	return &v, nil
}
