package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-opinions-api/internal/core/config"
	"go-opinions-api/internal/domain"
	"go-opinions-api/internal/media"
	"go-opinions-api/pkg/password"
)

// Seeder 启动时保证角色行存在，并按配置 upsert 引导管理员。
// 聚合 upsert 直接操作 gorm，不走仓储接口。
type Seeder struct {
	db    *gorm.DB
	cfg   *config.Config
	media media.Store
	log   *zap.Logger
}

func NewSeeder(db *gorm.DB, cfg *config.Config, store media.Store, log *zap.Logger) *Seeder {
	return &Seeder{db: db, cfg: cfg, media: store, log: log}
}

func (s *Seeder) EnsureRoles(ctx context.Context) error {
	for _, name := range []string{domain.RoleAdmin, domain.RoleUser} {
		role := domain.Role{ID: uuid.NewString(), Name: name}
		if err := s.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedConfigured() bool {
	a := s.cfg.Seed
	return a.AdminID != "" && a.Name != "" && a.Surname != "" &&
		a.Username != "" && a.Email != "" && a.Password != "" && a.Phone != ""
}

// SeedAdmin 已激活、已验证、仅持 ADMIN_ROLE 的引导账号，一个事务 upsert。
// 未启用返回 nil；配置不全跳过并告警。
func (s *Seeder) SeedAdmin(ctx context.Context) error {
	if !s.cfg.Seed.Enabled {
		return nil
	}
	if !s.seedConfigured() {
		s.log.Warn("seed admin skipped: missing admin config values")
		return nil
	}

	a := s.cfg.Seed
	hash, err := password.Hash(a.Password, password.Params{
		TimeCost:    s.cfg.Security.Argon2TimeCost,
		MemoryKiB:   s.cfg.Security.Argon2MemoryKiB,
		Parallelism: s.cfg.Security.Argon2Parallelism,
		SaltLen:     s.cfg.Security.Argon2SaltLen,
		KeyLen:      s.cfg.Security.Argon2KeyLen,
	})
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var adminRole domain.Role
		if err := tx.Where("name = ?", domain.RoleAdmin).First(&adminRole).Error; err != nil {
			return errors.New("ADMIN_ROLE not found during admin seed")
		}

		fields := map[string]any{
			"name":          a.Name,
			"surname":       a.Surname,
			"username":      strings.ToLower(a.Username),
			"email":         strings.ToLower(a.Email),
			"password_hash": hash,
			"status":        true,
		}

		var existing domain.User
		err := tx.Where("email = ? OR username = ? OR id = ?",
			strings.ToLower(a.Email), strings.ToLower(a.Username), a.AdminID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&domain.User{
				ID:           a.AdminID,
				Name:         a.Name,
				Surname:      a.Surname,
				Username:     strings.ToLower(a.Username),
				Email:        strings.ToLower(a.Email),
				PasswordHash: hash,
				Status:       true,
			}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&domain.User{}).Where("id = ?", existing.ID).Updates(fields).Error; err != nil {
				return err
			}
			a.AdminID = existing.ID
		}

		if err := tx.Save(&domain.UserProfile{
			UserID:         a.AdminID,
			Phone:          a.Phone,
			ProfilePicture: s.media.DefaultAvatarPath(),
		}).Error; err != nil {
			return err
		}
		if err := tx.Save(&domain.UserEmail{
			UserID:        a.AdminID,
			EmailVerified: true,
		}).Error; err != nil {
			return err
		}
		if err := tx.Save(&domain.UserPasswordReset{UserID: a.AdminID}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", a.AdminID).Delete(&domain.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Create(&domain.UserRole{
			ID:     uuid.NewString(),
			UserID: a.AdminID,
			RoleID: adminRole.ID,
		}).Error
	})
}
