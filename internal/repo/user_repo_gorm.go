package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/domain"
)

type UserRepo struct {
	db            *gorm.DB
	defaultAvatar string
	log           *zap.Logger
}

func NewUserRepo(db *gorm.DB, defaultAvatar string, log *zap.Logger) *UserRepo {
	return &UserRepo{db: db, defaultAvatar: defaultAvatar, log: log}
}

func preloadAll(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Profile").
		Preload("EmailState").
		Preload("ResetState").
		Preload("Roles.Role")
}

// Create 一个事务落齐聚合：用户（Status=false）+ 资料 + 邮箱状态 + 重置状态 +
// USER_ROLE 关联。角色行缺失只告警不失败。任一步出错整体回滚。
func (r *UserRepo) Create(ctx context.Context, d domain.UserDraft) (*domain.User, error) {
	picture := d.ProfilePicture
	if picture == "" {
		picture = r.defaultAvatar
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         d.Name,
		Surname:      d.Surname,
		Username:     strings.ToLower(d.Username),
		Email:        strings.ToLower(d.Email),
		PasswordHash: d.PasswordHash,
		Status:       false,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&u).Error; err != nil {
			if isDupKey(err) {
				return apperr.DuplicateIdentifier("email or username already in use")
			}
			return err
		}
		if err := tx.Create(&domain.UserProfile{
			UserID:         u.ID,
			Phone:          d.Phone,
			ProfilePicture: picture,
		}).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.UserEmail{UserID: u.ID, EmailVerified: false}).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.UserPasswordReset{UserID: u.ID}).Error; err != nil {
			return err
		}

		var role domain.Role
		err := tx.Where("name = ?", domain.RoleUser).First(&role).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 角色表没播种也允许注册，后续可补
			r.log.Warn("USER_ROLE missing during user creation", zap.String("user_id", u.ID))
			return nil
		case err != nil:
			return err
		}
		return tx.Create(&domain.UserRole{
			ID:     uuid.NewString(),
			UserID: u.ID,
			RoleID: role.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, u.ID)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := preloadAll(r.db.WithContext(ctx)).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByIdentifier 邮箱或用户名匹配，大小写不敏感（存储已小写）
func (r *UserRepo) FindByIdentifier(ctx context.Context, emailOrUsername string) (*domain.User, error) {
	id := strings.ToLower(strings.TrimSpace(emailOrUsername))
	var u domain.User
	err := preloadAll(r.db.WithContext(ctx)).
		Where("email = ? OR username = ?", id, id).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := preloadAll(r.db.WithContext(ctx)).
		Where("email = ?", strings.ToLower(email)).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).
		Where("username = ?", strings.ToLower(username)).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Exists(ctx context.Context, email, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ? OR username = ?", strings.ToLower(email), strings.ToLower(username)).
		Count(&n).Error
	return n > 0, err
}

// findByChildToken 过期 token 与不存在的 token 都返回 nil——调用方
// 区分不了两者，这是刻意的（不给存在性探测留信号）。
func (r *UserRepo) findByChildToken(ctx context.Context, join, where string, token string) (*domain.User, error) {
	var u domain.User
	err := preloadAll(r.db.WithContext(ctx)).
		Joins(join).
		Where(where, token, time.Now()).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByEmailVerificationToken(ctx context.Context, tok string) (*domain.User, error) {
	return r.findByChildToken(ctx,
		"JOIN user_emails ue ON ue.user_id = users.id",
		"ue.verification_token = ? AND ue.verification_token_until > ?", tok)
}

func (r *UserRepo) FindByPasswordResetToken(ctx context.Context, tok string) (*domain.User, error) {
	return r.findByChildToken(ctx,
		"JOIN user_password_resets pr ON pr.user_id = users.id",
		"pr.reset_token = ? AND pr.reset_token_until > ?", tok)
}

func (r *UserRepo) SetEmailVerificationToken(ctx context.Context, userID, tok string, until time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.UserEmail{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"verification_token":       tok,
			"verification_token_until": until,
		}).Error
}

// MarkEmailVerified 验证即激活：邮箱状态与账号 Status 同一事务更新
func (r *UserRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.UserEmail{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"email_verified":           true,
				"verification_token":       nil,
				"verification_token_until": nil,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.User{}).
			Where("id = ?", userID).
			Update("status", true).Error
	})
}

func (r *UserRepo) SetPasswordResetToken(ctx context.Context, userID, tok string, until time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.UserPasswordReset{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"reset_token":       tok,
			"reset_token_until": until,
		}).Error
}

// UpdatePassword 改密同时清空重置 token，单次使用在数据层兜底
func (r *UserRepo) UpdatePassword(ctx context.Context, userID, newHash string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.User{}).
			Where("id = ?", userID).
			Update("password_hash", newHash).Error; err != nil {
			return err
		}
		return tx.Model(&domain.UserPasswordReset{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"reset_token":       nil,
				"reset_token_until": nil,
			}).Error
	})
}

// UpdateProfile 部分更新，只应用 patch 里出现的字段；
// username 换新值前在事务内重查唯一性。
func (r *UserRepo) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u domain.User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("user not found")
			}
			return err
		}

		userUpdates := map[string]any{}
		if patch.Name != nil {
			userUpdates["name"] = strings.TrimSpace(*patch.Name)
		}
		if patch.Surname != nil {
			userUpdates["surname"] = strings.TrimSpace(*patch.Surname)
		}
		if patch.Username != nil {
			username := strings.ToLower(strings.TrimSpace(*patch.Username))
			var other domain.User
			err := tx.Where("username = ?", username).First(&other).Error
			switch {
			case err == nil && other.ID != userID:
				return apperr.DuplicateIdentifier("username already in use")
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
			userUpdates["username"] = username
		}
		if len(userUpdates) > 0 {
			if err := tx.Model(&domain.User{}).Where("id = ?", userID).Updates(userUpdates).Error; err != nil {
				return err
			}
		}

		profileUpdates := map[string]any{}
		if patch.Phone != nil {
			profileUpdates["phone"] = *patch.Phone
		}
		if patch.ProfilePicture != nil {
			profileUpdates["profile_picture"] = *patch.ProfilePicture
		}
		if len(profileUpdates) > 0 {
			if err := tx.Model(&domain.UserProfile{}).Where("user_id = ?", userID).Updates(profileUpdates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, userID)
}

func (r *UserRepo) List(ctx context.Context, offset, limit int, q string, withDeleted bool) ([]domain.User, int64, error) {
	tx := r.db.WithContext(ctx).Model(&domain.User{})
	if withDeleted {
		tx = tx.Unscoped()
	}
	if s := strings.TrimSpace(q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("email LIKE ? OR username LIKE ?", like, like)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	if err := preloadAll(tx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepo) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

// isDupKey 不依赖 gorm.ErrDuplicatedKey，规避驱动/版本差异
func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
