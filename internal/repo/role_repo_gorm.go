package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/domain"
)

type RoleRepo struct{ db *gorm.DB }

func NewRoleRepo(db *gorm.DB) *RoleRepo { return &RoleRepo{db: db} }

func (r *RoleRepo) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// CountHolders 按账号去重统计某角色的持有人数
func (r *RoleRepo) CountHolders(ctx context.Context, roleName string) (int64, error) {
	return countHolders(r.db.WithContext(ctx), roleName)
}

func countHolders(tx *gorm.DB, roleName string) (int64, error) {
	var n int64
	err := tx.Model(&domain.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", roleName).
		Distinct("user_roles.user_id").
		Count(&n).Error
	return n, err
}

func (r *RoleRepo) RoleNames(ctx context.Context, userID string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&domain.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", userID).
		Pluck("roles.name", &names).Error
	return names, err
}

func (r *RoleRepo) UsersByRole(ctx context.Context, roleName string) ([]domain.User, error) {
	var users []domain.User
	err := preloadAll(r.db.WithContext(ctx)).
		Joins("JOIN user_roles ur ON ur.user_id = users.id").
		Joins("JOIN roles ON roles.id = ur.role_id").
		Where("roles.name = ?", roleName).
		Find(&users).Error
	return users, err
}

// ReplaceUserRole 删光该账号的角色关联再插入一条，事务内先做 last-admin
// 检查。read-then-act 的强度取决于存储的隔离级别，并发降级下存在竞争窗口。
func (r *RoleRepo) ReplaceUserRole(ctx context.Context, userID, roleName string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []string
		if err := tx.Model(&domain.UserRole{}).
			Joins("JOIN roles ON roles.id = user_roles.role_id").
			Where("user_roles.user_id = ?", userID).
			Pluck("roles.name", &current).Error; err != nil {
			return err
		}
		isAdmin := false
		for _, n := range current {
			if n == domain.RoleAdmin {
				isAdmin = true
				break
			}
		}
		if isAdmin && roleName != domain.RoleAdmin {
			n, err := countHolders(tx, domain.RoleAdmin)
			if err != nil {
				return err
			}
			if n <= 1 {
				return apperr.LastAdminProtection()
			}
		}

		var role domain.Role
		if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("role " + roleName + " not found")
			}
			return err
		}

		if err := tx.Where("user_id = ?", userID).Delete(&domain.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Create(&domain.UserRole{
			ID:     uuid.NewString(),
			UserID: userID,
			RoleID: role.ID,
		}).Error
	})
}

func (r *RoleRepo) EnsureRoles(ctx context.Context, names ...string) error {
	for _, name := range names {
		role := domain.Role{ID: uuid.NewString(), Name: name}
		if err := r.db.WithContext(ctx).
			Where("name = ?", name).
			FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}
