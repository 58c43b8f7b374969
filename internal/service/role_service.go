package service

import (
	"context"
	"strings"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/domain"
)

// RoleService 角色指派的不变量把关：封闭角色集合、每账号单角色、
// 永远至少保留一名管理员。
type RoleService struct {
	roles domain.RoleRepository
	users domain.UserRepository
}

func NewRoleService(roles domain.RoleRepository, users domain.UserRepository) *RoleService {
	return &RoleService{roles: roles, users: users}
}

type AssignRoleResult struct {
	User UserView `json:"user"`
	Role string   `json:"role"`
}

// AssignSingleRole replace-all-insert-one，事务内含 last-admin 检查
//（read-then-act，强度等同存储隔离级别）。失败时不做任何变更。
func (s *RoleService) AssignSingleRole(ctx context.Context, userID, roleName string) (*AssignRoleResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(roleName))
	if !domain.AllowedRole(normalized) {
		return nil, apperr.InvalidRole("role not allowed, use ADMIN_ROLE or USER_ROLE")
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}

	if err := s.roles.ReplaceUserRole(ctx, userID, normalized); err != nil {
		return nil, err
	}

	updated, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AssignRoleResult{User: NewUserView(updated), Role: normalized}, nil
}

func (s *RoleService) CountHolders(ctx context.Context, roleName string) (int64, error) {
	return s.roles.CountHolders(ctx, strings.ToUpper(strings.TrimSpace(roleName)))
}

func (s *RoleService) RoleNames(ctx context.Context, userID string) ([]string, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	return s.roles.RoleNames(ctx, userID)
}

func (s *RoleService) UsersByRole(ctx context.Context, roleName string) ([]UserView, error) {
	normalized := strings.ToUpper(strings.TrimSpace(roleName))
	if !domain.AllowedRole(normalized) {
		return nil, apperr.InvalidRole("role not allowed, use ADMIN_ROLE or USER_ROLE")
	}
	users, err := s.roles.UsersByRole(ctx, normalized)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, NewUserView(&users[i]))
	}
	return views, nil
}
