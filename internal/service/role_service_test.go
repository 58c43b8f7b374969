package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/domain"
)

func TestAssignSingleRole(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	view := e.registerVerified(t, "alice", "alice@example.com")

	// 输入大小写和空白都归一化
	res, err := e.roleSvc.AssignSingleRole(ctx, view.ID, "  admin_role ")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Role)
	assert.Equal(t, domain.RoleAdmin, res.User.Role)

	// replace-all-insert-one：永远只有一条关联
	names, err := e.roleSvc.RoleNames(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleAdmin}, names)

	// 重复指派同一角色是幂等的
	_, err = e.roleSvc.AssignSingleRole(ctx, view.ID, domain.RoleAdmin)
	require.NoError(t, err)
	names, err = e.roleSvc.RoleNames(ctx, view.ID)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestAssignRoleRejectsUnknown(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	view := e.registerVerified(t, "alice", "alice@example.com")

	_, err := e.roleSvc.AssignSingleRole(ctx, view.ID, "SUPER_ROLE")
	assert.Equal(t, apperr.KindInvalidRole, apperr.KindOf(err))

	_, err = e.roleSvc.AssignSingleRole(ctx, "missing-id", domain.RoleAdmin)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestLastAdminProtection(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.registerVerified(t, "alice", "alice@example.com")
	b := e.registerVerified(t, "bob", "bob@example.com")

	_, err := e.roleSvc.AssignSingleRole(ctx, a.ID, domain.RoleAdmin)
	require.NoError(t, err)

	// 唯一管理员不许降级
	_, err = e.roleSvc.AssignSingleRole(ctx, a.ID, domain.RoleUser)
	assert.Equal(t, apperr.KindLastAdminProtection, apperr.KindOf(err))

	// 失败的指派不能留下任何变更
	names, err := e.roleSvc.RoleNames(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleAdmin}, names)

	// 第二个管理员出现后才允许降级
	_, err = e.roleSvc.AssignSingleRole(ctx, b.ID, domain.RoleAdmin)
	require.NoError(t, err)
	_, err = e.roleSvc.AssignSingleRole(ctx, a.ID, domain.RoleUser)
	require.NoError(t, err)

	n, err := e.roleSvc.CountHolders(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUsersByRole(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.registerVerified(t, "alice", "alice@example.com")
	e.registerVerified(t, "bob", "bob@example.com")

	_, err := e.roleSvc.AssignSingleRole(ctx, a.ID, domain.RoleAdmin)
	require.NoError(t, err)

	admins, err := e.roleSvc.UsersByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "alice", admins[0].Username)
	assert.Equal(t, domain.RoleAdmin, admins[0].Role)

	regulars, err := e.roleSvc.UsersByRole(ctx, domain.RoleUser)
	require.NoError(t, err)
	assert.Len(t, regulars, 1)

	_, err = e.roleSvc.UsersByRole(ctx, "SUPER_ROLE")
	assert.Equal(t, apperr.KindInvalidRole, apperr.KindOf(err))
}
