package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/service"
	httpez "go-opinions-api/internal/transport/http/ez"
)

// 管理端接口集中在这里注册
func mountAdminActions(admin *gin.RouterGroup, d Deps) {
	ez := httpez.New(admin)

	// --- GET /admin/v1/users  用户列表 ---
	type listQ struct {
		Offset      int    `form:"offset,default=0"`
		Limit       int    `form:"limit,default=20"`
		Q           string `form:"q"`            // 按 email/username 模糊搜
		WithDeleted bool   `form:"with_deleted"` // 是否包含软删
	}
	type listOut struct {
		Total int64              `json:"total"`
		Items []service.UserView `json:"items"`
	}
	httpez.Register(ez, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			if in.Limit <= 0 || in.Limit > 100 {
				in.Limit = 20
			}
			users, total, err := d.Users.List(c.Request.Context(),
				in.Offset, in.Limit, strings.TrimSpace(in.Q), in.WithDeleted)
			if err != nil {
				return listOut{}, apperr.Internal(err)
			}
			out := listOut{Total: total, Items: make([]service.UserView, 0, len(users))}
			for i := range users {
				out.Items = append(out.Items, service.NewUserView(&users[i]))
			}
			return out, nil
		},
	})

	// --- GET /admin/v1/roles/:role/users  某角色全部持有者 ---
	type roleUsersOut struct {
		Role  string             `json:"role"`
		Total int                `json:"total"`
		Items []service.UserView `json:"items"`
	}
	httpez.Register(ez, httpez.Action[struct{}, roleUsersOut]{
		Method: http.MethodGet,
		Path:   "/roles/:role/users",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (roleUsersOut, error) {
			role := c.Param("role")
			users, err := d.Roles.UsersByRole(c.Request.Context(), role)
			if err != nil {
				return roleUsersOut{}, err
			}
			return roleUsersOut{Role: strings.ToUpper(role), Total: len(users), Items: users}, nil
		},
	})

	// --- GET /admin/v1/users/:id/roles ---
	type rolesOut struct {
		UserID string   `json:"userId"`
		Roles  []string `json:"roles"`
	}
	httpez.Register(ez, httpez.Action[struct{}, rolesOut]{
		Method: http.MethodGet,
		Path:   "/users/:id/roles",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (rolesOut, error) {
			id := c.Param("id")
			names, err := d.Roles.RoleNames(c.Request.Context(), id)
			if err != nil {
				return rolesOut{}, err
			}
			return rolesOut{UserID: id, Roles: names}, nil
		},
	})

	// --- PUT /admin/v1/users/:id/role  整组替换为单一角色 ---
	type assignIn struct {
		Role string `json:"role" binding:"required"`
	}
	httpez.Register(ez, httpez.Action[assignIn, *service.AssignRoleResult]{
		Method: http.MethodPut,
		Path:   "/users/:id/role",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *assignIn) (*service.AssignRoleResult, error) {
			return d.Roles.AssignSingleRole(c.Request.Context(), c.Param("id"), in.Role)
		},
	})

	// --- POST /admin/v1/users/:id/ban  封禁（软删） ---
	httpez.Register(ez, httpez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/users/:id/ban",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if id == "" {
				return nil, apperr.BadRequest("missing id")
			}
			if err := d.Users.SoftDelete(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})
}
