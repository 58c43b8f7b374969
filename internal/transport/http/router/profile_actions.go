package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-opinions-api/internal/service"
	httpez "go-opinions-api/internal/transport/http/ez"
)

func mountProfileActions(api, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(api)
	ezAuth := httpez.New(authed)

	// --- GET /me ---
	httpez.Register(ezAuth, httpez.Action[struct{}, *service.UserView]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*service.UserView, error) {
			return d.Profiles.GetProfile(c.Request.Context(), c.GetString("userId"))
		},
	})

	// --- PUT /me  字段全可选，给啥改啥 ---
	httpez.Register(ezAuth, httpez.Action[service.ProfileUpdateInput, *service.UserView]{
		Method: http.MethodPut,
		Path:   "/me",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.ProfileUpdateInput) (*service.UserView, error) {
			return d.Profiles.UpdateProfile(c.Request.Context(), c.GetString("userId"), *in)
		},
	})

	// --- GET /users/:id/profile  公开资料 ---
	httpez.Register(ezPublic, httpez.Action[struct{}, *service.UserView]{
		Method: http.MethodGet,
		Path:   "/users/:id/profile",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*service.UserView, error) {
			return d.Profiles.GetProfile(c.Request.Context(), c.Param("id"))
		},
	})
}
