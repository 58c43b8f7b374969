package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/service"
	httpez "go-opinions-api/internal/transport/http/ez"
)

// 注册/登录/邮箱验证/找回密码一组动作
func mountAuthActions(api, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(api)
	ezAuth := httpez.New(authed)

	// --- POST /auth/register ---
	type registerIn struct {
		Name           string `json:"name"           binding:"required,max=64"`
		Surname        string `json:"surname"        binding:"required,max=64"`
		Username       string `json:"username"       binding:"required,min=3,max=32"`
		Email          string `json:"email"          binding:"required,email"`
		Password       string `json:"password"       binding:"required"`
		Phone          string `json:"phone"          binding:"required,max=32"`
		ProfilePicture string `json:"profilePicture" binding:"omitempty,max=512"`
	}
	httpez.Register(ezPublic, httpez.Action[registerIn, *service.RegisterResult]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *registerIn) (*service.RegisterResult, error) {
			return d.Auth.Register(c.Request.Context(), service.RegisterInput{
				Name:           in.Name,
				Surname:        in.Surname,
				Username:       in.Username,
				Email:          in.Email,
				Password:       in.Password,
				Phone:          in.Phone,
				ProfilePicture: in.ProfilePicture,
			})
		},
	})

	// --- POST /auth/login  identifier 可以是邮箱或用户名 ---
	type loginIn struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password"   binding:"required"`
	}
	httpez.Register(ezPublic, httpez.Action[loginIn, *service.LoginResult]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (*service.LoginResult, error) {
			return d.Auth.Login(c.Request.Context(), in.Identifier, in.Password)
		},
	})

	// --- GET /auth/verify-email/:token ---
	httpez.Register(ezPublic, httpez.Action[struct{}, *service.VerifyEmailResult]{
		Method: http.MethodGet,
		Path:   "/auth/verify-email/:token",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*service.VerifyEmailResult, error) {
			return d.Auth.VerifyEmail(c.Request.Context(), c.Param("token"))
		},
	})

	// --- POST /auth/resend-verification ---
	type emailIn struct {
		Email string `json:"email" binding:"required,email"`
	}
	httpez.Register(ezPublic, httpez.Action[emailIn, service.SoftResult]{
		Method: http.MethodPost,
		Path:   "/auth/resend-verification",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *emailIn) (service.SoftResult, error) {
			return d.Auth.ResendVerification(c.Request.Context(), in.Email), nil
		},
	})

	// --- POST /auth/forgot-password  防枚举：固定成功形状 ---
	httpez.Register(ezPublic, httpez.Action[emailIn, service.SoftResult]{
		Method: http.MethodPost,
		Path:   "/auth/forgot-password",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *emailIn) (service.SoftResult, error) {
			return d.Auth.ForgotPassword(c.Request.Context(), in.Email), nil
		},
	})

	// --- POST /auth/reset-password ---
	type resetIn struct {
		Token       string `json:"token"       binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	httpez.Register(ezPublic, httpez.Action[resetIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/reset-password",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *resetIn) (gin.H, error) {
			if err := d.Auth.ResetPassword(c.Request.Context(), in.Token, in.NewPassword); err != nil {
				return nil, err
			}
			return gin.H{"message": "password has been reset"}, nil
		},
	})

	// --- POST /auth/change-password（需登录） ---
	type changeIn struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword"     binding:"required"`
	}
	httpez.Register(ezAuth, httpez.Action[changeIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/auth/change-password",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *changeIn) (gin.H, error) {
			uid := c.GetString("userId")
			if uid == "" {
				return nil, apperr.Forbidden("unauthorized")
			}
			if err := d.Auth.ChangePassword(c.Request.Context(), uid, in.CurrentPassword, in.NewPassword); err != nil {
				return nil, err
			}
			return gin.H{"message": "password has been changed"}, nil
		},
	})
}
