package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/domain"
	"go-opinions-api/internal/service"
	httpez "go-opinions-api/internal/transport/http/ez"
)

// 帖子与评论：读公开，写要登录
func mountContentActions(api, authed *gin.RouterGroup, d Deps) {
	ezPublic := httpez.New(api)
	ezAuth := httpez.New(authed)

	// 写操作要带作者用户名落到帖子/评论上
	currentUser := func(c *gin.Context) (*domain.User, error) {
		u, err := d.Users.FindByID(c.Request.Context(), c.GetString("userId"))
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if u == nil {
			return nil, apperr.NotFound("user not found")
		}
		return u, nil
	}

	// --- GET /posts ---
	httpez.Register(ezPublic, httpez.Action[struct{}, []domain.Post]{
		Method: http.MethodGet,
		Path:   "/posts",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Post, error) {
			return d.Posts.List(c.Request.Context())
		},
	})

	// --- GET /posts/:postId ---
	httpez.Register(ezPublic, httpez.Action[struct{}, *domain.Post]{
		Method: http.MethodGet,
		Path:   "/posts/:postId",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Post, error) {
			return d.Posts.Get(c.Request.Context(), c.Param("postId"))
		},
	})

	// --- POST /posts ---
	httpez.Register(ezAuth, httpez.Action[service.PostInput, *domain.Post]{
		Method: http.MethodPost,
		Path:   "/posts",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.PostInput) (*domain.Post, error) {
			u, err := currentUser(c)
			if err != nil {
				return nil, err
			}
			return d.Posts.Create(c.Request.Context(), u.ID, u.Username, *in)
		},
	})

	// --- PUT /posts/:postId  仅作者 ---
	httpez.Register(ezAuth, httpez.Action[service.PostPatch, *domain.Post]{
		Method: http.MethodPut,
		Path:   "/posts/:postId",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.PostPatch) (*domain.Post, error) {
			return d.Posts.Update(c.Request.Context(), c.GetString("userId"), c.Param("postId"), *in)
		},
	})

	// --- DELETE /posts/:postId  连带删评论 ---
	httpez.Register(ezAuth, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/posts/:postId",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := d.Posts.Delete(c.Request.Context(), c.GetString("userId"), c.Param("postId")); err != nil {
				return nil, err
			}
			return gin.H{"id": c.Param("postId")}, nil
		},
	})

	// --- GET /posts/:postId/comments ---
	httpez.Register(ezPublic, httpez.Action[struct{}, []domain.Comment]{
		Method: http.MethodGet,
		Path:   "/posts/:postId/comments",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Comment, error) {
			return d.Comments.ListByPost(c.Request.Context(), c.Param("postId"))
		},
	})

	// --- POST /comments ---
	httpez.Register(ezAuth, httpez.Action[service.CommentInput, *domain.Comment]{
		Method: http.MethodPost,
		Path:   "/comments",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.CommentInput) (*domain.Comment, error) {
			u, err := currentUser(c)
			if err != nil {
				return nil, err
			}
			return d.Comments.Create(c.Request.Context(), u.ID, u.Username, *in)
		},
	})

	// --- PUT /comments/:commentId ---
	type commentPatch struct {
		Content string `json:"content" binding:"required,max=1500"`
	}
	httpez.Register(ezAuth, httpez.Action[commentPatch, *domain.Comment]{
		Method: http.MethodPut,
		Path:   "/comments/:commentId",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *commentPatch) (*domain.Comment, error) {
			return d.Comments.Update(c.Request.Context(), c.GetString("userId"), c.Param("commentId"), in.Content)
		},
	})

	// --- DELETE /comments/:commentId ---
	httpez.Register(ezAuth, httpez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/comments/:commentId",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := d.Comments.Delete(c.Request.Context(), c.GetString("userId"), c.Param("commentId")); err != nil {
				return nil, err
			}
			return gin.H{"id": c.Param("commentId")}, nil
		},
	})
}
