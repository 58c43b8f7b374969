package ez

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-opinions-api/internal/apperr"
	resp "go-opinions-api/internal/transport/http/response"
)

// 非 CRUD 接口的一行注册

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.PostForm 取
)

// Action I 入参，O 出参
type Action[I any, O any] struct {
	Method  string   // "GET" | "POST" | "PUT" | "DELETE"
	Path    string   // 例："/auth/login"、"/posts/:postId"
	Binder  Binder   // 绑定方式
	Auth    bool     // 是否要求登录（检查 userId）
	Roles   []string // 限定角色（可选）
	Handler func(c *gin.Context, in *I) (O, error)
}

func Register[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		if a.Auth {
			if c.GetString("userId") == "" {
				c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
				return
			}
			if len(a.Roles) > 0 && !roleAllowed(c.GetString("role"), a.Roles) {
				c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
				return
			}
		}

		var in I
		switch a.Binder {
		case BindJSON:
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
		case BindQuery:
			if err := c.ShouldBindQuery(&in); err != nil {
				c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, err.Error()))
				return
			}
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			c.JSON(http.StatusOK, errResp(err))
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch a.Method {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPost:
		e.g.POST(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		panic("ez: unsupported method " + a.Method)
	}
}

// errResp 业务错误带用户可见 message + correlation id；
// 其它错误一律 500 "internal error"，细节只在日志里。
func errResp(err error) resp.Resp {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg := ae.Msg
		if ae.Kind == apperr.KindInternal {
			msg = "internal error"
		}
		return resp.ErrorWithID(apperr.HTTPStatus(ae), msg, ae.CorrelationID)
	}
	return resp.Error(resp.CodeServerError, "internal error")
}

func roleAllowed(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
