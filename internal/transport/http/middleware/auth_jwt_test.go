package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-opinions-api/internal/core/token"
	resp "go-opinions-api/internal/transport/http/response"
)

func init() { gin.SetMode(gin.TestMode) }

func newAuthEngine(svc *token.Service, requireRole string) *gin.Engine {
	r := gin.New()
	g := r.Group("/v1")
	g.Use(AuthJWT(svc, requireRole))
	g.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, resp.OK(gin.H{
			"userId": c.GetString("userId"),
			"role":   c.GetString("role"),
		}))
	})
	return r
}

func doAuth(t *testing.T, r *gin.Engine, authHeader string) resp.Resp {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func newTokenService() *token.Service {
	return &token.Service{
		Secret:     []byte("test-secret"),
		Issuer:     "opinions-test",
		Audience:   "opinions-web",
		SessionTTL: time.Hour,
	}
}

func TestAuthJWTAccepted(t *testing.T) {
	svc := newTokenService()
	tok, _, err := svc.IssueSession("u1", "USER_ROLE")
	require.NoError(t, err)

	out := doAuth(t, newAuthEngine(svc, ""), "Bearer "+tok)
	require.Equal(t, resp.CodeOK, out.Code)
	data := out.Data.(map[string]any)
	assert.Equal(t, "u1", data["userId"])
	assert.Equal(t, "USER_ROLE", data["role"])
}

func TestAuthJWTMissingOrMalformed(t *testing.T) {
	svc := newTokenService()
	r := newAuthEngine(svc, "")

	for _, h := range []string{"", "Token abc", "Bearer", "bearer xyz"} {
		out := doAuth(t, r, h)
		assert.Equal(t, resp.CodeUnauthorized, out.Code, h)
		assert.Equal(t, "missing token", out.Msg, h)
	}

	out := doAuth(t, r, "Bearer not-a-jwt")
	assert.Equal(t, resp.CodeUnauthorized, out.Code)
	assert.Equal(t, "invalid token", out.Msg)
}

// 过期和无效给出不同的提示，客户端好决定要不要刷新
func TestAuthJWTExpired(t *testing.T) {
	svc := newTokenService()
	svc.SessionTTL = -2 * time.Minute
	tok, _, err := svc.IssueSession("u1", "USER_ROLE")
	require.NoError(t, err)

	out := doAuth(t, newAuthEngine(newTokenService(), ""), "Bearer "+tok)
	assert.Equal(t, resp.CodeUnauthorized, out.Code)
	assert.Equal(t, "token expired", out.Msg)
}

func TestAuthJWTRequireRole(t *testing.T) {
	svc := newTokenService()
	r := newAuthEngine(svc, "ADMIN_ROLE")

	userTok, _, err := svc.IssueSession("u1", "USER_ROLE")
	require.NoError(t, err)
	out := doAuth(t, r, "Bearer "+userTok)
	assert.Equal(t, resp.CodeForbidden, out.Code)

	adminTok, _, err := svc.IssueSession("a1", "ADMIN_ROLE")
	require.NoError(t, err)
	out = doAuth(t, r, "Bearer "+adminTok)
	assert.Equal(t, resp.CodeOK, out.Code)
}
