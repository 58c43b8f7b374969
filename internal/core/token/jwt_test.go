package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return &Service{
		Secret:     []byte("test-secret"),
		Issuer:     "opinions-test",
		Audience:   "opinions-web",
		SessionTTL: time.Hour,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	svc := newTestService()

	tok, exp, err := svc.IssueSession("user-1", "USER_ROLE")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := svc.VerifySession(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "USER_ROLE", claims.Role)
	assert.Empty(t, claims.Purpose)
	assert.NotEmpty(t, claims.ID)
}

// 普通用户重复签发必须拿到不同 token（jti 唯一）
func TestSessionTokensUnique(t *testing.T) {
	svc := newTestService()
	t1, _, err := svc.IssueSession("user-1", "USER_ROLE")
	require.NoError(t, err)
	t2, _, err := svc.IssueSession("user-1", "USER_ROLE")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)
}

func TestVerifyWrongSecret(t *testing.T) {
	svc := newTestService()
	tok, _, err := svc.IssueSession("user-1", "USER_ROLE")
	require.NoError(t, err)

	other := newTestService()
	other.Secret = []byte("different-secret")
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongAudience(t *testing.T) {
	svc := newTestService()
	tok, _, err := svc.IssueSession("user-1", "USER_ROLE")
	require.NoError(t, err)

	other := newTestService()
	other.Audience = "someone-else"
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	svc := newTestService()
	svc.SessionTTL = -2 * time.Minute // 超出 60s leeway
	tok, _, err := svc.IssueSession("user-1", "USER_ROLE")
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyGarbage(t *testing.T) {
	svc := newTestService()
	for _, s := range []string{"", "abc", "a.b.c", "Bearer xyz"} {
		_, err := svc.Verify(s)
		assert.ErrorIs(t, err, ErrInvalidToken, s)
	}
}

// 带用途声明的 token 不能当会话 token 用
func TestPurposeTokenRejectedAsSession(t *testing.T) {
	svc := newTestService()
	tok, err := svc.IssuePurpose("user-1", PurposeEmailVerify, time.Hour)
	require.NoError(t, err)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, PurposeEmailVerify, claims.Purpose)

	_, err = svc.VerifySession(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuePurposeUnknown(t *testing.T) {
	svc := newTestService()
	_, err := svc.IssuePurpose("user-1", "SOMETHING_ELSE", time.Hour)
	assert.Error(t, err)
}

// seed admin + stable 模式：重复签发字节一致，且能通过校验
func TestSeedAdminStableToken(t *testing.T) {
	svc := newTestService()
	svc.Seed = Seed{Stable: true, AdminID: "admin-1"}

	t1, exp1, err := svc.IssueSession("admin-1", "ADMIN_ROLE")
	require.NoError(t, err)
	t2, exp2, err := svc.IssueSession("admin-1", "ADMIN_ROLE")
	require.NoError(t, err)

	assert.Equal(t, t1, t2)
	assert.Equal(t, exp1, exp2)
	assert.Equal(t, time.Unix(seedStableEXP, 0), exp1)

	claims, err := svc.VerifySession(t1)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, "ADMIN_ROLE", claims.Role)
	assert.Equal(t, seedStableJTI, claims.ID)

	// 同账号但角色不是 ADMIN_ROLE 时走普通路径
	t3, _, err := svc.IssueSession("admin-1", "USER_ROLE")
	require.NoError(t, err)
	assert.NotEqual(t, t1, t3)
}

func TestSeedAdminFixedToken(t *testing.T) {
	svc := newTestService()
	svc.Seed = Seed{Stable: true, AdminID: "admin-1", FixedToken: "fixed-admin-token"}
	svc.AllowFixedBypass = true

	tok, _, err := svc.IssueSession("admin-1", "ADMIN_ROLE")
	require.NoError(t, err)
	assert.Equal(t, "fixed-admin-token", tok)

	claims, err := svc.VerifySession(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.Subject)
	assert.Equal(t, "ADMIN_ROLE", claims.Role)

	// 旁路关掉（prod）后固定 token 不再可用
	svc.AllowFixedBypass = false
	_, err = svc.VerifySession(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOpaqueTokens(t *testing.T) {
	t1, err := NewOpaque()
	require.NoError(t, err)
	t2, err := NewOpaque()
	require.NoError(t, err)

	assert.Len(t, t1, 43) // 32 字节 RawURL 编码
	assert.NotEqual(t, t1, t2)
	assert.True(t, OpaqueAcceptable(t1))
	assert.False(t, OpaqueAcceptable("short-token"))
	assert.False(t, OpaqueAcceptable(""))
}
