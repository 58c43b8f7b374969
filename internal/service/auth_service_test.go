package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/core/token"
	"go-opinions-api/internal/domain"
)

func TestRegisterCreatesInactiveAccount(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	res, err := e.auth.Register(ctx, RegisterInput{
		Name:     "Alice",
		Surname:  "Doe",
		Username: "Alice",
		Email:    "Alice@Example.COM",
		Password: testPassword,
		Phone:    "123456789",
	})
	require.NoError(t, err)

	assert.True(t, res.EmailVerificationRequired)
	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.False(t, res.User.Status)
	assert.False(t, res.User.EmailVerified)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.Equal(t, "default-avatar.png", res.User.ProfilePicture)

	// 验证 token 已落库且 24h 内有效
	u, err := e.users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.EmailState.VerificationToken)
	assert.GreaterOrEqual(t, len(*u.EmailState.VerificationToken), token.MinOpaqueLen)
	require.NotNil(t, u.EmailState.VerificationTokenUntil)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *u.EmailState.VerificationTokenUntil, time.Minute)

	// 验证邮件异步发出，token 一致
	e.tasks.Close()
	assert.Equal(t, []string{"alice@example.com"}, e.mailer.verificationTo)
	assert.Equal(t, []string{*u.EmailState.VerificationToken}, e.mailer.verificationTokens)
}

func TestRegisterDuplicateIdentifier(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.register(t, "alice", "alice@example.com")

	_, err := e.auth.Register(ctx, RegisterInput{
		Name: "X", Surname: "Y", Username: "other",
		Email: "ALICE@example.com", Password: testPassword, Phone: "1",
	})
	assert.Equal(t, apperr.KindDuplicateIdentifier, apperr.KindOf(err))

	_, err = e.auth.Register(ctx, RegisterInput{
		Name: "X", Surname: "Y", Username: "Alice",
		Email: "new@example.com", Password: testPassword, Phone: "1",
	})
	assert.Equal(t, apperr.KindDuplicateIdentifier, apperr.KindOf(err))
}

func TestRegisterWeakPassword(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.auth.Register(context.Background(), RegisterInput{
		Name: "X", Surname: "Y", Username: "weak",
		Email: "weak@example.com", Password: "short", Phone: "1",
	})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestRegisterUploadsLocalPicture(t *testing.T) {
	e := newTestEnv(t)
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Name: "X", Surname: "Y", Username: "pic",
		Email: "pic@example.com", Password: testPassword, Phone: "1",
		ProfilePicture: "./uploads/avatar.png",
	})
	require.NoError(t, err)
	// 上传后库里只存裸文件名
	assert.True(t, len(res.User.ProfilePicture) > 0)
	assert.NotContains(t, res.User.ProfilePicture, "/")
	assert.Contains(t, res.User.ProfilePicture, ".png")
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.register(t, "alice", "alice@example.com")

	_, err := e.auth.Login(ctx, "alice@example.com", testPassword)
	assert.Equal(t, apperr.KindEmailNotVerified, apperr.KindOf(err))
}

func TestLoginInvalidCredentials(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.registerVerified(t, "alice", "alice@example.com")

	// 密码不对与查无此人返回同一种错误
	_, err := e.auth.Login(ctx, "alice@example.com", "Wr0ngPassword")
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))

	_, err = e.auth.Login(ctx, "nobody@example.com", testPassword)
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
}

func TestLoginSuccessWithEmailOrUsername(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	view := e.registerVerified(t, "alice", "alice@example.com")

	for _, identifier := range []string{"alice@example.com", "alice", "ALICE"} {
		res, err := e.auth.Login(ctx, identifier, testPassword)
		require.NoError(t, err, identifier)
		assert.Equal(t, view.ID, res.User.ID)
		assert.Equal(t, "alice", res.User.Username)
		assert.Equal(t, domain.RoleUser, res.User.Role)
		assert.True(t, res.ExpiresAt.After(time.Now()))

		claims, err := e.tokens.VerifySession(res.Token)
		require.NoError(t, err)
		assert.Equal(t, view.ID, claims.Subject)
		assert.Equal(t, domain.RoleUser, claims.Role)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	view := e.registerVerified(t, "alice", "alice@example.com")

	require.NoError(t, e.db.Model(&domain.User{}).
		Where("id = ?", view.ID).Update("status", false).Error)

	_, err := e.auth.Login(ctx, "alice", testPassword)
	assert.Equal(t, apperr.KindAccountDisabled, apperr.KindOf(err))
}

func TestVerifyEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.register(t, "alice", "alice@example.com")
	tok := e.verificationToken(t, "alice@example.com")

	res, err := e.auth.VerifyEmail(ctx, tok)
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, "alice@example.com", res.Email)

	// 验证即激活，token 清空不可复用
	u, err := e.users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, u.Status)
	assert.True(t, u.EmailState.EmailVerified)
	assert.Nil(t, u.EmailState.VerificationToken)

	_, err = e.auth.VerifyEmail(ctx, tok)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestVerifyEmailBadTokens(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	// 长度不够直接拒绝
	_, err := e.auth.VerifyEmail(ctx, "tiny")
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))

	// 形状合法但不存在
	unknown, err2 := token.NewOpaque()
	require.NoError(t, err2)
	_, err = e.auth.VerifyEmail(ctx, unknown)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.register(t, "alice", "alice@example.com")
	tok := e.verificationToken(t, "alice@example.com")

	// 过期 token 和不存在的 token 表现一致
	require.NoError(t, e.db.Model(&domain.UserEmail{}).
		Where("verification_token = ?", tok).
		Update("verification_token_until", time.Now().Add(-time.Hour)).Error)

	_, err := e.auth.VerifyEmail(ctx, tok)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestResendVerification(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	// 查无此人是软失败，不抛错
	res := e.auth.ResendVerification(ctx, "nobody@example.com")
	assert.False(t, res.Success)

	e.register(t, "alice", "alice@example.com")
	first := e.verificationToken(t, "alice@example.com")

	res = e.auth.ResendVerification(ctx, "alice@example.com")
	assert.True(t, res.Success)
	assert.True(t, res.Sent)

	// 重发轮换 token，旧的作废
	second := e.verificationToken(t, "alice@example.com")
	assert.NotEqual(t, first, second)
	_, err := e.auth.VerifyEmail(ctx, first)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// 已验证后再重发也是软失败
	_, err = e.auth.VerifyEmail(ctx, second)
	require.NoError(t, err)
	res = e.auth.ResendVerification(ctx, "alice@example.com")
	assert.False(t, res.Success)
}

func TestForgotPasswordAntiEnumeration(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.registerVerified(t, "alice", "alice@example.com")

	known := e.auth.ForgotPassword(ctx, "alice@example.com")
	unknown := e.auth.ForgotPassword(ctx, "nobody@example.com")

	// 邮箱存在与否响应形状完全一致
	assert.True(t, known.Success)
	assert.True(t, unknown.Success)
	assert.Equal(t, known.Message, unknown.Message)

	// 但只有存在的账号真的落了 reset token
	tok := e.resetToken(t, "alice@example.com")
	assert.GreaterOrEqual(t, len(tok), token.MinOpaqueLen)
}

func TestResetPassword(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.registerVerified(t, "alice", "alice@example.com")
	e.auth.ForgotPassword(ctx, "alice@example.com")
	tok := e.resetToken(t, "alice@example.com")

	// 新密码也要过强度检查
	err := e.auth.ResetPassword(ctx, tok, "weak")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	require.NoError(t, e.auth.ResetPassword(ctx, tok, "N3wPassword"))

	_, err = e.auth.Login(ctx, "alice", "N3wPassword")
	require.NoError(t, err)
	_, err = e.auth.Login(ctx, "alice", testPassword)
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))

	// token 单次使用，重放被拒
	err = e.auth.ResetPassword(ctx, tok, "An0therPass")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// 长度不够直接拒绝
	err = e.auth.ResetPassword(ctx, "tiny", "An0therPass")
	assert.Equal(t, apperr.KindInvalidToken, apperr.KindOf(err))
}

func TestChangePassword(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	view := e.registerVerified(t, "alice", "alice@example.com")

	err := e.auth.ChangePassword(ctx, view.ID, "Wr0ngCurrent", "N3wPassword")
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))

	err = e.auth.ChangePassword(ctx, view.ID, testPassword, "weak")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	require.NoError(t, e.auth.ChangePassword(ctx, view.ID, testPassword, "N3wPassword"))
	_, err = e.auth.Login(ctx, "alice", "N3wPassword")
	require.NoError(t, err)

	err = e.auth.ChangePassword(ctx, "missing-id", testPassword, "N3wPassword")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
