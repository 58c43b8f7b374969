package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-opinions-api/internal/apperr"
	"go-opinions-api/internal/core/config"
	"go-opinions-api/internal/core/token"
	"go-opinions-api/internal/domain"
	"go-opinions-api/internal/media"
	"go-opinions-api/internal/notify"
	"go-opinions-api/pkg/password"
)

// AuthService 把口令编解码、token 签发、账号仓储和通知边界
// 串成注册/登录/验证/找回/重置等流程。
type AuthService struct {
	cfg    *config.Config
	users  domain.UserRepository
	tokens *token.Service
	mailer notify.Mailer
	media  media.Store
	tasks  *notify.Dispatcher
	log    *zap.Logger
}

func NewAuthService(
	cfg *config.Config,
	users domain.UserRepository,
	tokens *token.Service,
	mailer notify.Mailer,
	store media.Store,
	tasks *notify.Dispatcher,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg: cfg, users: users, tokens: tokens,
		mailer: mailer, media: store, tasks: tasks, log: log,
	}
}

func (s *AuthService) hashParams() password.Params {
	sec := s.cfg.Security
	return password.Params{
		TimeCost:    sec.Argon2TimeCost,
		MemoryKiB:   sec.Argon2MemoryKiB,
		Parallelism: sec.Argon2Parallelism,
		SaltLen:     sec.Argon2SaltLen,
		KeyLen:      sec.Argon2KeyLen,
	}
}

func (s *AuthService) verifyTokenTTL() time.Duration {
	return time.Duration(s.cfg.JWT.VerifyTokenTTLHour) * time.Hour
}

func (s *AuthService) resetTokenTTL() time.Duration {
	return time.Duration(s.cfg.JWT.ResetTokenTTLHour) * time.Hour
}

func (s *AuthService) checkStrength(plain string) error {
	res := password.CheckStrength(plain, s.cfg.Security.PasswordMinLength)
	if !res.Valid {
		return apperr.BadRequest(strings.Join(res.Violations, "; "))
	}
	return nil
}

type RegisterInput struct {
	Name           string
	Surname        string
	Username       string
	Email          string
	Password       string
	Phone          string
	ProfilePicture string // 本地上传路径或已有远端 URL，均可为空
}

type RegisterResult struct {
	User                      UserView `json:"user"`
	EmailVerificationRequired bool     `json:"emailVerificationRequired"`
}

// Register 建号后账号处于未激活态，验证邮箱才能登录。
// 验证邮件发送失败不影响注册结果，只记日志（可走重发恢复）。
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := s.checkStrength(in.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, in.Email, in.Username)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.DuplicateIdentifier("a user with this email or username already exists")
	}

	picture := s.normalizePicture(ctx, in.ProfilePicture)

	hash, err := password.Hash(in.Password, s.hashParams())
	if err != nil {
		return nil, apperr.Hashing(err)
	}

	u, err := s.users.Create(ctx, domain.UserDraft{
		Name:           in.Name,
		Surname:        in.Surname,
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   hash,
		Phone:          in.Phone,
		ProfilePicture: picture,
	})
	if err != nil {
		return nil, err
	}

	verificationToken, err := token.NewOpaque()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	until := time.Now().Add(s.verifyTokenTTL())
	if err := s.users.SetEmailVerificationToken(ctx, u.ID, verificationToken, until); err != nil {
		return nil, apperr.Internal(err)
	}

	email, name := u.Email, u.Name
	s.tasks.Go("send-verification-email", func(ctx context.Context) error {
		return s.mailer.SendVerificationEmail(ctx, email, name, verificationToken)
	})

	return &RegisterResult{User: NewUserView(u), EmailVerificationRequired: true}, nil
}

// normalizePicture 本地文件上远端存储，远端 URL 剥成裸文件名；
// 失败时回退默认头像并告警，注册不因图片翻车。
func (s *AuthService) normalizePicture(ctx context.Context, ref string) string {
	if ref == "" {
		return ""
	}
	if isLocalPath(ref) {
		name := "profile-" + randomHex(6) + path.Ext(ref)
		stored, err := s.media.UploadImage(ctx, ref, name)
		if err != nil {
			s.log.Warn("profile picture upload failed", zap.Error(err))
			return ""
		}
		return stored
	}
	return s.media.NormalizeRef(ref)
}

func isLocalPath(p string) bool {
	return strings.Contains(p, "uploads/") || strings.HasPrefix(p, "./")
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

type LoginUserDetail struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
	Role           string `json:"role"`
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      LoginUserDetail `json:"userDetails"`
}

// Login 查无此人和密码不对返回同一个错误，不暴露账号是否存在
func (s *AuthService) Login(ctx context.Context, emailOrUsername, plain string) (*LoginResult, error) {
	u, err := s.users.FindByIdentifier(ctx, emailOrUsername)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil || !password.Verify(u.PasswordHash, plain) {
		return nil, apperr.InvalidCredentials()
	}
	if u.EmailState == nil || !u.EmailState.EmailVerified {
		return nil, apperr.EmailNotVerified()
	}
	if !u.Status {
		return nil, apperr.AccountDisabled()
	}

	role := u.RoleName()
	tok, expiresAt, err := s.tokens.IssueSession(u.ID, role)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	detail := LoginUserDetail{ID: u.ID, Username: u.Username, Role: role}
	if u.Profile != nil {
		detail.ProfilePicture = u.Profile.ProfilePicture
	}
	return &LoginResult{Token: tok, ExpiresAt: expiresAt, User: detail}, nil
}

type VerifyEmailResult struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

func (s *AuthService) VerifyEmail(ctx context.Context, tok string) (*VerifyEmailResult, error) {
	if !token.OpaqueAcceptable(tok) {
		return nil, apperr.InvalidToken("invalid verification token")
	}
	u, err := s.users.FindByEmailVerificationToken(ctx, tok)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.NotFound("invalid or expired verification token")
	}
	if u.EmailState == nil {
		return nil, apperr.NotFound("email record not found")
	}
	if u.EmailState.EmailVerified {
		return nil, apperr.BadRequest("email has already been verified")
	}

	if err := s.users.MarkEmailVerified(ctx, u.ID); err != nil {
		return nil, apperr.Internal(err)
	}

	email, name := u.Email, u.Name
	s.tasks.Go("send-welcome-email", func(ctx context.Context) error {
		return s.mailer.SendWelcomeEmail(ctx, email, name)
	})
	return &VerifyEmailResult{Email: u.Email, Verified: true}, nil
}

// SoftResult 防枚举流程统一的响应形状：永不抛错，成败进 Success
type SoftResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Email   string `json:"email"`
	Sent    bool   `json:"sent"`
}

// ResendVerification 查无此人/已验证/发信失败都是软失败
func (s *AuthService) ResendVerification(ctx context.Context, email string) SoftResult {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("resend verification lookup failed", zap.Error(err))
		return SoftResult{Message: "internal error", Email: email}
	}
	if u == nil {
		return SoftResult{Message: "user not found", Email: email}
	}
	if u.EmailState != nil && u.EmailState.EmailVerified {
		return SoftResult{Message: "email has already been verified", Email: u.Email}
	}

	verificationToken, err := token.NewOpaque()
	if err != nil {
		s.log.Error("resend verification token generation failed", zap.Error(err))
		return SoftResult{Message: "internal error", Email: u.Email}
	}
	until := time.Now().Add(s.verifyTokenTTL())
	if err := s.users.SetEmailVerificationToken(ctx, u.ID, verificationToken, until); err != nil {
		s.log.Error("resend verification token persist failed", zap.Error(err))
		return SoftResult{Message: "internal error", Email: u.Email}
	}

	// 这里同步发：用户就等这封邮件，失败要能提示稍后重试
	if err := s.mailer.SendVerificationEmail(ctx, u.Email, u.Name, verificationToken); err != nil {
		s.log.Warn("resend verification send failed", zap.String("email", u.Email), zap.Error(err))
		return SoftResult{Message: "could not send the verification email, please try again later", Email: u.Email}
	}
	return SoftResult{Success: true, Message: "verification email sent", Email: u.Email, Sent: true}
}

// ForgotPassword 无论邮箱是否存在、内部是否出错，一律返回同一个
// 成功形状的响应；所有内部错误就地吞掉并记日志。
func (s *AuthService) ForgotPassword(ctx context.Context, email string) SoftResult {
	ok := SoftResult{
		Success: true,
		Message: "if the email exists, a recovery link has been sent",
		Email:   email,
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("forgot password lookup failed", zap.Error(err))
		return ok
	}
	if u == nil {
		return ok
	}

	resetToken, err := token.NewOpaque()
	if err != nil {
		s.log.Error("forgot password token generation failed", zap.Error(err))
		return ok
	}
	until := time.Now().Add(s.resetTokenTTL())
	if err := s.users.SetPasswordResetToken(ctx, u.ID, resetToken, until); err != nil {
		s.log.Error("forgot password token persist failed", zap.Error(err))
		return ok
	}

	userEmail, name := u.Email, u.Name
	s.tasks.Go("send-password-reset-email", func(ctx context.Context) error {
		return s.mailer.SendPasswordResetEmail(ctx, userEmail, name, resetToken)
	})
	return ok
}

// ResetPassword 要求仓储里的 reset token 仍非空：上一次重置已清掉
// token 的情况下拒绝重放。
func (s *AuthService) ResetPassword(ctx context.Context, tok, newPassword string) error {
	if !token.OpaqueAcceptable(tok) {
		return apperr.InvalidToken("invalid reset token")
	}
	u, err := s.users.FindByPasswordResetToken(ctx, tok)
	if err != nil {
		return apperr.Internal(err)
	}
	if u == nil {
		return apperr.NotFound("invalid or expired reset token")
	}
	if u.ResetState == nil || u.ResetState.ResetToken == nil {
		return apperr.InvalidToken("reset token invalid or already used")
	}
	if err := s.checkStrength(newPassword); err != nil {
		return err
	}

	hash, err := password.Hash(newPassword, s.hashParams())
	if err != nil {
		return apperr.Hashing(err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return apperr.Internal(err)
	}

	email, name := u.Email, u.Name
	s.tasks.Go("send-password-changed-email", func(ctx context.Context) error {
		return s.mailer.SendPasswordChangedEmail(ctx, email, name)
	})
	return nil
}

// ChangePassword 已登录改密，先核对当前密码
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	if u == nil {
		return apperr.NotFound("user not found")
	}
	if !password.Verify(u.PasswordHash, currentPassword) {
		return apperr.InvalidCredentials()
	}
	if err := s.checkStrength(newPassword); err != nil {
		return err
	}

	hash, err := password.Hash(newPassword, s.hashParams())
	if err != nil {
		return apperr.Hashing(err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
