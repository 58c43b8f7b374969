package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"go-opinions-api/internal/core/config"
	"go-opinions-api/internal/core/token"
	"go-opinions-api/internal/domain"
	"go-opinions-api/internal/notify"
	"go-opinions-api/internal/repo"
)

// fakeMailer 记录每次发送，Send* 永不失败
type fakeMailer struct {
	mu                 sync.Mutex
	verificationTokens []string
	verificationTo     []string
	resetTokens        []string
	welcomeCount       int
	changedCount       int
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, to, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verificationTo = append(m.verificationTo, to)
	m.verificationTokens = append(m.verificationTokens, token)
	return nil
}

func (m *fakeMailer) SendWelcomeEmail(_ context.Context, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomeCount++
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, _, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

func (m *fakeMailer) SendPasswordChangedEmail(_ context.Context, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changedCount++
	return nil
}

// fakeStore 不碰网络，上传原样返回目标文件名
type fakeStore struct{}

func (fakeStore) UploadImage(_ context.Context, _ string, desiredName string) (string, error) {
	return desiredName, nil
}

func (fakeStore) DefaultAvatarPath() string { return "default-avatar.png" }

func (fakeStore) NormalizeRef(ref string) string {
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	users    *repo.UserRepo
	roles    *repo.RoleRepo
	tokens   *token.Service
	mailer   *fakeMailer
	tasks    *notify.Dispatcher
	auth     *AuthService
	roleSvc  *RoleService
	profiles *ProfileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: 下每个连接是独立库，必须锁成单连接
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.UserProfile{}, &domain.UserEmail{},
		&domain.UserPasswordReset{}, &domain.Role{}, &domain.UserRole{},
		&domain.Post{}, &domain.Comment{},
	))

	cfg := &config.Config{}
	cfg.Security = config.Security{
		Argon2TimeCost:    1,
		Argon2MemoryKiB:   8192,
		Argon2Parallelism: 2,
		Argon2SaltLen:     16,
		Argon2KeyLen:      32,
		PasswordMinLength: 8,
	}
	cfg.JWT.AccessTokenTTLMin = 30
	cfg.JWT.VerifyTokenTTLHour = 24
	cfg.JWT.ResetTokenTTLHour = 1
	cfg.Media.DefaultAvatar = "default-avatar.png"

	log := zap.NewNop()
	users := repo.NewUserRepo(db, cfg.Media.DefaultAvatar, log)
	roles := repo.NewRoleRepo(db)
	require.NoError(t, roles.EnsureRoles(context.Background(), domain.RoleAdmin, domain.RoleUser))

	tokens := &token.Service{
		Secret:     []byte("test-secret"),
		Issuer:     "opinions-test",
		Audience:   "opinions-web",
		SessionTTL: 30 * time.Minute,
	}

	mailer := &fakeMailer{}
	tasks := notify.NewDispatcher(log, 16)
	t.Cleanup(tasks.Close)

	store := fakeStore{}
	return &testEnv{
		db:       db,
		cfg:      cfg,
		users:    users,
		roles:    roles,
		tokens:   tokens,
		mailer:   mailer,
		tasks:    tasks,
		auth:     NewAuthService(cfg, users, tokens, mailer, store, tasks, log),
		roleSvc:  NewRoleService(roles, users),
		profiles: NewProfileService(users, store, nil, log),
	}
}

const testPassword = "Sup3rSecret"

func (e *testEnv) register(t *testing.T, username, email string) *RegisterResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Name:     "Test",
		Surname:  "User",
		Username: username,
		Email:    email,
		Password: testPassword,
		Phone:    "123456789",
	})
	require.NoError(t, err)
	return res
}

// verificationToken 从仓储里取当前的邮箱验证 token
func (e *testEnv) verificationToken(t *testing.T, email string) string {
	t.Helper()
	u, err := e.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NotNil(t, u.EmailState)
	require.NotNil(t, u.EmailState.VerificationToken)
	return *u.EmailState.VerificationToken
}

func (e *testEnv) resetToken(t *testing.T, email string) string {
	t.Helper()
	u, err := e.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NotNil(t, u.ResetState)
	require.NotNil(t, u.ResetState.ResetToken)
	return *u.ResetState.ResetToken
}

// registerVerified 注册并完成邮箱验证，返回已激活的账号视图
func (e *testEnv) registerVerified(t *testing.T, username, email string) UserView {
	t.Helper()
	e.register(t, username, email)
	_, err := e.auth.VerifyEmail(context.Background(), e.verificationToken(t, email))
	require.NoError(t, err)
	u, err := e.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return NewUserView(u)
}
