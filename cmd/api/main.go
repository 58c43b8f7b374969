package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-opinions-api/internal/core/cache"
	"go-opinions-api/internal/core/config"
	"go-opinions-api/internal/core/database"
	"go-opinions-api/internal/core/logger"
	"go-opinions-api/internal/core/server"
	"go-opinions-api/internal/core/token"
	"go-opinions-api/internal/domain"
	"go-opinions-api/internal/media"
	"go-opinions-api/internal/notify"
	"go-opinions-api/internal/repo"
	"go-opinions-api/internal/service"
	"go-opinions-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	// 自动迁移
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.User{}, &domain.UserProfile{}, &domain.UserEmail{},
			&domain.UserPasswordReset{}, &domain.Role{}, &domain.UserRole{},
			&domain.Post{}, &domain.Comment{},
		); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	ctx := context.Background()

	// 远端图片存储
	store, err := media.NewS3Store(ctx, media.S3Options{
		Endpoint:      cfg.Media.Endpoint,
		Region:        cfg.Media.Region,
		AccessKey:     cfg.Media.AccessKey,
		SecretKey:     cfg.Media.SecretKey,
		Bucket:        cfg.Media.Bucket,
		Folder:        cfg.Media.Folder,
		BaseURL:       cfg.Media.BaseURL,
		DefaultAvatar: cfg.Media.DefaultAvatar,
	})
	if err != nil {
		log.Fatal("media store init failed", zap.Error(err))
	}

	// 角色行 + 引导管理员
	seeder := service.NewSeeder(db, cfg, store, log)
	if err := seeder.EnsureRoles(ctx); err != nil {
		log.Fatal("ensure roles failed", zap.Error(err))
	}
	if err := seeder.SeedAdmin(ctx); err != nil {
		log.Fatal("seed admin failed", zap.Error(err))
	}

	// JWT
	tokens := &token.Service{
		Secret:     []byte(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
		SessionTTL: time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		Seed: token.Seed{
			Stable:     cfg.Seed.StableToken,
			FixedToken: cfg.Seed.FixedToken,
			AdminID:    cfg.Seed.AdminID,
		},
		AllowFixedBypass: !cfg.IsProd(),
	}

	// redis 可选，没配就不走缓存
	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	mailer := notify.NewSMTPMailer(notify.SMTPOptions{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		LinkBase: cfg.SMTP.LinkBase,
	})
	tasks := notify.NewDispatcher(log, 64)
	defer tasks.Close()

	users := repo.NewUserRepo(db, cfg.Media.DefaultAvatar, log)
	roles := repo.NewRoleRepo(db)
	posts := repo.NewPostRepo(db)
	comments := repo.NewCommentRepo(db)

	deps := router.Deps{
		Tokens:   tokens,
		Auth:     service.NewAuthService(cfg, users, tokens, mailer, store, tasks, log),
		Profiles: service.NewProfileService(users, store, c, log),
		Posts:    service.NewPostService(posts),
		Comments: service.NewCommentService(comments, posts),
		Roles:    service.NewRoleService(roles, users),
		Users:    users,
	}

	r := router.NewAPIEngine(log, deps)

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// /metrics 单独端口
	if cfg.App.MetricsPort > 0 {
		maddr := server.Addr(cfg.App.HTTP.Host, cfg.App.MetricsPort)
		go func() {
			if err := server.NewMetricsRouter(log).Run(maddr); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api start FAILED", zap.Error(err))
		}
	}()
	log.Info("api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
