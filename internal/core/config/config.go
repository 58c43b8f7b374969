package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name        string
	Env         string // dev / staging / prod
	HTTP        HTTP
	Admin       AdminHTTP
	MetricsPort int // 0 关闭 /metrics 端口
}

type Log struct {
	Level string
	JSON  bool
}

type JWT struct {
	Secret             string
	Issuer             string
	Audience           string
	AccessTokenTTLMin  int
	VerifyTokenTTLHour int // 邮箱验证 token 有效期
	ResetTokenTTLHour  int // 密码重置 token 有效期
}

// Security 口令哈希成本与强度规则
type Security struct {
	Argon2TimeCost    uint32
	Argon2MemoryKiB   uint32
	Argon2Parallelism uint8
	Argon2SaltLen     uint32
	Argon2KeyLen      uint32
	PasswordMinLength int
}

// Seed 引导管理员。StableToken 开启后 seed admin 的会话 token 跨重启字节一致；
// FixedToken 非空时直接用该常量（运维/测试后门，prod 下校验侧拒绝走旁路）。
type Seed struct {
	Enabled     bool
	StableToken bool
	FixedToken  string
	AdminID     string
	Name        string
	Surname     string
	Username    string
	Email       string
	Password    string
	Phone       string
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	LinkBase string // 邮件里验证/重置链接的前端地址
}

// Media 远端图片存储（S3 兼容）
type Media struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Folder        string
	BaseURL       string
	DefaultAvatar string
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App      App
	Log      Log
	JWT      JWT
	Security Security
	Seed     Seed
	SMTP     SMTP `mapstructure:"smtp"`
	Media    Media
	DB       DB
	Redis    Redis `mapstructure:"redis"`
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("jwt.accesstokenttlmin", 30)
	v.SetDefault("jwt.verifytokenttlhour", 24)
	v.SetDefault("jwt.resettokenttlhour", 1)

	// 与存量哈希保持一致；改动会让旧口令无法校验
	v.SetDefault("security.argon2timecost", 2)
	v.SetDefault("security.argon2memorykib", 102400)
	v.SetDefault("security.argon2parallelism", 8)
	v.SetDefault("security.argon2saltlen", 16)
	v.SetDefault("security.argon2keylen", 32)
	v.SetDefault("security.passwordminlength", 8)

	v.SetDefault("app.metricsport", 9091)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("media.defaultavatar", "default-avatar.png")
}

// IsProd prod 环境下禁用 seed-admin 固定 token 的校验旁路
func (c *Config) IsProd() bool { return c.App.Env == "prod" }
