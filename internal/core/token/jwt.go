package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 用途声明。带 purpose 的 token 不能当会话 token 用，反之亦然。
const (
	PurposeEmailVerify   = "EMAIL_VERIFY"
	PurposePasswordReset = "PASSWORD_RESET"
)

const seedAdminRole = "ADMIN_ROLE"

// seed admin 稳定 token 的固定字段，保证跨重启字节一致
const (
	seedStableJTI = "seed-admin-static-jti"
	seedStableIAT = 1735689600 // 2025-01-01T00:00:00Z
	seedStableEXP = 4102444800 // 2100-01-01T00:00:00Z
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type Claims struct {
	Role    string `json:"role,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Seed 配置化的引导管理员身份。Stable 开启后该账号的会话 token 是
// 确定性构造；FixedToken 非空时直接返回常量并在校验侧旁路签名检查。
type Seed struct {
	Stable     bool
	FixedToken string
	AdminID    string
}

type Service struct {
	Secret     []byte
	Issuer     string
	Audience   string
	SessionTTL time.Duration
	Seed       Seed
	// prod 下置 false，FixedToken 旁路只在非生产配置生效
	AllowFixedBypass bool
}

func (s *Service) isSeedAdmin(accountID, role string) bool {
	return s.Seed.Stable && s.Seed.AdminID != "" && accountID == s.Seed.AdminID && role == seedAdminRole
}

// IssueSession 签发会话 token，返回绝对过期时间。
// seed admin + stable 模式是唯一性规则的例外：重复调用返回同一 token。
func (s *Service) IssueSession(accountID, role string) (string, time.Time, error) {
	if s.isSeedAdmin(accountID, role) {
		exp := time.Unix(seedStableEXP, 0)
		if s.Seed.FixedToken != "" {
			return s.Seed.FixedToken, exp, nil
		}
		tok, err := s.sign(Claims{
			Role: role,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   accountID,
				Issuer:    s.Issuer,
				Audience:  jwt.ClaimStrings{s.Audience},
				ID:        seedStableJTI,
				IssuedAt:  jwt.NewNumericDate(time.Unix(seedStableIAT, 0)),
				ExpiresAt: jwt.NewNumericDate(exp),
			},
		})
		return tok, exp, err
	}

	now := time.Now()
	exp := now.Add(s.SessionTTL)
	tok, err := s.sign(Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	return tok, exp, err
}

// IssuePurpose 签发 EMAIL_VERIFY / PASSWORD_RESET 用途 token
func (s *Service) IssuePurpose(accountID, purpose string, ttl time.Duration) (string, error) {
	if purpose != PurposeEmailVerify && purpose != PurposePasswordReset {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}
	now := time.Now()
	return s.sign(Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}

func (s *Service) sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.Secret)
}

// Verify 先比对固定 seed-admin token（配置侧旁路，非用户输入可控的开关），
// 否则走完整的签名/issuer/audience/过期校验。
func (s *Service) Verify(tokenStr string) (*Claims, error) {
	if s.AllowFixedBypass && s.Seed.FixedToken != "" && tokenStr == s.Seed.FixedToken {
		return &Claims{
			Role:             seedAdminRole,
			RegisteredClaims: jwt.RegisteredClaims{Subject: s.Seed.AdminID},
		}, nil
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", t.Header["alg"])
		}
		return s.Secret, nil
	}, jwt.WithIssuer(s.Issuer), jwt.WithAudience(s.Audience), jwt.WithLeeway(60*time.Second))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}

// VerifySession 拒绝带用途声明的 token 冒充会话 token
func (s *Service) VerifySession(tokenStr string) (*Claims, error) {
	c, err := s.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if c.Purpose != "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
