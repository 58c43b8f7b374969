package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// 自描述哈希串：$argon2id$v=19$m=102400,t=2,p=8$<salt>$<digest>
// 除本机格式外还接受一种外部方言：同样 6 段，但参数键顺序/空白不固定。

const legacyPrefix = "$argon2id$v=19$"

var ErrHashing = errors.New("password hashing failed")

type Params struct {
	TimeCost    uint32
	MemoryKiB   uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

var DefaultParams = Params{
	TimeCost:    2,
	MemoryKiB:   102400,
	Parallelism: 8,
	SaltLen:     16,
	KeyLen:      32,
}

func Hash(plain string, p Params) (string, error) {
	if p.SaltLen == 0 || p.KeyLen == 0 {
		return "", ErrHashing
	}
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", ErrHashing
	}
	key := argon2.IDKey([]byte(plain), salt, p.TimeCost, p.MemoryKiB, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.TimeCost, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify 对任何畸形输入都返回 false，不抛错：调用方无法区分
// “哈希坏了”和“密码不对”。先按本机格式严格解析，失败再走外部方言。
func Verify(hashed, plain string) bool {
	if salt, digest, p, ok := parseNative(hashed); ok {
		if compare(plain, salt, digest, p) {
			return true
		}
	}
	if salt, digest, p, ok := parseLegacy(hashed); ok {
		return compare(plain, salt, digest, p)
	}
	return false
}

func compare(plain string, salt, digest []byte, p Params) bool {
	computed := argon2.IDKey([]byte(plain), salt, p.TimeCost, p.MemoryKiB, p.Parallelism, uint32(len(digest)))
	return subtle.ConstantTimeCompare(computed, digest) == 1
}

// parseNative 严格匹配 Hash 的输出（m,t,p 顺序固定、无空白）
func parseNative(s string) (salt, digest []byte, p Params, ok bool) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, p, false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, p, false
	}
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.TimeCost, &p.Parallelism); err != nil || n != 3 {
		return nil, nil, p, false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, p, false
	}
	digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return nil, nil, p, false
	}
	return salt, digest, p, true
}

// parseLegacy 外部哈希方言：参数键任意顺序、允许空白、base64 可带 padding
func parseLegacy(s string) (salt, digest []byte, p Params, ok bool) {
	if !strings.HasPrefix(s, legacyPrefix) {
		return nil, nil, p, false
	}
	parts := strings.Split(s, "$")
	if len(parts) != 6 {
		return nil, nil, p, false
	}

	// 缺省值与本机成本一致
	p = DefaultParams
	for _, kv := range strings.Split(parts[3], ",") {
		kv = strings.TrimSpace(kv)
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, nil, p, false
		}
		v, err := strconv.ParseUint(strings.TrimSpace(kv[eq+1:]), 10, 32)
		if err != nil {
			return nil, nil, p, false
		}
		switch strings.TrimSpace(kv[:eq]) {
		case "m":
			p.MemoryKiB = uint32(v)
		case "t":
			p.TimeCost = uint32(v)
		case "p":
			p.Parallelism = uint8(v)
		default:
			return nil, nil, p, false
		}
	}

	var err error
	if salt, err = decodeB64(parts[4]); err != nil {
		return nil, nil, p, false
	}
	if digest, err = decodeB64(parts[5]); err != nil || len(digest) == 0 {
		return nil, nil, p, false
	}
	return salt, digest, p, true
}

func decodeB64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// StrengthResult 汇总全部违反的规则，而不是只报第一条
type StrengthResult struct {
	Valid      bool
	Violations []string
}

func CheckStrength(plain string, minLength int) StrengthResult {
	if minLength <= 0 {
		minLength = 8
	}
	var violations []string
	if len(plain) < minLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters long", minLength))
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range plain {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain at least one digit")
	}
	return StrengthResult{Valid: len(violations) == 0, Violations: violations}
}
