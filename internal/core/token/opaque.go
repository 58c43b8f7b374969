package token

import (
	"crypto/rand"
	"encoding/base64"
)

// MinOpaqueLen 短于 40 的字符串直接拒绝，省掉一次必然落空的查询
const MinOpaqueLen = 40

// NewOpaque 生成单次使用的查找 token：32 字节随机数，
// URL-safe base64 无 padding（43 字符）。
func NewOpaque() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func OpaqueAcceptable(s string) bool { return len(s) >= MinOpaqueLen }
