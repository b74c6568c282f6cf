package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrMissingPepper pepper 未配置（启动期致命错误）
var ErrMissingPepper = errors.New("token pepper 未配置")

// Hasher 基于进程级 pepper 的令牌摘要器
type Hasher struct {
	pepper string
}

// NewHasher 创建摘要器，pepper 为空时返回 ErrMissingPepper
func NewHasher(pepper string) (*Hasher, error) {
	if pepper == "" {
		return nil, ErrMissingPepper
	}
	return &Hasher{pepper: pepper}, nil
}

// Digest 计算令牌摘要：hex(SHA-256(token ‖ pepper))
func (h *Hasher) Digest(token string) string {
	sum := sha256.Sum256([]byte(token + h.pepper))
	return hex.EncodeToString(sum[:])
}

// Verify 常量时间比较令牌与已存储摘要
func (h *Hasher) Verify(token, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Digest(token)), []byte(digest)) == 1
}
