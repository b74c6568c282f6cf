// Package token 邀请链接令牌的生成与摘要。
//
// 令牌为 crypto/rand 随机字节的 Base64 RawURL 编码（无填充）；
// 数据库只依赖摘要查找，摘要 = hex(SHA-256(token ‖ pepper))。
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// DefaultLength 默认随机字节数（256 bit 熵）
const DefaultLength = 32

// Generate 生成默认长度的令牌
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength 生成指定字节数的令牌
// 仅在系统安全随机源不可用时返回错误
func GenerateWithLength(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("令牌长度必须大于 0: %d", length)
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("读取安全随机源失败: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
