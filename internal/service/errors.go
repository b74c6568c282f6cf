package service

import (
	"errors"
	"fmt"

	"github.com/aminemahd13/linksharing/internal/model"
)

// ── 兑换结果（均为单次兑换的终态，调用方不应重试） ──

var (
	ErrRateLimited  = errors.New("请求过于频繁")
	ErrLinkNotFound = errors.New("链接不存在")
	// ErrRaceLost 并发兑换中条件更新未命中：链接已被其他请求消费
	ErrRaceLost = errors.New("链接已被使用")
)

// ErrStorageUnavailable 存储不可用（暂时性错误，由调用方决定是否重试）
var ErrStorageUnavailable = errors.New("存储暂不可用")

// ── 管理端业务错误 ──

var (
	ErrInvalidTransition      = model.ErrInvalidTransition
	ErrConcurrentModification = errors.New("链接已被其他操作修改，请刷新后重试")
	ErrTokenUnavailable       = errors.New("明文令牌不可用，请先重新生成链接")
	ErrCampaignNotFound       = errors.New("活动不存在")
	ErrRecipientNotFound      = errors.New("收件人不存在")
)

// NotActiveError 链接当前状态不是 ACTIVE
type NotActiveError struct {
	Status model.LinkStatus
}

func (e *NotActiveError) Error() string {
	return fmt.Sprintf("链接不可用: %s", e.Status)
}

// storageError 包装底层存储错误，保留 ErrStorageUnavailable 与原始错误两条链
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
