package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/aminemahd13/linksharing/pkg/mailer"
)

// Notifier 邀请通知发送（邮件等外部协作方）
type Notifier interface {
	SendInvite(ctx context.Context, inv mailer.Invite) error
}

// ErrNotifierDisabled 未配置任何外发渠道
var ErrNotifierDisabled = errors.New("邮件发送未配置")

// NopNotifier 未配置 SMTP 时使用：不外发令牌，始终返回 ErrNotifierDisabled
type NopNotifier struct {
	Logger *zap.Logger
}

// SendInvite 实现 Notifier
func (n NopNotifier) SendInvite(_ context.Context, inv mailer.Invite) error {
	n.Logger.Warn("SMTP 未配置，跳过邀请邮件", zap.String("to", inv.To), zap.String("campaign", inv.CampaignName))
	return ErrNotifierDisabled
}
