// Package mailer 通过 SMTP 发送邀请邮件。
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/aminemahd13/linksharing/config"
)

// Invite 一封邀请邮件的内容
type Invite struct {
	To           string
	Name         string
	CampaignName string
	URL          string
}

// Dialer 抽象 gomail.Dialer，便于测试替换
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP 邀请邮件发送器
// 批量发送时按 send_rate 节流，避免触发 SMTP 服务商限额
type SMTP struct {
	dialer  Dialer
	from    string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewSMTP 根据配置创建发送器
func NewSMTP(cfg *config.MailConfig, logger *zap.Logger) *SMTP {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	return NewSMTPWithDialer(d, cfg.From, cfg.SendRate, cfg.SendBurst, logger)
}

// NewSMTPWithDialer 使用自定义 Dialer 创建发送器
func NewSMTPWithDialer(d Dialer, from string, perSecond float64, burst int, logger *zap.Logger) *SMTP {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &SMTP{
		dialer:  d,
		from:    from,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// SendInvite 发送邀请邮件，ctx 取消时放弃等待节流
func (s *SMTP) SendInvite(ctx context.Context, inv Invite) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("等待发送配额失败: %w", err)
	}

	body, err := renderInvite(inv)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", inv.To)
	m.SetHeader("Subject", fmt.Sprintf("You're invited to %s on WhatsApp", inv.CampaignName))
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("邀请邮件发送失败", zap.String("to", inv.To), zap.Error(err))
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	s.logger.Info("邀请邮件已发送", zap.String("to", inv.To), zap.String("campaign", inv.CampaignName))
	return nil
}

var inviteTemplate = template.Must(template.New("invite").Parse(`<div style="font-family: Arial, sans-serif; color: #0f172a; line-height: 1.5;">
  <p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
  <p>You're invited to join the <strong>{{.CampaignName}}</strong> WhatsApp group. This link is just for you and works once.</p>
  <p style="margin: 16px 0; text-align: center;">
    <a href="{{.URL}}" style="background: #16a34a; color: #fff; padding: 12px 18px; border-radius: 8px; text-decoration: none;">Open your invite</a>
  </p>
  <ul>
    <li>Use this from the device where WhatsApp is installed.</li>
    <li>The link is tied to {{.To}} and expires after the first successful use.</li>
  </ul>
  <p>If the button above does not work, copy and paste this link in your browser:<br /><span style="word-break: break-all;">{{.URL}}</span></p>
  <p style="color: #475569;">Didn't expect this? You can ignore this email and the invite will stay inactive.</p>
</div>`))

func renderInvite(inv Invite) (string, error) {
	var buf bytes.Buffer
	if err := inviteTemplate.Execute(&buf, inv); err != nil {
		return "", fmt.Errorf("渲染邀请邮件失败: %w", err)
	}
	return buf.String(), nil
}
