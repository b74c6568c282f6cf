package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aminemahd13/linksharing/config"
	"github.com/aminemahd13/linksharing/internal/dto"
	"github.com/aminemahd13/linksharing/internal/model"
	"github.com/aminemahd13/linksharing/internal/repository"
	pkgerrors "github.com/aminemahd13/linksharing/pkg/errors"
	"github.com/aminemahd13/linksharing/pkg/mailer"
	"github.com/aminemahd13/linksharing/pkg/metrics"
	"github.com/aminemahd13/linksharing/pkg/token"
)

// LinkService 邀请链接管理接口（签发、轮换、停用、过期、删除）
type LinkService interface {
	Issue(ctx context.Context, req *dto.IssueLinkRequest, adminID string) (*dto.IssuedLinkResponse, error)
	SendCampaign(ctx context.Context, campaignID string, req *dto.SendCampaignRequest, adminID string) (*dto.SendCampaignResponse, error)
	Regenerate(ctx context.Context, id, adminID string) (*dto.IssuedLinkResponse, error)
	Resend(ctx context.Context, id, adminID string) (*dto.IssuedLinkResponse, error)
	Disable(ctx context.Context, id, adminID string) (*dto.LinkStatusResponse, error)
	Reactivate(ctx context.Context, id, adminID string) (*dto.LinkStatusResponse, error)
	Expire(ctx context.Context, id, adminID string) (*dto.LinkStatusResponse, error)
	Delete(ctx context.Context, id, adminID string) error
	CopyURL(ctx context.Context, id, adminID string) (*dto.CopyLinkResponse, error)
	Preview(ctx context.Context, token string) (*dto.PreviewResponse, error)
	List(ctx context.Context, req *dto.LinkListRequest) ([]dto.LinkResponse, int64, error)
}

type linkService struct {
	linkResolver
	server     config.ServerConfig
	byteLength int
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewLinkService 创建 LinkService 实例
func NewLinkService(
	cfg *config.Config,
	repo *repository.Repository,
	hasher *token.Hasher,
	notifier Notifier,
	logger *zap.Logger,
) LinkService {
	return &linkService{
		linkResolver: linkResolver{repo: repo, hasher: hasher},
		server:       cfg.Server,
		byteLength:   cfg.Token.ByteLength,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// ────────────────────── Issue ──────────────────────

// Issue 为 (活动, 收件人) 签发链接；已存在则轮换令牌
// 邮件送达时明文令牌只在响应中出现这一次，不落库
func (s *linkService) Issue(ctx context.Context, req *dto.IssueLinkRequest, adminID string) (*dto.IssuedLinkResponse, error) {
	campaign, err := s.getCampaign(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.repo.Recipient.GetByID(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		s.logger.Error("查询收件人失败", zap.String("id", req.RecipientID), zap.Error(err))
		return nil, err
	}

	link, raw, err := s.issueOne(ctx, campaign, recipient, adminID, model.AuditLinkIssued)
	if err != nil {
		return nil, err
	}

	resp := s.toIssuedResponse(link, raw)
	resp.Notified = s.deliver(ctx, link, campaign, recipient, raw) == nil
	return resp, nil
}

// ────────────────────── SendCampaign ──────────────────────

// SendCampaign 为活动的收件人逐一签发并发送邀请；单个收件人失败不影响其余
func (s *linkService) SendCampaign(ctx context.Context, campaignID string, req *dto.SendCampaignRequest, adminID string) (*dto.SendCampaignResponse, error) {
	campaign, err := s.getCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var recipients []model.Recipient
	if len(req.RecipientIDs) > 0 {
		recipients, err = s.repo.Recipient.ListByIDs(ctx, req.RecipientIDs)
	} else {
		recipients, err = s.repo.Recipient.ListAll(ctx)
	}
	if err != nil {
		s.logger.Error("查询收件人失败", zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, err
	}

	resp := &dto.SendCampaignResponse{Links: make([]dto.SentLink, 0, len(recipients))}
	for i := range recipients {
		// 客户端断开后不再继续发送
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := &recipients[i]
		item := dto.SentLink{RecipientID: r.RecipientID}

		link, raw, err := s.issueOne(ctx, campaign, r, adminID, "")
		if err != nil {
			item.Error = err.Error()
			resp.Failed++
			resp.Links = append(resp.Links, item)
			continue
		}
		item.LinkID = link.InviteLinkID

		if err := s.deliver(ctx, link, campaign, r, raw); err != nil {
			item.Error = err.Error()
			resp.Failed++
		} else {
			resp.Count++
		}
		resp.Links = append(resp.Links, item)
	}

	if err := writeAudit(ctx, s.repo, auditEntry{
		AdminID:    adminID,
		Action:     model.AuditInvitesSent,
		EntityType: model.AuditEntityCampaign,
		EntityID:   campaign.CampaignID,
		Meta:       map[string]interface{}{"count": resp.Count, "failed": resp.Failed},
	}); err != nil {
		s.logger.Error("写入审计日志失败", zap.String("campaign_id", campaignID), zap.Error(err))
	}

	s.logger.Info("活动邀请已发送",
		zap.String("campaign_id", campaignID),
		zap.Int("count", resp.Count),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// ────────────────────── Regenerate / Resend ──────────────────────

// Regenerate 轮换令牌并保留明文（可复制），旧令牌立即失效
func (s *linkService) Regenerate(ctx context.Context, id, adminID string) (*dto.IssuedLinkResponse, error) {
	return s.rotateAndNotify(ctx, id, adminID, true, model.AuditLinkRegenerated)
}

// Resend 轮换令牌并重新发送邮件，不保留明文
func (s *linkService) Resend(ctx context.Context, id, adminID string) (*dto.IssuedLinkResponse, error) {
	resp, err := s.rotateAndNotify(ctx, id, adminID, false, model.AuditLinkResent)
	if err != nil {
		return nil, err
	}
	resp.Token = ""
	resp.URL = ""
	return resp, nil
}

func (s *linkService) rotateAndNotify(ctx context.Context, id, adminID string, keepPlain bool, action string) (*dto.IssuedLinkResponse, error) {
	link, err := s.getLink(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err := s.rotate(ctx, s.repo, link, keepPlain, adminID, action)
	if err != nil {
		return nil, err
	}
	link.Status = model.LinkStatusActive

	resp := s.toIssuedResponse(link, raw)
	if link.Campaign != nil && link.Recipient != nil {
		resp.Notified = s.deliver(ctx, link, link.Campaign, link.Recipient, raw) == nil
	}
	return resp, nil
}

// ────────────────────── Disable / Reactivate / Expire ──────────────────────

func (s *linkService) Disable(ctx context.Context, id, adminID string) (*dto.LinkStatusResponse, error) {
	return s.transition(ctx, id, adminID, model.EventDisable, model.AuditLinkDisabled,
		func(tx *repository.Repository, link *model.InviteLink, now time.Time) error {
			return tx.InviteLink.Disable(ctx, link.InviteLinkID, link.Version, adminID, now)
		})
}

func (s *linkService) Reactivate(ctx context.Context, id, adminID string) (*dto.LinkStatusResponse, error) {
	return s.transition(ctx, id, adminID, model.EventReactivate, model.AuditLinkReactivated,
		func(tx *repository.Repository, link *model.InviteLink, _ time.Time) error {
			return tx.InviteLink.Reactivate(ctx, link.InviteLinkID, link.Version)
		})
}

// Expire 显式过期，终态；之后只能通过轮换恢复
func (s *linkService) Expire(ctx context.Context, id, adminID string) (*dto.LinkStatusResponse, error) {
	return s.transition(ctx, id, adminID, model.EventExpire, model.AuditLinkExpired,
		func(tx *repository.Repository, link *model.InviteLink, now time.Time) error {
			return tx.InviteLink.Expire(ctx, link.InviteLinkID, link.Status, link.Version, now)
		})
}

type transitionFunc func(tx *repository.Repository, link *model.InviteLink, now time.Time) error

// transition 状态迁移通用流程：校验 → 条件更新 + 审计（同一事务）
func (s *linkService) transition(ctx context.Context, id, adminID string, event model.LinkEvent, action string, apply transitionFunc) (*dto.LinkStatusResponse, error) {
	link, err := s.getLink(ctx, id)
	if err != nil {
		return nil, err
	}

	// 1. 状态机校验
	next, err := model.Transition(link.Status, event)
	if err != nil {
		return nil, err
	}

	// 2. 条件更新 + 审计
	from := link.Status
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := apply(tx, link, s.now().UTC()); err != nil {
			return err
		}
		return writeAudit(ctx, tx, auditEntry{
			AdminID:    adminID,
			Action:     action,
			EntityType: model.AuditEntityInviteLink,
			EntityID:   link.InviteLinkID,
			Meta:       map[string]interface{}{"from": string(from), "to": string(next)},
		})
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrConcurrentModification
		}
		s.logger.Error("链接状态变更失败",
			zap.String("id", id),
			zap.String("event", string(event)),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.LinkTransitionsTotal.WithLabelValues(string(event)).Inc()
	s.logger.Info("链接状态已变更",
		zap.String("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.String("admin_id", adminID),
	)
	return &dto.LinkStatusResponse{ID: link.InviteLinkID, Status: string(next)}, nil
}

// ────────────────────── Delete ──────────────────────

func (s *linkService) Delete(ctx context.Context, id, adminID string) error {
	link, err := s.getLink(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.InviteLink.Delete(ctx, id); err != nil {
			return err
		}
		return writeAudit(ctx, tx, auditEntry{
			AdminID:    adminID,
			Action:     model.AuditLinkDeleted,
			EntityType: model.AuditEntityInviteLink,
			EntityID:   id,
			Meta: map[string]interface{}{
				"campaign_id":  link.CampaignID,
				"recipient_id": link.RecipientID,
				"status":       string(link.Status),
			},
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLinkNotFound
		}
		s.logger.Error("删除链接失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("链接已删除", zap.String("id", id), zap.String("admin_id", adminID))
	return nil
}

// ────────────────────── CopyURL ──────────────────────

// CopyURL 返回可复制的邀请地址，仅在保留明文令牌时可用
func (s *linkService) CopyURL(ctx context.Context, id, adminID string) (*dto.CopyLinkResponse, error) {
	link, err := s.getLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if !link.HasPlainToken() {
		return nil, ErrTokenUnavailable
	}

	if err := writeAudit(ctx, s.repo, auditEntry{
		AdminID:    adminID,
		Action:     model.AuditLinkCopied,
		EntityType: model.AuditEntityInviteLink,
		EntityID:   id,
	}); err != nil {
		s.logger.Error("写入审计日志失败", zap.String("id", id), zap.Error(err))
	}

	return &dto.CopyLinkResponse{URL: s.server.InviteURL(*link.TokenPlain)}, nil
}

// ────────────────────── Preview ──────────────────────

// Preview 落地页查询，不改变链接状态
func (s *linkService) Preview(ctx context.Context, raw string) (*dto.PreviewResponse, error) {
	link, err := s.resolve(ctx, raw)
	if err != nil {
		if !errors.Is(err, ErrLinkNotFound) {
			s.logger.Error("预览查询失败", zap.Error(err))
		}
		return nil, err
	}
	// 已使用与不存在对外不可区分
	if link.Status == model.LinkStatusUsed {
		return nil, ErrLinkNotFound
	}

	resp := &dto.PreviewResponse{Status: string(link.Status)}
	if link.Campaign != nil {
		resp.CampaignName = link.Campaign.Name
	}
	return resp, nil
}

// ────────────────────── List ──────────────────────

func (s *linkService) List(ctx context.Context, req *dto.LinkListRequest) ([]dto.LinkResponse, int64, error) {
	filters := &repository.InviteLinkListFilters{
		CampaignID: req.CampaignID,
		Status:     model.LinkStatus(req.Status),
		Keyword:    req.Keyword,
	}

	links, total, err := s.repo.InviteLink.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询链接列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.LinkResponse, 0, len(links))
	for i := range links {
		result = append(result, toLinkResponse(&links[i]))
	}
	return result, total, nil
}

// ── 内部方法 ──

func (s *linkService) getLink(ctx context.Context, id string) (*model.InviteLink, error) {
	link, err := s.repo.InviteLink.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		s.logger.Error("查询链接失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return link, nil
}

func (s *linkService) getCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	campaign, err := s.repo.Campaign.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		s.logger.Error("查询活动失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return campaign, nil
}

// issueOne 新建链接，或对已存在的 (活动, 收件人) 链接轮换令牌
// action 为空时不写单条审计（批量发送统一记录 INVITES_SENT）
func (s *linkService) issueOne(ctx context.Context, campaign *model.Campaign, recipient *model.Recipient, adminID, action string) (*model.InviteLink, string, error) {
	existing, err := s.repo.InviteLink.GetByPair(ctx, campaign.CampaignID, recipient.RecipientID)
	switch {
	case err == nil:
		raw, err := s.rotate(ctx, s.repo, existing, false, adminID, action)
		if err != nil {
			return nil, "", err
		}
		existing.Status = model.LinkStatusActive
		return existing, raw, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询链接失败", zap.String("campaign_id", campaign.CampaignID), zap.Error(err))
		return nil, "", err
	}

	raw, err := token.GenerateWithLength(s.byteLength)
	if err != nil {
		s.logger.Error("生成令牌失败", zap.Error(err))
		return nil, "", err
	}

	link := &model.InviteLink{
		TokenDigest: s.hasher.Digest(raw),
		Status:      model.LinkStatusActive,
		CampaignID:  campaign.CampaignID,
		RecipientID: recipient.RecipientID,
	}
	link.Version = 1

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.InviteLink.Create(ctx, link); err != nil {
			return err
		}
		if action == "" {
			return nil
		}
		return writeAudit(ctx, tx, auditEntry{
			AdminID:    adminID,
			Action:     action,
			EntityType: model.AuditEntityInviteLink,
			EntityID:   link.InviteLinkID,
		})
	})
	if err != nil {
		s.logger.Error("创建链接失败", zap.String("recipient_id", recipient.RecipientID), zap.Error(err))
		return nil, "", err
	}

	link.Campaign = campaign
	link.Recipient = recipient
	return link, raw, nil
}

// rotate 生成新令牌并替换摘要，状态回到 ACTIVE
func (s *linkService) rotate(ctx context.Context, repo *repository.Repository, link *model.InviteLink, keepPlain bool, adminID, action string) (string, error) {
	if _, err := model.Transition(link.Status, model.EventRotate); err != nil {
		return "", err
	}

	raw, err := token.GenerateWithLength(s.byteLength)
	if err != nil {
		s.logger.Error("生成令牌失败", zap.Error(err))
		return "", err
	}
	data := repository.RotateData{TokenDigest: s.hasher.Digest(raw)}
	if keepPlain {
		data.TokenPlain = &raw
	}

	from := link.Status
	err = repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.InviteLink.Rotate(ctx, link.InviteLinkID, link.Version, data); err != nil {
			return err
		}
		if action == "" {
			return nil
		}
		return writeAudit(ctx, tx, auditEntry{
			AdminID:    adminID,
			Action:     action,
			EntityType: model.AuditEntityInviteLink,
			EntityID:   link.InviteLinkID,
			Meta:       map[string]interface{}{"from": string(from)},
		})
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return "", ErrConcurrentModification
		}
		s.logger.Error("轮换令牌失败", zap.String("id", link.InviteLinkID), zap.Error(err))
		return "", err
	}

	metrics.LinkTransitionsTotal.WithLabelValues(string(model.EventRotate)).Inc()
	link.Version++
	link.TokenPlain = data.TokenPlain
	return raw, nil
}

// deliver 发送邀请邮件，失败不回滚签发：
// 补存明文令牌，管理员仍可复制链接或重发
func (s *linkService) deliver(ctx context.Context, link *model.InviteLink, campaign *model.Campaign, recipient *model.Recipient, raw string) error {
	err := s.notifier.SendInvite(ctx, mailer.Invite{
		To:           recipient.Email,
		Name:         recipient.DisplayName(),
		CampaignName: campaign.Name,
		URL:          s.server.InviteURL(raw),
	})
	if err == nil {
		metrics.InvitesSentTotal.WithLabelValues("ok").Inc()
		return nil
	}

	if errors.Is(err, ErrNotifierDisabled) {
		metrics.InvitesSentTotal.WithLabelValues("disabled").Inc()
	} else {
		metrics.InvitesSentTotal.WithLabelValues("error").Inc()
		s.logger.Error("发送邀请邮件失败",
			zap.String("recipient_id", recipient.RecipientID),
			zap.Error(err),
		)
	}

	if link.HasPlainToken() {
		return err
	}
	if rerr := s.repo.InviteLink.RetainPlainToken(ctx, link.InviteLinkID, s.hasher.Digest(raw), raw); rerr != nil {
		// 令牌已被轮换或兑换时无需保留
		s.logger.Warn("保留明文令牌失败", zap.String("id", link.InviteLinkID), zap.Error(rerr))
		return err
	}
	link.TokenPlain = &raw
	return err
}

func (s *linkService) toIssuedResponse(link *model.InviteLink, raw string) *dto.IssuedLinkResponse {
	return &dto.IssuedLinkResponse{
		ID:     link.InviteLinkID,
		Status: string(link.Status),
		Token:  raw,
		URL:    s.server.InviteURL(raw),
	}
}

func toLinkResponse(l *model.InviteLink) dto.LinkResponse {
	resp := dto.LinkResponse{
		ID:          l.InviteLinkID,
		Status:      string(l.Status),
		CampaignID:  l.CampaignID,
		RecipientID: l.RecipientID,
		Copyable:    l.HasPlainToken(),
		CreatedAt:   l.CreatedAt.Format(time.RFC3339),
		UsedAt:      formatTime(l.UsedAt),
		UsedIP:      l.UsedIP,
		DisabledAt:  formatTime(l.DisabledAt),
		ExpiredAt:   formatTime(l.ExpiredAt),
	}
	if l.Campaign != nil {
		resp.CampaignName = l.Campaign.Name
	}
	if l.Recipient != nil {
		resp.RecipientEmail = l.Recipient.Email
	}
	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
