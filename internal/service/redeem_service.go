package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/aminemahd13/linksharing/config"
	"github.com/aminemahd13/linksharing/internal/dto"
	"github.com/aminemahd13/linksharing/internal/model"
	"github.com/aminemahd13/linksharing/internal/repository"
	pkgerrors "github.com/aminemahd13/linksharing/pkg/errors"
	"github.com/aminemahd13/linksharing/pkg/metrics"
	"github.com/aminemahd13/linksharing/pkg/ratelimit"
	"github.com/aminemahd13/linksharing/pkg/token"
)

// RedeemContext 兑换请求的客户端信息
type RedeemContext struct {
	ClientIP  string
	UserAgent string
}

// RateKey 兑换限流键
func (rc RedeemContext) RateKey() string {
	return "consume:" + rc.ClientIP
}

// RedeemService 兑换引擎：一个令牌至多成功兑换一次
type RedeemService interface {
	Consume(ctx context.Context, token string, rc RedeemContext) (*dto.ConsumeResponse, error)
}

type redeemService struct {
	linkResolver
	limiter ratelimit.Limiter
	limit   int
	window  time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedeemService 创建 RedeemService 实例
func NewRedeemService(
	cfg *config.RateLimitConfig,
	repo *repository.Repository,
	hasher *token.Hasher,
	limiter ratelimit.Limiter,
	logger *zap.Logger,
) RedeemService {
	return &redeemService{
		linkResolver: linkResolver{repo: repo, hasher: hasher},
		limiter:      limiter,
		limit:        cfg.ConsumeLimit,
		window:       cfg.ConsumeWindow,
		logger:       logger,
		now:          time.Now,
	}
}

// ────────────────────── Consume ──────────────────────

func (s *redeemService) Consume(ctx context.Context, raw string, rc RedeemContext) (*dto.ConsumeResponse, error) {
	// 1. 限流：在任何查询之前
	allowed, err := s.limiter.Admit(ctx, rc.RateKey(), s.limit, s.window)
	if err != nil {
		// 限流后端故障时放行，由条件更新保证单次兑换
		s.logger.Warn("限流后端不可用，放行请求", zap.String("ip", rc.ClientIP), zap.Error(err))
	} else if !allowed {
		metrics.RedemptionsTotal.WithLabelValues("rate_limited").Inc()
		return nil, ErrRateLimited
	}

	// 2. 定位链接
	link, err := s.resolve(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			metrics.RedemptionsTotal.WithLabelValues("not_found").Inc()
		} else {
			metrics.RedemptionsTotal.WithLabelValues("storage_error").Inc()
			s.logger.Error("兑换查询失败", zap.Error(err))
		}
		return nil, err
	}

	// 3. 状态预检（最终裁决在条件更新）
	if _, err := model.Transition(link.Status, model.EventConsume); err != nil {
		metrics.RedemptionsTotal.WithLabelValues("not_active").Inc()
		return nil, &NotActiveError{Status: link.Status}
	}

	redirect, err := destinationOf(link)
	if err != nil {
		metrics.RedemptionsTotal.WithLabelValues("destination_missing").Inc()
		s.logger.Error("链接缺少群组邀请地址", zap.String("link_id", link.InviteLinkID))
		return nil, err
	}

	// 4. 条件更新 + 审计，同一事务
	now := s.now().UTC()
	stamp := repository.ConsumeStamp{
		UsedAt:    now,
		IP:        rc.ClientIP,
		UserAgent: rc.UserAgent,
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.InviteLink.MarkUsed(ctx, link.InviteLinkID, link.Version, stamp); err != nil {
			return err
		}
		return writeAudit(ctx, tx, auditEntry{
			Action:     model.AuditInviteConsumed,
			EntityType: model.AuditEntityInviteLink,
			EntityID:   link.InviteLinkID,
			Meta:       map[string]interface{}{"ip": rc.ClientIP},
		})
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			metrics.RedemptionsTotal.WithLabelValues("race_lost").Inc()
			s.logger.Info("并发兑换未命中", zap.String("link_id", link.InviteLinkID))
			return nil, ErrRaceLost
		}
		metrics.RedemptionsTotal.WithLabelValues("storage_error").Inc()
		s.logger.Error("兑换写入失败", zap.String("link_id", link.InviteLinkID), zap.Error(err))
		return nil, storageError("兑换写入失败", err)
	}

	metrics.RedemptionsTotal.WithLabelValues("success").Inc()
	s.logger.Info("邀请链接已兑换",
		zap.String("link_id", link.InviteLinkID),
		zap.String("ip", rc.ClientIP),
	)
	return &dto.ConsumeResponse{RedirectURL: redirect}, nil
}

// ErrDestinationMissing 链接关联的活动或群组缺失
var ErrDestinationMissing = errors.New("链接未关联群组邀请地址")

func destinationOf(link *model.InviteLink) (string, error) {
	if link.Campaign == nil || link.Campaign.Group == nil || link.Campaign.Group.WhatsAppInviteURL == "" {
		return "", ErrDestinationMissing
	}
	return link.Campaign.Group.WhatsAppInviteURL, nil
}
