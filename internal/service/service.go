package service

import (
	"go.uber.org/zap"

	"github.com/aminemahd13/linksharing/config"
	"github.com/aminemahd13/linksharing/internal/repository"
	"github.com/aminemahd13/linksharing/pkg/ratelimit"
	"github.com/aminemahd13/linksharing/pkg/token"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Redeem RedeemService
	Link   LinkService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	hasher *token.Hasher,
	limiter ratelimit.Limiter,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		Redeem: NewRedeemService(&cfg.RateLimit, repo, hasher, limiter, logger),
		Link:   NewLinkService(cfg, repo, hasher, notifier, logger),
	}
}
