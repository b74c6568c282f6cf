package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	InviteLink InviteLinkRepository
	Campaign   CampaignRepository
	Recipient  RecipientRepository
	AuditLog   AuditLogRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		InviteLink: NewInviteLinkRepo(db),
		Campaign:   NewCampaignRepo(db),
		Recipient:  NewRecipientRepo(db),
		AuditLog:   NewAuditLogRepo(db),
		db:         db,
	}
}

// Transaction 在同一数据库事务中执行 fn，fn 收到绑定事务连接的 Repository
// 未绑定数据库（单元测试直接组装的 mock 聚合）时在当前聚合上执行
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
