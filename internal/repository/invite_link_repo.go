package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aminemahd13/linksharing/internal/model"
	pkgerrors "github.com/aminemahd13/linksharing/pkg/errors"
)

// InviteLinkListFilters 链接列表筛选条件
type InviteLinkListFilters struct {
	CampaignID string
	Status     model.LinkStatus
	Keyword    string // 按收件人邮箱模糊匹配
}

// ConsumeStamp 兑换成功时写入的兑换者信息
type ConsumeStamp struct {
	UsedAt    time.Time
	IP        string
	UserAgent string
}

// RotateData 轮换令牌写入的数据
type RotateData struct {
	TokenDigest string
	TokenPlain  *string // nil 表示不保留明文
}

// InviteLinkRepository 邀请链接数据访问接口
// 所有状态写入均为条件更新：WHERE status = from AND version = version，
// 未命中任何行时返回 pkgerrors.ErrOptimisticLock
type InviteLinkRepository interface {
	Create(ctx context.Context, link *model.InviteLink) error
	GetByID(ctx context.Context, id string) (*model.InviteLink, error)
	GetByTokenPlain(ctx context.Context, token string) (*model.InviteLink, error)
	GetByDigest(ctx context.Context, digest string) (*model.InviteLink, error)
	GetByPair(ctx context.Context, campaignID, recipientID string) (*model.InviteLink, error)
	List(ctx context.Context, filters *InviteLinkListFilters, offset, limit int) ([]model.InviteLink, int64, error)
	// MarkUsed ACTIVE → USED 原子比较并交换，同时清除明文令牌
	MarkUsed(ctx context.Context, id string, version int, stamp ConsumeStamp) error
	// Disable ACTIVE → DISABLED
	Disable(ctx context.Context, id string, version int, adminID string, at time.Time) error
	// Reactivate DISABLED → ACTIVE
	Reactivate(ctx context.Context, id string, version int) error
	// Expire from → EXPIRED
	Expire(ctx context.Context, id string, from model.LinkStatus, version int, at time.Time) error
	// Rotate 替换摘要并重置为 ACTIVE，旧摘要随即不可兑换
	Rotate(ctx context.Context, id string, version int, data RotateData) error
	// RetainPlainToken 邀请未送达时补存明文，仅当摘要未被轮换且仍为 ACTIVE
	RetainPlainToken(ctx context.Context, id, digest, plain string) error
	Delete(ctx context.Context, id string) error
}

type inviteLinkRepo struct {
	db *gorm.DB
}

// NewInviteLinkRepo 创建 InviteLinkRepository 实例
func NewInviteLinkRepo(db *gorm.DB) InviteLinkRepository {
	return &inviteLinkRepo{db: db}
}

func (r *inviteLinkRepo) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Campaign.Group").
		Preload("Recipient")
}

func (r *inviteLinkRepo) Create(ctx context.Context, link *model.InviteLink) error {
	return r.db.WithContext(ctx).Omit("Campaign", "Recipient").Create(link).Error
}

func (r *inviteLinkRepo) GetByID(ctx context.Context, id string) (*model.InviteLink, error) {
	var link model.InviteLink
	err := r.withAssociations(ctx).
		Where("invite_link_id = ?", id).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetByTokenPlain 按明文令牌查询（pepper 轮换后仍可解析保留明文的链接）
func (r *inviteLinkRepo) GetByTokenPlain(ctx context.Context, token string) (*model.InviteLink, error) {
	var link model.InviteLink
	err := r.withAssociations(ctx).
		Where("token_plain = ?", token).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *inviteLinkRepo) GetByDigest(ctx context.Context, digest string) (*model.InviteLink, error) {
	var link model.InviteLink
	err := r.withAssociations(ctx).
		Where("token_digest = ?", digest).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *inviteLinkRepo) GetByPair(ctx context.Context, campaignID, recipientID string) (*model.InviteLink, error) {
	var link model.InviteLink
	err := r.withAssociations(ctx).
		Where("campaign_id = ? AND recipient_id = ?", campaignID, recipientID).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *inviteLinkRepo) List(ctx context.Context, filters *InviteLinkListFilters, offset, limit int) ([]model.InviteLink, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.InviteLink{})

	if filters != nil {
		if filters.CampaignID != "" {
			query = query.Where("invite_links.campaign_id = ?", filters.CampaignID)
		}
		if filters.Status != "" {
			query = query.Where("invite_links.status = ?", filters.Status)
		}
		if filters.Keyword != "" {
			query = query.
				Joins("JOIN recipients ON recipients.recipient_id = invite_links.recipient_id").
				Where(`recipients.email LIKE ? ESCAPE '\'`, "%"+escapeLike(filters.Keyword)+"%")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var links []model.InviteLink
	err := query.
		Preload("Campaign.Group").
		Preload("Recipient").
		Order("invite_links.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&links).Error
	if err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

func (r *inviteLinkRepo) MarkUsed(ctx context.Context, id string, version int, stamp ConsumeStamp) error {
	return r.compareAndSwap(ctx, id, model.LinkStatusActive, version, map[string]interface{}{
		"status":          model.LinkStatusUsed,
		"used_at":         stamp.UsedAt,
		"used_ip":         stamp.IP,
		"used_user_agent": stamp.UserAgent,
		"token_plain":     nil,
	})
}

func (r *inviteLinkRepo) Disable(ctx context.Context, id string, version int, adminID string, at time.Time) error {
	return r.compareAndSwap(ctx, id, model.LinkStatusActive, version, map[string]interface{}{
		"status":      model.LinkStatusDisabled,
		"disabled_at": at,
		"disabled_by": adminID,
	})
}

func (r *inviteLinkRepo) Reactivate(ctx context.Context, id string, version int) error {
	return r.compareAndSwap(ctx, id, model.LinkStatusDisabled, version, map[string]interface{}{
		"status":      model.LinkStatusActive,
		"disabled_at": nil,
		"disabled_by": nil,
	})
}

func (r *inviteLinkRepo) Expire(ctx context.Context, id string, from model.LinkStatus, version int, at time.Time) error {
	return r.compareAndSwap(ctx, id, from, version, map[string]interface{}{
		"status":     model.LinkStatusExpired,
		"expired_at": at,
	})
}

// Rotate 仅以 version 为前置条件：轮换允许从任意状态发起
func (r *inviteLinkRepo) Rotate(ctx context.Context, id string, version int, data RotateData) error {
	result := r.db.WithContext(ctx).
		Model(&model.InviteLink{}).
		Where("invite_link_id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"token_digest":    data.TokenDigest,
			"token_plain":     data.TokenPlain,
			"status":          model.LinkStatusActive,
			"used_at":         nil,
			"used_ip":         nil,
			"used_user_agent": nil,
			"disabled_at":     nil,
			"disabled_by":     nil,
			"expired_at":      nil,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *inviteLinkRepo) RetainPlainToken(ctx context.Context, id, digest, plain string) error {
	result := r.db.WithContext(ctx).
		Model(&model.InviteLink{}).
		Where("invite_link_id = ? AND token_digest = ? AND status = ?", id, digest, model.LinkStatusActive).
		Updates(map[string]interface{}{
			"token_plain": plain,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *inviteLinkRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("invite_link_id = ?", id).
		Delete(&model.InviteLink{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike 转义 LIKE 通配符，关键字按字面匹配
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// compareAndSwap 单条条件更新：状态与版本均未变化时才写入
func (r *inviteLinkRepo) compareAndSwap(ctx context.Context, id string, from model.LinkStatus, version int, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.InviteLink{}).
		Where("invite_link_id = ? AND status = ? AND version = ?", id, from, version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
