package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aminemahd13/linksharing/internal/model"
)

// CampaignRepository 活动数据访问接口（只读，活动由管理端维护）
type CampaignRepository interface {
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
}

type campaignRepo struct {
	db *gorm.DB
}

// NewCampaignRepo 创建 CampaignRepository 实例
func NewCampaignRepo(db *gorm.DB) CampaignRepository {
	return &campaignRepo{db: db}
}

func (r *campaignRepo) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	var campaign model.Campaign
	err := r.db.WithContext(ctx).
		Preload("Group").
		Where("campaign_id = ?", id).
		First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}
