package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/aminemahd13/linksharing/internal/model"
)

// RecipientRepository 收件人数据访问接口（只读）
type RecipientRepository interface {
	GetByID(ctx context.Context, id string) (*model.Recipient, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Recipient, error)
	ListAll(ctx context.Context) ([]model.Recipient, error)
}

type recipientRepo struct {
	db *gorm.DB
}

// NewRecipientRepo 创建 RecipientRepository 实例
func NewRecipientRepo(db *gorm.DB) RecipientRepository {
	return &recipientRepo{db: db}
}

func (r *recipientRepo) GetByID(ctx context.Context, id string) (*model.Recipient, error) {
	var recipient model.Recipient
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", id).
		First(&recipient).Error
	if err != nil {
		return nil, err
	}
	return &recipient, nil
}

func (r *recipientRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recipients []model.Recipient
	err := r.db.WithContext(ctx).
		Where("recipient_id IN ?", ids).
		Order("email").
		Find(&recipients).Error
	return recipients, err
}

func (r *recipientRepo) ListAll(ctx context.Context) ([]model.Recipient, error) {
	var recipients []model.Recipient
	err := r.db.WithContext(ctx).Order("email").Find(&recipients).Error
	return recipients, err
}
