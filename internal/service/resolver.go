package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/aminemahd13/linksharing/internal/model"
	"github.com/aminemahd13/linksharing/internal/repository"
	"github.com/aminemahd13/linksharing/pkg/token"
)

// linkResolver 按令牌定位链接
// 先匹配保留的明文令牌（pepper 轮换后仍可用），再按当前 pepper 的摘要查找
type linkResolver struct {
	repo   *repository.Repository
	hasher *token.Hasher
}

func (r *linkResolver) resolve(ctx context.Context, raw string) (*model.InviteLink, error) {
	if raw == "" {
		return nil, ErrLinkNotFound
	}

	link, err := r.repo.InviteLink.GetByTokenPlain(ctx, raw)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageError("按明文查询链接失败", err)
	}

	link, err = r.repo.InviteLink.GetByDigest(ctx, r.hasher.Digest(raw))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, storageError("按摘要查询链接失败", err)
	}
	return link, nil
}
