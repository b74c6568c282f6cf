package handler

import "github.com/aminemahd13/linksharing/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Redeem *RedeemHandler
	Link   *LinkHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Redeem: NewRedeemHandler(svc.Redeem, svc.Link),
		Link:   NewLinkHandler(svc.Link),
	}
}
