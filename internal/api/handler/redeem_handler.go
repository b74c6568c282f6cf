package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/aminemahd13/linksharing/internal/model"
	"github.com/aminemahd13/linksharing/internal/service"
	"github.com/aminemahd13/linksharing/pkg/response"
)

// 面向受邀者的提示语
const (
	msgLinkInvalid  = "Link expired or unavailable"
	msgLinkDisabled = "This invite link has been disabled"
	msgLinkExpired  = "This invite link has expired"
	msgRateLimited  = "Too many attempts"
	msgUnavailable  = "Service temporarily unavailable, please retry"
)

// RedeemHandler 公开的邀请链接兑换与预览
type RedeemHandler struct {
	redeemSvc service.RedeemService
	linkSvc   service.LinkService
}

// NewRedeemHandler 创建 RedeemHandler
func NewRedeemHandler(redeemSvc service.RedeemService, linkSvc service.LinkService) *RedeemHandler {
	return &RedeemHandler{redeemSvc: redeemSvc, linkSvc: linkSvc}
}

// Consume 兑换邀请链接，成功时返回群组邀请地址
// POST /api/v1/l/:token/consume
func (h *RedeemHandler) Consume(c *gin.Context) {
	rc := service.RedeemContext{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	resp, err := h.redeemSvc.Consume(c.Request.Context(), c.Param("token"), rc)
	if err != nil {
		h.handleRedeemError(c, err)
		return
	}

	response.OK(c, resp)
}

// Preview 落地页信息（活动名与状态），不消费链接
// GET /api/v1/l/:token
func (h *RedeemHandler) Preview(c *gin.Context) {
	resp, err := h.linkSvc.Preview(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.handleRedeemError(c, err)
		return
	}

	response.OK(c, resp)
}

// handleRedeemError 兑换失败的对外响应
// 不存在、并发失败、已使用三者响应完全一致，避免探测令牌状态
func (h *RedeemHandler) handleRedeemError(c *gin.Context, err error) {
	var notActive *service.NotActiveError
	switch {
	case errors.Is(err, service.ErrRateLimited):
		response.TooManyRequests(c, 20004, msgRateLimited)
	case errors.Is(err, service.ErrStorageUnavailable):
		response.ServiceUnavailable(c, 20005, msgUnavailable)
	case errors.As(err, &notActive) && notActive.Status == model.LinkStatusDisabled:
		response.BadRequest(c, 20002, msgLinkDisabled)
	case errors.As(err, &notActive) && notActive.Status == model.LinkStatusExpired:
		response.BadRequest(c, 20003, msgLinkExpired)
	case errors.As(err, &notActive),
		errors.Is(err, service.ErrLinkNotFound),
		errors.Is(err, service.ErrRaceLost):
		response.BadRequest(c, 20001, msgLinkInvalid)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
