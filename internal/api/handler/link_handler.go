package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/aminemahd13/linksharing/internal/dto"
	"github.com/aminemahd13/linksharing/internal/service"
	"github.com/aminemahd13/linksharing/pkg/response"
)

// LinkHandler 管理端邀请链接 HTTP 处理器
type LinkHandler struct {
	linkSvc service.LinkService
}

// NewLinkHandler 创建 LinkHandler
func NewLinkHandler(linkSvc service.LinkService) *LinkHandler {
	return &LinkHandler{linkSvc: linkSvc}
}

// ListLinks 链接列表
// GET /api/v1/admin/links
func (h *LinkHandler) ListLinks(c *gin.Context) {
	var req dto.LinkListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	links, total, err := h.linkSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	response.OKPage(c, links, total, req.GetPage(), req.GetPageSize())
}

// IssueLink 为收件人签发链接
// POST /api/v1/admin/links
func (h *LinkHandler) IssueLink(c *gin.Context) {
	var req dto.IssueLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	adminID, ok := MustGetAdminID(c)
	if !ok {
		return
	}

	link, err := h.linkSvc.Issue(c.Request.Context(), &req, adminID)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	response.Created(c, link)
}

// SendCampaign 批量签发并发送活动邀请
// POST /api/v1/admin/campaigns/:id/send
func (h *LinkHandler) SendCampaign(c *gin.Context) {
	var req dto.SendCampaignRequest
	// 请求体可省略：发送给全部收件人
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	adminID, ok := MustGetAdminID(c)
	if !ok {
		return
	}

	result, err := h.linkSvc.SendCampaign(c.Request.Context(), c.Param("id"), &req, adminID)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	response.OK(c, result)
}

// Regenerate 轮换令牌（保留可复制明文）
// POST /api/v1/admin/links/:id/regenerate
func (h *LinkHandler) Regenerate(c *gin.Context) {
	adminID, ok := MustGetAdminID(c)
	if !ok {
		return
	}

	link, err := h.linkSvc.Regenerate(c.Request.Context(), c.Param("id"), adminID)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	response.OK(c, link)
}

// Resend 轮换令牌并重新发送邮件
// POST /api/v1/admin/links/:id/resend
func (h *LinkHandler) Resend(c *gin.Context) {
	adminID, ok := MustGetAdminID(c)
	if !ok {
		return
	}

	link, err := h.linkSvc.Resend(c.Request.Context(), c.Param("id"), adminID)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	response.OK(c, link)
}

// Deactivate 停用链接
// POST /api/v1/admin/links/:id/deactivate
func (h *LinkHandler) Deactivate(c *gin.Context) {
	h.changeStatus(c, h.linkSvc.Disable)
}

// Reactivate 重新启用链接
// POST /api/v1/admin/links/:id/reactivate
func (h *LinkHandler) Reactivate(c *gin.Context) {
	h.changeStatus(c, h.linkSvc.Reactivate)
}

// Expire 使链接过期
// POST /api/v1/admin/links/:id/expire
func (h *LinkHandler) Expire(c *gin.Context) {
	h.changeStatus(c, h.linkSvc.Expire)
}

// CopyLink 获取可复制的邀请地址
// POST /api/v1/admin/links/:id/copy
func (h *LinkHandler) CopyLink(c *gin.Context) {
	adminID, ok := MustGetAdminID(c)
	if !ok {
		return
	}

	link, err := h.linkSvc.CopyURL(c.Request.Context(), c.Param("id"), adminID)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	response.OK(c, link)
}

// DeleteLink 删除链接
// DELETE /api/v1/admin/links/:id
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	adminID, ok := MustGetAdminID(c)
	if !ok {
		return
	}

	if err := h.linkSvc.Delete(c.Request.Context(), c.Param("id"), adminID); err != nil {
		h.handleLinkError(c, err)
		return
	}

	response.OK(c, nil)
}

type statusChange func(ctx context.Context, id, adminID string) (*dto.LinkStatusResponse, error)

func (h *LinkHandler) changeStatus(c *gin.Context, fn statusChange) {
	adminID, ok := MustGetAdminID(c)
	if !ok {
		return
	}

	link, err := fn(c.Request.Context(), c.Param("id"), adminID)
	if err != nil {
		h.handleLinkError(c, err)
		return
	}

	response.OK(c, link)
}

// handleLinkError 统一处理链接管理业务错误
func (h *LinkHandler) handleLinkError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLinkNotFound):
		response.NotFound(c, 21001, "链接不存在")
	case errors.Is(err, service.ErrCampaignNotFound):
		response.NotFound(c, 21002, "活动不存在")
	case errors.Is(err, service.ErrRecipientNotFound):
		response.NotFound(c, 21003, "收件人不存在")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 21004, "当前状态不允许该操作")
	case errors.Is(err, service.ErrConcurrentModification):
		response.Conflict(c, 21005, "链接已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrTokenUnavailable):
		response.Conflict(c, 21006, "链接不可复制，请先重新生成")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
