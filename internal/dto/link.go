package dto

// ── 兑换（公开接口） ──

// ConsumeResponse 兑换成功响应
type ConsumeResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// PreviewResponse 落地页预览（不改变链接状态）
type PreviewResponse struct {
	CampaignName string `json:"campaign_name"`
	Status       string `json:"status"`
}

// ── 管理端请求 ──

// IssueLinkRequest 为收件人签发链接
type IssueLinkRequest struct {
	CampaignID  string `json:"campaign_id"  binding:"required,uuid"`
	RecipientID string `json:"recipient_id" binding:"required,uuid"`
}

// SendCampaignRequest 批量发送邀请；RecipientIDs 为空时发送给全部收件人
type SendCampaignRequest struct {
	RecipientIDs []string `json:"recipient_ids" binding:"omitempty,dive,uuid"`
}

// LinkListRequest 链接列表查询
type LinkListRequest struct {
	PaginationRequest
	CampaignID string `form:"campaign_id" binding:"omitempty,uuid"`
	Status     string `form:"status"      binding:"omitempty,oneof=ACTIVE USED DISABLED EXPIRED"`
	Keyword    string `form:"keyword"     binding:"omitempty,max=100"`
}

// ── 管理端响应 ──

// IssuedLinkResponse 签发/轮换结果，明文令牌仅在此返回一次
type IssuedLinkResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Token    string `json:"token,omitempty"`
	URL      string `json:"url,omitempty"`
	Notified bool   `json:"notified"`
}

// LinkResponse 链接信息（不含令牌与摘要）
type LinkResponse struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	CampaignID     string  `json:"campaign_id"`
	CampaignName   string  `json:"campaign_name,omitempty"`
	RecipientID    string  `json:"recipient_id"`
	RecipientEmail string  `json:"recipient_email,omitempty"`
	Copyable       bool    `json:"copyable"`
	CreatedAt      string  `json:"created_at"`
	UsedAt         *string `json:"used_at,omitempty"`
	UsedIP         *string `json:"used_ip,omitempty"`
	DisabledAt     *string `json:"disabled_at,omitempty"`
	ExpiredAt      *string `json:"expired_at,omitempty"`
}

// LinkStatusResponse 状态变更结果
type LinkStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CopyLinkResponse 复制链接
type CopyLinkResponse struct {
	URL string `json:"url"`
}

// SentLink 批量发送中的单条结果
type SentLink struct {
	RecipientID string `json:"recipient_id"`
	LinkID      string `json:"link_id"`
	Error       string `json:"error,omitempty"`
}

// SendCampaignResponse 批量发送结果
type SendCampaignResponse struct {
	Count  int        `json:"count"`
	Failed int        `json:"failed"`
	Links  []SentLink `json:"links"`
}
