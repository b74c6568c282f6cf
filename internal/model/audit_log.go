package model

import (
	"time"

	"gorm.io/gorm"
)

// 审计动作
const (
	AuditInviteConsumed   = "INVITE_CONSUMED"
	AuditLinkIssued       = "LINK_ISSUED"
	AuditLinkRegenerated  = "LINK_REGENERATED"
	AuditLinkResent       = "LINK_RESENT"
	AuditLinkDisabled     = "LINK_DISABLED"
	AuditLinkReactivated  = "LINK_REACTIVATED"
	AuditLinkExpired      = "LINK_EXPIRED"
	AuditLinkDeleted      = "LINK_DELETED"
	AuditLinkCopied       = "LINK_COPIED"
	AuditInvitesSent      = "INVITES_SENT"
	AuditEntityInviteLink = "invite_links"
	AuditEntityCampaign   = "campaigns"
)

// AuditLog 审计日志 — 对应 audit_logs
type AuditLog struct {
	AuditLogID string    `gorm:"type:uuid;primaryKey"      json:"id"`
	AdminID    *string   `gorm:"type:varchar(64)"          json:"admin_id,omitempty"`
	Action     string    `gorm:"type:varchar(64);not null" json:"action"`
	EntityType string    `gorm:"type:varchar(64);not null" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(64)"          json:"entity_id"`
	Meta       string    `gorm:"type:text"                 json:"meta,omitempty"` // JSON 文本
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (AuditLog) TableName() string { return "audit_logs" }

// BeforeCreate 生成主键
func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.AuditLogID == "" {
		a.AuditLogID = newID()
	}
	return nil
}
