package model

import (
	"time"

	"gorm.io/gorm"
)

// InviteLink 一次性邀请链接 — 对应 invite_links
type InviteLink struct {
	InviteLinkID  string     `gorm:"type:uuid;primaryKey"                                   json:"id"`
	TokenDigest   string     `gorm:"type:varchar(64);not null;uniqueIndex"                  json:"-"`
	TokenPlain    *string    `gorm:"type:varchar(128);index"                                json:"-"`
	Status        LinkStatus `gorm:"type:varchar(16);not null;default:ACTIVE;index"         json:"status"`
	CampaignID    string     `gorm:"type:uuid;not null;uniqueIndex:uq_invite_links_pair"    json:"campaign_id"`
	RecipientID   string     `gorm:"type:uuid;not null;uniqueIndex:uq_invite_links_pair"    json:"recipient_id"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	UsedIP        *string    `gorm:"column:used_ip;type:varchar(64)"                        json:"used_ip,omitempty"`
	UsedUserAgent *string    `gorm:"type:text"                                              json:"used_user_agent,omitempty"`
	DisabledAt    *time.Time `json:"disabled_at,omitempty"`
	DisabledBy    *string    `gorm:"type:varchar(64)"                                       json:"disabled_by,omitempty"`
	ExpiredAt     *time.Time `json:"expired_at,omitempty"`
	VersionedModel

	Campaign  *Campaign  `gorm:"foreignKey:CampaignID;references:CampaignID"   json:"campaign,omitempty"`
	Recipient *Recipient `gorm:"foreignKey:RecipientID;references:RecipientID" json:"recipient,omitempty"`
}

// TableName 指定表名
func (InviteLink) TableName() string { return "invite_links" }

// BeforeCreate 生成主键
func (l *InviteLink) BeforeCreate(_ *gorm.DB) error {
	if l.InviteLinkID == "" {
		l.InviteLinkID = newID()
	}
	return nil
}

// HasPlainToken 是否仍保留明文令牌（可复制链接）
func (l *InviteLink) HasPlainToken() bool {
	return l.TokenPlain != nil && *l.TokenPlain != ""
}
