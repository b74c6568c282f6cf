package model

import "gorm.io/gorm"

// Group WhatsApp 群组 — 对应 groups（由管理端维护，此处只读）
type Group struct {
	GroupID           string `gorm:"type:uuid;primaryKey"        json:"id"`
	Name              string `gorm:"type:varchar(200);not null" json:"name"`
	WhatsAppInviteURL string `gorm:"column:whatsapp_invite_url;type:text;not null" json:"whatsapp_invite_url"`
	BaseModel
}

// TableName 指定表名
func (Group) TableName() string { return "groups" }

// BeforeCreate 生成主键
func (g *Group) BeforeCreate(_ *gorm.DB) error {
	if g.GroupID == "" {
		g.GroupID = newID()
	}
	return nil
}

// Campaign 邀请活动 — 对应 campaigns
type Campaign struct {
	CampaignID string `gorm:"type:uuid;primaryKey"        json:"id"`
	Name       string `gorm:"type:varchar(200);not null" json:"name"`
	GroupID    string `gorm:"type:uuid;not null"          json:"group_id"`
	BaseModel

	Group *Group `gorm:"foreignKey:GroupID;references:GroupID" json:"group,omitempty"`
}

// TableName 指定表名
func (Campaign) TableName() string { return "campaigns" }

// BeforeCreate 生成主键
func (c *Campaign) BeforeCreate(_ *gorm.DB) error {
	if c.CampaignID == "" {
		c.CampaignID = newID()
	}
	return nil
}

// Recipient 收件人 — 对应 recipients
type Recipient struct {
	RecipientID string  `gorm:"type:uuid;primaryKey"                    json:"id"`
	Email       string  `gorm:"type:varchar(320);not null;uniqueIndex" json:"email"`
	Name        *string `gorm:"type:varchar(200)"                       json:"name,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Recipient) TableName() string { return "recipients" }

// BeforeCreate 生成主键
func (r *Recipient) BeforeCreate(_ *gorm.DB) error {
	if r.RecipientID == "" {
		r.RecipientID = newID()
	}
	return nil
}

// DisplayName 邮件称呼，未填写姓名时返回空串
func (r *Recipient) DisplayName() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}
