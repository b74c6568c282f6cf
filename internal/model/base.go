package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用时间戳字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel 支持乐观锁的模型：每次条件更新 version+1
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// newID 生成主键（应用侧生成，sqlite 与 postgres 行为一致）
func newID() string {
	return uuid.New().String()
}

// All 返回需要建表的全部模型（sqlite AutoMigrate 使用）
func All() []interface{} {
	return []interface{}{
		&Group{},
		&Campaign{},
		&Recipient{},
		&InviteLink{},
		&AuditLog{},
	}
}
