package service

import (
	"context"
	"encoding/json"

	"github.com/aminemahd13/linksharing/internal/model"
	"github.com/aminemahd13/linksharing/internal/repository"
)

// auditEntry 一条待写入的审计记录
type auditEntry struct {
	AdminID    string
	Action     string
	EntityType string
	EntityID   string
	Meta       map[string]interface{}
}

// writeAudit 写入审计日志；repo 可以是事务内的聚合
func writeAudit(ctx context.Context, repo *repository.Repository, e auditEntry) error {
	entry := &model.AuditLog{
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
	}
	if e.AdminID != "" {
		adminID := e.AdminID
		entry.AdminID = &adminID
	}
	if len(e.Meta) > 0 {
		b, err := json.Marshal(e.Meta)
		if err != nil {
			return err
		}
		entry.Meta = string(b)
	}
	return repo.AuditLog.Create(ctx, entry)
}
