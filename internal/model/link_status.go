package model

import (
	"errors"
	"fmt"
)

// LinkStatus 邀请链接状态
type LinkStatus string

const (
	LinkStatusActive   LinkStatus = "ACTIVE"
	LinkStatusUsed     LinkStatus = "USED"
	LinkStatusDisabled LinkStatus = "DISABLED"
	LinkStatusExpired  LinkStatus = "EXPIRED"
)

// Valid 是否为已知状态
func (s LinkStatus) Valid() bool {
	switch s {
	case LinkStatusActive, LinkStatusUsed, LinkStatusDisabled, LinkStatusExpired:
		return true
	}
	return false
}

// LinkEvent 触发状态迁移的事件
type LinkEvent string

const (
	EventConsume    LinkEvent = "consume"
	EventDisable    LinkEvent = "disable"
	EventReactivate LinkEvent = "reactivate"
	EventRotate     LinkEvent = "rotate"
	EventExpire     LinkEvent = "expire"
)

// ErrInvalidTransition 当前状态不允许该事件
var ErrInvalidTransition = errors.New("链接状态不允许该操作")

// transitions 状态迁移表：事件 → 允许的源状态 → 目标状态
// EXPIRED 仅由管理端显式触发，不根据创建时间推导
var transitions = map[LinkEvent]map[LinkStatus]LinkStatus{
	EventConsume: {
		LinkStatusActive: LinkStatusUsed,
	},
	EventDisable: {
		LinkStatusActive: LinkStatusDisabled,
	},
	EventReactivate: {
		LinkStatusDisabled: LinkStatusActive,
	},
	EventRotate: {
		LinkStatusActive:   LinkStatusActive,
		LinkStatusDisabled: LinkStatusActive,
		LinkStatusUsed:     LinkStatusActive,
		LinkStatusExpired:  LinkStatusActive,
	},
	EventExpire: {
		LinkStatusActive:   LinkStatusExpired,
		LinkStatusDisabled: LinkStatusExpired,
		LinkStatusUsed:     LinkStatusExpired,
	},
}

// Transition 计算 from 在 event 下的目标状态
func Transition(from LinkStatus, event LinkEvent) (LinkStatus, error) {
	targets, ok := transitions[event]
	if !ok {
		return "", fmt.Errorf("未知事件 %q: %w", event, ErrInvalidTransition)
	}
	to, ok := targets[from]
	if !ok {
		return "", fmt.Errorf("%s 状态不允许 %s: %w", from, event, ErrInvalidTransition)
	}
	return to, nil
}
