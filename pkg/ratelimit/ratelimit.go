// Package ratelimit 固定窗口请求计数限流。
//
// Memory 为进程内实现，多实例部署时各实例计数互不可见；
// 需要跨实例共享计数时使用 pkg/redis.Client（同样实现 Limiter）。
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter 限流器接口
// Admit 对 key 计一次请求，返回本次是否放行
type Limiter interface {
	Admit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type entry struct {
	count   int
	resetAt time.Time
}

// defaultSweepThreshold 跟踪的 key 数达到该值时顺带清扫过期窗口
const defaultSweepThreshold = 10000

// Memory 进程内固定窗口限流器
// 过期窗口在下一次访问时被动回收；key 数超过阈值时在写入路径上顺带清扫，不启动后台协程
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time

	sweepMin int // 清扫阈值下限
	sweepAt  int // 下一次清扫的 key 数
}

// NewMemory 创建进程内限流器
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock 使用自定义时钟创建限流器（测试用）
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries:  make(map[string]*entry),
		now:      now,
		sweepMin: defaultSweepThreshold,
		sweepAt:  defaultSweepThreshold,
	}
}

// Admit 实现 Limiter
func (m *Memory) Admit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || now.After(e.resetAt) {
		if !ok && len(m.entries) >= m.sweepAt {
			m.sweep(now)
		}
		m.entries[key] = &entry{count: 1, resetAt: now.Add(window)}
		return limit > 0, nil
	}

	if e.count >= limit {
		return false, nil
	}
	e.count++
	return true, nil
}

// sweep 删除全部过期窗口，调用方持有锁
// 清扫后阈值取存活数的两倍，全部存活时不会每次写入都遍历
func (m *Memory) sweep(now time.Time) {
	for k, e := range m.entries {
		if now.After(e.resetAt) {
			delete(m.entries, k)
		}
	}
	m.sweepAt = 2 * len(m.entries)
	if m.sweepAt < m.sweepMin {
		m.sweepAt = m.sweepMin
	}
}

// Len 当前跟踪的 key 数量（含尚未被动回收的过期窗口）
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
