package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemory_Boundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemoryWithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := l.Admit(ctx, "consume:1.2.3.4", 5, time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "第 %d 次请求应放行", i+1)
	}

	ok, _ := l.Admit(ctx, "consume:1.2.3.4", 5, time.Minute)
	require.False(t, ok, "第 6 次请求应被拒绝")

	clock.Advance(61 * time.Second)

	ok, _ = l.Admit(ctx, "consume:1.2.3.4", 5, time.Minute)
	require.True(t, ok, "窗口过期后应重新放行")
}

func TestMemory_KeysIndependent(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	ok, _ := l.Admit(ctx, "a", 1, time.Minute)
	require.True(t, ok)
	ok, _ = l.Admit(ctx, "a", 1, time.Minute)
	require.False(t, ok)

	ok, _ = l.Admit(ctx, "b", 1, time.Minute)
	require.True(t, ok)
}

func TestMemory_PassiveExpiryReusesSlot(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	l := NewMemoryWithClock(clock.Now)
	ctx := context.Background()

	_, _ = l.Admit(ctx, "k", 2, time.Second)
	clock.Advance(2 * time.Second)
	_, _ = l.Admit(ctx, "k", 2, time.Second)

	require.Equal(t, 1, l.Len())
}

func TestMemory_ConcurrentNoLostUpdates(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Admit(ctx, "shared", 50, time.Hour); ok {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(50), admitted)
}

func TestMemory_ZeroLimitRejects(t *testing.T) {
	l := NewMemory()
	for i := 0; i < 3; i++ {
		ok, _ := l.Admit(context.Background(), fmt.Sprintf("k%d", i), 0, time.Minute)
		require.False(t, ok)
	}
}

func TestMemory_SweepsExpiredKeysPastThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemoryWithClock(clock.Now)
	m.sweepMin, m.sweepAt = 4, 4
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		ok, err := m.Admit(ctx, fmt.Sprintf("consume:10.0.0.%d", i), 5, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 4, m.Len())

	clock.Advance(2 * time.Minute)
	ok, err := m.Admit(ctx, "consume:10.0.1.1", 5, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, m.Len())
}

func TestMemory_SweepKeepsLiveWindows(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemoryWithClock(clock.Now)
	m.sweepMin, m.sweepAt = 2, 2
	ctx := context.Background()

	_, _ = m.Admit(ctx, "a", 1, time.Minute)
	_, _ = m.Admit(ctx, "b", 1, time.Minute)
	_, _ = m.Admit(ctx, "c", 1, time.Minute)
	require.Equal(t, 3, m.Len())

	// 清扫不应重置仍在窗口内的计数
	ok, err := m.Admit(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)
}
