//go:build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aminemahd13/linksharing/config"
)

// 需要本地 Redis：LINKSHARING_TEST_REDIS_ADDR=localhost:6379 go test -tags integration ./pkg/redis/
func newIntegrationClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("LINKSHARING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LINKSHARING_TEST_REDIS_ADDR 未设置，跳过 Redis 集成测试")
	}
	c, err := NewClient(&config.RedisConfig{Addr: addr}, zap.NewNop())
	if err != nil {
		t.Fatalf("连接 Redis 失败: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAdmit_FixedWindow(t *testing.T) {
	c := newIntegrationClient(t)
	ctx := context.Background()
	key := "consume:" + uuid.NewString()

	for i := 1; i <= 5; i++ {
		ok, err := c.Admit(ctx, key, 5, 500*time.Millisecond)
		if err != nil {
			t.Fatalf("Admit 失败: %v", err)
		}
		if !ok {
			t.Fatalf("第 %d 次请求应放行", i)
		}
	}

	ok, err := c.Admit(ctx, key, 5, 500*time.Millisecond)
	if err != nil || ok {
		t.Fatalf("第 6 次请求应拒绝 (ok=%v, err=%v)", ok, err)
	}

	time.Sleep(600 * time.Millisecond)

	ok, err = c.Admit(ctx, key, 5, 500*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("窗口过期后应放行 (ok=%v, err=%v)", ok, err)
	}
}

func TestAdmit_IndependentKeys(t *testing.T) {
	c := newIntegrationClient(t)
	ctx := context.Background()
	a, b := "consume:"+uuid.NewString(), "consume:"+uuid.NewString()

	if ok, _ := c.Admit(ctx, a, 1, time.Minute); !ok {
		t.Fatal("a 首次应放行")
	}
	if ok, _ := c.Admit(ctx, a, 1, time.Minute); ok {
		t.Fatal("a 第二次应拒绝")
	}
	if ok, _ := c.Admit(ctx, b, 1, time.Minute); !ok {
		t.Fatal("b 不应受 a 影响")
	}
}
