package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aminemahd13/linksharing/pkg/ratelimit"
	"github.com/aminemahd13/linksharing/pkg/response"
)

// RateLimit 固定窗口限流中间件，按 scope + 客户端 IP 计数
// 限流后端出错时降级放行
func RateLimit(limiter ratelimit.Limiter, scope string, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := scope + ":" + c.ClientIP()
		allowed, err := limiter.Admit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流后端不可用，放行请求", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
