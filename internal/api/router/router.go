package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aminemahd13/linksharing/config"
	"github.com/aminemahd13/linksharing/internal/api/handler"
	"github.com/aminemahd13/linksharing/internal/api/middleware"
	"github.com/aminemahd13/linksharing/pkg/jwt"
	"github.com/aminemahd13/linksharing/pkg/ratelimit"
)

const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter ratelimit.Limiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ClientIP 只信任配置的反向代理转发的 X-Forwarded-For
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("trusted_proxies 配置无效，忽略转发头", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 公开：落地页预览与兑换（兑换限流在 RedeemService 内，先于任何查询）
		links := v1.Group("/l")
		{
			links.GET("/:token",
				middleware.RateLimit(limiter, "preview", cfg.RateLimit.PreviewLimit, cfg.RateLimit.PreviewWindow, logger),
				h.Redeem.Preview)
			links.POST("/:token/consume", h.Redeem.Consume)
		}

		// 管理端
		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(jwtMgr), middleware.RoleAuth("admin"))
		{
			admin.GET("/links", h.Link.ListLinks)
			admin.POST("/links", h.Link.IssueLink)
			admin.POST("/links/:id/regenerate", h.Link.Regenerate)
			admin.POST("/links/:id/resend", h.Link.Resend)
			admin.POST("/links/:id/deactivate", h.Link.Deactivate)
			admin.POST("/links/:id/reactivate", h.Link.Reactivate)
			admin.POST("/links/:id/expire", h.Link.Expire)
			admin.POST("/links/:id/copy", h.Link.CopyLink)
			admin.DELETE("/links/:id", h.Link.DeleteLink)

			admin.POST("/campaigns/:id/send", h.Link.SendCampaign)
		}
	}

	return r
}
