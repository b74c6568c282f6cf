package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aminemahd13/linksharing/config"
	"github.com/aminemahd13/linksharing/internal/api/handler"
	"github.com/aminemahd13/linksharing/internal/api/router"
	"github.com/aminemahd13/linksharing/internal/model"
	"github.com/aminemahd13/linksharing/internal/repository"
	"github.com/aminemahd13/linksharing/internal/service"
	"github.com/aminemahd13/linksharing/pkg/database"
	"github.com/aminemahd13/linksharing/pkg/jwt"
	applogger "github.com/aminemahd13/linksharing/pkg/logger"
	"github.com/aminemahd13/linksharing/pkg/mailer"
	"github.com/aminemahd13/linksharing/pkg/ratelimit"
	"github.com/aminemahd13/linksharing/pkg/redis"
	"github.com/aminemahd13/linksharing/pkg/token"
)

func main() {
	// 1. 加载配置（pepper / base_url / jwt_secret 缺失时直接退出）
	cfg, err := config.Load(os.Getenv("LINKSHARING_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("ratelimit_backend", cfg.RateLimit.Backend),
	)

	// 3. 连接数据库并迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if cfg.Database.Driver == "sqlite" {
		err = database.AutoMigrate(db, logger, model.All()...)
	} else {
		err = database.RunMigrations(sqlDB, logger)
	}
	if err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 令牌摘要
	hasher, err := token.NewHasher(cfg.Token.Pepper)
	if err != nil {
		logger.Fatal("初始化令牌摘要失败", zap.Error(err))
	}

	// 5. 限流后端：多实例部署时使用 Redis 共享计数
	var (
		limiter ratelimit.Limiter = ratelimit.NewMemory()
		rdb     *redis.Client
	)
	if cfg.RateLimit.Backend == "redis" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Redis 连接失败", zap.Error(err))
		}
		limiter = rdb
	}

	// 6. 邀请邮件
	var notifier service.Notifier = service.NopNotifier{Logger: logger}
	if cfg.Mail.Enabled() {
		notifier = mailer.NewSMTP(&cfg.Mail, logger)
	}

	// 7. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, hasher, limiter, notifier, logger)
	h := handler.NewHandler(svc)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, limiter, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // 批量发送邀请耗时较长
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sqlDB.Close()
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
