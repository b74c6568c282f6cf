package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Token     TokenConfig     `mapstructure:"token"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Mail      MailConfig      `mapstructure:"mail"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int        `mapstructure:"port"`
	BaseURL        string     `mapstructure:"base_url"` // 拼接邀请链接：{base_url}/l/{token}
	TrustedProxies []string   `mapstructure:"trusted_proxies"`
	CORS           CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
// Driver 为 postgres（默认）或 sqlite（本地开发，Path 为文件路径）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（仅 ratelimit.backend=redis 时使用）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 管理端 JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// TokenConfig 邀请令牌配置
type TokenConfig struct {
	Pepper     string `mapstructure:"pepper"`
	ByteLength int    `mapstructure:"byte_length"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Backend       string        `mapstructure:"backend"` // memory | redis
	ConsumeLimit  int           `mapstructure:"consume_limit"`
	ConsumeWindow time.Duration `mapstructure:"consume_window"`
	PreviewLimit  int           `mapstructure:"preview_limit"`
	PreviewWindow time.Duration `mapstructure:"preview_window"`
}

// MailConfig SMTP 邮件配置
type MailConfig struct {
	SMTPHost  string  `mapstructure:"smtp_host"`
	SMTPPort  int     `mapstructure:"smtp_port"`
	Username  string  `mapstructure:"username"`
	Password  string  `mapstructure:"password"`
	From      string  `mapstructure:"from"`
	SendRate  float64 `mapstructure:"send_rate"` // 每秒最多发送封数
	SendBurst int     `mapstructure:"send_burst"`
}

// Enabled SMTP 是否已配置
func (c *MailConfig) Enabled() bool {
	return c.SMTPHost != "" && c.SMTPPort > 0
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:3000")
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.path", "linksharing.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "linksharing")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 无默认值的密钥也需注册，AutomaticEnv 才能在 Unmarshal 时生效
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("token.pepper", "")
	v.SetDefault("token.byte_length", 32)

	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.consume_limit", 5)
	v.SetDefault("ratelimit.consume_window", "60s")
	v.SetDefault("ratelimit.preview_limit", 30)
	v.SetDefault("ratelimit.preview_window", "60s")

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "contact@mathmaroc.org")
	v.SetDefault("mail.send_rate", 5)
	v.SetDefault("mail.send_burst", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("LINKSHARING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Token.Pepper == "" {
		return fmt.Errorf("配置校验失败: token.pepper 不能为空")
	}
	if c.Token.ByteLength < 16 {
		return fmt.Errorf("配置校验失败: token.byte_length 不能少于 16")
	}
	if strings.TrimSpace(c.Server.BaseURL) == "" {
		return fmt.Errorf("配置校验失败: server.base_url 不能为空")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres 或 sqlite")
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("配置校验失败: ratelimit.backend 仅支持 memory 或 redis")
	}
	if c.RateLimit.ConsumeLimit <= 0 || c.RateLimit.ConsumeWindow <= 0 {
		return fmt.Errorf("配置校验失败: ratelimit.consume_limit 与 consume_window 必须大于 0")
	}
	return nil
}

// InviteURL 拼接邀请链接
func (c *ServerConfig) InviteURL(token string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/l/" + token
}
