package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// MailboxConfig 定义邮箱服务的核心业务配置
type MailboxConfig struct {
	AllowedDomains []string      // 允许接收邮件的域名列表，第一项用于签发新邮箱地址
	SweepInterval  time.Duration // 过期邮箱清理周期，默认 10 分钟
}

// SMTPConfig 定义 SMTP 邮件接收服务器的配置
type SMTPConfig struct {
	BindAddr string // SMTP 服务监听地址，格式 "host:port"，默认 ":25"
	Domain   string // SMTP 服务器域名，用于 HELO/EHLO 响应
	MaxConns int    // 最大并发连接数，默认 100
	MaxRate  int    // 每秒最大新建连接数，默认 20
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Enabled  bool          // 是否启用地址查找缓存
	Address  string        // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string        // Redis 认证密码，留空表示无密码
	DB       int           // Redis 数据库编号，默认 0
	CacheTTL time.Duration // 缓存条目有效期，默认 5 分钟
}

// AuthConfig 定义认证相关配置
type AuthConfig struct {
	Secret      string        // 令牌签名密钥，必须至少 32 字符
	TokenExpiry time.Duration // 令牌有效期，默认 720h（30 天）
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig
	Mailbox  MailboxConfig
	SMTP     SMTPConfig
	CORS     CORSConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
}

// Load 从环境变量和 .env 文件加载系统配置。
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: VMAIL_
// 例如: VMAIL_SERVER_PORT, VMAIL_AUTH_SECRET
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，.env 是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("vmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("mailbox.allowed_domains", "vmail.dev")
	viper.SetDefault("mailbox.sweep_interval", "10m")
	viper.SetDefault("smtp.bind_addr", ":25")
	viper.SetDefault("smtp.domain", "vmail.dev")
	viper.SetDefault("smtp.max_conns", 100)
	viper.SetDefault("smtp.max_rate", 20)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cache_ttl", "5m")
	viper.SetDefault("auth.secret", "change-me-in-production")
	viper.SetDefault("auth.token_expiry", "720h")

	domainList := parseDomains(viper.GetString("mailbox.allowed_domains"))
	if len(domainList) == 0 {
		return nil, fmt.Errorf("mailbox.allowed_domains must not be empty")
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("mailbox.sweep_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid mailbox.sweep_interval: %w", err)
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	cacheTTL, err := time.ParseDuration(viper.GetString("redis.cache_ttl"))
	if err != nil {
		cacheTTL = 5 * time.Minute
	}

	tokenExpiry, err := time.ParseDuration(viper.GetString("auth.token_expiry"))
	if err != nil {
		tokenExpiry = 30 * 24 * time.Hour
	}

	secret := viper.GetString("auth.secret")

	// 安全检查：禁止使用默认密钥
	if secret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: auth secret cannot be the default value. Please set VMAIL_AUTH_SECRET environment variable")
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: auth secret must be at least 32 characters long")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Mailbox: MailboxConfig{
			AllowedDomains: domainList,
			SweepInterval:  sweepInterval,
		},
		SMTP: SMTPConfig{
			BindAddr: viper.GetString("smtp.bind_addr"),
			Domain:   viper.GetString("smtp.domain"),
			MaxConns: viper.GetInt("smtp.max_conns"),
			MaxRate:  viper.GetInt("smtp.max_rate"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			CacheTTL: cacheTTL,
		},
		Auth: AuthConfig{
			Secret:      secret,
			TokenExpiry: tokenExpiry,
		},
	}

	return cfg, nil
}

// PrimaryDomain 返回签发新邮箱地址使用的域名（域名列表的第一项）。
func (c *Config) PrimaryDomain() string {
	return c.Mailbox.AllowedDomains[0]
}

// parseDomains 将逗号分隔的域名字符串解析为小写域名数组。
func parseDomains(value string) []string {
	out := parseList(value)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// parseList 将逗号分隔的字符串解析为字符串切片。
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载当前目录或父目录的 .env 文件。
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
