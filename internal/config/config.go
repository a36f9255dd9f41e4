package config

import (
	"os"
	"strconv"
)

// Config yankey-ledger（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}

	// DBEnabled=false 时使用内存仓库（本地开发 fallback）
	DBEnabled bool

	// 控制面数据库（merchants 表）
	AdminDSN string

	// 商户分区 DSN 模板，包含一个 "{}" 替换点（替换为 merchant_id）
	// 如 "host=localhost user=postgres dbname=yankey_{} sslmode=disable"
	TenantDSNTemplate string

	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}

	Log struct {
		Level  string
		Format string
	}

	Telegram TelegramConfig
}

// TelegramConfig Telegram 通知配置（可选，用于最近动态推送）
type TelegramConfig struct {
	Enabled  bool   // 默认 false
	BotToken string // Bot API token
	ChatID   string // 接收通知的 chat
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable the service falls
	// back to in-memory repositories instead of refusing to start.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.AdminDSN = getEnv("ADMIN_DATABASE_URL",
		"host=localhost port=5432 user=postgres password=postgres dbname=yankey_admin sslmode=disable")
	cfg.TenantDSNTemplate = getEnv("DATABASE_URL_TEMPLATE",
		"host=localhost port=5432 user=postgres password=postgres dbname=yankey_{} sslmode=disable")

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// Telegram 通知（默认禁用）
	cfg.Telegram.Enabled = getEnv("TELEGRAM_ENABLED", "false") == "true"
	cfg.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.Telegram.ChatID = getEnv("TELEGRAM_CHAT_ID", "")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
