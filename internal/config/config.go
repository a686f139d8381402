package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds application configuration
type Config struct {
	TelegramToken string  `env:"TELEGRAM_TOKEN,BOT_TOKEN" env-description:"Telegram bot token"`
	AdminUserIDs  []int64 `env:"ADMIN_USER_IDS,ADMIN_ID" env-separator:"," env-description:"comma-separated operator user IDs"`
	BotLang       string  `env:"BOT_LANG" env-default:"en" env-description:"bot language (en, ru)"`
	LogLevel      string  `env:"LOG_LEVEL" env-default:"INFO"`

	StorageBackend string `env:"STORAGE_BACKEND" env-default:"json" env-description:"json, sqlite or mongo"`
	DataDir        string `env:"DATA_DIR" env-default:"./data"`
	DatabasePath   string `env:"DATABASE_PATH" env-default:"./data/bot.db"`
	MongoURI       string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	MongoDatabase  string `env:"MONGO_DATABASE" env-default:"linker"`

	CountdownTick         time.Duration `env:"COUNTDOWN_TICK" env-default:"3s"`
	PinNoticeWindow       time.Duration `env:"PIN_NOTICE_WINDOW" env-default:"5s"`
	NoticeTTL             time.Duration `env:"NOTICE_TTL" env-default:"10s"`
	PromotionPollInterval time.Duration `env:"PROMOTION_POLL_INTERVAL" env-default:"15s"`
	PromotionPollTimeout  time.Duration `env:"PROMOTION_POLL_TIMEOUT" env-default:"1h"`
	DefaultLinkArgs       string        `env:"DEFAULT_LINK_ARGS" env-default:"1 30m"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Usage returns a description of all supported environment variables
func Usage() string {
	desc, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return ""
	}
	return desc
}

func (c *Config) validate() error {
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN environment variable is required")
	}

	ids := make([]int64, 0, len(c.AdminUserIDs))
	for _, id := range c.AdminUserIDs {
		if id != 0 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("ADMIN_USER_IDS environment variable is required")
	}
	c.AdminUserIDs = ids

	c.BotLang = strings.ToLower(strings.TrimSpace(c.BotLang))

	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case BackendJSON, BackendSQLite, BackendMongo:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND '%s': must be one of json, sqlite, mongo", c.StorageBackend)
	}

	durations := map[string]time.Duration{
		"COUNTDOWN_TICK":          c.CountdownTick,
		"PIN_NOTICE_WINDOW":       c.PinNoticeWindow,
		"NOTICE_TTL":              c.NoticeTTL,
		"PROMOTION_POLL_INTERVAL": c.PromotionPollInterval,
		"PROMOTION_POLL_TIMEOUT":  c.PromotionPollTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("invalid %s '%s': must be positive", name, d)
		}
	}

	return nil
}
