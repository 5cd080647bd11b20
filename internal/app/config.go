package app

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/properties"
	"github.com/robotter-ai/ccxt-telegram-api/internal/utils"
)

// Settings are the boot values read from the process environment, and from
// a .env file when present.
type Settings struct {
	Environment   string `envconfig:"ENVIRONMENT"`
	ConfigDir     string `envconfig:"CONFIG_DIR" default:"resources/configuration"`
	TelegramToken string `envconfig:"TELEGRAM_TOKEN" required:"true"`
	DatabaseFile  string `envconfig:"DATABASE_FILE"`
	HTTPAddress   string `envconfig:"HTTP_ADDRESS"`
	VaultEnabled  bool   `envconfig:"VAULT_ENABLED" default:"false"`
	VaultAddress  string `envconfig:"VAULT_ADDR"`
	VaultToken    string `envconfig:"VAULT_TOKEN"`
	VaultPath     string `envconfig:"VAULT_SECRET_PATH" default:"secret/data/ccxt-telegram-api"`
}

func loadSettings() (Settings, error) {
	utils.CheckEnvVars("TELEGRAM_TOKEN")
	var settings Settings
	if err := envconfig.Process("", &settings); err != nil {
		return settings, fmt.Errorf("failed to read environment settings: %w", err)
	}
	return settings, nil
}

// Config is the resolved configuration of all components.
type Config struct {
	Version             string
	LogLevel            string
	DatabasePath        string
	HTTPAddress         string
	AllowedOrigins      []string
	CypherPassword      string
	CypherSalt          string
	TokenSecret         string
	TokenExpiration     time.Duration
	MaxUsers            int
	APIKeyPattern       string
	APISecretPattern    string
	ExchangeID          string
	ExchangeEnvironment exchange.Environment
	ExchangeProtocol    exchange.Protocol
	ExchangeTimeout     time.Duration
	RedisURL            string
	LockTTL             time.Duration
	TelegramToken       string
	AdminChatID         int64
	AdminUsernames      []string
	AllowedUsernames    []string
	LoginURL            string
	MessageMaxLength    int
	CatalogSchedule     string
	TokenPruneSchedule  string
}

func newConfig(p *properties.Properties, settings Settings) (Config, error) {
	c := Config{
		Version:            p.GetString("version", "dev"),
		LogLevel:           p.GetString("logging.level", "info"),
		DatabasePath:       p.GetString("database.path", "resources/database/database.sqlite3"),
		HTTPAddress:        p.GetString("server.address", ":8080"),
		AllowedOrigins:     p.GetStringSlice("server.cors.origins", nil),
		CypherPassword:     p.GetString("cypher.password", ""),
		CypherSalt:         p.GetString("cypher.salt", ""),
		TokenSecret:        p.GetString("authentication.jwt.secret", ""),
		TokenExpiration:    p.GetDuration("authentication.jwt.token.expiration", 30*time.Minute),
		MaxUsers:           p.GetInt("users.max", 100),
		APIKeyPattern:      p.GetString("users.validation.exchange_api_key", ""),
		APISecretPattern:   p.GetString("users.validation.exchange_api_secret", ""),
		ExchangeID:         p.GetString("exchange.default.id", "coinbasepro"),
		ExchangeTimeout:    p.GetDuration("exchange.timeout", 25*time.Second),
		RedisURL:           p.GetString("redis.url", ""),
		LockTTL:            p.GetDuration("redis.lock_ttl", 10*time.Second),
		TelegramToken:      p.GetString("telegram.token", settings.TelegramToken),
		AdminUsernames:     p.GetStringSlice("telegram.admin.usernames", nil),
		AllowedUsernames:   p.GetStringSlice("telegram.allowed_usernames", nil),
		LoginURL:           p.GetString("telegram.login_url", ""),
		MessageMaxLength:   p.GetInt("telegram.message.max_length", 4096),
		CatalogSchedule:    p.GetString("cron.catalog", ""),
		TokenPruneSchedule: p.GetString("cron.tokens", "@every 10m"),
	}

	if settings.DatabaseFile != "" {
		c.DatabasePath = settings.DatabaseFile
	}
	if settings.HTTPAddress != "" {
		c.HTTPAddress = settings.HTTPAddress
	}
	if c.TelegramToken == "" {
		c.TelegramToken = settings.TelegramToken
	}
	if c.TokenSecret == "" {
		c.TokenSecret = c.CypherPassword
	}
	if adminChatID := p.GetString("telegram.admin.chat_id", ""); adminChatID != "" {
		id, err := strconv.ParseInt(adminChatID, 10, 64)
		if err != nil {
			return c, fmt.Errorf("telegram.admin.chat_id must be numeric: %w", err)
		}
		c.AdminChatID = id
	}

	var err error
	if c.ExchangeEnvironment, err = exchange.ParseEnvironment(p.GetString("exchange.default.environment", properties.EnvironmentProduction)); err != nil {
		return c, err
	}
	if c.ExchangeProtocol, err = exchange.ParseProtocol(p.GetString("exchange.default.protocol", string(exchange.REST))); err != nil {
		return c, err
	}

	if c.CypherPassword == "" || c.CypherSalt == "" {
		return c, fmt.Errorf("cypher.password and cypher.salt must be configured")
	}
	return c, nil
}
