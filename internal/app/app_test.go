package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/properties"
)

func loadProperties(t *testing.T, yml string, env map[string]string) *properties.Properties {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.yml"), []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := properties.Load(properties.Options{
		Directory: dir,
		LookupEnv: func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

const testYAML = `
environment: development
cypher:
  password: pa55word
  salt: salty
telegram:
  admin:
    chat_id: ""
    usernames: alice, bob
exchange:
  default:
    environment: staging
`

func TestNewConfig(t *testing.T) {
	p := loadProperties(t, testYAML, map[string]string{"TELEGRAM_ADMIN_CHAT_ID": "12345"})
	config, err := newConfig(p, Settings{TelegramToken: "bot-token", HTTPAddress: ":9090"})
	if err != nil {
		t.Fatal(err)
	}

	if config.TelegramToken != "bot-token" {
		t.Errorf("TelegramToken = %q", config.TelegramToken)
	}
	if config.HTTPAddress != ":9090" {
		t.Errorf("HTTPAddress = %q, want the environment value", config.HTTPAddress)
	}
	if config.AdminChatID != 12345 {
		t.Errorf("AdminChatID = %d", config.AdminChatID)
	}
	if len(config.AdminUsernames) != 2 || config.AdminUsernames[1] != "bob" {
		t.Errorf("AdminUsernames = %v", config.AdminUsernames)
	}
	if config.TokenSecret != "pa55word" {
		t.Errorf("TokenSecret should fall back to the cypher password, got %q", config.TokenSecret)
	}
	if config.TokenExpiration != 30*time.Minute {
		t.Errorf("TokenExpiration = %v", config.TokenExpiration)
	}
	if config.ExchangeEnvironment != exchange.Staging || config.ExchangeProtocol != exchange.REST {
		t.Errorf("exchange = %s/%s", config.ExchangeEnvironment, config.ExchangeProtocol)
	}
	if config.MaxUsers != 100 {
		t.Errorf("MaxUsers = %d", config.MaxUsers)
	}
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		env  map[string]string
	}{
		{name: "missing cypher", yml: "environment: development\n"},
		{name: "bad chat id", yml: testYAML, env: map[string]string{"TELEGRAM_ADMIN_CHAT_ID": "not-a-number"}},
		{name: "bad environment", yml: "cypher:\n  password: a\n  salt: b\nexchange:\n  default:\n    environment: moon\n"},
		{name: "bad protocol", yml: "cypher:\n  password: a\n  salt: b\nexchange:\n  default:\n    protocol: pigeon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := loadProperties(t, tt.yml, tt.env)
			if _, err := newConfig(p, Settings{TelegramToken: "t"}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBuildWiresComponents(t *testing.T) {
	p := loadProperties(t, testYAML, nil)
	config, err := newConfig(p, Settings{TelegramToken: "bot-token"})
	if err != nil {
		t.Fatal(err)
	}
	config.DatabasePath = filepath.Join(t.TempDir(), "database.sqlite3")

	a, err := build(config, p)
	if err != nil {
		t.Fatal(err)
	}
	defer a.close()

	if a.registry == nil || a.bot == nil || a.server == nil || a.server.Handler() == nil {
		t.Fatal("components not wired")
	}
	// catalog refresh and token pruning
	if entries := a.scheduler.Entries(); len(entries) != 2 {
		t.Errorf("scheduled jobs = %d, want 2", len(entries))
	}
}
