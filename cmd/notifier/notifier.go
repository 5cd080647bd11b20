// Command notifier watches the orders of a single Coinbase Pro account and
// forwards every update to one Telegram chat, without the bot or the registry.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"

	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange/coinbasepro"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"github.com/robotter-ai/ccxt-telegram-api/internal/telegram"
	"github.com/robotter-ai/ccxt-telegram-api/internal/utils"
)

type settings struct {
	WebSocketURL   string `envconfig:"COINBASE_PRO_WEBSOCKET_URL" default:"wss://ws-feed.pro.coinbase.com"`
	Key            string `envconfig:"COINBASE_PRO_KEY" required:"true"`
	Passphrase     string `envconfig:"COINBASE_PRO_PASSPHRASE" required:"true"`
	Secret         string `envconfig:"COINBASE_PRO_SECRET" required:"true"`
	TelegramToken  string `envconfig:"TELEGRAM_TOKEN" required:"true"`
	TelegramChatID int64  `envconfig:"TELEGRAM_CHAT_ID" required:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	utils.CheckEnvVars("COINBASE_PRO_KEY", "COINBASE_PRO_PASSPHRASE", "COINBASE_PRO_SECRET", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID")
	var s settings
	utils.PanicOnError(envconfig.Process("", &s))
	logger.Configure(os.Stdout, s.LogLevel)

	catalog := coinbasepro.NewCatalog()
	utils.PanicOnError(catalog.Refresh())

	sender := telegram.NewSender(s.TelegramToken, s.TelegramChatID, telegram.MaxMessageLength)
	watcher := coinbasepro.NewWatcher(coinbasepro.WatcherConfig{
		URL:        s.WebSocketURL,
		Key:        s.Key,
		Secret:     s.Secret,
		Passphrase: s.Passphrase,
		Catalog:    catalog,
		Notify: func(text string) {
			sender.Notify(s.TelegramChatID, text)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	watcher.Start(ctx)
}
