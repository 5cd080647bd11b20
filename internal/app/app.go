package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/robotter-ai/ccxt-telegram-api/internal/cypher"
	"github.com/robotter-ai/ccxt-telegram-api/internal/database"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange/coinbasepro"
	"github.com/robotter-ai/ccxt-telegram-api/internal/lock"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"github.com/robotter-ai/ccxt-telegram-api/internal/properties"
	"github.com/robotter-ai/ccxt-telegram-api/internal/secrets"
	"github.com/robotter-ai/ccxt-telegram-api/internal/server"
	"github.com/robotter-ai/ccxt-telegram-api/internal/telegram"
	"github.com/robotter-ai/ccxt-telegram-api/internal/tokens"
	"github.com/robotter-ai/ccxt-telegram-api/internal/users"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     Config
	properties *properties.Properties
	db         *database.Database
	locker     lock.Locker
	registry   *users.Registry
	catalog    *coinbasepro.Catalog
	scheduler  *cron.Cron
	sender     *telegram.Sender
	bot        *telegram.Handler
	server     *server.Server
}

// New reads the configuration and wires all components. Nothing is started.
func New() (*App, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	p, err := properties.Load(properties.Options{Directory: settings.ConfigDir})
	if err != nil {
		return nil, err
	}
	if err = applySecrets(settings, p); err != nil {
		return nil, err
	}
	config, err := newConfig(p, settings)
	if err != nil {
		return nil, err
	}
	logger.Configure(os.Stdout, config.LogLevel)
	logger.LogInfof("Configuration of environment %q loaded", p.Environment())

	return build(config, p)
}

func applySecrets(settings Settings, p *properties.Properties) error {
	source, err := secrets.New(secrets.Config{
		Enabled: settings.VaultEnabled,
		Address: settings.VaultAddress,
		Token:   settings.VaultToken,
		Path:    settings.VaultPath,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return source.Apply(ctx, p)
}

func build(config Config, p *properties.Properties) (*App, error) {
	a := &App{config: config, properties: p, scheduler: cron.New()}

	c, err := cypher.New(config.CypherPassword, config.CypherSalt)
	if err != nil {
		return nil, err
	}
	tokenService, err := tokens.NewService(config.TokenSecret, config.TokenExpiration)
	if err != nil {
		return nil, err
	}
	validator, err := users.NewValidator(config.APIKeyPattern, config.APISecretPattern)
	if err != nil {
		return nil, err
	}
	if a.locker, err = newLocker(config); err != nil {
		return nil, err
	}
	if a.db, err = database.Open(config.DatabasePath); err != nil {
		a.closeLocker()
		return nil, err
	}

	a.catalog = coinbasepro.NewCatalog()
	factory := exchange.NewFactory()
	factory.Register(coinbasepro.ExchangeID, coinbasepro.NewConstructor(a.catalog, config.ExchangeTimeout))

	a.sender = telegram.NewSender(config.TelegramToken, config.AdminChatID, config.MessageMaxLength)
	a.registry, err = users.NewRegistry(users.Options{
		Database:  a.db,
		Cypher:    c,
		Tokens:    tokenService,
		Factory:   factory,
		Locker:    a.locker,
		Validator: validator,
		MaxUsers:  config.MaxUsers,
		Notify:    a.sender.Notify,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.bot = telegram.NewHandler(a.registry, a.sender, telegram.Config{
		ExchangeID:          config.ExchangeID,
		ExchangeEnvironment: config.ExchangeEnvironment,
		ExchangeProtocol:    config.ExchangeProtocol,
		AdminChatID:         config.AdminChatID,
		AdminUsernames:      config.AdminUsernames,
		AllowedUsernames:    config.AllowedUsernames,
		LoginURL:            config.LoginURL,
		Timeout:             config.ExchangeTimeout,
		Version:             config.Version,
	})
	a.server = server.New(server.Options{
		Users:          a.registry,
		Exchanges:      factory.Supported,
		TelegramToken:  config.TelegramToken,
		AllowedOrigins: config.AllowedOrigins,
		TokenMaxAge:    config.TokenExpiration,
		Timeout:        config.ExchangeTimeout,
		Notify:         a.sender.SendAdmin,
	})

	if err = a.schedule(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// newLocker serializes user creation across instances when redis is
// configured, otherwise within the process.
func newLocker(config Config) (lock.Locker, error) {
	if config.RedisURL == "" {
		return lock.NewKeyedMutex(), nil
	}
	locker, err := lock.NewRedisLocker(config.RedisURL, config.LockTTL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = locker.Ping(ctx); err != nil {
		_ = locker.Close()
		return nil, err
	}
	return locker, nil
}

func (a *App) schedule() error {
	if _, err := a.catalog.Schedule(a.scheduler, a.config.CatalogSchedule); err != nil {
		return err
	}
	_, err := a.scheduler.AddFunc(a.config.TokenPruneSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		removed, err := a.registry.PruneExpiredTokens(ctx)
		if err != nil {
			logger.LogError(err, "token pruning")
			return
		}
		if removed > 0 {
			logger.LogInfof("Removed %d expired tokens", removed)
		}
	})
	return err
}

// Start runs the bot, the scheduled jobs and the HTTP server until SIGINT or
// SIGTERM is received.
func (a *App) Start() {
	defer a.sender.RecoverAndNotify()

	// Product ids are needed by the first websocket sessions
	go func() {
		_ = a.catalog.Refresh()
	}()
	a.scheduler.Start()
	go func() {
		defer a.sender.RecoverAndNotify()
		if err := a.bot.Poll(a.config.TelegramToken); err != nil {
			logger.LogError(err, "telegram polling")
		}
	}()

	termChan := make(chan os.Signal, 1) // Channel for terminating the app via os.Interrupt signal
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	httpServer := &http.Server{Addr: a.config.HTTPAddress, Handler: a.server.Handler()}
	go func() {
		<-termChan
		logger.LogInfo("SIGTERM received -> Shutdown process initiated")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.LogErrorIfExists(httpServer.Shutdown(ctx))
	}()

	logger.LogInfof("Starting server at %s", a.config.HTTPAddress)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.LogError(err)
	}
	a.close()
	logger.LogInfo("Shutdown complete")
}

// close releases everything New acquired, in reverse order.
func (a *App) close() {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	if a.registry != nil {
		a.registry.Close()
	}
	if a.db != nil {
		logger.LogErrorIfExists(a.db.Close())
	}
	a.closeLocker()
}

func (a *App) closeLocker() {
	if closer, ok := a.locker.(io.Closer); ok {
		logger.LogErrorIfExists(closer.Close())
	}
}
