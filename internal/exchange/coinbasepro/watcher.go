package coinbasepro

import (
	"context"
	"sync"
	"time"

	"github.com/preichenberger/go-coinbasepro/v2"
	"github.com/recws-org/recws"

	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"github.com/robotter-ai/ccxt-telegram-api/internal/utils"
)

type WatcherConfig struct {
	URL        string
	Key        string
	Secret     string
	Passphrase string
	Catalog    *Catalog
	Notify     exchange.Notifier
}

// Watcher subscribes to the authenticated user channel and forwards order
// updates through Notify.
type Watcher struct {
	config WatcherConfig
	ws     *recws.RecConn
	order  chan OrderMessage

	stopOnce  sync.Once
	terminate chan struct{}
}

func NewWatcher(config WatcherConfig) *Watcher {
	return &Watcher{
		config:    config,
		order:     make(chan OrderMessage, 5),
		terminate: make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	w.ws = recws.New(
		recws.WithKeepAliveTimeout(10*time.Second),
		recws.WithReconnectInterval(2*time.Second, 256*time.Second, 2),
		recws.WithSubscribeHandler(w.subscribeHandler),
	)
	w.ws.Dial(w.config.URL, nil)

	for {
		select {
		case <-ctx.Done():
			w.ws.Shutdown()
			return
		case <-w.terminate:
			w.ws.Shutdown()
			logger.LogInfof("Closing watcher for %q", w.config.URL)
			return
		case orderMessage := <-w.order:
			w.notify(orderMessage.String())
		}
	}
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.terminate)
	})
}

// Close implements io.Closer.
func (w *Watcher) Close() error {
	w.Stop()
	return nil
}

func (w *Watcher) notify(text string) {
	if text == "" || w.config.Notify == nil {
		return
	}
	w.config.Notify(text)
}

func (w *Watcher) productIDs() []string {
	if w.config.Catalog == nil {
		return nil
	}
	return w.config.Catalog.ProductIDs()
}

func (w *Watcher) handleWebSocketMessage(message coinbasepro.Message) {
	switch message.Type {
	case MessageTypeActivate, MessageTypeChange, MessageTypeDone, MessageTypeMatch, MessageTypeOpen, MessageTypeReceived:
		logger.LogDebug("Order-Message", message.Type, message.OrderID)
		select {
		case w.order <- newOrderMessage(message):
		case <-w.terminate:
		}
	case MessageTypeError:
		logger.LogWarn("ErrorMessage", message.Message)
		if message.Message == authenticationFailed {
			w.notify("Coinbase Pro authentication failed. Please check your API settings in order to get informed about your order changes.")
		}
	case MessageTypeSubscriptions:
		logger.LogInfo("Successfully subscribed to channels", message.Channels)
	case MessageTypeStatus:
		logger.LogDebug("Status-Message", message.Type)
	default:
		logger.LogInfof("Received message of unknown type %q", message.Type)
	}
}

func (w *Watcher) subscribeHandler() error {
	subscribeMessage := coinbasepro.Message{
		Type: MessageTypeSubscribe,
		Channels: []coinbasepro.MessageChannel{
			{
				Name:       ChannelTypeUser,
				ProductIds: w.productIDs(),
			},
		},
	}

	signed, err := subscribeMessage.Sign(w.config.Secret, w.config.Key, w.config.Passphrase)
	if utils.HasError(err) {
		logger.LogError(err)
		return nil
	}

	err = w.ws.WriteJSON(signed)
	if utils.HasError(err) {
		logger.LogError(err)
		return nil
	}

	go func() {
		for {
			var message coinbasepro.Message
			if err := w.ws.ReadJSON(&message); utils.HasError(err) {
				logger.LogError(err)
				return
			}
			w.handleWebSocketMessage(message)
		}
	}()

	return nil
}
