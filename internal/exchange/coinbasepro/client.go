// Package coinbasepro adapts the Coinbase Pro SDK to the exchange.Client
// contract and streams order updates of websocket sessions to the chat.
package coinbasepro

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/preichenberger/go-coinbasepro/v2"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
)

const (
	ExchangeID = "coinbasepro"

	ProductionURL          = "https://api.pro.coinbase.com"
	SandboxURL             = "https://api-public.sandbox.pro.coinbase.com"
	ProductionWebSocketURL = "wss://ws-feed.pro.coinbase.com"
	SandboxWebSocketURL    = "wss://ws-feed-public.sandbox.pro.coinbase.com"

	defaultTimeout = 25 * time.Second
)

// Client is the Coinbase Pro implementation of exchange.Client.
type Client struct {
	exchange.Unsupported

	options exchange.Options
	rest    api
	pages   pager
	sdk     *coinbasepro.Client
	watcher *Watcher

	mu      sync.RWMutex
	sandbox bool
}

// runWatcher runs the order watcher of a websocket handle.
var runWatcher = (*Watcher).Start

// NewConstructor returns the factory constructor. Websocket sessions share
// catalog for their channel subscriptions.
func NewConstructor(catalog *Catalog, timeout time.Duration) exchange.Constructor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return func(ctx context.Context, options exchange.Options) (exchange.Client, error) {
		return New(ctx, options, catalog, timeout)
	}
}

// New creates a Coinbase Pro client. For the websocket protocol an order
// watcher is started as well. It lives as long as the handle, ctx only
// contributes its values, and it is stopped by Close. Coinbase Pro has no
// FIX order entry for these accounts, so fix handles use REST.
func New(ctx context.Context, options exchange.Options, catalog *Catalog, timeout time.Duration) (*Client, error) {
	sandbox := options.Environment != exchange.Production
	sdk := &coinbasepro.Client{
		BaseURL:    baseURL(sandbox),
		Key:        options.APIKey,
		Passphrase: options.Passphrase,
		Secret:     options.APISecret,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		RetryCount: 0,
	}

	client := &Client{
		options: options,
		rest:    sdk,
		pages:   cursorPager{client: sdk},
		sdk:     sdk,
		sandbox: sandbox,
	}

	switch options.Protocol {
	case exchange.REST, exchange.FIX:
	case exchange.WebSocket:
		client.watcher = NewWatcher(WatcherConfig{
			URL:        webSocketURL(sandbox),
			Key:        options.APIKey,
			Secret:     options.APISecret,
			Passphrase: options.Passphrase,
			Catalog:    catalog,
			Notify:     options.Notify,
		})
		go runWatcher(client.watcher, context.WithoutCancel(ctx))
	default:
		return nil, fmt.Errorf("%w: protocol %q for %s", apperror.ErrExchangeNotAvailable, options.Protocol, ExchangeID)
	}

	return client, nil
}

func baseURL(sandbox bool) string {
	if sandbox {
		return SandboxURL
	}
	return ProductionURL
}

func webSocketURL(sandbox bool) string {
	if sandbox {
		return SandboxWebSocketURL
	}
	return ProductionWebSocketURL
}

func (c *Client) ID() string {
	return ExchangeID
}

// Close stops the order watcher of websocket sessions.
func (c *Client) Close() error {
	if c.watcher != nil {
		c.watcher.Stop()
	}
	return nil
}

func (c *Client) Describe(ctx context.Context) (exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	url := c.sdk.BaseURL
	c.mu.RUnlock()

	has := exchange.Object{}
	for _, method := range exchange.Methods() {
		has[method.String()] = supported[method]
	}

	return exchange.Object{
		"id":          ExchangeID,
		"name":        "Coinbase Pro",
		"environment": string(c.options.Environment),
		"protocol":    string(c.options.Protocol),
		"urls":        exchange.Object{"api": url},
		"timeframes":  timeframes(),
		"has":         has,
		"apiKey":      c.options.APIKey,
		"secret":      c.options.APISecret,
		"password":    c.options.Passphrase,
	}, nil
}

func (c *Client) FetchBalance(ctx context.Context) (exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	accounts, err := c.rest.GetAccounts()
	if err != nil {
		return nil, err
	}
	return convertBalance(accounts), nil
}

func (c *Client) FetchOpenOrders(ctx context.Context, symbol string) ([]exchange.Object, error) {
	return c.listOrders(ctx, "open", symbol)
}

func (c *Client) FetchClosedOrders(ctx context.Context, symbol string) ([]exchange.Object, error) {
	return c.listOrders(ctx, "done", symbol)
}

func (c *Client) FetchOrders(ctx context.Context, symbol string) ([]exchange.Object, error) {
	return c.listOrders(ctx, "all", symbol)
}

func (c *Client) FetchOrdersAllMarkets(ctx context.Context) ([]exchange.Object, error) {
	return c.listOrders(ctx, "all", "")
}

func (c *Client) listOrders(ctx context.Context, status, symbol string) ([]exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	productID := ""
	if symbol != "" {
		productID = toProductID(symbol)
	}
	orders, err := c.pages.Orders(status, productID)
	if err != nil {
		return nil, err
	}
	return convertOrders(orders), nil
}

func (c *Client) FetchOrder(ctx context.Context, id, _ string) (exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	order, err := c.rest.GetOrder(id)
	if err != nil {
		return nil, err
	}
	return convertOrder(order), nil
}

// FetchOpenOrder fails with apperror.ErrNotFound when the order is no longer open.
func (c *Client) FetchOpenOrder(ctx context.Context, id, symbol string) (exchange.Object, error) {
	order, err := c.FetchOrder(ctx, id, symbol)
	if err != nil {
		return nil, err
	}
	if order["status"] != exchange.StatusOpen {
		return nil, fmt.Errorf("open order %s %w", id, apperror.ErrNotFound)
	}
	return order, nil
}

func (c *Client) CreateOrder(ctx context.Context, request exchange.OrderRequest) (exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	order, err := c.rest.CreateOrder(newOrder(request))
	if err != nil {
		return nil, err
	}
	logger.LogInfof("Order %s placed on %s", order.ID, order.ProductID)
	return convertOrder(order), nil
}

func (c *Client) CancelOrder(ctx context.Context, id, symbol string) (exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.rest.CancelOrder(id); err != nil {
		return nil, err
	}
	return exchange.Object{"id": id, "symbol": symbol, "status": exchange.StatusCanceled}, nil
}

func (c *Client) CancelAllOrders(ctx context.Context, symbol string) ([]exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var params []coinbasepro.CancelAllOrdersParams
	if symbol != "" {
		params = append(params, coinbasepro.CancelAllOrdersParams{ProductID: toProductID(symbol)})
	}
	ids, err := c.rest.CancelAllOrders(params...)
	if err != nil {
		return nil, err
	}
	result := make([]exchange.Object, 0, len(ids))
	for _, id := range ids {
		result = append(result, exchange.Object{"id": id, "symbol": symbol, "status": exchange.StatusCanceled})
	}
	return result, nil
}

func (c *Client) FetchMarkets(ctx context.Context) ([]exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	products, err := c.rest.GetProducts()
	if err != nil {
		return nil, err
	}
	result := make([]exchange.Object, 0, len(products))
	for _, product := range products {
		result = append(result, convertMarket(product))
	}
	return result, nil
}

func (c *Client) FetchCurrencies(ctx context.Context) (exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	currencies, err := c.rest.GetCurrencies()
	if err != nil {
		return nil, err
	}
	result := exchange.Object{}
	for _, currency := range currencies {
		result[currency.ID] = convertCurrency(currency)
	}
	return result, nil
}

func (c *Client) FetchTicker(ctx context.Context, symbol string) (exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker, err := c.rest.GetTicker(toProductID(symbol))
	if err != nil {
		return nil, err
	}
	return convertTicker(toSymbol(toProductID(symbol)), ticker), nil
}

// FetchTickers queries one ticker per symbol, Coinbase Pro has no batch endpoint.
func (c *Client) FetchTickers(ctx context.Context, symbols []string) (exchange.Object, error) {
	if len(symbols) == 0 {
		return nil, apperror.NewValidationError("symbols", "at least one market is required")
	}
	result := exchange.Object{}
	for _, symbol := range symbols {
		ticker, err := c.FetchTicker(ctx, symbol)
		if err != nil {
			return nil, err
		}
		result[ticker["symbol"].(string)] = ticker
	}
	return result, nil
}

func (c *Client) FetchOrderBook(ctx context.Context, symbol string, limit int) (exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	level := 2
	if limit <= 0 || limit > 50 {
		level = 3
	}
	book, err := c.rest.GetBook(toProductID(symbol), level)
	if err != nil {
		return nil, err
	}
	result := convertOrderBook(toSymbol(toProductID(symbol)), book, limit)
	result["datetime"] = datetime(time.Now())
	return result, nil
}

func (c *Client) FetchOHLCV(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) ([]exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timeframe == "" {
		timeframe = "1m"
	}
	granularity, ok := granularities[timeframe]
	if !ok {
		return nil, apperror.NewValidationError("timeframe", fmt.Sprintf("unsupported timeframe %q", timeframe))
	}

	params := coinbasepro.GetHistoricRatesParams{Granularity: granularity}
	if since != nil {
		params.Start = *since
		count := limit
		if count <= 0 {
			count = 300
		}
		params.End = since.Add(time.Duration(granularity*count) * time.Second)
	}

	rates, err := c.rest.GetHistoricRates(toProductID(symbol), params)
	if err != nil {
		return nil, err
	}
	rates = truncate(rates, limit)
	result := make([]exchange.Object, 0, len(rates))
	for _, rate := range rates {
		result = append(result, convertCandle(rate))
	}
	return result, nil
}

func (c *Client) FetchTrades(ctx context.Context, symbol string, limit int) ([]exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trades, err := c.pages.Trades(toProductID(symbol), limit)
	if err != nil {
		return nil, err
	}
	unified := toSymbol(toProductID(symbol))
	result := make([]exchange.Object, 0, len(trades))
	for _, trade := range trades {
		result = append(result, convertTrade(unified, trade))
	}
	return result, nil
}

func (c *Client) FetchMyTrades(ctx context.Context, symbol string, limit int) ([]exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fills, err := c.pages.Fills(toProductID(symbol), limit)
	if err != nil {
		return nil, err
	}
	result := make([]exchange.Object, 0, len(fills))
	for _, fill := range fills {
		result = append(result, convertFill(fill))
	}
	return result, nil
}

func (c *Client) FetchStatus(ctx context.Context) (exchange.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	serverTime, err := c.rest.GetTime()
	if err != nil {
		return nil, err
	}
	return exchange.Object{"status": "ok", "updated": serverTime.ISO}, nil
}

// SetSandboxMode points the REST client at the sandbox or production API.
func (c *Client) SetSandboxMode(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sandbox = enabled
	c.sdk.BaseURL = baseURL(enabled)
	return nil
}

// Operations answered by the embedded exchange.Unsupported are listed false.
var supported = map[exchange.Method]bool{
	exchange.CancelAllOrders:       true,
	exchange.CancelOrder:           true,
	exchange.CreateOrder:           true,
	exchange.Describe:              true,
	exchange.Deposit:               false,
	exchange.FetchBalance:          true,
	exchange.FetchClosedOrders:     true,
	exchange.FetchCurrencies:       true,
	exchange.FetchDepositAddresses: false,
	exchange.FetchMarkets:          true,
	exchange.FetchMyTrades:         true,
	exchange.FetchOHLCV:            true,
	exchange.FetchOpenOrder:        true,
	exchange.FetchOpenOrders:       true,
	exchange.FetchOrder:            true,
	exchange.FetchOrderBook:        true,
	exchange.FetchOrders:           true,
	exchange.FetchOrdersAllMarkets: true,
	exchange.FetchStatus:           true,
	exchange.FetchTicker:           true,
	exchange.FetchTickers:          true,
	exchange.FetchTrades:           true,
	exchange.FetchTradingFee:       false,
	exchange.SetSandboxMode:        true,
	exchange.Withdraw:              false,
}

func timeframes() exchange.Object {
	result := exchange.Object{}
	for name, seconds := range granularities {
		result[name] = seconds
	}
	return result
}

var _ exchange.Client = (*Client)(nil)
