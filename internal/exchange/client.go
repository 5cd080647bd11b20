// Package exchange defines the client contract every exchange adapter
// implements and the factory building those clients from user credentials.
package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotSupported is returned by adapters for operations their vendor lacks.
var ErrNotSupported = errors.New("operation not supported by this exchange")

// OrderRequest describes an order to create. Price is nil for market orders.
type OrderRequest struct {
	Symbol string
	Type   OrderType
	Side   OrderSide
	Amount decimal.Decimal
	Price  *decimal.Decimal
	Params Object
}

// Client is a live, credentialed connection to one exchange account.
// Responses use unified field names (id, symbol, datetime, amount, ...).
type Client interface {
	ID() string

	CancelAllOrders(ctx context.Context, symbol string) ([]Object, error)
	CancelOrder(ctx context.Context, id, symbol string) (Object, error)
	CreateOrder(ctx context.Context, order OrderRequest) (Object, error)
	Describe(ctx context.Context) (Object, error)
	Deposit(ctx context.Context, code string, amount decimal.Decimal, params Object) (Object, error)
	FetchBalance(ctx context.Context) (Object, error)
	FetchClosedOrders(ctx context.Context, symbol string) ([]Object, error)
	FetchCurrencies(ctx context.Context) (Object, error)
	FetchDepositAddresses(ctx context.Context, codes []string) (Object, error)
	FetchMarkets(ctx context.Context) ([]Object, error)
	FetchMyTrades(ctx context.Context, symbol string, limit int) ([]Object, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, since *time.Time, limit int) ([]Object, error)
	FetchOpenOrder(ctx context.Context, id, symbol string) (Object, error)
	FetchOpenOrders(ctx context.Context, symbol string) ([]Object, error)
	FetchOrder(ctx context.Context, id, symbol string) (Object, error)
	FetchOrderBook(ctx context.Context, symbol string, limit int) (Object, error)
	FetchOrders(ctx context.Context, symbol string) ([]Object, error)
	FetchOrdersAllMarkets(ctx context.Context) ([]Object, error)
	FetchStatus(ctx context.Context) (Object, error)
	FetchTicker(ctx context.Context, symbol string) (Object, error)
	FetchTickers(ctx context.Context, symbols []string) (Object, error)
	FetchTrades(ctx context.Context, symbol string, limit int) ([]Object, error)
	FetchTradingFee(ctx context.Context, symbol string) (Object, error)
	SetSandboxMode(ctx context.Context, enabled bool) error
	Withdraw(ctx context.Context, code string, amount decimal.Decimal, address string, params Object) (Object, error)
}

// Unsupported answers every Client operation with ErrNotSupported. Adapters
// embed it and override what their vendor offers.
type Unsupported struct{}

func (Unsupported) CancelAllOrders(context.Context, string) ([]Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) CancelOrder(context.Context, string, string) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) CreateOrder(context.Context, OrderRequest) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) Describe(context.Context) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) Deposit(context.Context, string, decimal.Decimal, Object) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchBalance(context.Context) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchClosedOrders(context.Context, string) ([]Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchCurrencies(context.Context) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchDepositAddresses(context.Context, []string) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchMarkets(context.Context) ([]Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchMyTrades(context.Context, string, int) ([]Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOHLCV(context.Context, string, string, *time.Time, int) ([]Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOpenOrder(context.Context, string, string) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOpenOrders(context.Context, string) ([]Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOrder(context.Context, string, string) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOrderBook(context.Context, string, int) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOrders(context.Context, string) ([]Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchOrdersAllMarkets(context.Context) ([]Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchStatus(context.Context) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchTicker(context.Context, string) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchTickers(context.Context, []string) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchTrades(context.Context, string, int) ([]Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) FetchTradingFee(context.Context, string) (Object, error) {
	return nil, ErrNotSupported
}

func (Unsupported) SetSandboxMode(context.Context, bool) error {
	return ErrNotSupported
}

func (Unsupported) Withdraw(context.Context, string, decimal.Decimal, string, Object) (Object, error) {
	return nil, ErrNotSupported
}
