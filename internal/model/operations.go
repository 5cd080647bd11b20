package model

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
)

// Balance is the holding of one token.
type Balance struct {
	Token string  `json:"token"`
	Free  float64 `json:"free"`
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// PlaceOrderRequest is the input of PlaceOrder. Price is ignored for market
// orders.
type PlaceOrderRequest struct {
	MarketID string
	Type     string
	Side     string
	Amount   interface{}
	Price    interface{}
}

// GetBalance returns the holding of tokenID, ErrNotFound when there is none.
func GetBalance(ctx context.Context, client exchange.Client, tokenID string) (*Balance, error) {
	if err := ValidateGetBalance(tokenID); err != nil {
		return nil, err
	}
	tokenID = SanitizeTokenID(tokenID)

	balances, err := GetBalances(ctx, client)
	if err != nil {
		return nil, err
	}
	for i := range balances {
		if balances[i].Token == tokenID {
			return &balances[i], nil
		}
	}
	return nil, fmt.Errorf("balance of %s %w", tokenID, apperror.ErrNotFound)
}

// GetBalances returns every non zero holding ordered by token, case
// insensitively, then by descending total.
func GetBalances(ctx context.Context, client exchange.Client) ([]Balance, error) {
	response, err := client.FetchBalance(ctx)
	if err != nil {
		return nil, upstream(exchange.FetchBalance, client, err)
	}

	totals, _ := response["total"].(exchange.Object)
	balances := make([]Balance, 0, len(totals))
	for token, total := range totals {
		amount, ok := toFloat(total)
		if !ok || amount <= 0 {
			continue
		}
		balance := Balance{Token: token, Total: amount}
		if detail, ok := response[token].(exchange.Object); ok {
			balance.Free, _ = toFloat(detail["free"])
			balance.Used, _ = toFloat(detail["used"])
		}
		balances = append(balances, balance)
	}

	sort.Slice(balances, func(i, j int) bool {
		a, b := strings.ToLower(balances[i].Token), strings.ToLower(balances[j].Token)
		if a != b {
			return a < b
		}
		return balances[i].Total > balances[j].Total
	})
	return balances, nil
}

func GetOpenOrders(ctx context.Context, client exchange.Client, marketID string) ([]exchange.Object, error) {
	if err := ValidateGetOpenOrders(marketID); err != nil {
		return nil, err
	}
	response, err := client.FetchOpenOrders(ctx, SanitizeMarketID(marketID))
	if err != nil {
		return nil, upstream(exchange.FetchOpenOrders, client, err)
	}
	return eachPicked(orderFields)(response).([]exchange.Object), nil
}

func MarketBuyOrder(ctx context.Context, client exchange.Client, marketID string, amount interface{}) (exchange.Object, error) {
	return marketOrder(ctx, client, exchange.Buy, marketID, amount)
}

func MarketSellOrder(ctx context.Context, client exchange.Client, marketID string, amount interface{}) (exchange.Object, error) {
	return marketOrder(ctx, client, exchange.Sell, marketID, amount)
}

func LimitBuyOrder(ctx context.Context, client exchange.Client, marketID string, amount, price interface{}) (exchange.Object, error) {
	return limitOrder(ctx, client, exchange.Buy, marketID, amount, price)
}

func LimitSellOrder(ctx context.Context, client exchange.Client, marketID string, amount, price interface{}) (exchange.Object, error) {
	return limitOrder(ctx, client, exchange.Sell, marketID, amount, price)
}

// PlaceOrder creates any order. A rejected order is reduced to its status.
func PlaceOrder(ctx context.Context, client exchange.Client, request PlaceOrderRequest) (exchange.Object, error) {
	if err := ValidatePlaceOrder(request.MarketID, request.Type, request.Side, request.Amount, request.Price); err != nil {
		return nil, err
	}
	order := exchange.OrderRequest{
		Symbol: SanitizeMarketID(request.MarketID),
		Type:   SanitizeOrderType(request.Type),
		Side:   SanitizeOrderSide(request.Side),
		Amount: SanitizeOrderAmount(request.Amount),
	}
	if order.Type == exchange.Limit {
		price := SanitizeOrderPrice(request.Price)
		order.Price = &price
	}

	response, err := createOrder(ctx, client, order)
	if err != nil {
		return nil, err
	}
	if response["status"] == exchange.StatusRejected {
		return exchange.Object{"status": response["status"]}, nil
	}
	return response, nil
}

func marketOrder(ctx context.Context, client exchange.Client, side exchange.OrderSide, marketID string, amount interface{}) (exchange.Object, error) {
	if err := ValidateMarketOrder(marketID, amount); err != nil {
		return nil, err
	}
	return createOrder(ctx, client, exchange.OrderRequest{
		Symbol: SanitizeMarketID(marketID),
		Type:   exchange.Market,
		Side:   side,
		Amount: SanitizeOrderAmount(amount),
	})
}

func limitOrder(ctx context.Context, client exchange.Client, side exchange.OrderSide, marketID string, amount, price interface{}) (exchange.Object, error) {
	if err := ValidateLimitOrder(marketID, amount, price); err != nil {
		return nil, err
	}
	sanitizedPrice := SanitizeOrderPrice(price)
	return createOrder(ctx, client, exchange.OrderRequest{
		Symbol: SanitizeMarketID(marketID),
		Type:   exchange.Limit,
		Side:   side,
		Amount: SanitizeOrderAmount(amount),
		Price:  &sanitizedPrice,
	})
}

func createOrder(ctx context.Context, client exchange.Client, order exchange.OrderRequest) (exchange.Object, error) {
	response, err := client.CreateOrder(ctx, order)
	if err != nil {
		return nil, upstream(exchange.CreateOrder, client, err)
	}
	return pick(response, orderFields), nil
}

func upstream(method exchange.Method, client exchange.Client, err error) error {
	return &apperror.UpstreamExchangeError{Method: string(method), ExchangeID: client.ID(), Err: err}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
