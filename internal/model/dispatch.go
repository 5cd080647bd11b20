package model

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
)

// Args are the arguments of a method invoked by name. Named arguments win
// over positional ones; names match ignoring case and underscores.
type Args struct {
	Positional []interface{}
	Named      map[string]interface{}
}

func NewArgs(positional []interface{}, named map[string]interface{}) Args {
	normalized := make(map[string]interface{}, len(named))
	for key, value := range named {
		normalized[normalizeName(key)] = value
	}
	return Args{Positional: positional, Named: normalized}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

func (a Args) value(index int, name string) (interface{}, bool) {
	if value, ok := a.Named[normalizeName(name)]; ok && value != nil {
		return value, true
	}
	if index >= 0 && index < len(a.Positional) && a.Positional[index] != nil {
		return a.Positional[index], true
	}
	return nil, false
}

func (a Args) optionalString(index int, name string) string {
	value, ok := a.value(index, name)
	if !ok {
		return ""
	}
	return fmt.Sprint(value)
}

func (a Args) requiredString(index int, name string) (string, error) {
	value := a.optionalString(index, name)
	if value == "" {
		return "", apperror.NewValidationError(name, "is required")
	}
	return value, nil
}

func (a Args) optionalInt(index int, name string) (int, error) {
	value, ok := a.value(index, name)
	if !ok {
		return 0, nil
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	n, err := strconv.Atoi(fmt.Sprint(value))
	if err != nil {
		return 0, apperror.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func (a Args) requiredDecimal(index int, name string) (decimal.Decimal, error) {
	value, ok := a.value(index, name)
	if !ok {
		return decimal.Zero, apperror.NewValidationError(name, "is required")
	}
	if !isPositiveQuantity(value) {
		return decimal.Zero, apperror.NewValidationError(name, "must be a positive number")
	}
	return toDecimal(value), nil
}

func (a Args) optionalDecimal(index int, name string) (*decimal.Decimal, error) {
	if _, ok := a.value(index, name); !ok {
		return nil, nil
	}
	d, err := a.requiredDecimal(index, name)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (a Args) requiredBool(index int, name string) (bool, error) {
	value, ok := a.value(index, name)
	if !ok {
		return false, apperror.NewValidationError(name, "is required")
	}
	if b, ok := value.(bool); ok {
		return b, nil
	}
	b, err := strconv.ParseBool(fmt.Sprint(value))
	if err != nil {
		return false, apperror.NewValidationError(name, "must be true or false")
	}
	return b, nil
}

// optionalTime accepts epoch milliseconds or RFC 3339 text.
func (a Args) optionalTime(index int, name string) (*time.Time, error) {
	value, ok := a.value(index, name)
	if !ok {
		return nil, nil
	}
	var t time.Time
	switch v := value.(type) {
	case int:
		t = time.UnixMilli(int64(v))
	case int64:
		t = time.UnixMilli(v)
	case float64:
		t = time.UnixMilli(int64(v))
	default:
		parsed, err := time.Parse(time.RFC3339, fmt.Sprint(value))
		if err != nil {
			return nil, apperror.NewValidationError(name, "must be epoch milliseconds or an RFC 3339 time")
		}
		t = parsed
	}
	return &t, nil
}

// list collects a list argument, given either by name or as every
// positional argument from index on.
func (a Args) list(index int, name string) []string {
	if value, ok := a.Named[normalizeName(name)]; ok {
		switch v := value.(type) {
		case []string:
			return v
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, item := range v {
				out = append(out, fmt.Sprint(item))
			}
			return out
		case string:
			return strings.Split(v, ",")
		}
	}
	var out []string
	for i := index; i < len(a.Positional); i++ {
		out = append(out, fmt.Sprint(a.Positional[i]))
	}
	return out
}

func (a Args) params() exchange.Object {
	value, ok := a.Named["params"]
	if !ok {
		return nil
	}
	params, _ := value.(map[string]interface{})
	return params
}

type handler func(ctx context.Context, client exchange.Client, args Args) (interface{}, error)

var handlers = map[exchange.Method]handler{
	exchange.CancelAllOrders: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		return client.CancelAllOrders(ctx, args.optionalString(0, "symbol"))
	},
	exchange.CancelOrder: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		id, err := args.requiredString(0, "id")
		if err != nil {
			return nil, err
		}
		return client.CancelOrder(ctx, id, args.optionalString(1, "symbol"))
	},
	exchange.CreateOrder: createOrderHandler,
	exchange.Describe: func(ctx context.Context, client exchange.Client, _ Args) (interface{}, error) {
		return client.Describe(ctx)
	},
	exchange.Deposit: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		code, err := args.requiredString(0, "code")
		if err != nil {
			return nil, err
		}
		amount, err := args.requiredDecimal(1, "amount")
		if err != nil {
			return nil, err
		}
		return client.Deposit(ctx, SanitizeTokenID(code), amount, args.params())
	},
	exchange.FetchBalance: func(ctx context.Context, client exchange.Client, _ Args) (interface{}, error) {
		return client.FetchBalance(ctx)
	},
	exchange.FetchClosedOrders: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		return client.FetchClosedOrders(ctx, args.optionalString(0, "symbol"))
	},
	exchange.FetchCurrencies: func(ctx context.Context, client exchange.Client, _ Args) (interface{}, error) {
		return client.FetchCurrencies(ctx)
	},
	exchange.FetchDepositAddresses: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		return client.FetchDepositAddresses(ctx, args.list(0, "codes"))
	},
	exchange.FetchMarkets: func(ctx context.Context, client exchange.Client, _ Args) (interface{}, error) {
		return client.FetchMarkets(ctx)
	},
	exchange.FetchMyTrades: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		limit, err := args.optionalInt(1, "limit")
		if err != nil {
			return nil, err
		}
		return client.FetchMyTrades(ctx, args.optionalString(0, "symbol"), limit)
	},
	exchange.FetchOHLCV: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		symbol, err := args.requiredString(0, "symbol")
		if err != nil {
			return nil, err
		}
		timeframe := args.optionalString(1, "timeframe")
		if timeframe == "" {
			timeframe = "1m"
		}
		since, err := args.optionalTime(2, "since")
		if err != nil {
			return nil, err
		}
		limit, err := args.optionalInt(3, "limit")
		if err != nil {
			return nil, err
		}
		return client.FetchOHLCV(ctx, symbol, timeframe, since, limit)
	},
	exchange.FetchOpenOrder: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		id, err := args.requiredString(0, "id")
		if err != nil {
			return nil, err
		}
		return client.FetchOpenOrder(ctx, id, args.optionalString(1, "symbol"))
	},
	exchange.FetchOpenOrders: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		return client.FetchOpenOrders(ctx, args.optionalString(0, "symbol"))
	},
	exchange.FetchOrder: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		id, err := args.requiredString(0, "id")
		if err != nil {
			return nil, err
		}
		return client.FetchOrder(ctx, id, args.optionalString(1, "symbol"))
	},
	exchange.FetchOrderBook: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		symbol, err := args.requiredString(0, "symbol")
		if err != nil {
			return nil, err
		}
		limit, err := args.optionalInt(1, "limit")
		if err != nil {
			return nil, err
		}
		return client.FetchOrderBook(ctx, symbol, limit)
	},
	exchange.FetchOrders: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		return client.FetchOrders(ctx, args.optionalString(0, "symbol"))
	},
	exchange.FetchOrdersAllMarkets: func(ctx context.Context, client exchange.Client, _ Args) (interface{}, error) {
		return client.FetchOrdersAllMarkets(ctx)
	},
	exchange.FetchStatus: func(ctx context.Context, client exchange.Client, _ Args) (interface{}, error) {
		return client.FetchStatus(ctx)
	},
	exchange.FetchTicker: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		symbol, err := args.requiredString(0, "symbol")
		if err != nil {
			return nil, err
		}
		return client.FetchTicker(ctx, symbol)
	},
	exchange.FetchTickers: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		return client.FetchTickers(ctx, args.list(0, "symbols"))
	},
	exchange.FetchTrades: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		symbol, err := args.requiredString(0, "symbol")
		if err != nil {
			return nil, err
		}
		limit, err := args.optionalInt(1, "limit")
		if err != nil {
			return nil, err
		}
		return client.FetchTrades(ctx, symbol, limit)
	},
	exchange.FetchTradingFee: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		symbol, err := args.requiredString(0, "symbol")
		if err != nil {
			return nil, err
		}
		return client.FetchTradingFee(ctx, symbol)
	},
	exchange.SetSandboxMode: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		enabled, err := args.requiredBool(0, "enabled")
		if err != nil {
			return nil, err
		}
		if err = client.SetSandboxMode(ctx, enabled); err != nil {
			return nil, err
		}
		return exchange.Object{"sandbox": enabled}, nil
	},
	exchange.Withdraw: func(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
		code, err := args.requiredString(0, "code")
		if err != nil {
			return nil, err
		}
		amount, err := args.requiredDecimal(1, "amount")
		if err != nil {
			return nil, err
		}
		address, err := args.requiredString(2, "address")
		if err != nil {
			return nil, err
		}
		return client.Withdraw(ctx, SanitizeTokenID(code), amount, address, args.params())
	},
}

func createOrderHandler(ctx context.Context, client exchange.Client, args Args) (interface{}, error) {
	symbol, err := args.requiredString(0, "symbol")
	if err != nil {
		return nil, err
	}
	orderType, err := args.requiredString(1, "type")
	if err != nil {
		return nil, err
	}
	side, err := args.requiredString(2, "side")
	if err != nil {
		return nil, err
	}
	if err = ValidateOrderType(orderType); err != nil {
		return nil, err
	}
	if err = ValidateOrderSide(side); err != nil {
		return nil, err
	}
	amount, err := args.requiredDecimal(3, "amount")
	if err != nil {
		return nil, err
	}
	price, err := args.optionalDecimal(4, "price")
	if err != nil {
		return nil, err
	}
	return client.CreateOrder(ctx, exchange.OrderRequest{
		Symbol: SanitizeMarketID(symbol),
		Type:   SanitizeOrderType(orderType),
		Side:   SanitizeOrderSide(side),
		Amount: amount,
		Price:  price,
		Params: args.params(),
	})
}

// Dispatch invokes the method called name on client and shapes the result.
// Unknown names fail with *apperror.UnrecognizedCommandError before any call
// reaches the exchange. Exchange failures come back as
// *apperror.UpstreamExchangeError.
func Dispatch(ctx context.Context, client exchange.Client, name string, args Args) (interface{}, error) {
	method, err := exchange.FindMethod(name)
	if err != nil {
		return nil, err
	}
	handle, ok := handlers[method]
	if !ok {
		return nil, &apperror.UnrecognizedCommandError{Command: name}
	}

	result, err := handle(ctx, client, args)
	if err != nil {
		var validationErr *apperror.ValidationError
		if errors.As(err, &validationErr) {
			return nil, err
		}
		return nil, upstream(method, client, err)
	}
	return Shape(method, result), nil
}
