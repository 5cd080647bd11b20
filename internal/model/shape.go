package model

import (
	"fmt"

	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
)

const masked = "****"

var (
	orderFields       = []string{"id", "clientOrderId", "datetime", "symbol", "type", "side", "price", "amount", "filled", "status", "fee"}
	cancelledFields   = []string{"id", "clientOrderId", "timestamp", "datetime", "symbol", "type", "side", "price", "amount", "filled", "status", "fee"}
	orderDetailFields = []string{"id", "clientOrderId", "datetime", "status", "symbol", "type", "side", "price", "amount", "filled", "fees"}
	marketFields      = []string{"id", "symbol", "base", "quote", "baseId", "quoteId", "taker", "maker"}
	candleFields      = []string{"open", "high", "low", "close", "volume"}
	tickerFields      = []string{"symbol", "datetime", "last"}
	tradeFields       = []string{"id", "order", "datetime", "symbol", "type", "side", "price", "amount", "fee"}
	tradingFeeFields  = []string{"symbol", "maker", "taker"}
	currencyFields    = []string{"id", "numericId", "precision", "name"}
	addressFields     = []string{"currency", "address", "network", "tag"}
	secretFields      = []string{"apiKey", "secret", "password"}
	balanceNoise      = []string{"info", "timestamp", "datetime"}
)

type shaper func(result interface{}) interface{}

// shapers reduces each method's result to the fields worth showing. Methods
// missing here pass their result through.
var shapers = map[exchange.Method]shaper{
	exchange.CancelAllOrders:       eachPicked(cancelledFields),
	exchange.CancelOrder:           picked(orderFields),
	exchange.CreateOrder:           picked(orderFields),
	exchange.Describe:              describe,
	exchange.FetchBalance:          balance,
	exchange.FetchClosedOrders:     eachPicked(orderFields),
	exchange.FetchCurrencies:       valuesPicked(currencyFields),
	exchange.FetchDepositAddresses: depositAddresses,
	exchange.FetchMarkets:          keyedPicked("symbol", marketFields),
	exchange.FetchMyTrades:         eachPicked(tradeFields),
	exchange.FetchOHLCV:            keyedPicked("timestamp", candleFields),
	exchange.FetchOpenOrder:        picked(orderDetailFields),
	exchange.FetchOpenOrders:       eachPicked(orderFields),
	exchange.FetchOrder:            picked(orderDetailFields),
	exchange.FetchOrderBook:        orderBook,
	exchange.FetchOrders:           eachPicked(orderDetailFields),
	exchange.FetchOrdersAllMarkets: eachPicked(orderDetailFields),
	exchange.FetchStatus:           picked([]string{"status"}),
	exchange.FetchTicker:           picked(tickerFields),
	exchange.FetchTickers:          valuesPicked(tickerFields),
	exchange.FetchTrades:           eachPicked(tradeFields),
	exchange.FetchTradingFee:       picked(tradingFeeFields),
}

// Shape applies the output table of method to result.
func Shape(method exchange.Method, result interface{}) interface{} {
	if result == nil {
		return nil
	}
	if shape, ok := shapers[method]; ok {
		return shape(result)
	}
	return result
}

func pick(object exchange.Object, fields []string) exchange.Object {
	if object == nil {
		return nil
	}
	out := make(exchange.Object, len(fields))
	for _, field := range fields {
		out[field] = object[field]
	}
	return out
}

func picked(fields []string) shaper {
	return func(result interface{}) interface{} {
		object, ok := result.(exchange.Object)
		if !ok {
			return result
		}
		return pick(object, fields)
	}
}

func eachPicked(fields []string) shaper {
	return func(result interface{}) interface{} {
		items, ok := result.([]exchange.Object)
		if !ok {
			return result
		}
		out := make([]exchange.Object, 0, len(items))
		for _, item := range items {
			out = append(out, pick(item, fields))
		}
		return out
	}
}

func valuesPicked(fields []string) shaper {
	return func(result interface{}) interface{} {
		object, ok := result.(exchange.Object)
		if !ok {
			return result
		}
		out := make(exchange.Object, len(object))
		for key, value := range object {
			if nested, ok := value.(exchange.Object); ok {
				out[key] = pick(nested, fields)
			}
		}
		return out
	}
}

// keyedPicked turns a list into an object keyed by the key field of each item.
func keyedPicked(key string, fields []string) shaper {
	return func(result interface{}) interface{} {
		items, ok := result.([]exchange.Object)
		if !ok {
			return result
		}
		out := make(exchange.Object, len(items))
		for _, item := range items {
			out[fmt.Sprint(item[key])] = pick(item, fields)
		}
		return out
	}
}

func describe(result interface{}) interface{} {
	object, ok := result.(exchange.Object)
	if !ok {
		return result
	}
	out := copyObject(object)
	for _, field := range secretFields {
		out[field] = masked
	}
	return out
}

func balance(result interface{}) interface{} {
	object, ok := result.(exchange.Object)
	if !ok {
		return result
	}
	out := copyObject(object)
	for _, field := range balanceNoise {
		delete(out, field)
	}
	return out
}

func depositAddresses(result interface{}) interface{} {
	object, ok := result.(exchange.Object)
	if !ok {
		return result
	}
	object = copyObject(object)
	delete(object, "info")
	return valuesPicked(addressFields)(object)
}

func orderBook(result interface{}) interface{} {
	object, ok := result.(exchange.Object)
	if !ok {
		return result
	}
	return exchange.Object{
		"bids":     bookSide(object["bids"]),
		"asks":     bookSide(object["asks"]),
		"datetime": object["datetime"],
		"symbol":   object["symbol"],
	}
}

func bookSide(side interface{}) []exchange.Object {
	var levels [][]interface{}
	switch s := side.(type) {
	case [][]interface{}:
		levels = s
	case []interface{}:
		for _, level := range s {
			if l, ok := level.([]interface{}); ok {
				levels = append(levels, l)
			}
		}
	}
	out := make([]exchange.Object, 0, len(levels))
	for _, level := range levels {
		if len(level) < 2 {
			continue
		}
		out = append(out, exchange.Object{"price": level[0], "amount": level[1]})
	}
	return out
}

func copyObject(object exchange.Object) exchange.Object {
	out := make(exchange.Object, len(object))
	for key, value := range object {
		out[key] = value
	}
	return out
}
