package coinbasepro

import (
	"strings"
	"time"

	"github.com/preichenberger/go-coinbasepro/v2"
	"github.com/shopspring/decimal"

	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/utils"
)

// Coinbase Pro names products BASE-QUOTE, unified symbols are BASE/QUOTE.
func toProductID(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", "-"))
}

func toSymbol(productID string) string {
	return strings.ReplaceAll(productID, "-", "/")
}

func datetime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func timestamp(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func number(value string) interface{} {
	if value == "" {
		return nil
	}
	return float(utils.StringToDecimal(value))
}

func float(value decimal.Decimal) float64 {
	f, _ := value.Float64()
	return f
}

// orderStatus maps the vendor lifecycle onto open, closed and canceled.
func orderStatus(order coinbasepro.Order) string {
	switch order.Status {
	case "open", "pending", "active", "received":
		return exchange.StatusOpen
	case "rejected":
		return exchange.StatusRejected
	case "done", "settled":
		if order.DoneReason == "canceled" {
			return exchange.StatusCanceled
		}
		return exchange.StatusClosed
	default:
		return order.Status
	}
}

func convertOrder(order coinbasepro.Order) exchange.Object {
	created := order.CreatedAt.Time()
	amount := utils.StringToDecimal(order.Size)
	filled := utils.StringToDecimal(order.FilledSize)

	var remaining interface{}
	if order.Size != "" {
		remaining = float(amount.Sub(filled))
	}

	var average interface{}
	if executed := utils.StringToDecimal(order.ExecutedValue); filled.IsPositive() {
		average = float(executed.Div(filled))
	}

	fee := exchange.Object{"cost": number(order.FillFees)}
	return exchange.Object{
		"id":            order.ID,
		"clientOrderId": nilIfEmpty(order.ClientOID),
		"symbol":        toSymbol(order.ProductID),
		"type":          order.Type,
		"side":          order.Side,
		"price":         number(order.Price),
		"amount":        number(order.Size),
		"filled":        number(order.FilledSize),
		"remaining":     remaining,
		"average":       average,
		"cost":          number(order.ExecutedValue),
		"status":        orderStatus(order),
		"fee":           fee,
		"fees":          []interface{}{fee},
		"timeInForce":   nilIfEmpty(order.TimeInForce),
		"postOnly":      order.PostOnly,
		"timestamp":     timestamp(created),
		"datetime":      datetime(created),
	}
}

func convertOrders(orders []coinbasepro.Order) []exchange.Object {
	result := make([]exchange.Object, 0, len(orders))
	for _, order := range orders {
		result = append(result, convertOrder(order))
	}
	return result
}

// convertBalance builds the unified balance document with free, used and total
// maps keyed by currency next to a per currency entry.
func convertBalance(accounts []coinbasepro.Account) exchange.Object {
	free, used, total := exchange.Object{}, exchange.Object{}, exchange.Object{}
	result := exchange.Object{}
	for _, account := range accounts {
		entry := exchange.Object{
			"free":  number(account.Available),
			"used":  number(account.Hold),
			"total": number(account.Balance),
		}
		result[account.Currency] = entry
		free[account.Currency] = entry["free"]
		used[account.Currency] = entry["used"]
		total[account.Currency] = entry["total"]
	}
	result["free"] = free
	result["used"] = used
	result["total"] = total
	return result
}

func convertMarket(product coinbasepro.Product) exchange.Object {
	return exchange.Object{
		"id":      product.ID,
		"symbol":  toSymbol(product.ID),
		"base":    product.BaseCurrency,
		"quote":   product.QuoteCurrency,
		"baseId":  product.BaseCurrency,
		"quoteId": product.QuoteCurrency,
		"name":    product.DisplayName,
		"limits": exchange.Object{
			"amount": exchange.Object{"min": number(product.BaseMinSize), "max": number(product.BaseMaxSize)},
		},
		"precision": exchange.Object{
			"amount": number(product.BaseIncrement),
			"price":  number(product.QuoteIncrement),
		},
	}
}

func convertCurrency(currency coinbasepro.Currency) exchange.Object {
	return exchange.Object{
		"id":        currency.ID,
		"code":      currency.ID,
		"numericId": nil,
		"name":      currency.Name,
		"precision": number(currency.MinSize),
		"limits": exchange.Object{
			"amount": exchange.Object{"min": number(currency.MinSize)},
		},
	}
}

func convertTicker(symbol string, ticker coinbasepro.Ticker) exchange.Object {
	at := ticker.Time.Time()
	return exchange.Object{
		"symbol":    symbol,
		"last":      number(ticker.Price),
		"close":     number(ticker.Price),
		"bid":       number(ticker.Bid),
		"ask":       number(ticker.Ask),
		"timestamp": timestamp(at),
		"datetime":  datetime(at),
	}
}

func convertBookSide(entries []coinbasepro.BookEntry, limit int) [][]interface{} {
	entries = truncate(entries, limit)
	result := make([][]interface{}, 0, len(entries))
	for _, entry := range entries {
		result = append(result, []interface{}{number(entry.Price), number(entry.Size)})
	}
	return result
}

func convertOrderBook(symbol string, book coinbasepro.Book, limit int) exchange.Object {
	return exchange.Object{
		"symbol": symbol,
		"bids":   convertBookSide(book.Bids, limit),
		"asks":   convertBookSide(book.Asks, limit),
		"nonce":  book.Sequence,
	}
}

func convertTrade(symbol string, trade coinbasepro.Trade) exchange.Object {
	at := trade.Time.Time()
	return exchange.Object{
		"id":        trade.TradeID,
		"symbol":    symbol,
		"side":      trade.Side,
		"price":     number(trade.Price),
		"amount":    number(trade.Size),
		"timestamp": timestamp(at),
		"datetime":  datetime(at),
	}
}

func convertFill(fill coinbasepro.Fill) exchange.Object {
	at := fill.CreatedAt.Time()
	return exchange.Object{
		"id":           fill.TradeID,
		"order":        fill.FillID,
		"symbol":       toSymbol(fill.ProductID),
		"side":         fill.Side,
		"price":        number(fill.Price),
		"amount":       number(fill.Size),
		"fee":          exchange.Object{"cost": number(fill.Fee)},
		"takerOrMaker": liquidity(fill.Liquidity),
		"timestamp":    timestamp(at),
		"datetime":     datetime(at),
	}
}

func liquidity(flag string) string {
	switch flag {
	case "M":
		return "maker"
	case "T":
		return "taker"
	default:
		return flag
	}
}

// convertCandle keys a candle by timestamp, open, high, low, close and volume.
func convertCandle(rate coinbasepro.HistoricRate) exchange.Object {
	return exchange.Object{
		"timestamp": rate.Time.UnixMilli(),
		"open":      rate.Open,
		"high":      rate.High,
		"low":       rate.Low,
		"close":     rate.Close,
		"volume":    rate.Volume,
	}
}

var granularities = map[string]int{
	"1m":  60,
	"5m":  300,
	"15m": 900,
	"1h":  3600,
	"6h":  21600,
	"1d":  86400,
}

// newOrder builds the SDK order for a unified request.
func newOrder(request exchange.OrderRequest) *coinbasepro.Order {
	order := &coinbasepro.Order{
		Type:      string(request.Type),
		Side:      string(request.Side),
		ProductID: toProductID(request.Symbol),
		Size:      request.Amount.String(),
	}
	if request.Price != nil && request.Type == exchange.Limit {
		order.Price = request.Price.String()
	}
	if value, ok := request.Params["clientOrderId"].(string); ok {
		order.ClientOID = value
	}
	if value, ok := request.Params["timeInForce"].(string); ok {
		order.TimeInForce = value
	}
	if value, ok := request.Params["postOnly"].(bool); ok {
		order.PostOnly = value
	}
	return order
}

func nilIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
