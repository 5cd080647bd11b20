package exchange

import (
	"sort"
	"strings"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
)

// Method names an operation of the exchange client that may be invoked by
// name from chat or HTTP.
type Method string

const (
	CancelAllOrders       Method = "cancelAllOrders"
	CancelOrder           Method = "cancelOrder"
	CreateOrder           Method = "createOrder"
	Describe              Method = "describe"
	Deposit               Method = "deposit"
	FetchBalance          Method = "fetchBalance"
	FetchClosedOrders     Method = "fetchClosedOrders"
	FetchCurrencies       Method = "fetchCurrencies"
	FetchDepositAddresses Method = "fetchDepositAddresses"
	FetchMarkets          Method = "fetchMarkets"
	FetchMyTrades         Method = "fetchMyTrades"
	FetchOHLCV            Method = "fetchOHLCV"
	FetchOpenOrder        Method = "fetchOpenOrder"
	FetchOpenOrders       Method = "fetchOpenOrders"
	FetchOrder            Method = "fetchOrder"
	FetchOrderBook        Method = "fetchOrderBook"
	FetchOrders           Method = "fetchOrders"
	FetchOrdersAllMarkets Method = "fetchOrdersAllMarkets"
	FetchStatus           Method = "fetchStatus"
	FetchTicker           Method = "fetchTicker"
	FetchTickers          Method = "fetchTickers"
	FetchTrades           Method = "fetchTrades"
	FetchTradingFee       Method = "fetchTradingFee"
	SetSandboxMode        Method = "setSandboxMode"
	Withdraw              Method = "withdraw"
)

// private reports whether a method needs account credentials.
var private = map[Method]bool{
	CancelAllOrders:       true,
	CancelOrder:           true,
	CreateOrder:           true,
	Describe:              false,
	Deposit:               true,
	FetchBalance:          true,
	FetchClosedOrders:     true,
	FetchCurrencies:       true,
	FetchDepositAddresses: true,
	FetchMarkets:          true,
	FetchMyTrades:         true,
	FetchOHLCV:            true,
	FetchOpenOrder:        true,
	FetchOpenOrders:       true,
	FetchOrder:            true,
	FetchOrderBook:        true,
	FetchOrders:           true,
	FetchOrdersAllMarkets: true,
	FetchStatus:           true,
	FetchTicker:           true,
	FetchTickers:          true,
	FetchTrades:           true,
	FetchTradingFee:       true,
	SetSandboxMode:        true,
	Withdraw:              true,
}

var byNormalizedName = func() map[string]Method {
	index := make(map[string]Method, len(private))
	for method := range private {
		index[normalize(string(method))] = method
	}
	return index
}()

func (m Method) String() string {
	return string(m)
}

func (m Method) IsPrivate() bool {
	return private[m]
}

// FindMethod looks name up ignoring case and underscores, so fetch_balance,
// FETCHBALANCE and fetchBalance all match.
func FindMethod(name string) (Method, error) {
	if method, ok := byNormalizedName[normalize(name)]; ok {
		return method, nil
	}
	return "", &apperror.UnrecognizedCommandError{Command: name}
}

// Methods lists every known method in lexical order.
func Methods() []Method {
	out := make([]Method, 0, len(private))
	for method := range private {
		out = append(out, method)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normalize(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}
