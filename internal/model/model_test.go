package model

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
)

type fakeClient struct {
	exchange.Unsupported

	calls   int
	orders  []exchange.OrderRequest
	balance exchange.Object
	status  string
	err     error
}

func (f *fakeClient) ID() string { return "demo" }

func (f *fakeClient) FetchBalance(context.Context) (exchange.Object, error) {
	f.calls++
	return f.balance, f.err
}

func (f *fakeClient) FetchOpenOrders(_ context.Context, symbol string) ([]exchange.Object, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []exchange.Object{order(symbol, "open")}, nil
}

func (f *fakeClient) CreateOrder(_ context.Context, request exchange.OrderRequest) (exchange.Object, error) {
	f.calls++
	f.orders = append(f.orders, request)
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == "" {
		status = "open"
	}
	return order(request.Symbol, status), nil
}

func (f *fakeClient) Describe(context.Context) (exchange.Object, error) {
	f.calls++
	return exchange.Object{"id": "demo", "apiKey": "key", "secret": "secret", "password": "pass"}, nil
}

func (f *fakeClient) FetchOrderBook(_ context.Context, symbol string, _ int) (exchange.Object, error) {
	f.calls++
	return exchange.Object{
		"symbol":   symbol,
		"bids":     [][]interface{}{{100.0, 2.0}},
		"asks":     [][]interface{}{{101.0, 1.0}, {102.0, 3.0}},
		"datetime": "2024-01-01T00:00:00Z",
		"nonce":    7,
	}, nil
}

func (f *fakeClient) FetchMarkets(context.Context) ([]exchange.Object, error) {
	f.calls++
	return []exchange.Object{{"id": "BTC-USD", "symbol": "BTC/USD", "base": "BTC", "quote": "USD", "active": true}}, nil
}

func order(symbol, status string) exchange.Object {
	return exchange.Object{
		"id": "1", "clientOrderId": nil, "symbol": symbol, "type": "limit", "side": "buy",
		"price": 10.0, "amount": 1.0, "filled": 0.0, "status": status, "fee": exchange.Object{"cost": 0.0},
		"datetime": "2024-01-01T00:00:00Z", "timestamp": int64(1704067200000), "info": exchange.Object{"raw": true},
	}
}

func mustDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestValidateOrderQuantities(t *testing.T) {
	tests := []struct {
		value interface{}
		valid bool
	}{
		{"1", true},
		{"0.5", true},
		{"10.25", true},
		{0.1, true},
		{3, true},
		{mustDecimal("2"), true},
		{"0", false},
		{"0.0", false},
		{"-1", false},
		{"1e3", false},
		{"abc", false},
		{"", false},
		{0.0, false},
		{-2.5, false},
		{nil, false},
		{true, false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
		{math.NaN(), false},
		{float32(math.Inf(1)), false},
	}
	for _, tt := range tests {
		if err := ValidateOrderAmount(tt.value); (err == nil) != tt.valid {
			t.Errorf("ValidateOrderAmount(%#v) error = %v, valid %v", tt.value, err, tt.valid)
		}
		if err := ValidateOrderPrice(tt.value); (err == nil) != tt.valid {
			t.Errorf("ValidateOrderPrice(%#v) error = %v, valid %v", tt.value, err, tt.valid)
		}
	}
}

func TestInfiniteQuantitiesAreRejected(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	var validationErr *apperror.ValidationError

	if _, err := MarketBuyOrder(ctx, client, "BTC/USD", math.Inf(1)); !errors.As(err, &validationErr) {
		t.Errorf("MarketBuyOrder(+Inf) error = %v", err)
	}
	if _, err := LimitSellOrder(ctx, client, "BTC/USD", 1.0, math.Inf(1)); !errors.As(err, &validationErr) {
		t.Errorf("LimitSellOrder(price +Inf) error = %v", err)
	}
	if _, err := Dispatch(ctx, client, "withdraw", NewArgs([]interface{}{"btc", math.Inf(1), "address"}, nil)); !errors.As(err, &validationErr) || validationErr.Field != "amount" {
		t.Errorf("Dispatch(withdraw +Inf) error = %v", err)
	}
	if len(client.orders) != 0 {
		t.Errorf("orders = %v", client.orders)
	}
}

func TestValidateIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		field string
	}{
		{"token ok", ValidateTokenID("btc"), ""},
		{"token too long", ValidateTokenID("BITCOIN"), "token"},
		{"market ok", ValidateMarketID("btc/usdt"), ""},
		{"market without separator", ValidateMarketID("BTCUSDT"), ""},
		{"market bad", ValidateMarketID("BTC/"), "market"},
		{"type ok", ValidateOrderType("LIMIT"), ""},
		{"type bad", ValidateOrderType("stop"), "type"},
		{"side ok", ValidateOrderSide("Sell"), ""},
		{"side bad", ValidateOrderSide("hold"), "side"},
		{"exchange ok", ValidateExchangeID("coinbasepro"), ""},
		{"exchange bad", ValidateExchangeID("coinbase-pro"), "exchangeId"},
		{"sub account ok", ValidateSubAccountID(12), ""},
		{"sub account bad", ValidateSubAccountID("-1"), "subAccountId"},
		{"limit without price", ValidatePlaceOrder("BTC/USD", "limit", "buy", "1", nil), "price"},
		{"market without price", ValidatePlaceOrder("BTC/USD", "market", "buy", "1", nil), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.field == "" {
				if tt.err != nil {
					t.Errorf("error = %v", tt.err)
				}
				return
			}
			var validationErr *apperror.ValidationError
			if !errors.As(tt.err, &validationErr) || validationErr.Field != tt.field {
				t.Errorf("error = %v, want field %q", tt.err, tt.field)
			}
		})
	}
}

func TestSanitizers(t *testing.T) {
	if got := SanitizeMarketID(" btc/usdt "); got != "BTC/USDT" {
		t.Errorf("SanitizeMarketID() = %q", got)
	}
	if got := SanitizeTokenID("eth"); got != "ETH" {
		t.Errorf("SanitizeTokenID() = %q", got)
	}
	if got := SanitizeOrderSide("BUY"); got != exchange.Buy {
		t.Errorf("SanitizeOrderSide() = %q", got)
	}
	if got := SanitizeExchangeID("CoinbasePro"); got != "coinbasepro" {
		t.Errorf("SanitizeExchangeID() = %q", got)
	}
	if got := SanitizeSubAccountID("42"); got != 42 {
		t.Errorf("SanitizeSubAccountID() = %d", got)
	}
	if got := SanitizeOrderAmount("0.25"); !got.Equal(mustDecimal("0.25")) {
		t.Errorf("SanitizeOrderAmount() = %s", got)
	}
	if got := SanitizeOrderPrice(2); !got.Equal(decimal.New(2, 0)) {
		t.Errorf("SanitizeOrderPrice() = %s", got)
	}
}

func TestGetBalances(t *testing.T) {
	client := &fakeClient{balance: exchange.Object{
		"info":  exchange.Object{},
		"BTC":   exchange.Object{"free": 1.0, "used": 0.5, "total": 1.5},
		"eth":   exchange.Object{"free": 2.0, "used": 0.0, "total": 2.0},
		"USD":   exchange.Object{"free": 0.0, "used": 0.0, "total": 0.0},
		"Atom":  exchange.Object{"free": 3.0, "used": 0.0, "total": 3.0},
		"total": exchange.Object{"BTC": 1.5, "eth": 2.0, "USD": 0.0, "Atom": 3.0},
	}}

	balances, err := GetBalances(context.Background(), client)
	if err != nil {
		t.Fatal(err)
	}
	var tokens []string
	for _, b := range balances {
		tokens = append(tokens, b.Token)
	}
	if want := []string{"Atom", "BTC", "eth"}; !reflect.DeepEqual(tokens, want) {
		t.Errorf("tokens = %v, want %v", tokens, want)
	}
	if balances[1].Free != 1.0 || balances[1].Used != 0.5 || balances[1].Total != 1.5 {
		t.Errorf("BTC = %+v", balances[1])
	}

	balance, err := GetBalance(context.Background(), client, "btc")
	if err != nil || balance.Total != 1.5 {
		t.Errorf("GetBalance() = %+v, %v", balance, err)
	}
	if _, err = GetBalance(context.Background(), client, "USD"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetBalance(zero) error = %v", err)
	}
}

func TestOrders(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}

	if _, err := MarketBuyOrder(ctx, client, "btc/usd", "0.5"); err != nil {
		t.Fatal(err)
	}
	if _, err := LimitSellOrder(ctx, client, "eth/usd", 2, "1500.5"); err != nil {
		t.Fatal(err)
	}
	if len(client.orders) != 2 {
		t.Fatalf("orders = %d", len(client.orders))
	}
	market, limit := client.orders[0], client.orders[1]
	if market.Symbol != "BTC/USD" || market.Type != exchange.Market || market.Side != exchange.Buy || market.Price != nil {
		t.Errorf("market order = %+v", market)
	}
	if limit.Type != exchange.Limit || limit.Side != exchange.Sell || limit.Price == nil || !limit.Price.Equal(mustDecimal("1500.5")) {
		t.Errorf("limit order = %+v", limit)
	}

	response, err := LimitBuyOrder(ctx, client, "btc/usd", "1", "10")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := response["info"]; ok {
		t.Error("order response not shaped")
	}

	calls := client.calls
	if _, err = MarketSellOrder(ctx, client, "btc/usd", "0"); err == nil {
		t.Error("zero amount accepted")
	}
	if client.calls != calls {
		t.Error("invalid order reached the exchange")
	}

	open, err := GetOpenOrders(ctx, client, "btc/usd")
	if err != nil || len(open) != 1 || open[0]["symbol"] != "BTC/USD" {
		t.Errorf("GetOpenOrders() = %v, %v", open, err)
	}
}

func TestPlaceOrderRejected(t *testing.T) {
	client := &fakeClient{status: exchange.StatusRejected}
	response, err := PlaceOrder(context.Background(), client, PlaceOrderRequest{
		MarketID: "BTC/USD", Type: "market", Side: "sell", Amount: "1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := (exchange.Object{"status": "rejected"}); !reflect.DeepEqual(response, want) {
		t.Errorf("PlaceOrder() = %v", response)
	}
}

func TestUpstreamErrorsAreWrapped(t *testing.T) {
	cause := errors.New("insufficient funds")
	client := &fakeClient{err: cause}

	_, err := MarketBuyOrder(context.Background(), client, "BTC/USD", "1")
	var upstreamErr *apperror.UpstreamExchangeError
	if !errors.As(err, &upstreamErr) || !errors.Is(err, cause) {
		t.Fatalf("error = %v", err)
	}
	if upstreamErr.Method != "createOrder" || upstreamErr.ExchangeID != "demo" {
		t.Errorf("upstream = %+v", upstreamErr)
	}

	_, err = Dispatch(context.Background(), client, "fetch_balance", Args{})
	if !errors.As(err, &upstreamErr) || upstreamErr.Method != "fetchBalance" {
		t.Errorf("Dispatch() error = %v", err)
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	client := &fakeClient{}
	_, err := Dispatch(context.Background(), client, "launchRocket", Args{})
	var unrecognized *apperror.UnrecognizedCommandError
	if !errors.As(err, &unrecognized) || unrecognized.Command != "launchRocket" {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if client.calls != 0 {
		t.Errorf("calls = %d", client.calls)
	}
}

func TestDispatchShapesOutput(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}

	described, err := Dispatch(ctx, client, "DESCRIBE", Args{})
	if err != nil {
		t.Fatal(err)
	}
	object := described.(exchange.Object)
	for _, field := range []string{"apiKey", "secret", "password"} {
		if object[field] != "****" {
			t.Errorf("%s = %v", field, object[field])
		}
	}

	book, err := Dispatch(ctx, client, "fetch_order_book", NewArgs([]interface{}{"BTC/USD"}, nil))
	if err != nil {
		t.Fatal(err)
	}
	want := exchange.Object{
		"symbol":   "BTC/USD",
		"datetime": "2024-01-01T00:00:00Z",
		"bids":     []exchange.Object{{"price": 100.0, "amount": 2.0}},
		"asks":     []exchange.Object{{"price": 101.0, "amount": 1.0}, {"price": 102.0, "amount": 3.0}},
	}
	if !reflect.DeepEqual(book, want) {
		t.Errorf("order book = %v", book)
	}

	markets, err := Dispatch(ctx, client, "fetchMarkets", Args{})
	if err != nil {
		t.Fatal(err)
	}
	market := markets.(exchange.Object)["BTC/USD"].(exchange.Object)
	if market["id"] != "BTC-USD" || market["taker"] != nil {
		t.Errorf("market = %v", market)
	}
	if _, ok := market["active"]; ok {
		t.Error("market not shaped")
	}
}

func TestDispatchArguments(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}

	_, err := Dispatch(ctx, client, "createOrder", NewArgs(
		[]interface{}{"btc/usd"},
		map[string]interface{}{"type": "limit", "Side": "BUY", "amount": 0.5, "price": "100"},
	))
	if err != nil {
		t.Fatal(err)
	}
	request := client.orders[0]
	if request.Symbol != "BTC/USD" || request.Side != exchange.Buy || request.Price == nil || !request.Amount.Equal(mustDecimal("0.5")) {
		t.Errorf("request = %+v", request)
	}

	_, err = Dispatch(ctx, client, "fetchTicker", Args{})
	var validationErr *apperror.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "symbol" {
		t.Errorf("Dispatch() error = %v", err)
	}

	_, err = Dispatch(ctx, client, "withdraw", NewArgs([]interface{}{"btc", "1", "address"}, nil))
	var upstreamErr *apperror.UpstreamExchangeError
	if !errors.As(err, &upstreamErr) || !errors.Is(err, exchange.ErrNotSupported) {
		t.Errorf("Dispatch(withdraw) error = %v", err)
	}
}

func TestShapeOHLCV(t *testing.T) {
	candles := []exchange.Object{
		{"timestamp": int64(1000), "open": 1.0, "high": 2.0, "low": 0.5, "close": 1.5, "volume": 10.0},
	}
	shaped := Shape(exchange.FetchOHLCV, candles).(exchange.Object)
	want := exchange.Object{"open": 1.0, "high": 2.0, "low": 0.5, "close": 1.5, "volume": 10.0}
	if !reflect.DeepEqual(shaped["1000"], want) {
		t.Errorf("candle = %v", shaped["1000"])
	}
	if Shape(exchange.Withdraw, "passthrough") != "passthrough" {
		t.Error("pass through shaping changed the result")
	}
}
