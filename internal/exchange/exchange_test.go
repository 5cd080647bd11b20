package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
)

func TestFindMethod(t *testing.T) {
	tests := map[string]Method{
		"fetchBalance":    FetchBalance,
		"fetch_balance":   FetchBalance,
		"FETCHBALANCE":    FetchBalance,
		"/fetchOHLCV":     FetchOHLCV,
		"fetch_o_h_l_c_v": FetchOHLCV,
		"describe":        Describe,
	}
	for name, want := range tests {
		got, err := FindMethod(name)
		if err != nil || got != want {
			t.Errorf("FindMethod(%q) = %q, %v", name, got, err)
		}
	}

	_, err := FindMethod("doSomethingUnknown")
	var unrecognized *apperror.UnrecognizedCommandError
	if !errors.As(err, &unrecognized) || unrecognized.Command != "doSomethingUnknown" {
		t.Errorf("FindMethod() error = %v", err)
	}
}

func TestMethods(t *testing.T) {
	methods := Methods()
	if len(methods) != 25 {
		t.Fatalf("len(Methods()) = %d", len(methods))
	}
	if methods[0] != CancelAllOrders || methods[len(methods)-1] != Withdraw {
		t.Errorf("Methods() not sorted: %v", methods)
	}
	if Describe.IsPrivate() || !FetchBalance.IsPrivate() {
		t.Error("unexpected privacy flags")
	}
}

func TestParseEnums(t *testing.T) {
	if env, err := ParseEnvironment("Production"); err != nil || env != Production {
		t.Errorf("ParseEnvironment() = %q, %v", env, err)
	}
	if _, err := ParseEnvironment("qa"); err == nil {
		t.Error("expected error for unknown environment")
	}
	if protocol, err := ParseProtocol("WEBSOCKET"); err != nil || protocol != WebSocket {
		t.Errorf("ParseProtocol() = %q, %v", protocol, err)
	}
	if _, err := ParseProtocol("smoke-signals"); err == nil {
		t.Error("expected error for unknown protocol")
	}
}

type stubClient struct {
	Unsupported
	options Options
}

func (s *stubClient) ID() string { return s.options.ExchangeID }

func TestFactory(t *testing.T) {
	f := NewFactory()
	f.Register("Demo", func(_ context.Context, options Options) (Client, error) {
		return &stubClient{options: options}, nil
	})

	if !f.IsSupported("demo") || len(f.Supported()) != 1 {
		t.Fatalf("Supported() = %v", f.Supported())
	}

	client, err := f.New(context.Background(), Options{ExchangeID: "DEMO"})
	if err != nil {
		t.Fatal(err)
	}
	stub := client.(*stubClient)
	if stub.options.Protocol != REST || stub.options.Environment != Production {
		t.Errorf("defaults not applied: %+v", stub.options)
	}
	if _, err = client.FetchBalance(context.Background()); !errors.Is(err, ErrNotSupported) {
		t.Errorf("FetchBalance() error = %v", err)
	}

	_, err = f.New(context.Background(), Options{ExchangeID: "nope"})
	if !errors.Is(err, apperror.ErrExchangeNotAvailable) {
		t.Errorf("New() error = %v", err)
	}
}
