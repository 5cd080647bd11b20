package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/model"
	"github.com/robotter-ai/ccxt-telegram-api/internal/users"
)

// step asks for one value of a flow.
type step struct {
	field  string
	prompt string
	check  func(value string) error
	// skip leaves the step out given the values collected so far.
	skip func(values map[string]string) bool
	// secret steps delete the user message holding the value.
	secret bool
}

// flow is a command that collects its arguments one message at a time.
type flow struct {
	steps []step
	// confirm asks for "confirm" or "cancel" before running.
	confirm   bool
	cancelled string
	run       func(ctx context.Context, b *bot, values map[string]string) (string, error)
}

var (
	tokenStep = step{
		field:  "token",
		prompt: `Please enter the token id ("btc"):`,
		check:  model.ValidateTokenID,
	}
	marketStep = step{
		field:  "market",
		prompt: `Please enter the market id ("btc/usdc"):`,
		check:  model.ValidateMarketID,
	}
	amountStep = step{
		field:  "amount",
		prompt: "Please enter the amount. Ex.: 123.4567",
		check:  func(value string) error { return model.ValidateOrderAmount(value) },
	}
	priceStep = step{
		field:  "price",
		prompt: "Please enter the price. Ex.: 123.4567",
		check:  func(value string) error { return model.ValidateOrderPrice(value) },
	}
)

func notEmpty(field string) func(string) error {
	return func(value string) error {
		if strings.TrimSpace(value) == "" {
			return apperror.NewValidationError(field, "a value is required")
		}
		return nil
	}
}

func (h *Handler) flows() map[string]flow {
	return map[string]flow{
		cmdSignIn: {
			steps: []step{
				{field: "apiKey", prompt: "Please enter your API key:", check: notEmpty("apiKey"), secret: true},
				{field: "apiSecret", prompt: "Please enter your API secret:", check: notEmpty("apiSecret"), secret: true},
				{field: "passphrase", prompt: `Please enter your API passphrase, or "-" if there is none:`, check: notEmpty("passphrase"), secret: true},
				{field: "subAccountId", prompt: `Please enter your sub-account id, or "-" if there is none:`, check: subAccountOrNone},
			},
			confirm:   true,
			cancelled: "Sign in canceled.",
			run:       signIn,
		},
		cmdSignOut: {
			confirm:   true,
			cancelled: "Sign out canceled.",
			run:       signOut,
		},
		cmdBalance: {
			steps: []step{tokenStep},
			run: func(ctx context.Context, b *bot, values map[string]string) (string, error) {
				client, err := b.client(ctx)
				if err != nil {
					return "", err
				}
				balance, err := model.GetBalance(ctx, client, values["token"])
				if err != nil {
					return "", err
				}
				return Beautify(balance), nil
			},
		},
		cmdOpenOrders: {
			steps: []step{marketStep},
			run: func(ctx context.Context, b *bot, values map[string]string) (string, error) {
				client, err := b.client(ctx)
				if err != nil {
					return "", err
				}
				orders, err := model.GetOpenOrders(ctx, client, values["market"])
				if err != nil {
					return "", err
				}
				return Beautify(orders), nil
			},
		},
		cmdMarketBuy:  orderFlow("Market buy", model.MarketBuyOrder, nil),
		cmdMarketSell: orderFlow("Market sell", model.MarketSellOrder, nil),
		cmdLimitBuy:   orderFlow("Limit buy", nil, model.LimitBuyOrder),
		cmdLimitSell:  orderFlow("Limit sell", nil, model.LimitSellOrder),
		cmdPlaceOrder: {
			steps: []step{
				{
					field:  "type",
					prompt: `Please enter the order type ("market" or "limit"):`,
					check:  model.ValidateOrderType,
				},
				{
					field:  "side",
					prompt: `Please enter the order side ("buy" or "sell"):`,
					check:  model.ValidateOrderSide,
				},
				marketStep,
				amountStep,
				withSkip(priceStep, func(values map[string]string) bool {
					return model.SanitizeOrderType(values["type"]) != exchange.Limit
				}),
			},
			confirm:   true,
			cancelled: "Order canceled.",
			run: func(ctx context.Context, b *bot, values map[string]string) (string, error) {
				client, err := b.client(ctx)
				if err != nil {
					return "", err
				}
				request := model.PlaceOrderRequest{
					MarketID: values["market"],
					Type:     values["type"],
					Side:     values["side"],
					Amount:   values["amount"],
				}
				if price, ok := values["price"]; ok {
					request.Price = price
				}
				order, err := model.PlaceOrder(ctx, client, request)
				if err != nil {
					return "", err
				}
				return "Order successfully placed:\n\n" + Beautify(order), nil
			},
		},
		cmdFavoriteAdd: {
			steps: []step{marketStep},
			run: func(ctx context.Context, b *bot, values map[string]string) (string, error) {
				return b.updateFavorites(ctx, values["market"], true)
			},
		},
		cmdFavoriteRemove: {
			steps: []step{marketStep},
			run: func(ctx context.Context, b *bot, values map[string]string) (string, error) {
				return b.updateFavorites(ctx, values["market"], false)
			},
		},
	}
}

func withSkip(s step, skip func(map[string]string) bool) step {
	s.skip = skip
	return s
}

type (
	marketOrderFunc func(ctx context.Context, client exchange.Client, marketID string, amount interface{}) (exchange.Object, error)
	limitOrderFunc  func(ctx context.Context, client exchange.Client, marketID string, amount, price interface{}) (exchange.Object, error)
)

func orderFlow(title string, market marketOrderFunc, limit limitOrderFunc) flow {
	steps := []step{marketStep, amountStep}
	if limit != nil {
		steps = append(steps, priceStep)
	}
	return flow{
		steps:     steps,
		confirm:   true,
		cancelled: "Order canceled.",
		run: func(ctx context.Context, b *bot, values map[string]string) (string, error) {
			client, err := b.client(ctx)
			if err != nil {
				return "", err
			}
			var order exchange.Object
			if limit != nil {
				order, err = limit(ctx, client, values["market"], values["amount"], values["price"])
			} else {
				order, err = market(ctx, client, values["market"], values["amount"])
			}
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s order successfully placed:\n\n%s", title, Beautify(order)), nil
		},
	}
}

func subAccountOrNone(value string) error {
	if value == none {
		return nil
	}
	return model.ValidateSubAccountID(value)
}

const none = "-"

func signIn(ctx context.Context, b *bot, values map[string]string) (string, error) {
	credentials := users.Credentials{
		ExchangeID:          b.config.ExchangeID,
		ExchangeEnvironment: string(b.config.ExchangeEnvironment),
		ExchangeProtocol:    string(b.config.ExchangeProtocol),
		ExchangeAPIKey:      values["apiKey"],
		ExchangeAPISecret:   values["apiSecret"],
		UserTelegramID:      users.TelegramID(b.telegramID()),
	}
	if passphrase := values["passphrase"]; passphrase != none {
		credentials.ExchangeOptions.Passphrase = passphrase
	}
	if subAccount := values["subAccountId"]; subAccount != "" && subAccount != none {
		id := model.SanitizeSubAccountID(subAccount)
		credentials.ExchangeOptions.SubAccountID = &id
	}

	if _, err := b.users.CreateOrUpdate(ctx, credentials); err != nil {
		return "", err
	}
	return "Successfully signed in.", nil
}

func signOut(ctx context.Context, b *bot, _ map[string]string) (string, error) {
	err := b.users.DeleteByKey(ctx, users.ByTelegramID(b.telegramID()))
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return "", err
	}
	return "Successfully signed out.", nil
}
