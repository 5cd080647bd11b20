package coinbasepro

import (
	"github.com/preichenberger/go-coinbasepro/v2"
)

// api is the subset of the SDK client the adapter talks to.
type api interface {
	GetAccounts() ([]coinbasepro.Account, error)
	CreateOrder(newOrder *coinbasepro.Order) (coinbasepro.Order, error)
	CancelOrder(id string) error
	CancelAllOrders(p ...coinbasepro.CancelAllOrdersParams) ([]string, error)
	GetOrder(id string) (coinbasepro.Order, error)
	GetProducts() ([]coinbasepro.Product, error)
	GetCurrencies() ([]coinbasepro.Currency, error)
	GetTicker(product string) (coinbasepro.Ticker, error)
	GetBook(product string, level int) (coinbasepro.Book, error)
	GetHistoricRates(product string, p ...coinbasepro.GetHistoricRatesParams) ([]coinbasepro.HistoricRate, error)
	GetTime() (coinbasepro.ServerTime, error)
}

// pager drains the SDK cursors into slices.
type pager interface {
	Orders(status, productID string) ([]coinbasepro.Order, error)
	Trades(productID string, limit int) ([]coinbasepro.Trade, error)
	Fills(productID string, limit int) ([]coinbasepro.Fill, error)
}

type cursorPager struct {
	client *coinbasepro.Client
}

func (p cursorPager) Orders(status, productID string) ([]coinbasepro.Order, error) {
	params := coinbasepro.ListOrdersParams{Status: status, ProductID: productID}
	cursor := p.client.ListOrders(params)

	var result []coinbasepro.Order
	for cursor.HasMore {
		var page []coinbasepro.Order
		if err := cursor.NextPage(&page); err != nil {
			return nil, err
		}
		result = append(result, page...)
	}
	return result, nil
}

func (p cursorPager) Trades(productID string, limit int) ([]coinbasepro.Trade, error) {
	cursor := p.client.ListTrades(productID)

	var result []coinbasepro.Trade
	for cursor.HasMore && (limit <= 0 || len(result) < limit) {
		var page []coinbasepro.Trade
		if err := cursor.NextPage(&page); err != nil {
			return nil, err
		}
		result = append(result, page...)
	}
	return truncate(result, limit), nil
}

func (p cursorPager) Fills(productID string, limit int) ([]coinbasepro.Fill, error) {
	cursor := p.client.ListFills(coinbasepro.ListFillsParams{ProductID: productID})

	var result []coinbasepro.Fill
	for cursor.HasMore && (limit <= 0 || len(result) < limit) {
		var page []coinbasepro.Fill
		if err := cursor.NextPage(&page); err != nil {
			return nil, err
		}
		result = append(result, page...)
	}
	return truncate(result, limit), nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
