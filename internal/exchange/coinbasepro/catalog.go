package coinbasepro

import (
	"net/http"
	"sync"

	"github.com/preichenberger/go-coinbasepro/v2"
	"github.com/robfig/cron/v3"

	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
)

// DefaultCatalogSchedule refreshes the product list four times a day.
const DefaultCatalogSchedule = "@every 6h"

type productLister interface {
	GetProducts() ([]coinbasepro.Product, error)
}

// Catalog keeps the product ids every websocket session subscribes to. It is
// shared by all watchers.
type Catalog struct {
	client productLister

	mu         sync.RWMutex
	productIDs []string
}

// NewCatalog uses the public production endpoint, no credentials needed.
func NewCatalog() *Catalog {
	return &Catalog{client: &coinbasepro.Client{
		BaseURL:    ProductionURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}}
}

// Refresh replaces the product ids. On failure the previous list is kept.
func (c *Catalog) Refresh() error {
	products, err := c.client.GetProducts()
	if err != nil {
		logger.LogError(err)
		return err
	}
	ids := make([]string, 0, len(products))
	for _, product := range products {
		ids = append(ids, product.ID)
	}

	c.mu.Lock()
	c.productIDs = ids
	c.mu.Unlock()
	logger.LogInfof("Successfully updated %d product IDs", len(ids))
	return nil
}

// ProductIDs returns a copy of the current list.
func (c *Catalog) ProductIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.productIDs...)
}

// Schedule registers Refresh with scheduler.
func (c *Catalog) Schedule(scheduler *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultCatalogSchedule
	}
	return scheduler.AddFunc(spec, func() {
		_ = c.Refresh()
	})
}
