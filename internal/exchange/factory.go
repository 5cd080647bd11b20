package exchange

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
)

// Notifier delivers a message to the owner of a client, typically through
// the chat transport. It may be nil.
type Notifier func(message string)

// Options carries everything needed to build a Client for one account.
type Options struct {
	ExchangeID   string
	APIKey       string
	APISecret    string
	Passphrase   string
	Environment  Environment
	Protocol     Protocol
	SubAccountID *int64
	Params       Object
	Notify       Notifier
}

// Constructor builds a Client for one exchange.
type Constructor func(ctx context.Context, options Options) (Client, error)

// Factory maps exchange ids onto constructors.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewFactory() *Factory {
	return &Factory{constructors: map[string]Constructor{}}
}

func (f *Factory) Register(exchangeID string, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[strings.ToLower(exchangeID)] = constructor
}

// New builds a client. Unknown exchanges fail with ErrExchangeNotAvailable.
func (f *Factory) New(ctx context.Context, options Options) (Client, error) {
	f.mu.RLock()
	constructor, ok := f.constructors[strings.ToLower(options.ExchangeID)]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperror.ErrExchangeNotAvailable, options.ExchangeID)
	}
	if options.Protocol == "" {
		options.Protocol = REST
	}
	if options.Environment == "" {
		options.Environment = Production
	}
	return constructor(ctx, options)
}

// Supported lists the registered exchange ids.
func (f *Factory) Supported() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.constructors))
	for id := range f.constructors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsSupported reports whether exchangeID has a constructor.
func (f *Factory) IsSupported(exchangeID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[strings.ToLower(exchangeID)]
	return ok
}
