package delivery

import (
	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/adapter"
	"github.com/salehmehdi/pixel-manager/internal/domain"
	"github.com/salehmehdi/pixel-manager/internal/resilience"
)

// Factory builds platform adapters wrapped in the configured resilience chain
type Factory struct {
	client adapter.HTTPDoer
	store  resilience.CounterStore
	opts   resilience.Options
	log    *zap.Logger
}

func NewFactory(client adapter.HTTPDoer, store resilience.CounterStore, opts resilience.Options, log *zap.Logger) *Factory {
	if client == nil {
		client = adapter.NewHTTPClient()
	}
	return &Factory{
		client: client,
		store:  store,
		opts:   opts,
		log:    log,
	}
}

// Create returns the decorated adapter; unknown platforms yield domain.ErrUnknownPlatform
func (f *Factory) Create(platform domain.Platform) (adapter.Adapter, error) {
	base, err := adapter.New(platform, f.client, f.log)
	if err != nil {
		return nil, err
	}
	return resilience.Chain(base, f.store, f.opts, f.log), nil
}
