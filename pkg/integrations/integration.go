package integrations

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"droscher.com/BeerLedger/configs"
	"droscher.com/BeerLedger/pkg/cache"
	"droscher.com/BeerLedger/pkg/integrations/untappd"
)

var ErrUnknownIntegration = errors.New("unknown integration")

// GetIntegration opens the response cache configured for the named source
// and returns a client reading through it. Closing the returned store is up
// to the caller.
func GetIntegration(name string, conf *configs.Config, logger *zap.Logger) (*untappd.Client, cache.Store, error) {
	if name != untappd.IntegrationName {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownIntegration, name)
	}

	if err := conf.API.RequireKeys(); err != nil {
		return nil, nil, err
	}

	store, err := cache.Open(conf.Cache.Backend, conf.Cache.Dir, logger)
	if err != nil {
		return nil, nil, err
	}

	return untappd.NewClient(conf, store, logger), store, nil
}
