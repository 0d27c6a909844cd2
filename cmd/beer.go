package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"droscher.com/BeerLedger/pkg/integrations"
	"droscher.com/BeerLedger/pkg/integrations/untappd"
	"droscher.com/BeerLedger/pkg/repository"
)

type BeerCmd struct {
	DatabaseFlags `embed:""`

	BID uint64 `arg:"" help:"Untappd beer id" name:"bid"`
}

func (b *BeerCmd) Run(cliCtx *Context) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cliCtx.Debug)
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	conf, err := b.load(logger)
	if err != nil {
		return err
	}

	if err = validateDatabase(conf.DB, false); err != nil {
		return err
	}

	client, store, err := integrations.GetIntegration(untappd.IntegrationName, conf, logger)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(store))

	raw, err := client.BeerInfo(ctx, b.BID)
	if err != nil {
		return err
	}

	beer, err := untappd.MapBeer(raw)
	if err != nil {
		return err
	}

	repo, err := repository.Open(conf, logger)
	if err != nil {
		logger.Error("error connecting to database", zap.Error(err))

		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(repo))

	if err = repo.Migrate(ctx); err != nil {
		return err
	}

	if err = repo.UpsertBeer(ctx, *beer); err != nil {
		return err
	}

	fields := []zap.Field{zap.Uint64("bid", beer.ID), zap.String("name", beer.Name)}
	if beer.Brewery != nil {
		fields = append(fields, zap.String("brewery", beer.Brewery.Name))
	}

	logger.Info("Stored beer", fields...)

	return nil
}
