package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"droscher.com/BeerLedger/pkg/ingest"
	"droscher.com/BeerLedger/pkg/integrations"
	"droscher.com/BeerLedger/pkg/integrations/untappd"
	"droscher.com/BeerLedger/pkg/repository"
)

type SyncCmd struct {
	DatabaseFlags `embed:""`

	Update   bool      `help:"Resume from the newest stored check-in"`
	Username string    `env:"BEERLEDGER_USERNAME" help:"Untappd user name" required:""`
	Password string    `env:"BEERLEDGER_PASSWORD" help:"Untappd password, only needed without stored credentials"`
	Since    time.Time `format:"2006-01-02"       help:"Crawl from this day instead of the join date (YYYY-MM-DD)"`
}

func (s *SyncCmd) Run(cliCtx *Context) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cliCtx.Debug)
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	conf, err := s.load(logger)
	if err != nil {
		return err
	}

	if err = validateDatabase(conf.DB, s.Update); err != nil {
		return err
	}

	client, store, err := integrations.GetIntegration(untappd.IntegrationName, conf, logger)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(store))

	repo, err := repository.Open(conf, logger)
	if err != nil {
		logger.Error("error connecting to database", zap.Error(err))

		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(repo))

	if err = repo.Migrate(ctx); err != nil {
		return err
	}

	opts := ingest.Options{Username: s.Username, Password: s.Password, Update: s.Update}
	if !s.Since.IsZero() {
		opts.Since = &s.Since
	}

	report, err := ingest.NewSyncer(client, repo, conf.Metrics.Textfile, logger).Run(ctx, opts)
	if err != nil {
		return err
	}

	logger.Info("Sync finished",
		zap.Stringer("run", report.RunID),
		zap.Int("beers", report.Beers),
		zap.Int("total_beers", report.TotalBeers),
		zap.Int("checkins", report.Checkins),
		zap.Int("pages", report.Pages),
		zap.Duration("duration", report.Duration))

	return nil
}
