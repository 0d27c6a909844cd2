package cmd

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"droscher.com/BeerLedger/pkg/repository"
)

type MigrateCmd struct {
	DatabaseFlags `embed:""`
}

func (m *MigrateCmd) Run(cliCtx *Context) (err error) {
	logger := newLogger(cliCtx.Debug)
	defer logger.Sync() //nolint:errcheck // we don't care about logger sync errors

	conf, err := m.load(logger)
	if err != nil {
		return err
	}

	if err = validateDatabase(conf.DB, false); err != nil {
		return err
	}

	repo, err := repository.Open(conf, logger)
	if err != nil {
		logger.Error("error connecting to database", zap.Error(err))

		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(repo))

	if err = repo.Migrate(context.Background()); err != nil {
		return err
	}

	logger.Info("Schema is up to date", zap.String("driver", conf.DB.Driver), zap.String("path", conf.DB.Path))

	return nil
}
