package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"droscher.com/BeerLedger/configs"
	"droscher.com/BeerLedger/pkg/repository"
)

var (
	ErrDatabaseUnspecified = fmt.Errorf("%w: no database specified", configs.ErrConfiguration)
	ErrDatabaseMissing     = fmt.Errorf("%w: database does not exist", configs.ErrConfiguration)
)

type DatabaseFlags struct {
	ConfigFile string `default:".BeerLedger.toml"     help:"Path to config file" name:"config" short:"c"`
	Database   string `env:"BEERLEDGER_DATABASE" help:"Path to the sqlite database file"`
}

func newLogger(debug bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.DisableStacktrace = true

	if !debug {
		logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	logger, _ := logConfig.Build()

	return logger
}

// load reads the config file and lets the flags override the database
// location.
func (f *DatabaseFlags) load(logger *zap.Logger) (*configs.Config, error) {
	conf, err := configs.GetConfig(f.ConfigFile, logger)
	if err != nil {
		logger.Error("error loading config", zap.Error(err))

		return nil, err
	}

	if f.Database != "" {
		conf.DB.Path = f.Database
	}

	return conf, nil
}

// validateDatabase refuses to run without a database, and refuses to resume
// into a sqlite file that does not exist yet.
func validateDatabase(conf configs.DB, update bool) error {
	if conf.Driver != "" && conf.Driver != repository.DriverSQLite {
		return nil
	}

	if conf.Path == "" {
		return ErrDatabaseUnspecified
	}

	if !update {
		return nil
	}

	if _, err := os.Stat(conf.Path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrDatabaseMissing, conf.Path)
	} else if err != nil {
		return err
	}

	return nil
}
