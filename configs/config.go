package configs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kkyr/fig"
	"go.uber.org/zap"
)

type API struct {
	BaseURL           string        `default:"https://api.untappd.com/v4" fig:"base_url"`
	ClientID          string        `fig:"client_id"`
	ClientSecret      string        `fig:"client_secret"`
	DeviceID          string        `fig:"device_id"`
	AppVersion        string        `default:"4.5.10"                     fig:"app_version"`
	UserAgent         string        `default:"okhttp/4.9.3"               fig:"user_agent"`
	PageDelay         time.Duration `default:"1s"                         fig:"page_delay"`
	RequestsPerSecond float64       `fig:"requests_per_second"`
	MaxPages          int           `default:"10000"                      fig:"max_pages"`
	TimezoneOffset    int           `fig:"timezone_offset"`
	Timeout           time.Duration `fig:"timeout"`
}

type Cache struct {
	Dir     string `default:"/tmp/beerledger_cache"`
	Backend string `default:"dir"`
}

type DB struct {
	Driver             string `default:"sqlite"`
	Path               string
	Host               string
	Port               int    `default:"5432"`
	User               string `default:"postgres"`
	Password           string
	Database           string `default:"postgres"`
	MaxIdleConnections int    `default:"10"`
	MaxOpenConnections int    `default:"10"`
}

type Auth struct {
	CredentialsFile string `default:".creds" fig:"credentials_file"`
}

type Metrics struct {
	Textfile string
}

type Config struct {
	API     API
	Cache   Cache
	DB      DB
	Auth    Auth
	Metrics Metrics
}

const envPrefix = "BEERLEDGER" // env prefix for env vars

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrMissingAPIKeys = fmt.Errorf("%w: api.client_id and api.client_secret are required", ErrConfiguration)
)

// RequireKeys reports whether the app credentials every API call carries are
// set. Commands that never reach the API do not need them.
func (a API) RequireKeys() error {
	if a.ClientID == "" || a.ClientSecret == "" {
		return ErrMissingAPIKeys
	}

	return nil
}

func GetConfig(configFileName string, logger *zap.Logger) (*Config, error) {
	config := Config{}
	homeDir, _ := os.UserHomeDir()

	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded environment from .env")
	}

	logger.Info("Loading config", zap.String("file", configFileName))

	err := fig.Load(&config, fig.File(configFileName), fig.Dirs(".", homeDir), fig.UseEnv(envPrefix))
	if err != nil {
		if strings.Contains(err.Error(), "file not found") {
			logger.Warn("Could not find config file", zap.String("file", configFileName))

			err = fig.Load(&config, fig.IgnoreFile(), fig.UseEnv(envPrefix))
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	return &config, nil
}
