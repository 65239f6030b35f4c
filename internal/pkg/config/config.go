package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr      string `env:"SERVER_ADDR" envDefault:":8080"`
	AdminServerAddr string `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`

	PostgresURL string `env:"POSTGRES_URL,required"`
	RedisAddr   string `env:"REDIS_ADDR"`

	// ServiceToken authenticates inbound requests and outbound signals to
	// collaborating services (bot, scheduler, scraper).
	ServiceToken string `env:"SERVICE_TOKEN,required"`

	// Bases for deriving per-tenant resource fields from a resource id.
	DataStoreURIBase      string `env:"DATASTORE_URI_BASE" envDefault:"sqlite:////data/stores"`
	IndexRootPath         string `env:"INDEX_ROOT_PATH" envDefault:"/data/indexes"`
	BotEndpointBase       string `env:"BOT_ENDPOINT_BASE,required"`
	SchedulerEndpointBase string `env:"SCHEDULER_ENDPOINT_BASE,required"`
	ScraperEndpointBase   string `env:"SCRAPER_ENDPOINT_BASE,required"`

	// External job binaries.
	ScraperBin string `env:"SCRAPER_BIN" envDefault:"/usr/local/bin/site-scraper"`
	UpdaterBin string `env:"UPDATER_BIN" envDefault:"/usr/local/bin/site-updater"`

	// SignalTimeout bounds the stale-index notification; job execution
	// itself carries no timeout.
	SignalTimeout time.Duration `env:"SIGNAL_TIMEOUT" envDefault:"5s"`

	// DispatchRatePerMinute throttles job dispatches per tenant. 0 disables
	// throttling.
	DispatchRatePerMinute int `env:"DISPATCH_RATE_PER_MINUTE" envDefault:"0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
