// Package config loads process configuration from the environment.
package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all screener process settings.
type Config struct {
	// Symbols is the comma-separated tracked symbol set.
	Symbols []string `envconfig:"SCREENER_SYMBOLS" default:"BTCUSDT,ETHUSDT,SOLUSDT"`
	// WindowSeconds is the collector's retention window.
	WindowSeconds int64 `envconfig:"SCREENER_WINDOW_SECONDS" default:"300"`
	// FeedURL is the trade-stream base URL.
	FeedURL string `envconfig:"SCREENER_FEED_URL" default:"wss://stream.binance.com:9443"`
	// HTTPAddr is the listen address for the HTTP surface.
	HTTPAddr string `envconfig:"SCREENER_HTTP_ADDR" default:":8080"`
	// MaxEventsPerSymbol caps each symbol window against burst rates.
	MaxEventsPerSymbol int `envconfig:"SCREENER_MAX_EVENTS_PER_SYMBOL" default:"200000"`
	// HistoryLen bounds the trailing flow-share history.
	HistoryLen int `envconfig:"SCREENER_HISTORY_LEN" default:"120"`
}

// Load reads .env if present, then the environment. A missing .env is not an
// error; production environments set variables directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
