// Package config defines the top-level configuration for the pairbot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PAIRBOT_* environment variables.
type Config struct {
	Alpaca   AlpacaConfig   `toml:"alpaca"`
	Pair     PairConfig     `toml:"pair"`
	Smoke    SmokeConfig    `toml:"smoke"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// AlpacaConfig holds Alpaca API endpoints and credentials. The trading and
// market-data APIs live on separate hosts; the stream host carries the
// order-update WebSocket.
type AlpacaConfig struct {
	ApiKey            string `toml:"api_key"`
	ApiSecret         string `toml:"api_secret"`
	TradingHost       string `toml:"trading_host"`
	DataHost          string `toml:"data_host"`
	StreamHost        string `toml:"stream_host"`
	WatchOrderUpdates bool   `toml:"watch_order_updates"`
}

// PairConfig holds the pairs-divergence strategy parameters.
type PairConfig struct {
	// Symbol1 and Symbol2 are the two monitored instruments. The spread is
	// defined as return(Symbol1) - return(Symbol2).
	Symbol1 string `toml:"symbol1"`
	Symbol2 string `toml:"symbol2"`
	// LookbackDays is the size of the daily-bar window pulled each cycle.
	LookbackDays int `toml:"lookback_days"`
	// ThresholdWindow is the number of trailing spread periods used to
	// compute the divergence threshold.
	ThresholdWindow int `toml:"threshold_window"`
	// PollInterval is the pause between cycles and between
	// insufficient-data retries.
	PollInterval duration `toml:"poll_interval"`
}

// SmokeConfig holds parameters for the one-off smoke-test order mode.
type SmokeConfig struct {
	Symbol string `toml:"symbol"`
	Qty    int64  `toml:"qty"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the optional
// entry journal.
type DatabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the optional decision
// signal bus.
type RedisConfig struct {
	Enabled       bool   `toml:"enabled"`
	Addr          string `toml:"addr"`
	Password      string `toml:"password"`
	DB            int    `toml:"db"`
	PoolSize      int    `toml:"pool_size"`
	MaxRetries    int    `toml:"max_retries"`
	TLSEnabled    bool   `toml:"tls_enabled"`
	SignalChannel string `toml:"signal_channel"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "60s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "60s" or "5m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Alpaca: AlpacaConfig{
			TradingHost: "https://paper-api.alpaca.markets",
			DataHost:    "https://data.alpaca.markets",
			StreamHost:  "wss://paper-api.alpaca.markets/stream",
		},
		Pair: PairConfig{
			Symbol1:         "GOOGL",
			Symbol2:         "MSFT",
			LookbackDays:    100,
			ThresholdWindow: 20,
			PollInterval:    duration{60 * time.Second},
		},
		Smoke: SmokeConfig{
			Symbol: "AAPL",
			Qty:    1,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "pairbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			PoolSize:      10,
			MaxRetries:    3,
			SignalChannel: "pairbot:decisions",
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade": true,
	"probe": true,
	"smoke": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, probe, smoke)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Alpaca — every mode talks to the brokerage.
	if c.Alpaca.ApiKey == "" || c.Alpaca.ApiSecret == "" {
		errs = append(errs, "alpaca: api_key and api_secret must be set")
	}
	if c.Alpaca.TradingHost == "" {
		errs = append(errs, "alpaca: trading_host must not be empty")
	}
	if c.Alpaca.DataHost == "" {
		errs = append(errs, "alpaca: data_host must not be empty")
	}
	if c.Alpaca.WatchOrderUpdates && c.Alpaca.StreamHost == "" {
		errs = append(errs, "alpaca: stream_host is required when watch_order_updates is set")
	}

	// Pair
	if c.Pair.Symbol1 == "" || c.Pair.Symbol2 == "" {
		errs = append(errs, "pair: symbol1 and symbol2 must be set")
	}
	if c.Pair.Symbol1 != "" && c.Pair.Symbol1 == c.Pair.Symbol2 {
		errs = append(errs, "pair: symbol1 and symbol2 must differ")
	}
	if c.Pair.LookbackDays < 2 {
		errs = append(errs, fmt.Sprintf("pair: lookback_days must be >= 2, got %d", c.Pair.LookbackDays))
	}
	if c.Pair.ThresholdWindow < 1 {
		errs = append(errs, fmt.Sprintf("pair: threshold_window must be >= 1, got %d", c.Pair.ThresholdWindow))
	}
	if c.Pair.PollInterval.Duration <= 0 {
		errs = append(errs, "pair: poll_interval must be positive")
	}

	// Smoke
	if c.Mode == "smoke" {
		if c.Smoke.Symbol == "" {
			errs = append(errs, "smoke: symbol must be set for smoke mode")
		}
		if c.Smoke.Qty < 1 {
			errs = append(errs, fmt.Sprintf("smoke: qty must be >= 1, got %d", c.Smoke.Qty))
		}
	}

	// Database
	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.SignalChannel == "" {
			errs = append(errs, "redis: signal_channel must not be empty")
		}
	}

	// Notify — Telegram fields must be set together.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
