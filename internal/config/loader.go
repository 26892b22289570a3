package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PAIRBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PAIRBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Alpaca ──
	setStr(&cfg.Alpaca.ApiKey, "PAIRBOT_ALPACA_API_KEY")
	setStr(&cfg.Alpaca.ApiSecret, "PAIRBOT_ALPACA_API_SECRET")
	setStr(&cfg.Alpaca.TradingHost, "PAIRBOT_ALPACA_TRADING_HOST")
	setStr(&cfg.Alpaca.DataHost, "PAIRBOT_ALPACA_DATA_HOST")
	setStr(&cfg.Alpaca.StreamHost, "PAIRBOT_ALPACA_STREAM_HOST")
	setBool(&cfg.Alpaca.WatchOrderUpdates, "PAIRBOT_ALPACA_WATCH_ORDER_UPDATES")

	// ── Pair ──
	setStr(&cfg.Pair.Symbol1, "PAIRBOT_PAIR_SYMBOL1")
	setStr(&cfg.Pair.Symbol2, "PAIRBOT_PAIR_SYMBOL2")
	setInt(&cfg.Pair.LookbackDays, "PAIRBOT_PAIR_LOOKBACK_DAYS")
	setInt(&cfg.Pair.ThresholdWindow, "PAIRBOT_PAIR_THRESHOLD_WINDOW")
	setDuration(&cfg.Pair.PollInterval, "PAIRBOT_PAIR_POLL_INTERVAL")

	// ── Smoke ──
	setStr(&cfg.Smoke.Symbol, "PAIRBOT_SMOKE_SYMBOL")
	setInt64(&cfg.Smoke.Qty, "PAIRBOT_SMOKE_QTY")

	// ── Database ──
	setBool(&cfg.Database.Enabled, "PAIRBOT_DATABASE_ENABLED")
	setStr(&cfg.Database.DSN, "PAIRBOT_DATABASE_DSN")
	setStr(&cfg.Database.Host, "PAIRBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "PAIRBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "PAIRBOT_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "PAIRBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "PAIRBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "PAIRBOT_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "PAIRBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "PAIRBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "PAIRBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PAIRBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PAIRBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PAIRBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PAIRBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PAIRBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PAIRBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PAIRBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.SignalChannel, "PAIRBOT_REDIS_SIGNAL_CHANNEL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PAIRBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PAIRBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PAIRBOT_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top level ──
	setStr(&cfg.Mode, "PAIRBOT_MODE")
	setStr(&cfg.LogLevel, "PAIRBOT_LOG_LEVEL")
}

// setStr sets *dst from env var key when the variable is non-empty.
func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setInt sets *dst from env var key when the variable parses as an int.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// setInt64 sets *dst from env var key when the variable parses as an int64.
func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

// setBool sets *dst from env var key when the variable parses as a bool.
func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setDuration sets *dst from env var key when the variable parses as a
// time.Duration string.
func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
