package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL           string
	HTTPPort              string
	AdminAPIKey           string
	IntermediateCurrency  string
	PlanThreshold         decimal.Decimal
	DepositFloorUSD       decimal.Decimal
	StakeableSymbols      []string
	SnapshotPath          string
	DistributionPreset    string
	PlanWorkerInterval    time.Duration
	CoinGeckoURL          string
	CoinGeckoDelay        time.Duration
	CoinGeckoRetryMax     int
	PriceCacheTTL         time.Duration
	GoogleSheetsID        string
	GoogleCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first if present;
// variables already set in the environment win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	return Config{
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:           envOrDefault("ADMIN_API_KEY", ""),
		IntermediateCurrency:  envOrDefault("INTERMEDIATE_CURRENCY", "Wrapped Ether"),
		PlanThreshold:         envOrDefaultDecimal("PLAN_THRESHOLD", decimal.RequireFromString("0.002")),
		DepositFloorUSD:       envOrDefaultDecimal("DEPOSIT_FLOOR_USD", decimal.NewFromInt(10)),
		StakeableSymbols:      envOrDefaultList("STAKEABLE_SYMBOLS", []string{"DAI", "USDC", "USDT", "WBTC", "WETH"}),
		SnapshotPath:          envOrDefault("SNAPSHOT_PATH", ""),
		DistributionPreset:    envOrDefault("DISTRIBUTION_PRESET", "All Equal"),
		PlanWorkerInterval:    envOrDefaultDuration("PLAN_WORKER_INTERVAL", 1*time.Hour),
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoDelay:        envOrDefaultDuration("COINGECKO_DELAY", 6*time.Second),
		CoinGeckoRetryMax:     envOrDefaultInt("COINGECKO_RETRY_MAX", 5),
		PriceCacheTTL:         envOrDefaultDuration("PRICE_CACHE_TTL", 30*time.Second),
		GoogleSheetsID:        envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentialsJSON: envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

// envOrDefaultList splits a comma-separated value, dropping blanks.
func envOrDefaultList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
