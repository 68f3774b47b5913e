package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage engines.
const (
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	LedgerStore   string
	BoltPath      string
	IsProduction  bool
	EnableDBCheck bool
	AutoMigrate   bool
	LogLevel      string

	// Ledger
	BaseCurrency        string
	PostingMaxRetries   int
	PostingRetryBackoff time.Duration
	CategoryCacheSize   int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	return FromViper(v)
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("LEDGER_STORE", StorePostgres)
	v.SetDefault("BOLT_PATH", "ledger.db")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BASE_CURRENCY", "AED")
	v.SetDefault("POSTING_MAX_RETRIES", 3)
	v.SetDefault("POSTING_RETRY_BACKOFF", "25ms")
	v.SetDefault("CATEGORY_CACHE_SIZE", 256)
}

// FromViper reads and checks a Config out of v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:       v.GetString("PGSQL_URL"),
		LedgerStore:       strings.ToLower(v.GetString("LEDGER_STORE")),
		BoltPath:          v.GetString("BOLT_PATH"),
		IsProduction:      v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:     v.GetBool("ENABLE_DB_CHECK"),
		AutoMigrate:       v.GetBool("AUTO_MIGRATE"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		BaseCurrency:      strings.ToUpper(v.GetString("BASE_CURRENCY")),
		PostingMaxRetries: v.GetInt("POSTING_MAX_RETRIES"),
		CategoryCacheSize: v.GetInt("CATEGORY_CACHE_SIZE"),
	}

	switch cfg.LedgerStore {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			log.Println("Warning: PGSQL_URL environment variable not set.")
		}
	case StoreBolt:
		if cfg.BoltPath == "" {
			return nil, fmt.Errorf("BOLT_PATH must be set when LEDGER_STORE=%s", StoreBolt)
		}
	default:
		return nil, fmt.Errorf("invalid LEDGER_STORE %q: expected %q or %q", cfg.LedgerStore, StorePostgres, StoreBolt)
	}

	if len(cfg.BaseCurrency) != 3 {
		return nil, fmt.Errorf("invalid BASE_CURRENCY %q: expected a 3-letter ISO 4217 code", cfg.BaseCurrency)
	}

	backoffStr := v.GetString("POSTING_RETRY_BACKOFF")
	backoff, err := time.ParseDuration(backoffStr)
	if err != nil {
		backoff = 25 * time.Millisecond
		log.Printf("Warning: Invalid value for POSTING_RETRY_BACKOFF ('%s'). Defaulting to %s.\n", backoffStr, backoff)
	}
	cfg.PostingRetryBackoff = backoff

	if cfg.PostingMaxRetries < 0 {
		log.Printf("Warning: Negative POSTING_MAX_RETRIES (%d). Defaulting to 0.\n", cfg.PostingMaxRetries)
		cfg.PostingMaxRetries = 0
	}
	if cfg.CategoryCacheSize <= 0 {
		log.Printf("Warning: Invalid CATEGORY_CACHE_SIZE (%d). Defaulting to 256.\n", cfg.CategoryCacheSize)
		cfg.CategoryCacheSize = 256
	}

	return cfg, nil
}
