package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all settings for a sync run.
type Config struct {
	Legacy   LegacyConfig
	Platform PlatformConfig
	Sync     SyncConfig
	Log      LogConfig
}

// LegacyConfig holds source store connectivity and scoping settings.
type LegacyConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	TablePrefix  string
	MaxOpenConns int

	// LanguageID selects localized description rows; StoreID selects the
	// storefront scope products must belong to.
	LanguageID int
	StoreID    int

	// ImageBaseURL prefixes relative image paths into absolute URLs.
	ImageBaseURL string
}

// PlatformConfig holds target platform connectivity settings.
type PlatformConfig struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
}

// SyncConfig holds engine behavior settings.
type SyncConfig struct {
	// CurrencyCode is the currency used when posting prices.
	CurrencyCode string
	// StockLocationID is the destination of all inventory level upserts.
	// When empty, inventory sync is disabled entirely.
	StockLocationID string
	// BatchSize is the page size for source extraction.
	BatchSize int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Validation errors; connectivity-level misconfiguration aborts the run
// before any product is processed.
var (
	ErrMissingLegacyHost     = errors.New("config: legacy database host is required")
	ErrMissingLegacyUser     = errors.New("config: legacy database user is required")
	ErrMissingLegacyDatabase = errors.New("config: legacy database name is required")
	ErrMissingPlatformURL    = errors.New("config: platform base URL is required")
	ErrMissingPlatformToken  = errors.New("config: platform admin token is required")
	ErrInvalidBatchSize      = errors.New("config: batch size must be positive")
)

// Load loads configuration from an optional TOML file and environment
// variables. Priority (highest to lowest):
// 1. Environment variables with CARTBRIDGE_ prefix (e.g. CARTBRIDGE_LEGACY_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/cartbridge")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Missing config file is fine; defaults and env vars apply.
	}

	v.SetEnvPrefix("CARTBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		Legacy: LegacyConfig{
			Host:         v.GetString("legacy.host"),
			Port:         v.GetInt("legacy.port"),
			User:         v.GetString("legacy.user"),
			Password:     v.GetString("legacy.password"),
			DBName:       v.GetString("legacy.database"),
			TablePrefix:  v.GetString("legacy.table_prefix"),
			MaxOpenConns: v.GetInt("legacy.max_open_conns"),
			LanguageID:   v.GetInt("legacy.language_id"),
			StoreID:      v.GetInt("legacy.store_id"),
			ImageBaseURL: v.GetString("legacy.image_base_url"),
		},
		Platform: PlatformConfig{
			BaseURL:        v.GetString("platform.base_url"),
			Token:          v.GetString("platform.token"),
			TimeoutSeconds: v.GetInt("platform.timeout_seconds"),
		},
		Sync: SyncConfig{
			CurrencyCode:    v.GetString("sync.currency"),
			StockLocationID: v.GetString("sync.stock_location_id"),
			BatchSize:       v.GetInt("sync.batch_size"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("legacy.port", 3306)
	v.SetDefault("legacy.table_prefix", "oc_")
	v.SetDefault("legacy.max_open_conns", 4)
	v.SetDefault("legacy.language_id", 1)
	v.SetDefault("legacy.store_id", 0)
	v.SetDefault("sync.currency", "usd")
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
}

// Validate rejects configurations that cannot produce a working run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Legacy.Host) == "" {
		return ErrMissingLegacyHost
	}
	if strings.TrimSpace(c.Legacy.User) == "" {
		return ErrMissingLegacyUser
	}
	if strings.TrimSpace(c.Legacy.DBName) == "" {
		return ErrMissingLegacyDatabase
	}
	if strings.TrimSpace(c.Platform.BaseURL) == "" {
		return ErrMissingPlatformURL
	}
	if strings.TrimSpace(c.Platform.Token) == "" {
		return ErrMissingPlatformToken
	}
	if c.Sync.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	return nil
}

// DSN builds the MySQL connection string for the legacy store. parseTime
// makes the driver scan DATETIME columns into time.Time.
func (l *LegacyConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&charset=utf8mb4",
		l.User, l.Password, l.Host, l.Port, l.DBName)
}
