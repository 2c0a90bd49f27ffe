package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App     AppConfig
	Engine  EngineConfig
	Redis   RedisConfig
	Catalog CatalogConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Engine.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRICING_APP_ENV" default:"development"`
	Port         string `envconfig:"PRICING_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PRICING_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRICING_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type EngineConfig struct {
	DefaultCurrency string `envconfig:"PRICING_DEFAULT_CURRENCY" default:"USD"`
	TaxRate         string `envconfig:"PRICING_TAX_RATE" default:"0"`
	ShippingPolicy  string `envconfig:"PRICING_SHIPPING_POLICY" default:"flat"`
	// ShippingFlatCents is the flat shipping fee in minor units.
	ShippingFlatCents int64 `envconfig:"PRICING_SHIPPING_FLAT_CENTS" default:"0"`
	// FreeShippingThresholdCents waives shipping above this post-discount
	// amount; zero disables the threshold.
	FreeShippingThresholdCents int64 `envconfig:"PRICING_FREE_SHIPPING_THRESHOLD_CENTS" default:"0"`
	// RulesPath optionally seeds the in-memory promotion catalog from a
	// JSON file at startup.
	RulesPath string `envconfig:"PRICING_RULES_PATH" default:""`
}

func (e EngineConfig) validate() error {
	if _, err := enums.ParseCurrency(e.DefaultCurrency); err != nil {
		return fmt.Errorf("PRICING_DEFAULT_CURRENCY: %w", err)
	}
	rate, err := decimal.NewFromString(e.TaxRate)
	if err != nil {
		return fmt.Errorf("PRICING_TAX_RATE: %w", err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("PRICING_TAX_RATE must be non-negative, got %s", e.TaxRate)
	}
	switch e.ShippingPolicy {
	case "flat", "free_over_threshold":
	default:
		return fmt.Errorf("PRICING_SHIPPING_POLICY must be flat or free_over_threshold, got %q", e.ShippingPolicy)
	}
	if e.ShippingFlatCents < 0 {
		return fmt.Errorf("PRICING_SHIPPING_FLAT_CENTS must be non-negative")
	}
	return nil
}

// Currency returns the validated default currency.
func (e EngineConfig) Currency() enums.Currency {
	currency, err := enums.ParseCurrency(e.DefaultCurrency)
	if err != nil {
		return enums.CurrencyUSD
	}
	return currency
}

// Rate returns the validated tax rate.
func (e EngineConfig) Rate() decimal.Decimal {
	rate, err := decimal.NewFromString(e.TaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

type RedisConfig struct {
	// Addr enables the Redis-backed usage store when set; the in-memory
	// store is used otherwise.
	Addr     string        `envconfig:"PRICING_REDIS_ADDR" default:""`
	Password string        `envconfig:"PRICING_REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"PRICING_REDIS_DB" default:"0"`
	Timeout  time.Duration `envconfig:"PRICING_REDIS_TIMEOUT" default:"3s"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"PRICING_CATALOG_CACHE_TTL" default:"1m"`
	CacheGC  time.Duration `envconfig:"PRICING_CATALOG_CACHE_GC" default:"5m"`
}
