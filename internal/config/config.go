package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Billing  BillingConfig  `yaml:"billing"`
	Rollup   RollupConfig   `yaml:"rollup"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// RedisConfig for optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BillingConfig holds invoicing defaults applied when an organization
// does not override them.
type BillingConfig struct {
	DefaultTaxRate    float64 `yaml:"default_tax_rate"`
	PaymentTermsDays  int     `yaml:"payment_terms_days"`
	InvoicePrefix     string  `yaml:"invoice_prefix"`
	LineItemTolerance float64 `yaml:"line_item_tolerance"`
}

// RollupConfig controls the summary recomputation schedulers.
type RollupConfig struct {
	DailyCron     string `yaml:"daily_cron"`     // cron spec for daily summary rebuild
	MonthlyCron   string `yaml:"monthly_cron"`   // cron spec for monthly summary rebuild
	LookbackDays  int    `yaml:"lookback_days"`  // how many days of logs each daily run re-aggregates
	RetentionDays int    `yaml:"retention_days"` // raw usage log retention, 0 keeps forever
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "insight.db",
		},
		JWT: JWTConfig{
			Secret:     "insight-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Billing: BillingConfig{
			DefaultTaxRate:    0.08,
			PaymentTermsDays:  30,
			InvoicePrefix:     "INV",
			LineItemTolerance: 1e-6,
		},
		Rollup: RollupConfig{
			DailyCron:    "*/15 * * * *",
			MonthlyCron:  "5 0 * * *",
			LookbackDays: 2,
		},
	}
}

// applyDefaults fills zero values that would break schedulers or invoicing.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Rollup.DailyCron == "" {
		c.Rollup.DailyCron = def.Rollup.DailyCron
	}
	if c.Rollup.MonthlyCron == "" {
		c.Rollup.MonthlyCron = def.Rollup.MonthlyCron
	}
	if c.Rollup.LookbackDays <= 0 {
		c.Rollup.LookbackDays = def.Rollup.LookbackDays
	}
	if c.Billing.PaymentTermsDays <= 0 {
		c.Billing.PaymentTermsDays = def.Billing.PaymentTermsDays
	}
	if c.Billing.InvoicePrefix == "" {
		c.Billing.InvoicePrefix = def.Billing.InvoicePrefix
	}
	if c.Billing.LineItemTolerance <= 0 {
		c.Billing.LineItemTolerance = def.Billing.LineItemTolerance
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if taxRate := os.Getenv("BILLING_DEFAULT_TAX_RATE"); taxRate != "" {
		if v, err := strconv.ParseFloat(taxRate, 64); err == nil {
			c.Billing.DefaultTaxRate = v
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	// Remove redis:// prefix
	url := strings.TrimPrefix(redisURL, "redis://")

	// Extract password if present
	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	// Extract db number if present
	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	// Remaining is host:port
	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
