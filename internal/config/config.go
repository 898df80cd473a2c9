package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/crime-cli/internal/model"
)

// Config is the top-level configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Area       AreaConfig       `yaml:"area" mapstructure:"area"`
	Categories []model.Category `yaml:"categories" mapstructure:"categories"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Sync       SyncConfig       `yaml:"sync" mapstructure:"sync"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures the remote datastore.
type SourceConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Dataset           string  `yaml:"dataset" mapstructure:"dataset"`
	Table             string  `yaml:"table" mapstructure:"table"`
	Where             string  `yaml:"where" mapstructure:"where"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Timeout returns the request timeout as a duration.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// AreaConfig holds the city anchors and the reporting month. A zero
// CurrentYear or CurrentMonth means the month before today.
type AreaConfig struct {
	CityName          string  `yaml:"city_name" mapstructure:"city_name"`
	CurrentYear       int     `yaml:"current_year" mapstructure:"current_year"`
	CurrentMonth      int     `yaml:"current_month" mapstructure:"current_month"`
	Population2000    float64 `yaml:"population_2000" mapstructure:"population_2000"`
	Population2010    float64 `yaml:"population_2010" mapstructure:"population_2010"`
	NeighborhoodsFile string  `yaml:"neighborhoods_file" mapstructure:"neighborhoods_file"`
	DefaultCategory   string  `yaml:"default_category" mapstructure:"default_category"`
}

// StoreConfig configures the local row cache.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SyncConfig configures cache refresh runs.
type SyncConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// MonitoringConfig configures sync-log health checks and alerting.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StaleAfterDays       int     `yaml:"stale_after_days" mapstructure:"stale_after_days"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// StaleAfter returns the staleness threshold as a duration.
func (m MonitoringConfig) StaleAfter() time.Duration {
	return time.Duration(m.StaleAfterDays) * 24 * time.Hour
}

// ServerConfig configures the JSON API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultCategories are the Part I offenses the aggregate dataset reports.
func DefaultCategories() []model.Category {
	return []model.Category{
		{Key: "homicide", Title: "Homicide"},
		{Key: "rape", Title: "Rape"},
		{Key: "robbery", Title: "Robbery"},
		{Key: "agg_assault", Title: "Aggravated Assault", Description: "Assault with a weapon or causing serious injury."},
		{Key: "burglary", Title: "Burglary"},
		{Key: "larceny", Title: "Larceny", Description: "Theft other than auto theft or burglary."},
		{Key: "auto_theft", Title: "Auto Theft"},
		{Key: "arson", Title: "Arson"},
	}
}

// LoadOption adjusts where Load looks for configuration.
type LoadOption func(v *viper.Viper)

// WithFile reads path instead of searching for config.yaml. The file must
// exist.
func WithFile(path string) LoadOption {
	return func(v *viper.Viper) {
		if path != "" {
			v.SetConfigFile(path)
		}
	}
}

// Load reads configuration from .env, config.yaml and the environment.
func Load(opts ...LoadOption) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, opt := range opts {
		opt(v)
	}

	// Environment
	v.SetEnvPrefix("CRIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.base_url", "https://api.scraperwiki.com/api/1.0/datastore/sqlite")
	v.SetDefault("source.dataset", "minneapolis_aggregate_crime_data")
	v.SetDefault("source.table", "swdata")
	v.SetDefault("source.where", "notes NOT LIKE 'Added to%'")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.user_agent", "crime-cli/1.0")
	v.SetDefault("source.requests_per_second", 2.0)
	v.SetDefault("area.city_name", "Minneapolis")
	v.SetDefault("area.current_year", 0)
	v.SetDefault("area.current_month", 0)
	v.SetDefault("area.population_2000", 382618)
	v.SetDefault("area.population_2010", 382578)
	v.SetDefault("area.neighborhoods_file", "neighborhoods.csv")
	v.SetDefault("area.default_category", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crime.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("sync.concurrency", 4)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24*7)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.stale_after_days", 45)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode ("stats",
// "sync" or "serve"). All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "stats", "sync":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Area.CurrentMonth < 0 || c.Area.CurrentMonth > 12 {
		errs = append(errs, fmt.Sprintf("area.current_month %d must be between 1 and 12 (or 0)", c.Area.CurrentMonth))
	}
	if c.Area.CurrentYear < 0 {
		errs = append(errs, fmt.Sprintf("area.current_year %d must be >= 0", c.Area.CurrentYear))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}

	if mode == "sync" && (c.Sync.Concurrency < 1 || c.Sync.Concurrency > 32) {
		errs = append(errs, "sync.concurrency must be between 1 and 32")
	}

	if len(c.Categories) == 0 {
		errs = append(errs, "at least one category is required")
	} else {
		cats := model.NewCategorySet(c.Categories)
		if cats.Len() != len(c.Categories) {
			errs = append(errs, "category keys must be non-empty and unique")
		}
		if c.Area.DefaultCategory != "" && !cats.Has(c.Area.DefaultCategory) {
			errs = append(errs, fmt.Sprintf("area.default_category %q is not a configured category", c.Area.DefaultCategory))
		}
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// CategorySet returns the configured categories as a set.
func (c *Config) CategorySet() model.CategorySet {
	return model.NewCategorySet(c.Categories)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
