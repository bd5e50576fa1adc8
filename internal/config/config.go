package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	MarketData  MarketDataConfig `mapstructure:"market_data"`
	Analytics   AnalyticsConfig  `mapstructure:"analytics"`
	Report      ReportConfig     `mapstructure:"report"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MarketDataConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Timeout    int    `mapstructure:"timeout"`
	CacheTTL   string `mapstructure:"cache_ttl"`
}

// AnalyticsConfig is the default engine configuration; per-request overrides
// are applied on top of it.
type AnalyticsConfig struct {
	ShortWindow     int     `mapstructure:"short_window"`
	LongWindow      int     `mapstructure:"long_window"`
	ADXWindow       int     `mapstructure:"adx_window"`
	ADXThreshold    float64 `mapstructure:"adx_threshold"`
	ADXFilter       bool    `mapstructure:"adx_filter"`
	MAKind          string  `mapstructure:"ma_kind"`
	ReturnKind      string  `mapstructure:"return_kind"`
	PeriodsPerYear  float64 `mapstructure:"periods_per_year"`
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`
	ForecastHorizon int     `mapstructure:"forecast_horizon"`
	Confidence      float64 `mapstructure:"confidence"`
	Rebalance       string  `mapstructure:"rebalance"`
}

type ReportConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Schedule  string   `mapstructure:"schedule"`
	OutputDir string   `mapstructure:"output_dir"`
	Symbols   []string `mapstructure:"symbols"`
	Lookback  string   `mapstructure:"lookback"`
	Interval  string   `mapstructure:"interval"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Analytics.LongWindow <= config.Analytics.ShortWindow {
		return nil, fmt.Errorf("analytics long_window (%d) must exceed short_window (%d)",
			config.Analytics.LongWindow, config.Analytics.ShortWindow)
	}
	if c := config.Analytics.Confidence; c <= 0 || c >= 1 {
		return nil, fmt.Errorf("analytics confidence must lie in (0, 1), got %v", c)
	}
	switch config.Analytics.MAKind {
	case "sma", "ema":
	default:
		return nil, fmt.Errorf("analytics ma_kind must be %q or %q, got %q", "sma", "ema", config.Analytics.MAKind)
	}
	if config.MarketData.CacheTTL != "" {
		if _, err := time.ParseDuration(config.MarketData.CacheTTL); err != nil {
			return nil, fmt.Errorf("invalid market data cache TTL: %w", err)
		}
	}
	if config.Report.Lookback != "" {
		if _, err := time.ParseDuration(config.Report.Lookback); err != nil {
			return nil, fmt.Errorf("invalid report lookback: %w", err)
		}
	}

	return &config, nil
}

// CacheTTL parses the configured market-data cache TTL.
func (c *MarketDataConfig) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// LookbackDuration parses the configured report lookback window.
func (c *ReportConfig) LookbackDuration() time.Duration {
	d, err := time.ParseDuration(c.Lookback)
	if err != nil || d <= 0 {
		return 182 * 24 * time.Hour
	}
	return d
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "quantdesk")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("market_data.service_url", "http://localhost:3001")
	viper.SetDefault("market_data.timeout", 30)
	viper.SetDefault("market_data.cache_ttl", "5m")

	viper.SetDefault("analytics.short_window", 20)
	viper.SetDefault("analytics.long_window", 100)
	viper.SetDefault("analytics.adx_window", 14)
	viper.SetDefault("analytics.adx_threshold", 25.0)
	viper.SetDefault("analytics.adx_filter", true)
	viper.SetDefault("analytics.ma_kind", "sma")
	viper.SetDefault("analytics.return_kind", "simple")
	viper.SetDefault("analytics.periods_per_year", 252.0)
	viper.SetDefault("analytics.risk_free_rate", 0.0)
	viper.SetDefault("analytics.forecast_horizon", 7)
	viper.SetDefault("analytics.confidence", 0.95)
	viper.SetDefault("analytics.rebalance", "none")

	viper.SetDefault("report.enabled", false)
	viper.SetDefault("report.schedule", "0 18 * * *")
	viper.SetDefault("report.output_dir", "reports")
	viper.SetDefault("report.symbols", []string{"AAPL", "MSFT", "GOOGL"})
	viper.SetDefault("report.lookback", "4368h")
	viper.SetDefault("report.interval", "1d")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "quantdesk")
}
