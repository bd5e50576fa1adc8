package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "quantdesk", cfg.Database.DBName)
	assert.Equal(t, "http://localhost:3001", cfg.MarketData.ServiceURL)

	assert.Equal(t, 20, cfg.Analytics.ShortWindow)
	assert.Equal(t, 100, cfg.Analytics.LongWindow)
	assert.Equal(t, 14, cfg.Analytics.ADXWindow)
	assert.Equal(t, 25.0, cfg.Analytics.ADXThreshold)
	assert.True(t, cfg.Analytics.ADXFilter)
	assert.Equal(t, "sma", cfg.Analytics.MAKind)
	assert.Equal(t, "simple", cfg.Analytics.ReturnKind)
	assert.Equal(t, 252.0, cfg.Analytics.PeriodsPerYear)
	assert.Equal(t, 7, cfg.Analytics.ForecastHorizon)
	assert.Equal(t, 0.95, cfg.Analytics.Confidence)

	assert.False(t, cfg.Report.Enabled)
	assert.Equal(t, "0 18 * * *", cfg.Report.Schedule)
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, cfg.Report.Symbols)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("ANALYTICS_SHORT_WINDOW", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 10, cfg.Analytics.ShortWindow)
}

func TestLoadValidation(t *testing.T) {
	t.Run("long window must exceed short window", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		t.Setenv("ANALYTICS_SHORT_WINDOW", "200")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "long_window")
	})

	t.Run("confidence outside the unit interval fails", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		t.Setenv("ANALYTICS_CONFIDENCE", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "confidence")
	})

	t.Run("unknown moving average kind fails", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		t.Setenv("ANALYTICS_MA_KIND", "hull")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ma_kind")
	})

	t.Run("malformed cache ttl fails", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		t.Setenv("MARKET_DATA_CACHE_TTL", "five minutes")

		_, err := Load()
		require.Error(t, err)
	})
}

func TestDurationHelpers(t *testing.T) {
	t.Run("cache ttl parses", func(t *testing.T) {
		cfg := MarketDataConfig{CacheTTL: "90s"}
		assert.Equal(t, 90*time.Second, cfg.CacheTTLDuration())
	})

	t.Run("cache ttl falls back on garbage", func(t *testing.T) {
		cfg := MarketDataConfig{CacheTTL: "bogus"}
		assert.Equal(t, 5*time.Minute, cfg.CacheTTLDuration())
	})

	t.Run("lookback parses with fallback", func(t *testing.T) {
		cfg := ReportConfig{Lookback: "720h"}
		assert.Equal(t, 720*time.Hour, cfg.LookbackDuration())
		cfg.Lookback = ""
		assert.Equal(t, 182*24*time.Hour, cfg.LookbackDuration())
	})
}
