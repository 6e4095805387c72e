package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AnalyticsConfig carries the tunables of the scoring endpoints. It is
// reloaded from analytics.yml without a restart.
type AnalyticsConfig struct {
	Performance PerformanceDefaults `mapstructure:"performance"`
	Reliability ReliabilityDefaults `mapstructure:"reliability"`
	Trends      TrendDefaults       `mapstructure:"trends"`
	Risk        RiskDefaults        `mapstructure:"risk"`
	DataSource  DataSourceConfig    `mapstructure:"dataSource"`
	RateLimit   RateLimitConfig     `mapstructure:"rateLimit"`
}

type PerformanceDefaults struct {
	Limit     int `mapstructure:"limit"`
	Timeframe int `mapstructure:"timeframe"`
}

type ReliabilityDefaults struct {
	Limit        int `mapstructure:"limit"`
	WindowMonths int `mapstructure:"windowMonths"`
}

type TrendDefaults struct {
	Months     int `mapstructure:"months"`
	TopVendors int `mapstructure:"topVendors"`
}

type RiskDefaults struct {
	Limit        int `mapstructure:"limit"`
	WindowMonths int `mapstructure:"windowMonths"`
}

type DataSourceConfig struct {
	QueryTimeout  time.Duration `mapstructure:"queryTimeout"`
	RetryAttempts int           `mapstructure:"retryAttempts"`
	RetryDelay    time.Duration `mapstructure:"retryDelay"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		Performance: PerformanceDefaults{Limit: 20, Timeframe: 12},
		Reliability: ReliabilityDefaults{Limit: 15, WindowMonths: 12},
		Trends:      TrendDefaults{Months: 12, TopVendors: 10},
		Risk:        RiskDefaults{Limit: 20, WindowMonths: 12},
		DataSource: DataSourceConfig{
			QueryTimeout:  10 * time.Second,
			RetryAttempts: 2,
			RetryDelay:    200 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 10, Burst: 20},
	}
}

type AnalyticsConfigHolder struct {
	current atomic.Value // holds AnalyticsConfig
}

// NewStaticAnalyticsConfigHolder returns a holder that never reloads.
func NewStaticAnalyticsConfigHolder(cfg AnalyticsConfig) *AnalyticsConfigHolder {
	holder := &AnalyticsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewAnalyticsConfigHolder(cfg Config, log *zap.Logger) (*AnalyticsConfigHolder, error) {
	log = log.Named("analytics-config")

	v := viper.New()
	v.SetConfigName("analytics")
	v.SetConfigType("yml")
	if cfg.AnalyticsConfigDir != "" {
		v.AddConfigPath(cfg.AnalyticsConfigDir)
	}
	v.AddConfigPath("/etc/vendorscope")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VENDORSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setAnalyticsDefaults(v, DefaultAnalyticsConfig())

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read analytics config: %w", err)
		}
		found = false
	}

	parsed, err := unmarshalAnalytics(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticAnalyticsConfigHolder(parsed)
	if !found {
		log.Info("analytics config file not found, using defaults")
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalAnalytics(v)
		if err != nil {
			log.Warn("invalid analytics config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("analytics config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *AnalyticsConfigHolder) Get() AnalyticsConfig {
	return h.current.Load().(AnalyticsConfig)
}

func setAnalyticsDefaults(v *viper.Viper, d AnalyticsConfig) {
	v.SetDefault("analytics.performance.limit", d.Performance.Limit)
	v.SetDefault("analytics.performance.timeframe", d.Performance.Timeframe)
	v.SetDefault("analytics.reliability.limit", d.Reliability.Limit)
	v.SetDefault("analytics.reliability.windowMonths", d.Reliability.WindowMonths)
	v.SetDefault("analytics.trends.months", d.Trends.Months)
	v.SetDefault("analytics.trends.topVendors", d.Trends.TopVendors)
	v.SetDefault("analytics.risk.limit", d.Risk.Limit)
	v.SetDefault("analytics.risk.windowMonths", d.Risk.WindowMonths)
	v.SetDefault("analytics.dataSource.queryTimeout", d.DataSource.QueryTimeout)
	v.SetDefault("analytics.dataSource.retryAttempts", d.DataSource.RetryAttempts)
	v.SetDefault("analytics.dataSource.retryDelay", d.DataSource.RetryDelay)
	v.SetDefault("analytics.rateLimit.enabled", d.RateLimit.Enabled)
	v.SetDefault("analytics.rateLimit.requestsPerSecond", d.RateLimit.RequestsPerSecond)
	v.SetDefault("analytics.rateLimit.burst", d.RateLimit.Burst)
}

func unmarshalAnalytics(v *viper.Viper) (AnalyticsConfig, error) {
	var cfg AnalyticsConfig
	if err := v.UnmarshalKey("analytics", &cfg); err != nil {
		return AnalyticsConfig{}, fmt.Errorf("decode analytics config: %w", err)
	}
	if err := ValidateAnalyticsConfig(cfg); err != nil {
		return AnalyticsConfig{}, err
	}
	return cfg, nil
}

func ValidateAnalyticsConfig(cfg AnalyticsConfig) error {
	var errs []error
	positive := map[string]int{
		"performance.limit":        cfg.Performance.Limit,
		"performance.timeframe":    cfg.Performance.Timeframe,
		"reliability.limit":        cfg.Reliability.Limit,
		"reliability.windowMonths": cfg.Reliability.WindowMonths,
		"trends.months":            cfg.Trends.Months,
		"trends.topVendors":        cfg.Trends.TopVendors,
		"risk.limit":               cfg.Risk.Limit,
		"risk.windowMonths":        cfg.Risk.WindowMonths,
		"dataSource.retryAttempts": cfg.DataSource.RetryAttempts,
	}
	for key, value := range positive {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("analytics.%s must be positive", key))
		}
	}
	if cfg.DataSource.QueryTimeout <= 0 {
		errs = append(errs, errors.New("analytics.dataSource.queryTimeout must be positive"))
	}
	if cfg.DataSource.RetryDelay < 0 {
		errs = append(errs, errors.New("analytics.dataSource.retryDelay cannot be negative"))
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.RequestsPerSecond <= 0 || cfg.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("analytics.rateLimit requires positive requestsPerSecond and burst"))
	}
	return errors.Join(errs...)
}
