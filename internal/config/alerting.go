package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AlertingConfig holds detector thresholds. Values are hot-reloadable so
// operators can tune alerting without a restart.
type AlertingConfig struct {
	UsageWarningRatio  float64 `mapstructure:"usageWarningRatio"`
	UsageCriticalRatio float64 `mapstructure:"usageCriticalRatio"`

	ChurnAlertScore    float64 `mapstructure:"churnAlertScore"`
	ChurnCriticalScore float64 `mapstructure:"churnCriticalScore"`
	ChurnAlertTTLDays  int     `mapstructure:"churnAlertTTLDays"`

	UpsellUsageRatio      float64 `mapstructure:"upsellUsageRatio"`
	PowerUserUsageRatio   float64 `mapstructure:"powerUserUsageRatio"`
	PowerUserFeatureCount int     `mapstructure:"powerUserFeatureCount"`
	UpsellAlertTTLDays    int     `mapstructure:"upsellAlertTTLDays"`
	PowerUserAlertTTLDays int     `mapstructure:"powerUserAlertTTLDays"`
}

func DefaultAlertingConfig() AlertingConfig {
	return AlertingConfig{
		UsageWarningRatio:  0.80,
		UsageCriticalRatio: 0.95,

		ChurnAlertScore:    70,
		ChurnCriticalScore: 90,
		ChurnAlertTTLDays:  7,

		UpsellUsageRatio:      0.90,
		PowerUserUsageRatio:   0.70,
		PowerUserFeatureCount: 4,
		UpsellAlertTTLDays:    14,
		PowerUserAlertTTLDays: 30,
	}
}

type AlertingConfigHolder struct {
	current atomic.Value // holds AlertingConfig
}

func NewAlertingConfigHolder() (*AlertingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("alerting")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/insight/config")
	v.AddConfigPath("/etc/insight")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultAlertingConfig()
		v.SetDefault("alerting.usageWarningRatio", defaults.UsageWarningRatio)
		v.SetDefault("alerting.usageCriticalRatio", defaults.UsageCriticalRatio)
		v.SetDefault("alerting.churnAlertScore", defaults.ChurnAlertScore)
		v.SetDefault("alerting.churnCriticalScore", defaults.ChurnCriticalScore)
		v.SetDefault("alerting.churnAlertTTLDays", defaults.ChurnAlertTTLDays)
		v.SetDefault("alerting.upsellUsageRatio", defaults.UpsellUsageRatio)
		v.SetDefault("alerting.powerUserUsageRatio", defaults.PowerUserUsageRatio)
		v.SetDefault("alerting.powerUserFeatureCount", defaults.PowerUserFeatureCount)
		v.SetDefault("alerting.upsellAlertTTLDays", defaults.UpsellAlertTTLDays)
		v.SetDefault("alerting.powerUserAlertTTLDays", defaults.PowerUserAlertTTLDays)
	}

	var cfg AlertingConfig
	if err := v.UnmarshalKey("alerting", &cfg); err != nil {
		return nil, err
	}
	if err := validateAlertingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &AlertingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AlertingConfig
		if err := v.UnmarshalKey("alerting", &updated); err != nil {
			log.Printf("[alerting-config] reload failed: %v", err)
			return
		}
		if err := validateAlertingConfig(updated); err != nil {
			log.Printf("[alerting-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[alerting-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticAlertingConfigHolder wraps a fixed config without file watching.
func NewStaticAlertingConfigHolder(cfg AlertingConfig) *AlertingConfigHolder {
	h := &AlertingConfigHolder{}
	h.current.Store(cfg)
	return h
}

func (h *AlertingConfigHolder) Get() AlertingConfig {
	return h.current.Load().(AlertingConfig)
}

func validateAlertingConfig(cfg AlertingConfig) error {
	if cfg.UsageWarningRatio <= 0 || cfg.UsageWarningRatio > 1 {
		return errors.New("alerting.usageWarningRatio must be in (0, 1]")
	}
	if cfg.UsageCriticalRatio < cfg.UsageWarningRatio {
		return errors.New("alerting.usageCriticalRatio must be >= usageWarningRatio")
	}
	if cfg.ChurnCriticalScore < cfg.ChurnAlertScore {
		return errors.New("alerting.churnCriticalScore must be >= churnAlertScore")
	}
	if cfg.PowerUserFeatureCount <= 0 {
		return errors.New("alerting.powerUserFeatureCount must be positive")
	}
	return nil
}
