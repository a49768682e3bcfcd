package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"insulin-calc/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App     AppConfig      `mapstructure:"app"`
	Logging logging.Config `mapstructure:"logging"`
	Storage StorageConfig  `mapstructure:"storage"`
	History HistoryConfig  `mapstructure:"history"`
	Export  ExportConfig   `mapstructure:"export"`
	Report  ReportConfig   `mapstructure:"report"`
	Notify  NotifyConfig   `mapstructure:"notify"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StorageConfig locates the local key/value database.
type StorageConfig struct {
	Path        string `mapstructure:"path"`
	QuotaBytes  int64  `mapstructure:"quota_bytes"`
	HistoryKey  string `mapstructure:"history_key"`
	SettingsKey string `mapstructure:"settings_key"`
}

// HistoryConfig bounds the calculation log.
type HistoryConfig struct {
	MaxItems int `mapstructure:"max_items"`
}

// ExportConfig drives the PDF export pipeline.
type ExportConfig struct {
	PrimaryDir       string        `mapstructure:"primary_dir"`
	FallbackDir      string        `mapstructure:"fallback_dir"`
	DefaultRangeDays int           `mapstructure:"default_range_days"`
	AllowedRanges    []int         `mapstructure:"allowed_ranges"`
	ChartSettleDelay time.Duration `mapstructure:"chart_settle_delay"`
	Share            bool          `mapstructure:"share"`
	CheckPermissions bool          `mapstructure:"check_permissions"`
}

// ReportConfig controls how dates are rendered in reports.
type ReportConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// NotifyConfig selects where status messages go.
type NotifyConfig struct {
	Desktop bool `mapstructure:"desktop"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INSULINCALC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "insulin-calc"))
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "insulinctl")
	v.SetDefault("app.environment", "personal")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("storage.path", filepath.Join(xdg.DataHome, "insulin-calc", "insulin.db"))
	v.SetDefault("storage.quota_bytes", int64(5*1024*1024))
	v.SetDefault("storage.history_key", "insulin_calc_history")
	v.SetDefault("storage.settings_key", "insulin_calc_settings")

	v.SetDefault("history.max_items", 1000)

	v.SetDefault("export.primary_dir", xdg.UserDirs.Documents)
	v.SetDefault("export.fallback_dir", filepath.Join(xdg.CacheHome, "insulin-calc"))
	v.SetDefault("export.default_range_days", 30)
	v.SetDefault("export.allowed_ranges", []int{3, 7, 14, 30, 90})
	v.SetDefault("export.chart_settle_delay", "50ms")
	v.SetDefault("export.share", true)
	v.SetDefault("export.check_permissions", true)

	v.SetDefault("report.timezone", "Local")

	v.SetDefault("notify.desktop", false)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must be set")
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes cannot be negative")
	}
	if c.Storage.HistoryKey == "" || c.Storage.SettingsKey == "" {
		return fmt.Errorf("storage.history_key and storage.settings_key must be set")
	}
	if c.Storage.HistoryKey == c.Storage.SettingsKey {
		return fmt.Errorf("storage.history_key and storage.settings_key must differ")
	}
	if c.History.MaxItems <= 1 {
		return fmt.Errorf("history.max_items must be greater than one")
	}
	if c.Export.PrimaryDir == "" && c.Export.FallbackDir == "" {
		return fmt.Errorf("export.primary_dir or export.fallback_dir must be set")
	}
	if len(c.Export.AllowedRanges) == 0 {
		return fmt.Errorf("export.allowed_ranges cannot be empty")
	}
	for _, days := range c.Export.AllowedRanges {
		if days <= 0 {
			return fmt.Errorf("export.allowed_ranges must contain positive day counts, got %d", days)
		}
	}
	if !c.IsAllowedRange(c.Export.DefaultRangeDays) {
		return fmt.Errorf("export.default_range_days %d is not one of export.allowed_ranges", c.Export.DefaultRangeDays)
	}
	if c.Export.ChartSettleDelay < 0 {
		return fmt.Errorf("export.chart_settle_delay cannot be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// IsAllowedRange reports whether days is one of the selectable ranges.
func (c *Config) IsAllowedRange(days int) bool {
	return slices.Contains(c.Export.AllowedRanges, days)
}

// ResolveRangeDays returns either the CLI override or config default.
func (c *Config) ResolveRangeDays(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.DefaultRangeDays
}

// Location resolves report.timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Report.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("report.timezone: %w", err)
	}
	return loc, nil
}
