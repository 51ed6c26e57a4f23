package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	SitesFile      string `mapstructure:"sites_file"`
	PublishersFile string `mapstructure:"publishers_file"`
	ProfilesFile   string `mapstructure:"profiles_file"`
	BrowserProfile string `mapstructure:"browser_profile"`

	// Single-site fallback used when no sites file is configured.
	SiteURL    string `mapstructure:"site_url"`
	SiteCookie string `mapstructure:"site_cookie" json:"-"`
	SiteUserID string `mapstructure:"site_user_id"`

	PollIntervalSeconds   int64         `mapstructure:"poll_interval"`
	PollInterval          time.Duration `mapstructure:"-"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	RedisAddr              string        `mapstructure:"redis_addr"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	HTTPAddr string `mapstructure:"http_addr"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.derive(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "quota-watch")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("sites_file", "./configs/sites.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("profiles_file", "")
	v.SetDefault("browser_profile", "")
	v.SetDefault("site_url", "")
	v.SetDefault("site_cookie", "")
	v.SetDefault("site_user_id", "")
	v.SetDefault("poll_interval", 60) // seconds
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/snapshots.db")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("storage_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((time.Hour)/time.Second))
	v.SetDefault("http_addr", ":8088")
}

// derive validates the raw second counts and fills the duration fields.
func (cfg *Config) derive() error {
	if cfg.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second

	// zero disables the request timeout
	if cfg.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}
